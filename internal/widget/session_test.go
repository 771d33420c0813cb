package widget

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"helpdesk-be/internal/docstore"
	"helpdesk-be/internal/pkg/logger"
	"helpdesk-be/internal/repository/memory"
	"helpdesk-be/internal/service"
	"helpdesk-be/pkg/apperr"
	"helpdesk-be/pkg/changefeed"
	"helpdesk-be/pkg/chat"
	"helpdesk-be/pkg/events"
	"helpdesk-be/pkg/knowledge"
	"helpdesk-be/pkg/livesync"
	"helpdesk-be/pkg/navigation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const officeTree = `{"tree":[
	{"id":"cat1","name":{"en":"Billing","np":"बिलिङ"},"children":[
		{"id":"q1","name":{"en":"Invoice"},"answer":{"en":"Download it from the portal."}},
		{"id":"c1","name":{"en":"Talk to an officer"},"leadsToChat":true}
	]},
	{"id":"cat2","name":{"en":"Permits"},"children":[]}
]}`

var docs = livesync.Documents{
	TreeCollection:     "knowledgeBase",
	TreeDocument:       "main",
	BrandingCollection: "widgetConfig",
	BrandingDocument:   "main",
	SessionCollection:  "chats",
}

type fixture struct {
	store   *docstore.Store
	chats   service.IChatSessionService
	adapter *livesync.Adapter
	session *Session
}

func newFixture(t *testing.T, seedTree bool) *fixture {
	t.Helper()
	log := logger.NewNopLogger()
	feed := changefeed.NewLocalFeed(log)
	st := docstore.NewStore(memory.NewRepositoryFactory(memory.NewDatabase()), feed, log)
	if seedTree {
		require.NoError(t, st.SetDocument(context.Background(), "knowledgeBase", "main", json.RawMessage(officeTree), false))
	}
	chats := service.NewChatSessionService(st, "chats", events.NewPublisher(nil, log), log)
	adapter := livesync.New(st, st, docs, log)
	t.Cleanup(func() {
		adapter.Close()
		_ = feed.Close()
	})
	return &fixture{
		store:   st,
		chats:   chats,
		adapter: adapter,
		session: NewSession(knowledge.LangEnglish, adapter, chats, log),
	}
}

// settle applies adapter events until the frame satisfies done.
func (f *fixture) settle(t *testing.T, done func(Frame) bool) Frame {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		frame := f.session.Frame(nil)
		if done(frame) {
			return frame
		}
		select {
		case ev := <-f.adapter.Events():
			f.session.Apply(ev)
		case <-deadline:
			t.Fatalf("frame never settled, last view %s", frame.Screen.View)
		}
	}
}

func view(v navigation.View) func(Frame) bool {
	return func(f Frame) bool { return f.Screen.View == v }
}

func TestSession_EscalationToChatAndEnd(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	require.NoError(t, f.adapter.WatchContent(ctx))

	frame := f.settle(t, view(navigation.ViewTopics))
	require.Len(t, frame.Screen.Tabs, 2)

	require.NoError(t, f.session.Handle(ctx, Command{Type: CmdSelect, NodeID: "cat1"}))
	require.NoError(t, f.session.Handle(ctx, Command{Type: CmdSelect, NodeID: "c1"}))
	assert.Equal(t, navigation.ViewForm, f.session.Frame(nil).Screen.View)

	err := f.session.Handle(ctx, Command{Type: CmdStartChat, Name: "", Email: "sita@example.com"})
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, "validation", f.session.Frame(err).Error.Code)

	require.NoError(t, f.session.Handle(ctx, Command{Type: CmdStartChat, Name: "Sita", Email: "sita@example.com"}))
	id := f.adapter.BoundSession()
	require.NotEmpty(t, id)

	frame = f.settle(t, func(fr Frame) bool { return fr.Chat != nil })
	assert.Equal(t, navigation.ViewChat, frame.Screen.View)
	require.Len(t, frame.Chat.Messages, 2)
	assert.Equal(t, "Selected: Billing", frame.Chat.Messages[0].Text)
	assert.Equal(t, "Selected: Talk to an officer", frame.Chat.Messages[1].Text)

	require.NoError(t, f.session.Handle(ctx, Command{Type: CmdSend, Text: "hello"}))
	frame = f.settle(t, func(fr Frame) bool { return fr.Chat != nil && len(fr.Chat.Messages) == 3 })
	assert.Equal(t, chat.SenderCustomer, frame.Chat.Messages[2].Sender)

	require.NoError(t, f.chats.End(ctx, id, "op@example.com"))
	f.settle(t, view(navigation.ViewEnded))
	assert.ErrorIs(t, f.session.Handle(ctx, Command{Type: CmdSend, Text: "still there?"}), apperr.ErrSessionEnded)

	require.NoError(t, f.session.Handle(ctx, Command{Type: CmdHome}))
	assert.Equal(t, navigation.ViewTopics, f.session.Frame(nil).Screen.View)
	assert.Empty(t, f.adapter.BoundSession())
	assert.Nil(t, f.session.Frame(nil).Chat)
}

func TestSession_MissingTreeShowsError(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	require.NoError(t, f.adapter.WatchContent(ctx))

	frame := f.settle(t, view(navigation.ViewError))
	require.NotNil(t, frame.Error)
	assert.Equal(t, "not_found", frame.Error.Code)

	require.NoError(t, f.store.SetDocument(ctx, "knowledgeBase", "main", json.RawMessage(officeTree), false))
	f.settle(t, view(navigation.ViewTopics))
}

func TestSession_BrandingAndLanguage(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	require.NoError(t, f.store.SetDocument(ctx, "widgetConfig", "main", json.RawMessage(`{"organizationName":"Ward 4"}`), true))
	require.NoError(t, f.adapter.WatchContent(ctx))

	frame := f.settle(t, func(fr Frame) bool {
		return fr.Screen.View == navigation.ViewTopics && fr.Branding.OrganizationName == "Ward 4"
	})
	assert.Equal(t, "Billing", frame.Screen.Tabs[0].Label)

	require.NoError(t, f.session.Handle(ctx, Command{Type: CmdLanguage, Language: "np"}))
	assert.Equal(t, "बिलिङ", f.session.Frame(nil).Screen.Tabs[0].Label)

	err := f.session.Handle(ctx, Command{Type: CmdLanguage, Language: "fr"})
	assert.True(t, apperr.IsValidation(err))
}

func TestSession_RejectedCommandsKeepState(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	require.NoError(t, f.adapter.WatchContent(ctx))
	f.settle(t, view(navigation.ViewTopics))

	tests := []struct {
		cmd  Command
		code string
	}{
		{Command{Type: CmdSend, Text: "hi"}, "invalid_transition"},
		{Command{Type: CmdStartChat, Name: "A", Email: "a@x.com"}, "invalid_transition"},
		{Command{Type: CmdSelect, NodeID: "ghost"}, "invalid_transition"},
		{Command{Type: "dance"}, "validation"},
	}
	for _, tt := range tests {
		t.Run(tt.cmd.Type, func(t *testing.T) {
			err := f.session.Handle(ctx, tt.cmd)
			require.Error(t, err)
			frame := f.session.Frame(err)
			assert.Equal(t, tt.code, frame.Error.Code)
			assert.Equal(t, navigation.ViewTopics, frame.Screen.View)
		})
	}
}

func TestSession_RunLoop(t *testing.T) {
	f := newFixture(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	commands := make(chan []byte)
	send := make(chan []byte, 8)
	done := make(chan struct{})
	go func() {
		f.session.Run(ctx, commands, send)
		close(done)
	}()

	next := func() Frame {
		select {
		case raw := <-send:
			var fr Frame
			require.NoError(t, json.Unmarshal(raw, &fr))
			return fr
		case <-time.After(2 * time.Second):
			t.Fatal("no frame")
		}
		return Frame{}
	}

	for fr := next(); fr.Screen.View != navigation.ViewTopics; fr = next() {
	}

	commands <- []byte(`{"type":"select","node_id":"cat1"}`)
	for fr := next(); fr.Screen.View != navigation.ViewNavigating; fr = next() {
	}

	commands <- []byte(`not json`)
	for fr := next(); fr.Error == nil; fr = next() {
	}

	close(commands)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}
