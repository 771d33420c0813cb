// Package operator runs the operator console for one connection: the whole
// session collection split into active and archived chats, one selected
// chat, replies and ending.
package operator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"helpdesk-be/internal/pkg/logger"
	"helpdesk-be/internal/service"
	"helpdesk-be/pkg/apperr"
	"helpdesk-be/pkg/chat"
	"helpdesk-be/pkg/livesync"
)

const (
	CmdView     = "view"
	CmdSelect   = "select"
	CmdDeselect = "deselect"
	CmdReply    = "reply"
	CmdEnd      = "end"
)

type Command struct {
	Type      string `json:"type"`
	View      string `json:"view,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Text      string `json:"text,omitempty"`
}

type Summary struct {
	ID            string      `json:"id"`
	CustomerName  string      `json:"customerName"`
	CustomerEmail string      `json:"customerEmail"`
	Topic         string      `json:"topic"`
	Language      string      `json:"language"`
	Status        chat.Status `json:"status"`
	CreatedAt     time.Time   `json:"createdAt"`
	LastMessage   string      `json:"lastMessage,omitempty"`
	MessageCount  int         `json:"messageCount"`
}

type FrameError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Frame struct {
	Type         string        `json:"type"`
	View         chat.View     `json:"view"`
	ActiveCount  int           `json:"activeCount"`
	ArchiveCount int           `json:"archiveCount"`
	Sessions     []Summary     `json:"sessions"`
	Selected     *chat.Session `json:"selected,omitempty"`
	Error        *FrameError   `json:"error,omitempty"`
}

type Console struct {
	operatorEmail string
	adapter       *livesync.Adapter
	chats         service.IChatSessionService
	logger        logger.ILogger

	view       chat.View
	active     []chat.Session
	archive    []chat.Session
	selectedID string
	loaded     bool
}

func NewConsole(operatorEmail string, adapter *livesync.Adapter, chats service.IChatSessionService, log logger.ILogger) *Console {
	return &Console{
		operatorEmail: operatorEmail,
		adapter:       adapter,
		chats:         chats,
		logger:        log,
		view:          chat.ViewActive,
		active:        []chat.Session{},
		archive:       []chat.Session{},
	}
}

// Run is the connection loop. It returns when commands is closed or ctx
// ends, after releasing the collection subscription.
func (c *Console) Run(ctx context.Context, commands <-chan []byte, send chan<- []byte) {
	defer c.adapter.Close()

	if err := c.adapter.WatchSessions(ctx); err != nil {
		c.logger.Error("OPERATOR", "Failed to watch sessions", map[string]interface{}{"error": err})
		c.push(ctx, send, c.Frame(err))
		return
	}

	for {
		var cmdErr error
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-commands:
			if !ok {
				return
			}
			var cmd Command
			if err := json.Unmarshal(raw, &cmd); err != nil {
				cmdErr = apperr.Invalid("", "command is not valid JSON")
			} else {
				cmdErr = c.Handle(ctx, cmd)
			}
		case ev, ok := <-c.adapter.Events():
			if !ok {
				return
			}
			if !c.Apply(ev) {
				continue
			}
		}
		if !c.push(ctx, send, c.Frame(cmdErr)) {
			return
		}
	}
}

func (c *Console) push(ctx context.Context, send chan<- []byte, f Frame) bool {
	data, err := json.Marshal(f)
	if err != nil {
		c.logger.Error("OPERATOR", "Failed to encode frame", map[string]interface{}{"error": err})
		return true
	}
	select {
	case send <- data:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Console) Handle(ctx context.Context, cmd Command) error {
	switch cmd.Type {
	case CmdView:
		v, ok := chat.ParseView(cmd.View)
		if !ok {
			return apperr.Invalid("view", fmt.Sprintf("unknown view %q", cmd.View))
		}
		c.view = v
		c.syncSelection()
		return nil
	case CmdSelect:
		if c.find(c.visible(), cmd.SessionID) == nil {
			return apperr.NotFound("chats", cmd.SessionID)
		}
		c.selectedID = cmd.SessionID
		return nil
	case CmdDeselect:
		c.selectedID = ""
		return nil
	case CmdReply:
		selected := c.Selected()
		if selected == nil {
			return apperr.Invalid("session_id", "no chat is selected")
		}
		if err := selected.Accepts(); err != nil {
			return err
		}
		return c.chats.SendMessage(ctx, selected.ID, chat.SenderOperator, cmd.Text)
	case CmdEnd:
		if c.selectedID == "" {
			return apperr.Invalid("session_id", "no chat is selected")
		}
		if err := c.chats.End(ctx, c.selectedID, c.operatorEmail); err != nil {
			return err
		}
		// the ended chat moves to the archive, follow it there
		c.view = chat.ViewArchive
		return nil
	default:
		return apperr.Invalid("type", fmt.Sprintf("unknown command %q", cmd.Type))
	}
}

// Apply folds a collection snapshot into the console. Other events are
// ignored.
func (c *Console) Apply(ev livesync.Event) bool {
	if ev.Kind != livesync.SessionsReplaced {
		return false
	}
	c.active, c.archive = chat.Partition(ev.Sessions)
	c.loaded = true
	c.syncSelection()
	return true
}

// syncSelection clears the selection once the selected chat is no longer
// in the current view. Right after ending a chat the snapshot may still
// list it as active, so the selection survives until a snapshot decides.
func (c *Console) syncSelection() {
	if c.selectedID == "" || !c.loaded {
		return
	}
	if c.find(c.visible(), c.selectedID) != nil {
		return
	}
	if c.view == chat.ViewArchive && c.find(c.active, c.selectedID) != nil {
		return
	}
	c.selectedID = ""
}

func (c *Console) visible() []chat.Session {
	if c.view == chat.ViewArchive {
		return c.archive
	}
	return c.active
}

func (c *Console) find(sessions []chat.Session, id string) *chat.Session {
	for i := range sessions {
		if sessions[i].ID == id {
			return &sessions[i]
		}
	}
	return nil
}

// Selected returns the latest snapshot of the selected chat.
func (c *Console) Selected() *chat.Session {
	if c.selectedID == "" {
		return nil
	}
	if s := c.find(c.active, c.selectedID); s != nil {
		return s
	}
	return c.find(c.archive, c.selectedID)
}

func (c *Console) View() chat.View { return c.view }

func (c *Console) Frame(cmdErr error) Frame {
	visible := c.visible()
	f := Frame{
		Type:         "console",
		View:         c.view,
		ActiveCount:  len(c.active),
		ArchiveCount: len(c.archive),
		Sessions:     make([]Summary, 0, len(visible)),
		Selected:     c.Selected(),
	}
	for _, s := range visible {
		f.Sessions = append(f.Sessions, summarize(s))
	}
	if cmdErr != nil {
		f.Error = frameError(cmdErr)
	}
	return f
}

func summarize(s chat.Session) Summary {
	sum := Summary{
		ID:            s.ID,
		CustomerName:  s.CustomerName,
		CustomerEmail: s.CustomerEmail,
		Topic:         s.Topic,
		Language:      s.Language,
		Status:        s.Status,
		CreatedAt:     s.CreatedAt,
		MessageCount:  len(s.Messages),
	}
	if n := len(s.Messages); n > 0 {
		sum.LastMessage = s.Messages[n-1].Text
	}
	return sum
}

func frameError(err error) *FrameError {
	switch {
	case apperr.IsValidation(err):
		return &FrameError{Code: "validation", Message: err.Error()}
	case errors.Is(err, apperr.ErrSessionEnded):
		return &FrameError{Code: "session_ended", Message: err.Error()}
	case apperr.IsNotFound(err):
		return &FrameError{Code: "not_found", Message: err.Error()}
	case apperr.IsWriteFailure(err):
		return &FrameError{Code: "write_failed", Message: "the change could not be saved"}
	default:
		return &FrameError{Code: "internal", Message: "something went wrong"}
	}
}
