// Package widget runs the customer side of the help desk for one connection:
// a navigation engine fed by live content snapshots, escalation into a chat
// session and the chat itself. Everything happens on a single loop; the
// connection only carries commands in and frames out.
package widget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"helpdesk-be/internal/pkg/logger"
	"helpdesk-be/internal/service"
	"helpdesk-be/pkg/apperr"
	"helpdesk-be/pkg/chat"
	"helpdesk-be/pkg/knowledge"
	"helpdesk-be/pkg/livesync"
	"helpdesk-be/pkg/navigation"
)

// Command types accepted from the customer.
const (
	CmdSelect    = "select"
	CmdBack      = "back"
	CmdHome      = "home"
	CmdLanguage  = "language"
	CmdTab       = "tab"
	CmdEscalate  = "escalate"
	CmdStartChat = "start_chat"
	CmdSend      = "send"
)

type Command struct {
	Type     string `json:"type"`
	NodeID   string `json:"node_id,omitempty"`
	TabID    string `json:"tab_id,omitempty"`
	Language string `json:"language,omitempty"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Text     string `json:"text,omitempty"`
}

type FrameError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type ChatView struct {
	Status   chat.Status    `json:"status"`
	Messages []chat.Message `json:"messages"`
}

// Frame is a complete description of what the widget shows. Each frame
// replaces the previous one.
type Frame struct {
	Type     string             `json:"type"`
	Screen   navigation.Screen  `json:"screen"`
	Branding knowledge.Branding `json:"branding"`
	Chat     *ChatView          `json:"chat,omitempty"`
	Error    *FrameError        `json:"error,omitempty"`
}

type Session struct {
	engine   *navigation.Engine
	adapter  *livesync.Adapter
	chats    service.IChatSessionService
	logger   logger.ILogger
	branding knowledge.Branding
	// last snapshot of the bound chat session
	chat *chat.Session
}

func NewSession(lang knowledge.Language, adapter *livesync.Adapter, chats service.IChatSessionService, log logger.ILogger) *Session {
	return &Session{
		engine:   navigation.NewEngine(lang),
		adapter:  adapter,
		chats:    chats,
		logger:   log,
		branding: knowledge.DefaultBranding(),
	}
}

// Run is the connection loop. It returns when commands is closed or ctx
// ends, after releasing every subscription.
func (s *Session) Run(ctx context.Context, commands <-chan []byte, send chan<- []byte) {
	defer s.adapter.Close()

	if err := s.adapter.WatchContent(ctx); err != nil {
		s.logger.Error("WIDGET", "Failed to watch content", map[string]interface{}{"error": err})
		s.push(ctx, send, s.Frame(err))
		return
	}
	if !s.push(ctx, send, s.Frame(nil)) {
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
				cmdErr = s.Handle(ctx, cmd)
			}
		case ev, ok := <-s.adapter.Events():
			if !ok {
				return
			}
			if !s.Apply(ev) {
				continue
			}
		}
		if !s.push(ctx, send, s.Frame(cmdErr)) {
			return
		}
	}
}

func (s *Session) push(ctx context.Context, send chan<- []byte, f Frame) bool {
	data, err := json.Marshal(f)
	if err != nil {
		s.logger.Error("WIDGET", "Failed to encode frame", map[string]interface{}{"error": err})
		return true
	}
	select {
	case send <- data:
		return true
	case <-ctx.Done():
		return false
	}
}

// Handle applies one customer command. Writes are not applied locally: the
// change shows up with the next session snapshot.
func (s *Session) Handle(ctx context.Context, cmd Command) error {
	e := s.engine
	switch cmd.Type {
	case CmdSelect:
		return e.SelectNode(cmd.NodeID)
	case CmdBack:
		return e.GoBack()
	case CmdHome:
		e.GoHome()
		s.chat = nil
		return s.adapter.BindSession(ctx, "")
	case CmdLanguage:
		return e.SelectLanguage(knowledge.Language(cmd.Language))
	case CmdTab:
		return e.SelectTab(cmd.TabID)
	case CmdEscalate:
		return e.RequestOperator()
	case CmdStartChat:
		return s.startChat(ctx, cmd)
	case CmdSend:
		if e.View() != navigation.ViewChat {
			return fmt.Errorf("send from %s: %w", e.View(), apperr.ErrInvalidTransition)
		}
		if s.chat != nil && s.chat.IsEnded() {
			return apperr.ErrSessionEnded
		}
		return s.chats.SendMessage(ctx, e.SessionID(), chat.SenderCustomer, cmd.Text)
	default:
		return apperr.Invalid("type", fmt.Sprintf("unknown command %q", cmd.Type))
	}
}

func (s *Session) startChat(ctx context.Context, cmd Command) error {
	handoff, ok := s.engine.Handoff()
	if !ok {
		return fmt.Errorf("start chat from %s: %w", s.engine.View(), apperr.ErrInvalidTransition)
	}

	id, err := s.chats.Create(ctx, chat.NewSessionInput{
		CustomerName:  cmd.Name,
		CustomerEmail: cmd.Email,
		Topic:         handoff.Topic,
		Language:      string(handoff.Language),
		Path:          handoff.Path,
	})
	if err != nil {
		return err
	}
	if err := s.engine.BindSession(id); err != nil {
		return err
	}
	s.chat = nil
	return s.adapter.BindSession(ctx, id)
}

// Apply folds an adapter event into the local state. It reports whether the
// frame changed.
func (s *Session) Apply(ev livesync.Event) bool {
	switch ev.Kind {
	case livesync.TreeReplaced:
		s.engine.ApplyTree(ev.Tree, ev.TreeErr)
		return true
	case livesync.BrandingReplaced:
		s.branding = ev.Branding
		return true
	case livesync.SessionReplaced:
		if ev.SessionID != s.engine.SessionID() {
			// late event of a released binding
			return false
		}
		if ev.SessionErr != nil {
			s.logger.Warn("WIDGET", "Bound session unavailable", map[string]interface{}{"session_id": ev.SessionID, "error": ev.SessionErr.Error()})
			return false
		}
		s.chat = ev.Session
		s.engine.ApplySessionStatus(ev.SessionID, ev.Session.Status)
		return true
	}
	return false
}

// Frame renders the current state. cmdErr, if any, is reported alongside.
func (s *Session) Frame(cmdErr error) Frame {
	f := Frame{
		Type:     "frame",
		Screen:   s.engine.Screen(),
		Branding: s.branding,
	}
	if s.chat != nil && s.chat.ID == s.engine.SessionID() {
		f.Chat = &ChatView{Status: s.chat.Status, Messages: s.chat.Messages}
	}
	if f.Screen.View == navigation.ViewError {
		if err := s.engine.LoadErr(); err != nil {
			f.Error = frameError(err)
		}
	}
	if cmdErr != nil {
		f.Error = frameError(cmdErr)
	}
	return f
}

func frameError(err error) *FrameError {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		return &FrameError{Code: "validation", Field: ve.Field, Message: ve.Reason}
	case errors.Is(err, apperr.ErrSessionEnded):
		return &FrameError{Code: "session_ended", Message: err.Error()}
	case errors.Is(err, apperr.ErrInvalidTransition), errors.Is(err, apperr.ErrNotSelectable):
		return &FrameError{Code: "invalid_transition", Message: err.Error()}
	case apperr.IsNotFound(err), errors.Is(err, knowledge.ErrEmptyTree):
		return &FrameError{Code: "not_found", Message: err.Error()}
	case apperr.IsWriteFailure(err):
		return &FrameError{Code: "write_failed", Message: "your message could not be saved, please try again"}
	default:
		return &FrameError{Code: "internal", Message: "something went wrong"}
	}
}
