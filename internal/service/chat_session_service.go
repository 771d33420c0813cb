package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"helpdesk-be/internal/metrics"
	"helpdesk-be/internal/pkg/logger"
	"helpdesk-be/pkg/apperr"
	"helpdesk-be/pkg/chat"
	"helpdesk-be/pkg/events"
	"helpdesk-be/pkg/store"
)

type IChatSessionService interface {
	// Create opens an active session and returns its id.
	Create(ctx context.Context, in chat.NewSessionInput) (string, error)
	Get(ctx context.Context, id string) (*chat.Session, error)
	// SendMessage appends one message while the session is active.
	SendMessage(ctx context.Context, id string, sender chat.Sender, text string) error
	// End marks the session ended. Ending an ended session changes nothing.
	End(ctx context.Context, id, operatorEmail string) error
	// List returns one side of the active/archive partition, newest first.
	List(ctx context.Context, view chat.View) ([]chat.Session, error)
	// Counts returns the size of both sides of the partition.
	Counts(ctx context.Context) (active, archive int, err error)
}

type chatSessionService struct {
	store      store.SessionStore
	collection string
	publisher  *events.Publisher
	logger     logger.ILogger
	now        func() time.Time
}

func NewChatSessionService(st store.SessionStore, collection string, publisher *events.Publisher, log logger.ILogger) IChatSessionService {
	return &chatSessionService{
		store:      st,
		collection: collection,
		publisher:  publisher,
		logger:     log,
		now:        time.Now,
	}
}

var activeOnly = store.FieldEquals(chat.FieldStatus, string(chat.StatusActive))

func (s *chatSessionService) writeFailed(op, id string, err error) error {
	s.logger.Error("CHAT", "Store write failed", map[string]interface{}{
		"op":         op,
		"session_id": id,
		"error":      err,
	})
	return apperr.WriteFailed(op, err)
}

func (s *chatSessionService) Create(ctx context.Context, in chat.NewSessionInput) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}

	data, err := chat.EncodeNew(in, s.now())
	if err != nil {
		return "", err
	}

	id, err := s.store.CreateDocument(ctx, s.collection, data)
	metrics.ObserveWrite("create", err)
	if err != nil {
		return "", s.writeFailed("create", "", err)
	}

	metrics.SessionsCreated.Inc()
	s.logger.Info("CHAT", "Chat session created", map[string]interface{}{"session_id": id, "topic": in.Topic})
	s.publisher.PublishChatSessionCreated(ctx, id, in.CustomerEmail, in.Topic, in.Language)
	return id, nil
}

func (s *chatSessionService) Get(ctx context.Context, id string) (*chat.Session, error) {
	if id == "" {
		return nil, apperr.Invalid("sessionId", "is required")
	}
	doc, err := s.store.GetDocument(ctx, s.collection, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(s.collection, id)
	}
	if err != nil {
		return nil, err
	}
	session, err := chat.Decode(doc.ID, doc.Data, doc.CreatedAt, doc.Revision)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *chatSessionService) SendMessage(ctx context.Context, id string, sender chat.Sender, text string) error {
	if id == "" {
		return apperr.Invalid("sessionId", "no chat session is bound")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return apperr.Invalid("text", "message is empty")
	}
	if utf8.RuneCountInString(text) > chat.MaxMessageLength {
		return apperr.Invalid("text", fmt.Sprintf("message is longer than %d characters", chat.MaxMessageLength))
	}
	if sender != chat.SenderCustomer && sender != chat.SenderOperator {
		return apperr.Invalid("sender", "must be customer or operator")
	}

	msg := chat.NewMessage(sender, text, s.now())
	err := s.store.AppendToField(ctx, s.collection, id, chat.FieldMessages, msg, activeOnly)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrPreconditionFailed):
		return apperr.ErrSessionEnded
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound(s.collection, id)
	default:
		metrics.ObserveWrite("append", err)
		return s.writeFailed("append", id, err)
	}

	metrics.ObserveWrite("append", nil)
	metrics.MessagesAppended.WithLabelValues(string(sender)).Inc()
	s.publisher.PublishChatMessageAppended(ctx, id, sender)
	return nil
}

func (s *chatSessionService) End(ctx context.Context, id, operatorEmail string) error {
	if id == "" {
		return apperr.Invalid("sessionId", "is required")
	}

	err := s.store.UpdateField(ctx, s.collection, id, chat.FieldStatus, chat.StatusEnded, activeOnly)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrPreconditionFailed):
		// already ended
		return nil
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound(s.collection, id)
	default:
		metrics.ObserveWrite("update", err)
		return s.writeFailed("update", id, err)
	}

	metrics.ObserveWrite("update", nil)
	metrics.SessionsEnded.Inc()
	s.logger.Info("CHAT", "Chat session ended", map[string]interface{}{"session_id": id, "operator": operatorEmail})
	s.publisher.PublishChatSessionEnded(ctx, id, operatorEmail)
	return nil
}

func (s *chatSessionService) all(ctx context.Context) ([]chat.Session, error) {
	docs, err := s.store.ListDocuments(ctx, s.collection)
	if err != nil {
		return nil, err
	}
	sessions := make([]chat.Session, 0, len(docs))
	for _, doc := range docs {
		session, err := chat.Decode(doc.ID, doc.Data, doc.CreatedAt, doc.Revision)
		if err != nil {
			s.logger.Warn("CHAT", "Skipping unreadable session", map[string]interface{}{"session_id": doc.ID, "error": err.Error()})
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (s *chatSessionService) List(ctx context.Context, view chat.View) ([]chat.Session, error) {
	sessions, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return chat.Filter(sessions, view), nil
}

func (s *chatSessionService) Counts(ctx context.Context) (int, int, error) {
	sessions, err := s.all(ctx)
	if err != nil {
		return 0, 0, err
	}
	active, archive := chat.Partition(sessions)
	return len(active), len(archive), nil
}
