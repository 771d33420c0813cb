package service

import (
	"context"
	"fmt"

	"helpdesk-be/internal/metrics"
	"helpdesk-be/internal/pkg/logger"
	"helpdesk-be/internal/pkg/mailer"
	"helpdesk-be/pkg/apperr"
	"helpdesk-be/pkg/events"
	pktNats "helpdesk-be/pkg/nats"
)

// EventSubscriber is satisfied by *nats.Subscriber.
type EventSubscriber interface {
	Subscribe(ctx context.Context, eventType, durableName string, handler pktNats.EventHandler) error
}

// ITranscriptService mails the customer a transcript once an operator ends
// the chat.
type ITranscriptService interface {
	Consume(ctx context.Context) error
	HandleSessionEnded(ctx context.Context, event events.Event) error
}

type transcriptService struct {
	subscriber EventSubscriber
	chats      IChatSessionService
	mailer     mailer.IEmailService
	logger     logger.ILogger
}

func NewTranscriptService(subscriber EventSubscriber, chats IChatSessionService, mail mailer.IEmailService, log logger.ILogger) ITranscriptService {
	return &transcriptService{
		subscriber: subscriber,
		chats:      chats,
		mailer:     mail,
		logger:     log,
	}
}

func (s *transcriptService) Consume(ctx context.Context) error {
	return s.subscriber.Subscribe(ctx, events.ChatSessionEnded, "transcript-mailer", s.HandleSessionEnded)
}

// HandleSessionEnded returns an error only for failures worth redelivering.
func (s *transcriptService) HandleSessionEnded(ctx context.Context, event events.Event) error {
	id, _ := event.Payload()["session_id"].(string)
	if id == "" {
		s.logger.Warn("TRANSCRIPT", "Event without session id", nil)
		return nil
	}

	session, err := s.chats.Get(ctx, id)
	if apperr.IsNotFound(err) {
		s.logger.Warn("TRANSCRIPT", "Ended session no longer exists", map[string]interface{}{"session_id": id})
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session %s: %w", id, err)
	}
	if session.CustomerEmail == "" {
		return nil
	}

	if err := s.mailer.SendTranscript(session); err != nil {
		metrics.TranscriptsSent.WithLabelValues("failed").Inc()
		s.logger.Error("TRANSCRIPT", "Failed to send transcript", map[string]interface{}{"session_id": id, "error": err})
		return err
	}
	metrics.TranscriptsSent.WithLabelValues("sent").Inc()
	s.logger.Info("TRANSCRIPT", "Transcript sent", map[string]interface{}{"session_id": id})
	return nil
}
