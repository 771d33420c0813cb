package events

import (
	"context"
	"time"

	"helpdesk-be/internal/pkg/logger"
	"helpdesk-be/pkg/chat"
)

// Sink is the transport events are handed to. *nats.Publisher implements it.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Publisher emits the help desk domain events. Publishing is best effort: a
// failed publish is logged and never fails the write that caused it.
type Publisher struct {
	sink   Sink
	logger logger.ILogger
	now    func() time.Time
}

// NewPublisher returns a publisher over sink. A nil sink disables events.
func NewPublisher(sink Sink, log logger.ILogger) *Publisher {
	return &Publisher{sink: sink, logger: log, now: time.Now}
}

func (p *Publisher) emit(ctx context.Context, eventType string, data map[string]interface{}) {
	if p == nil || p.sink == nil {
		return
	}
	evt := BaseEvent{Type: eventType, Data: data, OccurredAt: p.now()}
	if err := p.sink.Publish(ctx, evt); err != nil {
		p.logger.Error("EVENTS", "Failed to publish "+eventType+" event", map[string]interface{}{"error": err.Error()})
	}
}

func (p *Publisher) PublishChatSessionCreated(ctx context.Context, sessionID, customerEmail, topic, language string) {
	p.emit(ctx, ChatSessionCreated, map[string]interface{}{
		"session_id":     sessionID,
		"customer_email": customerEmail,
		"topic":          topic,
		"language":       language,
	})
}

func (p *Publisher) PublishChatMessageAppended(ctx context.Context, sessionID string, sender chat.Sender) {
	p.emit(ctx, ChatMessageAppended, map[string]interface{}{
		"session_id": sessionID,
		"sender":     string(sender),
	})
}

func (p *Publisher) PublishChatSessionEnded(ctx context.Context, sessionID, operatorEmail string) {
	p.emit(ctx, ChatSessionEnded, map[string]interface{}{
		"session_id":     sessionID,
		"operator_email": operatorEmail,
	})
}

func (p *Publisher) PublishKnowledgeTreeUpdated(ctx context.Context, operatorEmail string, nodeCount int) {
	p.emit(ctx, KnowledgeTreeUpdated, map[string]interface{}{
		"operator_email": operatorEmail,
		"node_count":     nodeCount,
	})
}

func (p *Publisher) PublishBrandingUpdated(ctx context.Context, operatorEmail string) {
	p.emit(ctx, BrandingUpdated, map[string]interface{}{
		"operator_email": operatorEmail,
	})
}
