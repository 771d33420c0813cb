package events

import "time"

// Event is anything published on the domain event bus.
type Event interface {
	// EventType is the subject suffix, e.g. "CHAT_SESSION_ENDED".
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const (
	ChatSessionCreated   = "CHAT_SESSION_CREATED"
	ChatMessageAppended  = "CHAT_MESSAGE_APPENDED"
	ChatSessionEnded     = "CHAT_SESSION_ENDED"
	KnowledgeTreeUpdated = "KNOWLEDGE_TREE_UPDATED"
	BrandingUpdated      = "BRANDING_UPDATED"
)
