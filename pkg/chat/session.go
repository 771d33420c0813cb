// Package chat holds the chat-session lifecycle rules shared by the customer
// widget and the operator console: the session shape, the one-way status
// transition, send preconditions and the active/archive partition.
package chat

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"helpdesk-be/internal/pkg/serverutils"
	"helpdesk-be/pkg/apperr"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

type Sender string

const (
	SenderCustomer Sender = "customer"
	SenderOperator Sender = "operator"
	SenderSystem   Sender = "system"

	// legacy operator sender written by the first dashboard
	senderAdmin Sender = "admin"
)

// MaxMessageLength caps a single chat message, in characters.
const MaxMessageLength = 2000

// Document field names used by store operations.
const (
	FieldMessages = "messages"
	FieldStatus   = "status"
)

type Message struct {
	Sender    Sender `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

func NewMessage(sender Sender, text string, at time.Time) Message {
	return Message{Sender: sender, Text: text, Timestamp: at.UnixMilli()}
}

type Session struct {
	ID            string    `json:"id"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	Topic         string    `json:"topic"`
	Language      string    `json:"language"`
	CreatedAt     time.Time `json:"createdAt"`
	Messages      []Message `json:"messages"`
	Status        Status    `json:"status"`
	Revision      int64     `json:"revision"`
}

func (s Session) IsEnded() bool { return s.Status == StatusEnded }

// Accepts reports whether a message may be appended.
func (s Session) Accepts() error {
	if s.IsEnded() {
		return apperr.ErrSessionEnded
	}
	return nil
}

// NewSessionInput is what the customer surface hands over at escalation time.
type NewSessionInput struct {
	CustomerName  string
	CustomerEmail string
	Topic         string
	Language      string
	// Path is the localized label of every history entry after the root
	// sentinel, in selection order.
	Path []string
}

func (in NewSessionInput) Validate() error {
	if strings.TrimSpace(in.CustomerName) == "" {
		return apperr.Invalid("customerName", "name is required")
	}
	email := strings.TrimSpace(in.CustomerEmail)
	if email == "" {
		return apperr.Invalid("customerEmail", "email is required")
	}
	// bare addresses only; display-name forms are rejected
	return serverutils.ValidateVar("customerEmail", email, "email")
}

// PathMessages records the self-service path as system messages so the
// operator sees how the customer got here.
func PathMessages(path []string, at time.Time) []Message {
	out := make([]Message, 0, len(path))
	for _, label := range path {
		out = append(out, NewMessage(SenderSystem, fmt.Sprintf("Selected: %s", label), at))
	}
	return out
}

// sessionDoc is the stored document body; id, createdAt and revision come
// from the store envelope.
type sessionDoc struct {
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	Topic         string    `json:"topic"`
	Language      string    `json:"language"`
	Messages      []Message `json:"messages"`
	Status        Status    `json:"status"`
}

// EncodeNew builds the initial document for a new session.
func EncodeNew(in NewSessionInput, at time.Time) ([]byte, error) {
	return json.Marshal(sessionDoc{
		CustomerName:  strings.TrimSpace(in.CustomerName),
		CustomerEmail: strings.TrimSpace(in.CustomerEmail),
		Topic:         in.Topic,
		Language:      in.Language,
		Messages:      PathMessages(in.Path, at),
		Status:        StatusActive,
	})
}

// Decode builds a Session from a stored document body.
func Decode(id string, data []byte, createdAt time.Time, revision int64) (Session, error) {
	var doc sessionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Session{}, fmt.Errorf("decode chat session %s: %w", id, err)
	}
	if doc.Status == "" {
		doc.Status = StatusActive
	}
	if doc.Messages == nil {
		doc.Messages = []Message{}
	}
	for i := range doc.Messages {
		if doc.Messages[i].Sender == senderAdmin {
			doc.Messages[i].Sender = SenderOperator
		}
	}
	return Session{
		ID:            id,
		CustomerName:  doc.CustomerName,
		CustomerEmail: doc.CustomerEmail,
		Topic:         doc.Topic,
		Language:      doc.Language,
		CreatedAt:     createdAt,
		Messages:      doc.Messages,
		Status:        doc.Status,
		Revision:      revision,
	}, nil
}

// View selects one side of the operator list.
type View string

const (
	ViewActive  View = "active"
	ViewArchive View = "archive"
)

func ParseView(s string) (View, bool) {
	switch View(s) {
	case ViewActive, "":
		return ViewActive, true
	case ViewArchive:
		return ViewArchive, true
	}
	return "", false
}

// Partition splits a collection snapshot into active (anything not ended) and
// archived sessions, newest first. The input is not modified.
func Partition(sessions []Session) (active, archive []Session) {
	sorted := append([]Session(nil), sessions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	active = make([]Session, 0, len(sorted))
	archive = make([]Session, 0)
	for _, s := range sorted {
		if s.IsEnded() {
			archive = append(archive, s)
		} else {
			active = append(active, s)
		}
	}
	return active, archive
}

// Filter returns the side of the partition matching v.
func Filter(sessions []Session, v View) []Session {
	active, archive := Partition(sessions)
	if v == ViewArchive {
		return archive
	}
	return active
}
