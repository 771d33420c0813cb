package dto

import "time"

type CreateChatSessionRequest struct {
	CustomerName  string   `json:"customer_name" validate:"required"`
	CustomerEmail string   `json:"customer_email" validate:"required,email"`
	Topic         string   `json:"topic"`
	Language      string   `json:"language" validate:"omitempty,oneof=np en"`
	Path          []string `json:"path"`
}

type CreateChatSessionResponse struct {
	Id string `json:"id"`
}

type SendChatMessageRequest struct {
	Text string `json:"text" validate:"required"`
}

type ChatMessageResponse struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type ChatSessionResponse struct {
	Id            string                `json:"id"`
	CustomerName  string                `json:"customer_name"`
	CustomerEmail string                `json:"customer_email"`
	Topic         string                `json:"topic"`
	Language      string                `json:"language"`
	Status        string                `json:"status"`
	CreatedAt     time.Time             `json:"created_at"`
	Messages      []ChatMessageResponse `json:"messages"`
}

// ChatSessionListResponse is one side of the operator list plus the size of
// both sides for the view switcher.
type ChatSessionListResponse struct {
	View         string                `json:"view"`
	Sessions     []ChatSessionResponse `json:"sessions"`
	ActiveCount  int                   `json:"active_count"`
	ArchiveCount int                   `json:"archive_count"`
}
