package mapper

import (
	"helpdesk-be/internal/dto"
	"helpdesk-be/pkg/chat"
	"helpdesk-be/pkg/knowledge"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

func (m *ChatMapper) SessionToResponse(s *chat.Session) *dto.ChatSessionResponse {
	if s == nil {
		return nil
	}

	messages := make([]dto.ChatMessageResponse, len(s.Messages))
	for i, msg := range s.Messages {
		messages[i] = dto.ChatMessageResponse{
			Sender:    string(msg.Sender),
			Text:      msg.Text,
			Timestamp: msg.Timestamp,
		}
	}

	return &dto.ChatSessionResponse{
		Id:            s.ID,
		CustomerName:  s.CustomerName,
		CustomerEmail: s.CustomerEmail,
		Topic:         s.Topic,
		Language:      s.Language,
		Status:        string(s.Status),
		CreatedAt:     s.CreatedAt,
		Messages:      messages,
	}
}

func (m *ChatMapper) SessionsToResponse(sessions []chat.Session) []dto.ChatSessionResponse {
	out := make([]dto.ChatSessionResponse, len(sessions))
	for i := range sessions {
		out[i] = *m.SessionToResponse(&sessions[i])
	}
	return out
}

// CreateRequestToInput falls back to defaultLang when the request names no
// supported language.
func (m *ChatMapper) CreateRequestToInput(req *dto.CreateChatSessionRequest, defaultLang knowledge.Language) chat.NewSessionInput {
	lang, ok := knowledge.ParseLanguage(req.Language)
	if !ok {
		lang = defaultLang
	}
	return chat.NewSessionInput{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Topic:         req.Topic,
		Language:      string(lang),
		Path:          req.Path,
	}
}
