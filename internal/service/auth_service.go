package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"helpdesk-be/internal/config"
	"helpdesk-be/internal/dto"
	"helpdesk-be/internal/pkg/logger"
	"helpdesk-be/internal/pkg/serverutils"
	"helpdesk-be/pkg/apperr"
	"helpdesk-be/pkg/store"

	"golang.org/x/crypto/bcrypt"
)

type IAuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	CreateOperator(ctx context.Context, req *dto.CreateOperatorRequest) (*dto.OperatorResponse, error)
}

// OperatorStore is the part of the document store operator accounts need.
type OperatorStore interface {
	GetDocument(ctx context.Context, collection, id string) (*store.Document, error)
	CreateDocumentWithID(ctx context.Context, collection, id string, data json.RawMessage) error
}

type operatorDoc struct {
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

type authService struct {
	store      OperatorStore
	collection string
	auth       config.AuthConfig
	logger     logger.ILogger
	now        func() time.Time
}

func NewAuthService(st OperatorStore, collection string, auth config.AuthConfig, log logger.ILogger) IAuthService {
	return &authService{
		store:      st,
		collection: collection,
		auth:       auth,
		logger:     log,
		now:        time.Now,
	}
}

// operators are keyed by their normalized email
func operatorID(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	doc, err := s.store.GetDocument(ctx, s.collection, operatorID(req.Email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}

	var op operatorDoc
	if err := json.Unmarshal(doc.Data, &op); err != nil {
		return nil, fmt.Errorf("decode operator %s: %w", doc.ID, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("AUTH", "Failed operator login", map[string]interface{}{"email": doc.ID})
		return nil, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthorized)
	}

	expiresAt := s.now().Add(s.auth.TokenTTL)
	token, err := serverutils.SignOperatorToken(s.auth.JWTSecret, doc.ID, op.Name, expiresAt)
	if err != nil {
		return nil, err
	}

	s.logger.Info("AUTH", "Operator logged in", map[string]interface{}{"email": doc.ID})
	return &dto.LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Operator:    dto.OperatorResponse{Email: doc.ID, Name: op.Name},
	}, nil
}

func (s *authService) CreateOperator(ctx context.Context, req *dto.CreateOperatorRequest) (*dto.OperatorResponse, error) {
	id := operatorID(req.Email)
	if id == "" {
		return nil, apperr.Invalid("email", "is required")
	}
	if len(req.Password) < 8 {
		return nil, apperr.Invalid("password", "must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(operatorDoc{
		Name:         strings.TrimSpace(req.Name),
		Email:        id,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateDocumentWithID(ctx, s.collection, id, data); err != nil {
		return nil, apperr.WriteFailed("create operator", err)
	}
	return &dto.OperatorResponse{Email: id, Name: strings.TrimSpace(req.Name)}, nil
}
