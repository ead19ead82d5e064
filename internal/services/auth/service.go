package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	MinSessionTTL = 24 * time.Hour
	MaxSessionTTL = 90 * 24 * time.Hour
)

type SessionStore interface {
	Create(ctx context.Context, session SessionRecord) error
	GetSession(ctx context.Context, sid string) (SessionRecord, error)
	DeleteSession(ctx context.Context, sid string) error
	DeleteAllForUser(ctx context.Context, userID int64) error
	HasActiveSession(ctx context.Context, userID int64) (bool, error)
}

type Service struct {
	jwt        *JWTManager
	sessions   SessionStore
	sessionTTL time.Duration
	now        func() time.Time
}

func NewService(jwtManager *JWTManager, sessions SessionStore, sessionTTL time.Duration) *Service {
	if sessionTTL < MinSessionTTL {
		sessionTTL = MinSessionTTL
	}
	if sessionTTL > MaxSessionTTL {
		sessionTTL = MaxSessionTTL
	}

	return &Service{
		jwt:        jwtManager,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// IssueSession creates a session and signs an access token for a user whose
// identity was already verified upstream.
func (s *Service) IssueSession(ctx context.Context, userID int64) (AuthResult, error) {
	if userID <= 0 {
		return AuthResult{}, ErrInvalidInput
	}

	sessionID, err := NewSessionID()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate session id: %w", err)
	}

	session := SessionRecord{
		SID:       sessionID,
		UserID:    userID,
		ExpiresAt: s.now().Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return AuthResult{}, fmt.Errorf("create session: %w", err)
	}

	accessToken, expiresAt, err := s.jwt.GenerateAccessToken(userID, sessionID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return AuthResult{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		UserID:      userID,
	}, nil
}

func (s *Service) ValidateAccessToken(ctx context.Context, accessToken string) (AccessClaims, error) {
	claims, err := s.jwt.ParseAccessToken(accessToken)
	if err != nil {
		return AccessClaims{}, ErrUnauthorized
	}

	session, err := s.sessions.GetSession(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return AccessClaims{}, ErrUnauthorized
		}
		return AccessClaims{}, fmt.Errorf("get session: %w", err)
	}

	if session.UserID != claims.UserID {
		return AccessClaims{}, ErrUnauthorized
	}
	if s.now().After(session.ExpiresAt) {
		return AccessClaims{}, ErrUnauthorized
	}

	return claims, nil
}

func (s *Service) Logout(ctx context.Context, sid string) error {
	if strings.TrimSpace(sid) == "" {
		return ErrInvalidInput
	}
	if err := s.sessions.DeleteSession(ctx, sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Service) LogoutAll(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrInvalidInput
	}
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("delete all sessions: %w", err)
	}
	return nil
}

// IsOnline reports whether the user holds at least one live session. Used to
// decide whether a match event needs a push notification.
func (s *Service) IsOnline(ctx context.Context, userID int64) (bool, error) {
	if userID <= 0 {
		return false, ErrInvalidInput
	}
	return s.sessions.HasActiveSession(ctx, userID)
}
