package auth

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrSessionNotFound = errors.New("session not found")
)

type SessionRecord struct {
	SID       string
	UserID    int64
	ExpiresAt time.Time
}

type AccessClaims struct {
	UserID    int64
	SID       string
	ExpiresAt time.Time
}

type AuthResult struct {
	AccessToken string
	ExpiresAt   time.Time
	UserID      int64
}
