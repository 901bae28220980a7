package dto

import (
	"time"

	"github.com/spec-kit/support-pilot/internal/domain"
)

// TokenRequest exchanges a per-role shared secret for a bearer token.
type TokenRequest struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
	Secret string      `json:"secret"`
}

// TokenResponse carries the issued token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
