package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-pilot/internal/session"
	"github.com/spec-kit/support-pilot/pkg/util"
)

// SessionsHandler exposes operator session management.
type SessionsHandler struct {
	sessions *session.Store
}

// NewSessionsHandler constructs handler.
func NewSessionsHandler(sessions *session.Store) *SessionsHandler {
	return &SessionsHandler{sessions: sessions}
}

// ResetSession POST /sessions/:user_id/reset. Clears history and flags
// while preserving identity and role.
func (h *SessionsHandler) ResetSession(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Params("user_id"))
	if userID == "" {
		return util.NewValidationError("user_id required", nil)
	}
	if err := h.sessions.Reset(c.UserContext(), userID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"user_id": userID, "reset": true}})
}
