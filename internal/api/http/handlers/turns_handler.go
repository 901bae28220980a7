package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-pilot/internal/api/dto"
	"github.com/spec-kit/support-pilot/internal/auth"
	"github.com/spec-kit/support-pilot/internal/engine"
	"github.com/spec-kit/support-pilot/pkg/util"
)

// TurnsHandler exposes the conversational turn endpoint.
type TurnsHandler struct {
	orchestrator *engine.Orchestrator
}

// NewTurnsHandler constructs handler.
func NewTurnsHandler(orchestrator *engine.Orchestrator) *TurnsHandler {
	return &TurnsHandler{orchestrator: orchestrator}
}

// HandleTurn POST /turns.
func (h *TurnsHandler) HandleTurn(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	var req dto.TurnRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Utterance) == "" {
		return util.NewValidationError("utterance required", nil)
	}

	result, err := h.orchestrator.HandleTurn(c.UserContext(), principal.UserID, principal.Role, req.Utterance)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TurnResponse{
		ResponseText: result.ResponseText,
		TraceID:      result.TraceID,
	}})
}
