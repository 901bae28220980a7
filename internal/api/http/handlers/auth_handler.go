package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-pilot/internal/api/dto"
	"github.com/spec-kit/support-pilot/internal/auth"
	"github.com/spec-kit/support-pilot/internal/config"
	"github.com/spec-kit/support-pilot/internal/domain"
	"github.com/spec-kit/support-pilot/pkg/util"
)

// AuthHandler issues bearer tokens. A per-role shared secret gates
// issuance; from then on identity and role travel only in the token.
type AuthHandler struct {
	tokens *auth.TokenManager
	cfg    config.AuthConfig
}

// NewAuthHandler constructs handler.
func NewAuthHandler(tokens *auth.TokenManager, cfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{tokens: tokens, cfg: cfg}
}

// IssueToken POST /auth/token.
func (h *AuthHandler) IssueToken(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.UserID == "" || !domain.ValidRole(req.Role) {
		return util.NewValidationError("user_id and a valid role are required", nil)
	}

	hash := h.cfg.EndUserSecretHash
	if req.Role == domain.RoleServiceDeskAgent {
		hash = h.cfg.AgentSecretHash
	}
	if hash == "" {
		return util.NewUnauthorized("token issuance not configured for role")
	}
	if err := auth.CompareSecret(hash, req.Secret); err != nil {
		return util.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := h.tokens.GenerateToken(req.UserID, req.Role)
	if err != nil {
		return util.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": dto.TokenResponse{Token: token, ExpiresAt: expiresAt}})
}
