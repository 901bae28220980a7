package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/support-pilot/internal/observability"
)

// MetricsHandler exposes the operator metrics interface.
type MetricsHandler struct {
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewMetricsHandler constructs handler.
func NewMetricsHandler(metrics *observability.Metrics, logger *zap.Logger) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, logger: logger}
}

// GetMetrics GET /metrics.
func (h *MetricsHandler) GetMetrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"data":   h.metrics.Snapshot(),
		"report": h.metrics.Report(),
	})
}

// ResetMetrics POST /metrics/reset. Operator command only.
func (h *MetricsHandler) ResetMetrics(c *fiber.Ctx) error {
	h.logger.Info("metrics reset by operator")
	h.metrics.Reset()
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
