package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mailroom-service/internal/api/dto"
	"github.com/spec-kit/mailroom-service/internal/service"
	apperrors "github.com/spec-kit/mailroom-service/pkg/util"
)

// TrackingHandler exposes USPS tracking endpoints.
type TrackingHandler struct {
	service *service.TrackingService
}

// NewTrackingHandler constructs handler.
func NewTrackingHandler(trackingService *service.TrackingService) *TrackingHandler {
	return &TrackingHandler{service: trackingService}
}

// Validate POST /api/tracking/usps/validate (worker).
func (h *TrackingHandler) Validate(c *fiber.Ctx) error {
	var req dto.ValidateTrackingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	info, err := h.service.Validate(c.Context(), req.TrackingNumber)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": info})
}

// CheckFormat GET /api/tracking/usps/check-format/:trackingNumber (public).
func (h *TrackingHandler) CheckFormat(c *fiber.Ctx) error {
	return c.JSON(h.service.CheckFormat(c.Params("trackingNumber")))
}

// Status GET /api/tracking/usps/status (worker).
func (h *TrackingHandler) Status(c *fiber.Ctx) error {
	configured := h.service.IsConfigured()
	message := "USPS API credentials not configured"
	if configured {
		message = "USPS API is configured and ready"
	}
	return c.JSON(dto.TrackingStatusResponse{Configured: configured, Message: message})
}
