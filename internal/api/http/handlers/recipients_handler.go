package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mailroom-service/internal/api/dto"
	"github.com/spec-kit/mailroom-service/internal/service"
	apperrors "github.com/spec-kit/mailroom-service/pkg/util"
)

// RecipientsHandler manages the recipient directory endpoints (worker only).
type RecipientsHandler struct {
	service *service.RecipientService
}

// NewRecipientsHandler constructs handler.
func NewRecipientsHandler(recipientService *service.RecipientService) *RecipientsHandler {
	return &RecipientsHandler{service: recipientService}
}

// List GET /api/recipients.
func (h *RecipientsHandler) List(c *fiber.Ctx) error {
	recipients, err := h.service.ListAll(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.RecipientResponse, 0, len(recipients))
	for i := range recipients {
		items = append(items, dto.NewRecipientResponse(&recipients[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create POST /api/recipients.
func (h *RecipientsHandler) Create(c *fiber.Ctx) error {
	var req dto.RecipientRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	recipient, err := h.service.Create(c.Context(), service.RecipientInput{
		Name:    req.Name,
		LNumber: req.LNumber,
		Type:    req.Type,
		Mailbox: req.Mailbox,
		Email:   req.Email,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewRecipientResponse(recipient)})
}

// Update PUT /api/recipients/:id.
func (h *RecipientsHandler) Update(c *fiber.Ctx) error {
	var req dto.RecipientRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	recipient, err := h.service.Update(c.Context(), c.Params("id"), service.RecipientInput{
		Name:    req.Name,
		LNumber: req.LNumber,
		Type:    req.Type,
		Mailbox: req.Mailbox,
		Email:   req.Email,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRecipientResponse(recipient)})
}

// Delete DELETE /api/recipients/:id.
func (h *RecipientsHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "recipient deleted successfully"})
}
