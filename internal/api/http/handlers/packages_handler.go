package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mailroom-service/internal/api/dto"
	"github.com/spec-kit/mailroom-service/internal/auth"
	"github.com/spec-kit/mailroom-service/internal/events"
	"github.com/spec-kit/mailroom-service/internal/repository"
	"github.com/spec-kit/mailroom-service/internal/service"
	apperrors "github.com/spec-kit/mailroom-service/pkg/util"
)

// PackagesHandler manages package lifecycle endpoints.
type PackagesHandler struct {
	service *service.PackageService
}

// NewPackagesHandler constructs handler.
func NewPackagesHandler(packageService *service.PackageService) *PackagesHandler {
	return &PackagesHandler{service: packageService}
}

// List GET /api/packages (worker).
func (h *PackagesHandler) List(c *fiber.Ctx) error {
	packages, err := h.service.ListAll(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.PackageResponse, 0, len(packages))
	for i := range packages {
		items = append(items, dto.NewPackageResponse(&packages[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListMine GET /api/packages/my-packages (any authenticated principal with an
// L number). Scoping to the caller's own L number happens here, not below.
func (h *PackagesHandler) ListMine(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if principal.LNumber == nil || *principal.LNumber == "" {
		return apperrors.NewValidationError("user L number not found", nil)
	}

	packages, err := h.service.ListByLNumber(c.Context(), *principal.LNumber)
	if err != nil {
		return err
	}
	items := make([]dto.PackageResponse, 0, len(packages))
	for i := range packages {
		items = append(items, dto.NewPackageResponse(&packages[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Stats GET /api/packages/stats (worker).
func (h *PackagesHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.PackageStatsResponse{
		TotalPackages:    stats.TotalPackages,
		CheckedIn:        stats.CheckedIn,
		PickedUp:         stats.PickedUp,
		UniqueCarriers:   stats.UniqueCarriers,
		UniqueRecipients: stats.UniqueRecipients,
	}})
}

// CheckIn POST /api/packages (worker).
func (h *PackagesHandler) CheckIn(c *fiber.Ctx) error {
	var req dto.CheckInRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TrackingCode == "" || req.RecipientID == "" {
		return apperrors.NewValidationError("trackingCode and recipientId are required", nil)
	}

	pkg, err := h.service.CheckIn(c.Context(), actorFromContext(c), service.CheckInInput{
		TrackingCode: req.TrackingCode,
		RecipientID:  req.RecipientID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewPackageResponse(pkg)})
}

// Update PUT /api/packages/:id (worker).
func (h *PackagesHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdatePackageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	pkg, err := h.service.Update(c.Context(), c.Params("id"), repository.PackageUpdate{
		TrackingCode:     req.TrackingCode,
		Carrier:          req.Carrier,
		Status:           req.Status,
		RecipientID:      req.RecipientID,
		RecipientName:    req.RecipientName,
		LNumber:          req.LNumber,
		Mailbox:          req.Mailbox,
		CarrierStatus:    req.CarrierStatus,
		ServiceType:      req.ServiceType,
		ExpectedDelivery: req.ExpectedDelivery,
		LastLocation:     req.LastLocation,
		CarrierData:      req.CarrierData,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPackageResponse(pkg)})
}

// CheckOut PATCH /api/packages/:id/checkout (worker).
func (h *PackagesHandler) CheckOut(c *fiber.Ctx) error {
	pkg, err := h.service.CheckOut(c.Context(), actorFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPackageResponse(pkg)})
}

// Delete DELETE /api/packages/:id (worker).
func (h *PackagesHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), actorFromContext(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "package deleted successfully"})
}

// Notify POST /api/packages/:id/notify (worker).
func (h *PackagesHandler) Notify(c *fiber.Ctx) error {
	if err := h.service.Notify(c.Context(), actorFromContext(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "notification sent successfully"})
}

func actorFromContext(c *fiber.Ctx) events.Actor {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return events.Actor{}
	}
	return events.Actor{
		UserID:   principal.User.ID,
		Username: principal.User.Username,
		Role:     principal.Role,
	}
}
