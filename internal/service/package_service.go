package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/mailroom-service/internal/domain"
	"github.com/spec-kit/mailroom-service/internal/events"
	"github.com/spec-kit/mailroom-service/internal/observability"
	"github.com/spec-kit/mailroom-service/internal/repository"
	"github.com/spec-kit/mailroom-service/internal/tracking"
	apperrors "github.com/spec-kit/mailroom-service/pkg/util"
)

// PackageService coordinates the package lifecycle from check-in to pickup.
type PackageService struct {
	packages   repository.PackageRepository
	recipients repository.RecipientRepository
	carrier    tracking.Client
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// PackageDependencies bundles collaborators for the package service.
type PackageDependencies struct {
	PackageRepo   repository.PackageRepository
	RecipientRepo repository.RecipientRepository
	CarrierClient tracking.Client
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

// CheckInInput describes a check-in request.
type CheckInInput struct {
	TrackingCode string
	RecipientID  string
}

// NewPackageService constructs the service.
func NewPackageService(deps PackageDependencies) *PackageService {
	return &PackageService{
		packages:   deps.PackageRepo,
		recipients: deps.RecipientRepo,
		carrier:    deps.CarrierClient,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// CheckIn registers an arrived package against a recipient. The recipient's
// display fields are copied onto the package so later recipient edits never
// rewrite history. Carrier enrichment is best-effort and never blocks intake.
func (s *PackageService) CheckIn(ctx context.Context, actor events.Actor, input CheckInInput) (*domain.Package, error) {
	trackingCode := strings.TrimSpace(input.TrackingCode)
	if trackingCode == "" || input.RecipientID == "" {
		return nil, apperrors.NewValidationError("tracking code and recipient ID are required", nil)
	}

	if _, err := s.packages.GetByTrackingCode(ctx, trackingCode); err == nil {
		return nil, apperrors.NewConflict("package with this tracking code already exists", map[string]any{"tracking_code": trackingCode})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	recipient, err := s.recipients.GetByID(ctx, input.RecipientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("recipient", map[string]any{"recipient_id": input.RecipientID})
		}
		return nil, err
	}

	classification := tracking.Classify(trackingCode)

	pkg := &domain.Package{
		TrackingCode:  trackingCode,
		Carrier:       classification.Carrier(),
		Status:        domain.PackageStatusCheckedIn,
		RecipientID:   recipient.ID,
		RecipientName: recipient.Name,
		LNumber:       recipient.LNumber,
		Mailbox:       recipient.Mailbox,
		CarrierData:   json.RawMessage(`{}`),
	}

	if info := s.enrich(ctx, classification); info != nil {
		pkg.CarrierStatus = &info.Status
		pkg.ServiceType = &info.Service
		pkg.ExpectedDelivery = info.DeliveryDate
		pkg.LastLocation = info.LastLocation
		if raw, err := json.Marshal(info); err == nil {
			pkg.CarrierData = raw
		}
	}

	if err := s.packages.Create(ctx, pkg); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// a concurrent check-in won the insert race
			return nil, apperrors.NewConflict("package with this tracking code already exists", map[string]any{"tracking_code": trackingCode})
		}
		return nil, err
	}

	s.metrics.RecordCheckIn()
	s.publish(ctx, events.Event{
		Type:         events.EventPackageCheckedIn,
		PackageID:    pkg.ID,
		TrackingCode: pkg.TrackingCode,
		Actor:        actor,
		Payload: events.PackageCheckedInPayload{
			RecipientID:    recipient.ID,
			RecipientName:  recipient.Name,
			RecipientEmail: recipient.Email,
			LNumber:        recipient.LNumber,
			Mailbox:        recipient.Mailbox,
			Carrier:        pkg.Carrier,
		},
	})
	return pkg, nil
}

// enrich asks the carrier for tracking data when the code is USPS and the
// client is configured. Failures are logged at warning level and swallowed.
func (s *PackageService) enrich(ctx context.Context, classification tracking.Classification) *tracking.TrackingInfo {
	if !classification.IsUSPS || s.carrier == nil || !s.carrier.IsConfigured() {
		return nil
	}
	info, err := s.carrier.Track(ctx, classification.Normalized)
	if err != nil {
		s.logger.Warn("carrier lookup failed, continuing with check-in",
			zap.String("tracking_code", classification.Normalized),
			zap.Error(err))
		return nil
	}
	return info
}

// CheckOut records pickup of a package. A second checkout is rejected, not
// silently accepted, so double scans surface to the worker.
func (s *PackageService) CheckOut(ctx context.Context, actor events.Actor, id string) (*domain.Package, error) {
	existing, err := s.packages.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("package", map[string]any{"package_id": id})
		}
		return nil, err
	}
	if existing.Status == domain.PackageStatusPickedUp {
		return nil, apperrors.NewConflict("package already picked up", map[string]any{"package_id": id})
	}

	pkg, err := s.packages.Checkout(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// lost a race with another checkout
			return nil, apperrors.NewConflict("package already picked up", map[string]any{"package_id": id})
		}
		return nil, err
	}

	s.metrics.RecordCheckOut()
	checkoutDate := time.Now()
	if pkg.CheckoutDate != nil {
		checkoutDate = *pkg.CheckoutDate
	}
	s.publish(ctx, events.Event{
		Type:         events.EventPackageCheckedOut,
		PackageID:    pkg.ID,
		TrackingCode: pkg.TrackingCode,
		Actor:        actor,
		Payload:      events.PackageCheckedOutPayload{LNumber: pkg.LNumber, CheckoutDate: checkoutDate},
	})
	return pkg, nil
}

// Update applies a whitelisted field patch and refreshes last_updated.
func (s *PackageService) Update(ctx context.Context, id string, update repository.PackageUpdate) (*domain.Package, error) {
	pkg, err := s.packages.Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("package", map[string]any{"package_id": id})
		}
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, apperrors.NewConflict("package with this tracking code already exists", nil)
		}
		return nil, err
	}
	return pkg, nil
}

// Delete removes a package regardless of status.
func (s *PackageService) Delete(ctx context.Context, actor events.Actor, id string) error {
	existing, err := s.packages.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("package", map[string]any{"package_id": id})
		}
		return err
	}

	deleted, err := s.packages.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.NewNotFound("package", map[string]any{"package_id": id})
	}

	s.publish(ctx, events.Event{
		Type:         events.EventPackageDeleted,
		PackageID:    existing.ID,
		TrackingCode: existing.TrackingCode,
		Actor:        actor,
		Payload:      events.PackageDeletedPayload{LNumber: existing.LNumber, Status: existing.Status},
	})
	return nil
}

// ListAll returns every package, newest check-in first.
func (s *PackageService) ListAll(ctx context.Context) ([]domain.Package, error) {
	return s.packages.ListAll(ctx)
}

// ListByLNumber returns the packages belonging to one L number.
func (s *PackageService) ListByLNumber(ctx context.Context, lNumber string) ([]domain.Package, error) {
	return s.packages.ListByLNumber(ctx, lNumber)
}

// Stats aggregates counts for the worker dashboard.
func (s *PackageService) Stats(ctx context.Context) (*domain.PackageStats, error) {
	return s.packages.Stats(ctx)
}

// Notify re-emits the arrival notification for an existing package.
func (s *PackageService) Notify(ctx context.Context, actor events.Actor, id string) error {
	pkg, err := s.packages.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("package", map[string]any{"package_id": id})
		}
		return err
	}

	recipient, err := s.recipients.GetByID(ctx, pkg.RecipientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("recipient", map[string]any{"recipient_id": pkg.RecipientID})
		}
		return err
	}

	s.publish(ctx, events.Event{
		Type:         events.EventPackageNotifyRequest,
		PackageID:    pkg.ID,
		TrackingCode: pkg.TrackingCode,
		Actor:        actor,
		Payload: events.PackageCheckedInPayload{
			RecipientID:    recipient.ID,
			RecipientName:  recipient.Name,
			RecipientEmail: recipient.Email,
			LNumber:        recipient.LNumber,
			Mailbox:        recipient.Mailbox,
			Carrier:        pkg.Carrier,
		},
	})
	return nil
}

func (s *PackageService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now()
	_ = s.dispatcher.Publish(ctx, event)
}
