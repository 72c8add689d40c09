package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/mailroom-service/internal/domain"
	"github.com/spec-kit/mailroom-service/internal/repository"
	apperrors "github.com/spec-kit/mailroom-service/pkg/util"
)

// RecipientService manages the recipient directory.
type RecipientService struct {
	recipients repository.RecipientRepository
}

// RecipientInput carries the full field set for create and update.
type RecipientInput struct {
	Name    string
	LNumber string
	Type    domain.RecipientType
	Mailbox string
	Email   string
}

// NewRecipientService constructs the service.
func NewRecipientService(recipients repository.RecipientRepository) *RecipientService {
	return &RecipientService{recipients: recipients}
}

func (input RecipientInput) validate() error {
	if strings.TrimSpace(input.Name) == "" ||
		strings.TrimSpace(input.LNumber) == "" ||
		strings.TrimSpace(input.Mailbox) == "" ||
		strings.TrimSpace(input.Email) == "" ||
		input.Type == "" {
		return apperrors.NewValidationError("name, lNumber, type, mailbox and email are required", nil)
	}
	return nil
}

// Create registers a new recipient; the L number must be unique.
func (s *RecipientService) Create(ctx context.Context, input RecipientInput) (*domain.Recipient, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	recipient := &domain.Recipient{
		Name:    strings.TrimSpace(input.Name),
		LNumber: strings.TrimSpace(input.LNumber),
		Type:    input.Type,
		Mailbox: strings.TrimSpace(input.Mailbox),
		Email:   strings.TrimSpace(input.Email),
	}
	if err := s.recipients.Create(ctx, recipient); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, apperrors.NewConflict("recipient with this L number already exists", map[string]any{"l_number": recipient.LNumber})
		}
		return nil, err
	}
	return recipient, nil
}

// ListAll returns recipients ordered by name.
func (s *RecipientService) ListAll(ctx context.Context) ([]domain.Recipient, error) {
	return s.recipients.ListAll(ctx)
}

// GetByID fetches one recipient.
func (s *RecipientService) GetByID(ctx context.Context, id string) (*domain.Recipient, error) {
	recipient, err := s.recipients.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("recipient", map[string]any{"recipient_id": id})
		}
		return nil, err
	}
	return recipient, nil
}

// GetByLNumber fetches one recipient by business key.
func (s *RecipientService) GetByLNumber(ctx context.Context, lNumber string) (*domain.Recipient, error) {
	recipient, err := s.recipients.GetByLNumber(ctx, lNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("recipient", map[string]any{"l_number": lNumber})
		}
		return nil, err
	}
	return recipient, nil
}

// Update replaces all recipient fields.
func (s *RecipientService) Update(ctx context.Context, id string, input RecipientInput) (*domain.Recipient, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	recipient, err := s.recipients.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("recipient", map[string]any{"recipient_id": id})
		}
		return nil, err
	}

	recipient.Name = strings.TrimSpace(input.Name)
	recipient.LNumber = strings.TrimSpace(input.LNumber)
	recipient.Type = input.Type
	recipient.Mailbox = strings.TrimSpace(input.Mailbox)
	recipient.Email = strings.TrimSpace(input.Email)

	if err := s.recipients.Update(ctx, recipient); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, apperrors.NewConflict("recipient with this L number already exists", map[string]any{"l_number": recipient.LNumber})
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("recipient", map[string]any{"recipient_id": id})
		}
		return nil, err
	}
	return recipient, nil
}

// Delete removes a recipient unless packages are still checked in for them.
func (s *RecipientService) Delete(ctx context.Context, id string) error {
	if err := s.recipients.DeleteGuarded(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("recipient", map[string]any{"recipient_id": id})
		}
		if errors.Is(err, repository.ErrHasPendingPackages) {
			return apperrors.NewConflict("recipient has packages awaiting pickup", map[string]any{"recipient_id": id})
		}
		return err
	}
	return nil
}
