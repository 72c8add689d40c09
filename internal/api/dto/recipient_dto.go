package dto

import (
	"time"

	"github.com/spec-kit/mailroom-service/internal/domain"
)

// RecipientRequest payload for create and full-field update.
type RecipientRequest struct {
	Name    string               `json:"name"`
	LNumber string               `json:"lNumber"`
	Type    domain.RecipientType `json:"type"`
	Mailbox string               `json:"mailbox"`
	Email   string               `json:"email"`
}

// RecipientResponse representation.
type RecipientResponse struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	LNumber   string               `json:"lNumber"`
	Type      domain.RecipientType `json:"type"`
	Mailbox   string               `json:"mailbox"`
	Email     string               `json:"email"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// NewRecipientResponse maps the domain model.
func NewRecipientResponse(recipient *domain.Recipient) RecipientResponse {
	return RecipientResponse{
		ID:        recipient.ID,
		Name:      recipient.Name,
		LNumber:   recipient.LNumber,
		Type:      recipient.Type,
		Mailbox:   recipient.Mailbox,
		Email:     recipient.Email,
		CreatedAt: recipient.CreatedAt,
		UpdatedAt: recipient.UpdatedAt,
	}
}
