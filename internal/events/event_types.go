package events

import (
	"time"

	"github.com/spec-kit/mailroom-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventPackageCheckedIn     EventType = "package_checked_in"
	EventPackageCheckedOut    EventType = "package_checked_out"
	EventPackageDeleted       EventType = "package_deleted"
	EventPackageNotifyRequest EventType = "package_notify_requested"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID   string      `json:"user_id"`
	Username string      `json:"username,omitempty"`
	Role     domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	PackageID    string      `json:"package_id"`
	TrackingCode string      `json:"tracking_code"`
	Actor        Actor       `json:"actor"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// PackageCheckedInPayload carries everything the notifier needs so handlers
// never have to read the store again.
type PackageCheckedInPayload struct {
	RecipientID    string         `json:"recipient_id"`
	RecipientName  string         `json:"recipient_name"`
	RecipientEmail string         `json:"recipient_email"`
	LNumber        string         `json:"l_number"`
	Mailbox        string         `json:"mailbox"`
	Carrier        domain.Carrier `json:"carrier"`
}

// PackageCheckedOutPayload payload.
type PackageCheckedOutPayload struct {
	LNumber      string    `json:"l_number"`
	CheckoutDate time.Time `json:"checkout_date"`
}

// PackageDeletedPayload payload.
type PackageDeletedPayload struct {
	LNumber string               `json:"l_number"`
	Status  domain.PackageStatus `json:"status"`
}
