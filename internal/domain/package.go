package domain

import (
	"encoding/json"
	"time"
)

// Carrier identifies the shipping provider derived from the tracking code shape.
type Carrier string

const (
	CarrierUSPS  Carrier = "USPS"
	CarrierOther Carrier = "Other"
)

// PackageStatus enumerates lifecycle states for packages. The transition is
// one-directional: Checked In -> Picked Up. A picked up package is never reopened.
type PackageStatus string

const (
	PackageStatusCheckedIn PackageStatus = "Checked In"
	PackageStatusPickedUp  PackageStatus = "Picked Up"
)

// Package is the aggregate for a parcel handled by the mailroom.
//
// RecipientName, LNumber and Mailbox are a snapshot of the recipient taken at
// check-in time. They are intentionally not joined live, so later edits or
// deletion of the recipient do not alter historical package records.
type Package struct {
	ID            string
	TrackingCode  string
	Carrier       Carrier
	Status        PackageStatus
	RecipientID   string
	RecipientName string
	LNumber       string
	Mailbox       string

	// Best-effort enrichment from the carrier tracking API; absence is valid.
	CarrierStatus    *string
	ServiceType      *string
	ExpectedDelivery *string
	LastLocation     *string
	CarrierData      json.RawMessage

	CheckInDate  time.Time
	CheckoutDate *time.Time
	LastUpdated  time.Time
	CreatedAt    time.Time
}

// PackageStats aggregates counts for the worker dashboard.
type PackageStats struct {
	TotalPackages    int64
	CheckedIn        int64
	PickedUp         int64
	UniqueCarriers   int64
	UniqueRecipients int64
}
