package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/mailroom-service/internal/domain"
)

// CheckInRequest payload for POST /api/packages.
type CheckInRequest struct {
	TrackingCode string `json:"trackingCode"`
	RecipientID  string `json:"recipientId"`
}

// UpdatePackageRequest carries the whitelisted patch fields for PUT
// /api/packages/:id. Absent fields are left untouched.
type UpdatePackageRequest struct {
	TrackingCode     *string               `json:"trackingCode"`
	Carrier          *domain.Carrier       `json:"carrier"`
	Status           *domain.PackageStatus `json:"status"`
	RecipientID      *string               `json:"recipientId"`
	RecipientName    *string               `json:"recipientName"`
	LNumber          *string               `json:"lNumber"`
	Mailbox          *string               `json:"mailbox"`
	CarrierStatus    *string               `json:"carrierStatus"`
	ServiceType      *string               `json:"serviceType"`
	ExpectedDelivery *string               `json:"expectedDelivery"`
	LastLocation     *string               `json:"lastLocation"`
	CarrierData      json.RawMessage       `json:"carrierData"`
}

// PackageResponse is the package representation returned by the API.
type PackageResponse struct {
	ID               string               `json:"id"`
	TrackingCode     string               `json:"trackingCode"`
	Carrier          domain.Carrier       `json:"carrier"`
	Status           domain.PackageStatus `json:"status"`
	RecipientID      string               `json:"recipientId"`
	RecipientName    string               `json:"recipientName"`
	LNumber          string               `json:"lNumber"`
	Mailbox          string               `json:"mailbox"`
	CarrierStatus    *string              `json:"carrierStatus"`
	ServiceType      *string              `json:"serviceType"`
	ExpectedDelivery *string              `json:"expectedDelivery"`
	LastLocation     *string              `json:"lastLocation"`
	CarrierData      json.RawMessage      `json:"carrierData,omitempty"`
	CheckInDate      time.Time            `json:"checkInDate"`
	CheckoutDate     *time.Time           `json:"checkoutDate"`
	LastUpdated      time.Time            `json:"lastUpdated"`
}

// PackageStatsResponse aggregates dashboard counts.
type PackageStatsResponse struct {
	TotalPackages    int64 `json:"total_packages"`
	CheckedIn        int64 `json:"checked_in"`
	PickedUp         int64 `json:"picked_up"`
	UniqueCarriers   int64 `json:"unique_carriers"`
	UniqueRecipients int64 `json:"unique_recipients"`
}

// NewPackageResponse maps the domain model.
func NewPackageResponse(pkg *domain.Package) PackageResponse {
	return PackageResponse{
		ID:               pkg.ID,
		TrackingCode:     pkg.TrackingCode,
		Carrier:          pkg.Carrier,
		Status:           pkg.Status,
		RecipientID:      pkg.RecipientID,
		RecipientName:    pkg.RecipientName,
		LNumber:          pkg.LNumber,
		Mailbox:          pkg.Mailbox,
		CarrierStatus:    pkg.CarrierStatus,
		ServiceType:      pkg.ServiceType,
		ExpectedDelivery: pkg.ExpectedDelivery,
		LastLocation:     pkg.LastLocation,
		CarrierData:      pkg.CarrierData,
		CheckInDate:      pkg.CheckInDate,
		CheckoutDate:     pkg.CheckoutDate,
		LastUpdated:      pkg.LastUpdated,
	}
}
