package dto

// ValidateTrackingRequest payload for POST /api/tracking/usps/validate.
type ValidateTrackingRequest struct {
	TrackingNumber string `json:"trackingNumber"`
}

// TrackingStatusResponse reports carrier API configuration.
type TrackingStatusResponse struct {
	Configured bool   `json:"configured"`
	Message    string `json:"message"`
}
