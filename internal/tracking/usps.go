package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/mailroom-service/internal/config"
)

// ErrNotFound indicates USPS does not know the tracking number.
var ErrNotFound = errors.New("tracking number not found")

// ErrNotConfigured indicates the client has no API credentials.
var ErrNotConfigured = errors.New("usps api not configured")

// tokenExpirySafetyMargin is subtracted from the reported token lifetime so a
// token is refreshed before USPS actually rejects it.
const tokenExpirySafetyMargin = 5 * time.Minute

// TrackingEvent is a single scan event reported by USPS.
type TrackingEvent struct {
	EventTimestamp string `json:"eventTimestamp"`
	EventType      string `json:"eventType,omitempty"`
	EventLocation  string `json:"eventLocation,omitempty"`
}

// TrackingInfo is the parsed tracking response for one package.
type TrackingInfo struct {
	TrackingNumber string          `json:"trackingNumber"`
	Carrier        string          `json:"carrier"`
	Status         string          `json:"status"`
	DeliveryDate   *string         `json:"deliveryDate"`
	Service        string          `json:"service"`
	Events         []TrackingEvent `json:"events"`
	LastUpdate     *string         `json:"lastUpdate"`
	LastLocation   *string         `json:"lastLocation"`
}

// Client is the narrow capability the package lifecycle depends on. A failed
// or unconfigured lookup must never block package check-in.
type Client interface {
	IsConfigured() bool
	Track(ctx context.Context, trackingNumber string) (*TrackingInfo, error)
}

// USPSClient talks to the USPS REST API using OAuth2 client credentials.
// The access token is cached until shortly before expiry; a duplicate refresh
// under concurrent access is harmless since token exchange is idempotent.
type USPSClient struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	httpClient     *http.Client
	logger         *zap.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewUSPSClient builds a client from configuration.
func NewUSPSClient(cfg config.USPSConfig, logger *zap.Logger) *USPSClient {
	return &USPSClient{
		baseURL:        cfg.BaseURL,
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		httpClient:     &http.Client{Timeout: cfg.RequestTimeout()},
		logger:         logger,
	}
}

// IsConfigured reports whether API credentials are present.
func (c *USPSClient) IsConfigured() bool {
	return c.consumerKey != "" && c.consumerSecret != ""
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (c *USPSClient) getAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	payload, err := json.Marshal(map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     c.consumerKey,
		"client_secret": c.consumerSecret,
		"scope":         "tracking",
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth2/v3/token", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("usps oauth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("usps oauth failed: %s", string(body))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("usps oauth decode: %w", err)
	}

	c.accessToken = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - tokenExpirySafetyMargin)
	return c.accessToken, nil
}

type uspsTrackingResponse struct {
	Status               string `json:"status"`
	ExpectedDeliveryDate string `json:"expectedDeliveryDate"`
	MailClass            string `json:"mailClass"`
	TrackingEvents       []struct {
		EventTimestamp string `json:"eventTimestamp"`
		EventType      string `json:"eventType"`
		EventLocation  string `json:"eventLocation"`
	} `json:"trackingEvents"`
}

// Track looks up the tracking number. The number is normalized before the
// call; ErrNotFound is returned when USPS has no record of it.
func (c *USPSClient) Track(ctx context.Context, trackingNumber string) (*TrackingInfo, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	cleaned := Classify(trackingNumber).Normalized
	if cleaned == "" {
		return nil, errors.New("invalid tracking number")
	}

	token, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tracking/v3/tracking/"+cleaned, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("usps tracking request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("usps tracking api error: %s", string(body))
	}

	var data uspsTrackingResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("usps tracking decode: %w", err)
	}

	info := &TrackingInfo{
		TrackingNumber: cleaned,
		Carrier:        "USPS",
		Status:         data.Status,
		Service:        data.MailClass,
	}
	if info.Status == "" {
		info.Status = "Unknown"
	}
	if info.Service == "" {
		info.Service = "Unknown"
	}
	if data.ExpectedDeliveryDate != "" {
		info.DeliveryDate = &data.ExpectedDeliveryDate
	}
	for _, ev := range data.TrackingEvents {
		info.Events = append(info.Events, TrackingEvent(ev))
	}
	if len(data.TrackingEvents) > 0 {
		first := data.TrackingEvents[0]
		if first.EventTimestamp != "" {
			info.LastUpdate = &first.EventTimestamp
		}
		if first.EventLocation != "" {
			info.LastLocation = &first.EventLocation
		}
	}
	return info, nil
}
