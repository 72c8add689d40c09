package service

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/mailroom-service/internal/config"
	"github.com/spec-kit/mailroom-service/internal/events"
)

// NotificationService emails recipients when a package arrives. Delivery is
// fire-and-forget: failures are logged and never fail the triggering
// operation.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventPackageCheckedIn, n.handlePackageArrival)
	n.dispatcher.Subscribe(events.EventPackageNotifyRequest, n.handlePackageArrival)
	n.dispatcher.Subscribe(events.EventPackageCheckedOut, n.handlePackageCheckedOut)
}

func (n *NotificationService) handlePackageArrival(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PackageCheckedInPayload)
	if !ok {
		n.logger.Warn("unexpected payload for arrival notification", zap.String("event_id", event.ID))
		return nil
	}
	n.sendArrivalEmail(payload, event.TrackingCode)
	return nil
}

func (n *NotificationService) handlePackageCheckedOut(ctx context.Context, event events.Event) error {
	n.logger.Info("package picked up",
		zap.String("package_id", event.PackageID),
		zap.String("tracking_code", event.TrackingCode))
	return nil
}

func (n *NotificationService) sendArrivalEmail(payload events.PackageCheckedInPayload, trackingCode string) {
	if strings.TrimSpace(n.cfg.SMTPUser) == "" {
		n.logger.Info("smtp not configured; skipping arrival email",
			zap.String("recipient_email", payload.RecipientEmail),
			zap.String("tracking_code", trackingCode),
			zap.String("mailbox", payload.Mailbox))
		return
	}

	subject := "Package Arrival Notification - Campus Mailroom"
	body := fmt.Sprintf(
		"Dear %s,\r\n\r\n"+
			"You have a package waiting for pickup at the campus mailroom.\r\n\r\n"+
			"Tracking Code: %s\r\nMailbox: #%s\r\n\r\n"+
			"Please bring your student ID to pick up your package during mailroom hours.\r\n\r\n"+
			"This is an automated notification from the campus package tracking system.\r\n",
		payload.RecipientName, trackingCode, payload.Mailbox)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		n.cfg.EmailFrom, payload.RecipientEmail, subject, body)

	addr := n.cfg.SMTPHost + ":" + n.cfg.SMTPPort
	authn := smtp.PlainAuth("", n.cfg.SMTPUser, n.cfg.SMTPPass, n.cfg.SMTPHost)
	if err := smtp.SendMail(addr, authn, n.cfg.EmailFrom, []string{payload.RecipientEmail}, []byte(msg)); err != nil {
		n.logger.Warn("failed to send arrival email",
			zap.String("recipient_email", payload.RecipientEmail),
			zap.Error(err))
		return
	}
	n.logger.Info("arrival email sent", zap.String("recipient_email", payload.RecipientEmail))
}
