package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/mailroom-service/internal/domain"
	"github.com/spec-kit/mailroom-service/internal/events"
	"github.com/spec-kit/mailroom-service/internal/tracking"
)

type packageServiceFixture struct {
	service    *PackageService
	packages   *fakePackageRepo
	recipients *fakeRecipientRepo
	carrier    *fakeCarrier
	dispatcher *recordingDispatcher
	recipient  *domain.Recipient
}

func newPackageServiceFixture(t *testing.T, carrier *fakeCarrier) *packageServiceFixture {
	t.Helper()

	packages := newFakePackageRepo()
	recipients := newFakeRecipientRepo(packages)
	dispatcher := &recordingDispatcher{}

	recipient := &domain.Recipient{
		Name:    "Jordan Park",
		LNumber: "L0012345",
		Type:    domain.RecipientTypeStudent,
		Mailbox: "MB-101",
		Email:   "jordan.park@example.edu",
	}
	require.NoError(t, recipients.Create(context.Background(), recipient))

	return &packageServiceFixture{
		service: NewPackageService(PackageDependencies{
			PackageRepo:   packages,
			RecipientRepo: recipients,
			CarrierClient: carrier,
			Dispatcher:    dispatcher,
			Logger:        zap.NewNop(),
		}),
		packages:   packages,
		recipients: recipients,
		carrier:    carrier,
		dispatcher: dispatcher,
		recipient:  recipient,
	}
}

var testActor = events.Actor{UserID: "user-1", Username: "desk", Role: domain.RoleWorker}

func TestPackageService_CheckIn(t *testing.T) {
	t.Run("usps code is enriched and snapshots the recipient", func(t *testing.T) {
		delivery := "2026-09-02"
		location := "PORTLAND, OR"
		carrier := &fakeCarrier{configured: true, info: &tracking.TrackingInfo{
			TrackingNumber: "9400111899223197428490",
			Carrier:        "USPS",
			Status:         "In Transit",
			Service:        "USPS Ground Advantage",
			DeliveryDate:   &delivery,
			LastLocation:   &location,
		}}
		fx := newPackageServiceFixture(t, carrier)

		pkg, err := fx.service.CheckIn(context.Background(), testActor, CheckInInput{
			TrackingCode: "9400111899223197428490",
			RecipientID:  fx.recipient.ID,
		})
		require.NoError(t, err)

		assert.Equal(t, domain.CarrierUSPS, pkg.Carrier)
		assert.Equal(t, domain.PackageStatusCheckedIn, pkg.Status)
		assert.Equal(t, "Jordan Park", pkg.RecipientName)
		assert.Equal(t, "L0012345", pkg.LNumber)
		assert.Equal(t, "MB-101", pkg.Mailbox)
		require.NotNil(t, pkg.CarrierStatus)
		assert.Equal(t, "In Transit", *pkg.CarrierStatus)
		require.NotNil(t, pkg.ExpectedDelivery)
		assert.Equal(t, "2026-09-02", *pkg.ExpectedDelivery)

		var stored tracking.TrackingInfo
		require.NoError(t, json.Unmarshal(pkg.CarrierData, &stored))
		assert.Equal(t, "In Transit", stored.Status)

		published := fx.dispatcher.eventsOfType(events.EventPackageCheckedIn)
		require.Len(t, published, 1)
		payload, ok := published[0].Payload.(events.PackageCheckedInPayload)
		require.True(t, ok)
		assert.Equal(t, "jordan.park@example.edu", payload.RecipientEmail)
	})

	t.Run("non usps code skips the carrier entirely", func(t *testing.T) {
		carrier := &fakeCarrier{configured: true}
		fx := newPackageServiceFixture(t, carrier)

		pkg, err := fx.service.CheckIn(context.Background(), testActor, CheckInInput{
			TrackingCode: "ABC123",
			RecipientID:  fx.recipient.ID,
		})
		require.NoError(t, err)

		assert.Equal(t, domain.CarrierOther, pkg.Carrier)
		assert.Nil(t, pkg.CarrierStatus)
		assert.Nil(t, pkg.ExpectedDelivery)
		assert.JSONEq(t, `{}`, string(pkg.CarrierData))
		assert.Zero(t, carrier.trackCalls())
	})

	t.Run("carrier failure never blocks intake", func(t *testing.T) {
		carrier := &fakeCarrier{configured: true, err: errors.New("usps is down")}
		fx := newPackageServiceFixture(t, carrier)

		pkg, err := fx.service.CheckIn(context.Background(), testActor, CheckInInput{
			TrackingCode: "9400111899223197428490",
			RecipientID:  fx.recipient.ID,
		})
		require.NoError(t, err)

		assert.Equal(t, domain.CarrierUSPS, pkg.Carrier)
		assert.Nil(t, pkg.CarrierStatus)
		assert.Nil(t, pkg.LastLocation)
		assert.Equal(t, 1, carrier.trackCalls())
	})

	t.Run("unconfigured carrier is never called", func(t *testing.T) {
		carrier := &fakeCarrier{configured: false}
		fx := newPackageServiceFixture(t, carrier)

		pkg, err := fx.service.CheckIn(context.Background(), testActor, CheckInInput{
			TrackingCode: "9400111899223197428490",
			RecipientID:  fx.recipient.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.CarrierUSPS, pkg.Carrier)
		assert.Zero(t, carrier.trackCalls())
	})

	t.Run("duplicate tracking code conflicts", func(t *testing.T) {
		fx := newPackageServiceFixture(t, &fakeCarrier{})

		_, err := fx.service.CheckIn(context.Background(), testActor, CheckInInput{
			TrackingCode: "12345678901234567890",
			RecipientID:  fx.recipient.ID,
		})
		require.NoError(t, err)

		_, err = fx.service.CheckIn(context.Background(), testActor, CheckInInput{
			TrackingCode: "12345678901234567890",
			RecipientID:  fx.recipient.ID,
		})
		requireDomainError(t, err, "CONFLICT", http.StatusConflict)
	})

	t.Run("unknown recipient is rejected", func(t *testing.T) {
		fx := newPackageServiceFixture(t, &fakeCarrier{})

		_, err := fx.service.CheckIn(context.Background(), testActor, CheckInInput{
			TrackingCode: "12345678901234567890",
			RecipientID:  "missing",
		})
		requireDomainError(t, err, "NOT_FOUND", http.StatusNotFound)
	})

	t.Run("missing fields fail validation", func(t *testing.T) {
		fx := newPackageServiceFixture(t, &fakeCarrier{})

		_, err := fx.service.CheckIn(context.Background(), testActor, CheckInInput{TrackingCode: "  "})
		requireDomainError(t, err, "VALIDATION_FAILED", http.StatusBadRequest)
	})
}

func TestPackageService_CheckOut(t *testing.T) {
	fx := newPackageServiceFixture(t, &fakeCarrier{})

	pkg, err := fx.service.CheckIn(context.Background(), testActor, CheckInInput{
		TrackingCode: "12345678901234567890",
		RecipientID:  fx.recipient.ID,
	})
	require.NoError(t, err)

	t.Run("first pickup succeeds", func(t *testing.T) {
		picked, err := fx.service.CheckOut(context.Background(), testActor, pkg.ID)
		require.NoError(t, err)

		assert.Equal(t, domain.PackageStatusPickedUp, picked.Status)
		require.NotNil(t, picked.CheckoutDate)
		require.Len(t, fx.dispatcher.eventsOfType(events.EventPackageCheckedOut), 1)
	})

	t.Run("second pickup conflicts", func(t *testing.T) {
		_, err := fx.service.CheckOut(context.Background(), testActor, pkg.ID)
		requireDomainError(t, err, "CONFLICT", http.StatusConflict)
	})

	t.Run("unknown package is not found", func(t *testing.T) {
		_, err := fx.service.CheckOut(context.Background(), testActor, "missing")
		requireDomainError(t, err, "NOT_FOUND", http.StatusNotFound)
	})
}

func TestPackageService_Delete(t *testing.T) {
	fx := newPackageServiceFixture(t, &fakeCarrier{})

	pkg, err := fx.service.CheckIn(context.Background(), testActor, CheckInInput{
		TrackingCode: "12345678901234567890",
		RecipientID:  fx.recipient.ID,
	})
	require.NoError(t, err)

	t.Run("removes the package and emits an event", func(t *testing.T) {
		require.NoError(t, fx.service.Delete(context.Background(), testActor, pkg.ID))

		_, err := fx.packages.GetByID(context.Background(), pkg.ID)
		assert.Error(t, err)
		require.Len(t, fx.dispatcher.eventsOfType(events.EventPackageDeleted), 1)
	})

	t.Run("unknown package is not found", func(t *testing.T) {
		err := fx.service.Delete(context.Background(), testActor, pkg.ID)
		requireDomainError(t, err, "NOT_FOUND", http.StatusNotFound)
	})
}

func TestPackageService_ListByLNumber(t *testing.T) {
	fx := newPackageServiceFixture(t, &fakeCarrier{})

	other := &domain.Recipient{
		Name:    "Casey Bloom",
		LNumber: "L0099999",
		Type:    domain.RecipientTypeFaculty,
		Mailbox: "MB-202",
		Email:   "casey.bloom@example.edu",
	}
	require.NoError(t, fx.recipients.Create(context.Background(), other))

	_, err := fx.service.CheckIn(context.Background(), testActor, CheckInInput{
		TrackingCode: "12345678901234567890",
		RecipientID:  fx.recipient.ID,
	})
	require.NoError(t, err)
	_, err = fx.service.CheckIn(context.Background(), testActor, CheckInInput{
		TrackingCode: "ABC123",
		RecipientID:  other.ID,
	})
	require.NoError(t, err)

	mine, err := fx.service.ListByLNumber(context.Background(), "L0012345")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "12345678901234567890", mine[0].TrackingCode)
}

func TestPackageService_Notify(t *testing.T) {
	fx := newPackageServiceFixture(t, &fakeCarrier{})

	pkg, err := fx.service.CheckIn(context.Background(), testActor, CheckInInput{
		TrackingCode: "12345678901234567890",
		RecipientID:  fx.recipient.ID,
	})
	require.NoError(t, err)

	t.Run("re-emits the arrival notification", func(t *testing.T) {
		require.NoError(t, fx.service.Notify(context.Background(), testActor, pkg.ID))

		published := fx.dispatcher.eventsOfType(events.EventPackageNotifyRequest)
		require.Len(t, published, 1)
		payload, ok := published[0].Payload.(events.PackageCheckedInPayload)
		require.True(t, ok)
		assert.Equal(t, "jordan.park@example.edu", payload.RecipientEmail)
	})

	t.Run("unknown package is not found", func(t *testing.T) {
		err := fx.service.Notify(context.Background(), testActor, "missing")
		requireDomainError(t, err, "NOT_FOUND", http.StatusNotFound)
	})
}

func TestPackageService_Stats(t *testing.T) {
	fx := newPackageServiceFixture(t, &fakeCarrier{})

	first, err := fx.service.CheckIn(context.Background(), testActor, CheckInInput{
		TrackingCode: "12345678901234567890",
		RecipientID:  fx.recipient.ID,
	})
	require.NoError(t, err)
	_, err = fx.service.CheckIn(context.Background(), testActor, CheckInInput{
		TrackingCode: "ABC123",
		RecipientID:  fx.recipient.ID,
	})
	require.NoError(t, err)
	_, err = fx.service.CheckOut(context.Background(), testActor, first.ID)
	require.NoError(t, err)

	stats, err := fx.service.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.TotalPackages)
	assert.Equal(t, int64(1), stats.CheckedIn)
	assert.Equal(t, int64(1), stats.PickedUp)
}
