package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/mailroom-service/internal/domain"
	"github.com/spec-kit/mailroom-service/internal/events"
	"github.com/spec-kit/mailroom-service/internal/repository"
	"github.com/spec-kit/mailroom-service/internal/tracking"
	apperrors "github.com/spec-kit/mailroom-service/pkg/util"
)

// fakePackageRepo is an in-memory PackageRepository with the same uniqueness
// and status-guard behavior as the Postgres implementation.
type fakePackageRepo struct {
	mu       sync.Mutex
	packages map[string]*domain.Package
	seq      int
}

func newFakePackageRepo() *fakePackageRepo {
	return &fakePackageRepo{packages: map[string]*domain.Package{}}
}

func (r *fakePackageRepo) Create(_ context.Context, pkg *domain.Package) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.packages {
		if existing.TrackingCode == pkg.TrackingCode {
			return repository.ErrDuplicateKey
		}
	}
	r.seq++
	pkg.ID = fmt.Sprintf("pkg-%d", r.seq)
	now := time.Now()
	pkg.CheckInDate = now
	pkg.LastUpdated = now
	pkg.CreatedAt = now
	clone := *pkg
	r.packages[pkg.ID] = &clone
	return nil
}

func (r *fakePackageRepo) GetByID(_ context.Context, id string) (*domain.Package, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pkg, ok := r.packages[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *pkg
	return &clone, nil
}

func (r *fakePackageRepo) GetByTrackingCode(_ context.Context, trackingCode string) (*domain.Package, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pkg := range r.packages {
		if pkg.TrackingCode == trackingCode {
			clone := *pkg
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakePackageRepo) ListAll(_ context.Context) ([]domain.Package, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Package
	for _, pkg := range r.packages {
		result = append(result, *pkg)
	}
	return result, nil
}

func (r *fakePackageRepo) ListByLNumber(_ context.Context, lNumber string) ([]domain.Package, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Package
	for _, pkg := range r.packages {
		if pkg.LNumber == lNumber {
			result = append(result, *pkg)
		}
	}
	return result, nil
}

func (r *fakePackageRepo) Update(_ context.Context, id string, update repository.PackageUpdate) (*domain.Package, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pkg, ok := r.packages[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if update.TrackingCode != nil {
		for otherID, other := range r.packages {
			if otherID != id && other.TrackingCode == *update.TrackingCode {
				return nil, repository.ErrDuplicateKey
			}
		}
		pkg.TrackingCode = *update.TrackingCode
	}
	if update.Carrier != nil {
		pkg.Carrier = *update.Carrier
	}
	if update.Status != nil {
		pkg.Status = *update.Status
	}
	if update.Mailbox != nil {
		pkg.Mailbox = *update.Mailbox
	}
	if update.CarrierStatus != nil {
		pkg.CarrierStatus = update.CarrierStatus
	}
	pkg.LastUpdated = time.Now()
	clone := *pkg
	return &clone, nil
}

func (r *fakePackageRepo) Checkout(_ context.Context, id string) (*domain.Package, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pkg, ok := r.packages[id]
	if !ok || pkg.Status != domain.PackageStatusCheckedIn {
		return nil, pgx.ErrNoRows
	}
	now := time.Now()
	pkg.Status = domain.PackageStatusPickedUp
	pkg.CheckoutDate = &now
	pkg.LastUpdated = now
	clone := *pkg
	return &clone, nil
}

func (r *fakePackageRepo) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.packages[id]; !ok {
		return false, nil
	}
	delete(r.packages, id)
	return true, nil
}

func (r *fakePackageRepo) Stats(_ context.Context) (*domain.PackageStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &domain.PackageStats{}
	carriers := map[domain.Carrier]struct{}{}
	lNumbers := map[string]struct{}{}
	for _, pkg := range r.packages {
		stats.TotalPackages++
		if pkg.Status == domain.PackageStatusCheckedIn {
			stats.CheckedIn++
		} else {
			stats.PickedUp++
		}
		carriers[pkg.Carrier] = struct{}{}
		lNumbers[pkg.LNumber] = struct{}{}
	}
	stats.UniqueCarriers = int64(len(carriers))
	stats.UniqueRecipients = int64(len(lNumbers))
	return stats, nil
}

// fakeRecipientRepo shares the package store so the delete guard can count
// checked-in packages the way the transactional implementation does.
type fakeRecipientRepo struct {
	mu         sync.Mutex
	recipients map[string]*domain.Recipient
	packages   *fakePackageRepo
	seq        int
}

func newFakeRecipientRepo(packages *fakePackageRepo) *fakeRecipientRepo {
	return &fakeRecipientRepo{recipients: map[string]*domain.Recipient{}, packages: packages}
}

func (r *fakeRecipientRepo) Create(_ context.Context, recipient *domain.Recipient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.recipients {
		if existing.LNumber == recipient.LNumber {
			return repository.ErrDuplicateKey
		}
	}
	r.seq++
	recipient.ID = fmt.Sprintf("rec-%d", r.seq)
	now := time.Now()
	recipient.CreatedAt = now
	recipient.UpdatedAt = now
	clone := *recipient
	r.recipients[recipient.ID] = &clone
	return nil
}

func (r *fakeRecipientRepo) ListAll(_ context.Context) ([]domain.Recipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Recipient
	for _, recipient := range r.recipients {
		result = append(result, *recipient)
	}
	return result, nil
}

func (r *fakeRecipientRepo) GetByID(_ context.Context, id string) (*domain.Recipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	recipient, ok := r.recipients[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *recipient
	return &clone, nil
}

func (r *fakeRecipientRepo) GetByLNumber(_ context.Context, lNumber string) (*domain.Recipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, recipient := range r.recipients {
		if recipient.LNumber == lNumber {
			clone := *recipient
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeRecipientRepo) Update(_ context.Context, recipient *domain.Recipient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.recipients[recipient.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	for otherID, other := range r.recipients {
		if otherID != recipient.ID && other.LNumber == recipient.LNumber {
			return repository.ErrDuplicateKey
		}
	}
	*existing = *recipient
	existing.UpdatedAt = time.Now()
	return nil
}

func (r *fakeRecipientRepo) DeleteGuarded(ctx context.Context, id string) error {
	r.mu.Lock()
	recipient, ok := r.recipients[id]
	r.mu.Unlock()
	if !ok {
		return pgx.ErrNoRows
	}

	pending, err := r.packages.ListByLNumber(ctx, recipient.LNumber)
	if err != nil {
		return err
	}
	for _, pkg := range pending {
		if pkg.Status == domain.PackageStatusCheckedIn {
			return repository.ErrHasPendingPackages
		}
	}

	r.mu.Lock()
	delete(r.recipients, id)
	r.mu.Unlock()
	return nil
}

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
	seq   int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicateKey
		}
		if existing.LNumber != nil && user.LNumber != nil && *existing.LNumber == *user.LNumber {
			return repository.ErrDuplicateKey
		}
	}
	r.seq++
	user.ID = fmt.Sprintf("user-%d", r.seq)
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByLNumber(_ context.Context, lNumber string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.LNumber != nil && *user.LNumber == lNumber {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// fakeCarrier is a scriptable tracking.Client.
type fakeCarrier struct {
	mu         sync.Mutex
	configured bool
	info       *tracking.TrackingInfo
	err        error
	calls      int
}

func (c *fakeCarrier) IsConfigured() bool { return c.configured }

func (c *fakeCarrier) Track(_ context.Context, _ string) (*tracking.TrackingInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.info, nil
}

func (c *fakeCarrier) trackCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu        sync.Mutex
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) eventsOfType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []events.Event
	for _, event := range d.published {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}

func requireDomainError(t *testing.T, err error, code string, status int) *apperrors.DomainError {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, code, domainErr.Code)
	require.Equal(t, status, domainErr.HTTPStatus)
	return domainErr
}
