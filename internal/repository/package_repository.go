package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/mailroom-service/internal/domain"
)

const packageColumns = `id, tracking_code, carrier, status, recipient_id, recipient_name, l_number, mailbox,
               carrier_status, service_type, expected_delivery, last_location, carrier_data,
               check_in_date, checkout_date, last_updated, created_at`

// PackageUpdate carries the whitelisted fields a worker may patch. Nil fields
// are left untouched; last_updated is always refreshed.
type PackageUpdate struct {
	TrackingCode     *string
	Carrier          *domain.Carrier
	Status           *domain.PackageStatus
	RecipientID      *string
	RecipientName    *string
	LNumber          *string
	Mailbox          *string
	CarrierStatus    *string
	ServiceType      *string
	ExpectedDelivery *string
	LastLocation     *string
	CarrierData      json.RawMessage
}

// PackageRepository encapsulates package persistence.
type PackageRepository interface {
	Create(ctx context.Context, pkg *domain.Package) error
	GetByID(ctx context.Context, id string) (*domain.Package, error)
	GetByTrackingCode(ctx context.Context, trackingCode string) (*domain.Package, error)
	ListAll(ctx context.Context) ([]domain.Package, error)
	ListByLNumber(ctx context.Context, lNumber string) ([]domain.Package, error)
	Update(ctx context.Context, id string, update PackageUpdate) (*domain.Package, error)
	Checkout(ctx context.Context, id string) (*domain.Package, error)
	Delete(ctx context.Context, id string) (bool, error)
	Stats(ctx context.Context) (*domain.PackageStats, error)
}

type packageRepository struct {
	pool PgxPool
}

// NewPackageRepository instantiates repository.
func NewPackageRepository(pool PgxPool) PackageRepository {
	return &packageRepository{pool: pool}
}

func (r *packageRepository) Create(ctx context.Context, pkg *domain.Package) error {
	const query = `
        INSERT INTO packages (tracking_code, carrier, status, recipient_id, recipient_name, l_number, mailbox,
                              carrier_status, service_type, expected_delivery, last_location, carrier_data)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, check_in_date, last_updated, created_at`
	err := r.pool.QueryRow(ctx, query,
		pkg.TrackingCode,
		pkg.Carrier,
		pkg.Status,
		pkg.RecipientID,
		pkg.RecipientName,
		pkg.LNumber,
		pkg.Mailbox,
		pkg.CarrierStatus,
		pkg.ServiceType,
		pkg.ExpectedDelivery,
		pkg.LastLocation,
		pkg.CarrierData,
	).Scan(&pkg.ID, &pkg.CheckInDate, &pkg.LastUpdated, &pkg.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	return err
}

func (r *packageRepository) GetByID(ctx context.Context, id string) (*domain.Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *packageRepository) GetByTrackingCode(ctx context.Context, trackingCode string) (*domain.Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages WHERE tracking_code=$1`
	return r.fetchSingle(ctx, query, trackingCode)
}

func (r *packageRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Package, error) {
	var pkg domain.Package
	if err := scanPackage(r.pool.QueryRow(ctx, query, arg), &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *packageRepository) ListAll(ctx context.Context) ([]domain.Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages ORDER BY check_in_date DESC, created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPackages(rows)
}

func (r *packageRepository) ListByLNumber(ctx context.Context, lNumber string) ([]domain.Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages WHERE l_number=$1 ORDER BY check_in_date DESC, created_at DESC`
	rows, err := r.pool.Query(ctx, query, lNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPackages(rows)
}

func (r *packageRepository) Update(ctx context.Context, id string, update PackageUpdate) (*domain.Package, error) {
	sets := []string{}
	args := []any{}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}

	if update.TrackingCode != nil {
		add("tracking_code", *update.TrackingCode)
	}
	if update.Carrier != nil {
		add("carrier", *update.Carrier)
	}
	if update.Status != nil {
		add("status", *update.Status)
	}
	if update.RecipientID != nil {
		add("recipient_id", *update.RecipientID)
	}
	if update.RecipientName != nil {
		add("recipient_name", *update.RecipientName)
	}
	if update.LNumber != nil {
		add("l_number", *update.LNumber)
	}
	if update.Mailbox != nil {
		add("mailbox", *update.Mailbox)
	}
	if update.CarrierStatus != nil {
		add("carrier_status", *update.CarrierStatus)
	}
	if update.ServiceType != nil {
		add("service_type", *update.ServiceType)
	}
	if update.ExpectedDelivery != nil {
		add("expected_delivery", *update.ExpectedDelivery)
	}
	if update.LastLocation != nil {
		add("last_location", *update.LastLocation)
	}
	if update.CarrierData != nil {
		add("carrier_data", update.CarrierData)
	}

	sets = append(sets, "last_updated=NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE packages SET %s WHERE id=$%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), packageColumns)

	var pkg domain.Package
	if err := scanPackage(r.pool.QueryRow(ctx, query, args...), &pkg); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return &pkg, nil
}

// Checkout transitions a checked-in package to picked up. The status guard in
// the WHERE clause makes the transition atomic under concurrent requests.
func (r *packageRepository) Checkout(ctx context.Context, id string) (*domain.Package, error) {
	query := `UPDATE packages SET status=$1, checkout_date=NOW(), last_updated=NOW()
        WHERE id=$2 AND status=$3
        RETURNING ` + packageColumns
	var pkg domain.Package
	if err := scanPackage(r.pool.QueryRow(ctx, query, domain.PackageStatusPickedUp, id, domain.PackageStatusCheckedIn), &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *packageRepository) Delete(ctx context.Context, id string) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM packages WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *packageRepository) Stats(ctx context.Context) (*domain.PackageStats, error) {
	const query = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status=$1),
               COUNT(*) FILTER (WHERE status=$2),
               COUNT(DISTINCT carrier),
               COUNT(DISTINCT l_number)
        FROM packages`
	var stats domain.PackageStats
	if err := r.pool.QueryRow(ctx, query, domain.PackageStatusCheckedIn, domain.PackageStatusPickedUp).Scan(
		&stats.TotalPackages,
		&stats.CheckedIn,
		&stats.PickedUp,
		&stats.UniqueCarriers,
		&stats.UniqueRecipients,
	); err != nil {
		return nil, err
	}
	return &stats, nil
}

func scanPackage(row pgx.Row, pkg *domain.Package) error {
	return row.Scan(
		&pkg.ID,
		&pkg.TrackingCode,
		&pkg.Carrier,
		&pkg.Status,
		&pkg.RecipientID,
		&pkg.RecipientName,
		&pkg.LNumber,
		&pkg.Mailbox,
		&pkg.CarrierStatus,
		&pkg.ServiceType,
		&pkg.ExpectedDelivery,
		&pkg.LastLocation,
		&pkg.CarrierData,
		&pkg.CheckInDate,
		&pkg.CheckoutDate,
		&pkg.LastUpdated,
		&pkg.CreatedAt,
	)
}

func scanPackages(rows pgx.Rows) ([]domain.Package, error) {
	var result []domain.Package
	for rows.Next() {
		var pkg domain.Package
		if err := scanPackage(rows, &pkg); err != nil {
			return nil, err
		}
		result = append(result, pkg)
	}
	return result, rows.Err()
}
