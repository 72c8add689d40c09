package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/mailroom-service/internal/domain"
)

const recipientColumns = `id, name, l_number, type, mailbox, email, created_at, updated_at`

// RecipientRepository encapsulates recipient persistence.
type RecipientRepository interface {
	Create(ctx context.Context, recipient *domain.Recipient) error
	ListAll(ctx context.Context) ([]domain.Recipient, error)
	GetByID(ctx context.Context, id string) (*domain.Recipient, error)
	GetByLNumber(ctx context.Context, lNumber string) (*domain.Recipient, error)
	Update(ctx context.Context, recipient *domain.Recipient) error
	DeleteGuarded(ctx context.Context, id string) error
}

type recipientRepository struct {
	pool PgxPool
}

// NewRecipientRepository instantiates repository.
func NewRecipientRepository(pool PgxPool) RecipientRepository {
	return &recipientRepository{pool: pool}
}

func (r *recipientRepository) Create(ctx context.Context, recipient *domain.Recipient) error {
	const query = `
        INSERT INTO recipients (name, l_number, type, mailbox, email)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		recipient.Name,
		recipient.LNumber,
		recipient.Type,
		recipient.Mailbox,
		recipient.Email,
	).Scan(&recipient.ID, &recipient.CreatedAt, &recipient.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	return err
}

func (r *recipientRepository) ListAll(ctx context.Context) ([]domain.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM recipients ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Recipient
	for rows.Next() {
		var recipient domain.Recipient
		if err := scanRecipient(rows, &recipient); err != nil {
			return nil, err
		}
		result = append(result, recipient)
	}
	return result, rows.Err()
}

func (r *recipientRepository) GetByID(ctx context.Context, id string) (*domain.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM recipients WHERE id=$1`
	var recipient domain.Recipient
	if err := scanRecipient(r.pool.QueryRow(ctx, query, id), &recipient); err != nil {
		return nil, err
	}
	return &recipient, nil
}

func (r *recipientRepository) GetByLNumber(ctx context.Context, lNumber string) (*domain.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM recipients WHERE l_number=$1`
	var recipient domain.Recipient
	if err := scanRecipient(r.pool.QueryRow(ctx, query, lNumber), &recipient); err != nil {
		return nil, err
	}
	return &recipient, nil
}

func (r *recipientRepository) Update(ctx context.Context, recipient *domain.Recipient) error {
	const query = `
        UPDATE recipients SET name=$1, l_number=$2, type=$3, mailbox=$4, email=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		recipient.Name,
		recipient.LNumber,
		recipient.Type,
		recipient.Mailbox,
		recipient.Email,
		recipient.ID,
	).Scan(&recipient.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	return err
}

// DeleteGuarded removes a recipient unless packages are still checked in for
// their L number. Guard and delete run in one transaction so a concurrent
// check-in cannot slip between the check and the removal.
func (r *recipientRepository) DeleteGuarded(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var lNumber string
	if err := tx.QueryRow(ctx, `SELECT l_number FROM recipients WHERE id=$1 FOR UPDATE`, id).Scan(&lNumber); err != nil {
		return err
	}

	var pending int64
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM packages WHERE l_number=$1 AND status=$2`,
		lNumber, domain.PackageStatusCheckedIn,
	).Scan(&pending); err != nil {
		return err
	}
	if pending > 0 {
		return ErrHasPendingPackages
	}

	if _, err := tx.Exec(ctx, `DELETE FROM recipients WHERE id=$1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func scanRecipient(row pgx.Row, recipient *domain.Recipient) error {
	return row.Scan(
		&recipient.ID,
		&recipient.Name,
		&recipient.LNumber,
		&recipient.Type,
		&recipient.Mailbox,
		&recipient.Email,
		&recipient.CreatedAt,
		&recipient.UpdatedAt,
	)
}
