package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/mailroom-service/internal/domain"
)

const userColumns = `id, username, email, password_hash, role, l_number, created_at, updated_at`

// UserRepository defines persistence access for auth principals.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByLNumber(ctx context.Context, lNumber string) (*domain.User, error)
}

type userRepository struct {
	pool PgxPool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool PgxPool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (username, email, password_hash, role, l_number)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.LNumber,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *userRepository) GetByLNumber(ctx context.Context, lNumber string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE l_number=$1`
	return r.fetchSingle(ctx, query, lNumber)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := scanUser(r.pool.QueryRow(ctx, query, arg), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func scanUser(row pgx.Row, user *domain.User) error {
	return row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.LNumber,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}
