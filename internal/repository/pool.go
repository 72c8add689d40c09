// Package repository contains the Postgres-backed persistence layer.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the minimal pool surface repositories need. It is satisfied by
// *pgxpool.Pool and by pgxmock.PgxPoolIface in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ErrDuplicateKey is returned when an insert or update violates a unique index.
var ErrDuplicateKey = errors.New("duplicate key")

// ErrHasPendingPackages guards recipient deletion while checked-in packages
// still reference the recipient's L number.
var ErrHasPendingPackages = errors.New("recipient has pending packages")

func isUniqueViolation(err error) bool {
	var pg *pgconn.PgError
	return errors.As(err, &pg) && pg.Code == "23505"
}
