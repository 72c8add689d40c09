package domain

import "time"

// Role distinguishes mailroom workers from students. Worker is the only
// privileged role; everything else is treated as non-privileged.
type Role string

const (
	RoleStudent Role = "student"
	RoleWorker  Role = "worker"
)

// Valid reports whether the role is one the service accepts.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleWorker
}

// User is the authentication principal. LNumber links a student account to
// their Recipient record and is nil for workers.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	LNumber      *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
