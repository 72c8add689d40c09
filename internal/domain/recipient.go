package domain

import "time"

// RecipientType categorizes who owns a mailbox.
type RecipientType string

const (
	RecipientTypeStudent    RecipientType = "Student"
	RecipientTypeFaculty    RecipientType = "Faculty"
	RecipientTypeStaff      RecipientType = "Staff"
	RecipientTypeDepartment RecipientType = "Department"
)

// Recipient is a person or department that can receive packages.
// LNumber is the institution identifier and the business key students use
// to look up their own packages.
type Recipient struct {
	ID        string
	Name      string
	LNumber   string
	Type      RecipientType
	Mailbox   string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
