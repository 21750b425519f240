package account

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Max length constants for user-editable fields.
const (
	MaxEmailLength = 254
	MaxNameLength  = 100
	MinPassword    = 8
)

// User types
const (
	TypeAthlete = "athlete"
	TypeStaff   = "staff"
)

// ValidTypes contains all valid user type values.
var ValidTypes = []string{TypeAthlete, TypeStaff}

// BcryptCost is the hashing cost for new passwords. Tests lower it.
var BcryptCost = 12

// Domain errors
var (
	ErrInvalidEmail     = errors.New("email must contain '@'")
	ErrEmptyEmail       = errors.New("email cannot be empty")
	ErrInvalidType      = errors.New("user type must be one of: athlete, staff")
	ErrEmptyName        = errors.New("first and last name are required")
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrWrongPassword    = errors.New("incorrect password")
	ErrNotFound         = errors.New("account not found")
	ErrEmailTaken       = errors.New("an account with this email already exists")
	ErrNotStaff         = errors.New("only staff accounts can be approved")
)

// Account is a registered SportsMed Pro user.
type Account struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	UserType     string
	PasswordHash string
	CreatedAt    time.Time
	FailedLogins int
	LockedUntil  time.Time

	// StaffApproved is set by an operator, never by sign-up. Only approved
	// staff may read athletes' shared data.
	StaffApproved bool
}

// Validate checks if the Account has valid data.
// PRE: Account struct is populated
// POST: Returns nil if valid, error otherwise
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Email) == "" {
		return ErrEmptyEmail
	}
	if len(a.Email) > MaxEmailLength {
		return errors.New("email cannot exceed 254 characters")
	}
	if !strings.Contains(a.Email, "@") {
		return ErrInvalidEmail
	}
	if strings.TrimSpace(a.FirstName) == "" || strings.TrimSpace(a.LastName) == "" {
		return ErrEmptyName
	}
	if !IsValidType(a.UserType) {
		return ErrInvalidType
	}
	return nil
}

// FullName joins first and last name.
func (a Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// SetPassword hashes and stores a password using bcrypt.
// PRE: plaintext is non-empty and >= 8 characters
// POST: PasswordHash is set to bcrypt hash
func (a *Account) SetPassword(plaintext string) error {
	if plaintext == "" {
		return ErrEmptyPassword
	}
	if len(plaintext) < MinPassword {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), BcryptCost)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
// PRE: PasswordHash is set
// INVARIANT: Account fields are not mutated
func (a *Account) CheckPassword(plaintext string) error {
	if a.PasswordHash == "" {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(plaintext)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// IsLocked returns true if the account is currently locked out.
// INVARIANT: Account fields are not mutated
func (a *Account) IsLocked(now time.Time) bool {
	if a.LockedUntil.IsZero() {
		return false
	}
	return now.Before(a.LockedUntil)
}

// RecordFailedLogin increments the failed login counter and locks the account after 5 failures.
// PRE: Account exists
// POST: FailedLogins incremented; LockedUntil set if >= 5 failures
func (a *Account) RecordFailedLogin(now time.Time) {
	a.FailedLogins++
	if a.FailedLogins >= 5 {
		a.LockedUntil = now.Add(15 * time.Minute)
	}
}

// ResetFailedLogins clears the failed login counter and lock.
// PRE: Account exists
// POST: FailedLogins is 0, LockedUntil is zero
func (a *Account) ResetFailedLogins() {
	a.FailedLogins = 0
	a.LockedUntil = time.Time{}
}

// IsStaff returns true for medical staff accounts.
// INVARIANT: Account fields are not mutated
func (a *Account) IsStaff() bool {
	return a.UserType == TypeStaff
}

// CanViewAthletes reports whether the account may open athletes' shared data.
// INVARIANT: Account fields are not mutated
func (a *Account) CanViewAthletes() bool {
	return a.IsStaff() && a.StaffApproved
}

// SetStaffApproval grants or withdraws access to athletes' shared data.
// PRE: Account is staff
// POST: StaffApproved == approved, or ErrNotStaff and no change
func (a *Account) SetStaffApproval(approved bool) error {
	if !a.IsStaff() {
		return ErrNotStaff
	}
	a.StaffApproved = approved
	return nil
}

// IsValidType reports whether t names a user type.
func IsValidType(t string) bool {
	for _, v := range ValidTypes {
		if v == t {
			return true
		}
	}
	return false
}
