// Package models defines server-side data models persisted by the repositories.
package models

import "time"

// AccountStatus is the verification state of an account.
type AccountStatus string

const (
	StatusPendingVerification AccountStatus = "pending"
	StatusVerified            AccountStatus = "verified"
)

// Account is a registered user.
//
// VerificationTokenHash holds the SHA-256 of the emailed token and is
// non-empty only while Status is StatusPendingVerification.
type Account struct {
	Username              string
	PasswordHash          string
	Email                 string
	VerificationTokenHash string
	Status                AccountStatus
	PaymentReference      string
	CreatedAt             time.Time
}

// IsVerified reports whether the account may authenticate.
func (a *Account) IsVerified() bool {
	return a.Status == StatusVerified
}
