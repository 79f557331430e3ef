package models

import "time"

// PaymentStatus is the gateway-reported state of a payment attempt.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// PaymentResult is the typed subset of a gateway verify response.
type PaymentResult struct {
	Reference string
	Status    PaymentStatus
	Amount    int64
	Metadata  map[string]string
}

// Succeeded reports whether the gateway confirmed the payment.
func (p *PaymentResult) Succeeded() bool {
	return p != nil && p.Status == PaymentSuccess
}

// PaymentInit is the result of initializing a transaction.
type PaymentInit struct {
	AuthorizationURL string
	Reference        string
}

// ClaimPurpose says what a payment reference was redeemed for.
type ClaimPurpose string

const (
	PurposeRegistration ClaimPurpose = "registration"
	PurposePurchase     ClaimPurpose = "purchase"
	PurposeSubmission   ClaimPurpose = "submission"
)

// ReferenceClaim records that a payment reference has been consumed.
type ReferenceClaim struct {
	Reference string
	Purpose   ClaimPurpose
	Subject   string
	ClaimedAt time.Time
}

// Same reports whether c was made for the same purpose and subject.
func (c *ReferenceClaim) Same(purpose ClaimPurpose, subject string) bool {
	return c.Purpose == purpose && c.Subject == subject
}
