package db

import "time"

// TrialRecord is the server-owned entitlement row, one per anonymous trial
// identity. All mutations go through the conditional updates in
// trialstore.go, never whole-row saves, so concurrent updates cannot clobber
// each other.
type TrialRecord struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	IP           string    `gorm:"size:64" json:"ip"`
	LastIP       string    `gorm:"size:64" json:"last_ip"`
	UserMetadata string    `gorm:"size:512" json:"user_metadata"`
	FreeUsed     bool      `json:"free_used"`
	PaidCredits  int       `json:"paid_credits"`
	CreatedAt    time.Time `json:"created_at"`
	LastSeen     time.Time `json:"last_seen"`
}

// PaymentOrder is the local bookkeeping row for an order handed to the
// payment gateway. OrderID is the gateway's opaque handle.
type PaymentOrder struct {
	OrderID   string    `gorm:"primaryKey;size:64" json:"order_id"`
	TrialID   string    `gorm:"index;size:36" json:"trial_id"`
	Amount    int       `json:"amount"` // in paise
	Currency  string    `gorm:"size:8" json:"currency"`
	Status    string    `gorm:"size:16" json:"status"` // created, paid, failed
	PaymentID string    `gorm:"size:64" json:"payment_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
