package model

import "time"

const (
	PaymentOutcomePending = "pending"
	PaymentOutcomeSuccess = "success"
	PaymentOutcomeFailed  = "failed"
)

// PaymentRecord is the audit trail of payment attempts. Amounts are in
// minor units, matching what is sent to the provider.
type PaymentRecord struct {
	ID             string    `json:"id" gorm:"primaryKey;type:text;not null"`
	RequestID      string    `json:"request_id" gorm:"not null;index;size:36"`
	Email          string    `json:"email" gorm:"not null;index;size:255"`
	Name           string    `json:"name" gorm:"not null;size:100"`
	Amount         int64     `json:"amount" gorm:"not null"`
	Currency       string    `json:"currency" gorm:"not null;size:3"`
	PaymentType    string    `json:"payment_type" gorm:"not null;size:20"`
	Outcome        string    `json:"outcome" gorm:"not null;size:20;index"`
	ProviderID     string    `json:"provider_id" gorm:"size:255"`
	CustomerID     string    `json:"customer_id" gorm:"size:255"`
	SubscriptionID string    `json:"subscription_id" gorm:"size:255"`
	ClientIP       string    `json:"client_ip" gorm:"size:45"`
	FailureReason  string    `json:"failure_reason" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"not null"`
}
