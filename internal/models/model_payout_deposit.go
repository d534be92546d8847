package models

import "time"

type PayoutDepositStatus string

const (
	PayoutDepositStatusPending   PayoutDepositStatus = "pending"
	PayoutDepositStatusInTransit PayoutDepositStatus = "in_transit"
	PayoutDepositStatusPaid      PayoutDepositStatus = "paid"
	PayoutDepositStatusCanceled  PayoutDepositStatus = "canceled"
	PayoutDepositStatusFailed    PayoutDepositStatus = "failed"
)

// PayoutDeposit records a Stripe payout landing in the bank account.
// PayoutID is unique so payout.paid redelivery cannot create a second
// deposit row.
type PayoutDeposit struct {
	ID           string              `gorm:"column:id;primary_key;type:uuid" json:"id"`
	PayoutID     string              `gorm:"column:payout_id;type:varchar(128);not null;uniqueIndex:unique_payout_id" json:"payout_id"`
	AmountCents  int64               `gorm:"column:amount_cents;type:bigint;not null" json:"amount_cents"`
	Status       PayoutDepositStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	ArrivalDate  *time.Time          `gorm:"column:arrival_date" json:"arrival_date"`
	PaymentCount int64               `gorm:"column:payment_count;type:bigint;not null;default:0" json:"payment_count"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func (PayoutDeposit) TableName() string { return "payout_deposit" }
