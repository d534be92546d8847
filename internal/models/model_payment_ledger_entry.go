package models

import (
	"time"

	"github.com/fatflowers/reconciler/pkg/types"
)

// PaymentLedgerEntry is the durable record of money received for one fee.
// ExternalRef is Stripe's payment intent id; the (target_kind, external_ref)
// unique index is the idempotency key that makes webhook redelivery unable to
// record the same payment twice.
//
// StripeFeeCents, NetAmountCents, ChargeID and BalanceTransactionID are often
// unknown at checkout time; charge.updated and payout.paid backfill them.
type PaymentLedgerEntry struct {
	ID                   string              `gorm:"column:id;primary_key;type:uuid" json:"id"`
	TargetKind           types.TargetKind    `gorm:"column:target_kind;type:varchar(32);not null;uniqueIndex:unique_target_kind_external_ref,priority:1" json:"target_kind"`
	TargetID             string              `gorm:"column:target_id;type:uuid;not null;index" json:"target_id"`
	AmountCents          int64               `gorm:"column:amount_cents;type:bigint;not null" json:"amount_cents"`
	Currency             string              `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	PaymentMethod        types.PaymentMethod `gorm:"column:payment_method;type:varchar(16);not null" json:"payment_method"`
	PaymentOwner         types.PaymentOwner  `gorm:"column:payment_owner;type:varchar(32);not null;default:'unknown'" json:"payment_owner"`
	ExternalRef          string              `gorm:"column:external_ref;type:varchar(128);not null;uniqueIndex:unique_target_kind_external_ref,priority:2" json:"external_ref"`
	ChargeID             *string             `gorm:"column:charge_id;type:varchar(128)" json:"charge_id"`
	BalanceTransactionID *string             `gorm:"column:balance_transaction_id;type:varchar(128)" json:"balance_transaction_id"`
	StripeFeeCents       *int64              `gorm:"column:stripe_fee_cents;type:bigint" json:"stripe_fee_cents"`
	NetAmountCents       *int64              `gorm:"column:net_amount_cents;type:bigint" json:"net_amount_cents"`
	PayoutID             *string             `gorm:"column:payout_id;type:varchar(128);index" json:"payout_id"`
	Note                 *string             `gorm:"column:note;type:text" json:"note"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

func (PaymentLedgerEntry) TableName() string { return "payment_ledger_entry" }

// AmountDollars renders the amount for human-facing output (notifications,
// admin responses). Storage stays in cents.
func (e *PaymentLedgerEntry) AmountDollars() float64 {
	if e == nil {
		return 0
	}
	return float64(e.AmountCents) / 100
}
