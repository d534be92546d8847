package models

import (
	"time"

	"github.com/fatflowers/reconciler/pkg/types"
)

type CandidateStatus string

const (
	CandidateStatusSponsored       CandidateStatus = "sponsored"
	CandidateStatusAwaitingForms   CandidateStatus = "awaiting_forms"
	CandidateStatusPendingApproval CandidateStatus = "pending_approval"
	CandidateStatusAwaitingPayment CandidateStatus = "awaiting_payment"
	CandidateStatusConfirmed       CandidateStatus = "confirmed"
	CandidateStatusRejected        CandidateStatus = "rejected"
)

// Candidate is a registration gated on a fee payment. Status is only ever
// moved to confirmed by the webhook transition guard, and only from
// awaiting_payment; everything earlier in the pipeline belongs to the portal.
type Candidate struct {
	ID           string             `gorm:"column:id;primary_key;type:uuid" json:"id"`
	WeekendID    string             `gorm:"column:weekend_id;type:uuid;not null;index" json:"weekend_id"`
	Name         string             `gorm:"column:name;type:varchar(256);not null" json:"name"`
	Status       CandidateStatus    `gorm:"column:status;type:varchar(32);not null" json:"status"`
	PaymentOwner types.PaymentOwner `gorm:"column:payment_owner;type:varchar(32);not null;default:'unknown'" json:"payment_owner"`
	SponsorID    *string            `gorm:"column:sponsor_id;type:uuid" json:"sponsor_id"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func (Candidate) TableName() string { return "candidate" }
