package models

import "time"

type RosterStatus string

const (
	RosterStatusAwaitingPayment RosterStatus = "awaiting_payment"
	RosterStatusPaid            RosterStatus = "paid"
	RosterStatusDropped         RosterStatus = "dropped"
)

// TeamRosterEntry is a team member's assignment to a weekend. The team fee
// webhook resolves the entry by (user_id, weekend_id) carried in the checkout
// metadata and marks it paid.
type TeamRosterEntry struct {
	ID        string       `gorm:"column:id;primary_key;type:uuid" json:"id"`
	WeekendID string       `gorm:"column:weekend_id;type:uuid;not null;uniqueIndex:unique_weekend_user,priority:1" json:"weekend_id"`
	UserID    string       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:unique_weekend_user,priority:2" json:"user_id"`
	Role      string       `gorm:"column:role;type:varchar(64)" json:"role"`
	Status    RosterStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (TeamRosterEntry) TableName() string { return "team_roster_entry" }
