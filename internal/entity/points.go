package entity

import "github.com/flowjournal/backend/pkg/enum"

type PointsReason string

var (
	PointsReasonTaskCompleted  = enum.New(PointsReason("task_completed"))
	PointsReasonTicketPurchase = enum.New(PointsReason("ticket_purchase"))
	PointsReasonRefund         = enum.New(PointsReason("refund"))
	PointsReasonAdjustment     = enum.New(PointsReason("adjustment"))
)

// PointsTransaction is one append-only ledger row. Rows are never updated or
// deleted; a user's balance is the sum of their amounts.
type PointsTransaction struct {
	Base

	UserID string `gorm:"index:idx_points_transactions_user_id"`
	User   User   `gorm:"foreignKey:UserID"`

	// Amount is signed; debits are negative.
	Amount int64

	Reason PointsReason

	// RelatedEntityID points at the entry or draw that caused this row, if
	// any.
	RelatedEntityID string
}

// PointsBalance is the running counter kept in lockstep with the ledger. It
// is only ever changed in the same transaction as a PointsTransaction insert,
// with the debit guard `points >= amount` applied in the UPDATE itself.
type PointsBalance struct {
	UserID string `gorm:"primarykey"`
	User   User   `gorm:"foreignKey:UserID"`

	Points int64
}
