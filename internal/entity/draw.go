package entity

import (
	"database/sql"
	"time"

	"github.com/flowjournal/backend/pkg/enum"
)

type DrawStatus string

var (
	DrawStatusScheduled = enum.New(DrawStatus("scheduled"))
	DrawStatusActive    = enum.New(DrawStatus("active"))
	DrawStatusClosed    = enum.New(DrawStatus("closed"))
	DrawStatusDrawn     = enum.New(DrawStatus("drawn"))
	DrawStatusCancelled = enum.New(DrawStatus("cancelled"))
)

// drawTransitions is the only valid forward edge set of the draw state
// machine. Cancellation is handled separately: it is reachable from every
// pre-drawn state.
var drawTransitions = map[DrawStatus]DrawStatus{
	DrawStatusScheduled: DrawStatusActive,
	DrawStatusActive:    DrawStatusClosed,
	DrawStatusClosed:    DrawStatusDrawn,
}

// CanTransitTo reports whether a draw in status from may move to status to.
func (from DrawStatus) CanTransitTo(to DrawStatus) bool {
	if to == DrawStatusCancelled {
		return from == DrawStatusScheduled || from == DrawStatusActive || from == DrawStatusClosed
	}

	return drawTransitions[from] == to
}

type PrizeDraw struct {
	Base

	Title       string
	Description string
	Prize       string

	// PointsPerTicket is fixed at creation; there is no update path for it.
	PointsPerTicket int64

	// MaxTicketsPerUser of zero means no cap.
	MaxTicketsPerUser int

	// TotalTickets counts sold, non-voided tickets. It is maintained with a
	// conditional UPDATE guarded on the draw still being active.
	TotalTickets int

	Status    DrawStatus `gorm:"index:idx_prize_draws_status"`
	StartTime time.Time
	EndTime   time.Time `gorm:"index:idx_prize_draws_end_time"`

	// Version guards status transitions optimistically.
	Version int
}

// DrawEntry records one ticket purchase. Entries are never deleted; a
// cancellation refund marks them voided instead.
type DrawEntry struct {
	Base

	DrawID string    `gorm:"index:idx_draw_entries_draw_id"`
	Draw   PrizeDraw `gorm:"foreignKey:DrawID"`

	UserID string `gorm:"index:idx_draw_entries_user_key,unique"`
	User   User   `gorm:"foreignKey:UserID"`

	TicketCount int

	// PointsSpent snapshots ticket_count * points_per_ticket at purchase
	// time.
	PointsSpent int64

	// IdempotencyKey makes client retries of the same purchase return this
	// entry instead of charging again.
	IdempotencyKey string `gorm:"index:idx_draw_entries_user_key,unique"`

	Voided bool
}

// DrawParticipation is the per-draw per-user ticket counter. The per-user cap
// is enforced by a conditional UPDATE on this row, which serializes racing
// purchases of one user in one draw without touching any other draw or user.
type DrawParticipation struct {
	DrawID string `gorm:"primarykey"`
	UserID string `gorm:"primarykey"`

	TicketCount int
}

// DrawResult exists at most once per draw and is immutable once written.
type DrawResult struct {
	Base

	DrawID string    `gorm:"index:idx_draw_results_draw_id,unique"`
	Draw   PrizeDraw `gorm:"foreignKey:DrawID"`

	WinningEntryID sql.NullString
	WinningUserID  sql.NullString

	// SelectionSeed reproduces the winning slot: it seeds the PRNG that drew
	// over the entry pool.
	SelectionSeed string

	DrawnAt time.Time
}
