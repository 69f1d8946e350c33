package model

import "time"

type PrizeDraw struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Prize             string    `json:"prize"`
	PointsPerTicket   int64     `json:"points_per_ticket"`
	MaxTicketsPerUser int       `json:"max_tickets_per_user,omitempty"`
	TotalTickets      int       `json:"total_tickets"`
	Status            string    `json:"status"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
}

type DrawEntry struct {
	ID          string    `json:"id"`
	DrawID      string    `json:"draw_id"`
	UserID      string    `json:"user_id"`
	TicketCount int       `json:"ticket_count"`
	PointsSpent int64     `json:"points_spent"`
	CreatedAt   time.Time `json:"created_at"`
}

type DrawResult struct {
	DrawID         string    `json:"draw_id"`
	WinningEntryID string    `json:"winning_entry_id,omitempty"`
	WinningUserID  string    `json:"winning_user_id,omitempty"`
	SelectionSeed  string    `json:"selection_seed"`
	DrawnAt        time.Time `json:"drawn_at"`
}

type CreateDrawRequest struct {
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Prize             string    `json:"prize"`
	PointsPerTicket   int64     `json:"points_per_ticket"`
	MaxTicketsPerUser int       `json:"max_tickets_per_user"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
}

type CreateDrawResponse struct {
	Draw PrizeDraw `json:"draw"`
}

type GetDrawsRequest struct{}

type GetDrawsResponse struct {
	Draws []PrizeDraw `json:"draws"`
}

type GetDrawRequest struct {
	DrawID string `uri:"id"`
}

type GetDrawResponse struct {
	Draw PrizeDraw `json:"draw"`
}

type EnterDrawRequest struct {
	DrawID         string `uri:"id"`
	Tickets        int    `json:"tickets"`
	IdempotencyKey string `json:"idempotency_key"`
}

type EnterDrawResponse struct {
	Entry       DrawEntry `json:"entry"`
	TotalPoints int64     `json:"total_points"`
}

type CancelDrawRequest struct {
	DrawID string `uri:"id"`
}

type CancelDrawResponse struct{}

type GetDrawResultRequest struct {
	DrawID string `uri:"id"`
}

type GetDrawResultResponse struct {
	Result DrawResult `json:"result"`
}
