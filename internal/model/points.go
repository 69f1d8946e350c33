package model

import "time"

type PointsTransaction struct {
	ID              string    `json:"id"`
	Amount          int64     `json:"amount"`
	Reason          string    `json:"reason"`
	RelatedEntityID string    `json:"related_entity_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type GetMyPointsRequest struct{}

type GetMyPointsResponse struct {
	TotalPoints int64 `json:"total_points"`
}

type GetPointsHistoryRequest struct {
	Offset int `form:"offset"`
	Limit  int `form:"limit"`
}

type GetPointsHistoryResponse struct {
	Transactions []PointsTransaction `json:"transactions"`
}
