package domain

import (
	"github.com/flowjournal/backend/internal/entity"
	"github.com/flowjournal/backend/internal/model"
)

func convertPrizeDraw(draw *entity.PrizeDraw) model.PrizeDraw {
	return model.PrizeDraw{
		ID:                draw.ID,
		Title:             draw.Title,
		Description:       draw.Description,
		Prize:             draw.Prize,
		PointsPerTicket:   draw.PointsPerTicket,
		MaxTicketsPerUser: draw.MaxTicketsPerUser,
		TotalTickets:      draw.TotalTickets,
		Status:            string(draw.Status),
		StartTime:         draw.StartTime,
		EndTime:           draw.EndTime,
	}
}

func convertDrawEntry(entry *entity.DrawEntry) model.DrawEntry {
	return model.DrawEntry{
		ID:          entry.ID,
		DrawID:      entry.DrawID,
		UserID:      entry.UserID,
		TicketCount: entry.TicketCount,
		PointsSpent: entry.PointsSpent,
		CreatedAt:   entry.CreatedAt,
	}
}

func convertDrawResult(result *entity.DrawResult) model.DrawResult {
	return model.DrawResult{
		DrawID:         result.DrawID,
		WinningEntryID: result.WinningEntryID.String,
		WinningUserID:  result.WinningUserID.String,
		SelectionSeed:  result.SelectionSeed,
		DrawnAt:        result.DrawnAt,
	}
}

func convertPointsTransaction(tx *entity.PointsTransaction) model.PointsTransaction {
	return model.PointsTransaction{
		ID:              tx.ID,
		Amount:          tx.Amount,
		Reason:          string(tx.Reason),
		RelatedEntityID: tx.RelatedEntityID,
		CreatedAt:       tx.CreatedAt,
	}
}
