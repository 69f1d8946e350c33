package domain

import (
	"context"
	"errors"

	"github.com/flowjournal/backend/internal/entity"
	"github.com/flowjournal/backend/internal/repository"
	"github.com/flowjournal/backend/pkg/xcontext"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrInsufficientPoints reports a debit whose guard failed; nothing was
// written.
var ErrInsufficientPoints = errors.New("insufficient points")

// Ledger is the authoritative, append-only record of point-affecting events.
// A balance is always derived state: the running counter row moves in the
// same database transaction as the ledger row it mirrors, never separately.
type Ledger struct {
	pointsRepo repository.PointsRepository
}

func NewLedger(pointsRepo repository.PointsRepository) *Ledger {
	return &Ledger{pointsRepo: pointsRepo}
}

func (l *Ledger) Balance(ctx context.Context, userID string) (int64, error) {
	return l.pointsRepo.GetBalance(ctx, userID)
}

// Append writes exactly one transaction row and applies it to the running
// counter. For a negative amount the counter update carries the
// non-negativity guard, so concurrent debits of one user serialize on that
// row and the loser gets ErrInsufficientPoints with no partial write.
//
// If the context does not already carry a database transaction, Append opens
// its own, so the row and the counter can never diverge.
func (l *Ledger) Append(
	ctx context.Context, userID string, amount int64, reason entity.PointsReason, relatedEntityID string,
) (*entity.PointsTransaction, error) {
	ownTx := !xcontext.HasDBTransaction(ctx)
	if ownTx {
		ctx = xcontext.WithDBTransaction(ctx)
		defer xcontext.WithRollbackDBTransaction(ctx)
	}

	if amount < 0 {
		if err := l.pointsRepo.DecreaseBalance(ctx, userID, -amount); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrInsufficientPoints
			}

			return nil, err
		}
	} else {
		if err := l.pointsRepo.IncreaseBalance(ctx, userID, amount); err != nil {
			return nil, err
		}
	}

	row := &entity.PointsTransaction{
		Base:            entity.Base{ID: uuid.NewString()},
		UserID:          userID,
		Amount:          amount,
		Reason:          reason,
		RelatedEntityID: relatedEntityID,
	}

	if err := l.pointsRepo.CreateTransaction(ctx, row); err != nil {
		return nil, err
	}

	if ownTx {
		xcontext.WithCommitDBTransaction(ctx)
	}

	return row, nil
}
