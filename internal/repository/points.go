package repository

import (
	"context"
	"errors"

	"github.com/flowjournal/backend/internal/entity"
	"github.com/flowjournal/backend/pkg/xcontext"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PointsRepository interface {
	CreateTransaction(ctx context.Context, tx *entity.PointsTransaction) error
	GetTransactionsByUserID(ctx context.Context, userID string, offset, limit int) ([]entity.PointsTransaction, error)
	GetBalance(ctx context.Context, userID string) (int64, error)
	IncreaseBalance(ctx context.Context, userID string, amount int64) error
	DecreaseBalance(ctx context.Context, userID string, amount int64) error
	SumTransactions(ctx context.Context, userID string) (int64, error)
}

type pointsRepository struct{}

func NewPointsRepository() *pointsRepository {
	return &pointsRepository{}
}

func (r *pointsRepository) CreateTransaction(ctx context.Context, tx *entity.PointsTransaction) error {
	return xcontext.DB(ctx).Create(tx).Error
}

func (r *pointsRepository) GetTransactionsByUserID(
	ctx context.Context, userID string, offset, limit int,
) ([]entity.PointsTransaction, error) {
	var result []entity.PointsTransaction
	err := xcontext.DB(ctx).Where("user_id=?", userID).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *pointsRepository) GetBalance(ctx context.Context, userID string) (int64, error) {
	var record entity.PointsBalance
	err := xcontext.DB(ctx).Where("user_id=?", userID).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}

		return 0, err
	}

	return record.Points, nil
}

// IncreaseBalance adds amount to the user's running counter, creating the
// counter row on first credit.
func (r *pointsRepository) IncreaseBalance(ctx context.Context, userID string, amount int64) error {
	return xcontext.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{"points": gorm.Expr("points+?", amount)}),
	}).Create(&entity.PointsBalance{UserID: userID, Points: amount}).Error
}

// DecreaseBalance is the atomic check-and-apply debit: the counter only moves
// if the resulting balance stays non-negative. Zero affected rows means the
// guard failed and gorm.ErrRecordNotFound is returned with nothing written.
func (r *pointsRepository) DecreaseBalance(ctx context.Context, userID string, amount int64) error {
	tx := xcontext.DB(ctx).
		Model(&entity.PointsBalance{}).
		Where("user_id=? AND points >= ?", userID, amount).
		Update("points", gorm.Expr("points-?", amount))

	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// SumTransactions recomputes the balance from the ledger rows. It exists for
// auditing that the running counter never diverges from the ledger.
func (r *pointsRepository) SumTransactions(ctx context.Context, userID string) (int64, error) {
	var result int64
	err := xcontext.DB(ctx).Model(&entity.PointsTransaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id=?", userID).
		Scan(&result).Error
	if err != nil {
		return 0, err
	}

	return result, nil
}
