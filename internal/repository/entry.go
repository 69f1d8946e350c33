package repository

import (
	"context"

	"github.com/flowjournal/backend/internal/entity"
	"github.com/flowjournal/backend/pkg/xcontext"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EntryRepository interface {
	Create(ctx context.Context, entry *entity.DrawEntry) error
	GetByID(ctx context.Context, entryID string) (*entity.DrawEntry, error)
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*entity.DrawEntry, error)
	GetByDrawID(ctx context.Context, drawID string) ([]entity.DrawEntry, error)
	VoidByDrawID(ctx context.Context, drawID string) error
	GetParticipation(ctx context.Context, drawID, userID string) (*entity.DrawParticipation, error)
	IncreaseParticipation(ctx context.Context, drawID, userID string, count, cap int) error
}

type entryRepository struct{}

func NewEntryRepository() *entryRepository {
	return &entryRepository{}
}

func (r *entryRepository) Create(ctx context.Context, entry *entity.DrawEntry) error {
	return xcontext.DB(ctx).Create(entry).Error
}

func (r *entryRepository) GetByID(ctx context.Context, entryID string) (*entity.DrawEntry, error) {
	var result entity.DrawEntry
	if err := xcontext.DB(ctx).Take(&result, "id=?", entryID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *entryRepository) GetByIdempotencyKey(
	ctx context.Context, userID, key string,
) (*entity.DrawEntry, error) {
	var result entity.DrawEntry
	err := xcontext.DB(ctx).
		Where("user_id=? AND idempotency_key=?", userID, key).
		Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// GetByDrawID returns the non-voided entries of a draw in a deterministic
// order, which the winner selection relies on for reproducibility.
func (r *entryRepository) GetByDrawID(ctx context.Context, drawID string) ([]entity.DrawEntry, error) {
	var result []entity.DrawEntry
	err := xcontext.DB(ctx).
		Where("draw_id=? AND voided=?", drawID, false).
		Order("created_at ASC, id ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *entryRepository) VoidByDrawID(ctx context.Context, drawID string) error {
	return xcontext.DB(ctx).Model(&entity.DrawEntry{}).
		Where("draw_id=? AND voided=?", drawID, false).
		Update("voided", true).Error
}

func (r *entryRepository) GetParticipation(
	ctx context.Context, drawID, userID string,
) (*entity.DrawParticipation, error) {
	var result entity.DrawParticipation
	err := xcontext.DB(ctx).
		Where("draw_id=? AND user_id=?", drawID, userID).
		Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// IncreaseParticipation adds count tickets to the per-draw per-user counter.
// With a positive cap the UPDATE itself guards the limit, so two purchases of
// one user racing on the same draw can never overshoot it together. Zero
// affected rows means the cap would be exceeded and gorm.ErrRecordNotFound is
// returned.
func (r *entryRepository) IncreaseParticipation(
	ctx context.Context, drawID, userID string, count, cap int,
) error {
	err := xcontext.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "draw_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&entity.DrawParticipation{DrawID: drawID, UserID: userID}).Error
	if err != nil {
		return err
	}

	tx := xcontext.DB(ctx).
		Model(&entity.DrawParticipation{}).
		Where("draw_id=? AND user_id=?", drawID, userID)

	if cap > 0 {
		tx = tx.Where("ticket_count + ? <= ?", count, cap)
	}

	tx = tx.Update("ticket_count", gorm.Expr("ticket_count+?", count))
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
