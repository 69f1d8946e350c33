package repository

import (
	"context"
	"time"

	"github.com/flowjournal/backend/internal/entity"
	"github.com/flowjournal/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type DrawRepository interface {
	Create(ctx context.Context, draw *entity.PrizeDraw) error
	GetByID(ctx context.Context, drawID string) (*entity.PrizeDraw, error)
	GetActive(ctx context.Context, now time.Time) ([]entity.PrizeDraw, error)
	GetStartable(ctx context.Context, now time.Time) ([]entity.PrizeDraw, error)
	GetExpired(ctx context.Context, now time.Time) ([]entity.PrizeDraw, error)
	GetByStatus(ctx context.Context, status entity.DrawStatus) ([]entity.PrizeDraw, error)
	UpdateStatus(ctx context.Context, drawID string, from, to entity.DrawStatus, version int) error
	IncreaseTotalTickets(ctx context.Context, drawID string, count int, now time.Time) error
}

type drawRepository struct{}

func NewDrawRepository() *drawRepository {
	return &drawRepository{}
}

func (r *drawRepository) Create(ctx context.Context, draw *entity.PrizeDraw) error {
	return xcontext.DB(ctx).Create(draw).Error
}

func (r *drawRepository) GetByID(ctx context.Context, drawID string) (*entity.PrizeDraw, error) {
	var result entity.PrizeDraw
	if err := xcontext.DB(ctx).Take(&result, "id=?", drawID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *drawRepository) GetActive(ctx context.Context, now time.Time) ([]entity.PrizeDraw, error) {
	var result []entity.PrizeDraw
	err := xcontext.DB(ctx).
		Where("status=? AND end_time > ?", entity.DrawStatusActive, now).
		Order("end_time ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *drawRepository) GetStartable(ctx context.Context, now time.Time) ([]entity.PrizeDraw, error) {
	var result []entity.PrizeDraw
	err := xcontext.DB(ctx).
		Where("status=? AND start_time <= ?", entity.DrawStatusScheduled, now).
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *drawRepository) GetExpired(ctx context.Context, now time.Time) ([]entity.PrizeDraw, error) {
	var result []entity.PrizeDraw
	err := xcontext.DB(ctx).
		Where("status=? AND end_time <= ?", entity.DrawStatusActive, now).
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *drawRepository) GetByStatus(
	ctx context.Context, status entity.DrawStatus,
) ([]entity.PrizeDraw, error) {
	var result []entity.PrizeDraw
	if err := xcontext.DB(ctx).Where("status=?", status).Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateStatus performs an optimistic transition: it only applies if the draw
// is still in the expected status and version. Zero affected rows means a
// concurrent transition won and gorm.ErrRecordNotFound is returned.
func (r *drawRepository) UpdateStatus(
	ctx context.Context, drawID string, from, to entity.DrawStatus, version int,
) error {
	tx := xcontext.DB(ctx).
		Model(&entity.PrizeDraw{}).
		Where("id=? AND status=? AND version=?", drawID, from, version).
		Updates(map[string]any{
			"status":  to,
			"version": gorm.Expr("version+1"),
		})

	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// IncreaseTotalTickets counts sold tickets on the draw row. The guard
// re-checks status and deadline inside the UPDATE, so a purchase racing with
// closing (or acting on a stale status read) is rejected regardless of what
// the caller loaded.
func (r *drawRepository) IncreaseTotalTickets(
	ctx context.Context, drawID string, count int, now time.Time,
) error {
	tx := xcontext.DB(ctx).
		Model(&entity.PrizeDraw{}).
		Where("id=? AND status=? AND end_time > ?", drawID, entity.DrawStatusActive, now).
		Update("total_tickets", gorm.Expr("total_tickets+?", count))

	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
