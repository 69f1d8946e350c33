package repository

import (
	"context"

	"github.com/flowjournal/backend/internal/entity"
	"github.com/flowjournal/backend/pkg/xcontext"
	"gorm.io/gorm/clause"
)

type DrawResultRepository interface {
	Create(ctx context.Context, result *entity.DrawResult) error
	GetByDrawID(ctx context.Context, drawID string) (*entity.DrawResult, error)
}

type drawResultRepository struct{}

func NewDrawResultRepository() *drawResultRepository {
	return &drawResultRepository{}
}

// Create inserts the result unless one already exists for the draw; the
// unique index on draw_id plus DO NOTHING makes a lost race harmless. Callers
// re-read after a zero-row insert to return the stored result.
func (r *drawResultRepository) Create(ctx context.Context, result *entity.DrawResult) error {
	return xcontext.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "draw_id"}},
		DoNothing: true,
	}).Create(result).Error
}

func (r *drawResultRepository) GetByDrawID(ctx context.Context, drawID string) (*entity.DrawResult, error) {
	var result entity.DrawResult
	if err := xcontext.DB(ctx).Take(&result, "draw_id=?", drawID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}
