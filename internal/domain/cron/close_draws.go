package cron

import (
	"context"
	"errors"
	"time"

	"github.com/flowjournal/backend/internal/domain"
	"github.com/flowjournal/backend/internal/entity"
	"github.com/flowjournal/backend/internal/repository"
	"github.com/flowjournal/backend/pkg/xcontext"
	"github.com/puzpuzpuz/xsync"
	"gorm.io/gorm"
)

// CloseDrawsCronJob periodically activates scheduled draws whose window has
// opened, closes expired draws, and selects their winners. Every step is
// idempotent, so a failed sweep is simply retried on the next tick.
type CloseDrawsCronJob struct {
	drawRepo      repository.DrawRepository
	selector      *domain.WinnerSelector
	attempts      *xsync.MapOf[string, int]
	sweepInterval time.Duration
}

func NewCloseDrawsCronJob(
	ctx context.Context,
	drawRepo repository.DrawRepository,
	selector *domain.WinnerSelector,
) *CloseDrawsCronJob {
	return &CloseDrawsCronJob{
		drawRepo:      drawRepo,
		selector:      selector,
		attempts:      xsync.NewMapOf[int](),
		sweepInterval: xcontext.Configs(ctx).Draw.SweepInterval,
	}
}

func (job *CloseDrawsCronJob) Do(ctx context.Context) {
	job.activateScheduled(ctx)
	job.closeExpired(ctx)
	job.drawWinners(ctx)
}

// activateScheduled runs before closeExpired so a scheduled draw whose whole
// window already passed still completes within a single sweep.
func (job *CloseDrawsCronJob) activateScheduled(ctx context.Context) {
	startable, err := job.drawRepo.GetStartable(ctx, time.Now())
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get startable draws: %v", err)
		return
	}

	for _, draw := range startable {
		err := job.drawRepo.UpdateStatus(
			ctx, draw.ID, entity.DrawStatusScheduled, entity.DrawStatusActive, draw.Version)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}

			xcontext.Logger(ctx).Errorf("Cannot activate draw %s: %v", draw.ID, err)
			continue
		}

		xcontext.Logger(ctx).Infof("Activated draw %s", draw.ID)
	}
}

func (job *CloseDrawsCronJob) closeExpired(ctx context.Context) {
	expired, err := job.drawRepo.GetExpired(ctx, time.Now())
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get expired draws: %v", err)
		return
	}

	for _, draw := range expired {
		err := job.drawRepo.UpdateStatus(
			ctx, draw.ID, entity.DrawStatusActive, entity.DrawStatusClosed, draw.Version)
		if err != nil {
			// Another sweeper or a cancellation got there first.
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}

			xcontext.Logger(ctx).Errorf("Cannot close draw %s: %v", draw.ID, err)
			continue
		}

		xcontext.Logger(ctx).Infof("Closed draw %s", draw.ID)
	}
}

func (job *CloseDrawsCronJob) drawWinners(ctx context.Context) {
	threshold := xcontext.Configs(ctx).Draw.StuckSweepThreshold

	closed, err := job.drawRepo.GetByStatus(ctx, entity.DrawStatusClosed)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get closed draws: %v", err)
		return
	}

	for _, draw := range closed {
		if err := job.processClosedDraw(ctx, draw); err != nil {
			count, _ := job.attempts.LoadOrStore(draw.ID, 0)
			job.attempts.Store(draw.ID, count+1)
			if count+1 >= threshold {
				xcontext.Logger(ctx).Errorf(
					"Draw %s is stuck after %d sweeps: %v", draw.ID, count+1, err)
			} else {
				xcontext.Logger(ctx).Warnf("Cannot process closed draw %s: %v", draw.ID, err)
			}

			continue
		}

		job.attempts.Delete(draw.ID)
	}
}

func (job *CloseDrawsCronJob) processClosedDraw(ctx context.Context, draw entity.PrizeDraw) error {
	if _, err := job.selector.SelectWinner(ctx, draw.ID); err != nil {
		return err
	}

	err := job.drawRepo.UpdateStatus(
		ctx, draw.ID, entity.DrawStatusClosed, entity.DrawStatusDrawn, draw.Version)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}

		return err
	}

	xcontext.Logger(ctx).Infof("Selected winner of draw %s", draw.ID)
	return nil
}

func (job *CloseDrawsCronJob) RunNow() bool {
	return true
}

func (job *CloseDrawsCronJob) Next() time.Time {
	return time.Now().Add(job.sweepInterval)
}
