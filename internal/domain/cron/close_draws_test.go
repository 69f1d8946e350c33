package cron

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/flowjournal/backend/internal/domain"
	"github.com/flowjournal/backend/internal/entity"
	"github.com/flowjournal/backend/internal/repository"
	"github.com/flowjournal/backend/pkg/testutil"
)

func Test_CloseDrawsCronJob_sweep(t *testing.T) {
	ctx := testutil.MockContext()
	drawRepo := repository.NewDrawRepository()
	entryRepo := repository.NewEntryRepository()
	resultRepo := repository.NewDrawResultRepository()

	now := time.Now()
	expired, err := testutil.SampleDraw(ctx, &entity.PrizeDraw{
		StartTime: now.Add(-2 * time.Hour),
		EndTime:   now.Add(-time.Minute),
	})
	require.NoError(t, err)

	running, err := testutil.SampleDraw(ctx, nil)
	require.NoError(t, err)

	user, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, entryRepo.Create(ctx, &entity.DrawEntry{
		Base:           entity.Base{ID: uuid.NewString()},
		DrawID:         expired.ID,
		UserID:         user.ID,
		TicketCount:    2,
		PointsSpent:    40,
		IdempotencyKey: uuid.NewString(),
	}))

	selector := domain.NewWinnerSelector(drawRepo, entryRepo, resultRepo)
	job := NewCloseDrawsCronJob(ctx, drawRepo, selector)
	job.Do(ctx)

	swept, err := drawRepo.GetByID(ctx, expired.ID)
	require.NoError(t, err)
	require.Equal(t, entity.DrawStatusDrawn, swept.Status)

	result, err := resultRepo.GetByDrawID(ctx, expired.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, result.WinningUserID.String)

	// The still-running draw is untouched.
	untouched, err := drawRepo.GetByID(ctx, running.ID)
	require.NoError(t, err)
	require.Equal(t, entity.DrawStatusActive, untouched.Status)
}

func Test_CloseDrawsCronJob_activatesScheduledDraws(t *testing.T) {
	ctx := testutil.MockContext()
	drawRepo := repository.NewDrawRepository()

	now := time.Now()
	due, err := testutil.SampleDraw(ctx, &entity.PrizeDraw{
		Status:    entity.DrawStatusScheduled,
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
	})
	require.NoError(t, err)

	future, err := testutil.SampleDraw(ctx, &entity.PrizeDraw{
		Status:    entity.DrawStatusScheduled,
		StartTime: now.Add(time.Hour),
		EndTime:   now.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	selector := domain.NewWinnerSelector(
		drawRepo, repository.NewEntryRepository(), repository.NewDrawResultRepository())
	job := NewCloseDrawsCronJob(ctx, drawRepo, selector)
	job.Do(ctx)

	activated, err := drawRepo.GetByID(ctx, due.ID)
	require.NoError(t, err)
	require.Equal(t, entity.DrawStatusActive, activated.Status)

	// A draw whose window has not opened yet stays scheduled.
	waiting, err := drawRepo.GetByID(ctx, future.ID)
	require.NoError(t, err)
	require.Equal(t, entity.DrawStatusScheduled, waiting.Status)
}

func Test_CloseDrawsCronJob_sweepsExpiredScheduledDrawInOnePass(t *testing.T) {
	ctx := testutil.MockContext()
	drawRepo := repository.NewDrawRepository()
	resultRepo := repository.NewDrawResultRepository()

	// The whole window passed before any sweep ran. One sweep must carry the
	// draw all the way from scheduled to drawn.
	now := time.Now()
	missed, err := testutil.SampleDraw(ctx, &entity.PrizeDraw{
		Status:    entity.DrawStatusScheduled,
		StartTime: now.Add(-2 * time.Hour),
		EndTime:   now.Add(-time.Hour),
	})
	require.NoError(t, err)

	selector := domain.NewWinnerSelector(
		drawRepo, repository.NewEntryRepository(), resultRepo)
	job := NewCloseDrawsCronJob(ctx, drawRepo, selector)
	job.Do(ctx)

	swept, err := drawRepo.GetByID(ctx, missed.ID)
	require.NoError(t, err)
	require.Equal(t, entity.DrawStatusDrawn, swept.Status)

	result, err := resultRepo.GetByDrawID(ctx, missed.ID)
	require.NoError(t, err)
	require.False(t, result.WinningUserID.Valid)
}

func Test_CloseDrawsCronJob_sweepIsIdempotent(t *testing.T) {
	ctx := testutil.MockContext()
	drawRepo := repository.NewDrawRepository()
	entryRepo := repository.NewEntryRepository()
	resultRepo := repository.NewDrawResultRepository()

	now := time.Now()
	expired, err := testutil.SampleDraw(ctx, &entity.PrizeDraw{
		StartTime: now.Add(-2 * time.Hour),
		EndTime:   now.Add(-time.Minute),
	})
	require.NoError(t, err)

	selector := domain.NewWinnerSelector(drawRepo, entryRepo, resultRepo)
	job := NewCloseDrawsCronJob(ctx, drawRepo, selector)

	job.Do(ctx)
	first, err := resultRepo.GetByDrawID(ctx, expired.ID)
	require.NoError(t, err)

	// A second sweep finds nothing to do and changes nothing.
	job.Do(ctx)
	second, err := resultRepo.GetByDrawID(ctx, expired.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.SelectionSeed, second.SelectionSeed)

	swept, err := drawRepo.GetByID(ctx, expired.ID)
	require.NoError(t, err)
	require.Equal(t, entity.DrawStatusDrawn, swept.Status)
}

func Test_CloseDrawsCronJob_schedulesNextRun(t *testing.T) {
	ctx := testutil.MockContext()
	job := NewCloseDrawsCronJob(ctx,
		repository.NewDrawRepository(),
		domain.NewWinnerSelector(
			repository.NewDrawRepository(),
			repository.NewEntryRepository(),
			repository.NewDrawResultRepository(),
		),
	)

	require.True(t, job.RunNow())
	next := job.Next()
	require.True(t, next.After(time.Now()))
}
