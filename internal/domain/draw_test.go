package domain

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/flowjournal/backend/internal/entity"
	"github.com/flowjournal/backend/internal/model"
	"github.com/flowjournal/backend/internal/repository"
	"github.com/flowjournal/backend/pkg/errorx"
	"github.com/flowjournal/backend/pkg/testutil"
	"github.com/flowjournal/backend/pkg/xcontext"
)

func newTestDrawDomain() (*drawDomain, *Ledger) {
	pointsRepo := repository.NewPointsRepository()
	ledger := NewLedger(pointsRepo)
	d := NewDrawDomain(
		repository.NewDrawRepository(),
		repository.NewEntryRepository(),
		repository.NewDrawResultRepository(),
		ledger,
		&testutil.MockRedisClient{},
	)

	return d, ledger
}

func Test_drawDomain_Create(t *testing.T) {
	ctx := testutil.MockContextWithUserID("organizer")
	d, _ := newTestDrawDomain()

	now := time.Now()
	resp, err := d.Create(ctx, &model.CreateDrawRequest{
		Title:           "Weekly raffle",
		Prize:           "A coffee mug",
		PointsPerTicket: 20,
		StartTime:       now.Add(-time.Hour),
		EndTime:         now.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, "active", resp.Draw.Status)

	resp, err = d.Create(ctx, &model.CreateDrawRequest{
		Title:           "Next week raffle",
		Prize:           "A t-shirt",
		PointsPerTicket: 20,
		StartTime:       now.Add(time.Hour),
		EndTime:         now.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, "scheduled", resp.Draw.Status)
}

func Test_drawDomain_Create_invalidRequests(t *testing.T) {
	ctx := testutil.MockContextWithUserID("organizer")
	d, _ := newTestDrawDomain()

	now := time.Now()
	tests := []struct {
		name string
		req  *model.CreateDrawRequest
	}{
		{
			name: "missing title",
			req: &model.CreateDrawRequest{
				PointsPerTicket: 20,
				StartTime:       now,
				EndTime:         now.Add(time.Hour),
			},
		},
		{
			name: "non-positive ticket price",
			req: &model.CreateDrawRequest{
				Title:     "free tickets",
				StartTime: now,
				EndTime:   now.Add(time.Hour),
			},
		},
		{
			name: "negative ticket cap",
			req: &model.CreateDrawRequest{
				Title:             "negative cap",
				PointsPerTicket:   20,
				MaxTicketsPerUser: -1,
				StartTime:         now,
				EndTime:           now.Add(time.Hour),
			},
		},
		{
			name: "window ends before it starts",
			req: &model.CreateDrawRequest{
				Title:           "inverted window",
				PointsPerTicket: 20,
				StartTime:       now.Add(time.Hour),
				EndTime:         now,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Create(ctx, tt.req)
			var errx errorx.Error
			require.ErrorAs(t, err, &errx)
			require.Equal(t, errorx.BadRequest, errx.Code)
		})
	}
}

func Test_drawDomain_Enter(t *testing.T) {
	ctx := testutil.MockContext()
	user, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	draw, err := testutil.SampleDraw(ctx, &entity.PrizeDraw{PointsPerTicket: 20})
	require.NoError(t, err)

	d, ledger := newTestDrawDomain()
	_, err = ledger.Append(ctx, user.ID, 100, entity.PointsReasonTaskCompleted, "")
	require.NoError(t, err)

	userCtx := xcontext.WithRequestUserID(ctx, user.ID)
	resp, err := d.Enter(userCtx, &model.EnterDrawRequest{
		DrawID:         draw.ID,
		Tickets:        3,
		IdempotencyKey: "buy-1",
	})
	require.NoError(t, err)
	require.Equal(t, 3, resp.Entry.TicketCount)
	require.Equal(t, int64(60), resp.Entry.PointsSpent)
	require.Equal(t, int64(40), resp.TotalPoints)

	// The remaining 40 points cannot pay for three more tickets; the failed
	// attempt must leave the balance untouched.
	_, err = d.Enter(userCtx, &model.EnterDrawRequest{
		DrawID:         draw.ID,
		Tickets:        3,
		IdempotencyKey: "buy-2",
	})
	require.Equal(t, errorx.New(errorx.InsufficientPoints, "Not enough points for 3 tickets"), err)

	balance, err := ledger.Balance(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(40), balance)

	stored, err := repository.NewDrawRepository().GetByID(ctx, draw.ID)
	require.NoError(t, err)
	require.Equal(t, 3, stored.TotalTickets)
}

func Test_drawDomain_Enter_idempotencyReplay(t *testing.T) {
	ctx := testutil.MockContext()
	user, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	draw, err := testutil.SampleDraw(ctx, &entity.PrizeDraw{PointsPerTicket: 20})
	require.NoError(t, err)

	d, ledger := newTestDrawDomain()
	_, err = ledger.Append(ctx, user.ID, 100, entity.PointsReasonTaskCompleted, "")
	require.NoError(t, err)

	userCtx := xcontext.WithRequestUserID(ctx, user.ID)
	req := &model.EnterDrawRequest{DrawID: draw.ID, Tickets: 2, IdempotencyKey: "retry-me"}

	first, err := d.Enter(userCtx, req)
	require.NoError(t, err)

	// A replay with the same key returns the original entry and charges
	// nothing.
	second, err := d.Enter(userCtx, req)
	require.NoError(t, err)
	require.Equal(t, first.Entry.ID, second.Entry.ID)
	require.Equal(t, int64(60), second.TotalPoints)

	entries, err := repository.NewEntryRepository().GetByDrawID(ctx, draw.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func Test_drawDomain_Enter_notActive(t *testing.T) {
	ctx := testutil.MockContext()
	user, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	d, ledger := newTestDrawDomain()
	_, err = ledger.Append(ctx, user.ID, 100, entity.PointsReasonTaskCompleted, "")
	require.NoError(t, err)

	// A draw whose status was never swept to closed still rejects entries
	// once its window has passed.
	now := time.Now()
	stale, err := testutil.SampleDraw(ctx, &entity.PrizeDraw{
		StartTime: now.Add(-2 * time.Hour),
		EndTime:   now.Add(-time.Hour),
	})
	require.NoError(t, err)

	userCtx := xcontext.WithRequestUserID(ctx, user.ID)
	_, err = d.Enter(userCtx, &model.EnterDrawRequest{DrawID: stale.ID, Tickets: 1})
	require.Equal(t, errorx.New(errorx.DrawNotActive, "The draw is not open for entries"), err)

	scheduled, err := testutil.SampleDraw(ctx, &entity.PrizeDraw{
		Status:    entity.DrawStatusScheduled,
		StartTime: now.Add(time.Hour),
		EndTime:   now.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	_, err = d.Enter(userCtx, &model.EnterDrawRequest{DrawID: scheduled.ID, Tickets: 1})
	require.Equal(t, errorx.New(errorx.DrawNotActive, "The draw is not open for entries"), err)

	balance, err := ledger.Balance(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(100), balance)
}

func Test_drawDomain_Enter_ticketLimit(t *testing.T) {
	ctx := testutil.MockContext()
	user, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	draw, err := testutil.SampleDraw(ctx, &entity.PrizeDraw{
		PointsPerTicket:   1,
		MaxTicketsPerUser: 5,
	})
	require.NoError(t, err)

	d, ledger := newTestDrawDomain()
	_, err = ledger.Append(ctx, user.ID, 100, entity.PointsReasonTaskCompleted, "")
	require.NoError(t, err)

	userCtx := xcontext.WithRequestUserID(ctx, user.ID)
	_, err = d.Enter(userCtx, &model.EnterDrawRequest{
		DrawID: draw.ID, Tickets: 3, IdempotencyKey: "first",
	})
	require.NoError(t, err)

	_, err = d.Enter(userCtx, &model.EnterDrawRequest{
		DrawID: draw.ID, Tickets: 3, IdempotencyKey: "second",
	})
	require.Equal(t,
		errorx.New(errorx.TicketLimitExceeded, "This draw allows at most 5 tickets per user"), err)

	// Another user is not affected by the first one's counter.
	other, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	_, err = ledger.Append(ctx, other.ID, 100, entity.PointsReasonTaskCompleted, "")
	require.NoError(t, err)

	otherCtx := xcontext.WithRequestUserID(ctx, other.ID)
	_, err = d.Enter(otherCtx, &model.EnterDrawRequest{
		DrawID: draw.ID, Tickets: 5, IdempotencyKey: "first",
	})
	require.NoError(t, err)
}

func Test_drawDomain_Enter_invalidTicketCount(t *testing.T) {
	ctx := testutil.MockContextWithUserID("someone")
	d, _ := newTestDrawDomain()

	_, err := d.Enter(ctx, &model.EnterDrawRequest{DrawID: "whatever", Tickets: 0})
	require.Equal(t,
		errorx.New(errorx.BadRequest, "The number of tickets must be a positive number"), err)
}

func Test_drawDomain_Enter_costOverflow(t *testing.T) {
	ctx := testutil.MockContext()
	user, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	draw, err := testutil.SampleDraw(ctx, &entity.PrizeDraw{PointsPerTicket: 20})
	require.NoError(t, err)

	d, ledger := newTestDrawDomain()

	// A huge ticket count would wrap the cost into zero or negative, turning
	// the purchase into a free entry for a user with no points at all.
	userCtx := xcontext.WithRequestUserID(ctx, user.ID)
	_, err = d.Enter(userCtx, &model.EnterDrawRequest{
		DrawID: draw.ID, Tickets: 1 << 62, IdempotencyKey: "huge",
	})
	require.Equal(t,
		errorx.New(errorx.BadRequest, "Cannot buy more than %d tickets at once", 1_000_000), err)

	// A modest count against an absurd price must not wrap either.
	expensive, err := testutil.SampleDraw(ctx, &entity.PrizeDraw{
		PointsPerTicket: math.MaxInt64 / 2,
	})
	require.NoError(t, err)

	_, err = d.Enter(userCtx, &model.EnterDrawRequest{
		DrawID: expensive.ID, Tickets: 3, IdempotencyKey: "expensive",
	})
	require.Equal(t, errorx.New(errorx.BadRequest, "The purchase cost is out of range"), err)

	balance, err := ledger.Balance(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), balance)

	entries, err := repository.NewEntryRepository().GetByDrawID(ctx, draw.ID)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func Test_drawDomain_Enter_concurrentPurchases(t *testing.T) {
	ctx := testutil.MockContext()
	user, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	draw, err := testutil.SampleDraw(ctx, &entity.PrizeDraw{PointsPerTicket: 20})
	require.NoError(t, err)

	d, ledger := newTestDrawDomain()
	_, err = ledger.Append(ctx, user.ID, 100, entity.PointsReasonTaskCompleted, "")
	require.NoError(t, err)

	// Two simultaneous purchases of 60 points each against a balance of 100.
	// Exactly one must win; the loser must leave no trace.
	userCtx := xcontext.WithRequestUserID(ctx, user.ID)
	results := make([]error, 2)
	var group errgroup.Group
	for i := range results {
		i := i
		group.Go(func() error {
			_, results[i] = d.Enter(userCtx, &model.EnterDrawRequest{
				DrawID:         draw.ID,
				Tickets:        3,
				IdempotencyKey: fmt.Sprintf("concurrent-%d", i),
			})
			return nil
		})
	}
	require.NoError(t, group.Wait())

	var rejected int
	for _, err := range results {
		if err == nil {
			continue
		}

		var errx errorx.Error
		require.ErrorAs(t, err, &errx)
		require.Equal(t, errorx.InsufficientPoints, errx.Code)
		rejected++
	}
	require.Equal(t, 1, rejected)

	balance, err := ledger.Balance(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(40), balance)

	entries, err := repository.NewEntryRepository().GetByDrawID(ctx, draw.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func Test_drawDomain_Cancel(t *testing.T) {
	ctx := testutil.MockContext()
	user, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	draw, err := testutil.SampleDraw(ctx, &entity.PrizeDraw{PointsPerTicket: 20})
	require.NoError(t, err)

	d, ledger := newTestDrawDomain()
	_, err = ledger.Append(ctx, user.ID, 100, entity.PointsReasonTaskCompleted, "")
	require.NoError(t, err)

	userCtx := xcontext.WithRequestUserID(ctx, user.ID)
	_, err = d.Enter(userCtx, &model.EnterDrawRequest{DrawID: draw.ID, Tickets: 3})
	require.NoError(t, err)

	_, err = d.Cancel(ctx, &model.CancelDrawRequest{DrawID: draw.ID})
	require.NoError(t, err)

	// The full charge comes back and the entry no longer counts anywhere.
	balance, err := ledger.Balance(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(100), balance)

	entries, err := repository.NewEntryRepository().GetByDrawID(ctx, draw.ID)
	require.NoError(t, err)
	require.Empty(t, entries)

	stored, err := repository.NewDrawRepository().GetByID(ctx, draw.ID)
	require.NoError(t, err)
	require.Equal(t, entity.DrawStatusCancelled, stored.Status)

	// Cancelling twice is rejected, and so is re-entering.
	_, err = d.Cancel(ctx, &model.CancelDrawRequest{DrawID: draw.ID})
	require.Equal(t, errorx.New(errorx.Unavailable, "The draw is already finished"), err)

	_, err = d.Enter(userCtx, &model.EnterDrawRequest{DrawID: draw.ID, Tickets: 1})
	require.Equal(t, errorx.New(errorx.DrawNotActive, "The draw is not open for entries"), err)
}

// versionRacingDrawRepository loses the optimistic status update a fixed
// number of times before delegating, simulating a concurrent transition.
type versionRacingDrawRepository struct {
	repository.DrawRepository
	lostRaces int
}

func (r *versionRacingDrawRepository) UpdateStatus(
	ctx context.Context, drawID string, from, to entity.DrawStatus, version int,
) error {
	if r.lostRaces > 0 {
		r.lostRaces--
		return gorm.ErrRecordNotFound
	}

	return r.DrawRepository.UpdateStatus(ctx, drawID, from, to, version)
}

func Test_drawDomain_Cancel_retriesLostVersionRace(t *testing.T) {
	ctx := testutil.MockContext()
	user, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)

	draw, err := testutil.SampleDraw(ctx, &entity.PrizeDraw{PointsPerTicket: 20})
	require.NoError(t, err)

	ledger := NewLedger(repository.NewPointsRepository())
	_, err = ledger.Append(ctx, user.ID, 100, entity.PointsReasonTaskCompleted, "")
	require.NoError(t, err)

	racing := &versionRacingDrawRepository{
		DrawRepository: repository.NewDrawRepository(),
		lostRaces:      1,
	}
	d := NewDrawDomain(
		racing,
		repository.NewEntryRepository(),
		repository.NewDrawResultRepository(),
		ledger,
		&testutil.MockRedisClient{},
	)

	userCtx := xcontext.WithRequestUserID(ctx, user.ID)
	_, err = d.Enter(userCtx, &model.EnterDrawRequest{DrawID: draw.ID, Tickets: 2})
	require.NoError(t, err)

	// One lost race is absorbed by a fresh read and a second attempt.
	_, err = d.Cancel(ctx, &model.CancelDrawRequest{DrawID: draw.ID})
	require.NoError(t, err)

	balance, err := ledger.Balance(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(100), balance)

	stored, err := repository.NewDrawRepository().GetByID(ctx, draw.ID)
	require.NoError(t, err)
	require.Equal(t, entity.DrawStatusCancelled, stored.Status)
}

func Test_drawDomain_Cancel_surfacesPersistentRace(t *testing.T) {
	ctx := testutil.MockContext()
	draw, err := testutil.SampleDraw(ctx, nil)
	require.NoError(t, err)

	racing := &versionRacingDrawRepository{
		DrawRepository: repository.NewDrawRepository(),
		lostRaces:      cancelMaxRetries,
	}
	d := NewDrawDomain(
		racing,
		repository.NewEntryRepository(),
		repository.NewDrawResultRepository(),
		NewLedger(repository.NewPointsRepository()),
		&testutil.MockRedisClient{},
	)

	_, err = d.Cancel(ctx, &model.CancelDrawRequest{DrawID: draw.ID})
	require.Equal(t,
		errorx.New(errorx.Unavailable, "The draw was changed concurrently, try again"), err)
}

func Test_drawDomain_GetList_usesCache(t *testing.T) {
	ctx := testutil.MockContext()
	_, err := testutil.SampleDraw(ctx, nil)
	require.NoError(t, err)

	cached := false
	redisClient := &testutil.MockRedisClient{
		SetObjFunc: func(_ context.Context, _ string, _ any, _ time.Duration) error {
			cached = true
			return nil
		},
	}

	d := NewDrawDomain(
		repository.NewDrawRepository(),
		repository.NewEntryRepository(),
		repository.NewDrawResultRepository(),
		NewLedger(repository.NewPointsRepository()),
		redisClient,
	)

	resp, err := d.GetList(ctx, &model.GetDrawsRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Draws, 1)
	require.True(t, cached)
}

func Test_drawDomain_GetResult_notFound(t *testing.T) {
	ctx := testutil.MockContext()
	d, _ := newTestDrawDomain()

	_, err := d.GetResult(ctx, &model.GetDrawResultRequest{DrawID: "nothing"})
	require.Equal(t, errorx.New(errorx.NotFound, "The draw has no result yet"), err)
}
