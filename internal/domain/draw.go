package domain

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/flowjournal/backend/internal/entity"
	"github.com/flowjournal/backend/internal/model"
	"github.com/flowjournal/backend/internal/repository"
	"github.com/flowjournal/backend/pkg/errorx"
	"github.com/flowjournal/backend/pkg/xcontext"
	"github.com/flowjournal/backend/pkg/xredis"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const activeDrawsCacheKey = "draws:active"

// enterMaxRetries bounds retries of the purchase transaction on transient
// storage failures. Business rejections are never retried.
const enterMaxRetries = 3

// cancelMaxRetries bounds transparent retries of the cancel transition when
// it loses the optimistic version race.
const cancelMaxRetries = 3

// maxTicketsPerEnter bounds a single purchase. Together with the cost
// division check below it keeps the cost arithmetic inside int64.
const maxTicketsPerEnter = 1_000_000

type DrawDomain interface {
	Create(context.Context, *model.CreateDrawRequest) (*model.CreateDrawResponse, error)
	GetList(context.Context, *model.GetDrawsRequest) (*model.GetDrawsResponse, error)
	Get(context.Context, *model.GetDrawRequest) (*model.GetDrawResponse, error)
	Enter(context.Context, *model.EnterDrawRequest) (*model.EnterDrawResponse, error)
	Cancel(context.Context, *model.CancelDrawRequest) (*model.CancelDrawResponse, error)
	GetResult(context.Context, *model.GetDrawResultRequest) (*model.GetDrawResultResponse, error)
}

type drawDomain struct {
	drawRepo    repository.DrawRepository
	entryRepo   repository.EntryRepository
	resultRepo  repository.DrawResultRepository
	ledger      *Ledger
	redisClient xredis.Client
}

func NewDrawDomain(
	drawRepo repository.DrawRepository,
	entryRepo repository.EntryRepository,
	resultRepo repository.DrawResultRepository,
	ledger *Ledger,
	redisClient xredis.Client,
) *drawDomain {
	return &drawDomain{
		drawRepo:    drawRepo,
		entryRepo:   entryRepo,
		resultRepo:  resultRepo,
		ledger:      ledger,
		redisClient: redisClient,
	}
}

func (d *drawDomain) Create(
	ctx context.Context, req *model.CreateDrawRequest,
) (*model.CreateDrawResponse, error) {
	if req.Title == "" {
		return nil, errorx.New(errorx.BadRequest, "Require a title")
	}

	if req.PointsPerTicket <= 0 {
		return nil, errorx.New(errorx.BadRequest, "Points per ticket must be a positive number")
	}

	if req.MaxTicketsPerUser < 0 {
		return nil, errorx.New(errorx.BadRequest, "Max tickets per user cannot be negative")
	}

	if !req.EndTime.After(req.StartTime) {
		return nil, errorx.New(errorx.BadRequest, "End time must be after start time")
	}

	status := entity.DrawStatusActive
	if req.StartTime.After(time.Now()) {
		status = entity.DrawStatusScheduled
	}

	draw := &entity.PrizeDraw{
		Base:              entity.Base{ID: uuid.NewString()},
		Title:             req.Title,
		Description:       req.Description,
		Prize:             req.Prize,
		PointsPerTicket:   req.PointsPerTicket,
		MaxTicketsPerUser: req.MaxTicketsPerUser,
		Status:            status,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
	}

	if err := d.drawRepo.Create(ctx, draw); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create draw: %v", err)
		return nil, errorx.Unknown
	}

	d.invalidateListCache(ctx)
	return &model.CreateDrawResponse{Draw: convertPrizeDraw(draw)}, nil
}

func (d *drawDomain) GetList(
	ctx context.Context, req *model.GetDrawsRequest,
) (*model.GetDrawsResponse, error) {
	var cached []model.PrizeDraw
	if err := d.redisClient.GetObj(ctx, activeDrawsCacheKey, &cached); err == nil {
		return &model.GetDrawsResponse{Draws: cached}, nil
	}

	draws, err := d.drawRepo.GetActive(ctx, time.Now())
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get active draws: %v", err)
		return nil, errorx.Unknown
	}

	clientDraws := []model.PrizeDraw{}
	for i := range draws {
		clientDraws = append(clientDraws, convertPrizeDraw(&draws[i]))
	}

	ttl := xcontext.Configs(ctx).Draw.ActiveListTTL
	if err := d.redisClient.SetObj(ctx, activeDrawsCacheKey, clientDraws, ttl); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot cache active draws: %v", err)
	}

	return &model.GetDrawsResponse{Draws: clientDraws}, nil
}

func (d *drawDomain) Get(
	ctx context.Context, req *model.GetDrawRequest,
) (*model.GetDrawResponse, error) {
	draw, err := d.drawRepo.GetByID(ctx, req.DrawID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found draw")
		}

		xcontext.Logger(ctx).Errorf("Cannot get draw: %v", err)
		return nil, errorx.Unknown
	}

	return &model.GetDrawResponse{Draw: convertPrizeDraw(draw)}, nil
}

// Enter is the purchase hot path. The cap counter, the sold-ticket counter,
// the ledger debit, and the entry row change in one database transaction:
// either the user ends up with both the charge and the ticket, or with
// neither.
func (d *drawDomain) Enter(
	ctx context.Context, req *model.EnterDrawRequest,
) (*model.EnterDrawResponse, error) {
	if req.Tickets < 1 {
		return nil, errorx.New(errorx.BadRequest, "The number of tickets must be a positive number")
	}

	if req.Tickets > maxTicketsPerEnter {
		return nil, errorx.New(errorx.BadRequest,
			"Cannot buy more than %d tickets at once", maxTicketsPerEnter)
	}

	userID := xcontext.RequestUserID(ctx)

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}

	// A retried request returns the entry its first attempt produced, even
	// if the client never saw the original response.
	stored, err := d.entryRepo.GetByIdempotencyKey(ctx, userID, key)
	if err == nil {
		return d.enterResponse(ctx, stored)
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot look up idempotency key: %v", err)
		return nil, errorx.Unknown
	}

	draw, err := d.drawRepo.GetByID(ctx, req.DrawID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found draw")
		}

		xcontext.Logger(ctx).Errorf("Cannot get draw: %v", err)
		return nil, errorx.Unknown
	}

	now := time.Now()
	if draw.Status != entity.DrawStatusActive || !draw.EndTime.After(now) {
		return nil, errorx.New(errorx.DrawNotActive, "The draw is not open for entries")
	}

	// The cap above bounds the factor, but the price is unbounded; a wrapped
	// product would turn the debit below into a free or even crediting entry.
	cost := int64(req.Tickets) * draw.PointsPerTicket
	if cost/int64(req.Tickets) != draw.PointsPerTicket {
		return nil, errorx.New(errorx.BadRequest, "The purchase cost is out of range")
	}

	var entry *entity.DrawEntry
	attempt := func() error {
		txCtx := xcontext.WithDBTransaction(ctx)
		defer xcontext.WithRollbackDBTransaction(txCtx)

		err := d.entryRepo.IncreaseParticipation(
			txCtx, draw.ID, userID, req.Tickets, draw.MaxTicketsPerUser)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return backoff.Permanent(errorx.New(errorx.TicketLimitExceeded,
					"This draw allows at most %d tickets per user", draw.MaxTicketsPerUser))
			}

			return err
		}

		// The guard inside this UPDATE re-checks status and deadline, so a
		// stale active status loaded above cannot admit an entry into a draw
		// that already ended.
		if err := d.drawRepo.IncreaseTotalTickets(txCtx, draw.ID, req.Tickets, now); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return backoff.Permanent(errorx.New(errorx.DrawNotActive, "The draw is not open for entries"))
			}

			return err
		}

		e := &entity.DrawEntry{
			Base:           entity.Base{ID: uuid.NewString()},
			DrawID:         draw.ID,
			UserID:         userID,
			TicketCount:    req.Tickets,
			PointsSpent:    cost,
			IdempotencyKey: key,
		}

		if _, err := d.ledger.Append(
			txCtx, userID, -cost, entity.PointsReasonTicketPurchase, e.ID,
		); err != nil {
			if errors.Is(err, ErrInsufficientPoints) {
				return backoff.Permanent(errorx.New(errorx.InsufficientPoints,
					"Not enough points for %d tickets", req.Tickets))
			}

			return err
		}

		if err := d.entryRepo.Create(txCtx, e); err != nil {
			return err
		}

		xcontext.WithCommitDBTransaction(txCtx)
		entry = e
		return nil
	}

	err = backoff.Retry(attempt, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), enterMaxRetries))
	if err != nil {
		errx := errorx.Error{}
		if errors.As(err, &errx) {
			return nil, errx
		}

		// The insert can lose to a concurrent retry carrying the same key;
		// that retry's entry is this request's entry.
		if stored, lookupErr := d.entryRepo.GetByIdempotencyKey(ctx, userID, key); lookupErr == nil {
			return d.enterResponse(ctx, stored)
		}

		xcontext.Logger(ctx).Errorf("Cannot enter draw: %v", err)
		return nil, errorx.New(errorx.Unavailable, "Service is temporarily unavailable, try again")
	}

	return d.enterResponse(ctx, entry)
}

func (d *drawDomain) enterResponse(
	ctx context.Context, entry *entity.DrawEntry,
) (*model.EnterDrawResponse, error) {
	balance, err := d.ledger.Balance(ctx, entry.UserID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get balance: %v", err)
		return nil, errorx.Unknown
	}

	return &model.EnterDrawResponse{
		Entry:       convertDrawEntry(entry),
		TotalPoints: balance,
	}, nil
}

// Cancel moves a pre-drawn draw to cancelled and compensates every
// non-voided entry with a refund transaction, all in one database
// transaction. A lost version race is retried with a fresh read a bounded
// number of times before it surfaces to the caller.
func (d *drawDomain) Cancel(
	ctx context.Context, req *model.CancelDrawRequest,
) (*model.CancelDrawResponse, error) {
	for attempt := 0; attempt < cancelMaxRetries; attempt++ {
		draw, err := d.drawRepo.GetByID(ctx, req.DrawID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errorx.New(errorx.NotFound, "Not found draw")
			}

			xcontext.Logger(ctx).Errorf("Cannot get draw: %v", err)
			return nil, errorx.Unknown
		}

		if !draw.Status.CanTransitTo(entity.DrawStatusCancelled) {
			return nil, errorx.New(errorx.Unavailable, "The draw is already finished")
		}

		resp, err := d.cancelOnce(ctx, draw)
		if err != nil {
			// A concurrent transition took the version; reload and retry.
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}

			return nil, err
		}

		return resp, nil
	}

	return nil, errorx.New(errorx.Unavailable, "The draw was changed concurrently, try again")
}

func (d *drawDomain) cancelOnce(
	ctx context.Context, draw *entity.PrizeDraw,
) (*model.CancelDrawResponse, error) {
	txCtx := xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(txCtx)

	err := d.drawRepo.UpdateStatus(txCtx, draw.ID, draw.Status, entity.DrawStatusCancelled, draw.Version)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		xcontext.Logger(ctx).Errorf("Cannot cancel draw: %v", err)
		return nil, errorx.Unknown
	}

	entries, err := d.entryRepo.GetByDrawID(txCtx, draw.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get entries for refund: %v", err)
		return nil, errorx.Unknown
	}

	for _, entry := range entries {
		_, err := d.ledger.Append(
			txCtx, entry.UserID, entry.PointsSpent, entity.PointsReasonRefund, entry.ID)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot refund entry %s: %v", entry.ID, err)
			return nil, errorx.Unknown
		}
	}

	if err := d.entryRepo.VoidByDrawID(txCtx, draw.ID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot void entries: %v", err)
		return nil, errorx.Unknown
	}

	xcontext.WithCommitDBTransaction(txCtx)
	d.invalidateListCache(ctx)
	return &model.CancelDrawResponse{}, nil
}

func (d *drawDomain) GetResult(
	ctx context.Context, req *model.GetDrawResultRequest,
) (*model.GetDrawResultResponse, error) {
	result, err := d.resultRepo.GetByDrawID(ctx, req.DrawID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "The draw has no result yet")
		}

		xcontext.Logger(ctx).Errorf("Cannot get draw result: %v", err)
		return nil, errorx.Unknown
	}

	return &model.GetDrawResultResponse{Result: convertDrawResult(result)}, nil
}

func (d *drawDomain) invalidateListCache(ctx context.Context) {
	if err := d.redisClient.Del(ctx, activeDrawsCacheKey); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot invalidate draw list cache: %v", err)
	}
}
