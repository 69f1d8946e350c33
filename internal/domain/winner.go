package domain

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/flowjournal/backend/internal/entity"
	"github.com/flowjournal/backend/internal/repository"
	"github.com/flowjournal/backend/pkg/crypto"
	"github.com/flowjournal/backend/pkg/xcontext"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WinnerSelector picks at most one winner per draw. Each non-voided entry
// occupies ticket_count equally likely slots; the drawn slot comes from a
// PRNG seeded with a recorded value, so the outcome can be re-derived from
// the stored result and the entry pool.
type WinnerSelector struct {
	drawRepo   repository.DrawRepository
	entryRepo  repository.EntryRepository
	resultRepo repository.DrawResultRepository
}

func NewWinnerSelector(
	drawRepo repository.DrawRepository,
	entryRepo repository.EntryRepository,
	resultRepo repository.DrawResultRepository,
) *WinnerSelector {
	return &WinnerSelector{
		drawRepo:   drawRepo,
		entryRepo:  entryRepo,
		resultRepo: resultRepo,
	}
}

// SelectWinner runs the selection once per draw. Calling it again, from any
// process, returns the stored result unchanged; the unique index on draw_id
// settles concurrent first calls.
func (s *WinnerSelector) SelectWinner(ctx context.Context, drawID string) (*entity.DrawResult, error) {
	result, err := s.resultRepo.GetByDrawID(ctx, drawID)
	if err == nil {
		return result, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	draw, err := s.drawRepo.GetByID(ctx, drawID)
	if err != nil {
		return nil, err
	}

	if draw.Status != entity.DrawStatusClosed && draw.Status != entity.DrawStatusDrawn {
		return nil, fmt.Errorf("cannot select a winner for draw %s in status %s", drawID, draw.Status)
	}

	entries, err := s.entryRepo.GetByDrawID(ctx, drawID)
	if err != nil {
		return nil, err
	}

	secret := xcontext.Configs(ctx).Draw.SelectionSecret
	seed := crypto.HMAC(
		sha256.New,
		[]byte(draw.ID+"|"+draw.EndTime.UTC().Format(time.RFC3339)),
		[]byte(secret),
	)

	result = &entity.DrawResult{
		Base:          entity.Base{ID: uuid.NewString()},
		DrawID:        draw.ID,
		SelectionSeed: seed,
		DrawnAt:       time.Now(),
	}

	// A draw that closed with no entries still gets a result row; the winner
	// fields just stay null.
	if len(entries) > 0 {
		winner, err := pickWeighted(seed, entries)
		if err != nil {
			return nil, err
		}

		result.WinningEntryID = sql.NullString{String: winner.ID, Valid: true}
		result.WinningUserID = sql.NullString{String: winner.UserID, Valid: true}
	}

	if err := s.resultRepo.Create(ctx, result); err != nil {
		return nil, err
	}

	// A concurrent selection may have won the insert; the stored row is the
	// truth either way.
	return s.resultRepo.GetByDrawID(ctx, drawID)
}

func pickWeighted(seed string, entries []entity.DrawEntry) (*entity.DrawEntry, error) {
	seedInt, err := crypto.SeedInt64(seed)
	if err != nil {
		return nil, err
	}

	var totalTickets int64
	for _, entry := range entries {
		totalTickets += int64(entry.TicketCount)
	}

	slot := rand.New(rand.NewSource(seedInt)).Int63n(totalTickets)
	for i := range entries {
		if slot < int64(entries[i].TicketCount) {
			return &entries[i], nil
		}

		slot -= int64(entries[i].TicketCount)
	}

	// Unreachable: slot < totalTickets and the loop consumes exactly
	// totalTickets slots.
	return nil, fmt.Errorf("selection slot out of range")
}
