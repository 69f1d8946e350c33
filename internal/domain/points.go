package domain

import (
	"context"

	"github.com/flowjournal/backend/internal/model"
	"github.com/flowjournal/backend/internal/repository"
	"github.com/flowjournal/backend/pkg/errorx"
	"github.com/flowjournal/backend/pkg/xcontext"
)

type PointsDomain interface {
	GetMyPoints(context.Context, *model.GetMyPointsRequest) (*model.GetMyPointsResponse, error)
	GetHistory(context.Context, *model.GetPointsHistoryRequest) (*model.GetPointsHistoryResponse, error)
}

type pointsDomain struct {
	pointsRepo repository.PointsRepository
	ledger     *Ledger
}

func NewPointsDomain(pointsRepo repository.PointsRepository, ledger *Ledger) *pointsDomain {
	return &pointsDomain{pointsRepo: pointsRepo, ledger: ledger}
}

func (d *pointsDomain) GetMyPoints(
	ctx context.Context, req *model.GetMyPointsRequest,
) (*model.GetMyPointsResponse, error) {
	balance, err := d.ledger.Balance(ctx, xcontext.RequestUserID(ctx))
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get balance: %v", err)
		return nil, errorx.Unknown
	}

	return &model.GetMyPointsResponse{TotalPoints: balance}, nil
}

func (d *pointsDomain) GetHistory(
	ctx context.Context, req *model.GetPointsHistoryRequest,
) (*model.GetPointsHistoryResponse, error) {
	apiCfg := xcontext.Configs(ctx).ApiServer

	limit := req.Limit
	if limit == 0 {
		limit = apiCfg.DefaultLimit
	}

	if limit < 0 || limit > apiCfg.MaxLimit {
		return nil, errorx.New(errorx.BadRequest, "Exceeded the maximum limit of %d", apiCfg.MaxLimit)
	}

	txs, err := d.pointsRepo.GetTransactionsByUserID(
		ctx, xcontext.RequestUserID(ctx), req.Offset, limit)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get points history: %v", err)
		return nil, errorx.Unknown
	}

	clientTxs := []model.PointsTransaction{}
	for i := range txs {
		clientTxs = append(clientTxs, convertPointsTransaction(&txs[i]))
	}

	return &model.GetPointsHistoryResponse{Transactions: clientTxs}, nil
}
