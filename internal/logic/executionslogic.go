package logic

import (
	"context"
	"errors"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"tradegate/internal/svc"
	"tradegate/internal/types"
	"tradegate/pkg/executor"
)

// ErrNoAuditStore is returned when neither Postgres nor the journal is configured.
var ErrNoAuditStore = errors.New("no execution store configured")

const maxExecutionsLimit = 500

type ExecutionsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewExecutionsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ExecutionsLogic {
	return &ExecutionsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Recent lists the newest executions first, preferring Postgres over the journal.
func (l *ExecutionsLogic) Recent(req *types.ExecutionsRequest) (*types.ExecutionsResponse, error) {
	limit := req.Limit
	if limit <= 0 || limit > maxExecutionsLimit {
		limit = maxExecutionsLimit
	}
	symbol := strings.TrimSpace(req.Symbol)
	if symbol != "" {
		engine, _, err := l.svcCtx.Resolve(req.Gateway)
		if err != nil {
			return nil, err
		}
		symbol = engine.Gateway().ConvertSymbol(symbol)
	}

	switch {
	case l.svcCtx.Repos != nil:
		recs, err := l.svcCtx.Repos.Executions.Recent(l.ctx, symbol, limit)
		if err != nil {
			return nil, err
		}
		return &types.ExecutionsResponse{Source: "postgres", Executions: nonNilRecords(recs)}, nil
	case l.svcCtx.Journal != nil:
		recs, err := l.svcCtx.Journal.Find(symbol)
		if err != nil {
			return nil, err
		}
		newest := make([]executor.ExecutionRecord, 0, min(limit, len(recs)))
		for i := len(recs) - 1; i >= 0 && len(newest) < limit; i-- {
			newest = append(newest, recs[i])
		}
		return &types.ExecutionsResponse{Source: "journal", Executions: newest}, nil
	default:
		return nil, ErrNoAuditStore
	}
}

func nonNilRecords(recs []executor.ExecutionRecord) []executor.ExecutionRecord {
	if recs == nil {
		return []executor.ExecutionRecord{}
	}
	return recs
}
