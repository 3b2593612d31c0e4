package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"tradegate/pkg/executor"
)

// ExecutionsRepo persists the execution audit trail. It doubles as an
// executor.Recorder.
type ExecutionsRepo interface {
	executor.Recorder
	// Insert stores rec; re-inserting the same id is a no-op.
	Insert(ctx context.Context, rec executor.ExecutionRecord) error
	// Recent returns executions ordered by finish time descending. An empty
	// symbol matches every symbol.
	Recent(ctx context.Context, symbol string, limit int) ([]executor.ExecutionRecord, error)
}

type executionsRepo struct {
	conn sqlx.SqlConn
}

func newExecutionsRepo(deps Dependencies) ExecutionsRepo {
	return &executionsRepo{
		conn: deps.DBConn,
	}
}

const executionColumns = `
    id,
    gateway,
    symbol,
    side,
    order_type,
    requested_qty,
    submitted_qty,
    leverage,
    margin_mode,
    closing,
    reference_price,
    price_source,
    adjusted,
    order_id,
    order_status,
    success,
    error_message,
    warnings,
    steps,
    started_at,
    finished_at`

func (r *executionsRepo) Insert(ctx context.Context, rec executor.ExecutionRecord) error {
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("executionsRepo.Insert: id is required")
	}
	warnings, err := json.Marshal(nonNil(rec.Warnings))
	if err != nil {
		return fmt.Errorf("executionsRepo.Insert encode warnings: %w", err)
	}
	steps := rec.Steps
	if steps == nil {
		steps = []executor.StepRecord{}
	}
	stepsJSON, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("executionsRepo.Insert encode steps: %w", err)
	}

	query := `
INSERT INTO public.executions (` + executionColumns + `
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
ON CONFLICT (id) DO NOTHING`

	_, err = r.conn.ExecCtx(ctx, query,
		rec.ID,
		rec.Gateway,
		rec.Symbol,
		rec.Side,
		orDefault(rec.OrderType, "MARKET"),
		orDefault(rec.RequestedQty, "0"),
		orDefault(rec.SubmittedQty, "0"),
		rec.Leverage,
		nullString(rec.MarginMode),
		rec.Closing,
		nullString(rec.ReferencePx),
		nullString(rec.PriceSource),
		rec.Adjusted,
		nullString(rec.OrderID),
		nullString(rec.OrderStatus),
		rec.Success,
		nullString(rec.ErrorMessage),
		string(warnings),
		string(stepsJSON),
		rec.StartedAt,
		rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("executionsRepo.Insert exec: %w", err)
	}
	return nil
}

func (r *executionsRepo) RecordExecution(ctx context.Context, rec executor.ExecutionRecord) error {
	return r.Insert(ctx, rec)
}

func (r *executionsRepo) Recent(ctx context.Context, symbol string, limit int) ([]executor.ExecutionRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
SELECT` + executionColumns + `
FROM public.executions
WHERE ($1 = '' OR symbol = $1)
ORDER BY finished_at DESC
LIMIT $2`

	var rows []executionRow
	if err := r.conn.QueryRowsCtx(ctx, &rows, query, strings.ToUpper(strings.TrimSpace(symbol)), limit); err != nil {
		return nil, fmt.Errorf("executionsRepo.Recent query: %w", err)
	}

	result := make([]executor.ExecutionRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, fmt.Errorf("executionsRepo.Recent decode %s: %w", row.ID, err)
		}
		result = append(result, rec)
	}
	return result, nil
}

type executionRow struct {
	ID             string         `db:"id"`
	Gateway        string         `db:"gateway"`
	Symbol         string         `db:"symbol"`
	Side           string         `db:"side"`
	OrderType      string         `db:"order_type"`
	RequestedQty   string         `db:"requested_qty"`
	SubmittedQty   string         `db:"submitted_qty"`
	Leverage       int            `db:"leverage"`
	MarginMode     sql.NullString `db:"margin_mode"`
	Closing        bool           `db:"closing"`
	ReferencePrice sql.NullString `db:"reference_price"`
	PriceSource    sql.NullString `db:"price_source"`
	Adjusted       bool           `db:"adjusted"`
	OrderID        sql.NullString `db:"order_id"`
	OrderStatus    sql.NullString `db:"order_status"`
	Success        bool           `db:"success"`
	ErrorMessage   sql.NullString `db:"error_message"`
	Warnings       []byte         `db:"warnings"`
	Steps          []byte         `db:"steps"`
	StartedAt      time.Time      `db:"started_at"`
	FinishedAt     time.Time      `db:"finished_at"`
}

func (row executionRow) record() (executor.ExecutionRecord, error) {
	rec := executor.ExecutionRecord{
		ID:           row.ID,
		Gateway:      row.Gateway,
		Symbol:       row.Symbol,
		Side:         row.Side,
		OrderType:    row.OrderType,
		RequestedQty: row.RequestedQty,
		SubmittedQty: row.SubmittedQty,
		Leverage:     row.Leverage,
		MarginMode:   row.MarginMode.String,
		Closing:      row.Closing,
		ReferencePx:  row.ReferencePrice.String,
		PriceSource:  row.PriceSource.String,
		Adjusted:     row.Adjusted,
		OrderID:      row.OrderID.String,
		OrderStatus:  row.OrderStatus.String,
		Success:      row.Success,
		ErrorMessage: row.ErrorMessage.String,
		StartedAt:    row.StartedAt,
		FinishedAt:   row.FinishedAt,
	}
	if len(row.Warnings) > 0 {
		if err := json.Unmarshal(row.Warnings, &rec.Warnings); err != nil {
			return rec, err
		}
	}
	if len(row.Steps) > 0 {
		if err := json.Unmarshal(row.Steps, &rec.Steps); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
