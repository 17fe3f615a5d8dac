package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/sentinel-futures/internal/database"
	"github.com/aristath/sentinel-futures/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// runsColumns is the column list for the runs table, in scanRun order
const runsColumns = `id, kind, status, started_at, finished_at, selection, error, report`

// Repository stores runs in the journal database
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a journal repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "journal").Logger(),
	}
}

// Record inserts run and its order results in one transaction. A missing ID is generated.
func (r *Repository) Record(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	selection, err := json.Marshal(run.Selection)
	if err != nil {
		return fmt.Errorf("failed to encode selection: %w", err)
	}

	var finishedAt sql.NullInt64
	if run.FinishedAt != nil {
		finishedAt = sql.NullInt64{Int64: run.FinishedAt.UnixMilli(), Valid: true}
	}

	err = database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runs (`+runsColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			string(run.Kind),
			string(run.Status),
			run.StartedAt.UnixMilli(),
			finishedAt,
			string(selection),
			nullString(run.Error),
			nullString(run.Report),
		)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		for seq, o := range run.Orders {
			var orderID sql.NullString
			var avgPrice, cumQuote sql.NullFloat64
			if o.Fill != nil {
				orderID = nullString(o.Fill.OrderID)
				avgPrice = sql.NullFloat64{Float64: o.Fill.AvgPrice, Valid: true}
				cumQuote = sql.NullFloat64{Float64: o.Fill.CumQuote, Valid: true}
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO order_results
				(run_id, seq, symbol, side, quantity, status, order_id, avg_price, cum_quote, error)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				run.ID, seq, o.Symbol, nullString(string(o.Side)), o.Quantity, string(o.Status),
				orderID, avgPrice, cumQuote, nullString(o.Error),
			)
			if err != nil {
				return fmt.Errorf("failed to insert order result %s: %w", o.Symbol, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Debug().
		Str("run_id", run.ID).
		Str("kind", string(run.Kind)).
		Str("status", string(run.Status)).
		Int("orders", len(run.Orders)).
		Msg("Run recorded")
	return nil
}

// Get returns a run with its order results
func (r *Repository) Get(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+runsColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}

	orders, err := r.orders(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Orders = orders
	return run, nil
}

// List returns the most recent runs without their order results, newest first
func (r *Repository) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+runsColumns+" FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

func (r *Repository) orders(ctx context.Context, runID string) ([]domain.OrderResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, side, quantity, status, order_id, avg_price, cum_quote, error
		FROM order_results WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order results: %w", err)
	}
	defer rows.Close()

	var out []domain.OrderResult
	for rows.Next() {
		var (
			o                  domain.OrderResult
			side, orderID, msg sql.NullString
			status             string
			avgPrice, cumQuote sql.NullFloat64
		)
		if err := rows.Scan(&o.Symbol, &side, &o.Quantity, &status, &orderID, &avgPrice, &cumQuote, &msg); err != nil {
			return nil, fmt.Errorf("failed to scan order result: %w", err)
		}
		o.Side = domain.OrderSide(side.String)
		o.Status = domain.OrderStatus(status)
		o.Error = msg.String
		if avgPrice.Valid || orderID.Valid {
			o.Fill = &domain.OrderFill{
				OrderID:     orderID.String,
				Symbol:      o.Symbol,
				Side:        o.Side,
				ExecutedQty: o.Quantity,
				AvgPrice:    avgPrice.Float64,
				CumQuote:    cumQuote.Float64,
			}
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run                  Run
		kind, status         string
		startedAt            int64
		finishedAt           sql.NullInt64
		selection, msg, body sql.NullString
	)
	if err := s.Scan(&run.ID, &kind, &status, &startedAt, &finishedAt, &selection, &msg, &body); err != nil {
		return nil, err
	}

	run.Kind = RunKind(kind)
	run.Status = RunStatus(status)
	run.StartedAt = time.UnixMilli(startedAt).UTC()
	if finishedAt.Valid {
		t := time.UnixMilli(finishedAt.Int64).UTC()
		run.FinishedAt = &t
	}
	if selection.Valid && selection.String != "" {
		if err := json.Unmarshal([]byte(selection.String), &run.Selection); err != nil {
			return nil, fmt.Errorf("failed to decode selection: %w", err)
		}
	}
	run.Error = msg.String
	run.Report = body.String
	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Recorder = (*Repository)(nil)
