package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/eventarb/internal/domain"
)

// ExecutionStore implements domain.ExecutionStore using PostgreSQL.
type ExecutionStore struct {
	pool *pgxpool.Pool
}

// NewExecutionStore creates a new ExecutionStore backed by the given pool.
func NewExecutionStore(pool *pgxpool.Pool) *ExecutionStore {
	return &ExecutionStore{pool: pool}
}

// Create inserts an execution outcome and its legs in one transaction.
func (s *ExecutionStore) Create(ctx context.Context, o domain.ExecutionOutcome) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin execution tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertExec = `
		INSERT INTO executions (
			id, event_id, side, orders_placed, rolled_back,
			cost, expected_min, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if _, err := tx.Exec(ctx, insertExec,
		o.ID, o.EventID, string(o.Side), o.OrdersPlaced, o.RolledBack,
		o.Cost, o.ExpectedMin, o.StartedAt, o.CompletedAt,
	); err != nil {
		return fmt.Errorf("postgres: create execution %s: %w", o.ID, err)
	}

	const insertLeg = `
		INSERT INTO execution_legs (
			execution_id, seq, market_id, token_id, order_id,
			limit_price, size, success, error_msg
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for i, leg := range o.Legs {
		if _, err := tx.Exec(ctx, insertLeg,
			o.ID, i, leg.MarketID, leg.TokenID, leg.OrderID,
			leg.LimitPrice, leg.Size, leg.Success, leg.Error,
		); err != nil {
			return fmt.Errorf("postgres: create execution leg %s/%d: %w", o.ID, i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit execution %s: %w", o.ID, err)
	}
	return nil
}

// GetByID returns one execution with its legs.
func (s *ExecutionStore) GetByID(ctx context.Context, id string) (domain.ExecutionOutcome, error) {
	const query = `
		SELECT id, event_id, side, orders_placed, rolled_back,
		       cost, expected_min, started_at, completed_at
		FROM executions WHERE id = $1`

	var o domain.ExecutionOutcome
	var side string
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.EventID, &side, &o.OrdersPlaced, &o.RolledBack,
		&o.Cost, &o.ExpectedMin, &o.StartedAt, &o.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ExecutionOutcome{}, fmt.Errorf("postgres: execution %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.ExecutionOutcome{}, fmt.Errorf("postgres: get execution %s: %w", id, err)
	}
	o.Side = domain.BundleSide(side)

	legs, err := s.legsFor(ctx, o.ID)
	if err != nil {
		return domain.ExecutionOutcome{}, err
	}
	o.Legs = legs
	return o, nil
}

// ListRecent returns the most recently started executions, legs included.
func (s *ExecutionStore) ListRecent(ctx context.Context, limit int) ([]domain.ExecutionOutcome, error) {
	const query = `
		SELECT id, event_id, side, orders_placed, rolled_back,
		       cost, expected_min, started_at, completed_at
		FROM executions ORDER BY started_at DESC LIMIT $1`
	return s.list(ctx, query, limit)
}

// ListBefore returns executions started before the given time.
func (s *ExecutionStore) ListBefore(ctx context.Context, before time.Time) ([]domain.ExecutionOutcome, error) {
	const query = `
		SELECT id, event_id, side, orders_placed, rolled_back,
		       cost, expected_min, started_at, completed_at
		FROM executions WHERE started_at < $1 ORDER BY started_at`
	return s.list(ctx, query, before)
}

// DeleteBefore removes executions started before the given time and returns
// the number of rows deleted. Legs cascade.
func (s *ExecutionStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM executions WHERE started_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete executions before %s: %w", before, err)
	}
	return tag.RowsAffected(), nil
}

func (s *ExecutionStore) list(ctx context.Context, query string, arg any) ([]domain.ExecutionOutcome, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("postgres: list executions: %w", err)
	}
	defer rows.Close()

	var out []domain.ExecutionOutcome
	for rows.Next() {
		var o domain.ExecutionOutcome
		var side string
		if err := rows.Scan(
			&o.ID, &o.EventID, &side, &o.OrdersPlaced, &o.RolledBack,
			&o.Cost, &o.ExpectedMin, &o.StartedAt, &o.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan execution: %w", err)
		}
		o.Side = domain.BundleSide(side)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate executions: %w", err)
	}

	for i := range out {
		legs, err := s.legsFor(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Legs = legs
	}
	return out, nil
}

func (s *ExecutionStore) legsFor(ctx context.Context, executionID string) ([]domain.LegOutcome, error) {
	const query = `
		SELECT market_id, token_id, order_id, limit_price, size, success, error_msg
		FROM execution_legs WHERE execution_id = $1 ORDER BY seq`

	rows, err := s.pool.Query(ctx, query, executionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list legs for %s: %w", executionID, err)
	}
	defer rows.Close()

	var legs []domain.LegOutcome
	for rows.Next() {
		var l domain.LegOutcome
		if err := rows.Scan(&l.MarketID, &l.TokenID, &l.OrderID, &l.LimitPrice, &l.Size, &l.Success, &l.Error); err != nil {
			return nil, fmt.Errorf("postgres: scan leg: %w", err)
		}
		legs = append(legs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate legs: %w", err)
	}
	return legs, nil
}
