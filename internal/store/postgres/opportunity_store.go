package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/eventarb/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL. Each
// row records the best bundle of a detected opportunity together with the
// accept/reject decision, so rejection reasons stay auditable long after the
// scan batch is gone.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates a new OpportunityStore backed by the given pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

// Insert records a detected opportunity and its decision.
func (s *OpportunityStore) Insert(ctx context.Context, opp domain.Opportunity, accepted bool, reason string) error {
	bundle, ok := opp.BestBundle()
	if !ok {
		return fmt.Errorf("postgres: opportunity %s has no bundle", opp.ID)
	}

	const query = `
		INSERT INTO opportunities (
			id, event_id, title, side, legs, shares,
			cost, min_payout, worst_case_profit,
			accepted, reject_reason, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.pool.Exec(ctx, query,
		opp.ID, opp.EventID, opp.Event.Title, string(bundle.Side),
		len(opp.Markets), opp.NormalizedShares,
		bundle.Cost, bundle.MinPayout, bundle.WorstCaseProfit,
		accepted, reason, opp.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// ListRecent returns the most recently detected opportunities.
func (s *OpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	const query = `
		SELECT id, event_id, title, side, shares,
		       cost, min_payout, worst_case_profit, detected_at
		FROM opportunities ORDER BY detected_at DESC LIMIT $1`
	return s.list(ctx, query, limit)
}

// ListBefore returns opportunities detected before the given time.
func (s *OpportunityStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Opportunity, error) {
	const query = `
		SELECT id, event_id, title, side, shares,
		       cost, min_payout, worst_case_profit, detected_at
		FROM opportunities WHERE detected_at < $1 ORDER BY detected_at`
	return s.list(ctx, query, before)
}

// DeleteBefore removes opportunities detected before the given time and
// returns the number of rows deleted.
func (s *OpportunityStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM opportunities WHERE detected_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete opportunities before %s: %w", before, err)
	}
	return tag.RowsAffected(), nil
}

func (s *OpportunityStore) list(ctx context.Context, query string, arg any) ([]domain.Opportunity, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities: %w", err)
	}
	defer rows.Close()

	var out []domain.Opportunity
	for rows.Next() {
		var (
			opp    domain.Opportunity
			bundle domain.ArbitrageBundle
			side   string
		)
		if err := rows.Scan(
			&opp.ID, &opp.EventID, &opp.Event.Title, &side, &opp.NormalizedShares,
			&bundle.Cost, &bundle.MinPayout, &bundle.WorstCaseProfit, &opp.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		bundle.Side = domain.BundleSide(side)
		bundle.IsArbitrage = bundle.WorstCaseProfit > domain.ProfitEpsilon
		opp.Event.ID = opp.EventID
		opp.Bundles = []domain.ArbitrageBundle{bundle}
		out = append(out, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate opportunities: %w", err)
	}
	return out, nil
}
