package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matchpool/matchpool/internal/domain"
)

// BetStore implements domain.BetStore using PostgreSQL.
type BetStore struct {
	pool *pgxpool.Pool
}

// NewBetStore creates a new BetStore backed by the given connection pool.
func NewBetStore(pool *pgxpool.Pool) *BetStore {
	return &BetStore{pool: pool}
}

const betCols = `id, market_id, bettor, side, amount, placed_at, status, claimed_at`

func scanBet(row pgx.Row) (domain.Bet, error) {
	var b domain.Bet
	var amount int64
	var side, status string
	err := row.Scan(
		&b.ID, &b.MarketID, &b.Bettor, &side, &amount,
		&b.PlacedAt, &status, &b.ClaimedAt,
	)
	if err != nil {
		return domain.Bet{}, err
	}
	b.Side = domain.BetSide(side)
	b.Status = domain.BetStatus(status)
	b.Amount = uint64(amount)
	return b, nil
}

// GetByID retrieves a bet by its identifier.
func (s *BetStore) GetByID(ctx context.Context, id string) (domain.Bet, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+betCols+` FROM bets WHERE id = $1`, id)
	b, err := scanBet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Bet{}, domain.ErrNotFound
		}
		return domain.Bet{}, fmt.Errorf("postgres: get bet %s: %w", id, err)
	}
	return b, nil
}

// GetActive returns the bettor's live bet on the market, if any.
func (s *BetStore) GetActive(ctx context.Context, marketID, bettor string) (domain.Bet, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+betCols+` FROM bets
		 WHERE market_id = $1 AND bettor = $2 AND status = 'active'`,
		marketID, bettor)
	b, err := scanBet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Bet{}, domain.ErrNotFound
		}
		return domain.Bet{}, fmt.Errorf("postgres: get active bet %s/%s: %w", marketID, bettor, err)
	}
	return b, nil
}

// ListActiveBySide returns active bets on one side in placement order,
// oldest first, ties broken by ID.
func (s *BetStore) ListActiveBySide(ctx context.Context, marketID string, side domain.BetSide) ([]domain.Bet, error) {
	const query = `
		SELECT ` + betCols + ` FROM bets
		WHERE market_id = $1 AND side = $2 AND status = 'active'
		ORDER BY placed_at, id`
	return s.queryBets(ctx, query, marketID, string(side))
}

// ListActive returns all active bets on a market, both sides, in placement
// order.
func (s *BetStore) ListActive(ctx context.Context, marketID string) ([]domain.Bet, error) {
	const query = `
		SELECT ` + betCols + ` FROM bets
		WHERE market_id = $1 AND status = 'active'
		ORDER BY placed_at, id`
	return s.queryBets(ctx, query, marketID)
}

// ListByMarket returns all bets on a market regardless of status.
func (s *BetStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Bet, error) {
	query := `SELECT ` + betCols + ` FROM bets WHERE market_id = $1 ORDER BY placed_at, id`
	args := []any{marketID}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	return s.queryBets(ctx, query, args...)
}

func (s *BetStore) queryBets(ctx context.Context, query string, args ...any) ([]domain.Bet, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query bets: %w", err)
	}
	defer rows.Close()

	var bets []domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan bet: %w", err)
		}
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: bet rows: %w", err)
	}
	return bets, nil
}
