package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matchpool/matchpool/internal/domain"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

// poolValue converts a uint64 pool total into a BIGINT-safe value. Amounts
// past the signed 63-bit cap cannot be stored; treat them as the same hard
// fault as a uint64 wrap.
func poolValue(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, domain.ErrPoolOverflow
	}
	return int64(v), nil
}

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketCols = `id, title, description, side_a, side_b, pool_a, pool_b,
	lock_time, settlement_time, status, winner, balanced,
	admin_id, result_authority, created_at, settled_at`

// Create inserts a new market. It returns domain.ErrAlreadyExists when a
// market with the same derived identifier is already stored.
func (s *MarketStore) Create(ctx context.Context, m domain.Market) error {
	poolA, err := poolValue(m.PoolA)
	if err != nil {
		return fmt.Errorf("postgres: create market %s: %w", m.ID, err)
	}
	poolB, err := poolValue(m.PoolB)
	if err != nil {
		return fmt.Errorf("postgres: create market %s: %w", m.ID, err)
	}

	const query = `
		INSERT INTO markets (
			id, title, description, side_a, side_b, pool_a, pool_b,
			lock_time, settlement_time, status, winner, balanced,
			admin_id, result_authority, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15
		)`

	_, err = s.pool.Exec(ctx, query,
		m.ID, m.Title, m.Description, m.SideA, m.SideB, poolA, poolB,
		m.LockTime, m.SettlementTime, string(m.Status), string(m.Winner), m.Balanced,
		m.Admin, m.ResultAuthority, m.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create market %s: %w", m.ID, err)
	}
	return nil
}

func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var poolA, poolB int64
	var status, winner string
	err := row.Scan(
		&m.ID, &m.Title, &m.Description, &m.SideA, &m.SideB, &poolA, &poolB,
		&m.LockTime, &m.SettlementTime, &status, &winner, &m.Balanced,
		&m.Admin, &m.ResultAuthority, &m.CreatedAt, &m.SettledAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.PoolA = uint64(poolA)
	m.PoolB = uint64(poolB)
	m.Status = domain.MarketStatus(status)
	m.Winner = domain.Winner(winner)
	return m, nil
}

// GetByID retrieves a market by its derived identifier.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return m, nil
}

// ListByStatus returns markets in the given status with pagination and
// optional creation-time filtering.
func (s *MarketStore) ListByStatus(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets WHERE status = $1`
	args := []any{string(status)}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	return s.queryMarkets(ctx, query, args...)
}

// ListBalanceDue returns active markets past their lock time that have not
// been balanced yet, oldest lock first.
func (s *MarketStore) ListBalanceDue(ctx context.Context, now time.Time) ([]domain.Market, error) {
	const query = `
		SELECT ` + marketCols + ` FROM markets
		WHERE status = 'active' AND NOT balanced AND lock_time <= $1
		ORDER BY lock_time`
	return s.queryMarkets(ctx, query, now)
}

// ListSettledBefore returns settled and cancelled markets whose resolution
// time is strictly before the cutoff, oldest first. The archiver reads this.
func (s *MarketStore) ListSettledBefore(ctx context.Context, before time.Time) ([]domain.Market, error) {
	const query = `
		SELECT ` + marketCols + ` FROM markets
		WHERE status IN ('settled', 'cancelled') AND settled_at < $1
		ORDER BY settled_at`
	return s.queryMarkets(ctx, query, before)
}

func (s *MarketStore) queryMarkets(ctx context.Context, query string, args ...any) ([]domain.Market, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: market rows: %w", err)
	}
	return markets, nil
}
