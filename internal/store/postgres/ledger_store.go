package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matchpool/matchpool/internal/domain"
)

// LedgerStore implements domain.LedgerStore using PostgreSQL. Every method
// runs in a single transaction, and every market write is conditioned on the
// currently stored status so a racing transition can never be overwritten.
type LedgerStore struct {
	pool *pgxpool.Pool
}

// NewLedgerStore creates a new LedgerStore backed by the given connection pool.
func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

// PlaceBet inserts the bet and writes the market's updated pool totals in
// one transaction.
func (s *LedgerStore) PlaceBet(ctx context.Context, m domain.Market, b domain.Bet) error {
	poolA, err := poolValue(m.PoolA)
	if err != nil {
		return fmt.Errorf("postgres: place bet %s: %w", b.ID, err)
	}
	poolB, err := poolValue(m.PoolB)
	if err != nil {
		return fmt.Errorf("postgres: place bet %s: %w", b.ID, err)
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO bets (id, market_id, bettor, side, amount, placed_at, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			b.ID, b.MarketID, b.Bettor, string(b.Side), int64(b.Amount), b.PlacedAt, string(b.Status),
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return domain.ErrDuplicateBet
			}
			return fmt.Errorf("insert bet %s: %w", b.ID, err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE markets SET pool_a = $1, pool_b = $2
			WHERE id = $3 AND status = 'active'`,
			poolA, poolB, m.ID,
		)
		if err != nil {
			return fmt.Errorf("update pools %s: %w", m.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrMarketNotActive
		}
		return nil
	})
}

// ApplyRefunds marks the given bets refunded, writes the reduced pool
// totals, and records the market as balanced.
func (s *LedgerStore) ApplyRefunds(ctx context.Context, m domain.Market, refunded []domain.Bet) error {
	poolA, err := poolValue(m.PoolA)
	if err != nil {
		return fmt.Errorf("postgres: apply refunds %s: %w", m.ID, err)
	}
	poolB, err := poolValue(m.PoolB)
	if err != nil {
		return fmt.Errorf("postgres: apply refunds %s: %w", m.ID, err)
	}

	ids := make([]string, 0, len(refunded))
	for _, b := range refunded {
		ids = append(ids, b.ID)
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		if len(ids) > 0 {
			tag, err := tx.Exec(ctx, `
				UPDATE bets SET status = 'refunded'
				WHERE id = ANY($1) AND status = 'active'`,
				ids,
			)
			if err != nil {
				return fmt.Errorf("refund bets %s: %w", m.ID, err)
			}
			if tag.RowsAffected() != int64(len(ids)) {
				return fmt.Errorf("refund bets %s: %d of %d rows updated", m.ID, tag.RowsAffected(), len(ids))
			}
		}

		tag, err := tx.Exec(ctx, `
			UPDATE markets SET pool_a = $1, pool_b = $2, balanced = TRUE
			WHERE id = $3 AND status = 'active'`,
			poolA, poolB, m.ID,
		)
		if err != nil {
			return fmt.Errorf("update pools %s: %w", m.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrMarketNotActive
		}
		return nil
	})
}

// Settle performs the single-fire active -> settled transition and assigns
// the final status of every non-refunded bet in the same transaction.
func (s *LedgerStore) Settle(ctx context.Context, m domain.Market, wonIDs, lostIDs, refundedIDs []string) error {
	poolA, err := poolValue(m.PoolA)
	if err != nil {
		return fmt.Errorf("postgres: settle %s: %w", m.ID, err)
	}
	poolB, err := poolValue(m.PoolB)
	if err != nil {
		return fmt.Errorf("postgres: settle %s: %w", m.ID, err)
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE markets
			SET status = 'settled', winner = $1, settled_at = $2,
			    pool_a = $3, pool_b = $4, balanced = TRUE
			WHERE id = $5 AND status = 'active'`,
			string(m.Winner), m.SettledAt, poolA, poolB, m.ID,
		)
		if err != nil {
			return fmt.Errorf("settle market %s: %w", m.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrAlreadySettled
		}

		for status, ids := range map[string][]string{
			"won":      wonIDs,
			"lost":     lostIDs,
			"refunded": refundedIDs,
		} {
			if len(ids) == 0 {
				continue
			}
			tag, err := tx.Exec(ctx, `
				UPDATE bets SET status = $1
				WHERE id = ANY($2) AND status = 'active'`,
				status, ids,
			)
			if err != nil {
				return fmt.Errorf("assign %s bets %s: %w", status, m.ID, err)
			}
			if tag.RowsAffected() != int64(len(ids)) {
				return fmt.Errorf("assign %s bets %s: %d of %d rows updated", status, m.ID, tag.RowsAffected(), len(ids))
			}
		}
		return nil
	})
}

// Cancel aborts an active market, refunding every active bet.
func (s *LedgerStore) Cancel(ctx context.Context, m domain.Market, refundedIDs []string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE markets
			SET status = 'cancelled', pool_a = 0, pool_b = 0, settled_at = $1
			WHERE id = $2 AND status = 'active'`,
			m.SettledAt, m.ID,
		)
		if err != nil {
			return fmt.Errorf("cancel market %s: %w", m.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrMarketNotActive
		}

		if len(refundedIDs) > 0 {
			if _, err := tx.Exec(ctx, `
				UPDATE bets SET status = 'refunded'
				WHERE id = ANY($1) AND status = 'active'`,
				refundedIDs,
			); err != nil {
				return fmt.Errorf("refund bets %s: %w", m.ID, err)
			}
		}
		return nil
	})
}

// Claim performs the single-fire won -> claimed transition. The conditional
// update makes the payout hand-out exactly-once even without the service
// lock.
func (s *LedgerStore) Claim(ctx context.Context, b domain.Bet, claimedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE bets SET status = 'claimed', claimed_at = $1
		WHERE id = $2 AND status = 'won'`,
		claimedAt, b.ID,
	)
	if err != nil {
		return fmt.Errorf("postgres: claim bet %s: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNothingToClaim
	}
	return nil
}

func (s *LedgerStore) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("postgres: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}
