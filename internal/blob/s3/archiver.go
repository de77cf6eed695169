package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matchpool/matchpool/internal/domain"
)

// MarketArchiveStore is the narrow read surface the archiver needs: just the
// terminally resolved markets older than a cutoff. The Postgres and memory
// market stores satisfy it implicitly.
type MarketArchiveStore interface {
	// ListSettledBefore returns markets settled or cancelled strictly before
	// the cutoff, oldest first.
	ListSettledBefore(ctx context.Context, before time.Time) ([]domain.Market, error)
}

// BetArchiveStore provides the bets belonging to a market being archived.
type BetArchiveStore interface {
	ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Bet, error)
}

// Archiver implements domain.SettlementArchiver: it copies resolved markets
// and their full bet histories to object storage as JSONL. Archived rows are
// not deleted from the primary store here; pruning is a separate explicit
// step run after the archive has been verified.
type Archiver struct {
	writer  domain.BlobWriter
	markets MarketArchiveStore
	bets    BetArchiveStore
	audit   domain.AuditStore
}

// NewArchiver creates an Archiver.
func NewArchiver(writer domain.BlobWriter, markets MarketArchiveStore, bets BetArchiveStore, audit domain.AuditStore) *Archiver {
	return &Archiver{
		writer:  writer,
		markets: markets,
		bets:    bets,
		audit:   audit,
	}
}

// archivedBet is the serialized form of one bet inside an archive record.
type archivedBet struct {
	ID        string     `json:"id"`
	Bettor    string     `json:"bettor"`
	Side      string     `json:"side"`
	Amount    uint64     `json:"amount"`
	PlacedAt  time.Time  `json:"placed_at"`
	Status    string     `json:"status"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
}

// archivedMarket is one JSONL line: a resolved market with its complete bet
// history inline, so a single line is a self-contained settlement record.
type archivedMarket struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	SideA           string        `json:"side_a"`
	SideB           string        `json:"side_b"`
	PoolA           uint64        `json:"pool_a"`
	PoolB           uint64        `json:"pool_b"`
	LockTime        time.Time     `json:"lock_time"`
	SettlementTime  time.Time     `json:"settlement_time"`
	Status          string        `json:"status"`
	Winner          string        `json:"winner"`
	Admin           string        `json:"admin"`
	ResultAuthority string        `json:"result_authority"`
	CreatedAt       time.Time     `json:"created_at"`
	SettledAt       *time.Time    `json:"settled_at,omitempty"`
	Bets            []archivedBet `json:"bets"`
}

// ArchiveSettled archives every market resolved strictly before the cutoff
// to archive/settlements/YYYY-MM.jsonl, partitioned by the cutoff month. It
// records the run in the audit log and returns the number of markets
// archived.
func (a *Archiver) ArchiveSettled(ctx context.Context, before time.Time) (int64, error) {
	markets, err := a.markets.ListSettledBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive settlements query: %w", err)
	}
	if len(markets) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for _, m := range markets {
		bets, err := a.bets.ListByMarket(ctx, m.ID, domain.ListOpts{})
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive settlements bets for %s: %w", m.ID, err)
		}
		if err := enc.Encode(toArchived(m, bets)); err != nil {
			return 0, fmt.Errorf("s3blob: archive settlements encode %s: %w", m.ID, err)
		}
	}

	path := archivePath(before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf.Bytes()), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive settlements upload: %w", err)
	}

	count := int64(len(markets))
	if err := a.audit.Log(ctx, "archive.settlements", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive settlements audit log: %w", err)
	}
	return count, nil
}

func toArchived(m domain.Market, bets []domain.Bet) archivedMarket {
	rec := archivedMarket{
		ID:              m.ID,
		Title:           m.Title,
		SideA:           m.SideA,
		SideB:           m.SideB,
		PoolA:           m.PoolA,
		PoolB:           m.PoolB,
		LockTime:        m.LockTime,
		SettlementTime:  m.SettlementTime,
		Status:          string(m.Status),
		Winner:          string(m.Winner),
		Admin:           m.Admin,
		ResultAuthority: m.ResultAuthority,
		CreatedAt:       m.CreatedAt,
		SettledAt:       m.SettledAt,
		Bets:            make([]archivedBet, 0, len(bets)),
	}
	for _, b := range bets {
		rec.Bets = append(rec.Bets, archivedBet{
			ID:        b.ID,
			Bettor:    b.Bettor,
			Side:      string(b.Side),
			Amount:    b.Amount,
			PlacedAt:  b.PlacedAt,
			Status:    string(b.Status),
			ClaimedAt: b.ClaimedAt,
		})
	}
	return rec
}

// archivePath builds the object key, partitioned by the cutoff's year-month:
//
//	archive/settlements/2026-08.jsonl
func archivePath(before time.Time) string {
	return fmt.Sprintf("archive/settlements/%s.jsonl", before.Format("2006-01"))
}

var (
	_ domain.BlobWriter         = (*Writer)(nil)
	_ domain.BlobReader         = (*Reader)(nil)
	_ domain.SettlementArchiver = (*Archiver)(nil)
)
