package memory

import (
	"context"

	"github.com/matchpool/matchpool/internal/domain"
)

type auditStore struct{ s *Store }

func (v auditStore) Log(_ context.Context, event string, detail map[string]any) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	v.s.auditID++
	v.s.audit = append(v.s.audit, domain.AuditEntry{
		ID:        v.s.auditID,
		Event:     event,
		Detail:    detail,
		CreatedAt: v.s.now(),
	})
	return nil
}

func (v auditStore) List(_ context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	// Newest first.
	entries := make([]domain.AuditEntry, 0, len(v.s.audit))
	for i := len(v.s.audit) - 1; i >= 0; i-- {
		e := v.s.audit[i]
		if opts.Since != nil && e.CreatedAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && e.CreatedAt.After(*opts.Until) {
			continue
		}
		entries = append(entries, e)
	}
	return paginate(entries, opts), nil
}

// Compile-time interface checks.
var (
	_ domain.MarketStore = marketStore{}
	_ domain.BetStore    = betStore{}
	_ domain.LedgerStore = ledgerStore{}
	_ domain.AuditStore  = auditStore{}
)
