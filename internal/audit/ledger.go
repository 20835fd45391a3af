package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/compliance-engine/go-core/pkg/types"
)

// ErrInvalidEntry is returned when an entry is missing required fields.
var ErrInvalidEntry = errors.New("audit: entry missing required fields")

// Ledger is the append-only, hash-chained audit log. Appends are serialized:
// a mutex orders writers within the process, and the store's sequence
// uniqueness catches any appender racing from another process. There is no
// update or delete path.
type Ledger struct {
	store   Store
	chain   *HashChain
	writers []Writer
	logger  *zap.Logger

	// appendMu makes read-tail/hash/insert a single critical section.
	appendMu sync.Mutex
}

// NewLedger creates a ledger over the given store. Optional writers receive
// a copy of every appended entry (stdout, rotating file, syslog).
func NewLedger(store Store, logger *zap.Logger, writers ...Writer) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		store:   store,
		chain:   NewHashChain(),
		writers: writers,
		logger:  logger,
	}
}

// Append hashes the entry onto the end of the chain and persists it. The
// ledger assigns ID, Sequence, PrevHash, Hash, and CreatedAt; the caller
// provides everything else. On success the stored entry is returned.
func (l *Ledger) Append(ctx context.Context, entry *types.AuditEntry) (*types.AuditEntry, error) {
	if entry == nil || entry.Action == "" || entry.ResourceType == "" || entry.ResourceID == "" {
		return nil, ErrInvalidEntry
	}

	l.appendMu.Lock()
	defer l.appendMu.Unlock()

	if !l.chain.IsInitialized() {
		if err := l.reloadTail(ctx); err != nil {
			return nil, err
		}
	}

	// One retry: if another process took our sequence, refresh the tail and
	// rebuild the digest against the new predecessor.
	for attempt := 0; attempt < 2; attempt++ {
		prevHash, lastSeq := l.chain.Tail()

		entry.ID = uuid.New()
		entry.Sequence = lastSeq + 1
		entry.PrevHash = prevHash
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now().UTC()
		}

		if _, err := ComputeEntryHash(entry); err != nil {
			return nil, err
		}

		err := l.store.Insert(ctx, entry)
		if errors.Is(err, ErrSequenceConflict) {
			l.logger.Warn("Audit append lost sequence race, refreshing tail",
				zap.Int64("sequence", entry.Sequence),
			)
			if err := l.reloadTail(ctx); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		l.chain.Advance(entry.Hash, entry.Sequence)
		l.emit(entry)

		l.logger.Debug("Audit entry appended",
			zap.Int64("sequence", entry.Sequence),
			zap.String("action", entry.Action),
			zap.String("resource_type", entry.ResourceType),
			zap.String("resource_id", entry.ResourceID),
		)
		return entry, nil
	}

	return nil, fmt.Errorf("audit: append failed after sequence conflict retry")
}

// AppendTx hashes and inserts an entry through the supplied store, which the
// caller typically binds to an open transaction so the entry commits
// atomically with other writes. The tail is read through the same store (a
// transaction sees its own earlier inserts), and the cached tail is
// invalidated afterward: whether the transaction commits or rolls back, the
// next append re-reads the true tail from storage. Mirror writers are not
// fed here, because the entry may never commit. A sequence conflict aborts
// the surrounding transaction, so it surfaces to the caller for a full
// retry instead of being retried in place.
func (l *Ledger) AppendTx(ctx context.Context, store Store, entry *types.AuditEntry) (*types.AuditEntry, error) {
	if entry == nil || entry.Action == "" || entry.ResourceType == "" || entry.ResourceID == "" {
		return nil, ErrInvalidEntry
	}

	l.appendMu.Lock()
	defer l.appendMu.Unlock()
	defer l.chain.Invalidate()

	last, err := store.LastEntry(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load chain tail: %w", err)
	}

	var prevHash string
	var lastSeq int64
	if last != nil {
		prevHash, lastSeq = last.Hash, last.Sequence
	}

	entry.ID = uuid.New()
	entry.Sequence = lastSeq + 1
	entry.PrevHash = prevHash
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if _, err := ComputeEntryHash(entry); err != nil {
		return nil, err
	}

	if err := store.Insert(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// reloadTail re-seeds the in-memory chain tail from storage. Caller holds
// appendMu.
func (l *Ledger) reloadTail(ctx context.Context) error {
	last, err := l.store.LastEntry(ctx)
	if err != nil {
		return fmt.Errorf("failed to load chain tail: %w", err)
	}
	if last == nil {
		l.chain.InitializeFrom("", 0)
		return nil
	}
	l.chain.InitializeFrom(last.Hash, last.Sequence)
	return nil
}

// emit mirrors the entry to the configured writers. Mirror failures are
// logged and swallowed: the store is the source of truth.
func (l *Ledger) emit(entry *types.AuditEntry) {
	for _, w := range l.writers {
		if err := w.Write(entry); err != nil {
			l.logger.Warn("Audit mirror write failed", zap.Error(err))
		}
	}
}

// Verify re-checks the entire ledger.
func (l *Ledger) Verify(ctx context.Context) (*types.VerificationReport, error) {
	return l.VerifyRange(ctx, 1, 0)
}

// VerifyRange re-checks entries with from <= sequence <= to (to == 0 means
// through the end). When the range starts past the genesis entry, the stored
// hash of the preceding entry anchors the first link check.
func (l *Ledger) VerifyRange(ctx context.Context, from, to int64) (*types.VerificationReport, error) {
	if from < 1 {
		from = 1
	}

	priorHash := ""
	if from > 1 {
		prior, err := l.store.Range(ctx, from-1, from-1)
		if err != nil {
			return nil, fmt.Errorf("failed to load range anchor: %w", err)
		}
		if len(prior) == 1 {
			priorHash = prior[0].Hash
		}
	}

	entries, err := l.store.Range(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries for verification: %w", err)
	}

	report := VerifyEntries(entries, priorHash)
	if !report.Valid {
		l.logger.Error("Audit chain verification found faults",
			zap.Int("total", report.Total),
			zap.Int("verified", report.Verified),
			zap.Int("faults", len(report.Faults)),
		)
	}
	return report, nil
}

// Query retrieves entries matching the filter, most recent first.
func (l *Ledger) Query(ctx context.Context, filter *Filter) ([]*types.AuditEntry, error) {
	return l.store.Query(ctx, filter)
}

// Count returns the number of ledger entries.
func (l *Ledger) Count(ctx context.Context) (int64, error) {
	return l.store.Count(ctx)
}

// Close releases the mirror writers.
func (l *Ledger) Close() error {
	var firstErr error
	for _, w := range l.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
