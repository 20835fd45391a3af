package audit

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/compliance-engine/go-core/pkg/types"
)

func newTestLedger(t *testing.T) (*Ledger, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewLedger(store, zap.NewNop()), store
}

func appendN(t *testing.T, ledger *Ledger, n int) []*types.AuditEntry {
	t.Helper()
	entries := make([]*types.AuditEntry, 0, n)
	for i := 0; i < n; i++ {
		entry, err := ledger.Append(context.Background(), &types.AuditEntry{
			Action:       "COMPLIANCE_CHECK_COMPLETED",
			ResourceType: "timesheet",
			ResourceID:   "ts-1",
		})
		require.NoError(t, err)
		entries = append(entries, entry)
	}
	return entries
}

func TestLedger_Append_GenesisHasEmptyPrevHash(t *testing.T) {
	ledger, _ := newTestLedger(t)

	entry, err := ledger.Append(context.Background(), &types.AuditEntry{
		Action:       "RULE_CREATED",
		ResourceType: "compliance_rule",
		ResourceID:   "CA_DAILY_OT",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), entry.Sequence)
	assert.Empty(t, entry.PrevHash)
	assert.NotEmpty(t, entry.Hash)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestLedger_Append_LinksEachEntryToPredecessor(t *testing.T) {
	ledger, _ := newTestLedger(t)

	entries := appendN(t, ledger, 5)
	for i := 1; i < len(entries); i++ {
		assert.Equal(t, entries[i-1].Hash, entries[i].PrevHash,
			"entry %d must link to entry %d", i+1, i)
		assert.Equal(t, entries[i-1].Sequence+1, entries[i].Sequence)
	}
}

func TestLedger_Append_RejectsIncompleteEntry(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.Append(context.Background(), &types.AuditEntry{
		Action: "RULE_CREATED",
	})
	assert.ErrorIs(t, err, ErrInvalidEntry)

	_, err = ledger.Append(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestLedger_Append_ResumesFromPersistedTail(t *testing.T) {
	store := NewMemoryStore()
	first := NewLedger(store, zap.NewNop())
	entries := appendN(t, first, 3)

	// A fresh ledger over the same store must continue the chain, not fork it.
	second := NewLedger(store, zap.NewNop())
	entry, err := second.Append(context.Background(), &types.AuditEntry{
		Action:       "VIOLATION_RESOLVED",
		ResourceType: "compliance_violation",
		ResourceID:   "v-1",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(4), entry.Sequence)
	assert.Equal(t, entries[2].Hash, entry.PrevHash)
}

func TestLedger_Append_ConcurrentAppendersKeepChainIntact(t *testing.T) {
	ledger, _ := newTestLedger(t)

	const goroutines = 8
	const perGoroutine = 25

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				_, err := ledger.Append(context.Background(), &types.AuditEntry{
					Action:       "COMPLIANCE_CHECK_COMPLETED",
					ResourceType: "timesheet",
					ResourceID:   "ts-concurrent",
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	report, err := ledger.Verify(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, goroutines*perGoroutine, report.Total)
	assert.Equal(t, report.Total, report.Verified)
}

func TestLedger_Query_FiltersByResource(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.Append(context.Background(), &types.AuditEntry{
		Action:       "COMPLIANCE_VIOLATION_DETECTED",
		ResourceType: "timesheet",
		ResourceID:   "ts-7",
	})
	require.NoError(t, err)
	_, err = ledger.Append(context.Background(), &types.AuditEntry{
		Action:       "COMPLIANCE_VIOLATION_DETECTED",
		ResourceType: "journal_entry",
		ResourceID:   "je-7",
	})
	require.NoError(t, err)

	got, err := ledger.Query(context.Background(), &Filter{ResourceType: "journal_entry"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "je-7", got[0].ResourceID)

	count, err := ledger.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
