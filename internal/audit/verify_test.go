package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/compliance-engine/go-core/pkg/types"
)

func TestVerify_EmptyLedgerIsValid(t *testing.T) {
	ledger, _ := newTestLedger(t)

	report, err := ledger.Verify(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Zero(t, report.Total)
	assert.Empty(t, report.Faults)
}

func TestVerify_UntamperedChainHasZeroFaults(t *testing.T) {
	ledger, _ := newTestLedger(t)
	appendN(t, ledger, 10)

	report, err := ledger.Verify(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 10, report.Total)
	assert.Equal(t, 10, report.Verified)
	assert.Empty(t, report.Faults)
}

func TestVerify_TamperedFieldIsExactlyOneHashMismatch(t *testing.T) {
	ledger, store := newTestLedger(t)
	appendN(t, ledger, 5)

	require.True(t, store.Tamper(3, func(e *types.AuditEntry) {
		e.Description = "rewritten after the fact"
	}))

	report, err := ledger.Verify(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Valid)
	require.Len(t, report.Faults, 1)
	assert.Equal(t, types.FaultHashMismatch, report.Faults[0].Class)
	assert.Equal(t, int64(3), report.Faults[0].Sequence)
	assert.Equal(t, 4, report.Verified)
}

func TestVerify_TamperedStoredHashBreaksLinkAtSuccessor(t *testing.T) {
	ledger, store := newTestLedger(t)
	appendN(t, ledger, 4)

	require.True(t, store.Tamper(2, func(e *types.AuditEntry) {
		e.Hash = "deadbeef"
	}))

	report, err := ledger.Verify(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Valid)

	classes := map[int64][]types.FaultClass{}
	for _, f := range report.Faults {
		classes[f.Sequence] = append(classes[f.Sequence], f.Class)
	}
	assert.Contains(t, classes[2], types.FaultHashMismatch)
	assert.Contains(t, classes[3], types.FaultChainBreak)
}

func TestVerify_DeletedEntryIsChainBreak(t *testing.T) {
	ledger, store := newTestLedger(t)
	appendN(t, ledger, 5)
	require.True(t, store.Delete(3))

	report, err := ledger.Verify(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Valid)

	var breakSeqs []int64
	for _, f := range report.Faults {
		assert.Equal(t, types.FaultChainBreak, f.Class)
		breakSeqs = append(breakSeqs, f.Sequence)
	}
	assert.Contains(t, breakSeqs, int64(4), "the entry after the gap must be flagged")
}

func TestVerify_ReorderedEntriesAreChainBreaks(t *testing.T) {
	ledger, store := newTestLedger(t)
	entries := appendN(t, ledger, 4)

	// Swap the payloads of entries 2 and 3 while keeping their sequences.
	require.True(t, store.Tamper(2, func(e *types.AuditEntry) {
		*e = *entries[2]
		e.Sequence = 2
	}))
	require.True(t, store.Tamper(3, func(e *types.AuditEntry) {
		*e = *entries[1]
		e.Sequence = 3
	}))

	report, err := ledger.Verify(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Valid)

	hasBreak := false
	for _, f := range report.Faults {
		if f.Class == types.FaultChainBreak {
			hasBreak = true
		}
	}
	assert.True(t, hasBreak, "reordering must surface as at least one chain break")
}

func TestVerifyRange_AnchorsOnPrecedingEntry(t *testing.T) {
	ledger, _ := newTestLedger(t)
	appendN(t, ledger, 6)

	report, err := ledger.VerifyRange(context.Background(), 3, 5)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.Verified)
}

func TestVerifyRange_DetectsMismatchInsideRangeOnly(t *testing.T) {
	ledger, store := newTestLedger(t)
	appendN(t, ledger, 6)

	require.True(t, store.Tamper(4, func(e *types.AuditEntry) {
		e.ResourceID = "swapped"
	}))

	report, err := ledger.VerifyRange(context.Background(), 3, 5)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	require.Len(t, report.Faults, 1)
	assert.Equal(t, int64(4), report.Faults[0].Sequence)
	assert.Equal(t, types.FaultHashMismatch, report.Faults[0].Class)
}

func TestVerify_ReportNeverMutatesLedger(t *testing.T) {
	store := NewMemoryStore()
	ledger := NewLedger(store, zap.NewNop())
	appendN(t, ledger, 3)

	require.True(t, store.Tamper(2, func(e *types.AuditEntry) {
		e.Description = "tampered"
	}))

	before, err := store.Range(context.Background(), 1, 0)
	require.NoError(t, err)

	_, err = ledger.Verify(context.Background())
	require.NoError(t, err)

	after, err := store.Range(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, before, after, "verification must be read-only")
}
