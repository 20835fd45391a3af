package audit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compliance-engine/go-core/pkg/types"
)

func testEntry(seq int64, prevHash string) *types.AuditEntry {
	actor := "user-42"
	return &types.AuditEntry{
		ID:           uuid.New(),
		Sequence:     seq,
		ActorID:      &actor,
		ActorEmail:   "auditor@example.com",
		Action:       "COMPLIANCE_VIOLATION_DETECTED",
		ResourceType: "timesheet",
		ResourceID:   "ts-1001",
		NewValues:    map[string]interface{}{"severity": "HIGH"},
		Description:  "meal break violation detected",
		IPAddress:    "10.0.0.5",
		UserAgent:    "compliance-core/1.0",
		PrevHash:     prevHash,
		CreatedAt:    time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestComputeEntryHash_Deterministic(t *testing.T) {
	entry := testEntry(1, "")

	h1, err := ComputeEntryHash(entry)
	require.NoError(t, err)
	require.NotEmpty(t, h1)

	h2, err := RecomputeEntryHash(entry)
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "recomputation over identical fields must match")
	assert.Len(t, h1, 64, "expected hex-encoded SHA-256")
}

func TestComputeEntryHash_CoversPrevHash(t *testing.T) {
	a := testEntry(2, "aaaa")
	b := testEntry(2, "bbbb")
	b.ID = a.ID

	ha, err := ComputeEntryHash(a)
	require.NoError(t, err)
	hb, err := ComputeEntryHash(b)
	require.NoError(t, err)

	assert.NotEqual(t, ha, hb, "digest must depend on prev_hash")
}

func TestComputeEntryHash_SensitiveToEveryField(t *testing.T) {
	base := testEntry(3, "cafe")
	baseHash, err := ComputeEntryHash(base)
	require.NoError(t, err)

	mutations := map[string]func(*types.AuditEntry){
		"action":        func(e *types.AuditEntry) { e.Action = "RULE_UPDATED" },
		"resource_type": func(e *types.AuditEntry) { e.ResourceType = "journal_entry" },
		"resource_id":   func(e *types.AuditEntry) { e.ResourceID = "je-9" },
		"description":   func(e *types.AuditEntry) { e.Description = "edited" },
		"actor_email":   func(e *types.AuditEntry) { e.ActorEmail = "intruder@example.com" },
		"sequence":      func(e *types.AuditEntry) { e.Sequence = 99 },
		"created_at":    func(e *types.AuditEntry) { e.CreatedAt = e.CreatedAt.Add(time.Second) },
		"new_values":    func(e *types.AuditEntry) { e.NewValues = map[string]interface{}{"severity": "LOW"} },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			entry := testEntry(3, "cafe")
			entry.ID = base.ID
			mutate(entry)

			h, err := RecomputeEntryHash(entry)
			require.NoError(t, err)
			assert.NotEqual(t, baseHash, h, "digest must change when %s changes", name)
		})
	}
}

func TestHashChain_Tail(t *testing.T) {
	hc := NewHashChain()
	assert.False(t, hc.IsInitialized())

	hc.InitializeFrom("abc", 7)
	assert.True(t, hc.IsInitialized())

	hash, seq := hc.Tail()
	assert.Equal(t, "abc", hash)
	assert.Equal(t, int64(7), seq)

	hc.Advance("def", 8)
	hash, seq = hc.Tail()
	assert.Equal(t, "def", hash)
	assert.Equal(t, int64(8), seq)
}

func BenchmarkComputeEntryHash(b *testing.B) {
	entry := testEntry(1, "")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ComputeEntryHash(entry); err != nil {
			b.Fatal(err)
		}
	}
}
