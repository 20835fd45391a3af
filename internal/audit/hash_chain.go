package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/compliance-engine/go-core/pkg/types"
)

// hashTimeFormat is the frozen timestamp encoding used inside hash inputs.
// Changing it would invalidate every previously recorded digest.
const hashTimeFormat = "2006-01-02T15:04:05.000000Z"

// hashSchemaVersion is baked into the hash input so the covered field set
// can evolve without silently re-interpreting old entries.
const hashSchemaVersion = 1

// HashChain tracks the tail of the ledger's hash chain for appends.
type HashChain struct {
	mu          sync.RWMutex
	lastHash    string
	lastSeq     int64
	initialized bool
}

// NewHashChain creates an empty chain manager. The genesis entry has an
// empty previous hash and sequence 1.
func NewHashChain() *HashChain {
	return &HashChain{}
}

// InitializeFrom seeds the chain tail from the most recent persisted entry,
// typically at startup or after an append conflict.
func (hc *HashChain) InitializeFrom(lastHash string, lastSeq int64) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.lastHash = lastHash
	hc.lastSeq = lastSeq
	hc.initialized = true
}

// IsInitialized reports whether the tail has been seeded.
func (hc *HashChain) IsInitialized() bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.initialized
}

// Tail returns the current last hash and sequence.
func (hc *HashChain) Tail() (string, int64) {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.lastHash, hc.lastSeq
}

// Invalidate drops the cached tail so the next append re-reads it from
// storage. Used after transactional appends whose outcome the chain cannot
// observe.
func (hc *HashChain) Invalidate() {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.lastHash = ""
	hc.lastSeq = 0
	hc.initialized = false
}

// Advance records a newly appended entry as the chain tail.
func (hc *HashChain) Advance(hash string, seq int64) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.lastHash = hash
	hc.lastSeq = seq
	hc.initialized = true
}

// hashInput is the frozen v1 field tuple covered by an entry's digest. Field
// order matters: encoding/json emits struct fields in declaration order, and
// the digest is computed over the serialized bytes.
type hashInput struct {
	Version      int                    `json:"v"`
	Sequence     int64                  `json:"sequence"`
	ActorID      string                 `json:"actor_id,omitempty"`
	ActorEmail   string                 `json:"actor_email,omitempty"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id"`
	OldValues    map[string]interface{} `json:"old_values,omitempty"`
	NewValues    map[string]interface{} `json:"new_values,omitempty"`
	Description  string                 `json:"description,omitempty"`
	IPAddress    string                 `json:"ip_address,omitempty"`
	UserAgent    string                 `json:"user_agent,omitempty"`
	CreatedAt    string                 `json:"created_at"`
	PrevHash     string                 `json:"prev_hash"`
}

func newHashInput(entry *types.AuditEntry) hashInput {
	var actorID string
	if entry.ActorID != nil {
		actorID = *entry.ActorID
	}
	return hashInput{
		Version:      hashSchemaVersion,
		Sequence:     entry.Sequence,
		ActorID:      actorID,
		ActorEmail:   entry.ActorEmail,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		OldValues:    entry.OldValues,
		NewValues:    entry.NewValues,
		Description:  entry.Description,
		IPAddress:    entry.IPAddress,
		UserAgent:    entry.UserAgent,
		CreatedAt:    entry.CreatedAt.UTC().Format(hashTimeFormat),
		PrevHash:     entry.PrevHash,
	}
}

// ComputeEntryHash computes the SHA-256 digest for an entry. The entry's
// Sequence, CreatedAt, and PrevHash must already be set; the resulting hash
// is written back onto the entry and returned.
func ComputeEntryHash(entry *types.AuditEntry) (string, error) {
	data, err := json.Marshal(newHashInput(entry))
	if err != nil {
		return "", fmt.Errorf("failed to marshal entry for hashing: %w", err)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	entry.Hash = hash
	return hash, nil
}

// RecomputeEntryHash computes the digest for an entry without mutating it,
// using the entry's stored PrevHash. Used during verification.
func RecomputeEntryHash(entry *types.AuditEntry) (string, error) {
	data, err := json.Marshal(newHashInput(entry))
	if err != nil {
		return "", fmt.Errorf("failed to marshal entry for verification: %w", err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
