package types

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry is a single record in the tamper-evident audit ledger. Entries
// form a hash chain: each entry's hash covers its own fields plus the hash of
// the entry before it. The first entry of a chain carries an empty PrevHash.
type AuditEntry struct {
	ID           uuid.UUID              `json:"id"`
	Sequence     int64                  `json:"sequence"`
	ActorID      *string                `json:"actor_id,omitempty"`
	ActorEmail   string                 `json:"actor_email,omitempty"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id"`
	OldValues    map[string]interface{} `json:"old_values,omitempty"`
	NewValues    map[string]interface{} `json:"new_values,omitempty"`
	Description  string                 `json:"description,omitempty"`
	IPAddress    string                 `json:"ip_address,omitempty"`
	UserAgent    string                 `json:"user_agent,omitempty"`
	PrevHash     string                 `json:"prev_hash"`
	Hash         string                 `json:"current_hash"`
	CreatedAt    time.Time              `json:"created_at"`
}

// FaultClass identifies which integrity property a ledger entry failed.
type FaultClass string

const (
	// FaultHashMismatch means the stored hash does not match a recomputation
	// over the stored fields: the entry's content was altered.
	FaultHashMismatch FaultClass = "hash_mismatch"

	// FaultChainBreak means the stored prev_hash does not match the hash of
	// the preceding entry: an entry was removed, reordered, or spliced in.
	FaultChainBreak FaultClass = "chain_break"
)

// ChainFault describes one integrity failure found during verification.
type ChainFault struct {
	Sequence int64      `json:"sequence"`
	EntryID  uuid.UUID  `json:"entry_id"`
	Class    FaultClass `json:"class"`
	Expected string     `json:"expected"`
	Actual   string     `json:"actual"`
	Detail   string     `json:"detail"`
}

// VerificationReport is the result of walking a range of the ledger and
// recomputing every hash. Verification never mutates the ledger; a corrupt
// range is reported, not repaired.
type VerificationReport struct {
	Valid      bool         `json:"valid"`
	Total      int          `json:"total_entries"`
	Verified   int          `json:"verified_entries"`
	Faults     []ChainFault `json:"faults,omitempty"`
	VerifiedAt time.Time    `json:"verified_at"`
}
