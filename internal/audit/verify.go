package audit

import (
	"fmt"
	"time"

	"github.com/compliance-engine/go-core/pkg/types"
)

// VerifyEntries walks entries in sequence order, recomputing every digest
// and re-checking every link. It reports ALL faults rather than stopping at
// the first one, so a report distinguishes an isolated tampered entry from a
// truncated or re-spliced chain.
//
// priorHash is the stored hash of the entry immediately before the range, or
// empty when the range starts at the genesis entry. Verification is purely
// observational: nothing is repaired and nothing is written.
func VerifyEntries(entries []*types.AuditEntry, priorHash string) *types.VerificationReport {
	report := &types.VerificationReport{
		Valid:      true,
		Total:      len(entries),
		VerifiedAt: time.Now().UTC(),
	}
	if len(entries) == 0 {
		return report
	}

	expectedPrev := priorHash
	expectedSeq := entries[0].Sequence

	for _, entry := range entries {
		entryOK := true

		// Content integrity: the stored digest must match a recomputation
		// over the stored fields.
		computed, err := RecomputeEntryHash(entry)
		if err != nil {
			report.Faults = append(report.Faults, types.ChainFault{
				Sequence: entry.Sequence,
				EntryID:  entry.ID,
				Class:    types.FaultHashMismatch,
				Actual:   entry.Hash,
				Detail:   fmt.Sprintf("hash recomputation failed: %v", err),
			})
			entryOK = false
		} else if computed != entry.Hash {
			report.Faults = append(report.Faults, types.ChainFault{
				Sequence: entry.Sequence,
				EntryID:  entry.ID,
				Class:    types.FaultHashMismatch,
				Expected: computed,
				Actual:   entry.Hash,
				Detail:   "stored hash does not match recomputed hash",
			})
			entryOK = false
		}

		// Link integrity: the stored prev_hash must match the stored hash of
		// the preceding entry, and sequences must be contiguous. These are
		// independent of content integrity.
		if entry.Sequence != expectedSeq {
			report.Faults = append(report.Faults, types.ChainFault{
				Sequence: entry.Sequence,
				EntryID:  entry.ID,
				Class:    types.FaultChainBreak,
				Expected: fmt.Sprintf("sequence %d", expectedSeq),
				Actual:   fmt.Sprintf("sequence %d", entry.Sequence),
				Detail:   "sequence gap: entries missing or reordered",
			})
			entryOK = false
			expectedSeq = entry.Sequence
		}
		if entry.PrevHash != expectedPrev {
			report.Faults = append(report.Faults, types.ChainFault{
				Sequence: entry.Sequence,
				EntryID:  entry.ID,
				Class:    types.FaultChainBreak,
				Expected: expectedPrev,
				Actual:   entry.PrevHash,
				Detail:   "prev_hash does not match hash of preceding entry",
			})
			entryOK = false
		}

		if entryOK {
			report.Verified++
		}

		// Following links are judged against the stored hash, so tampering
		// with one entry's content surfaces as a single mismatch rather
		// than a cascade of breaks.
		expectedPrev = entry.Hash
		expectedSeq++
	}

	report.Valid = len(report.Faults) == 0
	return report
}
