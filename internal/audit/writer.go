package audit

import "github.com/compliance-engine/go-core/pkg/types"

// Writer mirrors appended ledger entries to a secondary destination. Mirrors
// are best-effort; the store remains the source of truth for verification.
type Writer interface {
	// Write mirrors one appended entry
	Write(entry *types.AuditEntry) error

	// Close closes the writer
	Close() error
}
