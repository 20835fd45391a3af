package engine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/compliance-engine/go-core/internal/audit"
	"github.com/compliance-engine/go-core/internal/tracker"
)

// Persister runs a persistence function as one atomic unit. The function
// receives violation and audit stores whose writes either all land or all
// roll back together.
type Persister interface {
	Persist(ctx context.Context, fn func(violations tracker.Store, entries audit.Store) error) error
}

// PostgresPersister wraps violation, check log, and audit writes in a single
// database transaction.
type PostgresPersister struct {
	db         *sql.DB
	violations *tracker.PostgresStore
	entries    *audit.PostgresStore
}

// NewPostgresPersister creates a transactional persister over a database.
func NewPostgresPersister(db *sql.DB) *PostgresPersister {
	return &PostgresPersister{
		db:         db,
		violations: tracker.NewPostgresStore(db),
		entries:    audit.NewPostgresStore(db),
	}
}

// Persist opens a transaction, binds both stores to it, and commits only if
// fn succeeds.
func (p *PostgresPersister) Persist(ctx context.Context, fn func(violations tracker.Store, entries audit.Store) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(p.violations.WithTx(tx), p.entries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed (%v) after: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// MemoryPersister runs the persistence function against in-memory stores.
// There is no rollback; it exists for tests and single-node setups where the
// stores themselves are ephemeral.
type MemoryPersister struct {
	Violations *tracker.MemoryStore
	Entries    *audit.MemoryStore
}

// NewMemoryPersister creates a persister over fresh in-memory stores.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{
		Violations: tracker.NewMemoryStore(),
		Entries:    audit.NewMemoryStore(),
	}
}

// Persist applies fn directly to the in-memory stores.
func (p *MemoryPersister) Persist(ctx context.Context, fn func(violations tracker.Store, entries audit.Store) error) error {
	return fn(p.Violations, p.Entries)
}
