package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Table names owned by the embedded migrations.
const (
	TableAuditEntries = "audit_entries"
	TableViolations   = "compliance_violations"
	TableCheckLogs    = "compliance_check_logs"
)

// RequiredTables lists every table the system needs before serving.
func RequiredTables() []string {
	return []string{TableAuditEntries, TableViolations, TableCheckLogs}
}

// CheckSchema verifies that every required table exists. It is used by the
// readiness probe so a half-migrated database fails fast instead of failing
// on the first check.
func CheckSchema(ctx context.Context, db *sql.DB) error {
	const query = `SELECT EXISTS (
		SELECT 1 FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = $1
	)`

	for _, table := range RequiredTables() {
		var exists bool
		if err := db.QueryRowContext(ctx, query, table).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check table %s: %w", table, err)
		}
		if !exists {
			return fmt.Errorf("required table %s is missing; run migrations", table)
		}
	}
	return nil
}
