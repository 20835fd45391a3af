package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/compliance-engine/go-core/pkg/types"
)

// querier is satisfied by both *sql.DB and *sql.Tx so a store can take part
// in a caller-owned transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db querier
}

// NewPostgresStore creates a PostgreSQL violation store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithTx returns a store bound to an open transaction. Used by the
// orchestrator to persist violations atomically with check logs and audit
// entries.
func (s *PostgresStore) WithTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{db: tx}
}

const violationColumns = `
	id, category, violation_type, severity, standard, description,
	resource_type, resource_id, detected_at, financial_impact,
	status, assigned_to, resolution_notes, resolved_at, audit_entry_id
`

// Insert persists a new violation.
func (s *PostgresStore) Insert(ctx context.Context, v *types.Violation) error {
	query := `
		INSERT INTO compliance_violations (` + violationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := s.db.ExecContext(ctx, query,
		v.ID,
		v.Category,
		v.Code,
		v.Severity,
		v.Standard,
		v.Description,
		v.ResourceType,
		v.ResourceID,
		v.DetectedAt,
		nullFloat(v.FinancialImpact),
		v.Status,
		nullStringPtr(v.AssignedTo),
		nullStringPtr(v.ResolutionNotes),
		nullTime(v.ResolvedAt),
		nullUUID(v.AuditEntryID),
	)
	if err != nil {
		return fmt.Errorf("failed to insert violation: %w", err)
	}
	return nil
}

// Get retrieves a violation by ID.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*types.Violation, error) {
	query := `
		SELECT ` + violationColumns + `
		FROM compliance_violations
		WHERE id = $1
	`

	v, err := scanViolation(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get violation: %w", err)
	}
	return v, nil
}

// Update replaces the mutable lifecycle fields of a violation.
func (s *PostgresStore) Update(ctx context.Context, v *types.Violation) error {
	query := `
		UPDATE compliance_violations
		SET status = $2, severity = $3, assigned_to = $4,
		    resolution_notes = $5, resolved_at = $6
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query,
		v.ID,
		v.Status,
		v.Severity,
		nullStringPtr(v.AssignedTo),
		nullStringPtr(v.ResolutionNotes),
		nullTime(v.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update violation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Query retrieves violations matching the filter, most recent first.
func (s *PostgresStore) Query(ctx context.Context, filter *Filter) ([]*types.Violation, error) {
	query := `
		SELECT ` + violationColumns + `
		FROM compliance_violations
		WHERE 1=1
	`
	where, args := buildViolationFilter(filter)
	query += where

	argIndex := len(args) + 1
	query += " ORDER BY detected_at DESC"
	if filter != nil && filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
		argIndex++
	}
	if filter != nil && filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query violations: %w", err)
	}
	defer rows.Close()

	var violations []*types.Violation
	for rows.Next() {
		v, err := scanViolation(rows)
		if err != nil {
			return nil, err
		}
		violations = append(violations, v)
	}
	return violations, rows.Err()
}

// Count returns the number of violations matching the filter.
func (s *PostgresStore) Count(ctx context.Context, filter *Filter) (int64, error) {
	query := "SELECT COUNT(*) FROM compliance_violations WHERE 1=1"
	where, args := buildViolationFilter(filter)
	query += where

	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count violations: %w", err)
	}
	return n, nil
}

// InsertCheckLog persists a check log record.
func (s *PostgresStore) InsertCheckLog(ctx context.Context, log *types.CheckLog) error {
	query := `
		INSERT INTO compliance_check_logs (
			id, check_type, resource_type, resource_id, checked_at,
			passed, violations_found, execution_time_ms, checked_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(ctx, query,
		log.ID,
		log.CheckType,
		log.ResourceType,
		log.ResourceID,
		log.CheckedAt,
		log.Passed,
		log.ViolationsFound,
		log.ExecutionTimeMs,
		nullString(log.CheckedBy),
	)
	if err != nil {
		return fmt.Errorf("failed to insert check log: %w", err)
	}
	return nil
}

// buildViolationFilter renders the filter as a WHERE suffix with positional
// arguments starting at $1.
func buildViolationFilter(filter *Filter) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}

	var where string
	var args []interface{}
	argIndex := 1

	add := func(clause string, value interface{}) {
		where += fmt.Sprintf(" AND "+clause, argIndex)
		args = append(args, value)
		argIndex++
	}

	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Severity != "" {
		add("severity = $%d", filter.Severity)
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.Standard != "" {
		add("standard = $%d", filter.Standard)
	}
	if filter.Code != "" {
		add("violation_type = $%d", filter.Code)
	}
	if filter.ResourceType != "" {
		add("resource_type = $%d", filter.ResourceType)
	}
	if filter.ResourceID != "" {
		add("resource_id = $%d", filter.ResourceID)
	}
	if !filter.DetectedFrom.IsZero() {
		add("detected_at >= $%d", filter.DetectedFrom)
	}
	if !filter.DetectedTo.IsZero() {
		add("detected_at <= $%d", filter.DetectedTo)
	}

	return where, args
}

// scanViolation scans a database row into a Violation.
func scanViolation(scanner interface {
	Scan(dest ...interface{}) error
}) (*types.Violation, error) {
	var v types.Violation
	var impact sql.NullFloat64
	var assignedTo, notes sql.NullString
	var resolvedAt sql.NullTime
	var auditEntryID uuid.NullUUID

	err := scanner.Scan(
		&v.ID,
		&v.Category,
		&v.Code,
		&v.Severity,
		&v.Standard,
		&v.Description,
		&v.ResourceType,
		&v.ResourceID,
		&v.DetectedAt,
		&impact,
		&v.Status,
		&assignedTo,
		&notes,
		&resolvedAt,
		&auditEntryID,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan violation: %w", err)
	}

	if impact.Valid {
		v.FinancialImpact = &impact.Float64
	}
	if assignedTo.Valid {
		v.AssignedTo = &assignedTo.String
	}
	if notes.Valid {
		v.ResolutionNotes = &notes.String
	}
	if resolvedAt.Valid {
		v.ResolvedAt = &resolvedAt.Time
	}
	if auditEntryID.Valid {
		v.AuditEntryID = &auditEntryID.UUID
	}

	return &v, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
