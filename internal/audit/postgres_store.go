package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

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

// NewPostgresStore creates a PostgreSQL audit store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithTx returns a store bound to an open transaction. Used by callers that
// persist an audit entry atomically with other writes.
func (s *PostgresStore) WithTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{db: tx}
}

const auditColumns = `
	id, sequence, actor_id, actor_email, action, resource_type, resource_id,
	old_values, new_values, description, ip_address, user_agent,
	prev_hash, current_hash, created_at
`

// Insert persists a single hashed entry. The UNIQUE constraint on sequence
// is what makes concurrent appends safe: the loser gets ErrSequenceConflict
// and must rebuild from the new tail.
func (s *PostgresStore) Insert(ctx context.Context, entry *types.AuditEntry) error {
	oldJSON, newJSON, err := marshalSnapshots(entry)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO audit_entries (` + auditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = s.db.ExecContext(ctx, query,
		entry.ID,
		entry.Sequence,
		nullStringPtr(entry.ActorID),
		nullString(entry.ActorEmail),
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		oldJSON,
		newJSON,
		nullString(entry.Description),
		nullString(entry.IPAddress),
		nullString(entry.UserAgent),
		nullString(entry.PrevHash),
		entry.Hash,
		entry.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrSequenceConflict
		}
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return nil
}

// LastEntry returns the entry with the highest sequence, or nil when the
// ledger is empty.
func (s *PostgresStore) LastEntry(ctx context.Context) (*types.AuditEntry, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM audit_entries
		ORDER BY sequence DESC
		LIMIT 1
	`

	entry, err := scanAuditEntry(s.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last audit entry: %w", err)
	}
	return entry, nil
}

// Range returns entries in ascending sequence order for verification.
func (s *PostgresStore) Range(ctx context.Context, from, to int64) ([]*types.AuditEntry, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM audit_entries
		WHERE sequence >= $1
	`
	args := []interface{}{from}
	if to > 0 {
		query += " AND sequence <= $2"
		args = append(args, to)
	}
	query += " ORDER BY sequence ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit range: %w", err)
	}
	defer rows.Close()

	var entries []*types.AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Query retrieves entries matching the filter, most recent first.
func (s *PostgresStore) Query(ctx context.Context, filter *Filter) ([]*types.AuditEntry, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM audit_entries
		WHERE 1=1
	`
	var args []interface{}
	argIndex := 1

	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIndex)
		args = append(args, filter.Action)
		argIndex++
	}
	if filter.ResourceType != "" {
		query += fmt.Sprintf(" AND resource_type = $%d", argIndex)
		args = append(args, filter.ResourceType)
		argIndex++
	}
	if filter.ResourceID != "" {
		query += fmt.Sprintf(" AND resource_id = $%d", argIndex)
		args = append(args, filter.ResourceID)
		argIndex++
	}
	if filter.ActorID != "" {
		query += fmt.Sprintf(" AND actor_id = $%d", argIndex)
		args = append(args, filter.ActorID)
		argIndex++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIndex)
		args = append(args, filter.StartTime)
		argIndex++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIndex)
		args = append(args, filter.EndTime)
		argIndex++
	}

	query += " ORDER BY sequence DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
		argIndex++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*types.AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Count returns the number of persisted entries.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_entries").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return n, nil
}

// scanAuditEntry scans a database row into an AuditEntry.
func scanAuditEntry(scanner interface {
	Scan(dest ...interface{}) error
}) (*types.AuditEntry, error) {
	var entry types.AuditEntry
	var actorID, actorEmail, description, ipAddress, userAgent, prevHash sql.NullString
	var oldJSON, newJSON []byte

	err := scanner.Scan(
		&entry.ID,
		&entry.Sequence,
		&actorID,
		&actorEmail,
		&entry.Action,
		&entry.ResourceType,
		&entry.ResourceID,
		&oldJSON,
		&newJSON,
		&description,
		&ipAddress,
		&userAgent,
		&prevHash,
		&entry.Hash,
		&entry.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit entry: %w", err)
	}

	if actorID.Valid {
		entry.ActorID = &actorID.String
	}
	entry.ActorEmail = actorEmail.String
	entry.Description = description.String
	entry.IPAddress = ipAddress.String
	entry.UserAgent = userAgent.String
	entry.PrevHash = prevHash.String

	if len(oldJSON) > 0 {
		if err := json.Unmarshal(oldJSON, &entry.OldValues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal old_values: %w", err)
		}
	}
	if len(newJSON) > 0 {
		if err := json.Unmarshal(newJSON, &entry.NewValues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal new_values: %w", err)
		}
	}

	return &entry, nil
}

func marshalSnapshots(entry *types.AuditEntry) ([]byte, []byte, error) {
	var oldJSON, newJSON []byte
	var err error
	if entry.OldValues != nil {
		if oldJSON, err = json.Marshal(entry.OldValues); err != nil {
			return nil, nil, fmt.Errorf("failed to marshal old_values: %w", err)
		}
	}
	if entry.NewValues != nil {
		if newJSON, err = json.Marshal(entry.NewValues); err != nil {
			return nil, nil, fmt.Errorf("failed to marshal new_values: %w", err)
		}
	}
	return oldJSON, newJSON, nil
}

// nullString returns sql.NullString for empty strings.
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
