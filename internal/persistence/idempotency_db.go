package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SponsorLedger/internal/event"
)

// PostgresIdempotencyChecker implements tier-2 deduplication against the
// audit log. A command is a duplicate if any record it produced was already
// persisted; keys are UUIDs, so the key alone identifies the command.
type PostgresIdempotencyChecker struct {
	db *sql.DB
}

func NewPostgresIdempotencyChecker(db *sql.DB) *PostgresIdempotencyChecker {
	return &PostgresIdempotencyChecker{
		db: db,
	}
}

// IsDuplicate checks if a command's records exist in the audit log.
func (pic *PostgresIdempotencyChecker) IsDuplicate(commandType string, idempotencyKey string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	query := `
        SELECT 1
        FROM audit_log.records
        WHERE idempotency_key = $1
        LIMIT 1
    `

	var exists int
	err := pic.db.QueryRowContext(ctx, query, idempotencyKey).Scan(&exists)

	if err == sql.ErrNoRows {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

// LoadRecentKeys returns the composite LRU keys of the most recently
// persisted commands, newest first, for warming the in-core cache on start.
func (pic *PostgresIdempotencyChecker) LoadRecentKeys(ctx context.Context, limit int) ([]string, error) {
	rows, err := pic.db.QueryContext(ctx, `
        SELECT record_type, idempotency_key
        FROM audit_log.records
        ORDER BY sequence DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[string]bool, limit)
	keys := make([]string, 0, limit)
	for rows.Next() {
		var recordType, key string
		if err := rows.Scan(&recordType, &key); err != nil {
			return nil, err
		}
		commandType := event.RecordTypeFromString(recordType).CommandType().String()
		composite := fmt.Sprintf("%s:%s", commandType, key)
		if seen[composite] {
			continue
		}
		seen[composite] = true
		keys = append(keys, composite)
	}
	return keys, rows.Err()
}
