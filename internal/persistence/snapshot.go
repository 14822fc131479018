package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SnapshotManager handles creating and loading state snapshots for recovery.
// Snapshots contain sponsor assignments, balances, lifetime totals, admin
// pointers, sequence counters, recent idempotency keys, and the chain tip.
type SnapshotManager struct {
	db *sql.DB
}

// SnapshotData contains the full in-memory state at a point in time.
// Balance keys are encoded "beneficiary|asset" for JSON friendliness.
type SnapshotData struct {
	Sequence          int64             `json:"sequence"`
	StateHash         []byte            `json:"state_hash"`
	Sponsors          map[string]string `json:"sponsors"` // beneficiary -> sponsor
	Balances          map[string]uint64 `json:"balances"` // "beneficiary|asset" -> units
	AssetCumulative   map[string]uint64 `json:"asset_cumulative"`
	LifetimeAllocated map[string]uint64 `json:"lifetime_allocated"`
	Owner             string            `json:"owner"`
	PendingOwner      string            `json:"pending_owner"`
	Engine            string            `json:"engine"`
	SequenceState     map[string]int64  `json:"sequence_state"`   // partition -> next expected seq
	IdempotencyKeys   []string          `json:"idempotency_keys"` // Recent keys for LRU warming
	CreatedAt         time.Time         `json:"created_at"`
}

// EncodeBalanceKey joins a (beneficiary, asset) pair for snapshot storage.
func EncodeBalanceKey(beneficiary, asset string) string {
	return beneficiary + "|" + asset
}

// DecodeBalanceKey is the inverse of EncodeBalanceKey.
func DecodeBalanceKey(key string) (beneficiary, asset string, err error) {
	parts := strings.SplitN(key, "|", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("malformed balance key %q", key)
	}
	return parts[0], parts[1], nil
}

func NewSnapshotManager(db *sql.DB) *SnapshotManager {
	return &SnapshotManager{db: db}
}

// SaveSnapshot persists a snapshot to Postgres. Snapshots are taken
// periodically and verified before restores will use them.
func (sm *SnapshotManager) SaveSnapshot(ctx context.Context, snap *SnapshotData) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	snapshotID := uuid.New()
	sizeBytes := len(data)
	formatVersion := int32(1) // v1: JSON-encoded SnapshotData

	_, err = sm.db.ExecContext(ctx, `
		INSERT INTO audit_log.snapshots
			(snapshot_id, sequence, data, state_hash, format_version, size_bytes, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
		ON CONFLICT (sequence) DO UPDATE SET data = $3, state_hash = $4, size_bytes = $6
	`, snapshotID, snap.Sequence, data, snap.StateHash, formatVersion, sizeBytes, snap.CreatedAt)

	return err
}

// LoadLatestSnapshot loads the most recent verified snapshot.
// On warm restart: load the snapshot, then replay records from sequence+1.
func (sm *SnapshotManager) LoadLatestSnapshot(ctx context.Context) (*SnapshotData, error) {
	row := sm.db.QueryRowContext(ctx, `
		SELECT data FROM audit_log.snapshots
		WHERE verified = TRUE
		ORDER BY sequence DESC
		LIMIT 1
	`)

	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // No snapshot: cold start
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap SnapshotData
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

// MarkVerified marks a snapshot as verified after integrity check.
func (sm *SnapshotManager) MarkVerified(ctx context.Context, sequence int64) error {
	_, err := sm.db.ExecContext(ctx, `
		UPDATE audit_log.snapshots SET verified = TRUE WHERE sequence = $1
	`, sequence)
	return err
}

// LoadRecordsFrom loads audit records from a given sequence for replay.
// Used for warm restart (replay from snapshot) and cold restart (replay all).
func (sm *SnapshotManager) LoadRecordsFrom(ctx context.Context, fromSequence int64, limit int) ([]RecordRow, error) {
	rows, err := sm.db.QueryContext(ctx, `
		SELECT sequence, record_type, idempotency_key, beneficiary, payload,
		       state_hash, prev_hash, timestamp, source_sequence
		FROM audit_log.records
		WHERE sequence >= $1
		ORDER BY sequence ASC
		LIMIT $2
	`, fromSequence, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RecordRow
	for rows.Next() {
		var r RecordRow
		if err := rows.Scan(
			&r.Sequence, &r.RecordType, &r.IdempotencyKey, &r.Beneficiary,
			&r.Payload, &r.StateHash, &r.PrevHash, &r.Timestamp, &r.SourceSequence,
		); err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// GetLatestSequence returns the highest sequence in the audit log.
func (sm *SnapshotManager) GetLatestSequence(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := sm.db.QueryRowContext(ctx, `
		SELECT MAX(sequence) FROM audit_log.records
	`).Scan(&seq)
	if err != nil {
		return 0, err
	}
	if !seq.Valid {
		return 0, nil // Empty audit log
	}
	return seq.Int64, nil
}
