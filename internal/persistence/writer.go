package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"SponsorLedger/internal/event"
)

// AuditLogWriter writes audit records to Postgres using batch inserts.
// Multi-row INSERT keeps the writer portable across drivers; switch to pgx
// CopyFrom if write throughput ever becomes the bottleneck.
type AuditLogWriter struct {
	db           *sql.DB
	batchSize    int
	flushTimeout time.Duration
}

// RecordRow represents a row in audit_log.records
type RecordRow struct {
	Sequence       int64
	RecordType     string
	IdempotencyKey string
	Beneficiary    *string
	Payload        []byte // JSON-encoded record payload
	StateHash      []byte
	PrevHash       []byte
	Timestamp      time.Time
	SourceSequence int64
}

// RecordRowFromEnvelope flattens a core envelope into its storage row.
func RecordRowFromEnvelope(env *event.RecordEnvelope) RecordRow {
	stateHash := make([]byte, 32)
	copy(stateHash, env.StateHash[:])
	prevHash := make([]byte, 32)
	copy(prevHash, env.PrevHash[:])

	return RecordRow{
		Sequence:       env.Sequence,
		RecordType:     env.RecordType.String(),
		IdempotencyKey: env.IdempotencyKey,
		Beneficiary:    env.Beneficiary,
		Payload:        env.Payload,
		StateHash:      stateHash,
		PrevHash:       prevHash,
		Timestamp:      env.Timestamp,
		SourceSequence: env.SourceSequence,
	}
}

// EnvelopeFromRow is the inverse of RecordRowFromEnvelope, used for replay.
func EnvelopeFromRow(row RecordRow) *event.RecordEnvelope {
	env := &event.RecordEnvelope{
		Sequence:       row.Sequence,
		IdempotencyKey: row.IdempotencyKey,
		RecordType:     event.RecordTypeFromString(row.RecordType),
		Beneficiary:    row.Beneficiary,
		Timestamp:      row.Timestamp,
		SourceSequence: row.SourceSequence,
		Payload:        row.Payload,
	}
	copy(env.StateHash[:], row.StateHash)
	copy(env.PrevHash[:], row.PrevHash)
	return env
}

func NewAuditLogWriter(db *sql.DB, batchSize int, flushTimeout time.Duration) *AuditLogWriter {
	return &AuditLogWriter{
		db:           db,
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
	}
}

// WriteRecordBatch writes a batch of records to audit_log.records inside the
// given transaction using a multi-row INSERT. ON CONFLICT DO NOTHING keeps
// redelivered batches idempotent.
func (w *AuditLogWriter) WriteRecordBatch(ctx context.Context, tx *sql.Tx, records []RecordRow) error {
	if len(records) == 0 {
		return nil
	}

	query := `INSERT INTO audit_log.records
		(sequence, record_type, idempotency_key, beneficiary, payload, state_hash, prev_hash, timestamp, source_sequence)
		VALUES `

	values := make([]string, 0, len(records))
	args := make([]interface{}, 0, len(records)*9)

	for i, r := range records {
		base := i * 9
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9,
		))
		args = append(args,
			r.Sequence, r.RecordType, r.IdempotencyKey, r.Beneficiary,
			r.Payload, r.StateHash, r.PrevHash, r.Timestamp, r.SourceSequence,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (sequence) DO NOTHING"

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}
