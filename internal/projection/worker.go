package projection

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"SponsorLedger/internal/event"
)

// ProjectionOutput mirrors the envelope fields the projection worker needs.
// The orchestrator bridges between core outputs and this.
type ProjectionOutput struct {
	Sequence   int64
	RecordType event.RecordType
	Payload    []byte
	Timestamp  int64
}

// ProjectionWorker updates read-side tables from emitted records.
// The projection channel is non-blocking with drop: if projections fall
// behind, they can be rebuilt from the audit log via RebuildProjections.
type ProjectionWorker struct {
	db        *sql.DB
	inputChan <-chan ProjectionOutput
	log       zerolog.Logger
	lastSeq   int64
}

func NewProjectionWorker(
	db *sql.DB,
	inputChan <-chan ProjectionOutput,
	log zerolog.Logger,
) *ProjectionWorker {
	return &ProjectionWorker{
		db:        db,
		inputChan: inputChan,
		log:       log.With().Str("component", "projection").Logger(),
	}
}

// Run starts the projection worker loop.
func (pw *ProjectionWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case output, ok := <-pw.inputChan:
			if !ok {
				return nil
			}

			if err := pw.processOutput(ctx, output); err != nil {
				// Projections are eventually consistent and can be
				// rebuilt from the audit log, so log and continue.
				pw.log.Warn().
					Int64("sequence", output.Sequence).
					Str("record_type", output.RecordType.String()).
					Err(err).
					Msg("projection update failed")
			}

			pw.lastSeq = output.Sequence
		}
	}
}

func (pw *ProjectionWorker) processOutput(ctx context.Context, output ProjectionOutput) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := applyRecord(ctx, tx, output); err != nil {
		return fmt.Errorf("apply %s: %w", output.RecordType, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.watermark (worker_id, last_sequence, updated_at)
		VALUES ('main', $1, NOW())
		ON CONFLICT (worker_id) DO UPDATE SET last_sequence = $1, updated_at = NOW()
	`, output.Sequence); err != nil {
		return fmt.Errorf("watermark update: %w", err)
	}

	return tx.Commit()
}

// applyRecord routes a single record to its projection updates.
// SponsoredReceived carries the credited amount so the paired Sponsored
// record is informational only; ForfeitSummary likewise aggregates
// per-asset Forfeited records that were already applied.
func applyRecord(ctx context.Context, tx *sql.Tx, output ProjectionOutput) error {
	seq := output.Sequence

	switch output.RecordType {
	case event.RecordTypeSponsoredReceived:
		var rec event.SponsoredReceived
		if err := json.Unmarshal(output.Payload, &rec); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO projections.sponsors (beneficiary, sponsor, last_sequence)
			VALUES ($1, $2, $3)
			ON CONFLICT (beneficiary) DO UPDATE SET sponsor = $2, last_sequence = $3
		`, rec.Beneficiary, rec.Sponsor, seq); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO projections.balances (beneficiary, asset, balance, last_sequence)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (beneficiary, asset)
			DO UPDATE SET balance = projections.balances.balance + $3, last_sequence = $4
		`, rec.Beneficiary, rec.Asset, rec.Received, seq); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO projections.asset_totals (asset, cumulative_units, last_sequence)
			VALUES ($1, $2, $3)
			ON CONFLICT (asset)
			DO UPDATE SET cumulative_units = projections.asset_totals.cumulative_units + $2,
			              last_sequence = $3
		`, rec.Asset, rec.Received, seq); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO projections.lifetime (beneficiary, lifetime_units, last_sequence)
			VALUES ($1, $2, $3)
			ON CONFLICT (beneficiary)
			DO UPDATE SET lifetime_units = projections.lifetime.lifetime_units + $2,
			              last_sequence = $3
		`, rec.Beneficiary, rec.Received, seq); err != nil {
			return err
		}

	case event.RecordTypeConsumed:
		var rec event.Consumed
		if err := json.Unmarshal(output.Payload, &rec); err != nil {
			return err
		}
		// The record carries the authoritative remaining balance.
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO projections.balances (beneficiary, asset, balance, last_sequence)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (beneficiary, asset)
			DO UPDATE SET balance = $3, last_sequence = $4
		`, rec.Beneficiary, rec.Asset, rec.Remaining, seq); err != nil {
			return err
		}

	case event.RecordTypeForfeited:
		var rec event.Forfeited
		if err := json.Unmarshal(output.Payload, &rec); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE projections.balances SET balance = 0, last_sequence = $3
			WHERE beneficiary = $1 AND asset = $2
		`, rec.Beneficiary, rec.Asset, seq); err != nil {
			return err
		}

	case event.RecordTypeSponsorCleared:
		var rec event.SponsorCleared
		if err := json.Unmarshal(output.Payload, &rec); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM projections.sponsors WHERE beneficiary = $1
		`, rec.Beneficiary); err != nil {
			return err
		}

	case event.RecordTypeEngineConfigured:
		var rec event.EngineConfigured
		if err := json.Unmarshal(output.Payload, &rec); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO projections.admin_state (id, owner, engine, last_sequence)
			VALUES (1, $1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET owner = $1, engine = $2, last_sequence = $3
		`, rec.Owner, rec.Engine, seq); err != nil {
			return err
		}

	case event.RecordTypeOwnershipTransferStarted:
		var rec event.OwnershipTransferStarted
		if err := json.Unmarshal(output.Payload, &rec); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO projections.admin_state (id, owner, pending_owner, last_sequence)
			VALUES (1, $1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET owner = $1, pending_owner = $2, last_sequence = $3
		`, rec.Owner, rec.PendingOwner, seq); err != nil {
			return err
		}

	case event.RecordTypeOwnershipTransferred:
		var rec event.OwnershipTransferred
		if err := json.Unmarshal(output.Payload, &rec); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO projections.admin_state (id, owner, pending_owner, last_sequence)
			VALUES (1, $1, NULL, $2)
			ON CONFLICT (id) DO UPDATE SET owner = $1, pending_owner = NULL, last_sequence = $2
		`, rec.NewOwner, seq); err != nil {
			return err
		}

	case event.RecordTypeSponsored, event.RecordTypeForfeitSummary:
		// Informational records, no projection state to update.
	}

	return nil
}

// RebuildProjections truncates the read-side tables and replays the full
// audit log through the same apply path used by the live worker.
func RebuildProjections(ctx context.Context, db *sql.DB, log zerolog.Logger) error {
	truncateStatements := []string{
		`TRUNCATE projections.sponsors`,
		`TRUNCATE projections.balances`,
		`TRUNCATE projections.asset_totals`,
		`TRUNCATE projections.lifetime`,
		`TRUNCATE projections.admin_state`,
		`DELETE FROM projections.watermark WHERE worker_id = 'main'`,
	}

	for _, stmt := range truncateStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("truncate failed: %w", err)
		}
	}

	rows, err := db.QueryContext(ctx, `
		SELECT sequence, record_type, payload, timestamp
		FROM audit_log.records
		ORDER BY sequence ASC
	`)
	if err != nil {
		return fmt.Errorf("scan audit log: %w", err)
	}
	defer rows.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var lastSeq int64
	var count int64
	for rows.Next() {
		var output ProjectionOutput
		var recordType string
		var ts time.Time
		if err := rows.Scan(&output.Sequence, &recordType, &output.Payload, &ts); err != nil {
			return err
		}
		output.RecordType = event.RecordTypeFromString(recordType)
		output.Timestamp = ts.UnixMicro()

		if err := applyRecord(ctx, tx, output); err != nil {
			return fmt.Errorf("rebuild at seq=%d: %w", output.Sequence, err)
		}
		lastSeq = output.Sequence
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if count > 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO projections.watermark (worker_id, last_sequence, updated_at)
			VALUES ('main', $1, NOW())
			ON CONFLICT (worker_id) DO UPDATE SET last_sequence = $1, updated_at = NOW()
		`, lastSeq); err != nil {
			return fmt.Errorf("watermark update: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Info().Int64("records", count).Int64("last_sequence", lastSeq).
		Msg("projection rebuild complete")
	return nil
}
