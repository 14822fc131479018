package query

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// QueryService provides read-only access to the projection tables and the
// audit log. Queries are served via gRPC and HTTP/JSON (gRPC-Gateway).
// All responses include as_of_sequence: the watermark of the projection
// worker, so callers can reason about freshness.
type QueryService struct {
	db *sql.DB
}

func NewQueryService(db *sql.DB) *QueryService {
	return &QueryService{db: db}
}

// GetSponsor returns the sponsor assigned to a beneficiary, if any.
func (qs *QueryService) GetSponsor(ctx context.Context, beneficiary string) (*SponsorResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	resp := &SponsorResponse{
		Beneficiary:  beneficiary,
		AsOfSequence: asOfSeq,
	}

	err = qs.db.QueryRowContext(ctx, `
		SELECT sponsor FROM projections.sponsors WHERE beneficiary = $1
	`, beneficiary).Scan(&resp.Sponsor)
	if err == sql.ErrNoRows {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}

	resp.HasSponsor = true
	return resp, nil
}

// GetBalance returns a beneficiary's unit balance for one asset.
// A beneficiary with no row has a zero balance.
func (qs *QueryService) GetBalance(ctx context.Context, beneficiary, asset string) (*BalanceResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	resp := &BalanceResponse{
		Beneficiary:  beneficiary,
		Asset:        asset,
		AsOfSequence: asOfSeq,
	}

	err = qs.db.QueryRowContext(ctx, `
		SELECT balance FROM projections.balances
		WHERE beneficiary = $1 AND asset = $2
	`, beneficiary, asset).Scan(&resp.Balance)
	if err == sql.ErrNoRows {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// GetBalances lists every asset a beneficiary holds a positive balance in.
func (qs *QueryService) GetBalances(ctx context.Context, beneficiary string) (*BalancesResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	rows, err := qs.db.QueryContext(ctx, `
		SELECT asset, balance FROM projections.balances
		WHERE beneficiary = $1 AND balance > 0
		ORDER BY asset
	`, beneficiary)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	resp := &BalancesResponse{
		Beneficiary:  beneficiary,
		Balances:     []AssetBalance{},
		AsOfSequence: asOfSeq,
	}

	for rows.Next() {
		var b AssetBalance
		if err := rows.Scan(&b.Asset, &b.Balance); err != nil {
			return nil, err
		}
		resp.Balances = append(resp.Balances, b)
	}

	resp.ActiveAssets = len(resp.Balances)
	return resp, rows.Err()
}

// GetAssetTotal returns the cumulative units ever provisioned for an asset.
func (qs *QueryService) GetAssetTotal(ctx context.Context, asset string) (*AssetTotalResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	resp := &AssetTotalResponse{
		Asset:        asset,
		AsOfSequence: asOfSeq,
	}

	err = qs.db.QueryRowContext(ctx, `
		SELECT cumulative_units FROM projections.asset_totals WHERE asset = $1
	`, asset).Scan(&resp.CumulativeUnits)
	if err == sql.ErrNoRows {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// GetLifetime returns a beneficiary's lifetime allocated units.
func (qs *QueryService) GetLifetime(ctx context.Context, beneficiary string) (*LifetimeResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	resp := &LifetimeResponse{
		Beneficiary:  beneficiary,
		AsOfSequence: asOfSeq,
	}

	err = qs.db.QueryRowContext(ctx, `
		SELECT lifetime_units FROM projections.lifetime WHERE beneficiary = $1
	`, beneficiary).Scan(&resp.LifetimeUnits)
	if err == sql.ErrNoRows {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// GetAdminState returns the current owner, pending owner, and engine.
func (qs *QueryService) GetAdminState(ctx context.Context) (*AdminStateResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	resp := &AdminStateResponse{AsOfSequence: asOfSeq}

	var pendingOwner, engine sql.NullString
	err = qs.db.QueryRowContext(ctx, `
		SELECT owner, pending_owner, engine FROM projections.admin_state WHERE id = 1
	`).Scan(&resp.Owner, &pendingOwner, &engine)
	if err == sql.ErrNoRows {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}

	resp.PendingOwner = pendingOwner.String
	resp.Engine = engine.String
	return resp, nil
}

// GetRecords returns audit records for a beneficiary with cursor-based
// pagination (newest first, afterSequence as exclusive upper bound).
func (qs *QueryService) GetRecords(
	ctx context.Context,
	beneficiary string,
	limit int,
	afterSequence *int64,
) ([]RecordResponse, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	queryStr := `
		SELECT sequence, record_type, idempotency_key, beneficiary, payload,
		       state_hash, prev_hash, timestamp, source_sequence
		FROM audit_log.records
		WHERE beneficiary = $1
	`
	args := []interface{}{beneficiary}
	argIdx := 2

	if afterSequence != nil {
		queryStr += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *afterSequence)
		argIdx++
	}

	queryStr += " ORDER BY sequence DESC"
	queryStr += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := qs.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RecordResponse
	for rows.Next() {
		var r RecordResponse
		var beneficiaryCol sql.NullString
		var payload, stateHash, prevHash []byte
		var ts time.Time
		if err := rows.Scan(
			&r.Sequence, &r.RecordType, &r.IdempotencyKey, &beneficiaryCol,
			&payload, &stateHash, &prevHash, &ts, &r.SourceSequence,
		); err != nil {
			return nil, err
		}
		r.Timestamp = ts.UnixMicro()
		r.Beneficiary = beneficiaryCol.String
		r.StateHash = hex.EncodeToString(stateHash)
		r.PrevHash = hex.EncodeToString(prevHash)

		var decoded interface{}
		if err := json.Unmarshal(payload, &decoded); err != nil {
			decoded = string(payload)
		}
		r.Payload = decoded

		records = append(records, r)
	}

	return records, rows.Err()
}

// --- Admin APIs ---

// VerifyIntegrity walks the audit log checking that each record's prev_hash
// matches the state_hash of its predecessor.
func (qs *QueryService) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	report := &IntegrityReport{}

	rows, err := qs.db.QueryContext(ctx, `
		SELECT r1.sequence
		FROM audit_log.records r1
		JOIN audit_log.records r2 ON r2.sequence = r1.sequence - 1
		WHERE r1.prev_hash != r2.state_hash
		ORDER BY r1.sequence
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return nil, err
		}
		report.HashChainBreaks = append(report.HashChainBreaks, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := qs.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM audit_log.records
	`).Scan(&report.RecordsChecked); err != nil {
		return nil, err
	}

	report.IsHealthy = len(report.HashChainBreaks) == 0
	return report, nil
}

// --- helpers ---

func (qs *QueryService) getWatermark(ctx context.Context) (int64, error) {
	var seq int64
	err := qs.db.QueryRowContext(ctx, `
		SELECT COALESCE(last_sequence, 0) FROM projections.watermark WHERE worker_id = 'main'
	`).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return seq, err
}
