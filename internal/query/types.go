package query

// SponsorResponse reports the sponsor currently assigned to a beneficiary.
// Sponsor is empty when no sponsorship is active.
type SponsorResponse struct {
	Beneficiary  string `json:"beneficiary"`
	Sponsor      string `json:"sponsor,omitempty"`
	HasSponsor   bool   `json:"has_sponsor"`
	AsOfSequence int64  `json:"as_of_sequence"`
}

// BalanceResponse reports a beneficiary's unit balance for one asset.
type BalanceResponse struct {
	Beneficiary  string `json:"beneficiary"`
	Asset        string `json:"asset"`
	Balance      uint64 `json:"balance"`
	AsOfSequence int64  `json:"as_of_sequence"`
}

// AssetBalance is one entry of a full balance listing.
type AssetBalance struct {
	Asset   string `json:"asset"`
	Balance uint64 `json:"balance"`
}

// BalancesResponse lists every asset a beneficiary holds units in.
type BalancesResponse struct {
	Beneficiary  string         `json:"beneficiary"`
	Balances     []AssetBalance `json:"balances"`
	ActiveAssets int            `json:"active_assets"`
	AsOfSequence int64          `json:"as_of_sequence"`
}

// AssetTotalResponse reports the cumulative units ever provisioned for an
// asset, used to enforce per-asset caps. The total never decreases.
type AssetTotalResponse struct {
	Asset           string `json:"asset"`
	CumulativeUnits uint64 `json:"cumulative_units"`
	AsOfSequence    int64  `json:"as_of_sequence"`
}

// LifetimeResponse reports a beneficiary's lifetime allocated units across
// all assets and sponsors. The total never decreases.
type LifetimeResponse struct {
	Beneficiary   string `json:"beneficiary"`
	LifetimeUnits uint64 `json:"lifetime_units"`
	AsOfSequence  int64  `json:"as_of_sequence"`
}

// RecordResponse is one audit record for history queries.
type RecordResponse struct {
	Sequence       int64  `json:"sequence"`
	RecordType     string `json:"record_type"`
	IdempotencyKey string `json:"idempotency_key"`
	Beneficiary    string `json:"beneficiary,omitempty"`
	Payload        any    `json:"payload"`
	Timestamp      int64  `json:"timestamp"`
	SourceSequence int64  `json:"source_sequence"`
	StateHash      string `json:"state_hash"`
	PrevHash       string `json:"prev_hash"`
}

// AdminStateResponse reports the control surface of the ledger.
type AdminStateResponse struct {
	Owner        string `json:"owner"`
	PendingOwner string `json:"pending_owner,omitempty"`
	Engine       string `json:"engine,omitempty"`
	AsOfSequence int64  `json:"as_of_sequence"`
}

// IntegrityReport is the result of an integrity verification check.
type IntegrityReport struct {
	IsHealthy       bool    `json:"is_healthy"`
	RecordsChecked  int64   `json:"records_checked"`
	HashChainBreaks []int64 `json:"hash_chain_breaks,omitempty"`
}
