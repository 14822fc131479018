package event

// Record is the interface all audit record payloads implement.
// Records are append-only: they are persisted and published but never
// re-queried as state. Payloads are JSON-encoded into the envelope.
type Record interface {
	RecordType() RecordType
}

// Sponsored reports a successful provisioning: requested units versus the
// beneficiary's new balance for the asset.
type Sponsored struct {
	Sponsor     string `json:"sponsor"`
	Beneficiary string `json:"beneficiary"`
	Asset       string `json:"asset"`
	Requested   uint64 `json:"requested"`
	NewBalance  uint64 `json:"new_balance"`
}

func (Sponsored) RecordType() RecordType { return RecordTypeSponsored }

// SponsoredReceived reports requested versus actually-received units for
// the same provisioning call. The received figure is what was credited.
type SponsoredReceived struct {
	Sponsor     string `json:"sponsor"`
	Beneficiary string `json:"beneficiary"`
	Asset       string `json:"asset"`
	Requested   uint64 `json:"requested"`
	Received    uint64 `json:"received"`
}

func (SponsoredReceived) RecordType() RecordType { return RecordTypeSponsoredReceived }

// Consumed reports a debit by the consuming engine.
type Consumed struct {
	Beneficiary string `json:"beneficiary"`
	Asset       string `json:"asset"`
	Amount      uint64 `json:"amount"`
	Remaining   uint64 `json:"remaining"`
}

func (Consumed) RecordType() RecordType { return RecordTypeConsumed }

// Forfeited reports a single asset balance zeroed by its beneficiary.
type Forfeited struct {
	Beneficiary string `json:"beneficiary"`
	Asset       string `json:"asset"`
	Amount      uint64 `json:"amount"`
}

func (Forfeited) RecordType() RecordType { return RecordTypeForfeited }

// SponsorCleared reports a sponsor unassignment.
type SponsorCleared struct {
	Beneficiary     string `json:"beneficiary"`
	PreviousSponsor string `json:"previous_sponsor"`
}

func (SponsorCleared) RecordType() RecordType { return RecordTypeSponsorCleared }

// ForfeitSummary reports the outcome of a whole forfeiture call.
type ForfeitSummary struct {
	Beneficiary    string `json:"beneficiary"`
	AssetsCleared  int    `json:"assets_cleared"`
	TotalForfeited uint64 `json:"total_forfeited"`
	SponsorCleared bool   `json:"sponsor_cleared"`
}

func (ForfeitSummary) RecordType() RecordType { return RecordTypeForfeitSummary }

// EngineConfigured reports a consuming-engine pointer change.
type EngineConfigured struct {
	Owner  string `json:"owner"`
	Engine string `json:"engine"`
}

func (EngineConfigured) RecordType() RecordType { return RecordTypeEngineConfigured }

// OwnershipTransferStarted reports step one of the admin handoff.
type OwnershipTransferStarted struct {
	Owner        string `json:"owner"`
	PendingOwner string `json:"pending_owner"`
}

func (OwnershipTransferStarted) RecordType() RecordType { return RecordTypeOwnershipTransferStarted }

// OwnershipTransferred reports a completed admin handoff.
type OwnershipTransferred struct {
	PreviousOwner string `json:"previous_owner"`
	NewOwner      string `json:"new_owner"`
}

func (OwnershipTransferred) RecordType() RecordType { return RecordTypeOwnershipTransferred }
