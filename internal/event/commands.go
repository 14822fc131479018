package event

import (
	"time"

	"github.com/google/uuid"
)

// SponsorRequested provisions a beneficiary: the caller's asset is swept to
// the sink and the beneficiary is credited with the actually-received units.
type SponsorRequested struct {
	CommandID       uuid.UUID
	Caller          string
	BeneficiaryAddr string
	Asset           string
	Amount          uint64 // requested, caller-denominated
	Sequence        int64
	Timestamp       time.Time
}

func (c *SponsorRequested) IdempotencyKey() string { return c.CommandID.String() }

func (c *SponsorRequested) CommandType() CommandType { return CommandTypeSponsor }

func (c *SponsorRequested) Beneficiary() *string { return &c.BeneficiaryAddr }

func (c *SponsorRequested) SourceSequence() int64 { return c.Sequence }

func (c *SponsorRequested) OccurredAt() time.Time { return c.Timestamp }

// ConsumeRequested debits a beneficiary's balance. Only the configured
// consuming engine may issue it.
type ConsumeRequested struct {
	CommandID       uuid.UUID
	Caller          string
	BeneficiaryAddr string
	Asset           string
	Amount          uint64
	Sequence        int64
	Timestamp       time.Time
}

func (c *ConsumeRequested) IdempotencyKey() string { return c.CommandID.String() }

func (c *ConsumeRequested) CommandType() CommandType { return CommandTypeConsume }

func (c *ConsumeRequested) Beneficiary() *string { return &c.BeneficiaryAddr }

func (c *ConsumeRequested) SourceSequence() int64 { return c.Sequence }

func (c *ConsumeRequested) OccurredAt() time.Time { return c.Timestamp }

// ClearSponsorRequested unassigns the caller's sponsor once all balances
// have been consumed.
type ClearSponsorRequested struct {
	CommandID uuid.UUID
	Caller    string
	Sequence  int64
	Timestamp time.Time
}

func (c *ClearSponsorRequested) IdempotencyKey() string { return c.CommandID.String() }

func (c *ClearSponsorRequested) CommandType() CommandType { return CommandTypeClearSponsor }

func (c *ClearSponsorRequested) Beneficiary() *string { return &c.Caller }

func (c *ClearSponsorRequested) SourceSequence() int64 { return c.Sequence }

func (c *ClearSponsorRequested) OccurredAt() time.Time { return c.Timestamp }

// ForfeitRequested zeroes the caller's balances for the listed assets and
// clears the sponsor if nothing remains.
type ForfeitRequested struct {
	CommandID uuid.UUID
	Caller    string
	Assets    []string
	Sequence  int64
	Timestamp time.Time
}

func (c *ForfeitRequested) IdempotencyKey() string { return c.CommandID.String() }

func (c *ForfeitRequested) CommandType() CommandType { return CommandTypeForfeit }

func (c *ForfeitRequested) Beneficiary() *string { return &c.Caller }

func (c *ForfeitRequested) SourceSequence() int64 { return c.Sequence }

func (c *ForfeitRequested) OccurredAt() time.Time { return c.Timestamp }

// ConfigureEngineRequested sets the consuming engine address. Owner-only.
type ConfigureEngineRequested struct {
	CommandID uuid.UUID
	Caller    string
	Engine    string
	Sequence  int64
	Timestamp time.Time
}

func (c *ConfigureEngineRequested) IdempotencyKey() string { return c.CommandID.String() }

func (c *ConfigureEngineRequested) CommandType() CommandType { return CommandTypeConfigureEngine }

func (c *ConfigureEngineRequested) Beneficiary() *string { return nil }

func (c *ConfigureEngineRequested) SourceSequence() int64 { return c.Sequence }

func (c *ConfigureEngineRequested) OccurredAt() time.Time { return c.Timestamp }

// TransferOwnershipRequested starts the two-step ownership handoff.
type TransferOwnershipRequested struct {
	CommandID uuid.UUID
	Caller    string
	NewOwner  string
	Sequence  int64
	Timestamp time.Time
}

func (c *TransferOwnershipRequested) IdempotencyKey() string { return c.CommandID.String() }

func (c *TransferOwnershipRequested) CommandType() CommandType { return CommandTypeTransferOwnership }

func (c *TransferOwnershipRequested) Beneficiary() *string { return nil }

func (c *TransferOwnershipRequested) SourceSequence() int64 { return c.Sequence }

func (c *TransferOwnershipRequested) OccurredAt() time.Time { return c.Timestamp }

// AcceptOwnershipRequested completes the two-step ownership handoff.
type AcceptOwnershipRequested struct {
	CommandID uuid.UUID
	Caller    string
	Sequence  int64
	Timestamp time.Time
}

func (c *AcceptOwnershipRequested) IdempotencyKey() string { return c.CommandID.String() }

func (c *AcceptOwnershipRequested) CommandType() CommandType { return CommandTypeAcceptOwnership }

func (c *AcceptOwnershipRequested) Beneficiary() *string { return nil }

func (c *AcceptOwnershipRequested) SourceSequence() int64 { return c.Sequence }

func (c *AcceptOwnershipRequested) OccurredAt() time.Time { return c.Timestamp }
