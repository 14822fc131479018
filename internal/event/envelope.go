package event

import (
	"time"
)

// RecordType discriminator for audit record payloads.
type RecordType int32

const (
	RecordTypeUnknown RecordType = iota
	RecordTypeSponsored
	RecordTypeSponsoredReceived
	RecordTypeConsumed
	RecordTypeForfeited
	RecordTypeSponsorCleared
	RecordTypeForfeitSummary
	RecordTypeEngineConfigured
	RecordTypeOwnershipTransferStarted
	RecordTypeOwnershipTransferred
)

// RecordEnvelope wraps every audit record in the log.
type RecordEnvelope struct {
	// Global monotonic sequence assigned by the core
	Sequence int64

	// Stable idempotency key of the originating command
	IdempotencyKey string

	// Record type discriminator
	RecordType RecordType

	// Beneficiary context (nullable for admin records)
	Beneficiary *string

	// Versioned input timestamp (NOT wall-clock)
	Timestamp time.Time

	// Upstream sequence for ordering validation
	SourceSequence int64

	// JSON-encoded record payload
	Payload []byte

	// SHA-256 of affected state AFTER applying this record
	StateHash [32]byte

	// Previous record's state hash (chain integrity)
	PrevHash [32]byte
}

// Command is the interface all mutating commands implement.
type Command interface {
	// IdempotencyKey returns the stable dedup key
	IdempotencyKey() string

	// CommandType returns the discriminator
	CommandType() CommandType

	// Beneficiary returns the beneficiary context (nil for admin commands)
	Beneficiary() *string

	// SourceSequence returns the upstream ordering key
	SourceSequence() int64

	// OccurredAt returns the versioned input timestamp
	OccurredAt() time.Time
}

// CommandType discriminator for inbound commands.
type CommandType int32

const (
	CommandTypeUnknown CommandType = iota
	CommandTypeSponsor
	CommandTypeConsume
	CommandTypeClearSponsor
	CommandTypeForfeit
	CommandTypeConfigureEngine
	CommandTypeTransferOwnership
	CommandTypeAcceptOwnership
)

func (ct CommandType) String() string {
	switch ct {
	case CommandTypeSponsor:
		return "Sponsor"
	case CommandTypeConsume:
		return "Consume"
	case CommandTypeClearSponsor:
		return "ClearSponsor"
	case CommandTypeForfeit:
		return "Forfeit"
	case CommandTypeConfigureEngine:
		return "ConfigureEngine"
	case CommandTypeTransferOwnership:
		return "TransferOwnership"
	case CommandTypeAcceptOwnership:
		return "AcceptOwnership"
	default:
		return "Unknown"
	}
}

func (rt RecordType) String() string {
	switch rt {
	case RecordTypeSponsored:
		return "Sponsored"
	case RecordTypeSponsoredReceived:
		return "SponsoredReceived"
	case RecordTypeConsumed:
		return "Consumed"
	case RecordTypeForfeited:
		return "Forfeited"
	case RecordTypeSponsorCleared:
		return "SponsorCleared"
	case RecordTypeForfeitSummary:
		return "ForfeitSummary"
	case RecordTypeEngineConfigured:
		return "EngineConfigured"
	case RecordTypeOwnershipTransferStarted:
		return "OwnershipTransferStarted"
	case RecordTypeOwnershipTransferred:
		return "OwnershipTransferred"
	default:
		return "Unknown"
	}
}

// CommandType maps a record back to the command that produced it, used to
// rebuild idempotency keys during replay. SponsorCleared maps to the
// standalone clear command; forfeiture-driven clears are covered by the
// Forfeited records sharing the same idempotency key.
func (rt RecordType) CommandType() CommandType {
	switch rt {
	case RecordTypeSponsored, RecordTypeSponsoredReceived:
		return CommandTypeSponsor
	case RecordTypeConsumed:
		return CommandTypeConsume
	case RecordTypeForfeited, RecordTypeForfeitSummary:
		return CommandTypeForfeit
	case RecordTypeSponsorCleared:
		return CommandTypeClearSponsor
	case RecordTypeEngineConfigured:
		return CommandTypeConfigureEngine
	case RecordTypeOwnershipTransferStarted:
		return CommandTypeTransferOwnership
	case RecordTypeOwnershipTransferred:
		return CommandTypeAcceptOwnership
	default:
		return CommandTypeUnknown
	}
}

// RecordTypeFromString is the inverse of RecordType.String, used when
// replaying persisted rows.
func RecordTypeFromString(s string) RecordType {
	switch s {
	case "Sponsored":
		return RecordTypeSponsored
	case "SponsoredReceived":
		return RecordTypeSponsoredReceived
	case "Consumed":
		return RecordTypeConsumed
	case "Forfeited":
		return RecordTypeForfeited
	case "SponsorCleared":
		return RecordTypeSponsorCleared
	case "ForfeitSummary":
		return RecordTypeForfeitSummary
	case "EngineConfigured":
		return RecordTypeEngineConfigured
	case "OwnershipTransferStarted":
		return RecordTypeOwnershipTransferStarted
	case "OwnershipTransferred":
		return RecordTypeOwnershipTransferred
	default:
		return RecordTypeUnknown
	}
}
