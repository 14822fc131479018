package ingestion

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"SponsorLedger/internal/event"
)

// ParseRawCommand converts a RawCommand (JSON bytes + command type string)
// into a typed event.Command. The ingestion shell validates, parses, and
// converts raw messages before sending them to the deterministic core.
func ParseRawCommand(raw RawCommand, commandType string) (event.Command, error) {
	switch commandType {
	case "Sponsor":
		return parseSponsor(raw.Data)
	case "Consume":
		return parseConsume(raw.Data)
	case "ClearSponsor":
		return parseClearSponsor(raw.Data)
	case "Forfeit":
		return parseForfeit(raw.Data)
	case "ConfigureEngine":
		return parseConfigureEngine(raw.Data)
	case "TransferOwnership":
		return parseTransferOwnership(raw.Data)
	case "AcceptOwnership":
		return parseAcceptOwnership(raw.Data)
	default:
		return nil, fmt.Errorf("unknown command type: %s", commandType)
	}
}

// --- JSON wire formats ---
// These structs represent the JSON payloads received from NATS.
// Field names use snake_case to match upstream producers.

type sponsorJSON struct {
	CommandID   string `json:"command_id"`
	Caller      string `json:"caller"`
	Beneficiary string `json:"beneficiary"`
	Asset       string `json:"asset"`
	Amount      uint64 `json:"amount"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseSponsor(data []byte) (*event.SponsorRequested, error) {
	var j sponsorJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse Sponsor: %w", err)
	}
	commandID, err := uuid.Parse(j.CommandID)
	if err != nil {
		return nil, fmt.Errorf("parse command_id: %w", err)
	}
	return &event.SponsorRequested{
		CommandID:       commandID,
		Caller:          j.Caller,
		BeneficiaryAddr: j.Beneficiary,
		Asset:           j.Asset,
		Amount:          j.Amount,
		Sequence:        j.Sequence,
		Timestamp:       time.UnixMicro(j.TimestampUs),
	}, nil
}

type consumeJSON struct {
	CommandID   string `json:"command_id"`
	Caller      string `json:"caller"`
	Beneficiary string `json:"beneficiary"`
	Asset       string `json:"asset"`
	Amount      uint64 `json:"amount"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseConsume(data []byte) (*event.ConsumeRequested, error) {
	var j consumeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse Consume: %w", err)
	}
	commandID, err := uuid.Parse(j.CommandID)
	if err != nil {
		return nil, fmt.Errorf("parse command_id: %w", err)
	}
	return &event.ConsumeRequested{
		CommandID:       commandID,
		Caller:          j.Caller,
		BeneficiaryAddr: j.Beneficiary,
		Asset:           j.Asset,
		Amount:          j.Amount,
		Sequence:        j.Sequence,
		Timestamp:       time.UnixMicro(j.TimestampUs),
	}, nil
}

type clearSponsorJSON struct {
	CommandID   string `json:"command_id"`
	Caller      string `json:"caller"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseClearSponsor(data []byte) (*event.ClearSponsorRequested, error) {
	var j clearSponsorJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse ClearSponsor: %w", err)
	}
	commandID, err := uuid.Parse(j.CommandID)
	if err != nil {
		return nil, fmt.Errorf("parse command_id: %w", err)
	}
	return &event.ClearSponsorRequested{
		CommandID: commandID,
		Caller:    j.Caller,
		Sequence:  j.Sequence,
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}

type forfeitJSON struct {
	CommandID   string   `json:"command_id"`
	Caller      string   `json:"caller"`
	Assets      []string `json:"assets"`
	Sequence    int64    `json:"sequence"`
	TimestampUs int64    `json:"timestamp_us"`
}

func parseForfeit(data []byte) (*event.ForfeitRequested, error) {
	var j forfeitJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse Forfeit: %w", err)
	}
	commandID, err := uuid.Parse(j.CommandID)
	if err != nil {
		return nil, fmt.Errorf("parse command_id: %w", err)
	}
	return &event.ForfeitRequested{
		CommandID: commandID,
		Caller:    j.Caller,
		Assets:    j.Assets,
		Sequence:  j.Sequence,
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}

type configureEngineJSON struct {
	CommandID   string `json:"command_id"`
	Caller      string `json:"caller"`
	Engine      string `json:"engine"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseConfigureEngine(data []byte) (*event.ConfigureEngineRequested, error) {
	var j configureEngineJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse ConfigureEngine: %w", err)
	}
	commandID, err := uuid.Parse(j.CommandID)
	if err != nil {
		return nil, fmt.Errorf("parse command_id: %w", err)
	}
	return &event.ConfigureEngineRequested{
		CommandID: commandID,
		Caller:    j.Caller,
		Engine:    j.Engine,
		Sequence:  j.Sequence,
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}

type transferOwnershipJSON struct {
	CommandID   string `json:"command_id"`
	Caller      string `json:"caller"`
	NewOwner    string `json:"new_owner"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseTransferOwnership(data []byte) (*event.TransferOwnershipRequested, error) {
	var j transferOwnershipJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse TransferOwnership: %w", err)
	}
	commandID, err := uuid.Parse(j.CommandID)
	if err != nil {
		return nil, fmt.Errorf("parse command_id: %w", err)
	}
	return &event.TransferOwnershipRequested{
		CommandID: commandID,
		Caller:    j.Caller,
		NewOwner:  j.NewOwner,
		Sequence:  j.Sequence,
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}

type acceptOwnershipJSON struct {
	CommandID   string `json:"command_id"`
	Caller      string `json:"caller"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseAcceptOwnership(data []byte) (*event.AcceptOwnershipRequested, error) {
	var j acceptOwnershipJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse AcceptOwnership: %w", err)
	}
	commandID, err := uuid.Parse(j.CommandID)
	if err != nil {
		return nil, fmt.Errorf("parse command_id: %w", err)
	}
	return &event.AcceptOwnershipRequested{
		CommandID: commandID,
		Caller:    j.Caller,
		Sequence:  j.Sequence,
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}
