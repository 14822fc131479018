package ingestion_test

import (
	"encoding/json"
	"testing"
	"time"

	"SponsorLedger/internal/event"
	"SponsorLedger/internal/ingestion"
)

func rawFromJSON(t *testing.T, v interface{}) ingestion.RawCommand {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return ingestion.RawCommand{
		Subject:   "test",
		Data:      data,
		Timestamp: time.Now(),
		AckFunc:   func() {},
		NakFunc:   func() {},
	}
}

func TestParseSponsor(t *testing.T) {
	payload := map[string]interface{}{
		"command_id":   "550e8400-e29b-41d4-a716-446655440000",
		"caller":       "0xaaaa000000000000000000000000000000000001",
		"beneficiary":  "0xbbbb000000000000000000000000000000000002",
		"asset":        "0xcccc000000000000000000000000000000000003",
		"amount":       uint64(1_000_000),
		"sequence":     int64(42),
		"timestamp_us": int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	cmd, err := ingestion.ParseRawCommand(raw, "Sponsor")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	sp, ok := cmd.(*event.SponsorRequested)
	if !ok {
		t.Fatalf("expected *event.SponsorRequested, got %T", cmd)
	}

	if sp.Caller != "0xaaaa000000000000000000000000000000000001" {
		t.Errorf("caller: got %s", sp.Caller)
	}
	if sp.BeneficiaryAddr != "0xbbbb000000000000000000000000000000000002" {
		t.Errorf("beneficiary: got %s", sp.BeneficiaryAddr)
	}
	if sp.Amount != 1_000_000 {
		t.Errorf("amount: got %d, want 1_000_000", sp.Amount)
	}
	if sp.Sequence != 42 {
		t.Errorf("sequence: got %d, want 42", sp.Sequence)
	}
	if sp.Timestamp != time.UnixMicro(1700000000000000) {
		t.Errorf("timestamp: got %v", sp.Timestamp)
	}
	if sp.IdempotencyKey() != "550e8400-e29b-41d4-a716-446655440000" {
		t.Errorf("idempotency key: got %s", sp.IdempotencyKey())
	}
	if sp.CommandType() != event.CommandTypeSponsor {
		t.Errorf("command type: got %v", sp.CommandType())
	}
}

func TestParseConsume(t *testing.T) {
	payload := map[string]interface{}{
		"command_id":   "660e8400-e29b-41d4-a716-446655440001",
		"caller":       "0xe91e000000000000000000000000000000000009",
		"beneficiary":  "0xbbbb000000000000000000000000000000000002",
		"asset":        "0xcccc000000000000000000000000000000000003",
		"amount":       uint64(500),
		"sequence":     int64(7),
		"timestamp_us": int64(1700000000000001),
	}

	raw := rawFromJSON(t, payload)
	cmd, err := ingestion.ParseRawCommand(raw, "Consume")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	cs, ok := cmd.(*event.ConsumeRequested)
	if !ok {
		t.Fatalf("expected *event.ConsumeRequested, got %T", cmd)
	}
	if cs.Amount != 500 {
		t.Errorf("amount: got %d, want 500", cs.Amount)
	}
	if cs.Beneficiary() == nil || *cs.Beneficiary() != cs.BeneficiaryAddr {
		t.Errorf("beneficiary context mismatch")
	}
}

func TestParseForfeit(t *testing.T) {
	payload := map[string]interface{}{
		"command_id":   "770e8400-e29b-41d4-a716-446655440002",
		"caller":       "0xbbbb000000000000000000000000000000000002",
		"assets":       []string{"0xcccc000000000000000000000000000000000003", "0xdddd000000000000000000000000000000000004"},
		"sequence":     int64(8),
		"timestamp_us": int64(1700000000000002),
	}

	raw := rawFromJSON(t, payload)
	cmd, err := ingestion.ParseRawCommand(raw, "Forfeit")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	ff, ok := cmd.(*event.ForfeitRequested)
	if !ok {
		t.Fatalf("expected *event.ForfeitRequested, got %T", cmd)
	}
	if len(ff.Assets) != 2 {
		t.Fatalf("assets: got %d, want 2", len(ff.Assets))
	}
	if ff.Assets[1] != "0xdddd000000000000000000000000000000000004" {
		t.Errorf("assets[1]: got %s", ff.Assets[1])
	}
}

func TestParseClearSponsor(t *testing.T) {
	payload := map[string]interface{}{
		"command_id":   "880e8400-e29b-41d4-a716-446655440003",
		"caller":       "0xbbbb000000000000000000000000000000000002",
		"sequence":     int64(9),
		"timestamp_us": int64(1700000000000003),
	}

	raw := rawFromJSON(t, payload)
	cmd, err := ingestion.ParseRawCommand(raw, "ClearSponsor")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	cl, ok := cmd.(*event.ClearSponsorRequested)
	if !ok {
		t.Fatalf("expected *event.ClearSponsorRequested, got %T", cmd)
	}
	if cl.Beneficiary() == nil || *cl.Beneficiary() != cl.Caller {
		t.Errorf("clear sponsor beneficiary should be the caller")
	}
}

func TestParseAdminCommands(t *testing.T) {
	configure := map[string]interface{}{
		"command_id":   "990e8400-e29b-41d4-a716-446655440004",
		"caller":       "0xad01000000000000000000000000000000000005",
		"engine":       "0xe91e000000000000000000000000000000000009",
		"sequence":     int64(10),
		"timestamp_us": int64(1700000000000004),
	}
	cmd, err := ingestion.ParseRawCommand(rawFromJSON(t, configure), "ConfigureEngine")
	if err != nil {
		t.Fatalf("parse ConfigureEngine failed: %v", err)
	}
	ce := cmd.(*event.ConfigureEngineRequested)
	if ce.Engine != "0xe91e000000000000000000000000000000000009" {
		t.Errorf("engine: got %s", ce.Engine)
	}
	if ce.Beneficiary() != nil {
		t.Errorf("admin command should have nil beneficiary context")
	}

	transfer := map[string]interface{}{
		"command_id":   "aa0e8400-e29b-41d4-a716-446655440005",
		"caller":       "0xad01000000000000000000000000000000000005",
		"new_owner":    "0xad02000000000000000000000000000000000006",
		"sequence":     int64(11),
		"timestamp_us": int64(1700000000000005),
	}
	cmd, err = ingestion.ParseRawCommand(rawFromJSON(t, transfer), "TransferOwnership")
	if err != nil {
		t.Fatalf("parse TransferOwnership failed: %v", err)
	}
	tr := cmd.(*event.TransferOwnershipRequested)
	if tr.NewOwner != "0xad02000000000000000000000000000000000006" {
		t.Errorf("new_owner: got %s", tr.NewOwner)
	}

	accept := map[string]interface{}{
		"command_id":   "bb0e8400-e29b-41d4-a716-446655440006",
		"caller":       "0xad02000000000000000000000000000000000006",
		"sequence":     int64(12),
		"timestamp_us": int64(1700000000000006),
	}
	cmd, err = ingestion.ParseRawCommand(rawFromJSON(t, accept), "AcceptOwnership")
	if err != nil {
		t.Fatalf("parse AcceptOwnership failed: %v", err)
	}
	if _, ok := cmd.(*event.AcceptOwnershipRequested); !ok {
		t.Fatalf("expected *event.AcceptOwnershipRequested, got %T", cmd)
	}
}

func TestParseUnknownCommandType(t *testing.T) {
	raw := rawFromJSON(t, map[string]interface{}{"command_id": "x"})
	if _, err := ingestion.ParseRawCommand(raw, "Mint"); err == nil {
		t.Fatal("expected error for unknown command type")
	}
}

func TestParseRejectsBadCommandID(t *testing.T) {
	payload := map[string]interface{}{
		"command_id":   "not-a-uuid",
		"caller":       "0xaaaa000000000000000000000000000000000001",
		"beneficiary":  "0xbbbb000000000000000000000000000000000002",
		"asset":        "0xcccc000000000000000000000000000000000003",
		"amount":       uint64(1),
		"sequence":     int64(1),
		"timestamp_us": int64(1700000000000000),
	}
	if _, err := ingestion.ParseRawCommand(rawFromJSON(t, payload), "Sponsor"); err == nil {
		t.Fatal("expected error for malformed command_id")
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	raw := ingestion.RawCommand{
		Subject: "test",
		Data:    []byte("{not json"),
	}
	if _, err := ingestion.ParseRawCommand(raw, "Sponsor"); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
