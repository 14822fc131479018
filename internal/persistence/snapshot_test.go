package persistence

import (
	"testing"
	"time"

	"SponsorLedger/internal/event"
)

func TestBalanceKeyCodec(t *testing.T) {
	key := EncodeBalanceKey("0xbeneficiary", "usdc")
	beneficiary, asset, err := DecodeBalanceKey(key)
	if err != nil {
		t.Fatalf("decode %q: %v", key, err)
	}
	if beneficiary != "0xbeneficiary" || asset != "usdc" {
		t.Errorf("decoded (%q, %q), want (0xbeneficiary, usdc)", beneficiary, asset)
	}

	// Asset names may themselves contain the separator; only the first
	// one splits.
	beneficiary, asset, err = DecodeBalanceKey("addr|weird|asset")
	if err != nil {
		t.Fatalf("decode nested separator: %v", err)
	}
	if beneficiary != "addr" || asset != "weird|asset" {
		t.Errorf("decoded (%q, %q), want (addr, weird|asset)", beneficiary, asset)
	}

	if _, _, err := DecodeBalanceKey("noseparator"); err == nil {
		t.Error("expected error for key without separator")
	}
}

func TestRecordRowEnvelopeRoundTrip(t *testing.T) {
	beneficiary := "0xabc"
	env := &event.RecordEnvelope{
		Sequence:       42,
		IdempotencyKey: "Sponsor:key-1",
		RecordType:     event.RecordTypeSponsoredReceived,
		Beneficiary:    &beneficiary,
		Timestamp:      time.Unix(1700000000, 0).UTC(),
		SourceSequence: 7,
		Payload:        []byte(`{"received":100}`),
	}
	env.StateHash[0] = 0xaa
	env.PrevHash[31] = 0xbb

	row := RecordRowFromEnvelope(env)
	if row.RecordType != "SponsoredReceived" {
		t.Errorf("row record type %q", row.RecordType)
	}
	if row.Beneficiary == nil || *row.Beneficiary != beneficiary {
		t.Errorf("row beneficiary %v", row.Beneficiary)
	}
	if len(row.StateHash) != 32 || row.StateHash[0] != 0xaa {
		t.Errorf("state hash not copied: %x", row.StateHash)
	}

	back := EnvelopeFromRow(row)
	if back.Sequence != env.Sequence ||
		back.IdempotencyKey != env.IdempotencyKey ||
		back.RecordType != env.RecordType ||
		back.SourceSequence != env.SourceSequence {
		t.Errorf("round trip mismatch: %+v vs %+v", back, env)
	}
	if back.StateHash != env.StateHash || back.PrevHash != env.PrevHash {
		t.Error("hash arrays did not survive round trip")
	}
	if back.Beneficiary == nil || *back.Beneficiary != beneficiary {
		t.Errorf("beneficiary did not survive: %v", back.Beneficiary)
	}
}

func TestRecordRowNilBeneficiary(t *testing.T) {
	env := &event.RecordEnvelope{
		Sequence:       1,
		IdempotencyKey: "ConfigureEngine:key-2",
		RecordType:     event.RecordTypeEngineConfigured,
		Payload:        []byte(`{}`),
	}
	row := RecordRowFromEnvelope(env)
	if row.Beneficiary != nil {
		t.Errorf("expected nil beneficiary, got %v", *row.Beneficiary)
	}
	back := EnvelopeFromRow(row)
	if back.Beneficiary != nil {
		t.Error("nil beneficiary did not survive round trip")
	}
}
