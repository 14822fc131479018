package ledger_test

import (
	"context"
	"errors"
	"testing"

	"SponsorLedger/internal/ledger"
)

// ============================================================================
// Test: Address
// ============================================================================

func TestNormalizeAddress_LowercasesAndTrims(t *testing.T) {
	got := ledger.NormalizeAddress("  0xABCDef01  ")
	if got != ledger.Address("0xabcdef01") {
		t.Errorf("got %q, want %q", got, "0xabcdef01")
	}
}

func TestNormalizeAddress_EmptyIsZero(t *testing.T) {
	if !ledger.NormalizeAddress("   ").IsZero() {
		t.Error("whitespace-only input should normalize to the zero address")
	}
	if !ledger.ZeroAddress.IsZero() {
		t.Error("ZeroAddress should be zero")
	}
}

// ============================================================================
// Test: Store balances
// ============================================================================

func TestStore_InitialBalanceZero(t *testing.T) {
	s := ledger.NewStore()
	if got := s.Balance("0xuser", "0xasset"); got != 0 {
		t.Errorf("initial balance should be 0, got %d", got)
	}
}

func TestStore_CreditTracksFirstActivation(t *testing.T) {
	s := ledger.NewStore()

	newBal, first := s.Credit("0xuser", "0xasset", 100)
	if newBal != 100 || !first {
		t.Errorf("got balance=%d first=%v, want 100/true", newBal, first)
	}

	newBal, first = s.Credit("0xuser", "0xasset", 50)
	if newBal != 150 || first {
		t.Errorf("got balance=%d first=%v, want 150/false", newBal, first)
	}

	if got := s.ActiveAssetCount("0xuser"); got != 1 {
		t.Errorf("active count: got %d, want 1", got)
	}
}

func TestStore_DebitUnderflow_Fails(t *testing.T) {
	s := ledger.NewStore()
	s.Credit("0xuser", "0xasset", 30)

	_, err := s.Debit("0xuser", "0xasset", 31)
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := s.Balance("0xuser", "0xasset"); got != 30 {
		t.Errorf("balance must be unchanged at 30, got %d", got)
	}
}

func TestStore_DebitToZero_DecrementsActive(t *testing.T) {
	s := ledger.NewStore()
	s.Credit("0xuser", "0xa", 10)
	s.Credit("0xuser", "0xb", 20)

	remaining, err := s.Debit("0xuser", "0xa", 10)
	if err != nil || remaining != 0 {
		t.Fatalf("debit: remaining=%d err=%v", remaining, err)
	}
	if got := s.ActiveAssetCount("0xuser"); got != 1 {
		t.Errorf("active count: got %d, want 1", got)
	}
	if err := s.ValidateActiveCount("0xuser"); err != nil {
		t.Errorf("counter drift: %v", err)
	}
}

func TestStore_ZeroBalance(t *testing.T) {
	s := ledger.NewStore()
	s.Credit("0xuser", "0xasset", 75)

	if got := s.ZeroBalance("0xuser", "0xasset"); got != 75 {
		t.Errorf("forfeited: got %d, want 75", got)
	}
	if got := s.ZeroBalance("0xuser", "0xasset"); got != 0 {
		t.Errorf("second zeroing should be a no-op, got %d", got)
	}
	if got := s.ActiveAssetCount("0xuser"); got != 0 {
		t.Errorf("active count: got %d, want 0", got)
	}
}

// ============================================================================
// Test: Store sponsors
// ============================================================================

func TestStore_SetSponsor_RejectsSelf(t *testing.T) {
	s := ledger.NewStore()
	if err := s.SetSponsor("0xuser", "0xuser"); !errors.Is(err, ledger.ErrSelfSponsorship) {
		t.Fatalf("expected ErrSelfSponsorship, got %v", err)
	}
}

func TestStore_ClearSponsor(t *testing.T) {
	s := ledger.NewStore()
	if err := s.SetSponsor("0xuser", "0xpatron"); err != nil {
		t.Fatalf("set sponsor: %v", err)
	}

	previous, ok := s.ClearSponsor("0xuser")
	if !ok || previous != "0xpatron" {
		t.Errorf("got previous=%q ok=%v", previous, ok)
	}
	if _, ok := s.SponsorOf("0xuser"); ok {
		t.Error("sponsor should be gone")
	}
	if _, ok := s.ClearSponsor("0xuser"); ok {
		t.Error("second clear should report no sponsor")
	}
}

// ============================================================================
// Test: Store restore fixups
// ============================================================================

func TestStore_RestoreBalance_FixesActiveCount(t *testing.T) {
	s := ledger.NewStore()
	s.RestoreBalance("0xuser", "0xa", 100)
	s.RestoreBalance("0xuser", "0xb", 200)

	if got := s.ActiveAssetCount("0xuser"); got != 2 {
		t.Errorf("active count after restore: got %d, want 2", got)
	}
	if err := s.ValidateActiveCount("0xuser"); err != nil {
		t.Errorf("counter drift after restore: %v", err)
	}
}

// ============================================================================
// Test: EligibilityRegistry
// ============================================================================

func TestRegistry_LookupUnlisted(t *testing.T) {
	r := ledger.NewStaticRegistry()
	if _, ok := r.Lookup("0xmystery"); ok {
		t.Error("unlisted asset should not resolve")
	}
}

func TestRegistry_CapZeroMeansUncapped(t *testing.T) {
	r := ledger.NewStaticRegistry()
	r.List("0xasset", true, 18, 1, 0)

	info, ok := r.Lookup("0xasset")
	if !ok || !info.Listed || !info.Enabled {
		t.Fatalf("expected listed+enabled asset, got %+v ok=%v", info, ok)
	}
	if info.CapUnits != nil {
		t.Errorf("cap 0 should translate to nil, got %d", *info.CapUnits)
	}
}

func TestRegistry_SetEnabled(t *testing.T) {
	r := ledger.NewStaticRegistry()
	r.List("0xasset", true, 18, 1, 500)

	if err := r.SetEnabled("0xasset", false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	info, _ := r.Lookup("0xasset")
	if info.Enabled {
		t.Error("asset should be disabled")
	}
	if info.CapUnits == nil || *info.CapUnits != 500 {
		t.Error("cap should survive the toggle")
	}

	if err := r.SetEnabled("0xother", true); !errors.Is(err, ledger.ErrAssetNotEligible) {
		t.Fatalf("expected ErrAssetNotEligible for unlisted asset, got %v", err)
	}
}

// ============================================================================
// Test: TransferSink
// ============================================================================

func TestMeasuredSink_ReportsDelta(t *testing.T) {
	vault := ledger.NewVaultSink()
	sink := ledger.NewMeasuredSink(vault)

	received, err := sink.SweepAndMeasure(context.Background(), "0xpatron", "0xasset", 1000)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if received != 1000 {
		t.Errorf("received: got %d, want 1000", received)
	}
}

func TestMeasuredSink_FeeOnTransfer(t *testing.T) {
	vault := ledger.NewVaultSink()
	vault.SetTransferFee("0xasset", 25_000) // 2.5%
	sink := ledger.NewMeasuredSink(vault)

	received, err := sink.SweepAndMeasure(context.Background(), "0xpatron", "0xasset", 1000)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if received != 975 {
		t.Errorf("received: got %d, want 975", received)
	}

	// Deposits accumulate; the sink never pays out
	received, err = sink.SweepAndMeasure(context.Background(), "0xpatron", "0xasset", 1000)
	if err != nil || received != 975 {
		t.Fatalf("second sweep: received=%d err=%v", received, err)
	}
	total, _ := vault.BalanceOf(context.Background(), "0xasset")
	if total != 1950 {
		t.Errorf("vault total: got %d, want 1950", total)
	}
}
