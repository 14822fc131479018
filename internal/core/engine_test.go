package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"SponsorLedger/internal/core"
	"SponsorLedger/internal/event"
	"SponsorLedger/internal/ledger"

	"github.com/google/uuid"
)

// --- Test helpers ---

const (
	ownerAddr  = "0xad111"
	engineAddr = "0xe9111"
	sponsorA   = "0xaaaa1"
	sponsorB   = "0xbbbb2"
	userX      = "0x1111x"
	assetOne   = "0xca5e1"
	assetTwo   = "0xca5e2"
	assetThree = "0xca5e3"
)

// testHarness wires a LedgerCore with buffered channels, an in-memory vault
// sink, and a small asset registry. Per-partition source sequences are
// tracked so helpers can submit commands without callers counting.
type testHarness struct {
	core      *core.LedgerCore
	sink      *ledger.VaultSink
	registry  *ledger.StaticRegistry
	persistCh chan core.CoreOutput
	projCh    chan core.CoreOutput
	seqs      map[string]int64
}

func newHarness() *testHarness {
	registry := ledger.NewStaticRegistry()
	registry.List(ledger.NormalizeAddress(assetOne), true, 18, 1, 0)
	registry.List(ledger.NormalizeAddress(assetTwo), true, 18, 1, 0)
	registry.List(ledger.NormalizeAddress(assetThree), true, 18, 1, 0)

	sink := ledger.NewVaultSink()
	persistCh := make(chan core.CoreOutput, 1024)
	projCh := make(chan core.CoreOutput, 1024)

	c := core.NewLedgerCore(
		0,
		ledger.NormalizeAddress(ownerAddr),
		registry,
		ledger.NewMeasuredSink(sink),
		persistCh, projCh,
		nil, nil,
	)

	return &testHarness{
		core:      c,
		sink:      sink,
		registry:  registry,
		persistCh: persistCh,
		projCh:    projCh,
		seqs:      make(map[string]int64),
	}
}

// nextSeq hands out the next source sequence for a partition.
func (h *testHarness) nextSeq(beneficiary string) int64 {
	key := "global"
	if beneficiary != "" {
		key = "beneficiary:" + string(ledger.NormalizeAddress(beneficiary))
	}
	seq := h.seqs[key]
	h.seqs[key] = seq + 1
	return seq
}

func ts(seq int64) time.Time {
	return time.UnixMicro(1_000_000 + seq*1000)
}

func (h *testHarness) sponsor(t *testing.T, caller, beneficiary, asset string, amount uint64) error {
	t.Helper()
	seq := h.nextSeq(beneficiary)
	return h.core.ProcessCommand(context.Background(), &event.SponsorRequested{
		CommandID:       uuid.New(),
		Caller:          caller,
		BeneficiaryAddr: beneficiary,
		Asset:           asset,
		Amount:          amount,
		Sequence:        seq,
		Timestamp:       ts(seq),
	})
}

func (h *testHarness) consume(t *testing.T, caller, beneficiary, asset string, amount uint64) error {
	t.Helper()
	seq := h.nextSeq(beneficiary)
	return h.core.ProcessCommand(context.Background(), &event.ConsumeRequested{
		CommandID:       uuid.New(),
		Caller:          caller,
		BeneficiaryAddr: beneficiary,
		Asset:           asset,
		Amount:          amount,
		Sequence:        seq,
		Timestamp:       ts(seq),
	})
}

func (h *testHarness) clearSponsor(t *testing.T, caller string) error {
	t.Helper()
	seq := h.nextSeq(caller)
	return h.core.ProcessCommand(context.Background(), &event.ClearSponsorRequested{
		CommandID: uuid.New(),
		Caller:    caller,
		Sequence:  seq,
		Timestamp: ts(seq),
	})
}

func (h *testHarness) forfeit(t *testing.T, caller string, assets ...string) error {
	t.Helper()
	seq := h.nextSeq(caller)
	return h.core.ProcessCommand(context.Background(), &event.ForfeitRequested{
		CommandID: uuid.New(),
		Caller:    caller,
		Assets:    assets,
		Sequence:  seq,
		Timestamp: ts(seq),
	})
}

func (h *testHarness) configureEngine(t *testing.T, caller, engine string) error {
	t.Helper()
	seq := h.nextSeq("")
	return h.core.ProcessCommand(context.Background(), &event.ConfigureEngineRequested{
		CommandID: uuid.New(),
		Caller:    caller,
		Engine:    engine,
		Sequence:  seq,
		Timestamp: ts(seq),
	})
}

func (h *testHarness) withEngine(t *testing.T) *testHarness {
	t.Helper()
	if err := h.configureEngine(t, ownerAddr, engineAddr); err != nil {
		t.Fatalf("configure engine failed: %v", err)
	}
	drainOutputs(h.persistCh)
	return h
}

func drainOutputs(ch chan core.CoreOutput) []core.CoreOutput {
	var outputs []core.CoreOutput
	for {
		select {
		case o := <-ch:
			outputs = append(outputs, o)
		default:
			return outputs
		}
	}
}

func balance(h *testHarness, beneficiary, asset string) uint64 {
	return h.core.Store().Balance(ledger.NormalizeAddress(beneficiary), ledger.NormalizeAddress(asset))
}

// ============================================================================
// Test: Sponsor Flow
// ============================================================================

func TestSponsor_CreditsReceivedUnits(t *testing.T) {
	h := newHarness()

	if err := h.sponsor(t, sponsorA, userX, assetOne, 1000); err != nil {
		t.Fatalf("sponsor failed: %v", err)
	}

	if got := balance(h, userX, assetOne); got != 1000 {
		t.Errorf("expected balance 1000, got %d", got)
	}
	if sp, ok := h.core.Store().SponsorOf(ledger.NormalizeAddress(userX)); !ok || sp != ledger.NormalizeAddress(sponsorA) {
		t.Errorf("expected sponsor %s, got %s (assigned=%v)", sponsorA, sp, ok)
	}

	outputs := drainOutputs(h.persistCh)
	if len(outputs) != 2 {
		t.Fatalf("expected 2 records (Sponsored + SponsoredReceived), got %d", len(outputs))
	}
	if outputs[0].Envelope.RecordType != event.RecordTypeSponsored {
		t.Errorf("expected Sponsored first, got %s", outputs[0].Envelope.RecordType)
	}
	if outputs[1].Envelope.RecordType != event.RecordTypeSponsoredReceived {
		t.Errorf("expected SponsoredReceived second, got %s", outputs[1].Envelope.RecordType)
	}
}

func TestSponsor_FeeOnTransfer_CreditsMeasuredAmount(t *testing.T) {
	h := newHarness()
	// 10% fee: request 1000, sink receives 900
	h.sink.SetTransferFee(ledger.NormalizeAddress(assetOne), 100_000)

	if err := h.sponsor(t, sponsorA, userX, assetOne, 1000); err != nil {
		t.Fatalf("sponsor failed: %v", err)
	}

	if got := balance(h, userX, assetOne); got != 900 {
		t.Errorf("expected balance 900 (after fee), got %d", got)
	}
	if got := h.core.Store().AssetCumulative(ledger.NormalizeAddress(assetOne)); got != 900 {
		t.Errorf("expected cumulative 900, got %d", got)
	}

	outputs := drainOutputs(h.persistCh)
	received := outputs[1].Record.(event.SponsoredReceived)
	if received.Requested != 1000 || received.Received != 900 {
		t.Errorf("expected requested=1000 received=900, got %+v", received)
	}
}

func TestSponsor_FullFeeDeduction_Fails(t *testing.T) {
	h := newHarness()
	h.sink.SetTransferFee(ledger.NormalizeAddress(assetOne), 1_000_000)

	err := h.sponsor(t, sponsorA, userX, assetOne, 1000)
	if !errors.Is(err, ledger.ErrZeroReceived) {
		t.Fatalf("expected ErrZeroReceived, got %v", err)
	}
	if got := balance(h, userX, assetOne); got != 0 {
		t.Errorf("expected no credit, got %d", got)
	}
	if len(drainOutputs(h.persistCh)) != 0 {
		t.Error("expected no records on failure")
	}
}

func TestSponsor_PreconditionFailures(t *testing.T) {
	h := newHarness()

	cases := []struct {
		name                     string
		caller, beneficiary      string
		asset                    string
		amount                   uint64
		want                     error
		disableAsset, skipListed bool
	}{
		{name: "null beneficiary", caller: sponsorA, beneficiary: "", asset: assetOne, amount: 10, want: ledger.ErrInvalidAddress},
		{name: "self sponsorship", caller: sponsorA, beneficiary: sponsorA, asset: assetOne, amount: 10, want: ledger.ErrSelfSponsorship},
		{name: "zero amount", caller: sponsorA, beneficiary: userX, asset: assetOne, amount: 0, want: ledger.ErrInvalidAmount},
		{name: "unlisted asset", caller: sponsorA, beneficiary: userX, asset: "0xdead", amount: 10, want: ledger.ErrAssetNotEligible},
		{name: "disabled asset", caller: sponsorA, beneficiary: userX, asset: assetOne, amount: 10, want: ledger.ErrAssetNotEligible, disableAsset: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.disableAsset {
				if err := h.registry.SetEnabled(ledger.NormalizeAddress(tc.asset), false); err != nil {
					t.Fatalf("disable asset: %v", err)
				}
				defer func() {
					_ = h.registry.SetEnabled(ledger.NormalizeAddress(tc.asset), true)
				}()
			}
			err := h.sponsor(t, tc.caller, tc.beneficiary, tc.asset, tc.amount)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if len(drainOutputs(h.persistCh)) != 0 {
				t.Error("expected no records on failure")
			}
		})
	}
}

// ============================================================================
// Test: Cumulative Cap
// ============================================================================

func TestSponsor_CapExactLanding_Succeeds(t *testing.T) {
	h := newHarness()
	h.registry.List(ledger.NormalizeAddress(assetOne), true, 18, 1, 1000)

	if err := h.sponsor(t, sponsorA, userX, assetOne, 600); err != nil {
		t.Fatalf("first sponsor failed: %v", err)
	}
	if err := h.sponsor(t, sponsorA, userX, assetOne, 400); err != nil {
		t.Fatalf("exact landing at cap should succeed: %v", err)
	}
	if got := h.core.Store().AssetCumulative(ledger.NormalizeAddress(assetOne)); got != 1000 {
		t.Errorf("expected cumulative 1000, got %d", got)
	}
}

func TestSponsor_OneUnitOverCap_Fails(t *testing.T) {
	h := newHarness()
	h.registry.List(ledger.NormalizeAddress(assetOne), true, 18, 1, 1000)

	if err := h.sponsor(t, sponsorA, userX, assetOne, 1000); err != nil {
		t.Fatalf("sponsor to cap failed: %v", err)
	}

	err := h.sponsor(t, sponsorA, userX, assetOne, 1)
	if !errors.Is(err, ledger.ErrCapExceeded) {
		t.Fatalf("expected ErrCapExceeded, got %v", err)
	}
	if got := balance(h, userX, assetOne); got != 1000 {
		t.Errorf("balance must be unchanged at 1000, got %d", got)
	}
}

func TestSponsor_CapChecksReceivedNotRequested(t *testing.T) {
	h := newHarness()
	h.registry.List(ledger.NormalizeAddress(assetOne), true, 18, 1, 900)
	// 10% fee turns a 1000 request into a 900 receipt, landing exactly at cap
	h.sink.SetTransferFee(ledger.NormalizeAddress(assetOne), 100_000)

	if err := h.sponsor(t, sponsorA, userX, assetOne, 1000); err != nil {
		t.Fatalf("sponsor should succeed when received lands at cap: %v", err)
	}
	if got := h.core.Store().AssetCumulative(ledger.NormalizeAddress(assetOne)); got != 900 {
		t.Errorf("expected cumulative 900, got %d", got)
	}
}

// ============================================================================
// Test: Sponsor Lock & Adoption
// ============================================================================

func TestSponsor_LockedWhileBalancesActive(t *testing.T) {
	h := newHarness().withEngine(t)

	if err := h.sponsor(t, sponsorA, userX, assetOne, 100); err != nil {
		t.Fatalf("sponsor failed: %v", err)
	}

	err := h.sponsor(t, sponsorB, userX, assetOne, 50)
	if !errors.Is(err, ledger.ErrSponsorLocked) {
		t.Fatalf("expected ErrSponsorLocked, got %v", err)
	}

	// Drain the balance, then the lock lifts and B may adopt
	if err := h.consume(t, engineAddr, userX, assetOne, 100); err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if err := h.sponsor(t, sponsorB, userX, assetOne, 50); err != nil {
		t.Fatalf("adoption after drain should succeed: %v", err)
	}
	if sp, _ := h.core.Store().SponsorOf(ledger.NormalizeAddress(userX)); sp != ledger.NormalizeAddress(sponsorB) {
		t.Errorf("expected sponsor %s after adoption, got %s", sponsorB, sp)
	}
}

func TestSponsor_SameSponsorTopUp_NotLocked(t *testing.T) {
	h := newHarness()

	if err := h.sponsor(t, sponsorA, userX, assetOne, 100); err != nil {
		t.Fatalf("sponsor failed: %v", err)
	}
	if err := h.sponsor(t, sponsorA, userX, assetTwo, 200); err != nil {
		t.Fatalf("same-sponsor top-up should succeed: %v", err)
	}
	if got := h.core.Store().ActiveAssetCount(ledger.NormalizeAddress(userX)); got != 2 {
		t.Errorf("expected 2 active assets, got %d", got)
	}
}

// ============================================================================
// Test: Consume Flow
// ============================================================================

func TestConsume_OnlyEngineMayCall(t *testing.T) {
	h := newHarness().withEngine(t)

	if err := h.sponsor(t, sponsorA, userX, assetOne, 100); err != nil {
		t.Fatalf("sponsor failed: %v", err)
	}

	err := h.consume(t, sponsorA, userX, assetOne, 10)
	if !errors.Is(err, ledger.ErrUnauthorizedCaller) {
		t.Fatalf("expected ErrUnauthorizedCaller, got %v", err)
	}

	if err := h.consume(t, engineAddr, userX, assetOne, 10); err != nil {
		t.Fatalf("engine consume failed: %v", err)
	}
	if got := balance(h, userX, assetOne); got != 90 {
		t.Errorf("expected balance 90, got %d", got)
	}
}

func TestConsume_UnconfiguredEngine_Fails(t *testing.T) {
	h := newHarness()

	if err := h.sponsor(t, sponsorA, userX, assetOne, 100); err != nil {
		t.Fatalf("sponsor failed: %v", err)
	}

	err := h.consume(t, engineAddr, userX, assetOne, 10)
	if !errors.Is(err, ledger.ErrUnauthorizedCaller) {
		t.Fatalf("expected ErrUnauthorizedCaller when unconfigured, got %v", err)
	}
}

func TestConsume_InsufficientBalance_Fails(t *testing.T) {
	h := newHarness().withEngine(t)

	if err := h.sponsor(t, sponsorA, userX, assetOne, 50); err != nil {
		t.Fatalf("sponsor failed: %v", err)
	}

	err := h.consume(t, engineAddr, userX, assetOne, 51)
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := balance(h, userX, assetOne); got != 50 {
		t.Errorf("balance must be unchanged at 50, got %d", got)
	}
}

func TestConsume_ToZero_DeactivatesAsset(t *testing.T) {
	h := newHarness().withEngine(t)

	if err := h.sponsor(t, sponsorA, userX, assetOne, 30); err != nil {
		t.Fatalf("sponsor failed: %v", err)
	}
	if err := h.consume(t, engineAddr, userX, assetOne, 30); err != nil {
		t.Fatalf("consume failed: %v", err)
	}

	if got := h.core.Store().ActiveAssetCount(ledger.NormalizeAddress(userX)); got != 0 {
		t.Errorf("expected 0 active assets, got %d", got)
	}

	drainOutputs(h.persistCh)
}

// ============================================================================
// Test: Clear Sponsor
// ============================================================================

func TestClearSponsor_RequiresEmptyBalances(t *testing.T) {
	h := newHarness().withEngine(t)

	if err := h.sponsor(t, sponsorA, userX, assetOne, 40); err != nil {
		t.Fatalf("sponsor failed: %v", err)
	}

	err := h.clearSponsor(t, userX)
	if !errors.Is(err, ledger.ErrNotEmpty) {
		t.Fatalf("expected ErrNotEmpty, got %v", err)
	}

	if err := h.consume(t, engineAddr, userX, assetOne, 40); err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	drainOutputs(h.persistCh)

	if err := h.clearSponsor(t, userX); err != nil {
		t.Fatalf("clear after drain should succeed: %v", err)
	}

	outputs := drainOutputs(h.persistCh)
	if len(outputs) != 1 || outputs[0].Envelope.RecordType != event.RecordTypeSponsorCleared {
		t.Fatalf("expected single SponsorCleared record, got %d outputs", len(outputs))
	}
	if _, ok := h.core.Store().SponsorOf(ledger.NormalizeAddress(userX)); ok {
		t.Error("sponsor assignment should be gone")
	}
}

func TestClearSponsor_NoSponsorAssigned_Fails(t *testing.T) {
	h := newHarness()

	err := h.clearSponsor(t, userX)
	if !errors.Is(err, ledger.ErrNothingToForfeit) {
		t.Fatalf("expected ErrNothingToForfeit, got %v", err)
	}
}

// ============================================================================
// Test: Forfeit Flow
// ============================================================================

func TestForfeit_PartialList_KeepsSponsor(t *testing.T) {
	h := newHarness()

	for _, asset := range []string{assetOne, assetTwo, assetThree} {
		if err := h.sponsor(t, sponsorA, userX, asset, 100); err != nil {
			t.Fatalf("sponsor %s failed: %v", asset, err)
		}
	}
	drainOutputs(h.persistCh)

	if err := h.forfeit(t, userX, assetOne, assetTwo); err != nil {
		t.Fatalf("forfeit failed: %v", err)
	}

	outputs := drainOutputs(h.persistCh)
	// Two Forfeited + one ForfeitSummary, no SponsorCleared
	if len(outputs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(outputs))
	}
	summary := outputs[2].Record.(event.ForfeitSummary)
	if summary.AssetsCleared != 2 || summary.TotalForfeited != 200 || summary.SponsorCleared {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if _, ok := h.core.Store().SponsorOf(ledger.NormalizeAddress(userX)); !ok {
		t.Error("sponsor should remain while an asset is still active")
	}
	if got := balance(h, userX, assetThree); got != 100 {
		t.Errorf("untouched asset balance should stay 100, got %d", got)
	}
}

func TestForfeit_LastAsset_ClearsSponsor(t *testing.T) {
	h := newHarness()

	if err := h.sponsor(t, sponsorA, userX, assetOne, 100); err != nil {
		t.Fatalf("sponsor failed: %v", err)
	}
	drainOutputs(h.persistCh)

	if err := h.forfeit(t, userX, assetOne); err != nil {
		t.Fatalf("forfeit failed: %v", err)
	}

	outputs := drainOutputs(h.persistCh)
	// Forfeited + SponsorCleared + ForfeitSummary
	if len(outputs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(outputs))
	}
	if outputs[1].Envelope.RecordType != event.RecordTypeSponsorCleared {
		t.Errorf("expected SponsorCleared, got %s", outputs[1].Envelope.RecordType)
	}
	summary := outputs[2].Record.(event.ForfeitSummary)
	if !summary.SponsorCleared {
		t.Error("summary should report sponsor cleared")
	}
	if _, ok := h.core.Store().SponsorOf(ledger.NormalizeAddress(userX)); ok {
		t.Error("sponsor assignment should be gone")
	}
}

func TestForfeit_SkipsEmptyAssets(t *testing.T) {
	h := newHarness()

	if err := h.sponsor(t, sponsorA, userX, assetOne, 100); err != nil {
		t.Fatalf("sponsor failed: %v", err)
	}
	drainOutputs(h.persistCh)

	// assetTwo has no balance: skipped, not an error
	if err := h.forfeit(t, userX, assetTwo, assetOne); err != nil {
		t.Fatalf("forfeit failed: %v", err)
	}

	outputs := drainOutputs(h.persistCh)
	forfeited := outputs[0].Record.(event.Forfeited)
	if forfeited.Asset != string(ledger.NormalizeAddress(assetOne)) || forfeited.Amount != 100 {
		t.Errorf("unexpected forfeited record: %+v", forfeited)
	}
}

func TestForfeit_NothingToForfeit_Fails(t *testing.T) {
	h := newHarness()

	if err := h.sponsor(t, sponsorA, userX, assetOne, 100); err != nil {
		t.Fatalf("sponsor failed: %v", err)
	}
	drainOutputs(h.persistCh)

	err := h.forfeit(t, userX, assetTwo, assetThree)
	if !errors.Is(err, ledger.ErrNothingToForfeit) {
		t.Fatalf("expected ErrNothingToForfeit, got %v", err)
	}
	if got := balance(h, userX, assetOne); got != 100 {
		t.Errorf("balances must be untouched, got %d", got)
	}
	if len(drainOutputs(h.persistCh)) != 0 {
		t.Error("expected no records on failure")
	}
}

// ============================================================================
// Test: Lifetime Totals
// ============================================================================

func TestLifetimeTotals_NeverDecrease(t *testing.T) {
	h := newHarness().withEngine(t)

	if err := h.sponsor(t, sponsorA, userX, assetOne, 500); err != nil {
		t.Fatalf("sponsor failed: %v", err)
	}
	if err := h.consume(t, engineAddr, userX, assetOne, 200); err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if err := h.forfeit(t, userX, assetOne); err != nil {
		t.Fatalf("forfeit failed: %v", err)
	}

	if got := h.core.Store().AssetCumulative(ledger.NormalizeAddress(assetOne)); got != 500 {
		t.Errorf("asset cumulative should stay 500, got %d", got)
	}
	if got := h.core.Store().LifetimeAllocated(ledger.NormalizeAddress(userX)); got != 500 {
		t.Errorf("lifetime allocated should stay 500, got %d", got)
	}
}

// ============================================================================
// Test: Pipeline (idempotency, ordering, hash chain)
// ============================================================================

func TestDuplicateCommand_SkippedSilently(t *testing.T) {
	h := newHarness()

	cmd := &event.SponsorRequested{
		CommandID:       uuid.New(),
		Caller:          sponsorA,
		BeneficiaryAddr: userX,
		Asset:           assetOne,
		Amount:          100,
		Sequence:        0,
		Timestamp:       ts(0),
	}

	if err := h.core.ProcessCommand(context.Background(), cmd); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if err := h.core.ProcessCommand(context.Background(), cmd); err != nil {
		t.Fatalf("redelivery should be a silent no-op: %v", err)
	}

	if got := balance(h, userX, assetOne); got != 100 {
		t.Errorf("expected single credit of 100, got %d", got)
	}
	if outputs := drainOutputs(h.persistCh); len(outputs) != 2 {
		t.Errorf("expected 2 records from one application, got %d", len(outputs))
	}
}

func TestSequenceGap_Rejected(t *testing.T) {
	h := newHarness()

	err := h.core.ProcessCommand(context.Background(), &event.SponsorRequested{
		CommandID:       uuid.New(),
		Caller:          sponsorA,
		BeneficiaryAddr: userX,
		Asset:           assetOne,
		Amount:          100,
		Sequence:        5, // expected 0
		Timestamp:       ts(5),
	})
	if err == nil {
		t.Fatal("expected sequence gap rejection")
	}
}

func TestOutOfOrderNewCommand_Rejected(t *testing.T) {
	h := newHarness()

	if err := h.sponsor(t, sponsorA, userX, assetOne, 100); err != nil {
		t.Fatalf("sponsor failed: %v", err)
	}

	err := h.core.ProcessCommand(context.Background(), &event.SponsorRequested{
		CommandID:       uuid.New(), // new command, stale sequence
		Caller:          sponsorA,
		BeneficiaryAddr: userX,
		Asset:           assetOne,
		Amount:          100,
		Sequence:        0,
		Timestamp:       ts(0),
	})
	if err == nil {
		t.Fatal("expected out-of-order rejection for a new command with stale sequence")
	}
}

func TestStateHashChain_Links(t *testing.T) {
	h := newHarness().withEngine(t)

	if err := h.sponsor(t, sponsorA, userX, assetOne, 100); err != nil {
		t.Fatalf("sponsor failed: %v", err)
	}
	if err := h.consume(t, engineAddr, userX, assetOne, 40); err != nil {
		t.Fatalf("consume failed: %v", err)
	}

	outputs := drainOutputs(h.persistCh)
	if len(outputs) < 3 {
		t.Fatalf("expected at least 3 records, got %d", len(outputs))
	}
	for i := 1; i < len(outputs); i++ {
		if outputs[i].Envelope.PrevHash != outputs[i-1].Envelope.StateHash {
			t.Errorf("record %d: prev_hash does not link to record %d state_hash", i, i-1)
		}
		if outputs[i].Envelope.Sequence != outputs[i-1].Envelope.Sequence+1 {
			t.Errorf("record %d: sequence not monotonic", i)
		}
	}
	if h.core.GetStateHash() != outputs[len(outputs)-1].Envelope.StateHash {
		t.Error("chain tip does not match last emitted record")
	}
}

// ============================================================================
// Test: Replay & Snapshot
// ============================================================================

func TestReplay_ReproducesStateAndChainTip(t *testing.T) {
	h := newHarness()

	if err := h.configureEngine(t, ownerAddr, engineAddr); err != nil {
		t.Fatalf("configure engine failed: %v", err)
	}
	if err := h.sponsor(t, sponsorA, userX, assetOne, 500); err != nil {
		t.Fatalf("sponsor failed: %v", err)
	}
	if err := h.consume(t, engineAddr, userX, assetOne, 150); err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if err := h.sponsor(t, sponsorA, userX, assetTwo, 80); err != nil {
		t.Fatalf("sponsor failed: %v", err)
	}
	if err := h.forfeit(t, userX, assetTwo); err != nil {
		t.Fatalf("forfeit failed: %v", err)
	}

	outputs := drainOutputs(h.persistCh)

	// Rebuild a cold core from the audit log alone
	cold := newHarness()
	for _, o := range outputs {
		if err := cold.core.ApplyRecord(o.Envelope); err != nil {
			t.Fatalf("replay seq %d failed: %v", o.Envelope.Sequence, err)
		}
	}

	if got := cold.core.Store().Balance(ledger.NormalizeAddress(userX), ledger.NormalizeAddress(assetOne)); got != 350 {
		t.Errorf("expected replayed balance 350, got %d", got)
	}
	if got := cold.core.Store().Balance(ledger.NormalizeAddress(userX), ledger.NormalizeAddress(assetTwo)); got != 0 {
		t.Errorf("expected replayed balance 0 for forfeited asset, got %d", got)
	}
	if cold.core.GetSequence() != h.core.GetSequence() {
		t.Errorf("sequence mismatch: replay=%d live=%d", cold.core.GetSequence(), h.core.GetSequence())
	}
	if cold.core.GetStateHash() != h.core.GetStateHash() {
		t.Error("chain tip mismatch after replay")
	}
	if cold.core.Admin().Engine() != ledger.NormalizeAddress(engineAddr) {
		t.Error("engine pointer not restored by replay")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	h := newHarness().withEngine(t)

	if err := h.sponsor(t, sponsorA, userX, assetOne, 300); err != nil {
		t.Fatalf("sponsor failed: %v", err)
	}
	if err := h.consume(t, engineAddr, userX, assetOne, 100); err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	drainOutputs(h.persistCh)

	snap := h.core.CreateSnapshotState()

	restored := newHarness()
	restored.core.RestoreFromSnapshot(snap)

	if got := restored.core.Store().Balance(ledger.NormalizeAddress(userX), ledger.NormalizeAddress(assetOne)); got != 200 {
		t.Errorf("expected restored balance 200, got %d", got)
	}
	if got := restored.core.Store().ActiveAssetCount(ledger.NormalizeAddress(userX)); got != 1 {
		t.Errorf("expected 1 active asset after restore, got %d", got)
	}
	if restored.core.GetSequence() != h.core.GetSequence() {
		t.Errorf("sequence mismatch: restored=%d live=%d", restored.core.GetSequence(), h.core.GetSequence())
	}
	if restored.core.GetStateHash() != h.core.GetStateHash() {
		t.Error("chain tip mismatch after restore")
	}
	if restored.core.Admin().Owner() != ledger.NormalizeAddress(ownerAddr) {
		t.Error("owner not restored")
	}
	if restored.core.Admin().Engine() != ledger.NormalizeAddress(engineAddr) {
		t.Error("engine pointer not restored")
	}
}
