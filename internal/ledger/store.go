package ledger

import (
	"fmt"
)

// Store owns all mutable accounting state: sponsor assignments,
// per-(beneficiary, asset) unit balances, active-asset counts, and the
// lifetime totals used for cap enforcement and analytics.
// Not thread-safe; only accessed from the single-threaded ledger core.
type Store struct {
	sponsors     map[Address]Address
	balances     map[BalanceKey]uint64
	activeAssets map[Address]int

	// Lifetime analytics. Monotonically non-decreasing; never reduced by
	// consumption or forfeiture.
	assetCumulative   map[Address]uint64
	lifetimeAllocated map[Address]uint64
}

func NewStore() *Store {
	return &Store{
		sponsors:          make(map[Address]Address),
		balances:          make(map[BalanceKey]uint64),
		activeAssets:      make(map[Address]int),
		assetCumulative:   make(map[Address]uint64),
		lifetimeAllocated: make(map[Address]uint64),
	}
}

// SponsorOf returns the assigned sponsor of a beneficiary, if any.
func (s *Store) SponsorOf(beneficiary Address) (Address, bool) {
	sp, ok := s.sponsors[beneficiary]
	return sp, ok
}

// SetSponsor assigns or switches the sponsor of a beneficiary.
// Self-sponsorship is a precondition violation, not a silent no-op.
func (s *Store) SetSponsor(beneficiary, sponsor Address) error {
	if sponsor == beneficiary {
		return ErrSelfSponsorship
	}
	s.sponsors[beneficiary] = sponsor
	return nil
}

// ClearSponsor removes the sponsor assignment. Returns the previous
// sponsor and whether one was assigned.
func (s *Store) ClearSponsor(beneficiary Address) (Address, bool) {
	sp, ok := s.sponsors[beneficiary]
	if ok {
		delete(s.sponsors, beneficiary)
	}
	return sp, ok
}

// Balance returns the current unit balance for a (beneficiary, asset) pair.
// Accounts are implicit: an unknown pair reads as zero.
func (s *Store) Balance(beneficiary, asset Address) uint64 {
	return s.balances[BalanceKey{beneficiary, asset}]
}

// Credit increases a balance by amount. Returns the new balance and whether
// the entry transitioned from zero (which increments the active-asset count).
func (s *Store) Credit(beneficiary, asset Address, amount uint64) (newBalance uint64, first bool) {
	key := BalanceKey{beneficiary, asset}
	prev := s.balances[key]
	s.balances[key] = prev + amount
	if prev == 0 && amount > 0 {
		s.activeAssets[beneficiary]++
		first = true
	}
	return prev + amount, first
}

// Debit decreases a balance by amount. Underflow is a precondition
// violation; the balance is never wrapped. If the balance reaches exactly
// zero, the active-asset count decrements.
func (s *Store) Debit(beneficiary, asset Address, amount uint64) (remaining uint64, err error) {
	key := BalanceKey{beneficiary, asset}
	prev := s.balances[key]
	if amount > prev {
		return prev, fmt.Errorf("%w: have=%d, need=%d", ErrInsufficientBalance, prev, amount)
	}
	remaining = prev - amount
	if remaining == 0 {
		delete(s.balances, key)
		s.decrementActive(beneficiary)
	} else {
		s.balances[key] = remaining
	}
	return remaining, nil
}

// ZeroBalance forfeits a balance entirely. Returns the forfeited amount;
// zero means the entry was already empty and nothing changed.
func (s *Store) ZeroBalance(beneficiary, asset Address) uint64 {
	key := BalanceKey{beneficiary, asset}
	prev := s.balances[key]
	if prev == 0 {
		return 0
	}
	delete(s.balances, key)
	s.decrementActive(beneficiary)
	return prev
}

func (s *Store) decrementActive(beneficiary Address) {
	n := s.activeAssets[beneficiary] - 1
	if n < 0 {
		// Counter drift means a credit/debit bypassed the store. Fatal.
		panic(fmt.Sprintf("FATAL: active-asset count underflow for %s", beneficiary))
	}
	if n == 0 {
		delete(s.activeAssets, beneficiary)
	} else {
		s.activeAssets[beneficiary] = n
	}
}

// ActiveAssetCount returns the number of assets with a strictly positive
// balance for a beneficiary.
func (s *Store) ActiveAssetCount(beneficiary Address) int {
	return s.activeAssets[beneficiary]
}

// AssetCumulative returns the lifetime sponsored units for an asset.
func (s *Store) AssetCumulative(asset Address) uint64 {
	return s.assetCumulative[asset]
}

// AddAssetCumulative increases the lifetime sponsored counter for an asset.
// Always by actually-received units, never the requested figure.
func (s *Store) AddAssetCumulative(asset Address, received uint64) {
	s.assetCumulative[asset] += received
}

// LifetimeAllocated returns the lifetime allocated units for a beneficiary.
func (s *Store) LifetimeAllocated(beneficiary Address) uint64 {
	return s.lifetimeAllocated[beneficiary]
}

// AddLifetimeAllocated increases the lifetime allocated counter.
func (s *Store) AddLifetimeAllocated(beneficiary Address, received uint64) {
	s.lifetimeAllocated[beneficiary] += received
}

// === Invariant Checks ===

// ValidateActiveCount recounts positive balances for a beneficiary and
// verifies the maintained counter matches. Run after every operation.
func (s *Store) ValidateActiveCount(beneficiary Address) error {
	count := 0
	for key, bal := range s.balances {
		if key.Beneficiary == beneficiary && bal > 0 {
			count++
		}
	}
	if count != s.activeAssets[beneficiary] {
		return fmt.Errorf("active-asset count mismatch for %s: counter=%d, recount=%d",
			beneficiary, s.activeAssets[beneficiary], count)
	}
	return nil
}

// ValidateNoSelfSponsor verifies no beneficiary is its own sponsor.
func (s *Store) ValidateNoSelfSponsor() error {
	for b, sp := range s.sponsors {
		if b == sp {
			return fmt.Errorf("beneficiary %s sponsors itself", b)
		}
	}
	return nil
}

// === Snapshot / Restore ===

// BalancesOf returns a copy of all balance entries for a beneficiary.
func (s *Store) BalancesOf(beneficiary Address) map[Address]uint64 {
	out := make(map[Address]uint64)
	for key, bal := range s.balances {
		if key.Beneficiary == beneficiary {
			out[key.Asset] = bal
		}
	}
	return out
}

// SnapshotSponsors returns a copy of the sponsor map.
func (s *Store) SnapshotSponsors() map[Address]Address {
	out := make(map[Address]Address, len(s.sponsors))
	for k, v := range s.sponsors {
		out[k] = v
	}
	return out
}

// SnapshotBalances returns a copy of all balance entries.
func (s *Store) SnapshotBalances() map[BalanceKey]uint64 {
	out := make(map[BalanceKey]uint64, len(s.balances))
	for k, v := range s.balances {
		out[k] = v
	}
	return out
}

// SnapshotAssetCumulative returns a copy of the per-asset lifetime totals.
func (s *Store) SnapshotAssetCumulative() map[Address]uint64 {
	out := make(map[Address]uint64, len(s.assetCumulative))
	for k, v := range s.assetCumulative {
		out[k] = v
	}
	return out
}

// SnapshotLifetimeAllocated returns a copy of the per-beneficiary totals.
func (s *Store) SnapshotLifetimeAllocated() map[Address]uint64 {
	out := make(map[Address]uint64, len(s.lifetimeAllocated))
	for k, v := range s.lifetimeAllocated {
		out[k] = v
	}
	return out
}

// RestoreBalance sets a balance entry directly and fixes up the
// active-asset count. Only used during snapshot restore.
func (s *Store) RestoreBalance(beneficiary, asset Address, balance uint64) {
	key := BalanceKey{beneficiary, asset}
	prev := s.balances[key]
	if prev > 0 && balance == 0 {
		delete(s.balances, key)
		s.decrementActive(beneficiary)
		return
	}
	if prev == 0 && balance > 0 {
		s.activeAssets[beneficiary]++
	}
	if balance > 0 {
		s.balances[key] = balance
	}
}

// RestoreSponsor sets a sponsor assignment directly (snapshot restore).
func (s *Store) RestoreSponsor(beneficiary, sponsor Address) {
	s.sponsors[beneficiary] = sponsor
}

// RestoreTotals sets lifetime counters directly (snapshot restore).
func (s *Store) RestoreTotals(assetCumulative, lifetimeAllocated map[Address]uint64) {
	for k, v := range assetCumulative {
		s.assetCumulative[k] = v
	}
	for k, v := range lifetimeAllocated {
		s.lifetimeAllocated[k] = v
	}
}
