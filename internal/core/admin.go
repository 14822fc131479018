package core

import (
	"fmt"

	"SponsorLedger/internal/ledger"
)

// AdminControl gates the single configuration write (the consuming-engine
// pointer) behind a two-step ownership handoff: the current owner nominates
// a pending owner, who must accept before gaining control.
// Not thread-safe; only accessed from the single-threaded ledger core.
type AdminControl struct {
	owner        ledger.Address
	pendingOwner ledger.Address
	engine       ledger.Address
}

func NewAdminControl(owner ledger.Address) *AdminControl {
	return &AdminControl{owner: owner}
}

// Owner returns the current owner.
func (a *AdminControl) Owner() ledger.Address {
	return a.owner
}

// PendingOwner returns the nominated-but-unaccepted owner, if any.
func (a *AdminControl) PendingOwner() ledger.Address {
	return a.pendingOwner
}

// Engine returns the configured consuming engine (zero if unconfigured).
func (a *AdminControl) Engine() ledger.Address {
	return a.engine
}

// TransferOwnership nominates a new owner. Only the current owner may call;
// the nomination takes effect only after AcceptOwnership.
func (a *AdminControl) TransferOwnership(caller, newOwner ledger.Address) error {
	if caller != a.owner {
		return fmt.Errorf("%w: %s is not the owner", ledger.ErrUnauthorizedCaller, caller)
	}
	if newOwner.IsZero() {
		return fmt.Errorf("%w: new owner is null", ledger.ErrInvalidAddress)
	}
	a.pendingOwner = newOwner
	return nil
}

// AcceptOwnership completes the handoff. Only the pending owner may call.
func (a *AdminControl) AcceptOwnership(caller ledger.Address) (previous ledger.Address, err error) {
	if a.pendingOwner.IsZero() || caller != a.pendingOwner {
		return ledger.ZeroAddress, fmt.Errorf("%w: %s is not the pending owner", ledger.ErrUnauthorizedCaller, caller)
	}
	previous = a.owner
	a.owner = a.pendingOwner
	a.pendingOwner = ledger.ZeroAddress
	return previous, nil
}

// SetEngine assigns the consuming engine address. Owner-only; rejects null.
func (a *AdminControl) SetEngine(caller, engine ledger.Address) error {
	if caller != a.owner {
		return fmt.Errorf("%w: %s is not the owner", ledger.ErrUnauthorizedCaller, caller)
	}
	if engine.IsZero() {
		return fmt.Errorf("%w: engine is null", ledger.ErrInvalidAddress)
	}
	a.engine = engine
	return nil
}

// RestoreEngine sets the engine pointer directly (snapshot restore/replay).
func (a *AdminControl) RestoreEngine(engine ledger.Address) {
	a.engine = engine
}

// RestoreOwnership sets ownership state directly (snapshot restore/replay).
func (a *AdminControl) RestoreOwnership(owner, pendingOwner ledger.Address) {
	a.owner = owner
	a.pendingOwner = pendingOwner
}
