package ledger

import "errors"

// Failure taxonomy for ledger operations. Every operation fails atomically:
// when one of these is returned, no state was changed. Callers match with
// errors.Is; handlers wrap these with operation context via fmt.Errorf %w.
var (
	// ErrInvalidAddress: beneficiary, asset, or configured target is null.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrSelfSponsorship: beneficiary equals the caller at assignment time.
	ErrSelfSponsorship = errors.New("self-sponsorship forbidden")

	// ErrAssetNotEligible: asset unlisted or disabled per the registry.
	ErrAssetNotEligible = errors.New("asset not eligible")

	// ErrSponsorLocked: sponsor switch attempted while the beneficiary
	// still holds a positive balance in any asset.
	ErrSponsorLocked = errors.New("sponsor locked")

	// ErrUnauthorizedCaller: caller is not permitted to perform the
	// operation (consume by a non-engine caller, admin by a non-owner).
	ErrUnauthorizedCaller = errors.New("unauthorized caller")

	// ErrInvalidAmount: zero unit amount requested.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientBalance: requested debit exceeds the current balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrCapExceeded: the cumulative sponsored total for an asset would
	// exceed its configured cap.
	ErrCapExceeded = errors.New("cumulative cap exceeded")

	// ErrNothingToForfeit: forfeiture found no positive balances among the
	// supplied assets, or clear-if-empty found no assigned sponsor.
	ErrNothingToForfeit = errors.New("nothing to forfeit")

	// ErrNotEmpty: clear-if-empty attempted while the active-asset count
	// is nonzero.
	ErrNotEmpty = errors.New("active balances remain")

	// ErrZeroReceived: the sink received nothing despite a nonzero request
	// (e.g. total fee deduction by the asset).
	ErrZeroReceived = errors.New("zero amount received by sink")

	// ErrSponsorInProgress: a sponsor operation re-entered the core for the
	// same (beneficiary, asset) pair before the first call finished its
	// bookkeeping. Guards against reentrant assets.
	ErrSponsorInProgress = errors.New("sponsor operation already in progress")
)
