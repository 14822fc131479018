package ledger

import "strings"

// Address identifies a participant or asset on the host environment.
// The core never interprets the bytes: it only compares, stores, and
// logs addresses. Addresses are normalized to lowercase on the way in.
type Address string

// ZeroAddress is the null address. Operations reject it wherever an
// identity is required.
const ZeroAddress Address = ""

// NormalizeAddress lowercases an address so map lookups are
// case-insensitive with respect to hex checksum casing.
func NormalizeAddress(s string) Address {
	return Address(strings.ToLower(strings.TrimSpace(s)))
}

// IsZero reports whether the address is the null address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a Address) String() string {
	return string(a)
}

// BalanceKey identifies a single (beneficiary, asset) balance entry.
type BalanceKey struct {
	Beneficiary Address
	Asset       Address
}
