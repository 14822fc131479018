package ledger

import (
	"encoding/json"
	"fmt"
	"os"
)

// AssetInfo is the registry's view of a single asset.
type AssetInfo struct {
	Listed  bool
	Enabled bool

	// Display precision of the underlying asset.
	Decimals uint8

	// Units credited per reference amount of the asset, informational for
	// downstream consumers; the core credits 1:1 with received units.
	UnitsPerReferenceAmount uint64

	// CapUnits bounds the cumulative sponsored units for the asset.
	// nil means uncapped. The wire/config sentinel 0 is translated to nil
	// at the boundary so "cap of zero" cannot be expressed by accident.
	CapUnits *uint64
}

// EligibilityRegistry reports which assets are usable for sponsorship and
// their cumulative-unit caps. Read-only dependency of the core.
type EligibilityRegistry interface {
	Lookup(asset Address) (AssetInfo, bool)
}

// StaticRegistry is an in-memory EligibilityRegistry loaded at startup.
type StaticRegistry struct {
	assets map[Address]AssetInfo
}

// registryEntryJSON is the on-disk format for registry config files.
// cap_units of 0 means uncapped.
type registryEntryJSON struct {
	Asset                   string `json:"asset"`
	Enabled                 bool   `json:"enabled"`
	Decimals                uint8  `json:"decimals"`
	UnitsPerReferenceAmount uint64 `json:"units_per_reference_amount"`
	CapUnits                uint64 `json:"cap_units"`
}

func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{assets: make(map[Address]AssetInfo)}
}

// LoadRegistryFile reads a JSON array of registry entries.
func LoadRegistryFile(path string) (*StaticRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry file: %w", err)
	}

	var entries []registryEntryJSON
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse registry file %s: %w", path, err)
	}

	reg := NewStaticRegistry()
	for _, e := range entries {
		addr := NormalizeAddress(e.Asset)
		if addr.IsZero() {
			return nil, fmt.Errorf("registry file %s: empty asset address", path)
		}
		var capPtr *uint64
		if e.CapUnits > 0 {
			c := e.CapUnits
			capPtr = &c
		}
		reg.assets[addr] = AssetInfo{
			Listed:                  true,
			Enabled:                 e.Enabled,
			Decimals:                e.Decimals,
			UnitsPerReferenceAmount: e.UnitsPerReferenceAmount,
			CapUnits:                capPtr,
		}
	}
	return reg, nil
}

// List registers an asset. capUnits of 0 means uncapped.
func (r *StaticRegistry) List(asset Address, enabled bool, decimals uint8, unitsPerRef, capUnits uint64) {
	var capPtr *uint64
	if capUnits > 0 {
		c := capUnits
		capPtr = &c
	}
	r.assets[asset] = AssetInfo{
		Listed:                  true,
		Enabled:                 enabled,
		Decimals:                decimals,
		UnitsPerReferenceAmount: unitsPerRef,
		CapUnits:                capPtr,
	}
}

// SetEnabled toggles an already-listed asset.
func (r *StaticRegistry) SetEnabled(asset Address, enabled bool) error {
	info, ok := r.assets[asset]
	if !ok {
		return fmt.Errorf("%w: %s not listed", ErrAssetNotEligible, asset)
	}
	info.Enabled = enabled
	r.assets[asset] = info
	return nil
}

// Lookup implements EligibilityRegistry.
func (r *StaticRegistry) Lookup(asset Address) (AssetInfo, bool) {
	info, ok := r.assets[asset]
	return info, ok
}
