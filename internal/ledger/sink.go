package ledger

import (
	"context"
	"fmt"
)

// TransferSink moves an asset from a sponsor into the irreversible sink and
// reports the amount the sink actually received. Implementations measure the
// sink's balance before and after the transfer, since fee-on-transfer assets make
// the received amount smaller than the requested one, and crediting must use
// the measured figure, never the request.
type TransferSink interface {
	SweepAndMeasure(ctx context.Context, sponsor, asset Address, amount uint64) (received uint64, err error)
}

// SinkAccount is a balance-queryable account that can receive transfers.
// Assets are never withdrawn from it by this system.
type SinkAccount interface {
	BalanceOf(ctx context.Context, asset Address) (uint64, error)
	Deposit(ctx context.Context, sponsor, asset Address, amount uint64) error
}

// MeasuredSink implements TransferSink over any SinkAccount by reading the
// sink balance around the deposit. The delta is the actually-received amount.
type MeasuredSink struct {
	account SinkAccount
}

func NewMeasuredSink(account SinkAccount) *MeasuredSink {
	return &MeasuredSink{account: account}
}

func (m *MeasuredSink) SweepAndMeasure(ctx context.Context, sponsor, asset Address, amount uint64) (uint64, error) {
	before, err := m.account.BalanceOf(ctx, asset)
	if err != nil {
		return 0, fmt.Errorf("sink balance before transfer: %w", err)
	}

	if err := m.account.Deposit(ctx, sponsor, asset, amount); err != nil {
		return 0, fmt.Errorf("transfer to sink: %w", err)
	}

	after, err := m.account.BalanceOf(ctx, asset)
	if err != nil {
		return 0, fmt.Errorf("sink balance after transfer: %w", err)
	}

	if after < before {
		return 0, fmt.Errorf("sink balance decreased during sweep: before=%d, after=%d", before, after)
	}
	return after - before, nil
}

// VaultSink is an in-memory SinkAccount. Deposited amounts accumulate and
// are never withdrawn. FeePpm simulates fee-on-transfer assets: the sink
// receives amount minus amount*FeePpm/1_000_000.
type VaultSink struct {
	balances map[Address]uint64
	feePpm   map[Address]uint64
}

func NewVaultSink() *VaultSink {
	return &VaultSink{
		balances: make(map[Address]uint64),
		feePpm:   make(map[Address]uint64),
	}
}

// SetTransferFee configures a per-asset fee in parts per million.
func (v *VaultSink) SetTransferFee(asset Address, ppm uint64) {
	v.feePpm[asset] = ppm
}

func (v *VaultSink) BalanceOf(_ context.Context, asset Address) (uint64, error) {
	return v.balances[asset], nil
}

func (v *VaultSink) Deposit(_ context.Context, _, asset Address, amount uint64) error {
	fee := amount * v.feePpm[asset] / 1_000_000
	v.balances[asset] += amount - fee
	return nil
}
