package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"SponsorLedger/internal/event"
)

// GRPCIngestService provides admin/manual command injection via gRPC.
// gRPC ingest is for admin operations and manual command injection, not
// for high-throughput ingestion (use NATS for that).
type GRPCIngestService struct {
	commandChan chan<- event.Command
}

func NewGRPCIngestService(commandChan chan<- event.Command) *GRPCIngestService {
	return &GRPCIngestService{commandChan: commandChan}
}

// CommandChan exposes the injection channel for transports that parse
// their own payloads.
func (s *GRPCIngestService) CommandChan() chan<- event.Command {
	return s.commandChan
}

// InjectSponsor manually injects a Sponsor command.
func (s *GRPCIngestService) InjectSponsor(
	ctx context.Context,
	caller string,
	beneficiary string,
	asset string,
	amount uint64,
) (uuid.UUID, error) {
	if amount == 0 {
		return uuid.Nil, fmt.Errorf("amount must be positive")
	}

	cmd := &event.SponsorRequested{
		CommandID:       uuid.New(),
		Caller:          caller,
		BeneficiaryAddr: beneficiary,
		Asset:           asset,
		Amount:          amount,
		Sequence:        time.Now().UnixMicro(), // Admin-injected: use timestamp as sequence
		Timestamp:       time.Now(),
	}

	return cmd.CommandID, s.send(ctx, cmd)
}

// InjectConsume manually injects a Consume command.
func (s *GRPCIngestService) InjectConsume(
	ctx context.Context,
	caller string,
	beneficiary string,
	asset string,
	amount uint64,
) (uuid.UUID, error) {
	if amount == 0 {
		return uuid.Nil, fmt.Errorf("amount must be positive")
	}

	cmd := &event.ConsumeRequested{
		CommandID:       uuid.New(),
		Caller:          caller,
		BeneficiaryAddr: beneficiary,
		Asset:           asset,
		Amount:          amount,
		Sequence:        time.Now().UnixMicro(),
		Timestamp:       time.Now(),
	}

	return cmd.CommandID, s.send(ctx, cmd)
}

// InjectClearSponsor manually injects a ClearSponsor command.
func (s *GRPCIngestService) InjectClearSponsor(ctx context.Context, caller string) (uuid.UUID, error) {
	cmd := &event.ClearSponsorRequested{
		CommandID: uuid.New(),
		Caller:    caller,
		Sequence:  time.Now().UnixMicro(),
		Timestamp: time.Now(),
	}

	return cmd.CommandID, s.send(ctx, cmd)
}

// InjectForfeit manually injects a Forfeit command.
func (s *GRPCIngestService) InjectForfeit(ctx context.Context, caller string, assets []string) (uuid.UUID, error) {
	if len(assets) == 0 {
		return uuid.Nil, fmt.Errorf("assets must not be empty")
	}

	cmd := &event.ForfeitRequested{
		CommandID: uuid.New(),
		Caller:    caller,
		Assets:    assets,
		Sequence:  time.Now().UnixMicro(),
		Timestamp: time.Now(),
	}

	return cmd.CommandID, s.send(ctx, cmd)
}

// InjectConfigureEngine manually injects a ConfigureEngine command.
func (s *GRPCIngestService) InjectConfigureEngine(ctx context.Context, caller, engine string) (uuid.UUID, error) {
	cmd := &event.ConfigureEngineRequested{
		CommandID: uuid.New(),
		Caller:    caller,
		Engine:    engine,
		Sequence:  time.Now().UnixMicro(),
		Timestamp: time.Now(),
	}

	return cmd.CommandID, s.send(ctx, cmd)
}

// InjectTransferOwnership manually injects a TransferOwnership command.
func (s *GRPCIngestService) InjectTransferOwnership(ctx context.Context, caller, newOwner string) (uuid.UUID, error) {
	cmd := &event.TransferOwnershipRequested{
		CommandID: uuid.New(),
		Caller:    caller,
		NewOwner:  newOwner,
		Sequence:  time.Now().UnixMicro(),
		Timestamp: time.Now(),
	}

	return cmd.CommandID, s.send(ctx, cmd)
}

// InjectAcceptOwnership manually injects an AcceptOwnership command.
func (s *GRPCIngestService) InjectAcceptOwnership(ctx context.Context, caller string) (uuid.UUID, error) {
	cmd := &event.AcceptOwnershipRequested{
		CommandID: uuid.New(),
		Caller:    caller,
		Sequence:  time.Now().UnixMicro(),
		Timestamp: time.Now(),
	}

	return cmd.CommandID, s.send(ctx, cmd)
}

func (s *GRPCIngestService) send(ctx context.Context, cmd event.Command) error {
	select {
	case s.commandChan <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
