package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"SponsorLedger/internal/event"
	"SponsorLedger/internal/ledger"
	"SponsorLedger/internal/observability"
)

// LedgerCore is the single-threaded command processor. All accounting state
// lives here; every mutation flows through ProcessCommand and comes out the
// other side as hash-chained audit records.
type LedgerCore struct {
	sequence          int64
	hasher            *StateHasher
	store             *ledger.Store
	registry          ledger.EligibilityRegistry
	sink              ledger.TransferSink
	admin             *AdminControl
	idempotency       *IdempotencyChecker
	sequenceValidator *SequenceValidator
	metrics           *observability.Metrics

	// Guards against a sink implementation re-entering the core for the
	// same (beneficiary, asset) pair mid-sponsor.
	inProgress map[ledger.BalanceKey]bool

	persistChan    chan<- CoreOutput
	projectionChan chan<- CoreOutput
}

// CoreOutput carries one audit record plus its envelope downstream.
type CoreOutput struct {
	Envelope *event.RecordEnvelope
	Record   event.Record
}

func NewLedgerCore(
	startSequence int64,
	owner ledger.Address,
	registry ledger.EligibilityRegistry,
	sink ledger.TransferSink,
	persistChan, projectionChan chan<- CoreOutput,
	dbChecker DBIdempotencyChecker,
	metrics *observability.Metrics,
) *LedgerCore {
	return &LedgerCore{
		sequence:          startSequence,
		hasher:            NewStateHasher(),
		store:             ledger.NewStore(),
		registry:          registry,
		sink:              sink,
		admin:             NewAdminControl(owner),
		idempotency:       NewIdempotencyChecker(1_000_000, dbChecker),
		sequenceValidator: NewSequenceValidator(),
		metrics:           metrics,
		inProgress:        make(map[ledger.BalanceKey]bool),
		persistChan:       persistChan,
		projectionChan:    projectionChan,
	}
}

// ProcessCommand is the main processing pipeline
func (c *LedgerCore) ProcessCommand(ctx context.Context, cmd event.Command) error {
	start := time.Now()
	commandType := cmd.CommandType().String()
	idempotencyKey := cmd.IdempotencyKey()

	// Step 1: Idempotency check (two-tier)
	isDuplicate := c.idempotency.IsDuplicate(commandType, idempotencyKey)

	// Step 2: Sequence validation
	partition := c.getPartition(cmd)
	sourceSequence := cmd.SourceSequence()

	if err := c.sequenceValidator.ValidateSequence(partition, sourceSequence, idempotencyKey, isDuplicate); err != nil {
		return fmt.Errorf("sequence validation failed: %w", err)
	}

	// If duplicate, skip processing
	if isDuplicate {
		if c.metrics != nil {
			c.metrics.CoreCommandsRejected.WithLabelValues(commandType, "duplicate").Inc()
		}
		return nil
	}

	// Step 3: Command dispatch. Handlers either mutate state and return the
	// full record set, or fail atomically having touched nothing.
	records, err := c.dispatch(ctx, cmd)
	if err != nil {
		if c.metrics != nil {
			c.metrics.CoreCommandsRejected.WithLabelValues(commandType, "validation").Inc()
		}
		return fmt.Errorf("dispatch failed: %w", err)
	}

	// Step 4: Post-checks
	if err := c.postCheckInvariants(cmd); err != nil {
		panic(fmt.Sprintf("FATAL: invariant violated: %v", err))
	}

	// Step 5: Envelope each record with its own sequence and chain hash
	outputs := make([]CoreOutput, 0, len(records))
	beneficiary := cmd.Beneficiary()

	for _, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			panic(fmt.Sprintf("FATAL: record marshal failed: %v", err))
		}

		hashStart := time.Now()
		stateDigest := c.computeStateDigest(beneficiary)
		prevHash := c.hasher.GetPrevHash()
		stateHash := c.hasher.ComputeHash(c.sequence, stateDigest)
		if c.metrics != nil {
			c.metrics.CoreStateHashDur.Observe(time.Since(hashStart).Seconds())
		}

		envelope := &event.RecordEnvelope{
			Sequence:       c.sequence,
			IdempotencyKey: idempotencyKey,
			RecordType:     record.RecordType(),
			Beneficiary:    beneficiary,
			Timestamp:      cmd.OccurredAt(),
			SourceSequence: sourceSequence,
			Payload:        payload,
			StateHash:      stateHash,
			PrevHash:       prevHash,
		}

		outputs = append(outputs, CoreOutput{Envelope: envelope, Record: record})
		c.sequence++
	}

	// Step 6: Emit outputs. Persist channel uses a BLOCKING send so no
	// record is ever lost; projection channel is non-blocking with drop
	// (projections rebuild from the audit log if they fall behind).
	for _, output := range outputs {
		c.persistChan <- output

		select {
		case c.projectionChan <- output:
		default:
			if c.metrics != nil {
				c.metrics.ProjectionDrops.WithLabelValues("records").Inc()
			}
		}

		if c.metrics != nil {
			c.metrics.CoreRecordsEmitted.WithLabelValues(output.Envelope.RecordType.String()).Inc()
		}
	}

	// Step 7: Mark as processed (add to LRU)
	c.idempotency.MarkProcessed(commandType, idempotencyKey)

	if c.metrics != nil {
		c.metrics.CoreCommandsApplied.WithLabelValues(commandType).Inc()
		c.metrics.CoreCommandDuration.WithLabelValues(commandType).Observe(time.Since(start).Seconds())
		c.metrics.CoreSequence.Set(float64(c.sequence))
	}

	return nil
}

// getPartition determines partition key for sequence validation
func (c *LedgerCore) getPartition(cmd event.Command) string {
	if b := cmd.Beneficiary(); b != nil {
		return fmt.Sprintf("beneficiary:%s", ledger.NormalizeAddress(*b))
	}
	return "global"
}

func (c *LedgerCore) dispatch(ctx context.Context, cmd event.Command) ([]event.Record, error) {
	switch e := cmd.(type) {
	case *event.SponsorRequested:
		return c.handleSponsor(ctx, e)
	case *event.ConsumeRequested:
		return c.handleConsume(e)
	case *event.ClearSponsorRequested:
		return c.handleClearSponsor(e)
	case *event.ForfeitRequested:
		return c.handleForfeit(e)
	case *event.ConfigureEngineRequested:
		return c.handleConfigureEngine(e)
	case *event.TransferOwnershipRequested:
		return c.handleTransferOwnership(e)
	case *event.AcceptOwnershipRequested:
		return c.handleAcceptOwnership(e)
	default:
		return nil, fmt.Errorf("unknown command type: %T", cmd)
	}
}

// handleSponsor provisions a beneficiary. The caller's asset is swept into
// the sink, the actually-received amount is measured, and ONLY that measured
// figure is credited and counted against the asset's cumulative cap.
func (c *LedgerCore) handleSponsor(ctx context.Context, cmd *event.SponsorRequested) ([]event.Record, error) {
	caller := ledger.NormalizeAddress(cmd.Caller)
	beneficiary := ledger.NormalizeAddress(cmd.BeneficiaryAddr)
	asset := ledger.NormalizeAddress(cmd.Asset)

	if caller.IsZero() || beneficiary.IsZero() || asset.IsZero() {
		return nil, fmt.Errorf("%w: caller=%q beneficiary=%q asset=%q",
			ledger.ErrInvalidAddress, caller, beneficiary, asset)
	}
	if beneficiary == caller {
		return nil, fmt.Errorf("%w: %s", ledger.ErrSelfSponsorship, caller)
	}
	if cmd.Amount == 0 {
		return nil, ledger.ErrInvalidAmount
	}

	info, ok := c.registry.Lookup(asset)
	if !ok || !info.Listed || !info.Enabled {
		return nil, fmt.Errorf("%w: %s", ledger.ErrAssetNotEligible, asset)
	}

	// Sponsor lock: a beneficiary with any active balance is bound to its
	// current sponsor. Once every balance is consumed or forfeited, a new
	// sponsor may adopt.
	if current, assigned := c.store.SponsorOf(beneficiary); assigned && current != caller {
		if c.store.ActiveAssetCount(beneficiary) > 0 {
			return nil, fmt.Errorf("%w: %s is bound to %s", ledger.ErrSponsorLocked, beneficiary, current)
		}
	}

	key := ledger.BalanceKey{Beneficiary: beneficiary, Asset: asset}
	if c.inProgress[key] {
		return nil, fmt.Errorf("%w: %s/%s", ledger.ErrSponsorInProgress, beneficiary, asset)
	}
	c.inProgress[key] = true
	defer delete(c.inProgress, key)

	sweepStart := time.Now()
	received, err := c.sink.SweepAndMeasure(ctx, caller, asset, cmd.Amount)
	if err != nil {
		return nil, fmt.Errorf("sweep failed: %w", err)
	}
	if c.metrics != nil {
		c.metrics.SinkSweepDur.WithLabelValues(asset.String()).Observe(time.Since(sweepStart).Seconds())
		if received < cmd.Amount {
			c.metrics.SinkFeeShortfall.WithLabelValues(asset.String()).Add(float64(cmd.Amount - received))
		}
	}

	if received == 0 {
		return nil, fmt.Errorf("%w: requested=%d", ledger.ErrZeroReceived, cmd.Amount)
	}

	// Cap check runs on the measured amount: a request that would overshoot
	// can still land exactly at the cap after fees.
	if info.CapUnits != nil && c.store.AssetCumulative(asset)+received > *info.CapUnits {
		if c.metrics != nil {
			c.metrics.CapRejections.WithLabelValues(asset.String()).Inc()
		}
		return nil, fmt.Errorf("%w: asset=%s cumulative=%d received=%d cap=%d",
			ledger.ErrCapExceeded, asset, c.store.AssetCumulative(asset), received, *info.CapUnits)
	}

	// Effects. Everything above was read-only, so a failure anywhere up
	// there left the ledger untouched.
	if err := c.store.SetSponsor(beneficiary, caller); err != nil {
		return nil, err
	}
	newBalance, _ := c.store.Credit(beneficiary, asset, received)
	c.store.AddAssetCumulative(asset, received)
	c.store.AddLifetimeAllocated(beneficiary, received)

	if c.metrics != nil {
		c.metrics.UnitsSponsored.WithLabelValues(asset.String()).Add(float64(received))
	}

	return []event.Record{
		event.Sponsored{
			Sponsor:     caller.String(),
			Beneficiary: beneficiary.String(),
			Asset:       asset.String(),
			Requested:   cmd.Amount,
			NewBalance:  newBalance,
		},
		event.SponsoredReceived{
			Sponsor:     caller.String(),
			Beneficiary: beneficiary.String(),
			Asset:       asset.String(),
			Requested:   cmd.Amount,
			Received:    received,
		},
	}, nil
}

// handleConsume debits a beneficiary's balance. Only the configured
// consuming engine may call.
func (c *LedgerCore) handleConsume(cmd *event.ConsumeRequested) ([]event.Record, error) {
	caller := ledger.NormalizeAddress(cmd.Caller)
	beneficiary := ledger.NormalizeAddress(cmd.BeneficiaryAddr)
	asset := ledger.NormalizeAddress(cmd.Asset)

	if caller.IsZero() || beneficiary.IsZero() || asset.IsZero() {
		return nil, fmt.Errorf("%w: caller=%q beneficiary=%q asset=%q",
			ledger.ErrInvalidAddress, caller, beneficiary, asset)
	}

	engine := c.admin.Engine()
	if engine.IsZero() || caller != engine {
		return nil, fmt.Errorf("%w: %s is not the consuming engine", ledger.ErrUnauthorizedCaller, caller)
	}
	if cmd.Amount == 0 {
		return nil, ledger.ErrInvalidAmount
	}

	remaining, err := c.store.Debit(beneficiary, asset, cmd.Amount)
	if err != nil {
		return nil, fmt.Errorf("consume %s/%s: %w", beneficiary, asset, err)
	}

	if c.metrics != nil {
		c.metrics.UnitsConsumed.WithLabelValues(asset.String()).Add(float64(cmd.Amount))
	}

	return []event.Record{
		event.Consumed{
			Beneficiary: beneficiary.String(),
			Asset:       asset.String(),
			Amount:      cmd.Amount,
			Remaining:   remaining,
		},
	}, nil
}

// handleClearSponsor unassigns the caller's sponsor, allowed only once
// every balance has been fully consumed.
func (c *LedgerCore) handleClearSponsor(cmd *event.ClearSponsorRequested) ([]event.Record, error) {
	caller := ledger.NormalizeAddress(cmd.Caller)
	if caller.IsZero() {
		return nil, fmt.Errorf("%w: caller is null", ledger.ErrInvalidAddress)
	}

	if _, assigned := c.store.SponsorOf(caller); !assigned {
		return nil, fmt.Errorf("%w: no sponsor assigned to %s", ledger.ErrNothingToForfeit, caller)
	}
	if n := c.store.ActiveAssetCount(caller); n > 0 {
		return nil, fmt.Errorf("%w: %d assets still active for %s", ledger.ErrNotEmpty, n, caller)
	}

	previous, _ := c.store.ClearSponsor(caller)

	return []event.Record{
		event.SponsorCleared{
			Beneficiary:     caller.String(),
			PreviousSponsor: previous.String(),
		},
	}, nil
}

// handleForfeit zeroes the caller's balances for the listed assets. Assets
// with no balance are skipped rather than failing the call; only when
// nothing at all was forfeited does the command fail. If no active balance
// remains afterwards the sponsor assignment is cleared too.
func (c *LedgerCore) handleForfeit(cmd *event.ForfeitRequested) ([]event.Record, error) {
	caller := ledger.NormalizeAddress(cmd.Caller)
	if caller.IsZero() {
		return nil, fmt.Errorf("%w: caller is null", ledger.ErrInvalidAddress)
	}

	records := make([]event.Record, 0, len(cmd.Assets)+2)
	var total uint64
	cleared := 0

	// Apply-as-you-go is safe here: ZeroBalance only mutates when the
	// balance is positive, so total == 0 implies nothing changed.
	for _, raw := range cmd.Assets {
		asset := ledger.NormalizeAddress(raw)
		if asset.IsZero() {
			continue
		}
		amount := c.store.ZeroBalance(caller, asset)
		if amount == 0 {
			continue
		}
		total += amount
		cleared++
		records = append(records, event.Forfeited{
			Beneficiary: caller.String(),
			Asset:       asset.String(),
			Amount:      amount,
		})
		if c.metrics != nil {
			c.metrics.UnitsForfeited.WithLabelValues(asset.String()).Add(float64(amount))
		}
	}

	if total == 0 {
		return nil, fmt.Errorf("%w: no positive balances among %d assets", ledger.ErrNothingToForfeit, len(cmd.Assets))
	}

	sponsorCleared := false
	if c.store.ActiveAssetCount(caller) == 0 {
		if previous, ok := c.store.ClearSponsor(caller); ok {
			sponsorCleared = true
			records = append(records, event.SponsorCleared{
				Beneficiary:     caller.String(),
				PreviousSponsor: previous.String(),
			})
		}
	}

	records = append(records, event.ForfeitSummary{
		Beneficiary:    caller.String(),
		AssetsCleared:  cleared,
		TotalForfeited: total,
		SponsorCleared: sponsorCleared,
	})

	return records, nil
}

func (c *LedgerCore) handleConfigureEngine(cmd *event.ConfigureEngineRequested) ([]event.Record, error) {
	caller := ledger.NormalizeAddress(cmd.Caller)
	engine := ledger.NormalizeAddress(cmd.Engine)

	if err := c.admin.SetEngine(caller, engine); err != nil {
		return nil, err
	}

	return []event.Record{
		event.EngineConfigured{
			Owner:  caller.String(),
			Engine: engine.String(),
		},
	}, nil
}

func (c *LedgerCore) handleTransferOwnership(cmd *event.TransferOwnershipRequested) ([]event.Record, error) {
	caller := ledger.NormalizeAddress(cmd.Caller)
	newOwner := ledger.NormalizeAddress(cmd.NewOwner)

	if err := c.admin.TransferOwnership(caller, newOwner); err != nil {
		return nil, err
	}

	return []event.Record{
		event.OwnershipTransferStarted{
			Owner:        caller.String(),
			PendingOwner: newOwner.String(),
		},
	}, nil
}

func (c *LedgerCore) handleAcceptOwnership(cmd *event.AcceptOwnershipRequested) ([]event.Record, error) {
	caller := ledger.NormalizeAddress(cmd.Caller)

	previous, err := c.admin.AcceptOwnership(caller)
	if err != nil {
		return nil, err
	}

	return []event.Record{
		event.OwnershipTransferred{
			PreviousOwner: previous.String(),
			NewOwner:      caller.String(),
		},
	}, nil
}

// computeStateDigest creates canonical bytes for the state hash: the admin
// pointers, the per-asset cumulative totals, and (when the command has a
// beneficiary context) that beneficiary's full accounting state.
func (c *LedgerCore) computeStateDigest(beneficiary *string) []byte {
	digest := make([]byte, 0, 256)

	appendStr := func(s string) {
		digest = append(digest, byte(len(s)))
		digest = append(digest, []byte(s)...)
	}

	appendStr(c.admin.Owner().String())
	appendStr(c.admin.PendingOwner().String())
	appendStr(c.admin.Engine().String())

	// Per-asset cumulative totals, sorted for determinism
	cumulative := c.store.SnapshotAssetCumulative()
	assets := make([]ledger.Address, 0, len(cumulative))
	for a := range cumulative {
		assets = append(assets, a)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i] < assets[j] })
	for _, a := range assets {
		appendStr(a.String())
		digest = appendUint64LE(digest, cumulative[a])
	}

	if beneficiary == nil {
		return digest
	}

	addr := ledger.NormalizeAddress(*beneficiary)
	appendStr(addr.String())

	sponsor, _ := c.store.SponsorOf(addr)
	appendStr(sponsor.String())

	digest = appendUint64LE(digest, uint64(c.store.ActiveAssetCount(addr)))
	digest = appendUint64LE(digest, c.store.LifetimeAllocated(addr))

	balances := c.store.BalancesOf(addr)
	held := make([]ledger.Address, 0, len(balances))
	for a := range balances {
		held = append(held, a)
	}
	sort.Slice(held, func(i, j int) bool { return held[i] < held[j] })
	for _, a := range held {
		appendStr(a.String())
		digest = appendUint64LE(digest, balances[a])
	}

	return digest
}

func appendUint64LE(buf []byte, v uint64) []byte {
	return append(buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
		byte(v>>32),
		byte(v>>40),
		byte(v>>48),
		byte(v>>56),
	)
}

// postCheckInvariants validates invariants after a command is applied
func (c *LedgerCore) postCheckInvariants(cmd event.Command) error {
	if b := cmd.Beneficiary(); b != nil {
		addr := ledger.NormalizeAddress(*b)
		if err := c.store.ValidateActiveCount(addr); err != nil {
			return fmt.Errorf("post-check active count: %w", err)
		}
	}

	// Periodic global check: no beneficiary is ever its own sponsor
	if c.sequence > 0 && c.sequence%1000 == 0 {
		if err := c.store.ValidateNoSelfSponsor(); err != nil {
			return fmt.Errorf("post-check sponsorship: %w", err)
		}
	}

	return nil
}

// --- Replay, Snapshot Restore & Startup Methods ---

// ApplyRecord re-applies a persisted audit record to in-memory state during
// startup replay. Only state-bearing records mutate; Sponsored and
// ForfeitSummary are reporting companions of records already applied.
func (c *LedgerCore) ApplyRecord(env *event.RecordEnvelope) error {
	switch env.RecordType {
	case event.RecordTypeSponsoredReceived:
		var r event.SponsoredReceived
		if err := json.Unmarshal(env.Payload, &r); err != nil {
			return fmt.Errorf("replay seq %d: %w", env.Sequence, err)
		}
		beneficiary := ledger.NormalizeAddress(r.Beneficiary)
		asset := ledger.NormalizeAddress(r.Asset)
		c.store.RestoreSponsor(beneficiary, ledger.NormalizeAddress(r.Sponsor))
		c.store.Credit(beneficiary, asset, r.Received)
		c.store.AddAssetCumulative(asset, r.Received)
		c.store.AddLifetimeAllocated(beneficiary, r.Received)

	case event.RecordTypeConsumed:
		var r event.Consumed
		if err := json.Unmarshal(env.Payload, &r); err != nil {
			return fmt.Errorf("replay seq %d: %w", env.Sequence, err)
		}
		if _, err := c.store.Debit(ledger.NormalizeAddress(r.Beneficiary), ledger.NormalizeAddress(r.Asset), r.Amount); err != nil {
			return fmt.Errorf("replay seq %d: %w", env.Sequence, err)
		}

	case event.RecordTypeForfeited:
		var r event.Forfeited
		if err := json.Unmarshal(env.Payload, &r); err != nil {
			return fmt.Errorf("replay seq %d: %w", env.Sequence, err)
		}
		c.store.ZeroBalance(ledger.NormalizeAddress(r.Beneficiary), ledger.NormalizeAddress(r.Asset))

	case event.RecordTypeSponsorCleared:
		var r event.SponsorCleared
		if err := json.Unmarshal(env.Payload, &r); err != nil {
			return fmt.Errorf("replay seq %d: %w", env.Sequence, err)
		}
		c.store.ClearSponsor(ledger.NormalizeAddress(r.Beneficiary))

	case event.RecordTypeEngineConfigured:
		var r event.EngineConfigured
		if err := json.Unmarshal(env.Payload, &r); err != nil {
			return fmt.Errorf("replay seq %d: %w", env.Sequence, err)
		}
		c.admin.RestoreEngine(ledger.NormalizeAddress(r.Engine))

	case event.RecordTypeOwnershipTransferStarted:
		var r event.OwnershipTransferStarted
		if err := json.Unmarshal(env.Payload, &r); err != nil {
			return fmt.Errorf("replay seq %d: %w", env.Sequence, err)
		}
		c.admin.RestoreOwnership(ledger.NormalizeAddress(r.Owner), ledger.NormalizeAddress(r.PendingOwner))

	case event.RecordTypeOwnershipTransferred:
		var r event.OwnershipTransferred
		if err := json.Unmarshal(env.Payload, &r); err != nil {
			return fmt.Errorf("replay seq %d: %w", env.Sequence, err)
		}
		c.admin.RestoreOwnership(ledger.NormalizeAddress(r.NewOwner), ledger.ZeroAddress)

	case event.RecordTypeSponsored, event.RecordTypeForfeitSummary:
		// Reporting-only companions; state already applied by their pair.

	default:
		return fmt.Errorf("replay seq %d: unknown record type %d", env.Sequence, env.RecordType)
	}

	// Advance the chain to this record's position
	c.sequence = env.Sequence + 1
	c.hasher.SetPrevHash(env.StateHash)

	if env.Beneficiary != nil {
		c.sequenceValidator.RestorePartition(
			fmt.Sprintf("beneficiary:%s", ledger.NormalizeAddress(*env.Beneficiary)),
			env.SourceSequence+1,
		)
	} else {
		c.sequenceValidator.RestorePartition("global", env.SourceSequence+1)
	}

	c.idempotency.MarkProcessed(env.RecordType.CommandType().String(), env.IdempotencyKey)

	if c.metrics != nil {
		c.metrics.ReplayRecordsTotal.Inc()
	}

	return nil
}

// SnapshotState holds the serializable in-memory state for restore.
// This mirrors persistence.SnapshotData but uses typed fields.
type SnapshotState struct {
	Sequence          int64
	StateHash         [32]byte
	Sponsors          map[ledger.Address]ledger.Address
	Balances          map[ledger.BalanceKey]uint64
	AssetCumulative   map[ledger.Address]uint64
	LifetimeAllocated map[ledger.Address]uint64
	Owner             ledger.Address
	PendingOwner      ledger.Address
	Engine            ledger.Address
	SequenceState     map[string]int64
	IdempotencyKeys   []string
}

// RestoreFromSnapshot restores the core's in-memory state from a snapshot.
// On warm restart: load the latest snapshot, then replay newer records.
func (c *LedgerCore) RestoreFromSnapshot(snap *SnapshotState) {
	c.sequence = snap.Sequence + 1 // Next sequence to assign
	c.hasher.SetPrevHash(snap.StateHash)

	for beneficiary, sponsor := range snap.Sponsors {
		c.store.RestoreSponsor(beneficiary, sponsor)
	}
	for key, balance := range snap.Balances {
		c.store.RestoreBalance(key.Beneficiary, key.Asset, balance)
	}
	c.store.RestoreTotals(snap.AssetCumulative, snap.LifetimeAllocated)

	c.admin.RestoreOwnership(snap.Owner, snap.PendingOwner)
	c.admin.RestoreEngine(snap.Engine)

	for partition, nextSeq := range snap.SequenceState {
		c.sequenceValidator.RestorePartition(partition, nextSeq)
	}
}

// CreateSnapshotState captures the current in-memory state for persistence.
func (c *LedgerCore) CreateSnapshotState() *SnapshotState {
	return &SnapshotState{
		Sequence:          c.sequence - 1, // Last processed sequence
		StateHash:         c.hasher.GetPrevHash(),
		Sponsors:          c.store.SnapshotSponsors(),
		Balances:          c.store.SnapshotBalances(),
		AssetCumulative:   c.store.SnapshotAssetCumulative(),
		LifetimeAllocated: c.store.SnapshotLifetimeAllocated(),
		Owner:             c.admin.Owner(),
		PendingOwner:      c.admin.PendingOwner(),
		Engine:            c.admin.Engine(),
		SequenceState:     c.sequenceValidator.GetAllPartitions(),
		IdempotencyKeys:   c.idempotency.lru.GetAllKeys(),
	}
}

// WarmLRU loads recent idempotency keys into the LRU cache, avoiding
// cold-path DB lookups for recently processed commands after a restart.
func (c *LedgerCore) WarmLRU(keys []string) {
	c.idempotency.lru.WarmFromKeys(keys)
}

// GetSequence returns the current global sequence number.
func (c *LedgerCore) GetSequence() int64 {
	return c.sequence
}

// GetStateHash returns the current state hash (chain tip).
func (c *LedgerCore) GetStateHash() [32]byte {
	return c.hasher.GetPrevHash()
}

// Store exposes read access to accounting state for serving and tests.
func (c *LedgerCore) Store() *ledger.Store {
	return c.store
}

// Admin exposes the ownership and engine pointers for serving and tests.
func (c *LedgerCore) Admin() *AdminControl {
	return c.admin
}
