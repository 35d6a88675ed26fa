// Package dispenser queues pledged token payouts and executes them under
// operator control, bounded by a pause switch, a per-payout ceiling and a
// windowed rate limit.
package dispenser

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"launchpad/core/events"
	"launchpad/crypto"
	"launchpad/native/authority"
	"launchpad/native/bank"
	nativecommon "launchpad/native/common"
)

const moduleName = "dispenser"

var (
	errNilState = errors.New("dispenser engine: state not configured")
	errNilRail  = errors.New("dispenser engine: token rail not configured")
)

type engineState interface {
	DispenserState() (*State, bool, error)
	PutDispenserState(st *State) error
	DispenserDistribution(id string) (*Distribution, bool, error)
	PutDispenserDistribution(d *Distribution) error
	AppendDispenserDistribution(id string) error
	DispenserDistributionIDs() ([]string, error)
}

// TokenRail moves tokens out of the dispenser vault.
type TokenRail interface {
	Account(addr crypto.Address) (*bank.TokenAccount, error)
	TransferTokens(from, to crypto.Address, amount uint64) error
}

// Engine wires the distribution queue with persistence, the token rail and
// event emission.
type Engine struct {
	state   engineState
	rail    TokenRail
	pauses  nativecommon.PauseView
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs a dispenser engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetRail configures the token rail.
func (e *Engine) SetRail(rail TokenRail) { e.rail = rail }

// SetPauses configures the operational pause switches.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() uint64 {
	if e == nil || e.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	ts := e.nowFn()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func (e *Engine) loadState() (*State, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	st, ok, err := e.state.DispenserState()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return st, nil
}

func (e *Engine) loadForOperator(caller crypto.Address) (*State, error) {
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	if !st.Registry.IsOperator(caller) {
		return nil, ErrUnauthorized
	}
	return st, nil
}

func (e *Engine) loadForAuthority(caller crypto.Address) (*State, error) {
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	if !st.Registry.IsAuthority(caller) {
		return nil, ErrUnauthorized
	}
	return st, nil
}

// sanitizeContributionID trims and NFC-normalizes id so that canonically
// equivalent spellings map to the same record.
func sanitizeContributionID(id string) (string, error) {
	trimmed := norm.NFC.String(strings.TrimSpace(id))
	if trimmed == "" || len(trimmed) > MaxContributionIDLength {
		return "", ErrInvalidContributionID
	}
	return trimmed, nil
}

// Initialize creates the dispenser. The caller becomes authority and first
// operator. Payouts are drawn from vault, a token account of mint.
func (e *Engine) Initialize(caller, mint, vault crypto.Address, limits Limits) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if _, ok, err := e.state.DispenserState(); err != nil {
		return err
	} else if ok {
		return ErrAlreadyInitialized
	}
	if err := limits.Validate(); err != nil {
		return err
	}
	if mint.IsZero() || vault.IsZero() {
		return ErrInvalidParams
	}
	registry, err := authority.New(caller, true)
	if err != nil {
		return ErrInvalidParams
	}
	now := e.now()
	st := &State{
		Registry:      registry,
		Mint:          mint,
		Vault:         vault,
		Limits:        limits,
		InitializedAt: now,
	}
	if err := e.state.PutDispenserState(st); err != nil {
		return err
	}
	e.emit(events.DispenserInitialized{
		Authority:             caller,
		Mint:                  mint,
		MaxSingleDistribution: limits.MaxSingleDistribution,
		RateLimitPerWindow:    limits.RateLimitPerWindow,
		WindowSeconds:         limits.WindowSeconds,
		Timestamp:             now,
	})
	return nil
}

// Enqueue records a pledged payout under a unique contribution id.
func (e *Engine) Enqueue(caller crypto.Address, id string, recipient crypto.Address, amount uint64) (*Distribution, error) {
	st, err := e.loadForOperator(caller)
	if err != nil {
		return nil, err
	}
	id, err = sanitizeContributionID(id)
	if err != nil {
		return nil, err
	}
	if recipient.IsZero() {
		return nil, ErrInvalidRecipient
	}
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if _, exists, err := e.state.DispenserDistribution(id); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrDuplicateContribution
	}
	totalQueued, err := nativecommon.Add(st.TotalQueued, amount)
	if err != nil {
		return nil, err
	}
	now := e.now()
	record := &Distribution{
		ContributionID: id,
		Recipient:      recipient,
		Amount:         amount,
		Status:         StatusQueued,
		QueuedBy:       caller,
		QueuedAt:       now,
	}
	st.TotalQueued = totalQueued
	if err := e.state.PutDispenserDistribution(record); err != nil {
		return nil, err
	}
	if err := e.state.AppendDispenserDistribution(id); err != nil {
		return nil, err
	}
	if err := e.state.PutDispenserState(st); err != nil {
		return nil, err
	}
	e.emit(events.DistributionEnqueued{
		ContributionID: id,
		Recipient:      recipient,
		Amount:         amount,
		Operator:       caller,
		TotalQueued:    st.TotalQueued,
		QueuedAt:       now,
	})
	return record, nil
}

func (e *Engine) loadQueued(id string) (*Distribution, error) {
	id, err := sanitizeContributionID(id)
	if err != nil {
		return nil, err
	}
	record, ok, err := e.state.DispenserDistribution(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDistributionNotFound
	}
	switch record.Status {
	case StatusQueued:
		return record, nil
	case StatusDistributed:
		return nil, ErrAlreadyDistributed
	default:
		return nil, ErrNotQueued
	}
}

// Execute pays a queued distribution into destination, a token account that
// must be owned by the recorded recipient.
func (e *Engine) Execute(caller crypto.Address, id string, destination crypto.Address) (*Distribution, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	st, err := e.loadForOperator(caller)
	if err != nil {
		return nil, err
	}
	if e.rail == nil {
		return nil, errNilRail
	}
	record, err := e.loadQueued(id)
	if err != nil {
		return nil, err
	}
	if st.Paused {
		return nil, ErrPaused
	}
	if record.Amount > st.Limits.MaxSingleDistribution {
		return nil, ErrAmountAboveCeiling
	}
	account, err := e.rail.Account(destination)
	if err != nil {
		return nil, err
	}
	if account.Owner != record.Recipient {
		return nil, ErrRecipientMismatch
	}
	if account.Mint != st.Mint {
		return nil, ErrMintMismatch
	}
	now := e.now()
	window, err := nativecommon.CheckWindow(st.Limits.window(), now, st.Window)
	if err != nil {
		return nil, err
	}
	totalDistributed, err := nativecommon.Add(st.TotalDistributed, record.Amount)
	if err != nil {
		return nil, err
	}
	if err := e.rail.TransferTokens(st.Vault, destination, record.Amount); err != nil {
		return nil, err
	}

	record.Status = StatusDistributed
	record.DistributedAt = now
	record.Destination = destination
	st.Window = window
	st.TotalDistributed = totalDistributed
	if err := e.state.PutDispenserDistribution(record); err != nil {
		return nil, err
	}
	if err := e.state.PutDispenserState(st); err != nil {
		return nil, err
	}
	e.emit(events.DistributionExecuted{
		ContributionID:   record.ContributionID,
		Recipient:        record.Recipient,
		Destination:      destination,
		Amount:           record.Amount,
		Operator:         caller,
		TotalDistributed: st.TotalDistributed,
		DistributedAt:    now,
	})
	return record, nil
}

// Cancel withdraws a queued distribution and moves its amount from the
// queued total to the cancelled total.
func (e *Engine) Cancel(caller crypto.Address, id string) (*Distribution, error) {
	st, err := e.loadForOperator(caller)
	if err != nil {
		return nil, err
	}
	record, err := e.loadQueued(id)
	if err != nil {
		if errors.Is(err, ErrAlreadyDistributed) {
			return nil, ErrNotQueued
		}
		return nil, err
	}
	totalQueued, err := nativecommon.Sub(st.TotalQueued, record.Amount)
	if err != nil {
		return nil, err
	}
	totalCancelled, err := nativecommon.Add(st.TotalCancelled, record.Amount)
	if err != nil {
		return nil, err
	}
	now := e.now()
	record.Status = StatusCancelled
	record.CancelledAt = now
	st.TotalQueued = totalQueued
	st.TotalCancelled = totalCancelled
	if err := e.state.PutDispenserDistribution(record); err != nil {
		return nil, err
	}
	if err := e.state.PutDispenserState(st); err != nil {
		return nil, err
	}
	e.emit(events.DistributionCancelled{
		ContributionID: record.ContributionID,
		Recipient:      record.Recipient,
		Amount:         record.Amount,
		Operator:       caller,
		TotalQueued:    st.TotalQueued,
		TotalCancelled: st.TotalCancelled,
		Timestamp:      now,
	})
	return record, nil
}

// EmergencyPause halts execution. Any operator may pause.
func (e *Engine) EmergencyPause(caller crypto.Address) error {
	st, err := e.loadForOperator(caller)
	if err != nil {
		return err
	}
	st.Paused = true
	if err := e.state.PutDispenserState(st); err != nil {
		return err
	}
	e.emit(events.DispenserPaused{By: caller, Timestamp: e.now()})
	return nil
}

// Unpause resumes execution. Authority only.
func (e *Engine) Unpause(caller crypto.Address) error {
	st, err := e.loadForAuthority(caller)
	if err != nil {
		return err
	}
	st.Paused = false
	if err := e.state.PutDispenserState(st); err != nil {
		return err
	}
	e.emit(events.DispenserUnpaused{By: caller, Timestamp: e.now()})
	return nil
}

// UpdateLimits replaces the payout ceilings. Authority only. The current
// window counter is kept.
func (e *Engine) UpdateLimits(caller crypto.Address, limits Limits) error {
	st, err := e.loadForAuthority(caller)
	if err != nil {
		return err
	}
	if err := limits.Validate(); err != nil {
		return err
	}
	st.Limits = limits
	if err := e.state.PutDispenserState(st); err != nil {
		return err
	}
	e.emit(events.DispenserLimitsUpdated{
		MaxSingleDistribution: limits.MaxSingleDistribution,
		RateLimitPerWindow:    limits.RateLimitPerWindow,
		WindowSeconds:         limits.WindowSeconds,
		Timestamp:             e.now(),
	})
	return nil
}

// AddOperator grows the operator set. Adding an existing operator succeeds
// without change.
func (e *Engine) AddOperator(caller, op crypto.Address) error {
	st, err := e.loadState()
	if err != nil {
		return err
	}
	added, err := st.Registry.AddOperator(caller, op)
	if err != nil || !added {
		return err
	}
	if err := e.state.PutDispenserState(st); err != nil {
		return err
	}
	e.emit(events.DispenserOperatorAdded{Operator: op, By: caller, Timestamp: e.now()})
	return nil
}

// RemoveOperator shrinks the operator set. The authority cannot be removed.
func (e *Engine) RemoveOperator(caller, op crypto.Address) error {
	st, err := e.loadState()
	if err != nil {
		return err
	}
	removed, err := st.Registry.RemoveOperator(caller, op)
	if err != nil || !removed {
		return err
	}
	if err := e.state.PutDispenserState(st); err != nil {
		return err
	}
	e.emit(events.DispenserOperatorRemoved{Operator: op, By: caller, Timestamp: e.now()})
	return nil
}

// ProposeAuthority starts a handover to next.
func (e *Engine) ProposeAuthority(caller, next crypto.Address) error {
	st, err := e.loadState()
	if err != nil {
		return err
	}
	if err := st.Registry.Propose(caller, next); err != nil {
		return err
	}
	if err := e.state.PutDispenserState(st); err != nil {
		return err
	}
	e.emit(events.AuthorityTransferProposed{Module: moduleName, Current: caller, Proposed: next, Timestamp: e.now()})
	return nil
}

// AcceptAuthority completes a handover; the old authority's operator slot
// passes to the caller.
func (e *Engine) AcceptAuthority(caller crypto.Address) error {
	st, err := e.loadState()
	if err != nil {
		return err
	}
	previous, err := st.Registry.Accept(caller)
	if err != nil {
		return err
	}
	if err := e.state.PutDispenserState(st); err != nil {
		return err
	}
	e.emit(events.AuthorityTransferAccepted{Module: moduleName, Previous: previous, Current: caller, Timestamp: e.now()})
	return nil
}

// CancelAuthorityTransfer withdraws a pending handover.
func (e *Engine) CancelAuthorityTransfer(caller crypto.Address) error {
	st, err := e.loadState()
	if err != nil {
		return err
	}
	withdrawn, err := st.Registry.Cancel(caller)
	if err != nil {
		return err
	}
	if err := e.state.PutDispenserState(st); err != nil {
		return err
	}
	e.emit(events.AuthorityTransferCancelled{Module: moduleName, Current: caller, Withdrawn: withdrawn, Timestamp: e.now()})
	return nil
}

// State returns a copy of the dispenser record.
func (e *Engine) State() (*State, error) {
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	return st.Clone(), nil
}

// Distribution returns the record stored under id.
func (e *Engine) Distribution(id string) (*Distribution, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	id, err := sanitizeContributionID(id)
	if err != nil {
		return nil, err
	}
	record, ok, err := e.state.DispenserDistribution(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDistributionNotFound
	}
	return record, nil
}

// DistributionIDs lists every contribution id in enqueue order.
func (e *Engine) DistributionIDs() ([]string, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.DispenserDistributionIDs()
}
