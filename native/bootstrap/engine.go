// Package bootstrap implements the bonding-curve contribution ledger and the
// one-shot pool finalization that closes a sale.
package bootstrap

import (
	"errors"
	"time"

	"launchpad/core/events"
	"launchpad/crypto"
	"launchpad/native/authority"
	nativecommon "launchpad/native/common"
	"launchpad/native/curve"
	"launchpad/native/liquidity"
	"launchpad/native/split"
)

const moduleName = "bootstrap"

var (
	errNilState = errors.New("bootstrap engine: state not configured")
	errNilRail  = errors.New("bootstrap engine: value rail not configured")
)

type engineState interface {
	BootstrapState() (*State, bool, error)
	PutBootstrapState(st *State) error
	BootstrapContributor(wallet crypto.Address) (*Contributor, bool, error)
	PutBootstrapContributor(c *Contributor) error
	AppendBootstrapContributor(wallet crypto.Address) error
	BootstrapContributors() ([]crypto.Address, error)
}

// Engine wires the sale ledger with persistence, the value rail and event
// emission.
type Engine struct {
	state   engineState
	rail    liquidity.Rail
	pools   liquidity.PoolCreator
	pauses  nativecommon.PauseView
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs a bootstrap engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		pools:   liquidity.ConstantProductPool{},
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetRail configures the value and token rail.
func (e *Engine) SetRail(rail liquidity.Rail) { e.rail = rail }

// SetPoolCreator overrides the pool used during finalization.
func (e *Engine) SetPoolCreator(pools liquidity.PoolCreator) { e.pools = pools }

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
	st, ok, err := e.state.BootstrapState()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
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

// Initialize creates the sale. The caller becomes the authority. tokenVault
// is the token account holding the supply reserved for the pool and may be
// left zero when finalization is not used.
func (e *Engine) Initialize(caller crypto.Address, params Params, tokenVault crypto.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if _, ok, err := e.state.BootstrapState(); err != nil {
		return err
	} else if ok {
		return ErrAlreadyInitialized
	}
	if err := params.Validate(); err != nil {
		return err
	}
	registry, err := authority.New(caller, false)
	if err != nil {
		return ErrInvalidWallet
	}
	now := e.now()
	st := &State{
		Registry:      registry,
		Params:        params,
		TokenVault:    tokenVault,
		PayeeReceived: make([]uint64, len(params.Payees)),
		InitializedAt: now,
	}
	st.Params.Payees = append([]split.Weight(nil), params.Payees...)
	if err := e.state.PutBootstrapState(st); err != nil {
		return err
	}
	payees := make([]events.PayeeShare, len(params.Payees))
	for i, p := range params.Payees {
		payees[i] = events.PayeeShare{Payee: p.Payee, Amount: p.Percent}
	}
	e.emit(events.BootstrapInitialized{
		Authority:       caller,
		AllocationCap:   params.AllocationCap,
		StartRate:       params.StartRate,
		EndRate:         params.EndRate,
		MinContribution: params.MinContribution,
		MaxPerWallet:    params.MaxPerWallet,
		Payees:          payees,
		Timestamp:       now,
	})
	return nil
}

// Contribute prices amount on the curve as it stood before this call, splits
// the accepted value across the payees and records the allocation. A
// contribution that would overrun the cap is reduced to the largest amount
// that still fits.
func (e *Engine) Contribute(contributor crypto.Address, amount uint64) (*Receipt, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	if e.rail == nil {
		return nil, errNilRail
	}
	if st.Paused {
		return nil, ErrPaused
	}
	if st.SaleComplete {
		return nil, ErrBootstrapComplete
	}
	if contributor.IsZero() {
		return nil, ErrInvalidWallet
	}
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if amount < st.Params.MinContribution {
		return nil, ErrBelowMinimum
	}

	record, existed, err := e.state.BootstrapContributor(contributor)
	if err != nil {
		return nil, err
	}
	if !existed {
		record = &Contributor{Wallet: contributor}
	}
	projected, err := nativecommon.Add(record.TotalContributed, amount)
	if err != nil {
		return nil, err
	}
	if projected > st.Params.MaxPerWallet {
		return nil, ErrExceedsMaxPerWallet
	}

	rate, err := st.Params.Curve().Rate(st.TotalAllocated)
	if err != nil {
		return nil, err
	}
	units := amount / st.Params.Unit
	tokens, err := nativecommon.Mul(units, rate)
	if err != nil {
		return nil, err
	}
	accepted := amount
	capped := false
	if tokens > st.Remaining() {
		units = st.Remaining() / rate
		accepted, err = nativecommon.Mul(units, st.Params.Unit)
		if err != nil {
			return nil, err
		}
		if accepted == 0 {
			return nil, ErrAllocationCapExceeded
		}
		tokens = units * rate
		capped = true
	}
	if tokens == 0 {
		return nil, ErrZeroAllocation
	}

	shares, err := split.Shares(accepted, st.Params.Payees)
	if err != nil {
		return nil, err
	}
	for i, share := range shares {
		if err := e.rail.Transfer(contributor, share.Payee, share.Amount); err != nil {
			return nil, err
		}
		received, err := nativecommon.Add(st.PayeeReceived[i], share.Amount)
		if err != nil {
			return nil, err
		}
		st.PayeeReceived[i] = received
	}

	now := e.now()
	if record.TotalContributed, err = nativecommon.Add(record.TotalContributed, accepted); err != nil {
		return nil, err
	}
	if record.TotalAllocated, err = nativecommon.Add(record.TotalAllocated, tokens); err != nil {
		return nil, err
	}
	if record.ContributionCount, err = nativecommon.Add(record.ContributionCount, 1); err != nil {
		return nil, err
	}
	record.LastContributionTime = now
	if !existed {
		record.FirstContributedAt = now
		if st.ContributorCount, err = nativecommon.Add(st.ContributorCount, 1); err != nil {
			return nil, err
		}
		if err := e.state.AppendBootstrapContributor(contributor); err != nil {
			return nil, err
		}
	}
	if st.TotalContributed, err = nativecommon.Add(st.TotalContributed, accepted); err != nil {
		return nil, err
	}
	if st.TotalAllocated, err = nativecommon.Add(st.TotalAllocated, tokens); err != nil {
		return nil, err
	}

	nextRate, err := st.Params.Curve().Rate(st.TotalAllocated)
	if err != nil {
		return nil, err
	}
	// Once the remainder cannot buy a single unit at the next rate the cap
	// is effectively exhausted.
	if st.TotalAllocated >= st.Params.AllocationCap || st.Remaining() < nextRate {
		st.SaleComplete = true
		st.CompletedAt = now
	}
	progress, err := curve.Progress(st.TotalAllocated, st.Params.AllocationCap)
	if err != nil {
		return nil, err
	}

	if err := e.state.PutBootstrapContributor(record); err != nil {
		return nil, err
	}
	if err := e.state.PutBootstrapState(st); err != nil {
		return nil, err
	}

	eventShares := make([]events.PayeeShare, len(shares))
	for i, share := range shares {
		eventShares[i] = events.PayeeShare{Payee: share.Payee, Amount: share.Amount}
	}
	e.emit(events.ContributionAccepted{
		Contributor:          contributor,
		Requested:            amount,
		Amount:               accepted,
		Tokens:               tokens,
		RateUsed:             rate,
		NextRate:             nextRate,
		Shares:               eventShares,
		FirstContribution:    !existed,
		ContributorTotal:     record.TotalContributed,
		ContributorAllocated: record.TotalAllocated,
		ContributionCount:    record.ContributionCount,
		TotalContributed:     st.TotalContributed,
		TotalAllocated:       st.TotalAllocated,
		ContributorCount:     st.ContributorCount,
		GlobalProgress:       progress,
		Timestamp:            now,
	})
	if st.SaleComplete {
		e.emit(events.BootstrapComplete{
			TotalContributed: st.TotalContributed,
			TotalAllocated:   st.TotalAllocated,
			ContributorCount: st.ContributorCount,
			FinalRate:        nextRate,
			Timestamp:        now,
		})
	}

	return &Receipt{
		Requested: amount,
		Accepted:  accepted,
		Tokens:    tokens,
		RateUsed:  rate,
		NextRate:  nextRate,
		Shares:    shares,
		Capped:    capped,
		Completed: st.SaleComplete,
	}, nil
}

// Pause halts contributions. Authority only.
func (e *Engine) Pause(caller crypto.Address) error {
	st, err := e.loadForAuthority(caller)
	if err != nil {
		return err
	}
	st.Paused = true
	if err := e.state.PutBootstrapState(st); err != nil {
		return err
	}
	e.emit(events.BootstrapPaused{By: caller, Timestamp: e.now()})
	return nil
}

// Unpause resumes contributions. Authority only.
func (e *Engine) Unpause(caller crypto.Address) error {
	st, err := e.loadForAuthority(caller)
	if err != nil {
		return err
	}
	st.Paused = false
	if err := e.state.PutBootstrapState(st); err != nil {
		return err
	}
	e.emit(events.BootstrapUnpaused{By: caller, Timestamp: e.now()})
	return nil
}

// UpdateLimits replaces the anti-abuse limits. The curve stays untouched.
func (e *Engine) UpdateLimits(caller crypto.Address, minContribution, maxPerWallet uint64) error {
	st, err := e.loadForAuthority(caller)
	if err != nil {
		return err
	}
	if err := validateLimits(minContribution, maxPerWallet); err != nil {
		return err
	}
	st.Params.MinContribution = minContribution
	st.Params.MaxPerWallet = maxPerWallet
	if err := e.state.PutBootstrapState(st); err != nil {
		return err
	}
	e.emit(events.BootstrapLimitsUpdated{MinContribution: minContribution, MaxPerWallet: maxPerWallet, Timestamp: e.now()})
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
	if err := e.state.PutBootstrapState(st); err != nil {
		return err
	}
	e.emit(events.AuthorityTransferProposed{Module: moduleName, Current: caller, Proposed: next, Timestamp: e.now()})
	return nil
}

// AcceptAuthority completes a handover. Only the proposed identity may call.
func (e *Engine) AcceptAuthority(caller crypto.Address) error {
	st, err := e.loadState()
	if err != nil {
		return err
	}
	previous, err := st.Registry.Accept(caller)
	if err != nil {
		return err
	}
	if err := e.state.PutBootstrapState(st); err != nil {
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
	if err := e.state.PutBootstrapState(st); err != nil {
		return err
	}
	e.emit(events.AuthorityTransferCancelled{Module: moduleName, Current: caller, Withdrawn: withdrawn, Timestamp: e.now()})
	return nil
}

// MarkDistributed flags that contributor's tokens were delivered.
func (e *Engine) MarkDistributed(caller, contributor crypto.Address) error {
	if _, err := e.loadForAuthority(caller); err != nil {
		return err
	}
	record, ok, err := e.state.BootstrapContributor(contributor)
	if err != nil {
		return err
	}
	if !ok {
		return ErrContributorNotFound
	}
	if record.Distributed {
		return ErrAlreadyDistributed
	}
	record.Distributed = true
	if err := e.state.PutBootstrapContributor(record); err != nil {
		return err
	}
	e.emit(events.DistributionMarked{Contributor: contributor, Tokens: record.TotalAllocated, Timestamp: e.now()})
	return nil
}

// FinalizePool seeds the pool from the liquidity wallet and the token vault,
// then burns the entire liquidity position it received. It runs once, after
// the sale completes. A zero valueAmount uses everything the liquidity wallet
// collected from the sale.
func (e *Engine) FinalizePool(caller crypto.Address, tokenAmount, valueAmount, openTime uint64) (*liquidity.Receipt, error) {
	st, err := e.loadForAuthority(caller)
	if err != nil {
		return nil, err
	}
	if !st.SaleComplete {
		return nil, ErrBootstrapNotComplete
	}
	if st.PoolFinalized {
		return nil, ErrPoolFinalized
	}
	if e.rail == nil {
		return nil, errNilRail
	}
	if st.TokenVault.IsZero() {
		return nil, ErrInvalidWallet
	}
	if valueAmount == 0 && len(st.PayeeReceived) > 0 {
		valueAmount = st.PayeeReceived[0]
	}
	if tokenAmount == 0 || valueAmount == 0 {
		return nil, ErrInvalidAmount
	}
	receipt, err := liquidity.CreateAndBurn(e.rail, e.pools, liquidity.Request{
		Creator:     st.LiquidityWallet(),
		TokenSource: st.TokenVault,
		TokenAmount: tokenAmount,
		ValueAmount: valueAmount,
		OpenTime:    openTime,
	})
	if err != nil {
		return nil, err
	}
	st.PoolFinalized = true
	if err := e.state.PutBootstrapState(st); err != nil {
		return nil, err
	}
	now := e.now()
	e.emit(events.PoolCreated{
		Pool:        receipt.Pool,
		LPMint:      receipt.LPMint,
		TokenAmount: tokenAmount,
		ValueAmount: valueAmount,
		LPBalance:   receipt.LPBalance,
		OpenTime:    openTime,
		Timestamp:   now,
	})
	e.emit(events.LiquidityBurned{Pool: receipt.Pool, LPMint: receipt.LPMint, Amount: receipt.LPBalance, Timestamp: now})
	return &receipt, nil
}

// State returns a copy of the sale record.
func (e *Engine) State() (*State, error) {
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	return st.Clone(), nil
}

// CurrentRate is the rate the next contribution would receive.
func (e *Engine) CurrentRate() (uint64, error) {
	st, err := e.loadState()
	if err != nil {
		return 0, err
	}
	return st.Params.Curve().Rate(st.TotalAllocated)
}

// Contributor returns the record for wallet.
func (e *Engine) Contributor(wallet crypto.Address) (*Contributor, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	record, ok, err := e.state.BootstrapContributor(wallet)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrContributorNotFound
	}
	return record, nil
}

// Contributors lists every wallet in first-contribution order.
func (e *Engine) Contributors() ([]crypto.Address, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.BootstrapContributors()
}
