package events

import (
	"strconv"

	"launchpad/core/types"
	"launchpad/crypto"
)

const (
	// TypeBootstrapInitialized is emitted once the sale parameters are fixed.
	TypeBootstrapInitialized = "bootstrap.initialized"
	// TypeContributionAccepted is emitted for every committed contribution.
	TypeContributionAccepted = "bootstrap.contribution.accepted"
	// TypeBootstrapComplete is emitted when the allocation cap is exhausted.
	TypeBootstrapComplete = "bootstrap.complete"
	// TypeBootstrapPaused is emitted when the authority halts contributions.
	TypeBootstrapPaused = "bootstrap.paused"
	// TypeBootstrapUnpaused is emitted when the authority resumes contributions.
	TypeBootstrapUnpaused = "bootstrap.unpaused"
	// TypeBootstrapLimitsUpdated is emitted when the anti-abuse limits change.
	TypeBootstrapLimitsUpdated = "bootstrap.limits.updated"
	// TypeDistributionMarked is emitted once a contributor's tokens were delivered.
	TypeDistributionMarked = "bootstrap.distribution.marked"
	// TypePoolCreated is emitted after the pool-creation call returns.
	TypePoolCreated = "bootstrap.pool.created"
	// TypeLiquidityBurned is emitted after the liquidity position is destroyed.
	TypeLiquidityBurned = "bootstrap.liquidity.burned"
)

// BootstrapInitialized captures the immutable sale parameters.
type BootstrapInitialized struct {
	Authority       crypto.Address
	AllocationCap   uint64
	StartRate       uint64
	EndRate         uint64
	MinContribution uint64
	MaxPerWallet    uint64
	Payees          []PayeeShare
	Timestamp       uint64
}

// EventType implements the Event interface.
func (BootstrapInitialized) EventType() string { return TypeBootstrapInitialized }

// Event converts the payload into a broadcastable event.
func (e BootstrapInitialized) Event() *types.Event {
	attrs := map[string]string{
		"authority":       formatAddr(e.Authority),
		"allocationCap":   formatUint(e.AllocationCap),
		"startRate":       formatUint(e.StartRate),
		"endRate":         formatUint(e.EndRate),
		"minContribution": formatUint(e.MinContribution),
		"maxPerWallet":    formatUint(e.MaxPerWallet),
		"payeeCount":      strconv.Itoa(len(e.Payees)),
		"timestamp":       formatUint(e.Timestamp),
	}
	for i, payee := range e.Payees {
		attrs["payee"+strconv.Itoa(i)] = formatAddr(payee.Payee)
		attrs["payee"+strconv.Itoa(i)+"Weight"] = formatUint(payee.Amount)
	}
	return &types.Event{Type: TypeBootstrapInitialized, Attributes: attrs}
}

// PayeeShare is one destination of a split and the amount it received. For
// BootstrapInitialized the amount carries the payee's percentage weight.
type PayeeShare struct {
	Payee  crypto.Address
	Amount uint64
}

// ContributionAccepted carries every field a reconciler needs to rebuild the
// ledger totals without reading state.
type ContributionAccepted struct {
	Contributor          crypto.Address
	Requested            uint64
	Amount               uint64
	Tokens               uint64
	RateUsed             uint64
	NextRate             uint64
	Shares               []PayeeShare
	FirstContribution    bool
	ContributorTotal     uint64
	ContributorAllocated uint64
	ContributionCount    uint64
	TotalContributed     uint64
	TotalAllocated       uint64
	ContributorCount     uint64
	GlobalProgress       uint64
	Timestamp            uint64
}

// EventType implements the Event interface.
func (ContributionAccepted) EventType() string { return TypeContributionAccepted }

// Event converts the payload into a broadcastable event.
func (e ContributionAccepted) Event() *types.Event {
	attrs := map[string]string{
		"contributor":          formatAddr(e.Contributor),
		"requested":            formatUint(e.Requested),
		"amount":               formatUint(e.Amount),
		"tokens":               formatUint(e.Tokens),
		"rateUsed":             formatUint(e.RateUsed),
		"nextRate":             formatUint(e.NextRate),
		"firstContribution":    formatBool(e.FirstContribution),
		"contributorTotal":     formatUint(e.ContributorTotal),
		"contributorAllocated": formatUint(e.ContributorAllocated),
		"contributionCount":    formatUint(e.ContributionCount),
		"totalContributed":     formatUint(e.TotalContributed),
		"totalAllocated":       formatUint(e.TotalAllocated),
		"contributorCount":     formatUint(e.ContributorCount),
		"globalProgress":       formatUint(e.GlobalProgress),
		"timestamp":            formatUint(e.Timestamp),
	}
	for i, share := range e.Shares {
		attrs["share"+strconv.Itoa(i)+"Payee"] = formatAddr(share.Payee)
		attrs["share"+strconv.Itoa(i)+"Amount"] = formatUint(share.Amount)
	}
	return &types.Event{Type: TypeContributionAccepted, Attributes: attrs}
}

// BootstrapComplete marks the allocation cap as exhausted.
type BootstrapComplete struct {
	TotalContributed uint64
	TotalAllocated   uint64
	ContributorCount uint64
	FinalRate        uint64
	Timestamp        uint64
}

// EventType implements the Event interface.
func (BootstrapComplete) EventType() string { return TypeBootstrapComplete }

// Event converts the payload into a broadcastable event.
func (e BootstrapComplete) Event() *types.Event {
	return &types.Event{Type: TypeBootstrapComplete, Attributes: map[string]string{
		"totalContributed": formatUint(e.TotalContributed),
		"totalAllocated":   formatUint(e.TotalAllocated),
		"contributorCount": formatUint(e.ContributorCount),
		"finalRate":        formatUint(e.FinalRate),
		"timestamp":        formatUint(e.Timestamp),
	}}
}

// BootstrapPaused records a halt of contributions.
type BootstrapPaused struct {
	By        crypto.Address
	Timestamp uint64
}

// EventType implements the Event interface.
func (BootstrapPaused) EventType() string { return TypeBootstrapPaused }

// BootstrapUnpaused records contributions resuming.
type BootstrapUnpaused struct {
	By        crypto.Address
	Timestamp uint64
}

// EventType implements the Event interface.
func (BootstrapUnpaused) EventType() string { return TypeBootstrapUnpaused }

// BootstrapLimitsUpdated records new anti-abuse limits.
type BootstrapLimitsUpdated struct {
	MinContribution uint64
	MaxPerWallet    uint64
	Timestamp       uint64
}

// EventType implements the Event interface.
func (BootstrapLimitsUpdated) EventType() string { return TypeBootstrapLimitsUpdated }

// DistributionMarked records that a contributor's pledge was delivered.
type DistributionMarked struct {
	Contributor crypto.Address
	Tokens      uint64
	Timestamp   uint64
}

// EventType implements the Event interface.
func (DistributionMarked) EventType() string { return TypeDistributionMarked }

// Event converts the payload into a broadcastable event.
func (e DistributionMarked) Event() *types.Event {
	return &types.Event{Type: TypeDistributionMarked, Attributes: map[string]string{
		"contributor": formatAddr(e.Contributor),
		"tokens":      formatUint(e.Tokens),
		"timestamp":   formatUint(e.Timestamp),
	}}
}

// PoolCreated describes the liquidity pool seeded with the raised value.
type PoolCreated struct {
	Pool        crypto.Address
	LPMint      crypto.Address
	TokenAmount uint64
	ValueAmount uint64
	LPBalance   uint64
	OpenTime    uint64
	Timestamp   uint64
}

// EventType implements the Event interface.
func (PoolCreated) EventType() string { return TypePoolCreated }

// Event converts the payload into a broadcastable event.
func (e PoolCreated) Event() *types.Event {
	return &types.Event{Type: TypePoolCreated, Attributes: map[string]string{
		"pool":        formatAddr(e.Pool),
		"lpMint":      formatAddr(e.LPMint),
		"tokenAmount": formatUint(e.TokenAmount),
		"valueAmount": formatUint(e.ValueAmount),
		"lpBalance":   formatUint(e.LPBalance),
		"openTime":    formatUint(e.OpenTime),
		"timestamp":   formatUint(e.Timestamp),
	}}
}

// LiquidityBurned records the permanent lock of the pool position.
type LiquidityBurned struct {
	Pool      crypto.Address
	LPMint    crypto.Address
	Amount    uint64
	Timestamp uint64
}

// EventType implements the Event interface.
func (LiquidityBurned) EventType() string { return TypeLiquidityBurned }

// Event converts the payload into a broadcastable event.
func (e LiquidityBurned) Event() *types.Event {
	return &types.Event{Type: TypeLiquidityBurned, Attributes: map[string]string{
		"pool":      formatAddr(e.Pool),
		"lpMint":    formatAddr(e.LPMint),
		"amount":    formatUint(e.Amount),
		"timestamp": formatUint(e.Timestamp),
	}}
}
