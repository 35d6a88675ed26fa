package events

import (
	"launchpad/core/types"
	"launchpad/crypto"
)

const (
	TypeDispenserInitialized    = "dispenser.initialized"
	TypeDistributionEnqueued    = "dispenser.distribution.enqueued"
	TypeDistributionExecuted    = "dispenser.distribution.executed"
	TypeDistributionCancelled   = "dispenser.distribution.cancelled"
	TypeDispenserOperatorAdded  = "dispenser.operator.added"
	TypeDispenserOperatorRemove = "dispenser.operator.removed"
	TypeDispenserPaused         = "dispenser.paused"
	TypeDispenserUnpaused       = "dispenser.unpaused"
	TypeDispenserLimitsUpdated  = "dispenser.limits.updated"
)

// DispenserInitialized captures the dispenser configuration at creation.
type DispenserInitialized struct {
	Authority             crypto.Address
	Mint                  crypto.Address
	MaxSingleDistribution uint64
	RateLimitPerWindow    uint64
	WindowSeconds         uint64
	Timestamp             uint64
}

// EventType implements the Event interface.
func (DispenserInitialized) EventType() string { return TypeDispenserInitialized }

// DistributionEnqueued records a new pledged payout.
type DistributionEnqueued struct {
	ContributionID string
	Recipient      crypto.Address
	Amount         uint64
	Operator       crypto.Address
	TotalQueued    uint64
	QueuedAt       uint64
}

// EventType implements the Event interface.
func (DistributionEnqueued) EventType() string { return TypeDistributionEnqueued }

// Event converts the payload into a broadcastable event.
func (e DistributionEnqueued) Event() *types.Event {
	return &types.Event{Type: TypeDistributionEnqueued, Attributes: map[string]string{
		"contributionId": e.ContributionID,
		"recipient":      formatAddr(e.Recipient),
		"amount":         formatUint(e.Amount),
		"operator":       formatAddr(e.Operator),
		"totalQueued":    formatUint(e.TotalQueued),
		"queuedAt":       formatUint(e.QueuedAt),
	}}
}

// DistributionExecuted records a completed payout.
type DistributionExecuted struct {
	ContributionID   string
	Recipient        crypto.Address
	Destination      crypto.Address
	Amount           uint64
	Operator         crypto.Address
	TotalDistributed uint64
	DistributedAt    uint64
}

// EventType implements the Event interface.
func (DistributionExecuted) EventType() string { return TypeDistributionExecuted }

// Event converts the payload into a broadcastable event.
func (e DistributionExecuted) Event() *types.Event {
	return &types.Event{Type: TypeDistributionExecuted, Attributes: map[string]string{
		"contributionId":   e.ContributionID,
		"recipient":        formatAddr(e.Recipient),
		"destination":      formatAddr(e.Destination),
		"amount":           formatUint(e.Amount),
		"operator":         formatAddr(e.Operator),
		"totalDistributed": formatUint(e.TotalDistributed),
		"distributedAt":    formatUint(e.DistributedAt),
	}}
}

// DistributionCancelled records a withdrawn payout.
type DistributionCancelled struct {
	ContributionID string
	Recipient      crypto.Address
	Amount         uint64
	Operator       crypto.Address
	TotalQueued    uint64
	TotalCancelled uint64
	Timestamp      uint64
}

// EventType implements the Event interface.
func (DistributionCancelled) EventType() string { return TypeDistributionCancelled }

// Event converts the payload into a broadcastable event.
func (e DistributionCancelled) Event() *types.Event {
	return &types.Event{Type: TypeDistributionCancelled, Attributes: map[string]string{
		"contributionId": e.ContributionID,
		"recipient":      formatAddr(e.Recipient),
		"amount":         formatUint(e.Amount),
		"operator":       formatAddr(e.Operator),
		"totalQueued":    formatUint(e.TotalQueued),
		"totalCancelled": formatUint(e.TotalCancelled),
		"timestamp":      formatUint(e.Timestamp),
	}}
}

// DispenserOperatorAdded records an operator joining the set.
type DispenserOperatorAdded struct {
	Operator  crypto.Address
	By        crypto.Address
	Timestamp uint64
}

// EventType implements the Event interface.
func (DispenserOperatorAdded) EventType() string { return TypeDispenserOperatorAdded }

// DispenserOperatorRemoved records an operator leaving the set.
type DispenserOperatorRemoved struct {
	Operator  crypto.Address
	By        crypto.Address
	Timestamp uint64
}

// EventType implements the Event interface.
func (DispenserOperatorRemoved) EventType() string { return TypeDispenserOperatorRemove }

// DispenserPaused records an emergency halt.
type DispenserPaused struct {
	By        crypto.Address
	Timestamp uint64
}

// EventType implements the Event interface.
func (DispenserPaused) EventType() string { return TypeDispenserPaused }

// DispenserUnpaused records payouts resuming.
type DispenserUnpaused struct {
	By        crypto.Address
	Timestamp uint64
}

// EventType implements the Event interface.
func (DispenserUnpaused) EventType() string { return TypeDispenserUnpaused }

// DispenserLimitsUpdated records new payout ceilings.
type DispenserLimitsUpdated struct {
	MaxSingleDistribution uint64
	RateLimitPerWindow    uint64
	WindowSeconds         uint64
	Timestamp             uint64
}

// EventType implements the Event interface.
func (DispenserLimitsUpdated) EventType() string { return TypeDispenserLimitsUpdated }
