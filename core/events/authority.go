package events

import (
	"launchpad/core/types"
	"launchpad/crypto"
)

const (
	TypeAuthorityTransferProposed = "authority.transfer.proposed"
	TypeAuthorityTransferAccepted = "authority.transfer.accepted"
	TypeAuthorityTransferCanceled = "authority.transfer.cancelled"
)

// AuthorityTransferProposed records the first step of a handover. Module
// names the registry owner ("bootstrap" or "dispenser").
type AuthorityTransferProposed struct {
	Module    string
	Current   crypto.Address
	Proposed  crypto.Address
	Timestamp uint64
}

// EventType implements the Event interface.
func (AuthorityTransferProposed) EventType() string { return TypeAuthorityTransferProposed }

// Event converts the payload into a broadcastable event.
func (e AuthorityTransferProposed) Event() *types.Event {
	return &types.Event{Type: TypeAuthorityTransferProposed, Attributes: map[string]string{
		"module":    e.Module,
		"current":   formatAddr(e.Current),
		"proposed":  formatAddr(e.Proposed),
		"timestamp": formatUint(e.Timestamp),
	}}
}

// AuthorityTransferAccepted records a completed handover.
type AuthorityTransferAccepted struct {
	Module    string
	Previous  crypto.Address
	Current   crypto.Address
	Timestamp uint64
}

// EventType implements the Event interface.
func (AuthorityTransferAccepted) EventType() string { return TypeAuthorityTransferAccepted }

// Event converts the payload into a broadcastable event.
func (e AuthorityTransferAccepted) Event() *types.Event {
	return &types.Event{Type: TypeAuthorityTransferAccepted, Attributes: map[string]string{
		"module":    e.Module,
		"previous":  formatAddr(e.Previous),
		"current":   formatAddr(e.Current),
		"timestamp": formatUint(e.Timestamp),
	}}
}

// AuthorityTransferCancelled records a withdrawn proposal.
type AuthorityTransferCancelled struct {
	Module    string
	Current   crypto.Address
	Withdrawn crypto.Address
	Timestamp uint64
}

// EventType implements the Event interface.
func (AuthorityTransferCancelled) EventType() string { return TypeAuthorityTransferCanceled }
