package dispenser

import (
	"launchpad/crypto"
	"launchpad/native/authority"
	nativecommon "launchpad/native/common"
)

// MaxContributionIDLength bounds distribution keys.
const MaxContributionIDLength = 64

// Status is the lifecycle position of a distribution.
type Status uint8

const (
	StatusQueued Status = iota + 1
	StatusDistributed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusDistributed:
		return "distributed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusDistributed || s == StatusCancelled
}

// Limits bound the blast radius of a single operator key.
type Limits struct {
	MaxSingleDistribution uint64
	RateLimitPerWindow    uint64
	WindowSeconds         uint64
}

// Validate requires every limit to be positive.
func (l Limits) Validate() error {
	if l.MaxSingleDistribution == 0 || l.RateLimitPerWindow == 0 || l.WindowSeconds == 0 {
		return ErrInvalidParams
	}
	return nil
}

func (l Limits) window() nativecommon.WindowLimit {
	return nativecommon.WindowLimit{Max: l.RateLimitPerWindow, Seconds: l.WindowSeconds}
}

// State is the single dispenser record. Vault is the token account every
// distribution is paid from.
type State struct {
	Registry         authority.Registry
	Mint             crypto.Address
	Vault            crypto.Address
	Limits           Limits
	Paused           bool
	Window           nativecommon.Window
	TotalQueued      uint64
	TotalDistributed uint64
	TotalCancelled   uint64
	InitializedAt    uint64
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.Registry = s.Registry.Clone()
	return &out
}

// Distribution is a pledged payout keyed by its contribution id. Amount and
// Recipient never change after enqueue.
type Distribution struct {
	ContributionID string
	Recipient      crypto.Address
	Amount         uint64
	Status         Status
	QueuedBy       crypto.Address
	QueuedAt       uint64
	DistributedAt  uint64
	CancelledAt    uint64
	Destination    crypto.Address
}
