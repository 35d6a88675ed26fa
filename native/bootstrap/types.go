package bootstrap

import (
	"launchpad/crypto"
	"launchpad/native/authority"
	"launchpad/native/curve"
	"launchpad/native/split"
)

const (
	// DefaultUnit is the number of base value units in one whole unit.
	DefaultUnit uint64 = 1_000_000_000
	// DefaultStartRate is tokens per whole unit at zero progress.
	DefaultStartRate uint64 = 10_000
	// DefaultEndRate is tokens per whole unit once the cap is reached.
	DefaultEndRate uint64 = 40_000
	// DefaultAllocationCap is the number of tokens the sale may allocate.
	DefaultAllocationCap uint64 = 100_000_000
	// DefaultMinContribution is 0.1 unit.
	DefaultMinContribution uint64 = 100_000_000
	// DefaultMaxPerWallet is 10 units.
	DefaultMaxPerWallet uint64 = 10_000_000_000
	// MinPayees is the least number of split destinations a sale accepts.
	MinPayees = 3
)

// DefaultSplit returns the liquidity/treasury/staking weights of 80/10/10.
// The first payee is the liquidity wallet that later seeds the pool.
func DefaultSplit(liquidity, treasury, staking crypto.Address) []split.Weight {
	return []split.Weight{
		{Payee: liquidity, Percent: 80},
		{Payee: treasury, Percent: 10},
		{Payee: staking, Percent: 10},
	}
}

// Params configure a sale. The curve and payees are fixed at initialization;
// MinContribution and MaxPerWallet may be tuned by the authority.
type Params struct {
	AllocationCap   uint64
	StartRate       uint64
	EndRate         uint64
	MinContribution uint64
	MaxPerWallet    uint64
	Unit            uint64
	Payees          []split.Weight
}

// DefaultParams returns the launch defaults for the supplied payees.
func DefaultParams(payees []split.Weight) Params {
	return Params{
		AllocationCap:   DefaultAllocationCap,
		StartRate:       DefaultStartRate,
		EndRate:         DefaultEndRate,
		MinContribution: DefaultMinContribution,
		MaxPerWallet:    DefaultMaxPerWallet,
		Unit:            DefaultUnit,
		Payees:          payees,
	}
}

// Curve returns the pricing parameters.
func (p Params) Curve() curve.Params {
	return curve.Params{StartRate: p.StartRate, EndRate: p.EndRate, AllocationCap: p.AllocationCap}
}

// Validate enforces the initialization invariants.
func (p Params) Validate() error {
	if err := p.Curve().Validate(); err != nil {
		return ErrInvalidParams
	}
	if err := validateLimits(p.MinContribution, p.MaxPerWallet); err != nil {
		return err
	}
	if p.Unit == 0 {
		return ErrInvalidParams
	}
	if len(p.Payees) < MinPayees {
		return ErrInvalidParams
	}
	if err := split.ValidateComplete(p.Payees); err != nil {
		return ErrInvalidParams
	}
	return nil
}

func validateLimits(minContribution, maxPerWallet uint64) error {
	if minContribution == 0 || maxPerWallet < minContribution {
		return ErrInvalidParams
	}
	return nil
}

// State is the single global record of a sale.
type State struct {
	Registry         authority.Registry
	Params           Params
	TokenVault       crypto.Address
	TotalContributed uint64
	TotalAllocated   uint64
	ContributorCount uint64
	PayeeReceived    []uint64
	Paused           bool
	SaleComplete     bool
	PoolFinalized    bool
	InitializedAt    uint64
	CompletedAt      uint64
}

// LiquidityWallet is the payee whose share funds the pool.
func (s *State) LiquidityWallet() crypto.Address {
	if len(s.Params.Payees) == 0 {
		return crypto.Address{}
	}
	return s.Params.Payees[0].Payee
}

// Remaining returns the tokens still available under the cap.
func (s *State) Remaining() uint64 {
	if s.TotalAllocated >= s.Params.AllocationCap {
		return 0
	}
	return s.Params.AllocationCap - s.TotalAllocated
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.Registry = s.Registry.Clone()
	out.Params.Payees = append([]split.Weight(nil), s.Params.Payees...)
	out.PayeeReceived = append([]uint64(nil), s.PayeeReceived...)
	return &out
}

// Contributor is created on a wallet's first contribution and never deleted.
type Contributor struct {
	Wallet               crypto.Address
	TotalContributed     uint64
	TotalAllocated       uint64
	ContributionCount    uint64
	FirstContributedAt   uint64
	LastContributionTime uint64
	Distributed          bool
}

// Receipt summarises a committed contribution for the caller.
type Receipt struct {
	Requested uint64
	Accepted  uint64
	Tokens    uint64
	RateUsed  uint64
	NextRate  uint64
	Shares    []split.Share
	Capped    bool
	Completed bool
}
