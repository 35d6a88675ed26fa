package launchapi

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"launchpad/crypto"
	"launchpad/native/bootstrap"
	"launchpad/native/curve"
	"launchpad/native/dispenser"
)

// amount accepts base units as a JSON number or a decimal string.
type amount uint64

func (a *amount) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(b)), `"`)
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %s", string(b))
	}
	*a = amount(v)
	return nil
}

// displayUnits renders base units as whole units, e.g. 1500000000 with a
// unit of 1e9 becomes "1.5".
func displayUnits(v, unit uint64) string {
	if unit <= 1 {
		return strconv.FormatUint(v, 10)
	}
	value := decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
	divisor := decimal.NewFromBigInt(new(big.Int).SetUint64(unit), 0)
	return value.Div(divisor).String()
}

type payeeView struct {
	Address  crypto.Address `json:"address"`
	Percent  uint64         `json:"percent"`
	Received uint64         `json:"received"`
}

type saleView struct {
	Authority        crypto.Address  `json:"authority"`
	PendingAuthority *crypto.Address `json:"pending_authority,omitempty"`
	AllocationCap    uint64          `json:"allocation_cap"`
	StartRate        uint64          `json:"start_rate"`
	EndRate          uint64          `json:"end_rate"`
	MinContribution  uint64          `json:"min_contribution"`
	MaxPerWallet     uint64          `json:"max_per_wallet"`
	Unit             uint64          `json:"unit"`
	Payees           []payeeView     `json:"payees"`
	TokenVault       crypto.Address  `json:"token_vault"`
	TotalContributed uint64          `json:"total_contributed"`
	ContributedUnits string          `json:"total_contributed_units"`
	TotalAllocated   uint64          `json:"total_allocated"`
	Remaining        uint64          `json:"remaining"`
	ContributorCount uint64          `json:"contributor_count"`
	CurrentRate      uint64          `json:"current_rate"`
	ProgressPercent  uint64          `json:"progress_percent"`
	Paused           bool            `json:"paused"`
	SaleComplete     bool            `json:"sale_complete"`
	PoolFinalized    bool            `json:"pool_finalized"`
	InitializedAt    uint64          `json:"initialized_at"`
	CompletedAt      uint64          `json:"completed_at,omitempty"`
}

func newSaleView(st *bootstrap.State, rate uint64) saleView {
	payees := make([]payeeView, len(st.Params.Payees))
	for i, p := range st.Params.Payees {
		payees[i] = payeeView{Address: p.Payee, Percent: p.Percent}
		if i < len(st.PayeeReceived) {
			payees[i].Received = st.PayeeReceived[i]
		}
	}
	progress, _ := curve.Progress(st.TotalAllocated, st.Params.AllocationCap)
	view := saleView{
		Authority:        st.Registry.Authority,
		AllocationCap:    st.Params.AllocationCap,
		StartRate:        st.Params.StartRate,
		EndRate:          st.Params.EndRate,
		MinContribution:  st.Params.MinContribution,
		MaxPerWallet:     st.Params.MaxPerWallet,
		Unit:             st.Params.Unit,
		Payees:           payees,
		TokenVault:       st.TokenVault,
		TotalContributed: st.TotalContributed,
		ContributedUnits: displayUnits(st.TotalContributed, st.Params.Unit),
		TotalAllocated:   st.TotalAllocated,
		Remaining:        st.Remaining(),
		ContributorCount: st.ContributorCount,
		CurrentRate:      rate,
		ProgressPercent:  progress,
		Paused:           st.Paused,
		SaleComplete:     st.SaleComplete,
		PoolFinalized:    st.PoolFinalized,
		InitializedAt:    st.InitializedAt,
		CompletedAt:      st.CompletedAt,
	}
	if pending, ok := st.Registry.PendingAuthority(); ok {
		view.PendingAuthority = &pending
	}
	return view
}

type contributorView struct {
	Wallet               crypto.Address `json:"wallet"`
	TotalContributed     uint64         `json:"total_contributed"`
	ContributedUnits     string         `json:"total_contributed_units"`
	TotalAllocated       uint64         `json:"total_allocated"`
	ContributionCount    uint64         `json:"contribution_count"`
	FirstContributedAt   uint64         `json:"first_contributed_at"`
	LastContributionTime uint64         `json:"last_contribution_time"`
	Distributed          bool           `json:"distributed"`
}

func newContributorView(c *bootstrap.Contributor, unit uint64) contributorView {
	return contributorView{
		Wallet:               c.Wallet,
		TotalContributed:     c.TotalContributed,
		ContributedUnits:     displayUnits(c.TotalContributed, unit),
		TotalAllocated:       c.TotalAllocated,
		ContributionCount:    c.ContributionCount,
		FirstContributedAt:   c.FirstContributedAt,
		LastContributionTime: c.LastContributionTime,
		Distributed:          c.Distributed,
	}
}

type shareView struct {
	Payee  crypto.Address `json:"payee"`
	Amount uint64         `json:"amount"`
}

type receiptView struct {
	Requested     uint64      `json:"requested"`
	Accepted      uint64      `json:"accepted"`
	AcceptedUnits string      `json:"accepted_units"`
	Tokens        uint64      `json:"tokens"`
	RateUsed      uint64      `json:"rate_used"`
	NextRate      uint64      `json:"next_rate"`
	Shares        []shareView `json:"shares"`
	Capped        bool        `json:"capped"`
	Completed     bool        `json:"completed"`
}

func newReceiptView(r *bootstrap.Receipt, unit uint64) receiptView {
	shares := make([]shareView, len(r.Shares))
	for i, s := range r.Shares {
		shares[i] = shareView{Payee: s.Payee, Amount: s.Amount}
	}
	return receiptView{
		Requested:     r.Requested,
		Accepted:      r.Accepted,
		AcceptedUnits: displayUnits(r.Accepted, unit),
		Tokens:        r.Tokens,
		RateUsed:      r.RateUsed,
		NextRate:      r.NextRate,
		Shares:        shares,
		Capped:        r.Capped,
		Completed:     r.Completed,
	}
}

type distributionView struct {
	ContributionID string          `json:"contribution_id"`
	Recipient      crypto.Address  `json:"recipient"`
	Amount         uint64          `json:"amount"`
	Status         string          `json:"status"`
	QueuedBy       crypto.Address  `json:"queued_by"`
	QueuedAt       uint64          `json:"queued_at"`
	DistributedAt  uint64          `json:"distributed_at,omitempty"`
	CancelledAt    uint64          `json:"cancelled_at,omitempty"`
	Destination    *crypto.Address `json:"destination,omitempty"`
}

func newDistributionView(d *dispenser.Distribution) distributionView {
	view := distributionView{
		ContributionID: d.ContributionID,
		Recipient:      d.Recipient,
		Amount:         d.Amount,
		Status:         d.Status.String(),
		QueuedBy:       d.QueuedBy,
		QueuedAt:       d.QueuedAt,
		DistributedAt:  d.DistributedAt,
		CancelledAt:    d.CancelledAt,
	}
	if !d.Destination.IsZero() {
		dest := d.Destination
		view.Destination = &dest
	}
	return view
}

type dispenserView struct {
	Authority             crypto.Address   `json:"authority"`
	PendingAuthority      *crypto.Address  `json:"pending_authority,omitempty"`
	Operators             []crypto.Address `json:"operators"`
	Mint                  crypto.Address   `json:"mint"`
	Vault                 crypto.Address   `json:"vault"`
	MaxSingleDistribution uint64           `json:"max_single_distribution"`
	RateLimitPerWindow    uint64           `json:"rate_limit_per_window"`
	WindowSeconds         uint64           `json:"window_seconds"`
	WindowStart           uint64           `json:"window_start"`
	WindowCount           uint64           `json:"window_count"`
	Paused                bool             `json:"paused"`
	TotalQueued           uint64           `json:"total_queued"`
	TotalDistributed      uint64           `json:"total_distributed"`
	TotalCancelled        uint64           `json:"total_cancelled"`
}

func newDispenserView(st *dispenser.State) dispenserView {
	view := dispenserView{
		Authority:             st.Registry.Authority,
		Operators:             append([]crypto.Address(nil), st.Registry.Operators...),
		Mint:                  st.Mint,
		Vault:                 st.Vault,
		MaxSingleDistribution: st.Limits.MaxSingleDistribution,
		RateLimitPerWindow:    st.Limits.RateLimitPerWindow,
		WindowSeconds:         st.Limits.WindowSeconds,
		WindowStart:           st.Window.Start,
		WindowCount:           st.Window.Count,
		Paused:                st.Paused,
		TotalQueued:           st.TotalQueued,
		TotalDistributed:      st.TotalDistributed,
		TotalCancelled:        st.TotalCancelled,
	}
	if pending, ok := st.Registry.PendingAuthority(); ok {
		view.PendingAuthority = &pending
	}
	return view
}
