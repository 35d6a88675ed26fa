// Package genesis seeds a fresh ledger: the sale token, the vaults that hold
// it, development balances and the initial sale and dispenser configuration.
package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"launchpad/crypto"
	"launchpad/native/bootstrap"
	"launchpad/native/dispenser"
	"launchpad/native/split"
)

type GenesisSpec struct {
	Token     TokenSpec         `json:"token"`
	Alloc     map[string]string `json:"alloc,omitempty"` // addr -> value balance
	Sale      *SaleSpec         `json:"sale,omitempty"`
	Dispenser *DispenserSpec    `json:"dispenser,omitempty"`

	parsed parsedGenesis
}

type TokenSpec struct {
	Decimals      uint8  `json:"decimals"`
	MintAuthority string `json:"mintAuthority"`
}

type PayeeSpec struct {
	Address string `json:"address"`
	Percent uint64 `json:"percent"`
}

type SaleSpec struct {
	Authority       string      `json:"authority"`
	AllocationCap   string      `json:"allocationCap"`
	StartRate       uint64      `json:"startRate"`
	EndRate         uint64      `json:"endRate"`
	MinContribution string      `json:"minContribution"`
	MaxPerWallet    string      `json:"maxPerWallet"`
	Unit            string      `json:"unit,omitempty"`
	Payees          []PayeeSpec `json:"payees"`
	// PoolTokens is minted into the sale vault to seed the pool at finalization.
	PoolTokens string `json:"poolTokens"`
}

type DispenserSpec struct {
	Authority             string   `json:"authority"`
	Operators             []string `json:"operators,omitempty"`
	MaxSingleDistribution string   `json:"maxSingleDistribution"`
	RateLimitPerWindow    uint64   `json:"rateLimitPerWindow"`
	WindowSeconds         uint64   `json:"windowSeconds"`
	VaultSupply           string   `json:"vaultSupply"`
}

type allocation struct {
	addr   crypto.Address
	amount uint64
}

type parsedGenesis struct {
	mintAuthority crypto.Address
	alloc         []allocation
	saleAuthority crypto.Address
	saleParams    bootstrap.Params
	poolTokens    uint64
	dispAuthority crypto.Address
	operators     []crypto.Address
	limits        dispenser.Limits
	vaultSupply   uint64
}

// LoadGenesisSpec reads and validates the JSON spec at path.
func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := ParseGenesisSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// ParseGenesisSpec decodes and validates a JSON spec.
func ParseGenesisSpec(raw []byte) (*GenesisSpec, error) {
	var spec GenesisSpec
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &spec, nil
}

func (s *GenesisSpec) validate() error {
	var p parsedGenesis
	var err error

	if p.mintAuthority, err = parseAccount(s.Token.MintAuthority); err != nil {
		return fmt.Errorf("token mintAuthority: %w", err)
	}

	addrs := make([]string, 0, len(s.Alloc))
	for addr := range s.Alloc {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	for _, addrStr := range addrs {
		addr, err := parseAccount(addrStr)
		if err != nil {
			return fmt.Errorf("alloc[%q]: %w", addrStr, err)
		}
		amount, err := parseAmountString(s.Alloc[addrStr])
		if err != nil {
			return fmt.Errorf("alloc[%q]: %w", addrStr, err)
		}
		p.alloc = append(p.alloc, allocation{addr: addr, amount: amount})
	}

	if s.Sale != nil {
		if err := s.Sale.parse(&p); err != nil {
			return fmt.Errorf("sale: %w", err)
		}
	}
	if s.Dispenser != nil {
		if err := s.Dispenser.parse(&p); err != nil {
			return fmt.Errorf("dispenser: %w", err)
		}
	}
	s.parsed = p
	return nil
}

func (s *SaleSpec) parse(p *parsedGenesis) error {
	var err error
	if p.saleAuthority, err = parseAccount(s.Authority); err != nil {
		return fmt.Errorf("authority: %w", err)
	}
	params := bootstrap.Params{StartRate: s.StartRate, EndRate: s.EndRate, Unit: bootstrap.DefaultUnit}
	if params.AllocationCap, err = parseAmountString(s.AllocationCap); err != nil {
		return fmt.Errorf("allocationCap: %w", err)
	}
	if params.MinContribution, err = parseAmountString(s.MinContribution); err != nil {
		return fmt.Errorf("minContribution: %w", err)
	}
	if params.MaxPerWallet, err = parseAmountString(s.MaxPerWallet); err != nil {
		return fmt.Errorf("maxPerWallet: %w", err)
	}
	if strings.TrimSpace(s.Unit) != "" {
		if params.Unit, err = parseAmountString(s.Unit); err != nil {
			return fmt.Errorf("unit: %w", err)
		}
	}
	for i, payee := range s.Payees {
		addr, err := parseAccount(payee.Address)
		if err != nil {
			return fmt.Errorf("payees[%d]: %w", i, err)
		}
		params.Payees = append(params.Payees, split.Weight{Payee: addr, Percent: payee.Percent})
	}
	if err := params.Validate(); err != nil {
		return err
	}
	p.saleParams = params
	if p.poolTokens, err = parseAmountString(s.PoolTokens); err != nil {
		return fmt.Errorf("poolTokens: %w", err)
	}
	return nil
}

func (s *DispenserSpec) parse(p *parsedGenesis) error {
	var err error
	if p.dispAuthority, err = parseAccount(s.Authority); err != nil {
		return fmt.Errorf("authority: %w", err)
	}
	for i, op := range s.Operators {
		addr, err := parseAccount(op)
		if err != nil {
			return fmt.Errorf("operators[%d]: %w", i, err)
		}
		p.operators = append(p.operators, addr)
	}
	limits := dispenser.Limits{RateLimitPerWindow: s.RateLimitPerWindow, WindowSeconds: s.WindowSeconds}
	if limits.MaxSingleDistribution, err = parseAmountString(s.MaxSingleDistribution); err != nil {
		return fmt.Errorf("maxSingleDistribution: %w", err)
	}
	if err := limits.Validate(); err != nil {
		return err
	}
	p.limits = limits
	if p.vaultSupply, err = parseAmountString(s.VaultSupply); err != nil {
		return fmt.Errorf("vaultSupply: %w", err)
	}
	return nil
}

func parseAccount(raw string) (crypto.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return crypto.Address{}, fmt.Errorf("address must be provided")
	}
	return crypto.ParseAddress(raw)
}

func parseAmountString(raw string) (uint64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("amount must be provided")
	}
	value, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	return value, nil
}
