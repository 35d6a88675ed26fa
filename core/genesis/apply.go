package genesis

import (
	"fmt"

	"launchpad/core/runtime"
	"launchpad/crypto"
)

// Well-known addresses created by Apply.
var (
	MintAddress           = crypto.DeriveAddress("genesis/mint")
	SaleVaultAddress      = crypto.DeriveAddress("genesis/sale-vault")
	DispenserVaultAddress = crypto.DeriveAddress("genesis/dispenser-vault")
)

// Apply seeds a fresh ledger from spec. It must run inside a single runtime
// operation so a failure leaves nothing behind.
func Apply(spec *GenesisSpec, e *runtime.Engines) error {
	if spec == nil {
		return fmt.Errorf("genesis spec must not be nil")
	}
	p := spec.parsed

	// 1) Token
	if _, err := e.Bank.CreateMint(MintAddress, p.mintAuthority, spec.Token.Decimals); err != nil {
		return fmt.Errorf("create mint: %w", err)
	}

	// 2) Value allocations (sorted at validation)
	for _, a := range p.alloc {
		if err := e.Bank.Credit(a.addr, a.amount); err != nil {
			return fmt.Errorf("alloc[%s]: %w", a.addr, err)
		}
	}

	// 3) Sale
	if spec.Sale != nil {
		if _, err := e.Bank.OpenAccount(SaleVaultAddress, p.saleAuthority, MintAddress); err != nil {
			return fmt.Errorf("sale vault: %w", err)
		}
		if p.poolTokens > 0 {
			if err := e.Bank.MintTo(MintAddress, SaleVaultAddress, p.poolTokens); err != nil {
				return fmt.Errorf("sale vault supply: %w", err)
			}
		}
		if err := e.Bootstrap.Initialize(p.saleAuthority, p.saleParams, SaleVaultAddress); err != nil {
			return fmt.Errorf("initialize sale: %w", err)
		}
	}

	// 4) Dispenser
	if spec.Dispenser != nil {
		if _, err := e.Bank.OpenAccount(DispenserVaultAddress, p.dispAuthority, MintAddress); err != nil {
			return fmt.Errorf("dispenser vault: %w", err)
		}
		if p.vaultSupply > 0 {
			if err := e.Bank.MintTo(MintAddress, DispenserVaultAddress, p.vaultSupply); err != nil {
				return fmt.Errorf("dispenser vault supply: %w", err)
			}
		}
		if err := e.Dispenser.Initialize(p.dispAuthority, MintAddress, DispenserVaultAddress, p.limits); err != nil {
			return fmt.Errorf("initialize dispenser: %w", err)
		}
		for _, op := range p.operators {
			if err := e.Dispenser.AddOperator(p.dispAuthority, op); err != nil {
				return fmt.Errorf("operator %s: %w", op, err)
			}
		}
	}
	return nil
}
