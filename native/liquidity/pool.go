// Package liquidity seeds a trading pool with the raised funds and locks the
// resulting liquidity position.
package liquidity

import (
	"fmt"

	coreerrors "launchpad/core/errors"
	"launchpad/crypto"
	"launchpad/native/bank"
	nativecommon "launchpad/native/common"
)

var (
	ErrInvalidAmount = coreerrors.New(coreerrors.KindValidation, "InvalidAmount", "liquidity: invalid amount")
	ErrPoolExists    = coreerrors.New(coreerrors.KindState, "PoolExists", "liquidity: pool already exists")
)

// LPDecimals is the precision of liquidity position tokens.
const LPDecimals = 9

// Rail is the subset of the bank a pool needs to move funds.
type Rail interface {
	Transfer(from, to crypto.Address, amount uint64) error
	TransferTokens(from, to crypto.Address, amount uint64) error
	CreateMint(addr, authority crypto.Address, decimals uint8) (*bank.Mint, error)
	OpenAccount(addr, owner, mint crypto.Address) (*bank.TokenAccount, error)
	Account(addr crypto.Address) (*bank.TokenAccount, error)
	MintTo(mint, account crypto.Address, amount uint64) error
	Burn(account crypto.Address, amount uint64) error
}

// Request describes the pair deposited into a new pool. Creator funds the
// value side and receives the liquidity position; TokenSource is a token
// account owned by Creator's module that funds the token side.
type Request struct {
	Creator     crypto.Address
	TokenSource crypto.Address
	TokenAmount uint64
	ValueAmount uint64
	OpenTime    uint64
}

// Receipt reports where the liquidity position was minted and how large it is.
type Receipt struct {
	Pool      crypto.Address
	LPMint    crypto.Address
	LPAccount crypto.Address
	LPBalance uint64
}

// PoolCreator creates a pool and mints the liquidity position to the creator.
type PoolCreator interface {
	CreatePool(rail Rail, req Request) (Receipt, error)
}

// ConstantProductPool is an in-process x*y=k pool. The initial position is
// floor(sqrt(tokens*value)).
type ConstantProductPool struct{}

// CreatePool implements PoolCreator.
func (ConstantProductPool) CreatePool(rail Rail, req Request) (Receipt, error) {
	if req.TokenAmount == 0 || req.ValueAmount == 0 {
		return Receipt{}, ErrInvalidAmount
	}
	source, err := rail.Account(req.TokenSource)
	if err != nil {
		return Receipt{}, fmt.Errorf("token source: %w", err)
	}
	pool := crypto.DeriveAddress("pool", req.Creator[:], source.Mint[:])
	lpMint := crypto.DeriveAddress("pool/lp-mint", pool[:])
	tokenVault := crypto.DeriveAddress("pool/token-vault", pool[:])
	lpAccount := crypto.DeriveAddress("pool/lp-account", pool[:], req.Creator[:])

	if _, err := rail.CreateMint(lpMint, pool, LPDecimals); err != nil {
		if coreerrors.Matches(err, bank.ErrMintExists) {
			return Receipt{}, ErrPoolExists
		}
		return Receipt{}, err
	}
	if _, err := rail.OpenAccount(tokenVault, pool, source.Mint); err != nil {
		return Receipt{}, err
	}
	if err := rail.TransferTokens(req.TokenSource, tokenVault, req.TokenAmount); err != nil {
		return Receipt{}, fmt.Errorf("deposit tokens: %w", err)
	}
	if err := rail.Transfer(req.Creator, pool, req.ValueAmount); err != nil {
		return Receipt{}, fmt.Errorf("deposit value: %w", err)
	}
	minted := nativecommon.SqrtProduct(req.TokenAmount, req.ValueAmount)
	if _, err := rail.OpenAccount(lpAccount, req.Creator, lpMint); err != nil {
		return Receipt{}, err
	}
	if err := rail.MintTo(lpMint, lpAccount, minted); err != nil {
		return Receipt{}, err
	}
	return Receipt{Pool: pool, LPMint: lpMint, LPAccount: lpAccount, LPBalance: minted}, nil
}

// CreateAndBurn creates the pool and then burns exactly the position the
// creation returned. Both steps run against the same rail so they commit or
// abort together.
func CreateAndBurn(rail Rail, creator PoolCreator, req Request) (Receipt, error) {
	if creator == nil {
		return Receipt{}, fmt.Errorf("liquidity: pool creator not configured")
	}
	receipt, err := creator.CreatePool(rail, req)
	if err != nil {
		return Receipt{}, err
	}
	if receipt.LPBalance == 0 {
		return Receipt{}, ErrInvalidAmount
	}
	position, err := rail.Account(receipt.LPAccount)
	if err != nil {
		return Receipt{}, fmt.Errorf("liquidity position: %w", err)
	}
	if position.Mint != receipt.LPMint || position.Amount < receipt.LPBalance {
		return Receipt{}, ErrInvalidAmount
	}
	if err := rail.Burn(receipt.LPAccount, receipt.LPBalance); err != nil {
		return Receipt{}, fmt.Errorf("burn liquidity: %w", err)
	}
	return receipt, nil
}
