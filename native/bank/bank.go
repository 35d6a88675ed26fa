// Package bank is the value rail and token account book used by the sale
// and the dispenser. Every mutation is staged in the caller's state and only
// becomes visible when the surrounding unit of work commits.
package bank

import (
	"fmt"

	coreerrors "launchpad/core/errors"
	"launchpad/crypto"
	nativecommon "launchpad/native/common"
)

var (
	ErrInsufficientBalance = coreerrors.New(coreerrors.KindState, "InsufficientBalance", "bank: insufficient balance")
	ErrAccountNotFound     = coreerrors.New(coreerrors.KindValidation, "InvalidWallet", "bank: token account not found")
	ErrAccountExists       = coreerrors.New(coreerrors.KindState, "InvalidWallet", "bank: token account already exists")
	ErrMintNotFound        = coreerrors.New(coreerrors.KindValidation, "InvalidWallet", "bank: mint not found")
	ErrMintExists          = coreerrors.New(coreerrors.KindState, "InvalidWallet", "bank: mint already exists")
	ErrMintMismatch        = coreerrors.New(coreerrors.KindValidation, "InvalidWallet", "bank: mint mismatch")
	ErrInvalidAddress      = coreerrors.New(coreerrors.KindValidation, "InvalidWallet", "bank: invalid address")
)

// Mint describes a fungible token.
type Mint struct {
	Address   crypto.Address
	Authority crypto.Address
	Decimals  uint8
	Supply    uint64
}

// TokenAccount holds a balance of one mint on behalf of Owner.
type TokenAccount struct {
	Address crypto.Address
	Owner   crypto.Address
	Mint    crypto.Address
	Amount  uint64
}

type bankState interface {
	ValueBalance(addr crypto.Address) (uint64, error)
	SetValueBalance(addr crypto.Address, amount uint64) error
	BankMint(addr crypto.Address) (*Mint, bool, error)
	PutBankMint(m *Mint) error
	TokenAccount(addr crypto.Address) (*TokenAccount, bool, error)
	PutTokenAccount(acct *TokenAccount) error
}

// Ledger applies value and token movements against state.
type Ledger struct {
	state bankState
}

// NewLedger constructs a ledger over state.
func NewLedger(state bankState) *Ledger {
	return &Ledger{state: state}
}

// Balance returns the value balance held by addr.
func (l *Ledger) Balance(addr crypto.Address) (uint64, error) {
	return l.state.ValueBalance(addr)
}

// Credit mints value to addr. Only genesis funding calls it.
func (l *Ledger) Credit(addr crypto.Address, amount uint64) error {
	if addr.IsZero() {
		return ErrInvalidAddress
	}
	balance, err := l.state.ValueBalance(addr)
	if err != nil {
		return err
	}
	next, err := nativecommon.Add(balance, amount)
	if err != nil {
		return err
	}
	return l.state.SetValueBalance(addr, next)
}

// Transfer moves amount of value from one address to another. Either both
// balances change or neither does.
func (l *Ledger) Transfer(from, to crypto.Address, amount uint64) error {
	if from.IsZero() || to.IsZero() {
		return ErrInvalidAddress
	}
	if amount == 0 || from == to {
		return nil
	}
	fromBal, err := l.state.ValueBalance(from)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return ErrInsufficientBalance
	}
	toBal, err := l.state.ValueBalance(to)
	if err != nil {
		return err
	}
	credited, err := nativecommon.Add(toBal, amount)
	if err != nil {
		return err
	}
	if err := l.state.SetValueBalance(from, fromBal-amount); err != nil {
		return err
	}
	return l.state.SetValueBalance(to, credited)
}

// CreateMint registers a new token mint with zero supply.
func (l *Ledger) CreateMint(addr, authority crypto.Address, decimals uint8) (*Mint, error) {
	if addr.IsZero() || authority.IsZero() {
		return nil, ErrInvalidAddress
	}
	_, exists, err := l.state.BankMint(addr)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrMintExists
	}
	m := &Mint{Address: addr, Authority: authority, Decimals: decimals}
	if err := l.state.PutBankMint(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Mint returns the mint stored at addr.
func (l *Ledger) Mint(addr crypto.Address) (*Mint, error) {
	m, ok, err := l.state.BankMint(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMintNotFound
	}
	return m, nil
}

// OpenAccount creates an empty token account for owner.
func (l *Ledger) OpenAccount(addr, owner, mint crypto.Address) (*TokenAccount, error) {
	if addr.IsZero() || owner.IsZero() {
		return nil, ErrInvalidAddress
	}
	if _, err := l.Mint(mint); err != nil {
		return nil, err
	}
	_, exists, err := l.state.TokenAccount(addr)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAccountExists
	}
	acct := &TokenAccount{Address: addr, Owner: owner, Mint: mint}
	if err := l.state.PutTokenAccount(acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// AccountAddress is the derived token account address of owner for mint.
func AccountAddress(owner, mint crypto.Address) crypto.Address {
	return crypto.DeriveAddress("bank/account", owner.Bytes(), mint.Bytes())
}

// EnsureAccount returns the derived account of owner for mint and opens it
// when missing. created reports whether this call opened it.
func (l *Ledger) EnsureAccount(owner, mint crypto.Address) (acct *TokenAccount, created bool, err error) {
	addr := AccountAddress(owner, mint)
	existing, ok, err := l.state.TokenAccount(addr)
	if err != nil {
		return nil, false, err
	}
	if ok {
		if existing.Owner != owner || existing.Mint != mint {
			return nil, false, ErrAccountExists
		}
		return existing, false, nil
	}
	acct, err = l.OpenAccount(addr, owner, mint)
	if err != nil {
		return nil, false, err
	}
	return acct, true, nil
}

// Account returns the token account stored at addr.
func (l *Ledger) Account(addr crypto.Address) (*TokenAccount, error) {
	acct, ok, err := l.state.TokenAccount(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAccountNotFound
	}
	return acct, nil
}

// MintTo increases supply and credits the destination account.
func (l *Ledger) MintTo(mintAddr, account crypto.Address, amount uint64) error {
	m, err := l.Mint(mintAddr)
	if err != nil {
		return err
	}
	acct, err := l.Account(account)
	if err != nil {
		return err
	}
	if acct.Mint != m.Address {
		return ErrMintMismatch
	}
	supply, err := nativecommon.Add(m.Supply, amount)
	if err != nil {
		return err
	}
	balance, err := nativecommon.Add(acct.Amount, amount)
	if err != nil {
		return err
	}
	m.Supply = supply
	acct.Amount = balance
	if err := l.state.PutBankMint(m); err != nil {
		return err
	}
	return l.state.PutTokenAccount(acct)
}

// TransferTokens moves amount between two accounts of the same mint.
func (l *Ledger) TransferTokens(from, to crypto.Address, amount uint64) error {
	src, err := l.Account(from)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	dst, err := l.Account(to)
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	if src.Mint != dst.Mint {
		return ErrMintMismatch
	}
	if amount == 0 || from == to {
		return nil
	}
	if src.Amount < amount {
		return ErrInsufficientBalance
	}
	credited, err := nativecommon.Add(dst.Amount, amount)
	if err != nil {
		return err
	}
	src.Amount -= amount
	dst.Amount = credited
	if err := l.state.PutTokenAccount(src); err != nil {
		return err
	}
	return l.state.PutTokenAccount(dst)
}

// Burn destroys amount from account and reduces the mint supply.
func (l *Ledger) Burn(account crypto.Address, amount uint64) error {
	acct, err := l.Account(account)
	if err != nil {
		return err
	}
	if acct.Amount < amount {
		return ErrInsufficientBalance
	}
	m, err := l.Mint(acct.Mint)
	if err != nil {
		return err
	}
	supply, err := nativecommon.Sub(m.Supply, amount)
	if err != nil {
		return err
	}
	acct.Amount -= amount
	m.Supply = supply
	if err := l.state.PutTokenAccount(acct); err != nil {
		return err
	}
	return l.state.PutBankMint(m)
}
