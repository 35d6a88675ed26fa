package state

import (
	"launchpad/crypto"
	"launchpad/native/bank"
)

var (
	valueBalancePrefix = []byte("bank/value/")
	bankMintPrefix     = []byte("bank/mint/")
	tokenAccountPrefix = []byte("bank/account/")
)

func addressKey(prefix []byte, addr crypto.Address) []byte {
	buf := make([]byte, len(prefix)+crypto.AddressLength)
	copy(buf, prefix)
	copy(buf[len(prefix):], addr[:])
	return buf
}

// ValueBalance returns the value held by addr, zero when never funded.
func (m *Manager) ValueBalance(addr crypto.Address) (uint64, error) {
	var balance uint64
	if _, err := m.KVGet(addressKey(valueBalancePrefix, addr), &balance); err != nil {
		return 0, err
	}
	return balance, nil
}

// SetValueBalance overwrites the value held by addr.
func (m *Manager) SetValueBalance(addr crypto.Address, amount uint64) error {
	return m.KVPut(addressKey(valueBalancePrefix, addr), amount)
}

// BankMint loads a token mint.
func (m *Manager) BankMint(addr crypto.Address) (*bank.Mint, bool, error) {
	mint := new(bank.Mint)
	ok, err := m.KVGet(addressKey(bankMintPrefix, addr), mint)
	if err != nil || !ok {
		return nil, false, err
	}
	return mint, true, nil
}

// PutBankMint stores a token mint.
func (m *Manager) PutBankMint(mint *bank.Mint) error {
	return m.KVPut(addressKey(bankMintPrefix, mint.Address), mint)
}

// TokenAccount loads a token account.
func (m *Manager) TokenAccount(addr crypto.Address) (*bank.TokenAccount, bool, error) {
	acct := new(bank.TokenAccount)
	ok, err := m.KVGet(addressKey(tokenAccountPrefix, addr), acct)
	if err != nil || !ok {
		return nil, false, err
	}
	return acct, true, nil
}

// PutTokenAccount stores a token account.
func (m *Manager) PutTokenAccount(acct *bank.TokenAccount) error {
	return m.KVPut(addressKey(tokenAccountPrefix, acct.Address), acct)
}
