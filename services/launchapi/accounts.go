package launchapi

import (
	"errors"
	"net/http"

	coreerrors "launchpad/core/errors"
	"launchpad/core/runtime"
	"launchpad/crypto"
	"launchpad/native/bank"
)

var errAccountNotFound = coreerrors.New(coreerrors.KindValidation, "InvalidWallet", "token account not found")

type accountView struct {
	Address crypto.Address `json:"address"`
	Owner   crypto.Address `json:"owner"`
	Mint    crypto.Address `json:"mint"`
	Amount  uint64         `json:"amount"`
	Created bool           `json:"created,omitempty"`
}

func newAccountView(acct *bank.TokenAccount, created bool) accountView {
	return accountView{Address: acct.Address, Owner: acct.Owner, Mint: acct.Mint, Amount: acct.Amount, Created: created}
}

// openAccount opens the caller's token account for the dispenser mint. It is
// idempotent: a second call returns the existing account.
func (s *Server) openAccount(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, "bank.open_account", func(caller crypto.Address, e *runtime.Engines) (interface{}, error) {
		st, err := e.Dispenser.State()
		if err != nil {
			return nil, err
		}
		acct, created, err := e.Bank.EnsureAccount(caller, st.Mint)
		if err != nil {
			return nil, err
		}
		return newAccountView(acct, created), nil
	})
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	owner, err := pathAddress(r, "owner")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.view(w, r, func(e *runtime.Engines) (interface{}, error) {
		st, err := e.Dispenser.State()
		if err != nil {
			return nil, err
		}
		acct, err := e.Bank.Account(bank.AccountAddress(owner, st.Mint))
		if errors.Is(err, bank.ErrAccountNotFound) {
			return nil, errAccountNotFound
		}
		if err != nil {
			return nil, err
		}
		return newAccountView(acct, false), nil
	})
}
