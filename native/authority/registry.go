// Package authority implements a two-step authority handover and a bounded
// operator set that always contains the authority.
package authority

import (
	coreerrors "launchpad/core/errors"
	"launchpad/crypto"
)

// MaxOperators bounds the operator set.
const MaxOperators = 10

var (
	ErrUnauthorized          = coreerrors.New(coreerrors.KindAuthorization, "Unauthorized", "authority: unauthorized")
	ErrNoPendingTransfer     = coreerrors.New(coreerrors.KindState, "NoPendingTransfer", "authority: no pending transfer")
	ErrInvalidIdentity       = coreerrors.New(coreerrors.KindValidation, "InvalidWallet", "authority: invalid identity")
	ErrCannotRemoveAuthority = coreerrors.New(coreerrors.KindValidation, "CannotRemoveAuthority", "authority: cannot remove current authority")
	ErrOperatorLimit         = coreerrors.New(coreerrors.KindCapacity, "OperatorLimit", "authority: operator set is full")
)

// TransferState is the position of the handover state machine.
type TransferState uint8

const (
	Stable TransferState = iota
	TransferProposed
)

func (s TransferState) String() string {
	if s == TransferProposed {
		return "transfer_proposed"
	}
	return "stable"
}

// Registry is persisted inside the owning module's state. Operators is left
// empty by modules that only need the handover.
type Registry struct {
	Authority crypto.Address
	Pending   *crypto.Address `rlp:"nil"`
	Operators []crypto.Address
}

// New returns a registry owned by authority. When withOperators is set the
// authority seeds the operator set.
func New(authority crypto.Address, withOperators bool) (Registry, error) {
	if authority.IsZero() {
		return Registry{}, ErrInvalidIdentity
	}
	reg := Registry{Authority: authority}
	if withOperators {
		reg.Operators = []crypto.Address{authority}
	}
	return reg, nil
}

// State reports whether a handover is in flight.
func (r *Registry) State() TransferState {
	if r.Pending != nil {
		return TransferProposed
	}
	return Stable
}

// PendingAuthority returns the proposed identity, if any.
func (r *Registry) PendingAuthority() (crypto.Address, bool) {
	if r.Pending == nil {
		return crypto.Address{}, false
	}
	return *r.Pending, true
}

func (r *Registry) IsAuthority(addr crypto.Address) bool {
	return !addr.IsZero() && addr == r.Authority
}

func (r *Registry) IsOperator(addr crypto.Address) bool {
	return r.indexOf(addr) >= 0
}

// RequireAuthority fails unless caller is the current authority.
func (r *Registry) RequireAuthority(caller crypto.Address) error {
	if !r.IsAuthority(caller) {
		return ErrUnauthorized
	}
	return nil
}

// RequireOperator fails unless caller belongs to the operator set.
func (r *Registry) RequireOperator(caller crypto.Address) error {
	if !r.IsOperator(caller) {
		return ErrUnauthorized
	}
	return nil
}

func (r *Registry) indexOf(addr crypto.Address) int {
	if addr.IsZero() {
		return -1
	}
	for i, op := range r.Operators {
		if op == addr {
			return i
		}
	}
	return -1
}

// Propose records next as the pending authority. A newer proposal replaces
// an older one.
func (r *Registry) Propose(caller, next crypto.Address) error {
	if err := r.RequireAuthority(caller); err != nil {
		return err
	}
	if next.IsZero() {
		return ErrInvalidIdentity
	}
	proposed := next
	r.Pending = &proposed
	return nil
}

// Accept completes the handover. Only the pending identity may call it. The
// previous authority's operator slot passes to the new authority.
func (r *Registry) Accept(caller crypto.Address) (crypto.Address, error) {
	if r.Pending == nil {
		return crypto.Address{}, ErrNoPendingTransfer
	}
	if caller.IsZero() || caller != *r.Pending {
		return crypto.Address{}, ErrUnauthorized
	}
	previous := r.Authority
	r.Authority = caller
	r.Pending = nil

	if idx := r.indexOf(previous); idx >= 0 {
		if r.indexOf(caller) >= 0 {
			r.Operators = append(r.Operators[:idx], r.Operators[idx+1:]...)
		} else {
			r.Operators[idx] = caller
		}
	}
	return previous, nil
}

// Cancel withdraws the pending proposal and returns the withdrawn identity.
func (r *Registry) Cancel(caller crypto.Address) (crypto.Address, error) {
	if err := r.RequireAuthority(caller); err != nil {
		return crypto.Address{}, err
	}
	if r.Pending == nil {
		return crypto.Address{}, ErrNoPendingTransfer
	}
	withdrawn := *r.Pending
	r.Pending = nil
	return withdrawn, nil
}

// AddOperator inserts op. Any operator may add. Adding an existing member
// is a no-op reported by the false return; a full set is rejected.
func (r *Registry) AddOperator(caller, op crypto.Address) (bool, error) {
	if err := r.RequireOperator(caller); err != nil {
		return false, err
	}
	if op.IsZero() {
		return false, ErrInvalidIdentity
	}
	if r.indexOf(op) >= 0 {
		return false, nil
	}
	if len(r.Operators) >= MaxOperators {
		return false, ErrOperatorLimit
	}
	r.Operators = append(r.Operators, op)
	return true, nil
}

// RemoveOperator drops op from the set. The authority can never be removed.
func (r *Registry) RemoveOperator(caller, op crypto.Address) (bool, error) {
	if err := r.RequireOperator(caller); err != nil {
		return false, err
	}
	if op == r.Authority {
		return false, ErrCannotRemoveAuthority
	}
	idx := r.indexOf(op)
	if idx < 0 {
		return false, nil
	}
	r.Operators = append(r.Operators[:idx], r.Operators[idx+1:]...)
	return true, nil
}

// Clone returns a deep copy.
func (r Registry) Clone() Registry {
	out := Registry{Authority: r.Authority}
	if r.Pending != nil {
		pending := *r.Pending
		out.Pending = &pending
	}
	if r.Operators != nil {
		out.Operators = append([]crypto.Address(nil), r.Operators...)
	}
	return out
}
