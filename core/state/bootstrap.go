package state

import (
	"launchpad/crypto"
	"launchpad/native/bootstrap"
)

var (
	bootstrapStateKey       = []byte("bootstrap/state")
	bootstrapContributorKey = []byte("bootstrap/contributor/")
	bootstrapIndexKey       = []byte("bootstrap/contributors")
)

// BootstrapState loads the sale record.
func (m *Manager) BootstrapState() (*bootstrap.State, bool, error) {
	st := new(bootstrap.State)
	ok, err := m.KVGet(bootstrapStateKey, st)
	if err != nil || !ok {
		return nil, false, err
	}
	return st, true, nil
}

// PutBootstrapState stores the sale record.
func (m *Manager) PutBootstrapState(st *bootstrap.State) error {
	return m.KVPut(bootstrapStateKey, st)
}

// BootstrapContributor loads the record for wallet.
func (m *Manager) BootstrapContributor(wallet crypto.Address) (*bootstrap.Contributor, bool, error) {
	record := new(bootstrap.Contributor)
	ok, err := m.KVGet(addressKey(bootstrapContributorKey, wallet), record)
	if err != nil || !ok {
		return nil, false, err
	}
	return record, true, nil
}

// PutBootstrapContributor stores a contributor record.
func (m *Manager) PutBootstrapContributor(record *bootstrap.Contributor) error {
	return m.KVPut(addressKey(bootstrapContributorKey, record.Wallet), record)
}

// AppendBootstrapContributor adds wallet to the contributor index.
func (m *Manager) AppendBootstrapContributor(wallet crypto.Address) error {
	return m.KVAppend(bootstrapIndexKey, wallet[:])
}

// BootstrapContributors lists every indexed wallet.
func (m *Manager) BootstrapContributors() ([]crypto.Address, error) {
	var raw [][]byte
	if err := m.KVGetList(bootstrapIndexKey, &raw); err != nil {
		return nil, err
	}
	out := make([]crypto.Address, 0, len(raw))
	for _, entry := range raw {
		addr, err := crypto.BytesToAddress(entry)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}
