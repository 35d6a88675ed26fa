package state

import "launchpad/native/dispenser"

var (
	dispenserStateKey        = []byte("dispenser/state")
	dispenserDistributionKey = []byte("dispenser/distribution/")
	dispenserIndexKey        = []byte("dispenser/distributions")
)

func distributionKey(id string) []byte {
	buf := make([]byte, len(dispenserDistributionKey)+len(id))
	copy(buf, dispenserDistributionKey)
	copy(buf[len(dispenserDistributionKey):], id)
	return buf
}

// DispenserState loads the dispenser record.
func (m *Manager) DispenserState() (*dispenser.State, bool, error) {
	st := new(dispenser.State)
	ok, err := m.KVGet(dispenserStateKey, st)
	if err != nil || !ok {
		return nil, false, err
	}
	return st, true, nil
}

// PutDispenserState stores the dispenser record.
func (m *Manager) PutDispenserState(st *dispenser.State) error {
	return m.KVPut(dispenserStateKey, st)
}

// DispenserDistribution loads the distribution keyed by id.
func (m *Manager) DispenserDistribution(id string) (*dispenser.Distribution, bool, error) {
	record := new(dispenser.Distribution)
	ok, err := m.KVGet(distributionKey(id), record)
	if err != nil || !ok {
		return nil, false, err
	}
	return record, true, nil
}

// PutDispenserDistribution stores a distribution record.
func (m *Manager) PutDispenserDistribution(record *dispenser.Distribution) error {
	return m.KVPut(distributionKey(record.ContributionID), record)
}

// AppendDispenserDistribution adds id to the distribution index.
func (m *Manager) AppendDispenserDistribution(id string) error {
	return m.KVAppend(dispenserIndexKey, []byte(id))
}

// DispenserDistributionIDs lists every indexed contribution id.
func (m *Manager) DispenserDistributionIDs() ([]string, error) {
	var raw [][]byte
	if err := m.KVGetList(dispenserIndexKey, &raw); err != nil {
		return nil, err
	}
	out := make([]string, len(raw))
	for i, entry := range raw {
		out[i] = string(entry)
	}
	return out, nil
}
