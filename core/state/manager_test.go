package state

import (
	"errors"
	"testing"

	"launchpad/crypto"
	"launchpad/native/dispenser"
	"launchpad/storage"
)

type failingDB struct {
	*storage.MemDB
}

func (f failingDB) Write(*storage.Batch) error { return errors.New("disk full") }

func testAddress(fill byte) crypto.Address {
	var addr crypto.Address
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func TestStagedWritesOnlyLandOnCommit(t *testing.T) {
	db := storage.NewMemDB()
	m := NewManager(db)
	wallet := testAddress(0x01)

	if err := m.SetValueBalance(wallet, 42); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	if got, _ := m.ValueBalance(wallet); got != 42 {
		t.Fatalf("staged read: want 42 got %d", got)
	}
	if db.Len() != 0 {
		t.Fatalf("nothing should reach the database before commit")
	}
	if err := m.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if db.Len() != 1 {
		t.Fatalf("expected one committed key, got %d", db.Len())
	}
	if m.Dirty() {
		t.Fatalf("commit should clear staged writes")
	}

	fresh := NewManager(db)
	if got, _ := fresh.ValueBalance(wallet); got != 42 {
		t.Fatalf("committed read: want 42 got %d", got)
	}
}

func TestDiscardDropsStagedWrites(t *testing.T) {
	db := storage.NewMemDB()
	m := NewManager(db)
	wallet := testAddress(0x02)
	if err := m.SetValueBalance(wallet, 7); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	m.Discard()
	if got, _ := m.ValueBalance(wallet); got != 0 {
		t.Fatalf("discarded write still visible: %d", got)
	}
	if err := m.Commit(); err != nil {
		t.Fatalf("empty commit: %v", err)
	}
	if db.Len() != 0 {
		t.Fatalf("discarded write reached the database")
	}
}

func TestFailedCommitKeepsStagedWrites(t *testing.T) {
	m := NewManager(failingDB{storage.NewMemDB()})
	if err := m.SetValueBalance(testAddress(0x03), 5); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	if err := m.Commit(); err == nil {
		t.Fatalf("expected commit error")
	}
	if !m.Dirty() {
		t.Fatalf("staged writes must survive a failed commit")
	}
}

func TestKVDeleteShadowsStoredValue(t *testing.T) {
	db := storage.NewMemDB()
	m := NewManager(db)
	key := []byte("k")
	if err := m.KVPut(key, uint64(9)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := m.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := m.KVDelete(key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var out uint64
	if ok, err := m.KVGet(key, &out); err != nil || ok {
		t.Fatalf("deleted key visible: ok=%v err=%v", ok, err)
	}
	if err := m.Commit(); err != nil {
		t.Fatalf("commit delete: %v", err)
	}
	if db.Len() != 0 {
		t.Fatalf("delete not committed")
	}
	if _, err := m.KVGet(nil, &out); err == nil {
		t.Fatalf("empty key must be rejected")
	}
}

func TestDistributionIndexIsDeduplicated(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	for _, id := range []string{"a", "b", "a"} {
		if err := m.AppendDispenserDistribution(id); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}
	ids, err := m.DispenserDistributionIDs()
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("unexpected index %v", ids)
	}

	record := &dispenser.Distribution{ContributionID: "a", Recipient: testAddress(0x04), Amount: 10, Status: dispenser.StatusQueued}
	if err := m.PutDispenserDistribution(record); err != nil {
		t.Fatalf("put distribution: %v", err)
	}
	got, ok, err := m.DispenserDistribution("a")
	if err != nil || !ok {
		t.Fatalf("get distribution: ok=%v err=%v", ok, err)
	}
	if got.Amount != 10 || got.Status != dispenser.StatusQueued {
		t.Fatalf("unexpected record %+v", got)
	}
	if _, ok, _ := m.DispenserDistribution("missing"); ok {
		t.Fatalf("missing distribution reported present")
	}
}
