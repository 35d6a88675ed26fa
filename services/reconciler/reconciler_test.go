package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"launchpad/core/events"
	"launchpad/core/runtime"
	"launchpad/crypto"
	"launchpad/native/bootstrap"
	"launchpad/storage"
)

func newTestAddress(fill byte) crypto.Address {
	var addr crypto.Address
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

var (
	authorityAddr = newTestAddress(0xA1)
	liquidityAddr = newTestAddress(0xB1)
	treasuryAddr  = newTestAddress(0xB2)
	stakingAddr   = newTestAddress(0xB3)
	aliceAddr     = newTestAddress(0x01)
	bobAddr       = newTestAddress(0x02)
)

func setup(t *testing.T) (*runtime.Runtime, *Reconciler) {
	t.Helper()
	mem := storage.NewMemDB()
	t.Cleanup(func() { mem.Close() })
	rt, err := runtime.New(runtime.Config{DB: mem, Now: func() time.Time { return time.Unix(1_700_000_000, 0) }})
	require.NoError(t, err)

	params := bootstrap.Params{
		AllocationCap:   100,
		StartRate:       10,
		EndRate:         40,
		MinContribution: 1,
		MaxPerWallet:    1_000,
		Unit:            1,
		Payees:          bootstrap.DefaultSplit(liquidityAddr, treasuryAddr, stakingAddr),
	}
	require.NoError(t, rt.Do(context.Background(), "test.setup", func(e *runtime.Engines) error {
		if err := e.Bootstrap.Initialize(authorityAddr, params, crypto.Address{}); err != nil {
			return err
		}
		if err := e.Bank.Credit(aliceAddr, 100); err != nil {
			return err
		}
		return e.Bank.Credit(bobAddr, 100)
	}))

	dir := t.TempDir()
	db, err := Open(DriverSQLite, filepath.Join(dir, "recon.db"))
	require.NoError(t, err)
	rec, err := New(Config{DB: db, Ledger: rt, ExportDir: filepath.Join(dir, "exports")})
	require.NoError(t, err)
	return rt, rec
}

func contribute(t *testing.T, rt *runtime.Runtime, wallet crypto.Address, amount uint64) {
	t.Helper()
	require.NoError(t, rt.Do(context.Background(), "bootstrap.contribute", func(e *runtime.Engines) error {
		_, err := e.Bootstrap.Contribute(wallet, amount)
		return err
	}))
}

func countEvents(t *testing.T, rec *Reconciler) int64 {
	t.Helper()
	var n int64
	require.NoError(t, rec.db.Model(&LedgerEvent{}).Count(&n).Error)
	return n
}

func TestRunRecordsCommittedEvents(t *testing.T) {
	rt, rec := setup(t)

	unsubscribe := rec.Attach()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx, 0) }()

	contribute(t, rt, aliceAddr, 1)
	require.Eventually(t, func() bool {
		return countEvents(t, rec) == 1
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	var stored LedgerEvent
	require.NoError(t, rec.db.Order("id").First(&stored).Error)
	require.Equal(t, events.TypeContributionAccepted, stored.Type)
	require.NotZero(t, stored.Seq)
	require.Len(t, stored.Digest, 64)
	require.Zero(t, rec.Dropped())
}

func TestRecordDeduplicatesByDigest(t *testing.T) {
	_, rec := setup(t)
	ctx := context.Background()

	evt := events.BootstrapPaused{By: authorityAddr}
	require.NoError(t, rec.Record(ctx, evt))
	require.NoError(t, rec.Record(ctx, evt))
	require.Equal(t, int64(1), countEvents(t, rec))

	require.NoError(t, rec.Record(ctx, events.BootstrapUnpaused{By: authorityAddr}))
	require.Equal(t, int64(2), countEvents(t, rec))
}

func TestRecordKeepsEqualBodiesAtDistinctSequences(t *testing.T) {
	_, rec := setup(t)
	ctx := context.Background()

	pause := events.DispenserPaused{By: authorityAddr, Timestamp: 7}
	require.NoError(t, rec.Record(ctx, events.Committed{Seq: 4, Event: pause}))
	require.NoError(t, rec.Record(ctx, events.Committed{Seq: 5, Event: pause}))
	require.NoError(t, rec.Record(ctx, events.Committed{Seq: 4, Event: pause}))
	require.Equal(t, int64(2), countEvents(t, rec))

	var stored []LedgerEvent
	require.NoError(t, rec.db.Order("seq").Find(&stored).Error)
	require.Equal(t, uint64(4), stored[0].Seq)
	require.Equal(t, uint64(5), stored[1].Seq)
	require.Equal(t, stored[0].Body, stored[1].Body)
	require.NotEqual(t, stored[0].Digest, stored[1].Digest)
}

func TestEmitDropsWhenBacklogFull(t *testing.T) {
	_, rec := setup(t)
	rec.queue = make(chan events.Event, 1)

	rec.Emit(events.BootstrapPaused{By: authorityAddr})
	rec.Emit(events.BootstrapUnpaused{By: authorityAddr})
	rec.Emit(nil)
	require.Equal(t, uint64(1), rec.Dropped())
}

func TestSnapshotAndExport(t *testing.T) {
	rt, rec := setup(t)
	ctx := context.Background()
	contribute(t, rt, aliceAddr, 2)
	contribute(t, rt, bobAddr, 3)
	contribute(t, rt, aliceAddr, 1)
	require.NoError(t, rec.Record(ctx, events.BootstrapPaused{By: authorityAddr}))

	snap, err := rec.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, snap.Contributors)

	var rows []ContributorSnapshot
	require.NoError(t, rec.db.Where("run_id = ?", snap.RunID).Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	require.Equal(t, aliceAddr.String(), rows[0].Wallet)
	require.Equal(t, uint64(3), rows[0].TotalContributed)
	require.Equal(t, uint64(2), rows[0].ContributionCount)
	require.Equal(t, bobAddr.String(), rows[1].Wallet)

	result, err := rec.Export(ctx, snap.RunID)
	require.NoError(t, err)
	require.Equal(t, 1, result.Events)
	require.Equal(t, 2, result.Contributors)
	for _, path := range []string{result.EventsPath, result.ContributorsPath} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Positive(t, info.Size())
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "dsn")
	require.Error(t, err)
}
