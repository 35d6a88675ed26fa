package dispenser_test

import (
	"errors"
	"strings"
	"testing"

	coreerrors "launchpad/core/errors"
	"launchpad/core/events"
	"launchpad/core/state"
	"launchpad/crypto"
	"launchpad/native/authority"
	"launchpad/native/bank"
	nativecommon "launchpad/native/common"
	"launchpad/native/dispenser"
	"launchpad/storage"
)

type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(e events.Event) {
	c.events = append(c.events, e)
}

func newTestAddress(fill byte) crypto.Address {
	var addr crypto.Address
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

var (
	authorityAddr = newTestAddress(0xA1)
	operatorAddr  = newTestAddress(0xA2)
	mintAddr      = newTestAddress(0xC1)
	vaultAddr     = newTestAddress(0xC2)
	recipientAddr = newTestAddress(0x01)
	recipientAcct = newTestAddress(0x11)
	strangerAddr  = newTestAddress(0x02)
	strangerAcct  = newTestAddress(0x12)
)

type harness struct {
	t       *testing.T
	engine  *dispenser.Engine
	manager *state.Manager
	ledger  *bank.Ledger
	emitter *capturingEmitter
	clock   int64
}

func newHarness(t *testing.T, limits dispenser.Limits) *harness {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(func() { db.Close() })
	manager := state.NewManager(db)
	ledger := bank.NewLedger(manager)
	h := &harness{t: t, manager: manager, ledger: ledger, emitter: &capturingEmitter{}, clock: 10_000}

	setup := func() error {
		if _, err := ledger.CreateMint(mintAddr, authorityAddr, 9); err != nil {
			return err
		}
		if _, err := ledger.OpenAccount(vaultAddr, authorityAddr, mintAddr); err != nil {
			return err
		}
		if _, err := ledger.OpenAccount(recipientAcct, recipientAddr, mintAddr); err != nil {
			return err
		}
		if _, err := ledger.OpenAccount(strangerAcct, strangerAddr, mintAddr); err != nil {
			return err
		}
		return ledger.MintTo(mintAddr, vaultAddr, 1_000_000)
	}
	if err := h.apply(setup); err != nil {
		t.Fatalf("setup bank: %v", err)
	}

	h.engine = dispenser.NewEngine()
	h.engine.SetState(manager)
	h.engine.SetRail(ledger)
	h.engine.SetEmitter(h.emitter)
	h.engine.SetNowFunc(func() int64 { return h.clock })
	if err := h.apply(func() error { return h.engine.Initialize(authorityAddr, mintAddr, vaultAddr, limits) }); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return h
}

func defaultLimits() dispenser.Limits {
	return dispenser.Limits{MaxSingleDistribution: 1_000, RateLimitPerWindow: 100, WindowSeconds: 60}
}

func (h *harness) apply(fn func() error) error {
	if err := fn(); err != nil {
		h.manager.Discard()
		return err
	}
	return h.manager.Commit()
}

func (h *harness) enqueue(caller crypto.Address, id string, recipient crypto.Address, amount uint64) error {
	return h.apply(func() error {
		_, err := h.engine.Enqueue(caller, id, recipient, amount)
		return err
	})
}

func (h *harness) execute(caller crypto.Address, id string, destination crypto.Address) error {
	return h.apply(func() error {
		_, err := h.engine.Execute(caller, id, destination)
		return err
	})
}

func (h *harness) cancel(caller crypto.Address, id string) error {
	return h.apply(func() error {
		_, err := h.engine.Cancel(caller, id)
		return err
	})
}

func (h *harness) status(id string) dispenser.Status {
	h.t.Helper()
	record, err := h.engine.Distribution(id)
	if err != nil {
		h.t.Fatalf("distribution %s: %v", id, err)
	}
	return record.Status
}

func TestEnqueueRejectsZeroAmount(t *testing.T) {
	h := newHarness(t, defaultLimits())
	err := h.enqueue(authorityAddr, "c-1", recipientAddr, 0)
	if !errors.Is(err, dispenser.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if coreerrors.KindOf(err) != coreerrors.KindValidation {
		t.Fatalf("expected validation kind, got %s", coreerrors.KindOf(err))
	}
}

func TestExecuteRejectsForeignDestination(t *testing.T) {
	h := newHarness(t, defaultLimits())
	if err := h.enqueue(authorityAddr, "c-1", recipientAddr, 5); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	err := h.execute(authorityAddr, "c-1", strangerAcct)
	if !errors.Is(err, dispenser.ErrRecipientMismatch) {
		t.Fatalf("expected ErrRecipientMismatch, got %v", err)
	}
	if coreerrors.KindOf(err) != coreerrors.KindAuthorization {
		t.Fatalf("expected authorization kind, got %s", coreerrors.KindOf(err))
	}
	if got := h.status("c-1"); got != dispenser.StatusQueued {
		t.Fatalf("expected record to remain queued, got %s", got)
	}
	acct, _ := h.ledger.Account(strangerAcct)
	if acct.Amount != 0 {
		t.Fatalf("expected no tokens to move, stranger holds %d", acct.Amount)
	}
}

func TestExecuteRateLimit(t *testing.T) {
	limits := defaultLimits()
	limits.RateLimitPerWindow = 2
	h := newHarness(t, limits)
	for _, id := range []string{"c-1", "c-2", "c-3"} {
		if err := h.enqueue(authorityAddr, id, recipientAddr, 10); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}
	if err := h.execute(authorityAddr, "c-1", recipientAcct); err != nil {
		t.Fatalf("first execute: %v", err)
	}
	h.clock += 10
	if err := h.execute(authorityAddr, "c-2", recipientAcct); err != nil {
		t.Fatalf("second execute: %v", err)
	}
	h.clock += 10
	err := h.execute(authorityAddr, "c-3", recipientAcct)
	if !errors.Is(err, nativecommon.ErrWindowExceeded) {
		t.Fatalf("expected ErrWindowExceeded, got %v", err)
	}
	if coreerrors.KindOf(err) != coreerrors.KindCapacity {
		t.Fatalf("expected capacity kind, got %s", coreerrors.KindOf(err))
	}
	if got := h.status("c-3"); got != dispenser.StatusQueued {
		t.Fatalf("expected rate limited record to stay queued, got %s", got)
	}

	h.clock += 60
	if err := h.execute(authorityAddr, "c-3", recipientAcct); err != nil {
		t.Fatalf("expected window rollover to admit: %v", err)
	}
	acct, _ := h.ledger.Account(recipientAcct)
	if acct.Amount != 30 {
		t.Fatalf("expected recipient to hold 30, got %d", acct.Amount)
	}
	st, _ := h.engine.State()
	if st.TotalDistributed != 30 || st.TotalQueued != 30 {
		t.Fatalf("unexpected totals: %+v", st)
	}
}

func TestEnqueueRejectsDuplicateID(t *testing.T) {
	h := newHarness(t, defaultLimits())
	if err := h.enqueue(authorityAddr, "c-1", recipientAddr, 5); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := h.enqueue(authorityAddr, "c-1", strangerAddr, 7); !errors.Is(err, dispenser.ErrDuplicateContribution) {
		t.Fatalf("expected ErrDuplicateContribution, got %v", err)
	}
	record, _ := h.engine.Distribution("c-1")
	if record.Recipient != recipientAddr || record.Amount != 5 {
		t.Fatalf("original record must be untouched: %+v", record)
	}
	st, _ := h.engine.State()
	if st.TotalQueued != 5 {
		t.Fatalf("expected queued total of 5, got %d", st.TotalQueued)
	}
}

func TestEnqueueNormalizesContributionID(t *testing.T) {
	h := newHarness(t, defaultLimits())
	composed := "caf\u00e9-1"
	decomposed := "cafe\u0301-1"
	if err := h.enqueue(authorityAddr, composed, recipientAddr, 5); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := h.enqueue(authorityAddr, decomposed, recipientAddr, 5); !errors.Is(err, dispenser.ErrDuplicateContribution) {
		t.Fatalf("expected canonically equal id to collide, got %v", err)
	}
	record, err := h.engine.Distribution(decomposed)
	if err != nil {
		t.Fatalf("lookup by decomposed id: %v", err)
	}
	if record.ContributionID != composed {
		t.Fatalf("expected stored id in NFC form, got %q", record.ContributionID)
	}
}

func TestEnqueueValidatesContributionID(t *testing.T) {
	h := newHarness(t, defaultLimits())
	if err := h.enqueue(authorityAddr, "  ", recipientAddr, 5); !errors.Is(err, dispenser.ErrInvalidContributionID) {
		t.Fatalf("expected ErrInvalidContributionID, got %v", err)
	}
	long := strings.Repeat("x", dispenser.MaxContributionIDLength+1)
	if err := h.enqueue(authorityAddr, long, recipientAddr, 5); !errors.Is(err, dispenser.ErrInvalidContributionID) {
		t.Fatalf("expected ErrInvalidContributionID, got %v", err)
	}
	if err := h.enqueue(authorityAddr, "c-1", crypto.Address{}, 5); !errors.Is(err, dispenser.ErrInvalidRecipient) {
		t.Fatalf("expected ErrInvalidRecipient, got %v", err)
	}
}

func TestTerminalStatesStayTerminal(t *testing.T) {
	h := newHarness(t, defaultLimits())
	for _, id := range []string{"done", "dropped"} {
		if err := h.enqueue(authorityAddr, id, recipientAddr, 10); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}
	if err := h.execute(authorityAddr, "done", recipientAcct); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if err := h.cancel(authorityAddr, "dropped"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if err := h.execute(authorityAddr, "done", recipientAcct); !errors.Is(err, dispenser.ErrAlreadyDistributed) {
		t.Fatalf("expected ErrAlreadyDistributed, got %v", err)
	}
	if err := h.cancel(authorityAddr, "done"); !errors.Is(err, dispenser.ErrNotQueued) {
		t.Fatalf("expected ErrNotQueued, got %v", err)
	}
	if err := h.execute(authorityAddr, "dropped", recipientAcct); !errors.Is(err, dispenser.ErrNotQueued) {
		t.Fatalf("expected ErrNotQueued, got %v", err)
	}
	if err := h.cancel(authorityAddr, "dropped"); !errors.Is(err, dispenser.ErrNotQueued) {
		t.Fatalf("expected ErrNotQueued, got %v", err)
	}
	if h.status("done") != dispenser.StatusDistributed || h.status("dropped") != dispenser.StatusCancelled {
		t.Fatalf("terminal statuses changed")
	}

	st, _ := h.engine.State()
	if st.TotalQueued != 10 || st.TotalCancelled != 10 || st.TotalDistributed != 10 {
		t.Fatalf("unexpected totals: %+v", st)
	}
	ids, err := h.engine.DistributionIDs()
	if err != nil || len(ids) != 2 || ids[0] != "done" {
		t.Fatalf("unexpected index %v (%v)", ids, err)
	}
}

func TestExecuteCeilingAndMint(t *testing.T) {
	limits := defaultLimits()
	limits.MaxSingleDistribution = 50
	h := newHarness(t, limits)
	if err := h.enqueue(authorityAddr, "big", recipientAddr, 51); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := h.execute(authorityAddr, "big", recipientAcct); !errors.Is(err, dispenser.ErrAmountAboveCeiling) {
		t.Fatalf("expected ErrAmountAboveCeiling, got %v", err)
	}

	otherMint := newTestAddress(0xD1)
	otherAcct := newTestAddress(0xD2)
	if err := h.apply(func() error {
		if _, err := h.ledger.CreateMint(otherMint, authorityAddr, 0); err != nil {
			return err
		}
		_, err := h.ledger.OpenAccount(otherAcct, recipientAddr, otherMint)
		return err
	}); err != nil {
		t.Fatalf("setup other mint: %v", err)
	}
	if err := h.enqueue(authorityAddr, "small", recipientAddr, 5); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := h.execute(authorityAddr, "small", otherAcct); !errors.Is(err, dispenser.ErrMintMismatch) {
		t.Fatalf("expected ErrMintMismatch, got %v", err)
	}
}

func TestPauseIsAsymmetric(t *testing.T) {
	h := newHarness(t, defaultLimits())
	if err := h.apply(func() error { return h.engine.AddOperator(authorityAddr, operatorAddr) }); err != nil {
		t.Fatalf("add operator: %v", err)
	}
	if err := h.enqueue(operatorAddr, "c-1", recipientAddr, 5); err != nil {
		t.Fatalf("operator enqueue: %v", err)
	}
	if err := h.apply(func() error { return h.engine.EmergencyPause(operatorAddr) }); err != nil {
		t.Fatalf("operator pause: %v", err)
	}
	if err := h.execute(authorityAddr, "c-1", recipientAcct); !errors.Is(err, dispenser.ErrPaused) {
		t.Fatalf("expected ErrPaused, got %v", err)
	}
	if err := h.apply(func() error { return h.engine.Unpause(operatorAddr) }); !errors.Is(err, dispenser.ErrUnauthorized) {
		t.Fatalf("expected operator unpause to fail, got %v", err)
	}
	if err := h.apply(func() error { return h.engine.Unpause(authorityAddr) }); err != nil {
		t.Fatalf("authority unpause: %v", err)
	}
	if err := h.execute(operatorAddr, "c-1", recipientAcct); err != nil {
		t.Fatalf("execute after unpause: %v", err)
	}
	if err := h.apply(func() error { return h.engine.EmergencyPause(strangerAddr) }); !errors.Is(err, dispenser.ErrUnauthorized) {
		t.Fatalf("expected stranger pause to fail, got %v", err)
	}
}

func TestModulePauseSwitch(t *testing.T) {
	h := newHarness(t, defaultLimits())
	if err := h.enqueue(authorityAddr, "c-1", recipientAddr, 5); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	h.engine.SetPauses(nativecommon.StaticPauses{"dispenser": true})
	if err := h.execute(authorityAddr, "c-1", recipientAcct); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
}

func TestOperatorManagementAndHandover(t *testing.T) {
	h := newHarness(t, defaultLimits())
	if err := h.enqueue(strangerAddr, "c-1", recipientAddr, 5); !errors.Is(err, dispenser.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := h.apply(func() error { return h.engine.AddOperator(authorityAddr, operatorAddr) }); err != nil {
		t.Fatalf("add operator: %v", err)
	}
	if err := h.apply(func() error { return h.engine.RemoveOperator(operatorAddr, authorityAddr) }); !errors.Is(err, authority.ErrCannotRemoveAuthority) {
		t.Fatalf("expected ErrCannotRemoveAuthority, got %v", err)
	}

	next := newTestAddress(0xA3)
	if err := h.apply(func() error { return h.engine.ProposeAuthority(authorityAddr, next) }); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := h.apply(func() error { return h.engine.AcceptAuthority(next) }); err != nil {
		t.Fatalf("accept: %v", err)
	}
	st, _ := h.engine.State()
	if st.Registry.Authority != next || st.Registry.IsOperator(authorityAddr) || !st.Registry.IsOperator(next) {
		t.Fatalf("unexpected registry after handover: %+v", st.Registry)
	}
	if len(st.Registry.Operators) != 2 {
		t.Fatalf("expected operator count to be preserved, got %d", len(st.Registry.Operators))
	}
	if err := h.apply(func() error { return h.engine.Unpause(authorityAddr) }); !errors.Is(err, dispenser.ErrUnauthorized) {
		t.Fatalf("expected old authority to lose rights, got %v", err)
	}
	if err := h.apply(func() error { return h.engine.RemoveOperator(next, operatorAddr) }); err != nil {
		t.Fatalf("remove operator: %v", err)
	}
	if err := h.enqueue(operatorAddr, "c-2", recipientAddr, 5); !errors.Is(err, dispenser.ErrUnauthorized) {
		t.Fatalf("expected removed operator to be rejected, got %v", err)
	}
}

func TestCancelMovesTotals(t *testing.T) {
	h := newHarness(t, defaultLimits())
	if err := h.enqueue(authorityAddr, "c-1", recipientAddr, 40); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := h.enqueue(authorityAddr, "c-2", recipientAddr, 60); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := h.cancel(authorityAddr, "c-2"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	st, _ := h.engine.State()
	if st.TotalQueued != 40 || st.TotalCancelled != 60 {
		t.Fatalf("unexpected totals after cancel: %+v", st)
	}
	var cancelled int
	for _, e := range h.emitter.events {
		if e.EventType() == events.TypeDistributionCancelled {
			cancelled++
		}
	}
	if cancelled != 1 {
		t.Fatalf("expected one cancellation event, got %d", cancelled)
	}
}

func TestLimitsValidation(t *testing.T) {
	h := newHarness(t, defaultLimits())
	bad := dispenser.Limits{MaxSingleDistribution: 1, RateLimitPerWindow: 0, WindowSeconds: 1}
	if err := h.apply(func() error { return h.engine.UpdateLimits(authorityAddr, bad) }); !errors.Is(err, dispenser.ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}
	good := dispenser.Limits{MaxSingleDistribution: 5, RateLimitPerWindow: 1, WindowSeconds: 30}
	if err := h.apply(func() error { return h.engine.UpdateLimits(authorityAddr, good) }); err != nil {
		t.Fatalf("update limits: %v", err)
	}
	st, _ := h.engine.State()
	if st.Limits != good {
		t.Fatalf("limits not applied: %+v", st.Limits)
	}
}
