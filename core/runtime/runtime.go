// Package runtime serializes ledger operations over a single state manager.
// Each operation either commits in full or leaves no trace, and the events it
// produced are released to subscribers only after the commit.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	coreerrors "launchpad/core/errors"
	"launchpad/core/events"
	"launchpad/core/state"
	"launchpad/native/bank"
	"launchpad/native/bootstrap"
	nativecommon "launchpad/native/common"
	"launchpad/native/curve"
	"launchpad/native/dispenser"
	"launchpad/observability"
	"launchpad/storage"
)

const instrumentationName = "launchpad/core/runtime"

var eventSeqKey = []byte("runtime/event-seq")

// Engines is the set of ledgers an operation may touch.
type Engines struct {
	Bootstrap *bootstrap.Engine
	Dispenser *dispenser.Engine
	Bank      *bank.Ledger
}

// Config wires the runtime dependencies.
type Config struct {
	DB     storage.Database
	Pauses nativecommon.PauseView
	Logger *slog.Logger
	// Now overrides the clock handed to the engines.
	Now func() time.Time
}

// Runtime owns the state manager and executes operations one at a time.
type Runtime struct {
	mu      sync.Mutex
	manager *state.Manager
	engines *Engines
	buffer  *events.Buffer
	feed    *events.Broadcaster
	seq     uint64
	logger  *slog.Logger
	tracer  trace.Tracer
	ops     metric.Int64Counter
}

// New constructs a runtime over db.
func New(cfg Config) (*Runtime, error) {
	if cfg.DB == nil {
		return nil, errors.New("runtime: database required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	unix := func() int64 { return now().Unix() }

	manager := state.NewManager(cfg.DB)
	var seq uint64
	if _, err := manager.KVGet(eventSeqKey, &seq); err != nil {
		return nil, fmt.Errorf("runtime: load event sequence: %w", err)
	}
	ledger := bank.NewLedger(manager)
	buffer := &events.Buffer{}

	boot := bootstrap.NewEngine()
	boot.SetState(manager)
	boot.SetRail(ledger)
	boot.SetPauses(cfg.Pauses)
	boot.SetEmitter(buffer)
	boot.SetNowFunc(unix)

	disp := dispenser.NewEngine()
	disp.SetState(manager)
	disp.SetRail(ledger)
	disp.SetPauses(cfg.Pauses)
	disp.SetEmitter(buffer)
	disp.SetNowFunc(unix)

	ops, err := otel.Meter(instrumentationName).Int64Counter(
		"launchpad.runtime.operations",
		metric.WithDescription("Ledger operations executed by the runtime."),
	)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		manager: manager,
		engines: &Engines{Bootstrap: boot, Dispenser: disp, Bank: ledger},
		buffer:  buffer,
		feed:    events.NewBroadcaster(),
		seq:     seq,
		logger:  logger.With("component", "runtime"),
		tracer:  otel.Tracer(instrumentationName),
		ops:     ops,
	}, nil
}

// Subscribe registers sub for committed events. Subscribers are called while
// the runtime lock is held and must not block or call back into the runtime.
func (r *Runtime) Subscribe(sub events.Emitter) func() {
	return r.feed.Subscribe(sub)
}

// Do executes fn as a single atomic operation named op.
func (r *Runtime) Do(ctx context.Context, op string, fn func(*Engines) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, span := r.tracer.Start(ctx, op, trace.WithAttributes(attribute.String("launchpad.operation", op)))
	defer span.End()

	start := time.Now()
	err := r.apply(fn)
	elapsed := time.Since(start)

	kind := coreerrors.KindOf(err).String()
	code := coreerrors.CodeOf(err)
	observability.Runtime().Observe(op, elapsed, err, kind, code)
	outcome := "success"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("launchpad.error.kind", kind), attribute.String("launchpad.error.code", code))
		if coreerrors.KindOf(err) == coreerrors.KindUnknown {
			r.logger.ErrorContext(ctx, "operation failed", "operation", op, "error", err)
		} else {
			r.logger.InfoContext(ctx, "operation rejected", "operation", op, "kind", kind, "code", code, "error", err)
		}
	} else {
		r.logger.DebugContext(ctx, "operation committed", "operation", op, "duration", elapsed)
		r.publishGauges()
	}
	r.ops.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op), attribute.String("outcome", outcome)))
	return err
}

// View runs a read-only fn under the runtime lock. Any write fn stages is
// dropped.
func (r *Runtime) View(ctx context.Context, fn func(*Engines) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.manager.Discard()
	return fn(r.engines)
}

func (r *Runtime) apply(fn func(*Engines) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.rollback()
			panic(p)
		}
	}()
	if err := fn(r.engines); err != nil {
		r.rollback()
		return err
	}
	next := r.seq + uint64(r.buffer.Len())
	if next != r.seq {
		if err := r.manager.KVPut(eventSeqKey, next); err != nil {
			r.rollback()
			return err
		}
	}
	if err := r.manager.Commit(); err != nil {
		r.rollback()
		return err
	}
	metrics := observability.Runtime()
	r.buffer.Flush(events.EmitterFunc(func(e events.Event) {
		r.seq++
		metrics.RecordEvent(e.EventType())
		r.feed.Emit(events.Committed{Seq: r.seq, Event: e})
	}))
	return nil
}

func (r *Runtime) rollback() {
	r.manager.Discard()
	r.buffer.Discard()
}

func (r *Runtime) publishGauges() {
	if st, err := r.engines.Bootstrap.State(); err == nil {
		progress, _ := curve.Progress(st.TotalAllocated, st.Params.AllocationCap)
		rate, _ := r.engines.Bootstrap.CurrentRate()
		observability.Sale().Record(observability.SaleSnapshot{
			TotalContributed: st.TotalContributed,
			TotalAllocated:   st.TotalAllocated,
			ContributorCount: st.ContributorCount,
			ProgressPercent:  progress,
			CurrentRate:      rate,
			Complete:         st.SaleComplete,
			Paused:           st.Paused,
		})
	}
	if st, err := r.engines.Dispenser.State(); err == nil {
		observability.Queue().Record(st.TotalQueued, st.TotalDistributed, st.TotalCancelled, st.Window.Count, st.Paused)
	}
}
