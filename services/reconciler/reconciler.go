// Package reconciler mirrors committed ledger events and periodic
// contributor snapshots into a SQL database for off-ledger reporting.
package reconciler

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"lukechampine.com/blake3"

	"launchpad/core/events"
	"launchpad/core/runtime"
)

const defaultBacklog = 1024

// Ledger is the runtime surface the reconciler reads from.
type Ledger interface {
	View(ctx context.Context, fn func(*runtime.Engines) error) error
	Subscribe(sub events.Emitter) func()
}

// Config captures the dependencies required to construct a Reconciler.
type Config struct {
	DB        *gorm.DB
	Ledger    Ledger
	ExportDir string
	Backlog   int
	Now       func() time.Time
	Logger    *slog.Logger
}

// Reconciler records ledger events as they commit. Emit never blocks; when
// the backlog is full the event is dropped and counted.
type Reconciler struct {
	db        *gorm.DB
	ledger    Ledger
	exportDir string
	now       func() time.Time
	logger    *slog.Logger

	queue   chan events.Event
	dropped atomic.Uint64
}

// SnapshotResult summarises one snapshot run.
type SnapshotResult struct {
	RunID        string
	TakenAt      time.Time
	Contributors int
}

// New builds a configured reconciler.
func New(cfg Config) (*Reconciler, error) {
	if cfg.DB == nil {
		return nil, errors.New("reconciler: db is required")
	}
	if cfg.Ledger == nil {
		return nil, errors.New("reconciler: ledger is required")
	}
	backlog := cfg.Backlog
	if backlog <= 0 {
		backlog = defaultBacklog
	}
	exportDir := cfg.ExportDir
	if strings.TrimSpace(exportDir) == "" {
		exportDir = filepath.Join("launchpad-data", "exports")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		db:        cfg.DB,
		ledger:    cfg.Ledger,
		exportDir: exportDir,
		now:       now,
		logger:    logger.With("component", "reconciler"),
		queue:     make(chan events.Event, backlog),
	}, nil
}

// Emit implements events.Emitter.
func (r *Reconciler) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	select {
	case r.queue <- evt:
	default:
		r.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded because the backlog was full.
func (r *Reconciler) Dropped() uint64 { return r.dropped.Load() }

// Attach subscribes the reconciler to committed ledger events.
func (r *Reconciler) Attach() func() {
	return r.ledger.Subscribe(r)
}

// Run persists queued events until ctx is cancelled. A positive interval
// also takes a snapshot and writes an export on every tick.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) error {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			r.drain()
			return nil
		case evt := <-r.queue:
			if err := r.Record(ctx, evt); err != nil {
				r.logger.Error("record event failed", "type", evt.EventType(), "error", err)
			}
		case <-tick:
			snap, err := r.Snapshot(ctx)
			if err != nil {
				r.logger.Error("snapshot failed", "error", err)
				continue
			}
			if _, err := r.Export(ctx, snap.RunID); err != nil {
				r.logger.Error("export failed", "run_id", snap.RunID, "error", err)
			}
		}
	}
}

func (r *Reconciler) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case evt := <-r.queue:
			if err := r.Record(ctx, evt); err != nil {
				r.logger.Error("record event failed", "type", evt.EventType(), "error", err)
			}
		default:
			return
		}
	}
}

// Record persists evt unless it was already stored. Committed events are
// keyed by their commit sequence, so equal bodies at different sequences
// are kept apart.
func (r *Reconciler) Record(ctx context.Context, evt events.Event) error {
	inner, seq := events.Unwrap(evt)
	body, err := json.Marshal(inner)
	if err != nil {
		return fmt.Errorf("reconciler: encode %s: %w", inner.EventType(), err)
	}
	row := LedgerEvent{
		Seq:        seq,
		Digest:     eventDigest(seq, inner.EventType(), body),
		Type:       inner.EventType(),
		Body:       string(body),
		RecordedAt: r.now().UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func eventDigest(seq uint64, eventType string, body []byte) string {
	h := blake3.New(32, nil)
	var prefix [8]byte
	binary.BigEndian.PutUint64(prefix[:], seq)
	h.Write(prefix[:])
	h.Write([]byte(eventType))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Snapshot stores the current contributor records under a fresh run id.
func (r *Reconciler) Snapshot(ctx context.Context) (*SnapshotResult, error) {
	takenAt := r.now().UTC()
	result := &SnapshotResult{RunID: uuid.NewString(), TakenAt: takenAt}
	var rows []ContributorSnapshot
	err := r.ledger.View(ctx, func(e *runtime.Engines) error {
		wallets, err := e.Bootstrap.Contributors()
		if err != nil {
			return err
		}
		rows = make([]ContributorSnapshot, 0, len(wallets))
		for _, wallet := range wallets {
			record, err := e.Bootstrap.Contributor(wallet)
			if err != nil {
				return err
			}
			rows = append(rows, ContributorSnapshot{
				RunID:                result.RunID,
				Wallet:               record.Wallet.String(),
				TotalContributed:     record.TotalContributed,
				TotalAllocated:       record.TotalAllocated,
				ContributionCount:    record.ContributionCount,
				FirstContributedAt:   record.FirstContributedAt,
				LastContributionTime: record.LastContributionTime,
				Distributed:          record.Distributed,
				TakenAt:              takenAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reconciler: read contributors: %w", err)
	}
	result.Contributors = len(rows)
	if len(rows) == 0 {
		return result, nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(&rows, 200).Error; err != nil {
		return nil, fmt.Errorf("reconciler: store snapshot: %w", err)
	}
	r.logger.Info("snapshot stored", "run_id", result.RunID, "contributors", result.Contributors)
	return result, nil
}
