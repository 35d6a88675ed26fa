package reconciler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// ExportResult references the files written for one run.
type ExportResult struct {
	RunID            string
	EventsPath       string
	ContributorsPath string
	Events           int
	Contributors     int
}

type eventRow struct {
	Seq        int64  `parquet:"name=seq, type=INT64"`
	Digest     string `parquet:"name=digest, type=BYTE_ARRAY, convertedtype=UTF8"`
	Type       string `parquet:"name=type, type=BYTE_ARRAY, convertedtype=UTF8"`
	Body       string `parquet:"name=body, type=BYTE_ARRAY, convertedtype=UTF8"`
	RecordedAt string `parquet:"name=recorded_at, type=BYTE_ARRAY, convertedtype=UTF8"`
}

type contributorRow struct {
	Wallet               string `parquet:"name=wallet, type=BYTE_ARRAY, convertedtype=UTF8"`
	TotalContributed     int64  `parquet:"name=total_contributed, type=INT64"`
	TotalAllocated       int64  `parquet:"name=total_allocated, type=INT64"`
	ContributionCount    int64  `parquet:"name=contribution_count, type=INT64"`
	FirstContributedAt   int64  `parquet:"name=first_contributed_at, type=INT64"`
	LastContributionTime int64  `parquet:"name=last_contribution_time, type=INT64"`
	Distributed          bool   `parquet:"name=distributed, type=BOOLEAN"`
	TakenAt              string `parquet:"name=taken_at, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// Export writes every recorded event and the contributor rows of runID as
// parquet files under <ExportDir>/<runID>/.
func (r *Reconciler) Export(ctx context.Context, runID string) (*ExportResult, error) {
	var stored []LedgerEvent
	if err := r.db.WithContext(ctx).Order("id").Find(&stored).Error; err != nil {
		return nil, fmt.Errorf("reconciler: load events: %w", err)
	}
	var snapshot []ContributorSnapshot
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID).Order("id").Find(&snapshot).Error; err != nil {
		return nil, fmt.Errorf("reconciler: load snapshot: %w", err)
	}

	dir := filepath.Join(r.exportDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("reconciler: create export dir: %w", err)
	}
	result := &ExportResult{
		RunID:            runID,
		EventsPath:       filepath.Join(dir, "events.parquet"),
		ContributorsPath: filepath.Join(dir, "contributors.parquet"),
		Events:           len(stored),
		Contributors:     len(snapshot),
	}

	eventRows := make([]interface{}, 0, len(stored))
	for _, evt := range stored {
		eventRows = append(eventRows, &eventRow{
			Seq:        int64(evt.Seq),
			Digest:     evt.Digest,
			Type:       evt.Type,
			Body:       evt.Body,
			RecordedAt: evt.RecordedAt.UTC().Format(time.RFC3339),
		})
	}
	if err := writeParquet(result.EventsPath, new(eventRow), eventRows); err != nil {
		return nil, err
	}

	contributorRows := make([]interface{}, 0, len(snapshot))
	for _, c := range snapshot {
		contributorRows = append(contributorRows, &contributorRow{
			Wallet:               c.Wallet,
			TotalContributed:     int64(c.TotalContributed),
			TotalAllocated:       int64(c.TotalAllocated),
			ContributionCount:    int64(c.ContributionCount),
			FirstContributedAt:   int64(c.FirstContributedAt),
			LastContributionTime: int64(c.LastContributionTime),
			Distributed:          c.Distributed,
			TakenAt:              c.TakenAt.UTC().Format(time.RFC3339),
		})
	}
	if err := writeParquet(result.ContributorsPath, new(contributorRow), contributorRows); err != nil {
		return nil, err
	}
	r.logger.Info("export written", "run_id", runID, "events", result.Events, "contributors", result.Contributors)
	return result, nil
}

func writeParquet(path string, schema interface{}, rows []interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("reconciler: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, schema, 1)
	if err != nil {
		file.Close()
		return fmt.Errorf("reconciler: parquet schema: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			file.Close()
			return fmt.Errorf("reconciler: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return fmt.Errorf("reconciler: parquet flush: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("reconciler: close parquet file: %w", err)
	}
	return nil
}
