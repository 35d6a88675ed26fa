package reconciler

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// LedgerEvent is one committed ledger event. Digest is the blake3 hash of
// the commit sequence, event type and body and deduplicates replays.
type LedgerEvent struct {
	ID         uint      `gorm:"primaryKey"`
	Seq        uint64    `gorm:"index"`
	Digest     string    `gorm:"size:64;uniqueIndex"`
	Type       string    `gorm:"index"`
	Body       string    `gorm:"type:text"`
	RecordedAt time.Time `gorm:"index"`
}

// ContributorSnapshot captures a contributor record at snapshot time.
type ContributorSnapshot struct {
	ID                   uint   `gorm:"primaryKey"`
	RunID                string `gorm:"size:36;index"`
	Wallet               string `gorm:"index"`
	TotalContributed     uint64
	TotalAllocated       uint64
	ContributionCount    uint64
	FirstContributedAt   uint64
	LastContributionTime uint64
	Distributed          bool
	TakenAt              time.Time `gorm:"index"`
}

// AutoMigrate creates or updates the reconciler tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&LedgerEvent{}, &ContributorSnapshot{})
}

// Open connects to the configured database and migrates it.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("reconciler: unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("reconciler: open %s: %w", driver, err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("reconciler: migrate: %w", err)
	}
	return db, nil
}
