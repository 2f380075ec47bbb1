package sqlstore

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/buildledger/unitfilter/internal/domain"
	"github.com/buildledger/unitfilter/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to driver ("postgres" or "sqlite") at dsn and migrates the schema
func Open(driver, dsn string, log *logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: sql driver %q", domain.ErrUnsupportedStore, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	logger.OrNop(log).Info("sql store ready", "driver", db.Dialector.Name())
	return db, nil
}

// AutoMigrate creates or updates every table owned by this package
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UnitRecord{},
		&PropertyRecord{},
		&ProductRecord{},
	)
}

func isPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == DriverPostgres
}
