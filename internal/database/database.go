package database

import (
	"context"
	"fmt"
	"time"

	"wiki-quiz/internal/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	_ "github.com/sijms/go-ora/v2"  // Oracle driver
	"go.uber.org/zap"
)

const (
	DriverSQLite = "sqlite3"
	DriverOracle = "oracle"
)

func init() {
	// go-ora takes positional :1, :2 placeholders.
	sqlx.BindDriver(DriverOracle, sqlx.NAMED)
}

// Connect opens and pings the configured database.
func Connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*sqlx.DB, error) {
	driver := cfg.DB.Driver
	if driver != DriverSQLite && driver != DriverOracle {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if driver == DriverSQLite {
		// One writer at a time; busy_timeout in the DSN covers short waits.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}

	logger.Info("Connected to database", zap.String("driver", driver))
	return db, nil
}
