package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations
var migrationFS embed.FS

// oracleObjectExists is ORA-00955: name is already used by an existing object.
const oracleObjectExists = "ORA-00955"

// RunMigrations applies every pending up migration for driver.
func RunMigrations(db *sql.DB, driver string, logger *zap.Logger) error {
	switch driver {
	case DriverSQLite:
		return migrateSQLite(db, logger)
	case DriverOracle:
		return migrateOracle(db, logger)
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}
}

func migrateSQLite(db *sql.DB, logger *zap.Logger) error {
	src, err := iofs.New(migrationFS, "migrations/sqlite")
	if err != nil {
		return fmt.Errorf("could not open sqlite migrations: %w", err)
	}

	target, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("could not create sqlite migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, DriverSQLite, target)
	if err != nil {
		return fmt.Errorf("could not create migrator: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("Database schema is up to date")
			return nil
		}
		return fmt.Errorf("could not apply migrations: %w", err)
	}

	version, _, _ := m.Version()
	logger.Info("Migrations completed successfully", zap.Uint("version", version))
	return nil
}

// migrateOracle executes each up file in name order. go-ora runs one
// statement per Exec, so every file holds exactly one statement.
func migrateOracle(db *sql.DB, logger *zap.Logger) error {
	const dir = "migrations/oracle"

	entries, err := fs.ReadDir(migrationFS, dir)
	if err != nil {
		return fmt.Errorf("could not read migrations directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := fs.ReadFile(migrationFS, dir+"/"+name)
		if err != nil {
			return fmt.Errorf("could not read migration file %s: %w", name, err)
		}

		stmt := strings.TrimSuffix(strings.TrimSpace(string(content)), ";")
		if _, err := db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), oracleObjectExists) {
				logger.Info("Migration already applied", zap.String("file", name))
				continue
			}
			return fmt.Errorf("could not execute migration %s: %w", name, err)
		}
		logger.Info("Executed migration", zap.String("file", name))
	}

	logger.Info("Migrations completed successfully")
	return nil
}
