package postgres

import (
	"database/sql"
	stderrors "errors"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nickita-khylkouski/ultrathink/internal/config"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/logging"
	"github.com/nickita-khylkouski/ultrathink/pkg/errors"
)

// Migrate applies all pending schema migrations from cfg.MigrationPath.
// Already-applied migrations are skipped; a dirty database state fails.
func Migrate(cfg config.DatabaseConfig, log logging.Logger) error {
	db, err := sql.Open("pgx", DSN(cfg))
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError,
			"failed to open migration connection")
	}
	defer db.Close()

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError,
			"failed to init migration driver")
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://"+cfg.MigrationPath, cfg.DBName, driver)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError,
			"failed to init migrator")
	}

	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, errors.CodeDatabaseError,
			"migration failed")
	}

	version, dirty, _ := m.Version()
	log.Info("migrations applied",
		logging.Uint("version", uint(version)),
		logging.Bool("dirty", dirty),
	)
	return nil
}
