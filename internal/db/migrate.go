package db

import (
	"errors"
	"fmt"

	migrate "github.com/golang-migrate/migrate/v4"
	// Registers the postgres database driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/contractpro/contractpro/internal/config"
	"github.com/contractpro/contractpro/internal/models"
)

// Models lists every persisted type in dependency order.
func Models() []any {
	return []any{
		&models.User{},
		&models.Client{},
		&models.Contract{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.InvoiceReminder{},
	}
}

// Migrate brings the schema up to date. Postgres with MIGRATIONS enabled runs
// the versioned SQL files; everything else uses AutoMigrate.
func Migrate(conn *gorm.DB, cfg *config.Config, log zerolog.Logger) error {
	if cfg.App.Migrations && cfg.Database.Driver != "sqlite" {
		log.Info().Str("dir", cfg.App.MigrationsDir).Msg("running sql migrations")
		if err := RunSQLMigrations(cfg.Database.URL(), cfg.App.MigrationsDir); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		log.Info().Msg("running automigrate")
		if err := AutoMigrate(conn); err != nil {
			return err
		}
	}
	for _, table := range []string{"users", "clients", "contracts", "invoices"} {
		if !conn.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// AutoMigrate creates or alters tables from the model definitions.
func AutoMigrate(conn *gorm.DB) error {
	for _, m := range Models() {
		if err := conn.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

// RunSQLMigrations applies the migrations found in dir to the database at url.
func RunSQLMigrations(url, dir string) error {
	m, err := migrate.New("file://"+dir, url)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
