package credstore

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate brings the store's schema up to date.
func (p *Postgres) Migrate() error {
	return Migrate(p.db)
}

// Migrate brings the credentials schema up to date using the embedded
// goose migrations.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("credstore: set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("credstore: run migrations: %w", err)
	}
	return nil
}
