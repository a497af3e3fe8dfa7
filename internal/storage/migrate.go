package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/apigovern/gatekeeper/domain"
)

//go:embed ddl/*.sql
var ddlFS embed.FS

// Migrate creates the AM_API_MINHASH table and its supporting objects for
// the given dialect. Supported dialects: sqlite3, mysql, postgres.
func Migrate(ctx context.Context, db *sql.DB, dialect string) error {
	script, err := ddlFS.ReadFile(fmt.Sprintf("ddl/%s.sql", dialect))
	if err != nil {
		return domain.NewConfigError(fmt.Sprintf("unsupported database dialect: %s", dialect), err)
	}
	if _, err := db.ExecContext(ctx, string(script)); err != nil {
		return domain.NewStorageError(fmt.Sprintf("failed to run %s migration", dialect), err)
	}
	return nil
}
