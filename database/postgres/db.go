package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// DatabaseExists reports whether the server behind url has a database called name.
// Provisioned databases are never dropped, so this is how callers inspect what a
// run left behind.
func DatabaseExists(ctx context.Context, url, name string) (bool, error) {
	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		return false, fmt.Errorf("connect postgres: %w", err)
	}
	defer func() { _ = conn.Close(ctx) }()

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`
	if err := conn.QueryRow(ctx, query, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("check database exists: %w", err)
	}
	return exists, nil
}

// TableExists reports whether the public schema of the database behind url has a
// table called name.
func TableExists(ctx context.Context, url, name string) (bool, error) {
	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		return false, fmt.Errorf("connect postgres: %w", err)
	}
	defer func() { _ = conn.Close(ctx) }()

	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`
	if err := conn.QueryRow(ctx, query, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("check table exists: %w", err)
	}
	return exists, nil
}
