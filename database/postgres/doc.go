// Package postgres provisions ephemeral PostgreSQL databases.
//
// CreateDatabase issues CREATE DATABASE through a one-connection pgx pool opened on
// the configured URL. MigrateDatabase opens a pool sized from the scoped
// configuration on the new database and applies goose migrations through
// pgx's database/sql adapter.
package postgres
