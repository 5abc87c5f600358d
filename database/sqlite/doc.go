// Package sqlite provisions ephemeral SQLite database files.
//
// A provisioned database is a new file created next to the configured one.
// Migrations are applied with golang-migrate, so migration directories use its
// VERSION_name.up.sql layout rather than goose annotations.
package sqlite
