// Package mysql provisions ephemeral MySQL databases with go-sql-driver/mysql
// and applies goose migrations to them.
package mysql
