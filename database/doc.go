// Package database selects a provisioner for a database driver.
//
// # Supported Drivers
//
//   - postgres: pgx connection pool, goose migrations
//   - mysql: go-sql-driver/mysql, goose migrations
//   - sqlite: modernc.org/sqlite, golang-migrate migrations
//
// # Usage
//
//	p, err := database.New("postgres", logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	stand := teststand.New("test", "migrations", p)
//
// Passing an empty driver returns a provisioner that infers the driver from the
// url of each configured database.
//
// # Subpackages
//
//   - database/postgres: PostgreSQL provisioner
//   - database/mysql: MySQL provisioner
//   - database/sqlite: SQLite provisioner
package database
