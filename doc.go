// Package teststand provisions private, migrated databases for test runs.
//
// A Stand is attached to a host as an ignition hook. When the host ignites, the
// stand creates an ephemeral copy of a configured database, applies its
// migrations and rewrites the host configuration so the application under test
// connects to the copy instead of the shared database.
//
// # Key Components
//
//   - Provisioner: capability every database driver adapter implements
//   - Stand: lifecycle orchestrator (derive config, create, migrate, rewrite)
//   - Error: failure taxonomy with pool, migration and configuration kinds
//   - ExtractDatabaseName, RewriteDatabaseName: connection URL utilities
//
// Adapters for PostgreSQL, MySQL and SQLite live under the database package.
//
// # Example Usage
//
//	tree, err := config.Load([]string{"teststand.yaml"}, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	stand := teststand.New("test", "migrations", postgres.New())
//	h, err := host.New(tree).Attach(stand).Ignite(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// databases.test.url now points at a fresh, migrated database
//	url := h.Config().GetString("databases.test.url")
//
// Provisioned databases are never dropped. A failed migration leaves the
// database in place for inspection.
package teststand
