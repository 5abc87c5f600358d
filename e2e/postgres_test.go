package e2e_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
)

var (
	testOnce    sync.Once
	testCleanup func()
	testDSN     string
)

// getSharedPostgresDatabase returns the URL of database "app" on a shared PostgreSQL
// container, reachable as user "u" with password "p".
// The container is reused across all tests for performance.
func getSharedPostgresDatabase(t *testing.T) (dsn string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	testOnce.Do(func() {
		ctx := context.Background()

		pgContainer, err := pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("app"),
			pgcontainer.WithUsername("u"),
			pgcontainer.WithPassword("p"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			t.Fatalf("failed to start postgres container: %v", err)
		}

		testCleanup = func() {
			if err := testcontainers.TerminateContainer(pgContainer); err != nil {
				fmt.Fprintf(os.Stderr, "failed to terminate container: %s\n", err)
			}
		}

		connectionStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			t.Fatalf("failed to get connection string: %v", err)
		}

		testDSN = connectionStr
	})

	if testDSN == "" {
		t.Fatal("postgres container unavailable")
	}

	return testDSN
}
