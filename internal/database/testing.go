package database

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDatabaseURLEnv names the variable that enables the Postgres tests.
const TestDatabaseURLEnv = "TEST_DATABASE_URL"

var (
	sharedPool     *pgxpool.Pool
	sharedPoolOnce sync.Once
	sharedPoolErr  error
)

// TestPool returns a migrated pool shared by every test in the binary.
// The test is skipped when TEST_DATABASE_URL is unset.
func TestPool(t testing.TB) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv(TestDatabaseURLEnv)
	if dbURL == "" {
		t.Skip(TestDatabaseURLEnv + " not set, skipping integration test")
	}

	sharedPoolOnce.Do(func() {
		ctx := context.Background()
		sharedPool, sharedPoolErr = Connect(ctx, dbURL)
		if sharedPoolErr != nil {
			return
		}
		sharedPoolErr = RunMigrations(ctx, sharedPool)
	})
	if sharedPoolErr != nil {
		t.Fatalf("failed to set up test database: %v", sharedPoolErr)
	}
	return sharedPool
}

// TestTx returns a transaction on the shared pool that is rolled back when
// the test ends. Repository tests use it to run in parallel without cleanup:
//
//	shifts := repository.NewShiftRepository(database.TestTx(t))
func TestTx(t testing.TB) Querier {
	t.Helper()

	tx, err := TestPool(t).Begin(context.Background())
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})
	return tx
}

// ResetTables empties every ledger table and restarts the id sequences.
// Tests that go through the ledger's own transactions call it instead of
// TestTx, and must not run in parallel with each other.
func ResetTables(t testing.TB, db Querier) {
	t.Helper()

	stmt := "TRUNCATE TABLE " + strings.Join(LedgerTables, ", ") + " RESTART IDENTITY CASCADE"
	if _, err := db.Exec(context.Background(), stmt); err != nil {
		t.Fatalf("failed to reset tables: %v", err)
	}
}
