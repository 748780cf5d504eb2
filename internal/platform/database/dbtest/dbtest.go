// Package dbtest starts a throwaway PostgreSQL container for store tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/p-n-ai/mathboard/internal/platform/database"
)

// NewPool starts postgres, applies the schema and returns a pool. The test is
// skipped in short mode. Everything is torn down when the test ends.
func NewPool(t testing.TB) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("mathboard"),
		postgres.WithUsername("mathboard"),
		postgres.WithPassword("mathboard"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("terminating postgres container: %v", err)
		}
	})

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}

	db, err := database.New(ctx, url, database.WithMaxConns(5), database.WithMinConns(1))
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(db.Close)

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return db.Pool
}

// InsertAssignment adds a bare assignment row so rows that reference it can be written.
func InsertAssignment(t testing.TB, pool *pgxpool.Pool, id string) {
	t.Helper()
	if _, err := pool.Exec(context.Background(),
		`INSERT INTO assignments (id, title) VALUES ($1, $2)`, id, "Assignment "+id,
	); err != nil {
		t.Fatalf("inserting assignment %s: %v", id, err)
	}
}
