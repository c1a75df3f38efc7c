package testutil

import (
	"context"
	"fmt"
	"keiba-etl/internal/store"
	"keiba-etl/lib/telemetry"
	"testing"

	"github.com/jmoiron/sqlx"
)

// SetupStore opens a fresh in-memory sqlite store with the schema applied.
func SetupStore(t testing.TB, name string) *sqlx.DB {
	cleanup := telemetry.SetupForTesting(fmt.Sprintf("test:%s", name))
	t.Cleanup(cleanup)

	db, err := store.Open(context.Background(), store.Config{
		Driver: store.DriverSqlite,
		File:   ":memory:",
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	err = store.ApplySchema(context.Background(), db)
	if err != nil {
		t.Fatal(err)
	}
	return db
}
