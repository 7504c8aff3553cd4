package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vytor/estimatic/internal/db"
)

// NewTestDB creates an in-memory SQLite database with all migrations applied.
// The single-connection pool keeps the in-memory database alive for the
// duration of the test.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.Open(":memory:")
	require.NoError(t, err)

	t.Cleanup(func() {
		database.Close()
	})
	return database
}
