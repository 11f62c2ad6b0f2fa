// Package testutils contains some common utilities used exclusively
// by the test suite.
package testutils

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

// DSN returns the primary DSN for integration tests.
func DSN() string {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		return "replsafe:replsafe@tcp(127.0.0.1:3306)/test"
	}
	return dsn
}

// ReplicaDSN returns the replica DSN for integration tests, or "" when
// no replica is available; callers should t.Skip in that case.
func ReplicaDSN() string {
	return os.Getenv("REPLICA_DSN")
}

// RunSQL executes a statement against the primary.
func RunSQL(t *testing.T, stmt string) {
	t.Helper()
	db, err := sql.Open("mysql", DSN())
	assert.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()
	_, err = db.ExecContext(t.Context(), stmt)
	assert.NoError(t, err)
}
