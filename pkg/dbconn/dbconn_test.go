package dbconn

import (
	"os"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDSN(t *testing.T) {
	config := NewDBConfig()
	config.ConnectTimeout = 2 * time.Second
	config.ReadTimeout = 10 * time.Second
	config.InterpolateParams = true

	dsn, err := newDSN("root:secret@tcp(replica1:3306)/test", config)
	require.NoError(t, err)

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "replica1:3306", cfg.Addr)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.True(t, cfg.InterpolateParams)
}

func TestNewDSNInvalid(t *testing.T) {
	_, err := newDSN("this is not a dsn", NewDBConfig())
	assert.Error(t, err)
}

func TestNewConnection(t *testing.T) {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		t.Skip("skipping test because MYSQL_DSN not set")
	}
	db, err := New(dsn, NewDBConfig())
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()
	var one int
	require.NoError(t, db.QueryRowContext(t.Context(), "SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
}
