package dbconn

import (
	"bytes"
	"testing"

	"github.com/block/replsafe/pkg/barrier"
	"github.com/block/replsafe/pkg/statuslog"
	"github.com/block/replsafe/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *statuslog.Logger {
	return statuslog.New(&statuslog.Config{
		MinLevel: statuslog.LevelDebug,
		Out:      &bytes.Buffer{},
		ErrOut:   &bytes.Buffer{},
	})
}

func TestReplicaSetOrder(t *testing.T) {
	rs := NewReplicaSet(testLogger())
	rs.Add("replica2:3306", nil)
	rs.Add("replica1:3306", nil)
	rs.Add("replica2:3306", nil) // duplicate add keeps original position

	replicas := rs.Replicas()
	require.Len(t, replicas, 2)
	assert.Equal(t, "replica2:3306", replicas[0].Name)
	assert.Equal(t, "replica1:3306", replicas[1].Name)
}

func TestReplicaSetUnknownReplica(t *testing.T) {
	rs := NewReplicaSet(testLogger())
	lag, ok := rs.Lag(t.Context(), barrier.Replica{Name: "nobody"})
	assert.False(t, ok)
	assert.Zero(t, lag)
}

func TestReplicaSetLag(t *testing.T) {
	replicaDSN := testutils.ReplicaDSN()
	if replicaDSN == "" {
		t.Skip("skipping test because REPLICA_DSN not set")
	}
	db, err := New(replicaDSN, NewDBConfig())
	require.NoError(t, err)

	rs := NewReplicaSet(testLogger())
	rs.Add("replica1", db)
	defer func() {
		_ = rs.Close()
	}()

	lag, ok := rs.Lag(t.Context(), barrier.Replica{Name: "replica1"})
	// A healthy test replica should report known, near-zero lag.
	assert.True(t, ok)
	assert.GreaterOrEqual(t, lag, int64(0))
}
