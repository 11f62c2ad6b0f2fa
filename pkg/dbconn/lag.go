package dbconn

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/block/replsafe/pkg/barrier"
	"github.com/siddontang/go-log/loggers"
)

// ReplicaSet is the production barrier.LagSource: one connection pool
// per replica, lag read from SHOW REPLICA STATUS. Replicas keep their
// insertion order, which is also the order the barrier polls them in.
type ReplicaSet struct {
	names  []string
	dbs    map[string]*sql.DB
	logger loggers.Advanced
}

var _ barrier.LagSource = (*ReplicaSet)(nil)

func NewReplicaSet(logger loggers.Advanced) *ReplicaSet {
	return &ReplicaSet{
		dbs:    make(map[string]*sql.DB),
		logger: logger,
	}
}

// Add registers a replica. The name is what shows up in logs and
// timeout errors, typically host:port.
func (r *ReplicaSet) Add(name string, db *sql.DB) {
	if _, found := r.dbs[name]; !found {
		r.names = append(r.names, name)
	}
	r.dbs[name] = db
}

// Replicas returns barrier handles in insertion order.
func (r *ReplicaSet) Replicas() []barrier.Replica {
	replicas := make([]barrier.Replica, 0, len(r.names))
	for _, name := range r.names {
		replicas = append(replicas, barrier.Replica{Name: name})
	}
	return replicas
}

// Lag returns the replica's Seconds_Behind_Source. ok is false when the
// value is NULL (replication not running), the replica is unreachable,
// or the server is not a replica at all; the barrier treats all of
// those as not caught up.
func (r *ReplicaSet) Lag(ctx context.Context, replica barrier.Replica) (int64, bool) {
	db, found := r.dbs[replica.Name]
	if !found {
		r.logger.Errorf("lag requested for unknown replica %q", replica.Name)
		return 0, false
	}
	lag, err := replicaLag(ctx, db)
	if err != nil {
		r.logger.Warnf("could not read lag from replica %s: %v", replica.Name, err)
		return 0, false
	}
	if !lag.Valid {
		return 0, false
	}
	return lag.Int64, true
}

// Close closes all replica connection pools, returning the first error.
func (r *ReplicaSet) Close() error {
	var firstErr error
	for _, name := range r.names {
		if err := r.dbs[name].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// replicaLag scans the first row of SHOW REPLICA STATUS by column name,
// because the column set varies between server versions. Older servers
// call the column Seconds_Behind_Master.
func replicaLag(ctx context.Context, db *sql.DB) (sql.NullInt64, error) {
	rows, err := db.QueryContext(ctx, "SHOW REPLICA STATUS")
	if err != nil {
		return sql.NullInt64{}, err
	}
	defer func() {
		_ = rows.Close()
	}()
	columns, err := rows.Columns()
	if err != nil {
		return sql.NullInt64{}, err
	}
	if !rows.Next() {
		// Empty result set: the server is not configured as a replica.
		return sql.NullInt64{}, rows.Err()
	}
	values := make([]any, len(columns))
	for i := range values {
		values[i] = new(sql.RawBytes)
	}
	if err := rows.Scan(values...); err != nil {
		return sql.NullInt64{}, err
	}
	for i, column := range columns {
		if column != "Seconds_Behind_Source" && column != "Seconds_Behind_Master" {
			continue
		}
		raw := *(values[i].(*sql.RawBytes))
		if raw == nil {
			return sql.NullInt64{}, nil // NULL: replication not running
		}
		lag, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return sql.NullInt64{}, err
		}
		return sql.NullInt64{Int64: lag, Valid: true}, nil
	}
	return sql.NullInt64{}, nil
}
