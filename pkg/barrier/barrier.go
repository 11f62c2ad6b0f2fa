// Package barrier blocks a batch job until all replicas have applied
// enough of the primary's writes to be within an acceptable lag.
package barrier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/block/replsafe/pkg/waitspec"
	"github.com/siddontang/go-log/loggers"
	"github.com/sirupsen/logrus"
)

// timeUnit is the scale of the spec's second-denominated fields.
// Tests shrink it so the barrier can be exercised without real sleeps.
var timeUnit = time.Second

// Replica identifies one read replica. The barrier never inspects it
// beyond passing it to the LagSource, so the name only has to be
// meaningful to the LagSource and to whoever reads the logs.
type Replica struct {
	Name string
}

// LagSource reports the current replication lag of a replica in seconds.
// ok is false when the lag is currently unknown (e.g. replication
// stopped, or the replica is unreachable); the barrier treats unknown
// as not caught up.
type LagSource interface {
	Lag(ctx context.Context, replica Replica) (seconds int64, ok bool)
}

// Progress describes one poll of a replica that has not yet caught up.
// It is for user-facing status only; the barrier makes no decisions
// based on it.
type Progress struct {
	Fraction     float64       // replicas already passed / total replicas
	Elapsed      time.Duration // since Wait began
	Remaining    time.Duration // until the timeout fires
	ETA          time.Time     // when the timeout fires
	ReplicaIndex int
	FirstPoll    bool // first notification for this replica, for "waiting" vs "still waiting" messaging
}

// ProgressSink receives Progress notifications.
type ProgressSink interface {
	Report(p Progress)
}

// ReplicaTimeoutError is returned when the timeout fires with
// continue=no. It names the first replica that had not yet caught up;
// replicas after it may not have been checked at all.
type ReplicaTimeoutError struct {
	Index int
	Name  string
	Limit time.Duration
}

func (e *ReplicaTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for replica %q (index %d) to catch up", e.Limit, e.Name, e.Index)
}

// Config holds the required collaborators for a Barrier. Spec, Replicas
// and LagSource are required; Progress and Logger are optional.
type Config struct {
	Spec      *waitspec.WaitSpec
	Replicas  []Replica
	LagSource LagSource
	Progress  ProgressSink
	Logger    loggers.Advanced
}

type Barrier struct {
	spec      *waitspec.WaitSpec
	replicas  []Replica
	lagSource LagSource
	progress  ProgressSink
	logger    loggers.Advanced
}

func New(config *Config) (*Barrier, error) {
	if config == nil || config.Spec == nil {
		return nil, errors.New("barrier requires a wait spec")
	}
	if len(config.Replicas) == 0 {
		return nil, errors.New("barrier requires at least one replica")
	}
	if config.LagSource == nil {
		return nil, errors.New("barrier requires a lag source")
	}
	logger := config.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Barrier{
		spec:      config.Spec,
		replicas:  config.Replicas,
		lagSource: config.LagSource,
		progress:  config.Progress,
		logger:    logger,
	}, nil
}

// Wait blocks until every replica, polled strictly in slice order,
// reports lag at or below the spec's max, or until the spec's timeout
// elapses. The timeout is measured once from the start of the call and
// is never reset per replica: a slow early replica consumes budget that
// later replicas then have less of. On timeout, continue=no returns a
// ReplicaTimeoutError naming the first replica still behind, and
// continue=yes returns success anyway. Replicas are polled one at a
// time; the barrier never moves on to replica i+1 before replica i has
// caught up.
func (b *Barrier) Wait(ctx context.Context) (bool, error) {
	start := time.Now()
	limit := time.Duration(b.spec.Timeout) * timeUnit
	deadline := start.Add(limit)
	for i, replica := range b.replicas {
		first := true
		for {
			lag, ok := b.lagSource.Lag(ctx, replica)
			if ok && lag <= int64(b.spec.MaxLag) {
				b.logger.Debugf("replica %s caught up: lag %ds <= max %ds", replica.Name, lag, b.spec.MaxLag)
				break
			}
			if time.Now().After(deadline) {
				if b.spec.Continue {
					b.logger.Infof("replica %s still behind after %s, continuing anyway (continue=yes)", replica.Name, limit)
					return true, nil
				}
				return false, &ReplicaTimeoutError{Index: i, Name: replica.Name, Limit: limit}
			}
			b.report(i, first, start, deadline)
			first = false
			if err := b.sleep(ctx); err != nil {
				return false, err
			}
		}
	}
	return true, nil
}

func (b *Barrier) report(index int, first bool, start time.Time, deadline time.Time) {
	if b.progress == nil {
		return
	}
	now := time.Now()
	b.progress.Report(Progress{
		Fraction:     float64(index) / float64(len(b.replicas)),
		Elapsed:      now.Sub(start),
		Remaining:    deadline.Sub(now),
		ETA:          deadline,
		ReplicaIndex: index,
		FirstPoll:    first,
	})
}

// sleep pauses for the spec's check interval, returning early if the
// context is canceled.
func (b *Barrier) sleep(ctx context.Context) error {
	timer := time.NewTimer(time.Duration(b.spec.Check) * timeUnit)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
