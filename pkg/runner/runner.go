// Package runner drives a replication-safe batch job: it applies batches
// of work, adjusts the batch size from the throttler's pacing signal, and
// periodically blocks on the replica barrier so replicas can catch up.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/block/replsafe/pkg/barrier"
	"github.com/block/replsafe/pkg/metrics"
	"github.com/block/replsafe/pkg/throttler"
	"github.com/block/replsafe/pkg/waitspec"
	"github.com/google/uuid"
	"github.com/siddontang/go-log/loggers"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Batcher applies one batch of work. It is the seam between this driver
// and the actual SQL (row copy, checksum, purge): ApplyBatch performs up
// to size units, returning how many units were completed and whether the
// job has finished.
type Batcher interface {
	ApplyBatch(ctx context.Context, size int64) (n int64, done bool, err error)
}

type Config struct {
	TargetBatchTime  time.Duration // drives the rate controller
	InitialBatchSize int64
	MinBatchSize     int64
	MaxBatchSize     int64
	// ReplicaWaitEvery is how many batches to run between barrier waits.
	ReplicaWaitEvery int
	// Wait enables the replica barrier when non-nil. Replicas and
	// LagSource are then required.
	Wait           *waitspec.WaitSpec
	Replicas       []barrier.Replica
	LagSource      barrier.LagSource
	Progress       barrier.ProgressSink
	Logger         loggers.Advanced
	MetricsSink    metrics.Sink
	StatusInterval time.Duration
}

func NewDefaultConfig() *Config {
	return &Config{
		TargetBatchTime:  time.Second,
		InitialBatchSize: 1000,
		MinBatchSize:     100,
		MaxBatchSize:     100000,
		ReplicaWaitEvery: 10,
		Logger:           logrus.New(),
		MetricsSink:      &metrics.NoopSink{},
		StatusInterval:   30 * time.Second,
	}
}

type Runner struct {
	sync.Mutex // guards rate and batchSize against the status goroutine

	jobID       uuid.UUID
	batcher     Batcher
	config      *Config
	rate        *throttler.Rate
	replBarrier *barrier.Barrier // nil when no wait spec configured

	batchSize     int64
	batches       atomic.Int64
	rowsProcessed atomic.Int64
	startTime     time.Time
}

func NewRunner(batcher Batcher, config *Config) (*Runner, error) {
	if batcher == nil {
		return nil, errors.New("runner requires a batcher")
	}
	if config == nil {
		return nil, errors.New("runner requires a config")
	}
	if config.TargetBatchTime <= 0 {
		return nil, errors.New("runner requires a positive target batch time")
	}
	if config.InitialBatchSize <= 0 {
		return nil, errors.New("runner requires a positive initial batch size")
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.MetricsSink == nil {
		config.MetricsSink = &metrics.NoopSink{}
	}
	if config.StatusInterval <= 0 {
		config.StatusInterval = 30 * time.Second
	}
	rate, err := throttler.NewRate(throttler.NewRateConfig(config.TargetBatchTime.Seconds()))
	if err != nil {
		return nil, err
	}
	r := &Runner{
		jobID:     uuid.New(),
		batcher:   batcher,
		config:    config,
		rate:      rate,
		batchSize: config.InitialBatchSize,
	}
	if config.Wait != nil {
		r.replBarrier, err = barrier.New(&barrier.Config{
			Spec:      config.Wait,
			Replicas:  config.Replicas,
			LagSource: config.LagSource,
			Progress:  config.Progress,
			Logger:    config.Logger,
		})
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// JobID identifies this run in logs and remote status records.
func (r *Runner) JobID() uuid.UUID {
	return r.jobID
}

// Run executes batches until the Batcher reports done or an error. A
// second goroutine writes a status line every StatusInterval.
func (r *Runner) Run(ctx context.Context) error {
	r.startTime = time.Now()
	r.config.Logger.Infof("starting batch job %s: target batch time %s, initial batch size %d",
		r.jobID, r.config.TargetBatchTime, r.batchSize)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel() // stop the status loop when the batches finish
		return r.batchLoop(ctx)
	})
	g.Go(func() error {
		r.statusLoop(ctx)
		return nil
	})
	return g.Wait()
}

func (r *Runner) batchLoop(ctx context.Context) error {
	size := r.config.InitialBatchSize
	for i := 1; ; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		start := time.Now()
		n, done, err := r.batcher.ApplyBatch(ctx, size)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)
		r.rowsProcessed.Add(n)
		r.batches.Add(1)
		r.Lock()
		signal := r.rate.Update(float64(n), elapsed.Seconds())
		size = r.nextBatchSize(size, signal)
		r.batchSize = size
		r.Unlock()
		r.sendMetrics(ctx, elapsed, n)
		if done {
			r.config.Logger.Infof("batch job %s complete: %d rows in %d batches", r.jobID, r.rowsProcessed.Load(), r.batches.Load())
			return nil
		}
		if r.replBarrier != nil && r.config.ReplicaWaitEvery > 0 && i%r.config.ReplicaWaitEvery == 0 {
			waitStart := time.Now()
			if _, err := r.replBarrier.Wait(ctx); err != nil {
				return err
			}
			waited := time.Since(waitStart)
			if waited > time.Second {
				r.config.Logger.Infof("resumed after waiting %s for replicas", waited.Round(time.Millisecond))
			}
			r.sendWaitMetric(ctx, waited)
		}
	}
}

// nextBatchSize applies the pacing signal: grow when batches finish
// under the target time, halve when they overshoot it.
func (r *Runner) nextBatchSize(size int64, signal throttler.Signal) int64 {
	switch signal {
	case throttler.SpeedUp:
		size *= 2
		if r.config.MaxBatchSize > 0 && size > r.config.MaxBatchSize {
			size = r.config.MaxBatchSize
		}
	case throttler.SlowDown:
		size /= 2
		if size < r.config.MinBatchSize {
			size = r.config.MinBatchSize
		}
		if size < 1 {
			size = 1
		}
	}
	return size
}

func (r *Runner) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(r.config.StatusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.config.Logger.Info(r.Status())
		}
	}
}

// Status returns a one-line progress summary suitable for logging.
func (r *Runner) Status() string {
	r.Lock()
	size := r.batchSize
	avgRate := r.rate.AvgRate()
	r.Unlock()
	elapsed := time.Since(r.startTime).Round(time.Second)
	return fmt.Sprintf("job %s: %d rows in %d batches, batch size %d, avg %d rows/s, %s elapsed",
		r.jobID, r.rowsProcessed.Load(), r.batches.Load(), size, avgRate, elapsed)
}

func (r *Runner) sendMetrics(ctx context.Context, processingTime time.Duration, n int64) {
	ctx, cancel := context.WithTimeout(ctx, metrics.SinkTimeout)
	defer cancel()
	err := r.config.MetricsSink.Send(ctx, &metrics.Metrics{
		Values: []metrics.MetricValue{
			{Name: metrics.BatchProcessingTimeMetricName, Value: processingTime.Seconds(), Type: metrics.GAUGE},
			{Name: metrics.BatchRowsCountMetricName, Value: float64(n), Type: metrics.COUNTER},
		},
	})
	if err != nil {
		// Metrics failures never stop the job.
		r.config.Logger.Errorf("error sending metrics: %v", err)
	}
}

func (r *Runner) sendWaitMetric(ctx context.Context, waited time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, metrics.SinkTimeout)
	defer cancel()
	err := r.config.MetricsSink.Send(ctx, &metrics.Metrics{
		Values: []metrics.MetricValue{
			{Name: metrics.ReplicaWaitTimeMetricName, Value: waited.Seconds(), Type: metrics.GAUGE},
		},
	})
	if err != nil {
		r.config.Logger.Errorf("error sending metrics: %v", err)
	}
}
