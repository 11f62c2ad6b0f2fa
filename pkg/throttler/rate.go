package throttler

import (
	"errors"
	"math"
)

const (
	DefaultSampleSize = 5
	DefaultWeight     = 0.75
)

// RateConfig configures a Rate controller. TargetTime is required;
// the other fields take defaults from NewRateConfig.
type RateConfig struct {
	// TargetTime is the desired wall-clock seconds per batch. The
	// controller steers the caller toward batches that take this long.
	TargetTime float64
	// SampleSize is the number of warm-up observations accumulated
	// before smoothing begins.
	SampleSize int
	// Weight is the coefficient applied to the previous average when
	// smoothing. Must be in [0, 1]: 1 ignores new observations entirely,
	// 0 ignores history entirely. Values outside the range are a caller
	// error and are not defended against.
	Weight float64
}

func NewRateConfig(targetTime float64) *RateConfig {
	return &RateConfig{
		TargetTime: targetTime,
		SampleSize: DefaultSampleSize,
		Weight:     DefaultWeight,
	}
}

// Rate maintains a weighted moving average of batch throughput and
// recommends pacing adjustments. It is a monotonic accumulator for the
// life of a job: there is no reset, and it assumes a single writer.
// Concurrent Update calls require external synchronization.
type Rate struct {
	targetTime float64
	sampleSize int
	weight     float64

	// warm-up accumulators, zeroed once warm-up completes
	nVals  int
	totalN float64
	totalS float64

	// valid only after warm-up
	avgN    float64
	avgS    float64
	avgRate int64
}

func NewRate(config *RateConfig) (*Rate, error) {
	if config == nil || config.TargetTime <= 0 {
		return nil, errors.New("rate controller requires a positive target time")
	}
	if config.SampleSize <= 0 {
		return nil, errors.New("rate controller requires a positive sample size")
	}
	return &Rate{
		targetTime: config.TargetTime,
		sampleSize: config.SampleSize,
		weight:     config.Weight,
	}, nil
}

// Update records that n units of work completed in s seconds and returns
// a pacing signal. During warm-up it only accumulates and returns Hold.
// s must be positive; a zero or negative s is a caller-contract violation
// and the observation is discarded rather than allowed to divide by zero.
func (r *Rate) Update(n, s float64) Signal {
	if s <= 0 {
		return Hold
	}
	if r.nVals < r.sampleSize {
		r.totalN += n
		r.totalS += s
		r.nVals++
		if r.nVals == r.sampleSize {
			// Warm-up complete: seed the averages from the plain
			// mean. Happens exactly once.
			r.avgN = r.totalN / float64(r.nVals)
			r.avgS = r.totalS / float64(r.nVals)
			r.avgRate = int64(math.Floor(r.avgN / r.avgS))
			r.totalN, r.totalS = 0, 0
		}
		return Hold
	}
	r.avgN = r.avgN*r.weight + n*(1-r.weight)
	r.avgS = r.avgS*r.weight + s*(1-r.weight)
	r.avgRate = int64(math.Floor(r.avgN / r.avgS))
	switch {
	case r.avgS < r.targetTime:
		return SpeedUp
	case r.avgS > r.targetTime:
		return SlowDown
	}
	return Hold
}

// Warm reports whether the warm-up window has completed and the averages
// below are meaningful.
func (r *Rate) Warm() bool {
	return r.nVals >= r.sampleSize
}

// AvgRate returns the smoothed units-per-second estimate, rounded down.
// Zero until warm-up completes.
func (r *Rate) AvgRate() int64 {
	return r.avgRate
}

// AvgTime returns the smoothed seconds-per-batch estimate. Zero until
// warm-up completes.
func (r *Rate) AvgTime() float64 {
	return r.avgS
}
