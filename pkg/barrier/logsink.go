package barrier

import (
	"github.com/siddontang/go-log/loggers"
)

// LogSink is a ProgressSink that writes user-facing wait status to a
// logger: a "waiting" line the first time a replica is seen behind, and
// "still waiting" lines after that.
type LogSink struct {
	logger loggers.Advanced
}

var _ ProgressSink = (*LogSink)(nil)

func NewLogSink(logger loggers.Advanced) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Report(p Progress) {
	if p.FirstPoll {
		s.logger.Infof("waiting for replica %d to catch up...", p.ReplicaIndex)
		return
	}
	s.logger.Infof("still waiting for replica %d (%.0fs elapsed, %.0fs before timeout)...",
		p.ReplicaIndex, p.Elapsed.Seconds(), p.Remaining.Seconds())
}
