package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink registers one counter vec and one gauge vec, labeled by
// metric name, and updates them on each Send. The caller is responsible
// for serving the registry (e.g. via promhttp) if scraping is wanted.
type PrometheusSink struct {
	counters *prometheus.CounterVec
	gauges   *prometheus.GaugeVec
}

var _ Sink = &PrometheusSink{}

func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	s := &PrometheusSink{
		counters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "replsafe",
			Name:      "counter",
			Help:      "Counters reported by the batch job, labeled by metric name.",
		}, []string{"name"}),
		gauges: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "replsafe",
			Name:      "gauge",
			Help:      "Gauges reported by the batch job, labeled by metric name.",
		}, []string{"name"}),
	}
	if err := reg.Register(s.counters); err != nil {
		return nil, err
	}
	if err := reg.Register(s.gauges); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PrometheusSink) Send(_ context.Context, m *Metrics) error {
	for _, v := range m.Values {
		switch v.Type {
		case COUNTER:
			s.counters.WithLabelValues(v.Name).Add(v.Value)
		case GAUGE:
			s.gauges.WithLabelValues(v.Name).Set(v.Value)
		}
	}
	return nil
}
