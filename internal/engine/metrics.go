package engine

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// decision results
const (
	resultAllowed         = "allowed"
	resultUnauthenticated = "unauthenticated"
	resultDenied          = "denied"
	resultError           = "error"
)

type metrics struct {
	decisions   *prometheus.CounterVec
	resolutions *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authorizable_decisions_total",
				Help: "Total number of authorization decisions",
			},
			[]string{"handler", "rule", "result"},
		),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authorizable_resolutions_total",
				Help: "Total number of standard permissions resolved without the cache",
			},
			[]string{"handler"},
		),
	}

	if reg == nil {
		return m, nil
	}

	var e error
	if m.decisions, e = register(reg, m.decisions); e != nil {
		return nil, e
	}
	if m.resolutions, e = register(reg, m.resolutions); e != nil {
		return nil, e
	}
	return m, nil
}

// register reuses a collector registered by another engine on the same registerer
func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if e := reg.Register(c); e != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(e, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, e
	}
	return c, nil
}

func (m *metrics) decided(handler, rule, result string) {
	m.decisions.WithLabelValues(handler, rule, result).Inc()
}

// Computed implements resolver.Observer
func (m *metrics) Computed(handler string) {
	m.resolutions.WithLabelValues(handler).Inc()
}
