package crashstorage

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Outcomes recorded by the operations counter.
const (
	outcomeOK       = "ok"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
)

type metrics struct {
	operations *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer, log logrus.FieldLogger) *metrics {
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crashstorage_operations_total",
		Help: "Crash storage operations by outcome.",
	}, []string{"operation", "outcome"})

	if err := reg.Register(operations); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			log.WithError(err).Warn("cannot register crash storage metrics")
			return nil
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			log.WithError(err).Warn("cannot register crash storage metrics")
			return nil
		}
		operations = existing
	}
	return &metrics{operations: operations}
}

func (m *metrics) observe(operation string, err error) {
	if m == nil {
		return
	}
	outcome := outcomeOK
	switch {
	case err == nil:
	case IsNotFound(err):
		outcome = outcomeNotFound
	default:
		outcome = outcomeError
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}
