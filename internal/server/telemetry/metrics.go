// Package telemetry holds the server's Prometheus collectors and the
// OpenTelemetry tracer setup.
package telemetry

import (
	"errors"
	"sync"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeSuccess      = "success"
	OutcomeBadRequest   = "bad_request"
	OutcomeUnauthorized = "unauthorized"
	OutcomeConflict     = "conflict"
	OutcomeError        = "error"
)

var (
	// AuthOperations counts lifecycle operations by name and outcome.
	AuthOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "authkeeper",
			Name:      "auth_operations_total",
			Help:      "Total number of identity lifecycle operations",
		},
		[]string{"operation", "outcome"},
	)

	// EmailsSent counts outgoing verification emails per transport.
	EmailsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "authkeeper",
			Name:      "emails_sent_total",
			Help:      "Total number of emails handed to the mail transport",
		},
		[]string{"transport", "outcome"},
	)

	once sync.Once
)

// InitMetrics registers the collectors with the default registry. Safe to call repeatedly.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.MustRegister(AuthOperations)
		prometheus.DefaultRegisterer.MustRegister(EmailsSent)
	})
}

// Outcome maps a service error to its outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, common.ErrorBadRequest):
		return OutcomeBadRequest
	case errors.Is(err, common.ErrorUnauthorized):
		return OutcomeUnauthorized
	case errors.Is(err, common.ErrorConflict):
		return OutcomeConflict
	default:
		return OutcomeError
	}
}

// ObserveOperation records one finished lifecycle operation.
func ObserveOperation(operation string, err error) {
	AuthOperations.WithLabelValues(operation, Outcome(err)).Inc()
}

// ObserveEmail records one send attempt on transport.
func ObserveEmail(transport string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	EmailsSent.WithLabelValues(transport, outcome).Inc()
}
