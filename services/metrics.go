package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "referidos"

var (
	intakeOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "intake",
		Name:      "submissions_total",
		Help:      "Lead submissions by channel and outcome",
	}, []string{"channel", "outcome"})

	commissionUpserts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "commission",
		Name:      "upserts_total",
		Help:      "Commission upserts by action (created, updated, race_updated)",
	}, []string{"action"})

	payoutGateRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "commission",
		Name:      "payout_gate_rejections_total",
		Help:      "Transitions to PAID rejected because documents are not approved",
	})

	eligibilityRecomputes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "documents",
		Name:      "eligibility_recomputes_total",
		Help:      "Partner eligibility recomputations by resulting status",
	}, []string{"status"})
)

// RegisterMetrics registers the engine's collectors with reg
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{intakeOutcomes, commissionUpserts, payoutGateRejections, eligibilityRecomputes} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
