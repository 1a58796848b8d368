package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	EvaluationsGraded prometheus.Counter
	EvaluationUpserts prometheus.Counter
	PolicyDenials     *prometheus.CounterVec
	LoginsSucceeded   prometheus.Counter
	TokensRevoked     prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		EvaluationsGraded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gradegate_evaluations_graded_total",
			Help: "Total number of evaluations created",
		}),
		EvaluationUpserts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gradegate_evaluation_upserts_total",
			Help: "Total number of evaluation creates resolved as in-place updates",
		}),
		PolicyDenials: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gradegate_policy_denials_total",
			Help: "Total number of operations denied by the authorization policy",
		}, []string{"role", "entity"}),
		LoginsSucceeded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gradegate_logins_succeeded_total",
			Help: "Total number of successful logins",
		}),
		TokensRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gradegate_tokens_revoked_total",
			Help: "Total number of access tokens revoked via logout",
		}),
	}
}

// IncrementPolicyDenial records a denial for the given role and entity kind.
func (m *Metrics) IncrementPolicyDenial(role, entity string) {
	m.PolicyDenials.WithLabelValues(role, entity).Inc()
}
