package obs

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	policyDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medportal_policy_decisions_total",
			Help: "Authorization decisions by action and reason.",
		},
		[]string{"action", "reason"},
	)

	sessionResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medportal_session_resolutions_total",
			Help: "Session materializations by outcome.",
		},
		[]string{"outcome"},
	)

	sagaDivergences = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medportal_attachment_divergences_total",
			Help: "Attachment removals that left the blob and directory stores out of step.",
		},
		[]string{"step"},
	)

	registerOnce sync.Once
)

// Session resolution outcomes.
const (
	OutcomePrincipal  = "principal"
	OutcomeAnonymous  = "anonymous"
	OutcomePending    = "pending"
	OutcomeAbsent     = "absent"
	OutcomeFailed     = "failed"
	OutcomeSuperseded = "superseded"
)

// Init registers the service metrics with the default registry.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(policyDecisions, sessionResolutions, sagaDivergences)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveDecision(action, reason string) {
	policyDecisions.WithLabelValues(action, reason).Inc()
}

func ObserveResolution(outcome string) {
	sessionResolutions.WithLabelValues(outcome).Inc()
}

func ObserveDivergence(step string) {
	sagaDivergences.WithLabelValues(step).Inc()
}
