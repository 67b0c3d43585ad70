package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the issuer.
type Metrics struct {
	SiopRequestsBuilt    prometheus.Counter
	SiopResponsesHandled *prometheus.CounterVec
	IDVCompletions       prometheus.Counter
	TokenRequests        *prometheus.CounterVec
	CredentialsIssued    prometheus.Counter
	CredentialFailures   *prometheus.CounterVec
	DWNWrites            *prometheus.CounterVec
	EndpointLatency      *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		SiopRequestsBuilt: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kcc_siop_requests_built_total",
			Help: "Total number of SIOPv2 auth requests built and signed",
		}),
		SiopResponsesHandled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kcc_siop_responses_total",
			Help: "Total number of SIOPv2 auth responses handled, labeled by outcome",
		}, []string{"outcome"}),
		IDVCompletions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kcc_idv_completions_total",
			Help: "Total number of IDV completion callbacks received",
		}),
		TokenRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kcc_token_requests_total",
			Help: "Total number of OID4VCI token requests, labeled by outcome",
		}, []string{"outcome"}),
		CredentialsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kcc_credentials_issued_total",
			Help: "Total number of credentials minted and persisted",
		}),
		CredentialFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kcc_credential_failures_total",
			Help: "Total number of failed credential requests, labeled by reason",
		}, []string{"reason"}),
		DWNWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kcc_dwn_writes_total",
			Help: "Total number of DWN record writes, labeled by outcome",
		}, []string{"outcome"}),
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kcc_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

// ObserveEndpointLatency records latency for a named endpoint.
func (m *Metrics) ObserveEndpointLatency(endpoint string, seconds float64) {
	if m == nil {
		return
	}
	m.EndpointLatency.WithLabelValues(endpoint).Observe(seconds)
}
