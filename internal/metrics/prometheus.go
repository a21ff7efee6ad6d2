package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are constructed at package load and registered explicitly at
// startup, so services can increment them in tests without a registry.
var (
	TokensIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bridge_tokens_issued_total",
		Help: "Total number of SSO tokens issued.",
	})
	TokenVerificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_token_verifications_total",
		Help: "Token verification attempts by outcome.",
	}, []string{"outcome"})
	SyncEntitiesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_sync_entities_total",
		Help: "Reconciliation outcomes per entity type.",
	}, []string{"entity", "outcome"})
	SyncPassFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_sync_pass_failures_total",
		Help: "Reconciliation passes that degraded to no data.",
	}, []string{"entity"})
	ProvisioningTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_provisioning_total",
		Help: "Account provisioning attempts by outcome.",
	}, []string{"outcome"})
	DownstreamPushTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_downstream_push_total",
		Help: "Per-course downstream pushes by outcome.",
	}, []string{"outcome"})
)

// Register attaches the bridge metrics to the given registerer. It should
// be called once at application startup.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		TokensIssuedTotal,
		TokenVerificationsTotal,
		SyncEntitiesTotal,
		SyncPassFailuresTotal,
		ProvisioningTotal,
		DownstreamPushTotal,
	)
}
