package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the planner's Prometheus collectors. A single instance is
// created at startup and threaded into the services that record to it.
type Metrics struct {
	PlansGenerated   prometheus.Counter
	TriggersDerived  *prometheus.CounterVec
	ProposalsCreated *prometheus.CounterVec
	ProposalsApplied prometheus.Counter
	ApplyConflicts   *prometheus.CounterVec
	SafetyDroppedOps prometheus.Counter
	EngineFallbacks  prometheus.Counter
}

// New registers all collectors on the given registerer. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh
// prometheus.NewRegistry so parallel tests never collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PlansGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "tricoach_plans_generated_total",
			Help: "Number of training plans generated.",
		}),
		TriggersDerived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tricoach_triggers_derived_total",
			Help: "Number of adaptation triggers derived, by trigger type.",
		}, []string{"type"}),
		ProposalsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tricoach_proposals_created_total",
			Help: "Number of change proposals created, by engine.",
		}, []string{"engine"}),
		ProposalsApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "tricoach_proposals_applied_total",
			Help: "Number of change proposals approved and applied.",
		}),
		ApplyConflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tricoach_apply_conflicts_total",
			Help: "Number of proposal applies rejected by a lock or version conflict, by scope.",
		}, []string{"scope"}),
		SafetyDroppedOps: factory.NewCounter(prometheus.CounterOpts{
			Name: "tricoach_safety_dropped_ops_total",
			Help: "Number of diff operations dropped by the safety rewrite.",
		}),
		EngineFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "tricoach_engine_fallbacks_total",
			Help: "Number of model-engine failures that fell back to the deterministic engine.",
		}),
	}
}
