package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	DeclarationsPublished  prometheus.Counter
	ProjectionDegradations prometheus.Counter
	SimulationsCreated     prometheus.Counter
	SearchQueries          prometheus.Counter
	TokensIssued           prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		DeclarationsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "parite_declarations_published_total",
			Help: "Total number of declarations published",
		}),
		ProjectionDegradations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "parite_projection_degradations_total",
			Help: "Total number of search or archive side effects that failed after a successful write",
		}),
		SimulationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "parite_simulations_created_total",
			Help: "Total number of simulations created",
		}),
		SearchQueries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "parite_search_queries_total",
			Help: "Total number of public search queries served",
		}),
		TokensIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "parite_tokens_issued_total",
			Help: "Total number of authentication tokens issued",
		}),
	}
}
