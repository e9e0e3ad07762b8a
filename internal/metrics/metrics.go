// Package metrics holds the Prometheus collectors of the decision engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	GDDRecords       *prometheus.CounterVec // outcome: created|exists|skipped|failed
	Decisions        *prometheus.CounterVec // decision, urgency
	WeatherFailures  prometheus.Counter
	Recommendations  prometheus.Counter
	ReadingsIngested *prometheus.CounterVec // kind: raw|aggregated
	gatherer         prometheus.Gatherer
}

// New registers the collectors on reg. A nil reg uses a private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		GDDRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agronomy",
			Name:      "gdd_records_total",
			Help:      "GDD daily calculations by outcome.",
		}, []string{"outcome"}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agronomy",
			Name:      "irrigation_decisions_total",
			Help:      "Irrigation decisions by decision and urgency.",
		}, []string{"decision", "urgency"}),
		WeatherFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agronomy",
			Name:      "weather_lookup_failures_total",
			Help:      "Weather outlook lookups that failed and were ignored.",
		}),
		Recommendations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agronomy",
			Name:      "crop_recommendations_total",
			Help:      "Crop recommendations computed.",
		}),
		ReadingsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agronomy",
			Name:      "sensor_readings_total",
			Help:      "Sensor readings accepted by kind.",
		}, []string{"kind"}),
		gatherer: reg,
	}
	reg.MustRegister(m.GDDRecords, m.Decisions, m.WeatherFailures, m.Recommendations, m.ReadingsIngested)
	return m
}

// Handler serves the registry this Metrics was created on.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
