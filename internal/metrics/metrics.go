// Package metrics provides Prometheus metrics for the meshview bridge.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	refreshesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meshview_refreshes_total",
			Help: "Total number of root-level tree refreshes",
		},
	)

	expansionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meshview_expansions_total",
			Help: "Total number of tree expansions by node kind",
		},
		[]string{"kind"},
	)

	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meshview_commands_total",
			Help: "Total number of command invocations",
		},
		[]string{"command"},
	)

	copiesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meshview_copies_total",
			Help: "Total number of drag-and-drop copies",
		},
		[]string{"status"},
	)
)

// RecordRefresh counts a root-level refresh.
func RecordRefresh() {
	refreshesTotal.Inc()
}

// RecordExpansion counts a tree expansion of the given node kind.
func RecordExpansion(kind string) {
	expansionsTotal.WithLabelValues(kind).Inc()
}

// RecordCommand counts one command invocation.
func RecordCommand(command string) {
	commandsTotal.WithLabelValues(command).Inc()
}

// RecordCopy counts one drop copy outcome.
func RecordCopy(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	copiesTotal.WithLabelValues(status).Inc()
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
