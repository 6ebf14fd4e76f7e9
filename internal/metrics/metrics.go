// Package metrics exposes Prometheus collectors for the harvest pipeline.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_pages_total",
			Help: "Total listing/detail pages fetched, labeled by HTTP status.",
		},
		[]string{"status"},
	)

	fetchRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "harvester_fetch_retries_total",
			Help: "Total fetch attempts that were retried after a retryable failure.",
		},
	)

	listingsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "harvester_listings_total",
			Help: "Total listing records extracted from search pages.",
		},
	)

	cardsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "harvester_cards_dropped_total",
			Help: "Total listing cards dropped for lacking a derivable identity.",
		},
	)

	admittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "harvester_admitted_total",
			Help: "Total records admitted into the staging ledger.",
		},
	)

	enrichedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "harvester_enriched_total",
			Help: "Total detail records appended to the enrichment ledger.",
		},
	)

	prunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "harvester_pruned_total",
			Help: "Total rows removed from the staging ledger by prune.",
		},
	)
)

// Handler returns the HTTP handler exposing the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage counts one fetched page by final HTTP status.
// Status 0 marks transport-level failures.
func ObservePage(status int) {
	pagesTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

// ObserveRetry counts one retried fetch attempt.
func ObserveRetry() {
	fetchRetriesTotal.Inc()
}

// ObserveListings counts extracted listing records.
func ObserveListings(n int) {
	listingsTotal.Add(float64(n))
}

// ObserveDroppedCard counts one identity-less card discarded.
func ObserveDroppedCard() {
	cardsDroppedTotal.Inc()
}

// ObserveAdmitted counts records appended to the staging ledger.
func ObserveAdmitted(n int) {
	admittedTotal.Add(float64(n))
}

// ObserveEnriched counts detail rows appended to the Control ledger.
func ObserveEnriched(n int) {
	enrichedTotal.Add(float64(n))
}

// ObservePruned counts rows removed from the staging ledger.
func ObservePruned(n int) {
	prunedTotal.Add(float64(n))
}
