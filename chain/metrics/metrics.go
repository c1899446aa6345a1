// Package metrics exports the chain's operational gauges over the
// same prometheus client the teacher wires into its kcn entrypoint
// (cmd/kcn/main.go), sized down to what this state machine actually has
// to report: block height, validator-set size, and cumulative slashes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BlockHeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mychain",
		Name:      "block_height",
		Help:      "height of the last committed block",
	})
	ValidatorCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mychain",
		Name:      "validator_count",
		Help:      "number of council nodes currently in the validator set",
	})
	SlashCount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mychain",
		Name:      "slash_total",
		Help:      "number of slash activations since process start",
	})
)

func init() {
	prometheus.MustRegister(BlockHeight, ValidatorCount, SlashCount)
}

// Handler serves the registered gauges/counters for scraping, the same
// promhttp.Handler() the teacher mounts alongside its other debug endpoints.
func Handler() http.Handler {
	return promhttp.Handler()
}
