package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the collector's registry in the Prometheus exposition
// format. Only analyzer metrics are exposed, plus the scrape counters
// promhttp_metric_handler_requests_total and _in_flight.
//
// A collector that fails during a scrape is logged and the remaining
// metrics are still served.
func (c *Collector) Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(c.registry, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		ErrorLog:      slog.NewLogLogger(slog.Default().With("component", "metrics").Handler(), slog.LevelError),
		ErrorHandling: promhttp.ContinueOnError,
		Registry:      c.registry,
	}))
}
