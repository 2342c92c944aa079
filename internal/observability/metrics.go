// Package observability exposes the Prometheus counters published at
// /metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simbroker_orders_created_total",
		Help: "Orders created, labeled by initial status.",
	}, []string{"status"})

	OrdersApproved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simbroker_orders_approved_total",
		Help: "Orders approved and filled by an owner or manager.",
	})

	OrdersCanceled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simbroker_orders_canceled_total",
		Help: "Orders transitioned to CANCELED.",
	})

	FillsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simbroker_fills_total",
		Help: "FILL rows appended to the ledger.",
	})

	SimulatorTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simbroker_simulator_ticks_total",
		Help: "Completed simulator tick rounds.",
	})

	SimulatorErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simbroker_simulator_errors_total",
		Help: "Per-symbol simulation failures (logged and skipped).",
	})

	BarsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simbroker_price_bars_written_total",
		Help: "Price bars upserted by the simulator.",
	})
)
