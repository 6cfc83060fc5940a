package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	PollTicksTotal    *prometheus.CounterVec // feed=tournament|assignments, result=success|fail
	AssignmentsTotal  *prometheus.CounterVec // op=assign|unassign, result=success|fail
	OverlayReconnects prometheus.Counter
	OverlayUpdates    *prometheus.CounterVec // result=success|fail
	OverlayConnected  prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PollTicksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "director_poll_ticks_total",
				Help: "Polling ticks by feed and result",
			},
			[]string{"feed", "result"},
		),
		AssignmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "director_assignments_total",
				Help: "Assignment operations by result",
			},
			[]string{"op", "result"},
		),
		OverlayReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "director_overlay_reconnects_total",
			Help: "Scheduled overlay reconnect attempts",
		}),
		OverlayUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "director_overlay_updates_total",
				Help: "Overlay match pushes by result",
			},
			[]string{"result"},
		),
		OverlayConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "director_overlay_connected",
			Help: "1 while the overlay connection is established",
		}),
	}

	reg.MustRegister(
		m.PollTicksTotal,
		m.AssignmentsTotal,
		m.OverlayReconnects,
		m.OverlayUpdates,
		m.OverlayConnected,
	)

	return m
}
