// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	companionWorkersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "meetd_companion_workers_active",
		Help: "Number of companion worker processes currently tracked",
	})

	companionSpawnTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetd_companion_spawn_total",
		Help: "Companion spawn requests by outcome",
	}, []string{"outcome"}) // outcome=started|already_active|failed

	companionExitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetd_companion_exit_total",
		Help: "Companion worker exits by kind",
	}, []string{"kind"}) // kind=clean|error|signaled

	procSignalTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetd_proc_signal_total",
		Help: "Signals delivered to child process groups",
	}, []string{"signal", "outcome"})
)

// SetCompanionWorkersActive sets the worker gauge.
func SetCompanionWorkersActive(n int) { companionWorkersActive.Set(float64(n)) }

// IncCompanionSpawn counts a spawn request.
func IncCompanionSpawn(outcome string) { companionSpawnTotal.WithLabelValues(outcome).Inc() }

// IncCompanionExit counts a worker exit.
func IncCompanionExit(kind string) { companionExitTotal.WithLabelValues(kind).Inc() }

// IncProcSignal counts a signal sent to a process group.
func IncProcSignal(signal, outcome string) { procSignalTotal.WithLabelValues(signal, outcome).Inc() }
