package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "connector",
		Name:      "jobs_total",
		Help:      "Количество обработанных job по отправленной команде.",
	}, []string{"command"})

	invocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "connector",
		Name:      "invocations_total",
		Help:      "Количество вызовов функций по классификации результата.",
	}, []string{"outcome"})

	invocationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "connector",
		Name:      "invocation_duration_seconds",
		Help:      "Длительность вызова функции.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})
)

// ObserveInvocation учитывает вызов функции.
func ObserveInvocation(outcome string, d time.Duration) {
	invocationsTotal.WithLabelValues(outcome).Inc()
	invocationDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveCommand учитывает отправленную команду.
func ObserveCommand(command string) {
	jobsTotal.WithLabelValues(command).Inc()
}
