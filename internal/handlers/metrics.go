package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

var (
	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskflow_chat_submissions_total",
			Help: "Number of completed submissions by outcome.",
		},
		[]string{"outcome"},
	)

	rejectedSubmissionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskflow_chat_rejected_submissions_total",
			Help: "Number of submissions ignored because the draft was blank or a round trip was pending.",
		},
	)

	roundTripSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "taskflow_chat_round_trip_seconds",
			Help:    "Duration of chat API round trips.",
			Buckets: prometheus.DefBuckets,
		},
	)

	activeWidgets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskflow_chat_widgets",
			Help: "Number of widgets held in memory.",
		},
	)
)

func init() {
	prometheus.MustRegister(submissionsTotal)
	prometheus.MustRegister(rejectedSubmissionsTotal)
	prometheus.MustRegister(roundTripSeconds)
	prometheus.MustRegister(activeWidgets)
}
