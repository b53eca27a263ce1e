package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tasktracker"

var (
	OTPIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "otp_issued_total",
		Help:      "One-time passcodes issued, by purpose.",
	}, []string{"purpose"})

	OTPVerifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "otp_verifications_total",
		Help:      "One-time passcode verification attempts, by result.",
	}, []string{"result"})

	WSClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_clients",
		Help:      "Connected realtime board clients.",
	})

	TaskMoves = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "task_moves_total",
		Help:      "Realtime task move events handled, by kind.",
	}, []string{"kind"})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Processed HTTP requests.",
	}, []string{"method", "status"})
)

func init() {
	prometheus.MustRegister(OTPIssued, OTPVerifications, WSClients, TaskMoves, HTTPRequests)
}
