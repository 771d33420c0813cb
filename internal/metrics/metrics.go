// Package metrics holds the Prometheus collectors of the help desk service.
package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// StoreWrites counts document writes by operation (create, append,
	// update, set, mutate).
	StoreWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "helpdesk",
		Subsystem: "store",
		Name:      "writes_total",
		Help:      "Document writes issued by the service",
	}, []string{"op"})

	// StoreWriteFailures counts writes the store rejected. They are never
	// retried.
	StoreWriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "helpdesk",
		Subsystem: "store",
		Name:      "write_failures_total",
		Help:      "Document writes rejected by the store",
	}, []string{"op"})

	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "helpdesk",
		Subsystem: "chat",
		Name:      "sessions_created_total",
		Help:      "Chat sessions opened by customers",
	})

	SessionsEnded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "helpdesk",
		Subsystem: "chat",
		Name:      "sessions_ended_total",
		Help:      "Chat sessions ended by operators",
	})

	// MessagesAppended is labelled by sender (customer, operator).
	MessagesAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "helpdesk",
		Subsystem: "chat",
		Name:      "messages_total",
		Help:      "Chat messages appended",
	}, []string{"sender"})

	// LiveConnections tracks open sockets per surface (widget, operator).
	LiveConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "helpdesk",
		Subsystem: "realtime",
		Name:      "connections",
		Help:      "Open realtime connections",
	}, []string{"surface"})

	TranscriptsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "helpdesk",
		Subsystem: "mailer",
		Name:      "transcripts_total",
		Help:      "Transcript mails by outcome",
	}, []string{"status"})
)

// ObserveWrite records one write and whether it failed.
func ObserveWrite(op string, err error) {
	StoreWrites.WithLabelValues(op).Inc()
	if err != nil {
		StoreWriteFailures.WithLabelValues(op).Inc()
	}
}

// Handler serves the default registry on a Fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
