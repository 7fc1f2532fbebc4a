// Package metrics exposes broker activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"chat-broker/internal/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// Collector observes coordinator activity and transport counters.
type Collector struct {
	events         *prometheus.CounterVec
	connectedUsers prometheus.Gauge
	channels       prometheus.Gauge
	messagesSent   prometheus.Counter
	droppedFrames  prometheus.Counter
	rateLimited    prometheus.Counter
	journalDropped prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatbroker_events_total",
			Help: "Client events handled, by event and outcome.",
		}, []string{"event", "outcome"}),
		connectedUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chatbroker_connected_users",
			Help: "Users currently holding a username.",
		}),
		channels: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chatbroker_channels",
			Help: "Channels currently in the store.",
		}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatbroker_messages_sent_total",
			Help: "Chat messages accepted into a channel.",
		}),
		droppedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatbroker_dropped_frames_total",
			Help: "Outbound frames dropped because a client's send queue was full.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatbroker_rate_limited_total",
			Help: "Inbound frames discarded by the per-connection rate limit.",
		}),
		journalDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatbroker_journal_dropped_total",
			Help: "Activity records the journal could not queue.",
		}),
	}

	reg.MustRegister(
		c.events,
		c.connectedUsers,
		c.channels,
		c.messagesSent,
		c.droppedFrames,
		c.rateLimited,
		c.journalDropped,
	)
	return c
}

func (c *Collector) Observe(a services.Activity) {
	outcome := outcomeOK
	if a.Err != nil {
		outcome = outcomeError
	}
	c.events.WithLabelValues(a.Event, outcome).Inc()
	c.connectedUsers.Set(float64(a.ConnectedUsers))
	c.channels.Set(float64(a.Channels))
	if a.Event == "send_message" && a.Err == nil {
		c.messagesSent.Inc()
	}
}

func (c *Collector) FrameDropped()   { c.droppedFrames.Inc() }
func (c *Collector) RateLimited()    { c.rateLimited.Inc() }
func (c *Collector) JournalDropped() { c.journalDropped.Inc() }

// Handler serves the scrape endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
