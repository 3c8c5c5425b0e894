package server

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics tracks server runtime statistics.
// All counters use atomic operations for lock-free concurrent access; the
// Prometheus collectors read them at scrape time.
type Metrics struct {
	startTime time.Time
	prom      *prometheus.Registry

	// Connection counters
	TotalConnections    atomic.Int64 // connections accepted by any transport
	ActiveConnections   atomic.Int64 // connections currently being served
	RejectedConnections atomic.Int64 // refused because the address is blocked
	TotalJoins          atomic.Int64 // sessions that picked a name and joined
	TotalDisconnects    atomic.Int64 // joined sessions that left (any reason)

	// Chat counters
	ChatMessages      atomic.Int64 // global messages relayed
	Whispers          atomic.Int64 // private messages delivered
	Renames           atomic.Int64 // successful /changename
	DroppedDeliveries atomic.Int64 // sessions closed on a full outbound queue

	// Admin counters
	BlockCount atomic.Int64 // /block executions
}

// NewMetrics creates a new Metrics instance with the start time set to now
// and its collectors registered on a private Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),
		prom:      prometheus.NewRegistry(),
	}

	m.prom.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "gochat_uptime_seconds",
			Help: "Server uptime in seconds.",
		}, func() float64 { return time.Since(m.startTime).Seconds() }),
		gaugeFunc("gochat_connections_active", "Connections currently being served.", &m.ActiveConnections),
		counterFunc("gochat_connections_total", "Connections accepted by any transport.", &m.TotalConnections),
		counterFunc("gochat_connections_rejected_total", "Connections refused because the address is blocked.", &m.RejectedConnections),
		counterFunc("gochat_joins_total", "Sessions that joined the chat.", &m.TotalJoins),
		counterFunc("gochat_disconnects_total", "Joined sessions that left.", &m.TotalDisconnects),
		counterFunc("gochat_chat_messages_total", "Global chat messages relayed.", &m.ChatMessages),
		counterFunc("gochat_whispers_total", "Private messages delivered.", &m.Whispers),
		counterFunc("gochat_renames_total", "Successful name changes.", &m.Renames),
		counterFunc("gochat_dropped_deliveries_total", "Sessions closed because their outbound queue was full.", &m.DroppedDeliveries),
		counterFunc("gochat_blocks_total", "Addresses blocked by an administrator.", &m.BlockCount),
	)
	return m
}

func counterFunc(name, help string, v *atomic.Int64) prometheus.Collector {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{Name: name, Help: help},
		func() float64 { return float64(v.Load()) })
}

func gaugeFunc(name, help string, v *atomic.Int64) prometheus.Collector {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help},
		func() float64 { return float64(v.Load()) })
}

// observeRegistry adds gauges that read the live session and block sets.
func (m *Metrics) observeRegistry(r *Registry) {
	m.prom.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "gochat_sessions",
			Help: "Named sessions currently in the chat.",
		}, func() float64 { return float64(r.Len()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "gochat_blocked_addresses",
			Help: "Addresses currently refused.",
		}, func() float64 { return float64(r.BlockedCount()) }),
	)
}

// Gatherer exposes the registry for promhttp.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.prom
}

// MetricsSnapshot is a point-in-time view of all counters.
type MetricsSnapshot struct {
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`

	ActiveConnections   int64 `json:"active_connections"`
	TotalConnections    int64 `json:"total_connections"`
	RejectedConnections int64 `json:"rejected_connections"`
	TotalJoins          int64 `json:"total_joins"`
	TotalDisconnects    int64 `json:"total_disconnects"`

	ChatMessages      int64 `json:"chat_messages"`
	Whispers          int64 `json:"whispers"`
	Renames           int64 `json:"renames"`
	DroppedDeliveries int64 `json:"dropped_deliveries"`

	BlockCount int64 `json:"block_count"`
}

// Snapshot returns a read-consistent snapshot of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	uptime := time.Since(m.startTime)
	return MetricsSnapshot{
		Uptime:              uptime.Truncate(time.Second).String(),
		UptimeSeconds:       int64(uptime.Seconds()),
		ActiveConnections:   m.ActiveConnections.Load(),
		TotalConnections:    m.TotalConnections.Load(),
		RejectedConnections: m.RejectedConnections.Load(),
		TotalJoins:          m.TotalJoins.Load(),
		TotalDisconnects:    m.TotalDisconnects.Load(),
		ChatMessages:        m.ChatMessages.Load(),
		Whispers:            m.Whispers.Load(),
		Renames:             m.Renames.Load(),
		DroppedDeliveries:   m.DroppedDeliveries.Load(),
		BlockCount:          m.BlockCount.Load(),
	}
}

// JSON returns the metrics snapshot as a JSON string.
func (m *Metrics) JSON() string {
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// LogSummary writes a metrics summary to log.
func (m *Metrics) LogSummary(log *slog.Logger) {
	s := m.Snapshot()
	log.Info("metrics",
		"uptime", s.Uptime,
		"connections", s.ActiveConnections,
		"total_connections", s.TotalConnections,
		"rejected", s.RejectedConnections,
		"chat_msgs", s.ChatMessages,
		"whispers", s.Whispers,
		"dropped", s.DroppedDeliveries,
	)
}

// StartPeriodicLog starts a goroutine that logs metrics every interval.
// It stops when the done channel is closed.
func (m *Metrics) StartPeriodicLog(interval time.Duration, log *slog.Logger, done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				m.LogSummary(log)
			}
		}
	}()
}
