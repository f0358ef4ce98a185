// Package metrics tracks bot usage for the /metrics endpoint and the /stats
// command.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records message traffic, handler latency, and errors. It feeds
// both the Prometheus registry and the human-readable /stats summary.
type Collector struct {
	messages     *prometheus.CounterVec
	errors       *prometheus.CounterVec
	responseTime *prometheus.HistogramVec
	activeUsers  prometheus.Gauge

	mu            sync.Mutex
	messageCount  int64
	errorCount    int64
	totalDuration time.Duration
	timedCount    int64
	users         map[string]struct{}
}

// NewCollector creates a collector and registers its metrics.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "learnmate",
			Name:      "messages_total",
			Help:      "Messages seen, labeled by origin (user or bot).",
		}, []string{"origin"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "learnmate",
			Name:      "errors_total",
			Help:      "Errors recovered during handling, labeled by kind.",
		}, []string{"kind"}),
		responseTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "learnmate",
			Name:      "response_seconds",
			Help:      "Handler response time in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"handler"}),
		activeUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "learnmate",
			Name:      "active_users",
			Help:      "Distinct users seen since start.",
		}),
		users: make(map[string]struct{}),
	}
	if reg != nil {
		reg.MustRegister(c.messages, c.errors, c.responseTime, c.activeUsers)
	}
	return c
}

// RecordMessage counts one message from the given origin ("user" or "bot").
func (c *Collector) RecordMessage(origin string) {
	c.messages.WithLabelValues(origin).Inc()
	c.mu.Lock()
	c.messageCount++
	c.mu.Unlock()
}

// RecordError counts one recovered error of the given kind.
func (c *Collector) RecordError(kind string) {
	c.errors.WithLabelValues(kind).Inc()
	c.mu.Lock()
	c.errorCount++
	c.mu.Unlock()
}

// ObserveResponseTime records how long a handler took.
func (c *Collector) ObserveResponseTime(handler string, d time.Duration) {
	c.responseTime.WithLabelValues(handler).Observe(d.Seconds())
	c.mu.Lock()
	c.totalDuration += d
	c.timedCount++
	c.mu.Unlock()
}

// RecordUserActivity marks a user as active.
func (c *Collector) RecordUserActivity(userID string) {
	c.mu.Lock()
	if _, seen := c.users[userID]; !seen {
		c.users[userID] = struct{}{}
		c.activeUsers.Set(float64(len(c.users)))
	}
	c.mu.Unlock()
}

// Summary is the snapshot rendered by the /stats command.
type Summary struct {
	MessageCount  int64
	UserCount     int
	ErrorCount    int64
	AvgResponseMs float64
	ErrorRate     float64
}

// Snapshot returns the current usage summary.
func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{
		MessageCount: c.messageCount,
		UserCount:    len(c.users),
		ErrorCount:   c.errorCount,
	}
	if c.timedCount > 0 {
		s.AvgResponseMs = float64(c.totalDuration.Milliseconds()) / float64(c.timedCount)
	}
	if c.messageCount > 0 {
		s.ErrorRate = float64(c.errorCount) / float64(c.messageCount)
	}
	return s
}
