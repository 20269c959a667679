package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	ChannelConnected  prometheus.Gauge
	ReconnectAttempts prometheus.Counter
	ChannelMessages   *prometheus.CounterVec // type label: location_update|new_route_request
	DroppedMessages   prometheus.Counter

	RESTFailures *prometheus.CounterVec // endpoint label
	RESTDuration *prometheus.HistogramVec

	RefreshTicks prometheus.Counter
	SinkFailures *prometheus.CounterVec // sink label

	RefreshInterval   prometheus.Gauge // seconds
	ReconnectInterval prometheus.Gauge // seconds
}

func NewCollector(refreshInterval, reconnectInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		ChannelConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shuttletrack_channel_connected",
			Help: "1 if the live tracking channel is connected, 0 otherwise.",
		}),
		ReconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shuttletrack_channel_reconnect_attempts_total",
			Help: "Reconnect attempts fired by the reconnect timer.",
		}),
		ChannelMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shuttletrack_channel_messages_total",
			Help: "Messages received on the live channel.",
		}, []string{"type"}),
		DroppedMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shuttletrack_channel_dropped_messages_total",
			Help: "Malformed or unknown live channel messages.",
		}),
		RESTFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shuttletrack_rest_failures_total",
			Help: "Failed backend REST requests.",
		}, []string{"endpoint"}),
		RESTDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shuttletrack_rest_duration_seconds",
			Help:    "Duration of backend REST requests.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"endpoint"}),
		RefreshTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shuttletrack_refresh_ticks_total",
			Help: "Periodic fallback refreshes run.",
		}),
		SinkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shuttletrack_sink_failures_total",
			Help: "Failed dashboard sink publishes.",
		}, []string{"sink"}),
		RefreshInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shuttletrack_refresh_interval_seconds",
			Help: "Fallback refresh interval in seconds.",
		}),
		ReconnectInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shuttletrack_reconnect_interval_seconds",
			Help: "Live channel reconnect interval in seconds.",
		}),
	}

	reg.MustRegister(
		c.ChannelConnected, c.ReconnectAttempts, c.ChannelMessages, c.DroppedMessages,
		c.RESTFailures, c.RESTDuration,
		c.RefreshTicks, c.SinkFailures,
		c.RefreshInterval, c.ReconnectInterval,
	)

	c.RefreshInterval.Set(refreshInterval.Seconds())
	c.ReconnectInterval.Set(reconnectInterval.Seconds())

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// The methods below let a nil *Collector be passed around when metrics are off.

func (c *Collector) SetConnected(connected bool) {
	if c == nil {
		return
	}
	if connected {
		c.ChannelConnected.Set(1)
	} else {
		c.ChannelConnected.Set(0)
	}
}

func (c *Collector) ReconnectAttempted() {
	if c != nil {
		c.ReconnectAttempts.Inc()
	}
}

func (c *Collector) MessageReceived(messageType string) {
	if c != nil {
		c.ChannelMessages.WithLabelValues(messageType).Inc()
	}
}

func (c *Collector) MessageDropped() {
	if c != nil {
		c.DroppedMessages.Inc()
	}
}

func (c *Collector) RESTFailed(endpoint string) {
	if c != nil {
		c.RESTFailures.WithLabelValues(endpoint).Inc()
	}
}

func (c *Collector) RESTObserve(endpoint string, d time.Duration) {
	if c != nil {
		c.RESTDuration.WithLabelValues(endpoint).Observe(d.Seconds())
	}
}

func (c *Collector) RefreshTicked() {
	if c != nil {
		c.RefreshTicks.Inc()
	}
}

func (c *Collector) SinkFailed(sink string) {
	if c != nil {
		c.SinkFailures.WithLabelValues(sink).Inc()
	}
}
