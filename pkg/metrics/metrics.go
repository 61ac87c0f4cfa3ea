// Package metrics reports the per-run counters spec'd for a transfer:
// bytes/packets sent, timeouts, retransmits, duration, and throughput.
// Run holds the plain counters the FSMs update directly; Prometheus is an
// optional view over a Run for long-lived processes (the bench harness's
// --metrics-addr flag).
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run accumulates counters for a single sender-side transfer. All fields
// are updated with atomic ops so a caller may read them from another
// goroutine (e.g. a periodic Prometheus scrape) while the transfer is in
// flight.
type Run struct {
	BytesSent   atomic.Int64
	PacketsSent atomic.Int64
	Timeouts    atomic.Int64
	Retransmits atomic.Int64

	start time.Time
	end   atomic.Int64 // UnixNano; 0 while still running
}

// NewRun starts a fresh Run, timer running.
func NewRun() *Run {
	return &Run{start: time.Now()}
}

// Finish stops the run's timer. Safe to call once; later calls are no-ops.
func (r *Run) Finish() {
	r.end.CompareAndSwap(0, time.Now().UnixNano())
}

// DurationSeconds reports elapsed time; if the run hasn't Finish()ed yet
// it reports elapsed-so-far.
func (r *Run) DurationSeconds() float64 {
	end := r.end.Load()
	var endTime time.Time
	if end == 0 {
		endTime = time.Now()
	} else {
		endTime = time.Unix(0, end)
	}
	d := endTime.Sub(r.start).Seconds()
	if d < 0 {
		d = 0
	}
	return d
}

// ThroughputMbps is bytes_sent*8/1e6 / duration_s, 0 if duration is 0.
func (r *Run) ThroughputMbps() float64 {
	d := r.DurationSeconds()
	if d <= 0 {
		return 0
	}
	return float64(r.BytesSent.Load()) * 8 / 1_000_000 / d
}

// Snapshot is the immutable summary reported at the end of a run (spec
// §6.3's six values).
type Snapshot struct {
	BytesSent      int64   `json:"bytes_sent"`
	PacketsSent    int64   `json:"packets_sent"`
	Timeouts       int64   `json:"timeouts"`
	Retransmits    int64   `json:"retransmits"`
	DurationS      float64 `json:"duration_s"`
	ThroughputMbps float64 `json:"throughput_mbps"`
}

// Snapshot takes a point-in-time read of the run's counters.
func (r *Run) Snapshot() Snapshot {
	return Snapshot{
		BytesSent:      r.BytesSent.Load(),
		PacketsSent:    r.PacketsSent.Load(),
		Timeouts:       r.Timeouts.Load(),
		Retransmits:    r.Retransmits.Load(),
		DurationS:      r.DurationSeconds(),
		ThroughputMbps: r.ThroughputMbps(),
	}
}

// Collector exposes a Run's four counters as Prometheus counters and its
// throughput as a gauge (duration is not exported), for processes that
// serve /metrics for the duration of a bench run.
type Collector struct {
	run *Run

	bytesSent   *prometheus.Desc
	packetsSent *prometheus.Desc
	timeouts    *prometheus.Desc
	retransmits *prometheus.Desc
	throughput  *prometheus.Desc
}

// NewCollector wraps run for Prometheus registration.
func NewCollector(run *Run) *Collector {
	return &Collector{
		run:         run,
		bytesSent:   prometheus.NewDesc("rftp_bytes_sent_total", "Bytes sent so far in this run.", nil, nil),
		packetsSent: prometheus.NewDesc("rftp_packets_sent_total", "Datagrams transmitted so far in this run.", nil, nil),
		timeouts:    prometheus.NewDesc("rftp_timeouts_total", "Receive timeouts observed so far.", nil, nil),
		retransmits: prometheus.NewDesc("rftp_retransmits_total", "Frames retransmitted so far.", nil, nil),
		throughput:  prometheus.NewDesc("rftp_throughput_mbps", "Instantaneous throughput in Mbps.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.bytesSent
	ch <- c.packetsSent
	ch <- c.timeouts
	ch <- c.retransmits
	ch <- c.throughput
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.run.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.bytesSent, prometheus.CounterValue, float64(snap.BytesSent))
	ch <- prometheus.MustNewConstMetric(c.packetsSent, prometheus.CounterValue, float64(snap.PacketsSent))
	ch <- prometheus.MustNewConstMetric(c.timeouts, prometheus.CounterValue, float64(snap.Timeouts))
	ch <- prometheus.MustNewConstMetric(c.retransmits, prometheus.CounterValue, float64(snap.Retransmits))
	ch <- prometheus.MustNewConstMetric(c.throughput, prometheus.GaugeValue, snap.ThroughputMbps)
}
