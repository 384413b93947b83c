//go:build linux

// Package connstats samples per-connection TCP_INFO socket statistics
// (RTT, congestion window, retransmits) and exposes them as Prometheus
// metrics on the /metrics endpoint, alongside (not through) the §4.8
// stdout stats line. Grounded on runZeroInc-sockstats/pkg/exporter/exporter.go's
// TCPInfoCollector shape (Add/Remove a tracked net.Conn, Collect reads
// TCP_INFO for each), adapted to use golang.org/x/sys/unix's own
// GetsockoptTCPInfo directly rather than hand-rolling the raw kernel
// struct layout that repo's pkg/linux/tcpinfo.go does — x/sys/unix
// already exposes the fields this server needs (Rtt, Snd_cwnd,
// Retrans).
package connstats

import (
	"net"
	"sync"

	"github.com/higebu/netfd"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sys/unix"
)

// Collector is a prometheus.Collector tracking the fds of currently
// active connections.
type Collector struct {
	mu    sync.Mutex
	conns map[net.Conn]int // net.Conn -> raw fd

	rtt         *prometheus.Desc
	cwnd        *prometheus.Desc
	retransmits *prometheus.Desc
}

// NewCollector builds a Collector. Register it with a
// prometheus.Registry to expose it.
func NewCollector() *Collector {
	return &Collector{
		conns: make(map[net.Conn]int),
		rtt: prometheus.NewDesc("bluebox_conn_rtt_microseconds",
			"Smoothed round-trip time of a tracked connection.", nil, nil),
		cwnd: prometheus.NewDesc("bluebox_conn_cwnd_segments",
			"Congestion window of a tracked connection, in segments.", nil, nil),
		retransmits: prometheus.NewDesc("bluebox_conn_retransmits_total",
			"Retransmitted segments on a tracked connection.", nil, nil),
	}
}

// Add starts tracking conn. Only *net.TCPConn-backed connections yield
// a usable fd; others are silently ignored, since TCP_INFO is
// meaningless for them.
func (c *Collector) Add(conn net.Conn) {
	fd := netfd.GetFdFromConn(conn)
	if fd < 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conns[conn] = fd
}

// Remove stops tracking conn, called when the connection driver tears
// down (§4.6's "On exit, close the stream").
func (c *Collector) Remove(conn net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conns, conn)
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.rtt
	descs <- c.cwnd
	descs <- c.retransmits
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for conn, fd := range c.conns {
		info, err := unix.GetsockoptTCPInfo(fd, unix.IPPROTO_TCP, unix.TCP_INFO)
		if err != nil {
			delete(c.conns, conn)
			continue
		}
		metrics <- prometheus.MustNewConstMetric(c.rtt, prometheus.GaugeValue, float64(info.Rtt))
		metrics <- prometheus.MustNewConstMetric(c.cwnd, prometheus.GaugeValue, float64(info.Snd_cwnd))
		metrics <- prometheus.MustNewConstMetric(c.retransmits, prometheus.CounterValue, float64(info.Retrans))
	}
}
