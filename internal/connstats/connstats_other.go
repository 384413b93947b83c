//go:build !linux

// Non-Linux stub: TCP_INFO sampling is a Linux-specific syscall (§2b of
// SPEC_FULL.md); on other platforms the collector tracks nothing and
// reports no metrics, matching runZeroInc-sockstats/pkg/tcpinfo's own
// per-platform stub pattern for unsupported GOOS values.
package connstats

import (
	"net"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is a no-op stand-in on platforms without TCP_INFO support.
type Collector struct{}

// NewCollector builds a no-op Collector.
func NewCollector() *Collector { return &Collector{} }

// Add is a no-op on this platform.
func (c *Collector) Add(conn net.Conn) {}

// Remove is a no-op on this platform.
func (c *Collector) Remove(conn net.Conn) {}

// Describe implements prometheus.Collector with no descriptors.
func (c *Collector) Describe(descs chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector with no metrics.
func (c *Collector) Collect(metrics chan<- prometheus.Metric) {}
