// Command bluebox runs the BlueBox in-memory key/value server (§4.7).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/stlalpha/bluebox/internal/bulk"
	"github.com/stlalpha/bluebox/internal/connstats"
	"github.com/stlalpha/bluebox/internal/logging"
	"github.com/stlalpha/bluebox/internal/server"
)

func main() {
	port := flag.Int("port", 9999, "TCP port to listen on")
	metricsPort := flag.Int("metrics-port", 0, "port to serve Prometheus /metrics on (0 disables)")
	usePool := flag.Bool("pool", true, "enable the optional small-bulk pool")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logging.DebugEnabled = *debug || os.Getenv("DEBUG") != ""

	if *port <= 0 || *port > 65535 {
		fmt.Fprintf(os.Stderr, "bluebox: invalid port %d\n", *port)
		os.Exit(1)
	}

	if err := server.RaiseFileLimit(); err != nil {
		fmt.Fprintf(os.Stderr, "bluebox: raising RLIMIT_NOFILE: %v (continuing)\n", err)
	}

	var pool *bulk.Pool
	if *usePool {
		pool = bulk.NewPool()
	}

	var stats *connstats.Collector
	if *metricsPort > 0 {
		stats = connstats.NewCollector()
	}

	srv := server.New(server.Config{
		Port:  *port,
		Pool:  pool,
		Stats: stats,
	})

	if err := srv.Listen(); err != nil {
		fmt.Fprintf(os.Stderr, "bluebox: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Using switch method: goroutines")
	fmt.Printf("Started BlueBox on port %d\n", *port)

	if *metricsPort > 0 {
		addr := fmt.Sprintf(":%d", *metricsPort)
		go func() {
			if err := srv.ServeMetrics(addr); err != nil {
				fmt.Fprintf(os.Stderr, "bluebox: metrics server: %v\n", err)
			}
		}()
	}

	if err := srv.Serve(); err != nil {
		fmt.Fprintf(os.Stderr, "bluebox: accept: %v\n", err)
		os.Exit(1)
	}
}
