package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"vidar/internal/engine"
	"vidar/internal/metrics"
	"vidar/internal/net"
)

func main() {
	address := flag.String("address", "0.0.0.0", "Listen address")
	port := flag.Int("port", 9001, "Listen port")
	metricsAddr := flag.String("metrics", ":9100", "Prometheus listen address")
	capacity := flag.Int("capacity", 1_000_000, "Order arena capacity hint")
	flag.Parse()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	collector := metrics.NewCollector()
	go func() {
		if err := collector.Serve(*metricsAddr); err != nil {
			log.Error().Err(err).Msg("metrics endpoint stopped")
		}
	}()

	// Setup the TCP gateway and the matching engine.
	eng := engine.New(*capacity)
	eng.SetCollector(collector)
	srv := net.New(*address, *port, eng)
	eng.SetReporter(srv)

	go srv.Run(ctx)
	// Block on running the server.
	<-ctx.Done()
}
