// Command matchd runs the matching-core TCP server for one
// instrument.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ironbook/internal/server"
)

func main() {
	address := flag.String("address", "0.0.0.0", "address to listen on")
	port := flag.Int("port", 9001, "port to listen on")
	instrument := flag.String("instrument", "AAPL", "instrument this book matches")
	exchange := flag.String("exchange", "NASDAQ", "exchange name reported on trades")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	srv := server.New(*address, *port, *instrument, *exchange)

	go srv.Run(ctx)

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")
}
