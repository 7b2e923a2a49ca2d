package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/ecoboard"
	"github.com/jpalmerr/ecoboard/example/mockapi"
)

func main() {
	// start the mock optimisation API on a free port
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		slog.Error("failed to listen", "error", err)
		os.Exit(1)
	}
	api := &http.Server{
		Handler:           mockapi.New(mockapi.DefaultFleet, nil, slog.Default()).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() { _ = api.Serve(ln) }()
	defer func() { _ = api.Close() }()

	d, err := ecoboard.New(
		ecoboard.WithAPIBase("http://"+ln.Addr().String()),
		ecoboard.WithPollingInterval(5*time.Second),
		ecoboard.WithPort(8080),
		ecoboard.WithTitle("EcoBoard Demo"),
		ecoboard.WithRenderCallback(func(e ecoboard.RenderEvent) {
			if e.Summary == nil {
				return
			}
			cards := e.Summary.Cards()
			slog.Info("metrics updated",
				"utilization", cards[0].Value,
				"savings", cards[1].Value,
				"energy", cards[2].Value,
			)
		}),
	)
	if err != nil {
		slog.Error("failed to create ecoboard", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   EcoBoard Demo                                       ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:8080 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Mock fleet: 3 servers, capacity 450                 ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.Start(ctx); err != nil {
		slog.Error("ecoboard error", "error", err)
		os.Exit(1)
	}
}
