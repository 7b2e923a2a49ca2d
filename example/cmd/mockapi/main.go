// Standalone mock optimisation API for trying the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockapi [--addr :5000] [--seed 42]
//
// Then in another terminal:
//
//	go run ./cmd/ecoboard serve
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/ecoboard/example/mockapi"
)

const shutdownTimeout = 5 * time.Second

func newRootCmd() *cobra.Command {
	var (
		addr string
		seed uint64
	)

	cmd := &cobra.Command{
		Use:          "mockapi",
		Short:        "Serve a fake optimisation API with random fleet data",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rng *rand.Rand
			if cmd.Flags().Changed("seed") {
				rng = rand.New(rand.NewPCG(seed, seed))
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", addr, err)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Mock optimisation API listening on %s\n", ln.Addr())
			_, _ = fmt.Fprintln(out, "Endpoints: /api/usage_data, /api/optimize, /api/predict_load")
			_, _ = fmt.Fprintln(out, "Press Ctrl+C to stop")

			return serve(cmd.Context(), ln, mockapi.New(mockapi.DefaultFleet, rng, slog.Default()).Handler())
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":5000", "listen address")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed for reproducible data (random when unset)")

	return cmd
}

// serve runs until ctx is cancelled, then drains open requests.
func serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
