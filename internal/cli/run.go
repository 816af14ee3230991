package cli

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/die-net/tlsrelay/internal/metrics"
	"github.com/die-net/tlsrelay/internal/server"
)

// Run runs srv, plus the metrics listener when metricsAddr is set, until
// srv stops. A failing metrics listener stops srv too.
func Run(ctx context.Context, srv *server.Server, metricsAddr string, m *metrics.Metrics, log *slog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if metricsAddr != "" {
		if _, err := ServeMetrics(ctx, g, metricsAddr, m, log); err != nil {
			return err
		}
	}

	g.Go(func() error {
		defer cancel()
		return srv.Run(ctx)
	})

	return g.Wait()
}
