package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	desktop "stepjourney/internal/app"
	"stepjourney/internal/auth"
	"stepjourney/internal/fixtures"
	"stepjourney/internal/httpapi"
	"stepjourney/internal/service"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and websocket event stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer log.Sync()
			if addr != "" {
				cfg.Addr = addr
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			hub := httpapi.NewHub(log)
			core, err := desktop.OpenCore(cfg, log, service.MultiEmitter{hub})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer core.Close(context.Background())
			core.StartPurge(ctx)

			watcher := fixtures.NewWatcher(core.Fixtures, func() {
				hub.Emit(ctx, "fixtures:reloaded", map[string]string{"dir": core.Fixtures.Dir()})
			})
			if err := watcher.Start(ctx); err != nil {
				log.Warn("fixture watcher not started", "dir", core.Fixtures.Dir(), "error", err)
			} else {
				defer watcher.Stop()
			}

			revoker, closeRevoker, err := newRevoker(ctx, cfg.RedisURL)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeRevoker()

			srv := httpapi.New(httpapi.Deps{
				Blocks:     core.Blocks,
				Journeys:   core.Journeys,
				Issuer:     auth.NewIssuer(cfg.JWTSecret, cfg.AccessTTL, revoker),
				Hub:        hub,
				Log:        log,
				CORSOrigin: cfg.CORSOrigin,
			})
			if err := srv.ListenAndServe(ctx, cfg.Addr); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides STEPJOURNEY_ADDR)")
	return cmd
}

// newRevoker uses redis when configured and an in-process set otherwise.
func newRevoker(ctx context.Context, redisURL string) (auth.Revoker, func(), error) {
	if redisURL == "" {
		return auth.NewMemoryRevoker(), func() {}, nil
	}
	r, err := auth.NewRedisRevoker(ctx, redisURL)
	if err != nil {
		return nil, nil, err
	}
	return r, func() { _ = r.Close() }, nil
}
