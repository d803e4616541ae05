package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/occva/X-Bookmarks/internal/api"
	"github.com/occva/X-Bookmarks/internal/api/handler"
	"github.com/occva/X-Bookmarks/internal/domain"
	"github.com/occva/X-Bookmarks/internal/refresh"
	"github.com/occva/X-Bookmarks/internal/watch"
)

var (
	serveAddr    string
	serveWatch   bool
	serveRefresh time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve [files...]",
	Short: "Serve the feed in a local web viewer",
	Long: `Starts a local HTTP viewer for the given sources. More sources can be
loaded later through POST /api/v1/load.

With --watch, local files are reloaded when they change on disk. With
--refresh, every source is reloaded on a fixed interval, which keeps
remote exports current.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "Reload when loaded files change")
	serveCmd.Flags().DurationVar(&serveRefresh, "refresh", 0, "Reload all sources on this interval (overrides config, 0 disables)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome, err := a.load(ctx, args)
	switch {
	case errors.Is(err, domain.ErrNoSources):
		a.logger.Info("no sources given; load them through the API")
	case err != nil:
		return err
	default:
		a.logger.Info("initial load complete", "records", outcome.Records, "distinct", outcome.Distinct)
	}

	if serveWatch {
		files := a.svc.Files()
		if len(files) == 0 {
			a.logger.Warn("--watch has no local files to watch")
		} else {
			w, err := watch.New(files, watch.DefaultDebounce, func(ctx context.Context) {
				if _, err := a.svc.Reload(ctx); err != nil {
					a.logger.Warn("reload after change failed", "error", err)
				}
			}, a.logger)
			if err != nil {
				return fmt.Errorf("watch files: %w", err)
			}
			if err := w.Start(ctx); err != nil {
				return fmt.Errorf("watch files: %w", err)
			}
			defer w.Stop()
		}
	}

	interval := a.cfg.Server.RefreshInterval
	if cmd.Flags().Changed("refresh") {
		interval = serveRefresh
	}
	var refreshHandler *handler.RefreshHandler
	if interval > 0 {
		monitor := refresh.NewMonitor(interval, a.svc, a.logger)
		go monitor.Start(ctx)
		refreshHandler = handler.NewRefreshHandler(monitor)
	}

	router := api.NewRouter(
		handler.NewFeedHandler(a.svc, a.cfg.Server.PageSize, a.logger),
		handler.NewUIHandler(a.svc, a.cfg.Server.PageSize, a.logger),
		handler.NewHealthHandler(a.svc),
		refreshHandler,
		a.cfg.Server.RequestTimeout,
		a.logger,
	)

	addr := a.cfg.Server.Address()
	if serveAddr != "" {
		addr = serveAddr
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server", "addr", srv.Addr)
		fmt.Fprintf(cmd.OutOrStdout(), "Viewer running at http://%s/\n", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}
