// xbookmarks renders bookmark exports (JSON arrays of tweet records) as a
// browsable feed: a local web viewer, a static HTML page, a terminal browser
// and a per-author stats table.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/occva/X-Bookmarks/internal/config"
	"github.com/occva/X-Bookmarks/internal/domain"
	"github.com/occva/X-Bookmarks/internal/fetch"
	"github.com/occva/X-Bookmarks/internal/ingest"
	"github.com/occva/X-Bookmarks/internal/recent"
	"github.com/occva/X-Bookmarks/internal/service"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

var (
	// Global flags
	configPath string
	logLevel   string
	logFormat  string

	// Source flags shared by the loading commands
	sourceURLs []string
	noRecent   bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "xbookmarks",
	Short: "Browse bookmark exports as a tweet feed",
	Long: `xbookmarks loads one or more bookmark exports (JSON arrays of tweet
records) from local files or URLs, merges and deduplicates them, and shows
the result as a feed.

Sources are given as file arguments and --url flags. When none are given,
the most recently loaded sources are used.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json (overrides config)")

	for _, cmd := range []*cobra.Command{serveCmd, renderCmd, statsCmd, browseCmd} {
		cmd.Flags().StringSliceVarP(&sourceURLs, "url", "u", nil, "Export URL to load (repeatable)")
		cmd.Flags().BoolVar(&noRecent, "no-recent", false, "Do not fall back to the most recent sources")
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(recentCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the wired dependencies of one command run.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	fetcher *fetch.Client
	store   recent.Store
	svc     *service.FeedService
}

// newApp loads configuration and wires the feed service. Logs go to logOut.
func newApp(logOut io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	logger, err := newLogger(logOut, cfg.Log)
	if err != nil {
		return nil, err
	}

	store, err := recent.Open(cfg.Recent)
	if err != nil {
		logger.Warn("recent sources unavailable", "backend", cfg.Recent.Backend, "error", err)
		store = recent.NopStore{}
	}

	fetcher := fetch.NewClient(cfg.Fetch, logger)
	loader := ingest.NewLoader(fetcher, cfg.Ingest, logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		fetcher: fetcher,
		store:   store,
		svc:     service.NewFeedService(loader, store, logger),
	}, nil
}

// Close releases the app's resources.
func (a *app) Close() {
	a.fetcher.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close recent store", "error", err)
	}
}

// newLogger builds the process logger from the log configuration.
func newLogger(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

// sourceRequest builds a load request from file arguments and --url flags,
// falling back to the newest recent entry when both are empty.
func (a *app) sourceRequest(ctx context.Context, files []string, fallback bool) (service.LoadRequest, error) {
	req := service.LoadRequest{Files: files}
	for _, u := range sourceURLs {
		req.URLs = append(req.URLs, ingest.ParseURLList(u)...)
	}
	if !req.Empty() || !fallback {
		return req, nil
	}

	entries, err := a.store.List(ctx)
	if err != nil {
		return req, fmt.Errorf("list recent sources: %w", err)
	}
	if len(entries) == 0 {
		return req, domain.ErrNoSources
	}

	latest := entries[0]
	a.logger.Info("using most recent sources", "name", latest.Name, "kind", latest.Kind)
	if latest.Kind == domain.SourceFile {
		req.Files = latest.Locations
	} else {
		req.URLs = latest.Locations
	}
	return req, nil
}

// load resolves the sources and loads them, reporting a partial failure as
// a warning.
func (a *app) load(ctx context.Context, files []string) (*service.LoadOutcome, error) {
	req, err := a.sourceRequest(ctx, files, !noRecent)
	if err != nil {
		return nil, err
	}
	if req.Empty() {
		return nil, domain.ErrNoSources
	}

	outcome, err := a.svc.Load(ctx, req)
	if err != nil {
		if outcome != nil && outcome.JSONFormatError {
			return outcome, fmt.Errorf("malformed export data: %w", err)
		}
		return outcome, err
	}
	if outcome.Warning != "" {
		a.logger.Warn(outcome.Warning)
	}
	return outcome, nil
}

// commandContext returns the command's context, or Background when the
// command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
