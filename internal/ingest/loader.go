// Package ingest loads bookmark exports from local files and remote URLs.
//
// Every source in a batch is loaded independently: one bad file or
// unreachable URL is reported with its position and name while the rest of
// the batch still contributes records.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/occva/X-Bookmarks/internal/config"
	"github.com/occva/X-Bookmarks/internal/domain"
	"github.com/occva/X-Bookmarks/internal/metrics"
)

// Fetcher retrieves the raw body behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Loader runs batch loads.
type Loader struct {
	fetcher     Fetcher
	concurrency int
	logger      *slog.Logger
}

// NewLoader creates a Loader. fetcher may be nil when only files are loaded.
func NewLoader(fetcher Fetcher, cfg config.IngestConfig, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		fetcher:     fetcher,
		concurrency: cfg.Concurrency,
		logger:      logger,
	}
}

// Result is the outcome of one batch load.
type Result struct {
	LoadID  string
	Sources []domain.Source
	// Records from every successful source, in source order.
	Records []domain.Record
	// Errors holds one entry per failed source, in source order.
	Errors []*domain.SourceError
	// Skipped counts array elements that were not objects.
	Skipped int
	// Loaded is the number of sources that contributed (possibly zero) records.
	Loaded int
}

// Err returns nil unless the batch was empty or every source failed.
func (r *Result) Err() error {
	if len(r.Sources) == 0 {
		return domain.ErrNoSources
	}
	if r.Loaded > 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return fmt.Errorf("%w: %w", domain.ErrNoUsableSource, errors.Join(errs...))
}

// Warning describes a partial failure. It is empty when every source loaded
// or when none did.
func (r *Result) Warning() string {
	if len(r.Errors) == 0 || r.Loaded == 0 {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("loaded %d of %d sources; %d failed: %s",
		r.Loaded, len(r.Sources), len(r.Errors), strings.Join(msgs, "; "))
}

// HasJSONFormatError reports whether any source failed because its data was malformed.
func (r *Result) HasJSONFormatError() bool {
	for _, e := range r.Errors {
		if e.Kind.IsJSONFormat() {
			return true
		}
	}
	return false
}

// Messages returns the per-source error messages.
func (r *Result) Messages() []string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return msgs
}

// LoadFromFiles loads local export files.
func (l *Loader) LoadFromFiles(ctx context.Context, paths []string) *Result {
	sources := make([]domain.Source, len(paths))
	for i, p := range paths {
		sources[i] = domain.Source{Kind: domain.SourceFile, Location: p}
	}
	return l.Load(ctx, sources)
}

// LoadFromURLs loads remote exports.
func (l *Loader) LoadFromURLs(ctx context.Context, urls []string) *Result {
	sources := make([]domain.Source, len(urls))
	for i, u := range urls {
		sources[i] = domain.Source{Kind: domain.SourceURL, Location: strings.TrimSpace(u)}
	}
	return l.Load(ctx, sources)
}

type sourceResult struct {
	records []domain.Record
	skipped int
	err     *domain.SourceError
}

// Load loads a mixed batch of sources. Records and errors come back in
// source order whatever the concurrency.
func (l *Loader) Load(ctx context.Context, sources []domain.Source) *Result {
	res := &Result{
		LoadID:  uuid.NewString(),
		Sources: sources,
	}
	if len(sources) == 0 {
		return res
	}

	logger := l.logger.With("load_id", res.LoadID)
	slots := make([]sourceResult, len(sources))

	if l.concurrency <= 1 {
		for i, src := range sources {
			slots[i] = l.loadOne(ctx, logger, i, src)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(l.concurrency)
		for i, src := range sources {
			g.Go(func() error {
				slots[i] = l.loadOne(gctx, logger, i, src)
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, s := range slots {
		if s.err != nil {
			res.Errors = append(res.Errors, s.err)
			continue
		}
		res.Loaded++
		res.Skipped += s.skipped
		res.Records = append(res.Records, s.records...)
	}

	metrics.RecordsLoaded.Add(float64(len(res.Records)))
	metrics.RecordsSkipped.Add(float64(res.Skipped))

	logger.Info("batch loaded",
		"sources", len(sources),
		"loaded", res.Loaded,
		"failed", len(res.Errors),
		"records", len(res.Records),
		"skipped", res.Skipped,
	)
	return res
}

func (l *Loader) loadOne(ctx context.Context, logger *slog.Logger, index int, src domain.Source) sourceResult {
	data, err := l.read(ctx, src)
	if err == nil {
		var records []domain.Record
		var skipped int
		records, skipped, err = Decode(data)
		if err == nil {
			metrics.IncSource(string(src.Kind), "ok")
			logger.Debug("source loaded",
				"index", index+1,
				"source", src.Location,
				"records", len(records),
				"skipped", skipped,
			)
			return sourceResult{records: records, skipped: skipped}
		}
	}

	serr := domain.NewSourceError(index, src, err)
	metrics.IncSource(string(src.Kind), string(serr.Kind))
	logger.Warn("source failed",
		"index", index+1,
		"source", src.Location,
		"kind", serr.Kind,
		"error", err,
	)
	return sourceResult{err: serr}
}

func (l *Loader) read(ctx context.Context, src domain.Source) ([]byte, error) {
	switch src.Kind {
	case domain.SourceFile:
		return readFile(src.Location)
	case domain.SourceURL:
		if l.fetcher == nil {
			return nil, fmt.Errorf("%w: no fetcher configured", domain.ErrSourceRead)
		}
		data, err := l.fetcher.Fetch(ctx, src.Location)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrSourceRead, err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: unknown source kind %q", domain.ErrSourceRead, src.Kind)
	}
}

func readFile(path string) ([]byte, error) {
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return nil, domain.ErrUnsupportedFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceRead, err)
	}
	return data, nil
}

// ParseURLList splits newline-separated input into trimmed, non-empty URLs.
func ParseURLList(text string) []string {
	var urls []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			urls = append(urls, line)
		}
	}
	return urls
}
