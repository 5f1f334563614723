// Package indexer scans a corpus directory once and builds the immutable
// inverted index served by the query engine.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/pagesearch/internal/indexer/extract"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/tracing"
)

type Engine struct {
	cfg      config.IndexerConfig
	registry *extract.Registry
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewEngine(cfg config.IndexerConfig, registry *extract.Registry, m *metrics.Metrics) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Engine{
		cfg:      cfg,
		registry: registry,
		metrics:  m,
		logger:   slog.Default().With("component", "indexer"),
	}
}

type document struct {
	name      string
	path      string
	extractor extract.Extractor
}

// Build scans every regular file directly inside dir and returns the frozen
// index. Listing or open failures wrap ErrCorpusUnavailable; unreadable page
// text wraps ErrExtraction. Unless SkipFailedDocuments is set, the first such
// failure aborts the whole build.
func (e *Engine) Build(ctx context.Context, dir string) (*index.Index, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "index.build", filepath.Base(dir))
	defer func() {
		span.End()
		span.Log(e.logger)
	}()

	docs, err := e.listDocuments(dir)
	if err != nil {
		return nil, err
	}
	span.SetAttr("documents", len(docs))
	e.logger.Info("corpus scan started",
		"dir", dir,
		"documents", len(docs),
		"workers", e.cfg.Workers,
	)

	builder := index.NewBuilder()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for _, doc := range docs {
		g.Go(func() error {
			pages, err := e.scanDocument(gctx, doc)
			if err != nil {
				return e.handleFailure(doc, err)
			}
			if err := builder.AddDocument(doc.name, pages); err != nil {
				return err
			}
			e.metrics.DocsIndexedTotal.Inc()
			e.metrics.PagesIndexedTotal.Add(float64(len(pages)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("indexing %s: %w", dir, err)
	}

	idx := builder.Build()
	stats := idx.Stats()
	elapsed := time.Since(start)
	e.metrics.IndexTerms.Set(float64(stats.Terms))
	e.metrics.IndexBuildSeconds.Set(elapsed.Seconds())
	e.logger.Info("corpus scan complete",
		"documents", stats.Documents,
		"pages", stats.Pages,
		"terms", stats.Terms,
		"records", stats.Records,
		"elapsed", elapsed.Round(time.Millisecond),
	)
	return idx, nil
}

// listDocuments enumerates dir without recursion. Sub-directories and
// dot-files are ignored; files without a registered extractor are skipped
// with a warning.
func (e *Engine) listDocuments(dir string) ([]document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorpusUnavailable, "listing %s: %v", dir, err)
	}
	docs := make([]document, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)
		ext, ok := e.registry.For(path)
		if !ok {
			e.metrics.DocFailuresTotal.WithLabelValues("unsupported").Inc()
			e.logger.Warn("no extractor for document, skipping", "document", name)
			continue
		}
		docs = append(docs, document{name: name, path: path, extractor: ext})
	}
	return docs, nil
}

// scanDocument returns the term counts of every page of doc, page 1 first.
func (e *Engine) scanDocument(ctx context.Context, doc document) ([]index.PageCounts, error) {
	_, span := tracing.StartChildSpan(ctx, "index.document")
	span.SetAttr("document", doc.name)
	defer span.End()

	d, err := doc.extractor.Open(doc.path)
	if err != nil {
		return nil, err
	}
	defer d.Close()

	numPages := d.NumPages()
	pages := make([]index.PageCounts, 0, numPages)
	for page := 1; page <= numPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := d.PageText(page)
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenizer.Count(text))
	}
	span.SetAttr("pages", numPages)
	e.logger.Debug("document scanned", "document", doc.name, "pages", numPages)
	return pages, nil
}

func (e *Engine) handleFailure(doc document, err error) error {
	reason := "other"
	switch {
	case errors.Is(err, apperrors.ErrCorpusUnavailable):
		reason = "open"
	case errors.Is(err, apperrors.ErrExtraction):
		reason = "extraction"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	e.metrics.DocFailuresTotal.WithLabelValues(reason).Inc()
	if e.cfg.SkipFailedDocuments && reason != "other" {
		e.logger.Warn("document skipped", "document", doc.name, "reason", reason, "error", err)
		return nil
	}
	return fmt.Errorf("document %s: %w", doc.name, err)
}
