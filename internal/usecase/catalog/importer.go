// Package catalog seeds the item store from a catalog file.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/souq/internal/domain"
	domitem "github.com/kailas-cloud/souq/internal/domain/item"
	"github.com/kailas-cloud/souq/internal/metrics"
	itemuc "github.com/kailas-cloud/souq/internal/usecase/item"
)

// Import defaults.
const (
	DefaultWorkers   = 8
	DefaultBatchSize = 100
)

// Writer stores items in bulk.
type Writer interface {
	SaveMany(ctx context.Context, items []domitem.Item) error
}

// Failure describes an entry that was not imported.
type Failure struct {
	Index int
	ID    string
	Err   error
}

// Report summarizes an import run.
type Report struct {
	Imported []string
	Failed   []Failure
}

// Options configure an Importer.
type Options struct {
	Workers   int
	BatchSize int
	Indexer   itemuc.Indexer
	Logger    *zap.Logger
}

// Importer embeds catalog entries on a bounded worker pool and writes them
// in pipelined batches.
type Importer struct {
	embed     itemuc.Embedder
	writer    Writer
	indexer   itemuc.Indexer
	workers   int
	batchSize int
	logger    *zap.Logger
	now       func() time.Time
}

// NewImporter creates an importer.
func NewImporter(embed itemuc.Embedder, writer Writer, opts Options) *Importer {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Importer{
		embed:     embed,
		writer:    writer,
		indexer:   opts.Indexer,
		workers:   opts.Workers,
		batchSize: opts.BatchSize,
		logger:    opts.Logger,
		now:       time.Now,
	}
}

// Import embeds and stores entries. Entries that fail validation or
// embedding are reported in Report.Failed; a storage failure aborts the run.
func (im *Importer) Import(ctx context.Context, entries []Entry) (Report, error) {
	pool, err := ants.NewPool(im.workers)
	if err != nil {
		return Report{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	built := make([]domitem.Item, len(entries))
	errs := make([]error, len(entries))

	var wg sync.WaitGroup
	for i := range entries {
		if ctx.Err() != nil {
			errs[i] = ctx.Err()
			continue
		}
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			built[i], errs[i] = im.build(ctx, entries[i])
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = fmt.Errorf("submit: %w", submitErr)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Report{}, fmt.Errorf("import: %w", err)
	}

	var report Report
	ready := make([]domitem.Item, 0, len(entries))
	for i := range entries {
		if errs[i] != nil {
			report.Failed = append(report.Failed, Failure{Index: i, ID: entries[i].ID, Err: errs[i]})
			metrics.CatalogImportItemsTotal.WithLabelValues("failed").Inc()
			im.logger.Warn("Catalog entry skipped", zap.Int("index", i), zap.String("id", entries[i].ID), zap.Error(errs[i]))
			continue
		}
		ready = append(ready, built[i])
	}

	for start := 0; start < len(ready); start += im.batchSize {
		batch := ready[start:min(start+im.batchSize, len(ready))]
		if err := im.writer.SaveMany(ctx, batch); err != nil {
			return report, fmt.Errorf("save batch at %d: %w", start, err)
		}
		if im.indexer != nil {
			if err := im.indexer.Index(ctx, batch...); err != nil {
				return report, fmt.Errorf("index batch at %d: %w", start, err)
			}
		}
		report.Imported = append(report.Imported, domitem.IDs(batch)...)
		metrics.CatalogImportItemsTotal.WithLabelValues("imported").Add(float64(len(batch)))
	}

	im.logger.Info("Catalog import finished",
		zap.Int("imported", len(report.Imported)),
		zap.Int("failed", len(report.Failed)),
	)
	return report, nil
}

func (im *Importer) build(ctx context.Context, e Entry) (domitem.Item, error) {
	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}
	it, err := domitem.New(id, e.Input(), im.now())
	if err != nil {
		return domitem.Item{}, fmt.Errorf("%w: %w", domain.ErrInvalidItem, err)
	}
	vectors, err := itemuc.Vectorize(ctx, im.embed, &it)
	if err != nil {
		return domitem.Item{}, err //nolint:wrapcheck // wrapped per language
	}
	return it.WithVectors(vectors), nil
}

// Err joins the failures of a report, or returns nil.
func (r Report) Err() error {
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("entry %d (%s): %w", f.Index, f.ID, f.Err))
	}
	return errors.Join(errs...)
}
