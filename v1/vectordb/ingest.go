package vectordb

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/Aleph-Alpha/connectors/v1/ai"
	"github.com/Aleph-Alpha/connectors/v1/observability"
)

//go:generate mockgen -source=ingest.go -destination=mock_logger.go -package=vectordb

// Logger is the logging surface the ingestion pipeline needs.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})
}

const (
	DefaultIngestBatchSize   = 32
	DefaultIngestWorkers     = 4
	DefaultIngestMaxAttempts = 3
	DefaultIngestBaseDelay   = 200 * time.Millisecond
)

// IngestConfig tunes an Ingestor. Zero values take the defaults above.
type IngestConfig struct {
	BatchSize   int           `yaml:"batchSize" envconfig:"VECTORDB_INGEST_BATCH_SIZE"`
	Workers     int           `yaml:"workers" envconfig:"VECTORDB_INGEST_WORKERS"`
	MaxAttempts int           `yaml:"maxAttempts" envconfig:"VECTORDB_INGEST_MAX_ATTEMPTS"`
	BaseDelay   time.Duration `yaml:"baseDelay" envconfig:"VECTORDB_INGEST_BASE_DELAY"`

	// TextField is the internal payload field the document text is stored under.
	TextField string `yaml:"textField" envconfig:"VECTORDB_INGEST_TEXT_FIELD"`
}

func (c *IngestConfig) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultIngestBatchSize
	}
	if c.Workers <= 0 {
		c.Workers = DefaultIngestWorkers
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultIngestMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultIngestBaseDelay
	}
	if c.TextField == "" {
		c.TextField = DefaultTextField
	}
}

type IngestOption func(*Ingestor)

func WithIngestLogger(l Logger) IngestOption {
	return func(i *Ingestor) { i.logger = l }
}

func WithIngestObserver(o observability.Observer) IngestOption {
	return func(i *Ingestor) { i.observer = o }
}

// Ingestor embeds documents in batches and writes them to a Service. Batches
// run concurrently on a bounded worker pool; transient failures are retried
// with exponential backoff.
type Ingestor struct {
	embedder ai.EmbeddingGenerator
	store    Service
	cfg      IngestConfig
	pool     *ants.Pool
	logger   Logger
	observer observability.Observer
}

func NewIngestor(embedder ai.EmbeddingGenerator, store Service, cfg IngestConfig, opts ...IngestOption) (*Ingestor, error) {
	if embedder == nil || store == nil {
		return nil, errors.New("vectordb: ingestor needs an embedder and a store")
	}
	cfg.applyDefaults()
	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("creating ingest pool: %w", err)
	}
	i := &Ingestor{embedder: embedder, store: store, cfg: cfg, pool: pool}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Close releases the worker pool.
func (i *Ingestor) Close() {
	i.pool.Release()
}

// Ingest stores docs in collection. The returned slice has one entry per
// document, nil when the document was stored. The error is non-nil only when
// ingestion could not run at all (missing collection, cancelled context,
// closed pool).
func (i *Ingestor) Ingest(ctx context.Context, collection string, docs []Document) ([]error, error) {
	start := time.Now()
	errs := make([]error, len(docs))
	if len(docs) == 0 {
		return errs, nil
	}
	exists, err := i.store.CollectionExists(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}

	var valid []int
	for idx, d := range docs {
		switch {
		case d.ID == "":
			errs[idx] = fmt.Errorf("%w: document [%d] has no id", ErrInvalidRecord, idx)
		case d.Text == "":
			errs[idx] = fmt.Errorf("%w: document %s has no text", ErrInvalidRecord, d.ID)
		default:
			valid = append(valid, idx)
		}
	}

	var wg sync.WaitGroup
	var submitErr error
	for lo := 0; lo < len(valid); lo += i.cfg.BatchSize {
		batch := valid[lo:min(lo+i.cfg.BatchSize, len(valid))]
		wg.Add(1)
		err := i.pool.Submit(func() {
			defer wg.Done()
			if err := i.ingestBatch(ctx, collection, docs, batch); err != nil {
				for _, idx := range batch {
					errs[idx] = err
				}
			}
		})
		if err != nil {
			wg.Done()
			submitErr = fmt.Errorf("submitting ingest batch: %w", err)
			break
		}
	}
	wg.Wait()

	failed := 0
	for _, e := range errs {
		if e != nil {
			failed++
		}
	}
	i.observe(ctx, collection, start, int64(len(docs)-failed), errors.Join(submitErr, ctx.Err()))
	if i.logger != nil {
		i.logger.Info("ingestion finished", nil, map[string]interface{}{
			"collection": collection,
			"documents":  len(docs),
			"failed":     failed,
		})
	}
	if submitErr != nil {
		return errs, submitErr
	}
	return errs, ctx.Err()
}

func (i *Ingestor) ingestBatch(ctx context.Context, collection string, docs []Document, batch []int) error {
	texts := make([]string, len(batch))
	for n, idx := range batch {
		texts[n] = docs[idx].Text
	}

	var vectors [][]float32
	err := i.retry(ctx, "embed", func() error {
		v, err := i.embedder.GenerateEmbeddings(ctx, texts)
		if err != nil {
			return err
		}
		if len(v) != len(texts) {
			return fmt.Errorf("expected %d embeddings, got %d", len(texts), len(v))
		}
		vectors = v
		return nil
	})
	if err != nil {
		return fmt.Errorf("embedding batch: %w", err)
	}

	records := make([]Record, len(batch))
	for n, idx := range batch {
		d := docs[idx]
		payload := maps.Clone(d.Payload)
		if payload == nil {
			payload = map[string]any{}
		}
		payload[i.cfg.TextField] = d.Text
		records[n] = Record{ID: d.ID, Vector: vectors[n], Payload: payload}
	}
	if err := i.retry(ctx, "upsert", func() error {
		return i.store.Upsert(ctx, collection, records)
	}); err != nil {
		return fmt.Errorf("storing batch: %w", err)
	}
	return nil
}

// retry runs op until it succeeds, fails permanently or attempts run out.
// The delay doubles after every failed attempt.
func (i *Ingestor) retry(ctx context.Context, step string, op func() error) error {
	delay := i.cfg.BaseDelay
	var err error
	for attempt := 1; attempt <= i.cfg.MaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err = op(); err == nil || permanent(err) {
			return err
		}
		if i.logger != nil {
			i.logger.Warn("ingest step failed", err, map[string]interface{}{
				"step":    step,
				"attempt": attempt,
			})
		}
		if attempt == i.cfg.MaxAttempts {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return err
}

func permanent(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrInvalidRecord) ||
		errors.Is(err, ErrDimensionMismatch) ||
		errors.Is(err, ErrCollectionNotFound) ||
		errors.Is(err, ai.ErrInvalidRequest) ||
		errors.Is(err, ai.ErrAuthentication)
}

func (i *Ingestor) observe(_ context.Context, collection string, start time.Time, size int64, err error) {
	if i.observer == nil {
		return
	}
	i.observer.ObserveOperation(observability.OperationContext{
		Component: "vectordb",
		Operation: "ingest",
		Resource:  collection,
		Duration:  time.Since(start),
		Error:     err,
		Size:      size,
	})
}
