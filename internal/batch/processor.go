package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Default batch processing configuration.
const (
	// DefaultBatchSize is the default number of items per batch.
	DefaultBatchSize = 100

	// MinBatchSize is the minimum allowed batch size.
	MinBatchSize = 1

	// MaxBatchSize is the maximum allowed batch size.
	MaxBatchSize = 1000
)

// Common batch processing errors.
var (
	ErrInvalidBatchSize = errors.New("batch size must be between 1 and 1000")
	ErrNilCallback      = errors.New("batch callback cannot be nil")
	ErrEmptyItems       = errors.New("items slice cannot be empty")
)

// Callback processes a single batch. batchIndex is 0-based.
type Callback[T any] func(ctx context.Context, batch []T, batchIndex int) error

// ProgressCallback is invoked after each completed batch. Calls are serialised.
type ProgressCallback func(snapshot ProgressSnapshot)

// Processor splits items into fixed-size batches.
type Processor[T any] struct {
	batchSize  int
	onProgress ProgressCallback

	// mu serialises progress callbacks from concurrent batches.
	mu sync.Mutex
}

// NewProcessor creates a new batch processor with the given batch size.
func NewProcessor[T any](batchSize int) (*Processor[T], error) {
	if batchSize < MinBatchSize || batchSize > MaxBatchSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, batchSize)
	}
	return &Processor[T]{batchSize: batchSize}, nil
}

// WithProgressCallback sets a progress callback for the processor.
func (p *Processor[T]) WithProgressCallback(callback ProgressCallback) *Processor[T] {
	p.onProgress = callback
	return p
}

// BatchSize returns the configured batch size.
func (p *Processor[T]) BatchSize() int {
	return p.batchSize
}

// Process runs callback over each batch in order and stops on the first error.
func (p *Processor[T]) Process(ctx context.Context, items []T, callback Callback[T]) error {
	return p.ProcessConcurrent(ctx, items, callback, 1)
}

// ProcessConcurrent runs up to maxConcurrency batches at once. The first
// failure cancels the context passed to the remaining batches and is returned.
func (p *Processor[T]) ProcessConcurrent(
	ctx context.Context,
	items []T,
	callback Callback[T],
	maxConcurrency int,
) error {
	if len(items) == 0 {
		return ErrEmptyItems
	}
	if callback == nil {
		return ErrNilCallback
	}
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	bounds := p.CalculateBatches(len(items))
	progress := NewProgress(len(items), len(bounds))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	for batchIndex, b := range bounds {
		if gCtx.Err() != nil {
			break
		}
		batch := items[b[0]:b[1]]
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			if err := callback(gCtx, batch, batchIndex); err != nil {
				return fmt.Errorf("batch %d failed: %w", batchIndex, err)
			}
			p.report(progress, len(batch))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// CalculateBatches returns the [start, end) bounds of each batch.
func (p *Processor[T]) CalculateBatches(totalItems int) [][2]int {
	totalBatches := totalItems / p.batchSize
	if totalItems%p.batchSize > 0 {
		totalBatches++
	}

	batches := make([][2]int, totalBatches)
	for i := range totalBatches {
		start := i * p.batchSize
		end := min(start+p.batchSize, totalItems)
		batches[i] = [2]int{start, end}
	}
	return batches
}

func (p *Processor[T]) report(progress *Progress, itemsProcessed int) {
	progress.AddProcessed(itemsProcessed)
	if p.onProgress == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onProgress(progress.Snapshot())
}
