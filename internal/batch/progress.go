package batch

import (
	"sync"
	"time"
)

// percentMultiplier is used to convert a ratio to percentage (0-100).
const percentMultiplier = 100

// Progress tracks the progress of a batch run. It is safe for concurrent use.
type Progress struct {
	mu sync.RWMutex

	totalItems       int
	processedItems   int
	totalBatches     int
	processedBatches int
	startTime        time.Time
}

// NewProgress creates a progress tracker starting now.
func NewProgress(totalItems, totalBatches int) *Progress {
	return &Progress{
		totalItems:   totalItems,
		totalBatches: totalBatches,
		startTime:    time.Now(),
	}
}

// AddProcessed records one completed batch of itemsProcessed items.
func (p *Progress) AddProcessed(itemsProcessed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processedItems += itemsProcessed
	p.processedBatches++
}

// PercentComplete returns the completion percentage (0-100).
func (p *Progress) PercentComplete() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.percentCompleteUnsafe()
}

// IsComplete returns true if all items have been processed.
func (p *Progress) IsComplete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.processedItems >= p.totalItems
}

// Snapshot returns a copy of the current progress state.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return ProgressSnapshot{
		TotalItems:       p.totalItems,
		ProcessedItems:   p.processedItems,
		TotalBatches:     p.totalBatches,
		ProcessedBatches: p.processedBatches,
		PercentComplete:  p.percentCompleteUnsafe(),
		ElapsedTime:      time.Since(p.startTime),
	}
}

// ProgressSnapshot is an immutable snapshot of progress state.
type ProgressSnapshot struct {
	TotalItems       int
	ProcessedItems   int
	TotalBatches     int
	ProcessedBatches int
	PercentComplete  float64
	ElapsedTime      time.Duration
}

// percentCompleteUnsafe must be called with p.mu held.
func (p *Progress) percentCompleteUnsafe() float64 {
	if p.totalItems == 0 {
		return 0
	}
	return (float64(p.processedItems) / float64(p.totalItems)) * percentMultiplier
}
