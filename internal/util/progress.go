package util

import (
	"fmt"
	"sync"
)

// BatchProgress tracks the years of a batch through both resolution
// phases. It is safe for concurrent use.
type BatchProgress struct {
	mu       sync.Mutex
	total    int
	built    int
	resolved int
	failed   int
}

// NewBatchProgress creates a tracker for a batch of total years.
func NewBatchProgress(total int) *BatchProgress {
	return &BatchProgress{total: total}
}

func (p *BatchProgress) Built() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.built++
}

func (p *BatchProgress) Resolved() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resolved++
}

func (p *BatchProgress) Failed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed++
}

// Percentage weights the build phase and the split phase equally. Failed
// years count as done for both.
func (p *BatchProgress) Percentage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total <= 0 {
		return 100
	}
	done := p.built + p.resolved + 2*p.failed
	return min(100, done*100/(2*p.total))
}

func (p *BatchProgress) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("built %d/%d, resolved %d/%d, failed %d", p.built, p.total, p.resolved, p.total, p.failed)
}
