// Package texmem tracks the bytes held by converted textures against an
// optional budget.
package texmem

import (
	"errors"
	"fmt"
	"sync"
)

// ErrBudgetExceeded is returned when a reservation would exceed the budget.
var ErrBudgetExceeded = errors.New("texmem: budget exceeded")

// Budget tracks texture memory in bytes. A zero limit means unlimited.
//
// Budget is safe for concurrent use.
type Budget struct {
	mu sync.Mutex

	limit uint64
	used  uint64
	peak  uint64

	reservations uint64
	refusals     uint64
}

// NewBudget creates a budget of limit bytes.
func NewBudget(limit uint64) *Budget {
	return &Budget{limit: limit}
}

// Reserve accounts for n more bytes.
// It fails without side effects when the budget would be exceeded.
func (b *Budget) Reserve(n int) error {
	if n < 0 {
		return fmt.Errorf("texmem: negative reservation %d", n)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	size := uint64(n)
	if b.limit > 0 && b.used+size > b.limit {
		b.refusals++
		return fmt.Errorf("%w: need %d bytes, %d of %d in use", ErrBudgetExceeded, size, b.used, b.limit)
	}
	b.used += size
	b.reservations++
	if b.used > b.peak {
		b.peak = b.used
	}
	return nil
}

// Release returns n bytes to the budget.
func (b *Budget) Release(n int) {
	if n <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	size := uint64(n)
	if size > b.used {
		size = b.used
	}
	b.used -= size
}

// Used returns the bytes currently reserved.
func (b *Budget) Used() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

// Stats returns a snapshot of the budget.
func (b *Budget) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Stats{
		LimitBytes:   b.limit,
		UsedBytes:    b.used,
		PeakBytes:    b.peak,
		Reservations: b.reservations,
		Refusals:     b.refusals,
	}
	if b.limit > 0 {
		s.AvailableBytes = b.limit - b.used
		s.Utilization = float64(b.used) / float64(b.limit)
	}
	return s
}

// Stats contains texture memory statistics.
type Stats struct {
	// LimitBytes is the budget, 0 when unlimited.
	LimitBytes uint64

	// UsedBytes is the currently reserved memory.
	UsedBytes uint64

	// PeakBytes is the highest UsedBytes seen.
	PeakBytes uint64

	// AvailableBytes is the remaining budget, 0 when unlimited.
	AvailableBytes uint64

	// Reservations counts successful Reserve calls.
	Reservations uint64

	// Refusals counts Reserve calls rejected by the budget.
	Refusals uint64

	// Utilization is UsedBytes / LimitBytes (0.0 to 1.0).
	Utilization float64
}

// String returns a human-readable string of memory stats.
func (s Stats) String() string {
	if s.LimitBytes == 0 {
		return fmt.Sprintf("TexMem[%d KB used, peak %d KB, unlimited]",
			s.UsedBytes/1024, s.PeakBytes/1024)
	}
	return fmt.Sprintf("TexMem[%.1f%% used, %d/%d KB, %d refusals]",
		s.Utilization*100, s.UsedBytes/1024, s.LimitBytes/1024, s.Refusals)
}
