package lib

import (
	"math"
	"sync"
	"sync/atomic"
)

// WorkerActivity counts hashed files per worker slot so the progress line can
// show how many hashing goroutines are actually busy. Slots are worker indexes
// within one build; concurrent builds sharing a tracker share slots.
type WorkerActivity struct {
	files  []atomic.Int64
	window int

	mu      sync.Mutex
	samples [][]int64
}

// NewWorkerActivity tracks workers slots over a sliding window of window
// samples (10 samples at the 100ms progress interval is one second).
func NewWorkerActivity(workers, window int) *WorkerActivity {
	if workers <= 0 {
		workers = 1
	}
	if window <= 0 {
		window = 10
	}
	return &WorkerActivity{files: make([]atomic.Int64, workers), window: window}
}

// Slots returns the number of tracked worker slots.
func (a *WorkerActivity) Slots() int {
	if a == nil {
		return 0
	}
	return len(a.files)
}

// record notes one hashed file for slot. Out-of-range slots are ignored.
func (a *WorkerActivity) record(slot int) {
	if a == nil || slot < 0 || slot >= len(a.files) {
		return
	}
	a.files[slot].Add(1)
}

func (a *WorkerActivity) load() []int64 {
	current := make([]int64, len(a.files))
	for slot := range a.files {
		current[slot] = a.files[slot].Load()
	}
	return current
}

// Sample appends the current counts to the window and returns the percentage
// of slots that hashed at least one file since the oldest sample kept.
// Before a second sample exists it counts slots that hashed anything at all.
func (a *WorkerActivity) Sample() int {
	if a == nil {
		return 0
	}
	current := a.load()
	a.mu.Lock()
	a.samples = append(a.samples, current)
	if len(a.samples) > a.window {
		a.samples = a.samples[1:]
	}
	oldest := a.samples[0]
	sampled := len(a.samples)
	a.mu.Unlock()

	busy := 0
	for slot, count := range current {
		if sampled >= 2 && count > oldest[slot] || sampled < 2 && count > 0 {
			busy++
		}
	}
	return percentOf(busy, len(current))
}

// Overall returns the percentage of slots that hashed at least one file
// during the whole run.
func (a *WorkerActivity) Overall() int {
	if a == nil {
		return 0
	}
	busy := 0
	for _, count := range a.load() {
		if count > 0 {
			busy++
		}
	}
	return percentOf(busy, len(a.files))
}

// percentOf rounds part/total up to a whole percent.
func percentOf(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Ceil(100.0 * float64(part) / float64(total)))
}
