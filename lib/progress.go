package lib

import (
	"sync/atomic"
	"time"
)

// ProgressCounts holds counters for the progress indicator and final summary.
// Fields are updated with sync/atomic by hash workers; readers use the Load
// helpers. Discovered is bumped by the walk, Hashed and BytesHashed by workers.
// One ProgressCounts may be shared by the base and test builds. Activity is
// optional.
type ProgressCounts struct {
	Discovered        int64
	Excluded          int64
	Hashed            int64
	BytesHashed       int64
	StartTimeUnixNano int64
	Activity          *WorkerActivity
}

func (p *ProgressCounts) markStarted() {
	if p == nil {
		return
	}
	atomic.CompareAndSwapInt64(&p.StartTimeUnixNano, 0, time.Now().UnixNano())
}

func (p *ProgressCounts) addDiscovered(n int64) {
	if p != nil {
		atomic.AddInt64(&p.Discovered, n)
	}
}

func (p *ProgressCounts) addExcluded(n int64) {
	if p != nil {
		atomic.AddInt64(&p.Excluded, n)
	}
}

func (p *ProgressCounts) recordHashed(workerIdx int, bytes int64) {
	if p == nil {
		return
	}
	atomic.AddInt64(&p.Hashed, 1)
	atomic.AddInt64(&p.BytesHashed, bytes)
	p.Activity.record(workerIdx)
}

// ProgressSnapshot is a consistent-enough copy of ProgressCounts for display.
type ProgressSnapshot struct {
	Discovered  int64
	Excluded    int64
	Hashed      int64
	BytesHashed int64
	Elapsed     time.Duration
}

// Snapshot loads every counter atomically.
func (p *ProgressCounts) Snapshot() ProgressSnapshot {
	if p == nil {
		return ProgressSnapshot{}
	}
	snapshot := ProgressSnapshot{
		Discovered:  atomic.LoadInt64(&p.Discovered),
		Excluded:    atomic.LoadInt64(&p.Excluded),
		Hashed:      atomic.LoadInt64(&p.Hashed),
		BytesHashed: atomic.LoadInt64(&p.BytesHashed),
	}
	if started := atomic.LoadInt64(&p.StartTimeUnixNano); started != 0 {
		snapshot.Elapsed = time.Since(time.Unix(0, started))
	}
	return snapshot
}

// EstimateRemaining extrapolates time left from the average per hashed file.
func EstimateRemaining(elapsed time.Duration, processed, pending int64) time.Duration {
	if processed <= 0 || pending <= 0 {
		return 0
	}
	averagePerFile := elapsed / time.Duration(processed)
	return averagePerFile * time.Duration(pending)
}
