package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/photosphere/file-regress-go/lib"
)

const progressInterval = 100 * time.Millisecond

// activityWindow is one second of progress samples.
const activityWindow = 10

func newProgress(cfg *lib.Config) *lib.ProgressCounts {
	return &lib.ProgressCounts{Activity: lib.NewWorkerActivity(cfg.Workers, activityWindow)}
}

// startProgress redraws a one-line status on w while a build runs. It only
// runs when stderr is a terminal and the run is not quiet. The returned func
// stops the loop and clears the line.
func startProgress(w io.Writer, progress *lib.ProgressCounts, cfg *lib.Config) func() {
	if cfg.Quiet || !lib.IsTTY(os.Stderr) {
		return func() {}
	}
	doneCh := make(chan struct{})
	exitedCh := make(chan struct{})
	go func() {
		defer close(exitedCh)
		progressLoop(w, progress, doneCh)
	}()
	return func() {
		close(doneCh)
		<-exitedCh
		fmt.Fprint(w, "\r\033[K")
	}
}

func progressLoop(w io.Writer, progress *lib.ProgressCounts, doneCh <-chan struct{}) {
	tick := time.NewTicker(progressInterval)
	defer tick.Stop()
	for {
		select {
		case <-doneCh:
			return
		case <-tick.C:
			busy := progress.Activity.Sample()
			if line := progressLine(progress.Snapshot(), progress.Activity.Slots(), busy); line != "" {
				fmt.Fprintf(w, "\r%s   ", line)
			}
		}
	}
}

// progressLine renders one status line, or "" before anything was found.
func progressLine(snapshot lib.ProgressSnapshot, numWorkers, busyPercent int) string {
	if snapshot.Discovered == 0 && snapshot.Hashed == 0 {
		return ""
	}
	pending := snapshot.Discovered - snapshot.Excluded - snapshot.Hashed
	if pending < 0 {
		pending = 0
	}
	line := fmt.Sprintf("hashing: %s of %s files, %s (%d workers, %d%% busy)",
		humanize.Comma(snapshot.Hashed),
		humanize.Comma(snapshot.Discovered-snapshot.Excluded),
		humanize.Bytes(uint64(snapshot.BytesHashed)),
		numWorkers, busyPercent)
	if remaining := lib.EstimateRemaining(snapshot.Elapsed, snapshot.Hashed, pending); remaining > 0 {
		line += fmt.Sprintf(", ~%s remaining", remaining.Round(time.Second))
	}
	return line
}

func averagePerFile(snapshot lib.ProgressSnapshot) time.Duration {
	if snapshot.Hashed <= 0 {
		return 0
	}
	return snapshot.Elapsed / time.Duration(snapshot.Hashed)
}

func printInventorySummary(w io.Writer, progress *lib.ProgressCounts) {
	snapshot := progress.Snapshot()
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Files discovered:       %s\n", humanize.Comma(snapshot.Discovered))
	fmt.Fprintf(w, "  Files excluded:         %s\n", humanize.Comma(snapshot.Excluded))
	fmt.Fprintf(w, "  Files hashed:           %s\n", humanize.Comma(snapshot.Hashed))
	fmt.Fprintf(w, "  Bytes hashed:           %s\n", humanize.Bytes(uint64(snapshot.BytesHashed)))
	fmt.Fprintf(w, "  Total time:             %s\n", snapshot.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  Average per file:       %s\n", averagePerFile(snapshot).Round(time.Microsecond))
	fmt.Fprintf(w, "  Workers used:           %d%%\n", progress.Activity.Overall())
}

func printCompareSummary(w io.Writer, result lib.DiffResult, progress *lib.ProgressCounts) {
	counts := result.Counts()
	printInventorySummary(w, progress)
	fmt.Fprintf(w, "  Files unchanged:        %d\n", counts[lib.Unchanged])
	fmt.Fprintf(w, "  Files changed:          %d\n", counts[lib.Changed])
	fmt.Fprintf(w, "  Missing in test:        %d\n", counts[lib.MissingInTest])
	fmt.Fprintf(w, "  Extra in test:          %d\n", counts[lib.ExtraInTest])
}
