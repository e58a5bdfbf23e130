package language

import (
	"fmt"
	"io"

	"github.com/cheggaaa/pb/v3"
)

// Reporter receives training progress. It has no effect on the result.
type Reporter interface {
	StartEpoch(epoch, trigrams int)
	Advance(trigrams int)
	FinishEpoch(stats EpochStats)
}

// NopReporter discards progress.
type NopReporter struct{}

func (NopReporter) StartEpoch(int, int)    {}
func (NopReporter) Advance(int)            {}
func (NopReporter) FinishEpoch(EpochStats) {}

// BarReporter draws one progress bar per epoch and prints the epoch
// objective when the epoch ends.
type BarReporter struct {
	w   io.Writer
	bar *pb.ProgressBar
}

// NewBarReporter writes progress bars to w (usually os.Stderr).
func NewBarReporter(w io.Writer) *BarReporter {
	return &BarReporter{w: w}
}

func (r *BarReporter) StartEpoch(epoch, trigrams int) {
	r.bar = pb.New(trigrams).
		SetWriter(r.w).
		Set("prefix", fmt.Sprintf("epoch %d ", epoch)).
		Start()
}

func (r *BarReporter) Advance(trigrams int) {
	if r.bar != nil {
		r.bar.Add(trigrams)
	}
}

func (r *BarReporter) FinishEpoch(stats EpochStats) {
	if r.bar != nil {
		r.bar.Finish()
		r.bar = nil
	}
	fmt.Fprintf(r.w, "epoch %d: F = %g\n", stats.Epoch, stats.Objective)
}
