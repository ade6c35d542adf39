package main

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// progressBar adapts a terminal progress bar to organizer.Progress. The bar
// is created once the batch size is known.
type progressBar struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func newProgressBar(out io.Writer) *progressBar {
	return &progressBar{out: out}
}

// Start sizes the bar. It is called once before dispatch.
func (p *progressBar) Start(total int) {
	if total == 0 {
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription("organizing"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
	)
}

// Tick implements organizer.Progress.
func (p *progressBar) Tick() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Add(1)
}

// Finish clears the bar. Skipped files never tick, so the bar may stop short.
func (p *progressBar) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}
