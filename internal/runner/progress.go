package runner

import (
	"log/slog"

	"mediasort/internal/logging"
)

// logProgress is the Progress used when no terminal bar is attached. Tick
// runs on the scheduler's settle path, which is serialized.
type logProgress struct {
	logger  *slog.Logger
	total   int
	done    int
	sampler *logging.CountSampler
}

func newLogProgress(logger *slog.Logger, total int) *logProgress {
	return &logProgress{logger: logger, total: total, sampler: logging.NewCountSampler(total, 10)}
}

func (p *logProgress) Tick() {
	p.done++
	percent, due := p.sampler.Due(p.done)
	if !due || p.total == 0 {
		return
	}
	p.logger.Info("organize progress",
		logging.Int("done", p.done),
		logging.Int("total", p.total),
		logging.Int("percent", percent),
	)
}
