package logging

// CountSampler decides which of a long sequence of "n of total done" events
// deserve a log line: the first, every step percent after that, and the
// last.
type CountSampler struct {
	total   int
	step    int
	logged  int
	started bool
}

// NewCountSampler samples progress over total items every step percent.
// A step outside 1..100 means 10.
func NewCountSampler(total, step int) *CountSampler {
	if step < 1 || step > 100 {
		step = 10
	}
	return &CountSampler{total: total, step: step}
}

// Due reports whether done items warrant a progress line and the percentage
// to log with it. A nil sampler logs everything.
func (s *CountSampler) Due(done int) (int, bool) {
	if s == nil || s.total <= 0 {
		return 100, true
	}
	if done > s.total {
		done = s.total
	}
	percent := done * 100 / s.total
	switch {
	case !s.started:
		s.started = true
	case done == s.total && s.logged < 100:
	case percent >= s.logged+s.step:
	default:
		return percent, false
	}
	s.logged = percent - percent%s.step
	if done == s.total {
		s.logged = 100
	}
	return percent, true
}
