package scheduler

import "time"

// Pacer computes fixed-timestep deadlines.
//
// Each deadline is the previous deadline plus the step. When the caller
// reports a time more than maxLag steps past the next deadline, the
// deadline snaps to that time and the skipped ticks are reported as
// dropped.
type Pacer struct {
	step     time.Duration
	maxLag   int
	deadline time.Time
}

// NewPacer returns a pacer. Call Reset before the first Next.
func NewPacer(step time.Duration, maxLag int) *Pacer {
	return &Pacer{step: step, maxLag: maxLag}
}

// Reset makes now the deadline of the tick about to run.
func (p *Pacer) Reset(now time.Time) {
	p.deadline = now
}

// Deadline returns the deadline of the next tick.
func (p *Pacer) Deadline() time.Time {
	return p.deadline
}

// Next advances to the following deadline after a tick finished at now.
// It returns how long to wait before that deadline (zero when already due)
// and how many ticks were dropped to catch up.
func (p *Pacer) Next(now time.Time) (wait time.Duration, dropped int) {
	p.deadline = p.deadline.Add(p.step)

	behind := now.Sub(p.deadline)
	if behind > time.Duration(p.maxLag)*p.step {
		dropped = int(behind / p.step)
		p.deadline = now
	}

	if wait = p.deadline.Sub(now); wait < 0 {
		wait = 0
	}
	return wait, dropped
}
