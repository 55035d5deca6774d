package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Unix(1_700_000_000, 0)

func TestPacer_DeadlineAdvancesFromPreviousDeadline(t *testing.T) {
	p := NewPacer(10*time.Millisecond, 5)
	p.Reset(epoch)

	// Tick finished 3ms late; next deadline still lands on the grid.
	wait, dropped := p.Next(epoch.Add(3 * time.Millisecond))
	assert.Equal(t, 7*time.Millisecond, wait)
	assert.Zero(t, dropped)
	assert.Equal(t, epoch.Add(10*time.Millisecond), p.Deadline())

	wait, _ = p.Next(epoch.Add(12 * time.Millisecond))
	assert.Equal(t, 8*time.Millisecond, wait)
	assert.Equal(t, epoch.Add(20*time.Millisecond), p.Deadline())
}

func TestPacer_CatchUpWithinLagRunsImmediately(t *testing.T) {
	p := NewPacer(10*time.Millisecond, 5)
	p.Reset(epoch)

	// 30ms behind the next deadline is within the cap: no drop, no wait.
	wait, dropped := p.Next(epoch.Add(40 * time.Millisecond))
	assert.Zero(t, wait)
	assert.Zero(t, dropped)
	assert.Equal(t, epoch.Add(10*time.Millisecond), p.Deadline())
}

func TestPacer_ResetsWhenTooFarBehind(t *testing.T) {
	p := NewPacer(10*time.Millisecond, 5)
	p.Reset(epoch)

	now := epoch.Add(100 * time.Millisecond)
	wait, dropped := p.Next(now)
	assert.Zero(t, wait)
	assert.Equal(t, 9, dropped)
	assert.Equal(t, now, p.Deadline(), "deadline snaps to now")

	wait, dropped = p.Next(now.Add(time.Millisecond))
	assert.Equal(t, 9*time.Millisecond, wait)
	assert.Zero(t, dropped)
}

func TestPacer_BoundOverSimulatedWindow(t *testing.T) {
	const step = 16 * time.Millisecond
	const k = 100
	p := NewPacer(step, DefaultMaxLagTicks)
	p.Reset(epoch)

	// Run ticks whenever due, with a clock that jumps in uneven strides,
	// and count how many fit in k steps of time.
	now := epoch
	end := epoch.Add(k * step)
	ticks := 0
	strides := []time.Duration{time.Millisecond, 40 * time.Millisecond, 5 * time.Millisecond, 130 * time.Millisecond}
	for i := 0; !now.After(end); i++ {
		if !now.Before(p.Deadline()) {
			ticks++
			p.Next(now)
			continue
		}
		now = now.Add(strides[i%len(strides)])
	}

	assert.LessOrEqual(t, ticks, k+1)
	assert.Positive(t, ticks)
}

func TestPacer_NeverMoreThanCapBehind(t *testing.T) {
	const step = 10 * time.Millisecond
	p := NewPacer(step, 5)
	p.Reset(epoch)

	now := epoch
	for i := 0; i < 50; i++ {
		now = now.Add(time.Duration(i%7) * 13 * time.Millisecond)
		p.Next(now)
		behind := now.Sub(p.Deadline())
		assert.LessOrEqual(t, behind, 5*step)
	}
}
