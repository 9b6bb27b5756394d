package services

import (
	"sync"
	"time"
)

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. The booking form only schedules through
// this interface so tests can fire timers by hand.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemScheduler struct{}

func NewSystemScheduler() Scheduler {
	return systemScheduler{}
}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer collapses a burst of Trigger calls into one call of the last
// function, fired once the burst has been quiet for the interval.
type Debouncer struct {
	mu        sync.Mutex
	scheduler Scheduler
	interval  time.Duration
	timer     Timer
	seq       uint64
}

func NewDebouncer(scheduler Scheduler, interval time.Duration) *Debouncer {
	return &Debouncer{scheduler: scheduler, interval: interval}
}

// Trigger cancels any pending call and schedules f.
func (d *Debouncer) Trigger(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.seq++
	seq := d.seq
	d.timer = d.scheduler.AfterFunc(d.interval, func() {
		d.mu.Lock()
		// A timer that fired while being replaced must not run.
		if d.seq != seq {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		f()
	})
}

// Cancel drops the pending call, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.seq++
}

// Pending reports whether a call is scheduled and has not fired yet.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
