package services

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncerRunsLastCallOfBurst(t *testing.T) {
	scheduler := &fakeScheduler{}
	d := NewDebouncer(scheduler, 400*time.Millisecond)

	var got []string
	for _, text := range []string{"Pla", "Plaç", "Plaça"} {
		text := text
		d.Trigger(func() { got = append(got, text) })
	}

	assert.Equal(t, 1, scheduler.Pending())
	assert.True(t, d.Pending())
	assert.Equal(t, 1, scheduler.Fire())
	assert.Equal(t, []string{"Plaça"}, got)
	assert.False(t, d.Pending())
	assert.Equal(t, 400*time.Millisecond, scheduler.timers[0].delay)
}

func TestDebouncerCancel(t *testing.T) {
	scheduler := &fakeScheduler{}
	d := NewDebouncer(scheduler, 400*time.Millisecond)

	fired := false
	d.Trigger(func() { fired = true })
	d.Cancel()

	assert.Equal(t, 0, scheduler.Fire())
	assert.False(t, fired)
}

func TestDebouncerWithSystemScheduler(t *testing.T) {
	d := NewDebouncer(NewSystemScheduler(), 20*time.Millisecond)

	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}
