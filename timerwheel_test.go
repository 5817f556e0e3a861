package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerWheelNextDeadlineEmpty(t *testing.T) {
	w := newTimerWheel()
	_, ok := w.nextDeadline()
	assert.False(t, ok)
}

func TestTimerWheelOrdersByDeadlineAscending(t *testing.T) {
	w := newTimerWheel()
	now := time.Now()

	var fired []int
	w.insert(now, 30*time.Millisecond, false, func() { fired = append(fired, 30) })
	w.insert(now, 10*time.Millisecond, false, func() { fired = append(fired, 10) })
	w.insert(now, 20*time.Millisecond, false, func() { fired = append(fired, 20) })

	due := w.popExpired(now.Add(100 * time.Millisecond))
	require.Len(t, due, 3)
	for _, tm := range due {
		tm.callback()
	}
	assert.Equal(t, []int{10, 20, 30}, fired)
}

func TestTimerWheelPopExpiredOnlyReturnsDueTimers(t *testing.T) {
	w := newTimerWheel()
	now := time.Now()
	w.insert(now, 10*time.Millisecond, false, func() {})
	w.insert(now, time.Hour, false, func() {})

	due := w.popExpired(now.Add(20 * time.Millisecond))
	assert.Len(t, due, 1)

	deadline, ok := w.nextDeadline()
	require.True(t, ok)
	assert.WithinDuration(t, now.Add(time.Hour), deadline, time.Second)
}

func TestTimerWheelCancelPreventsFiring(t *testing.T) {
	w := newTimerWheel()
	now := time.Now()

	fired := false
	id := w.insert(now, 10*time.Millisecond, false, func() { fired = true })
	w.cancel(id)

	due := w.popExpired(now.Add(20 * time.Millisecond))
	require.Len(t, due, 1)
	assert.True(t, due[0].cancelled)
	if !due[0].cancelled {
		due[0].callback()
	}
	assert.False(t, fired)
}

func TestTimerWheelCancelUnknownIDIsNoop(t *testing.T) {
	w := newTimerWheel()
	assert.NotPanics(t, func() { w.cancel(TimerId(9999)) })
}

func TestTimerWheelRearmReschedulesFromNow(t *testing.T) {
	w := newTimerWheel()
	base := time.Now()
	id := w.insert(base, 10*time.Millisecond, true, func() {})

	due := w.popExpired(base.Add(20 * time.Millisecond))
	require.Len(t, due, 1)
	tm := due[0]
	assert.Equal(t, id, tm.id)

	rearmAt := base.Add(500 * time.Millisecond)
	w.rearm(tm, rearmAt)

	deadline, ok := w.nextDeadline()
	require.True(t, ok)
	assert.WithinDuration(t, rearmAt.Add(10*time.Millisecond), deadline, 5*time.Millisecond)
}

func TestTimerWheelBucketsShareDeadline(t *testing.T) {
	w := newTimerWheel()
	now := time.Now()
	deadline := now.Add(15 * time.Millisecond)

	w.insert(now, 15*time.Millisecond, false, func() {})
	w.insert(now, 15*time.Millisecond, false, func() {})

	assert.Len(t, w.buckets, 1)
	assert.Len(t, w.buckets[absMs(deadline)].timers, 2)
}

func TestTimerWheelLenCountsActiveTimers(t *testing.T) {
	w := newTimerWheel()
	now := time.Now()
	assert.Equal(t, 0, w.len())
	id := w.insert(now, time.Minute, false, func() {})
	assert.Equal(t, 1, w.len())
	w.cancel(id)
	assert.Equal(t, 0, w.len())
}
