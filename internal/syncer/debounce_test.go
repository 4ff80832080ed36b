package syncer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_CoalescesTriggers(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func() { calls.Add(1) })

	for i := 0; i < 5; i++ {
		d.Trigger()
		time.Sleep(2 * time.Millisecond)
	}
	assert.True(t, d.Pending())

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, d.Pending())
}

func TestDebouncer_Cancel(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	d := NewDebouncer(10*time.Millisecond, func() { calls.Add(1) })

	assert.False(t, d.Cancel())
	d.Trigger()
	assert.True(t, d.Cancel())

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestVersionTracker(t *testing.T) {
	t.Parallel()

	var v versionTracker
	first := v.next()
	second := v.next()

	_, latest := v.accept(nil)
	assert.False(t, latest, "oldest outstanding is not the latest")
	version, latest := v.accept(nil)
	assert.True(t, latest)
	assert.Equal(t, second, version)

	third := v.next()
	v.invalidate()
	_, latest = v.accept(&third)
	assert.False(t, latest, "invalidated request is stale")
	assert.False(t, v.pending())

	_, latest = v.accept(&first)
	assert.False(t, latest)
}
