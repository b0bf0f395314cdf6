//go:build linux

package wheel_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rillwm/rill/internal/engine"
	"github.com/rillwm/rill/internal/loop"
	"github.com/rillwm/rill/internal/wheel"
)

func newRuntime(t *testing.T) (*loop.Loop, *engine.Engine, *wheel.Wheel) {
	t.Helper()
	lp, err := loop.New()
	require.NoError(t, err)
	t.Cleanup(lp.Close)

	eng := engine.New()
	lp.OnTurn(eng.Turn)

	wh, err := wheel.Install(lp)
	require.NoError(t, err)
	t.Cleanup(wh.Close)

	return lp, eng, wh
}

func TestTimerFires(t *testing.T) {
	lp, eng, wh := newRuntime(t)

	fired := false
	task := eng.NewTask(engine.Default, func() {
		fired = true
		lp.Stop(nil)
	})
	wh.Schedule(20*time.Millisecond, 0, task)

	start := time.Now()
	require.NoError(t, lp.Run())
	assert.True(t, fired)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestCancelPreventsFire(t *testing.T) {
	lp, eng, wh := newRuntime(t)

	cancelledRan := false
	cancelled := eng.NewTask(engine.Default, func() { cancelledRan = true })
	id := wh.Schedule(20*time.Millisecond, 0, cancelled)
	wh.Cancel(id)

	stopper := eng.NewTask(engine.Default, func() { lp.Stop(nil) })
	wh.Schedule(60*time.Millisecond, 0, stopper)

	require.NoError(t, lp.Run())
	assert.False(t, cancelledRan)
}

func TestRepeatingTimer(t *testing.T) {
	lp, eng, wh := newRuntime(t)

	fires := 0
	var id wheel.TimerID
	task := eng.NewTask(engine.Default, func() {
		fires++
		if fires >= 3 {
			wh.Cancel(id)
			lp.Stop(nil)
		}
	})
	id = wh.Schedule(15*time.Millisecond, 15*time.Millisecond, task)

	require.NoError(t, lp.Run())
	assert.Equal(t, 3, fires)
}

func TestCancelAfterFireIsBenign(t *testing.T) {
	lp, eng, wh := newRuntime(t)

	var id wheel.TimerID
	task := eng.NewTask(engine.Default, func() {
		// Fired already; cancellation of a consumed one-shot must not
		// disturb anything.
		wh.Cancel(id)
		wh.Cancel(id)
		lp.Stop(nil)
	})
	id = wh.Schedule(10*time.Millisecond, 0, task)

	require.NoError(t, lp.Run())
}
