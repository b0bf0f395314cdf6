package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseOrdering(t *testing.T) {
	eng := New()
	var order []string

	eng.Spawn(Default, func() { order = append(order, "default") })
	eng.Spawn(Present, func() { order = append(order, "present") })
	eng.Spawn(PostLayout, func() { order = append(order, "post-layout") })
	eng.Spawn(Layout, func() { order = append(order, "layout") })

	eng.Turn()
	assert.Equal(t, []string{"layout", "post-layout", "present", "default"}, order)
}

func TestFIFOWithinPhase(t *testing.T) {
	eng := New()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		eng.Spawn(Default, func() { order = append(order, i) })
	}
	eng.Turn()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestLayoutObservedBeforePostLayout(t *testing.T) {
	eng := New()
	layoutDone := false

	// A Default task that schedules into earlier phases: the new tasks
	// still run with Layout preceding PostLayout.
	eng.Spawn(Default, func() {
		eng.Spawn(PostLayout, func() {
			assert.True(t, layoutDone, "post-layout ran before layout")
		})
		eng.Spawn(Layout, func() { layoutDone = true })
	})

	eng.Turn()
	assert.True(t, layoutDone)
}

func TestReschedule(t *testing.T) {
	eng := New()
	runs := 0
	var task *Task
	task = eng.NewTask(Default, func() {
		runs++
		if runs < 3 {
			task.Schedule()
		}
	})
	task.Schedule()

	eng.Turn()
	assert.Equal(t, 3, runs)
	assert.True(t, eng.Idle())
}

func TestDoubleScheduleCoalesces(t *testing.T) {
	eng := New()
	runs := 0
	task := eng.NewTask(Default, func() { runs++ })
	task.Schedule()
	task.Schedule()
	eng.Turn()
	assert.Equal(t, 1, runs)
}

func TestCancelStopsTask(t *testing.T) {
	eng := New()
	runs := 0
	task := eng.Spawn(Default, func() { runs++ })
	task.Cancel()
	eng.Turn()
	assert.Equal(t, 0, runs)

	// Scheduling a cancelled task is a silent no-op.
	task.Schedule()
	eng.Turn()
	assert.Equal(t, 0, runs)
}

func TestQueueWakesConsumer(t *testing.T) {
	eng := New()
	q := NewQueue[int]()

	var got []int
	consumer := eng.NewTask(Default, func() {
		for {
			v, ok := q.Pop()
			if !ok {
				return
			}
			got = append(got, v)
		}
	})
	q.SetConsumer(consumer)

	q.Push(1)
	q.Push(2)
	eng.Turn()
	assert.Equal(t, []int{1, 2}, got)

	// A push after the drain wakes the consumer again.
	q.Push(3)
	eng.Turn()
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestQueueConsumerInstalledLate(t *testing.T) {
	eng := New()
	q := NewQueue[string]()
	q.Push("early")

	var got []string
	consumer := eng.NewTask(Default, func() {
		for {
			v, ok := q.Pop()
			if !ok {
				return
			}
			got = append(got, v)
		}
	})
	q.SetConsumer(consumer)

	eng.Turn()
	assert.Equal(t, []string{"early"}, got)
}

func TestEventCoalescesAndClears(t *testing.T) {
	eng := New()
	ev := NewEvent()

	fires := 0
	waiter := eng.NewTask(Default, func() {
		if ev.Consume() {
			fires++
		}
	})
	ev.SetWaiter(waiter)

	ev.Trigger()
	ev.Trigger()
	eng.Turn()
	require.Equal(t, 1, fires)

	ev.Trigger()
	eng.Turn()
	assert.Equal(t, 2, fires)
}

func TestSpuriousWakeIsNoOp(t *testing.T) {
	eng := New()
	ev := NewEvent()

	fires := 0
	waiter := eng.NewTask(Default, func() {
		if ev.Consume() {
			fires++
		}
	})
	ev.SetWaiter(waiter)

	// A wake without a trigger observes nothing.
	waiter.Schedule()
	eng.Turn()
	assert.Equal(t, 0, fires)
}
