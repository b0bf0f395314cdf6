// Package engine implements the cooperative scheduler the compositor core
// runs on. Tasks are re-armable callbacks assigned to one of four phases;
// once per loop iteration the engine drains all runnable tasks in phase
// order, FIFO within a phase. A task suspends by returning and re-arms
// when one of its wakers fires: fd readiness, a timer, a queue push, or an
// internal event.
//
// Everything here runs on the loop goroutine; no locking is required.
package engine

// Phase orders task execution within one engine turn. Every Layout task
// has run before any PostLayout task, and so on through Present and
// Default.
type Phase int

const (
	Layout Phase = iota
	PostLayout
	Present
	Default

	numPhases
)

func (p Phase) String() string {
	switch p {
	case Layout:
		return "layout"
	case PostLayout:
		return "post-layout"
	case Present:
		return "present"
	case Default:
		return "default"
	default:
		return "unknown"
	}
}

// Task is a schedulable unit of work. A task runs to completion each time
// it is scheduled; it must not block. Cancelling a task prevents any
// further runs; cancellation is observable only as the absence of
// progress.
type Task struct {
	eng       *Engine
	phase     Phase
	fn        func()
	queued    bool
	cancelled bool
}

// Schedule arms the task to run in its phase during the current or next
// engine turn. Scheduling an already-queued or cancelled task is a no-op,
// so spurious wakes are benign.
func (t *Task) Schedule() {
	if t == nil || t.queued || t.cancelled {
		return
	}
	t.queued = true
	t.eng.queues[t.phase] = append(t.eng.queues[t.phase], t)
}

// Cancel stops the task at its next suspension point.
func (t *Task) Cancel() {
	if t != nil {
		t.cancelled = true
	}
}

// Cancelled reports whether Cancel has been called.
func (t *Task) Cancelled() bool {
	return t.cancelled
}

// Engine owns the phase queues.
type Engine struct {
	queues [numPhases][]*Task
}

// New creates an engine with empty queues.
func New() *Engine {
	return &Engine{}
}

// NewTask creates a task in the given phase without scheduling it.
func (e *Engine) NewTask(phase Phase, fn func()) *Task {
	return &Task{eng: e, phase: phase, fn: fn}
}

// Spawn creates a task and schedules it immediately.
func (e *Engine) Spawn(phase Phase, fn func()) *Task {
	t := e.NewTask(phase, fn)
	t.Schedule()
	return t
}

// Idle reports whether no task is runnable.
func (e *Engine) Idle() bool {
	for p := range e.queues {
		if len(e.queues[p]) > 0 {
			return false
		}
	}
	return true
}

// Turn drains all runnable tasks. Phases are visited in fixed cyclic
// order; tasks scheduled into an earlier phase during a pass run on the
// next pass, so phase ordering holds within every pass. Turn returns when
// a full pass finds no runnable task.
func (e *Engine) Turn() {
	for {
		ran := false
		for p := Phase(0); p < numPhases; p++ {
			for len(e.queues[p]) > 0 {
				t := e.queues[p][0]
				e.queues[p] = e.queues[p][1:]
				t.queued = false
				if t.cancelled {
					continue
				}
				ran = true
				t.fn()
			}
		}
		if !ran {
			return
		}
	}
}
