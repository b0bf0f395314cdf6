//go:build linux

// Package wheel implements the hashed timer wheel that feeds the event
// loop. Timers hash into one of 256 slots by expiry tick; a timerfd
// registered on the loop advances the wheel and wakes the owning task of
// every expired timer. Cancellation is O(1) best effort: a timer that has
// already fired wakes its task spuriously, which tasks treat as a no-op.
package wheel

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/rillwm/rill/internal/engine"
	"github.com/rillwm/rill/internal/loop"
)

const (
	numSlots = 256

	// tick is the wheel resolution. Input-driven timeouts (double-click,
	// repeat) do not need finer granularity.
	tick = 10 * time.Millisecond
)

// TimerID identifies a scheduled timer for cancellation.
type TimerID uint64

type timer struct {
	id        TimerID
	expiry    uint64 // absolute tick
	repeat    uint64 // ticks between fires, 0 for one-shot
	task      *engine.Task
	cancelled bool
}

// Wheel schedules task wake-ups.
type Wheel struct {
	lp      *loop.Loop
	fd      int
	slots   [numSlots][]*timer
	byID    map[TimerID]*timer
	nextID  TimerID
	current uint64 // last processed tick
	start   time.Time
	armed   bool
	pending int // live timer count
}

// Install creates the wheel and registers its timerfd on the loop.
func Install(lp *loop.Loop) (*Wheel, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("timerfd_create: %w", err)
	}

	w := &Wheel{
		lp:    lp,
		fd:    fd,
		byID:  make(map[TimerID]*timer),
		start: time.Now(),
	}

	if err := lp.Register(fd, loop.Readable, w.onTick); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	return w, nil
}

// now returns the current absolute tick.
func (w *Wheel) now() uint64 {
	return uint64(time.Since(w.start) / tick)
}

// Schedule arms a wake-up for task after the given delay. A non-zero
// repeat re-arms the timer on every fire until cancelled.
func (w *Wheel) Schedule(after time.Duration, repeat time.Duration, task *engine.Task) TimerID {
	w.nextID++
	ticks := uint64((after + tick - 1) / tick)
	if ticks == 0 {
		ticks = 1
	}
	t := &timer{
		id:     w.nextID,
		expiry: w.now() + ticks,
		repeat: uint64(repeat / tick),
		task:   task,
	}
	if t.repeat == 0 && repeat > 0 {
		t.repeat = 1
	}

	w.slots[t.expiry%numSlots] = append(w.slots[t.expiry%numSlots], t)
	w.byID[t.id] = t
	w.pending++
	w.arm()
	return t.id
}

// Cancel stops a timer. Cancelling an already-fired one-shot is benign.
func (w *Wheel) Cancel(id TimerID) {
	t, ok := w.byID[id]
	if !ok {
		return
	}
	t.cancelled = true
	delete(w.byID, id)
	w.pending--
	if w.pending == 0 {
		w.disarm()
	}
}

// arm programs the timerfd to tick periodically while timers are live.
func (w *Wheel) arm() {
	if w.armed {
		return
	}
	ts := unix.NsecToTimespec(int64(tick))
	spec := unix.ItimerSpec{Interval: ts, Value: ts}
	if err := unix.TimerfdSettime(w.fd, 0, &spec, nil); err == nil {
		w.armed = true
	}
}

func (w *Wheel) disarm() {
	if !w.armed {
		return
	}
	var spec unix.ItimerSpec
	if err := unix.TimerfdSettime(w.fd, 0, &spec, nil); err == nil {
		w.armed = false
	}
}

// onTick drains the timerfd and fires every timer that expired since the
// last processed tick.
func (w *Wheel) onTick(loop.Mask) error {
	var buf [8]byte
	for {
		_, err := unix.Read(w.fd, buf[:])
		if err != nil {
			break
		}
	}

	now := w.now()
	for w.current < now {
		w.current++
		slot := w.slots[w.current%numSlots]
		if len(slot) == 0 {
			continue
		}
		var remaining, rearm []*timer
		for _, t := range slot {
			switch {
			case t.cancelled:
				// dropped
			case t.expiry <= w.current:
				t.task.Schedule()
				if t.repeat > 0 {
					t.expiry = w.current + t.repeat
					rearm = append(rearm, t)
				} else {
					delete(w.byID, t.id)
					w.pending--
				}
			default:
				remaining = append(remaining, t)
			}
		}
		w.slots[w.current%numSlots] = remaining
		for _, t := range rearm {
			w.slots[t.expiry%numSlots] = append(w.slots[t.expiry%numSlots], t)
		}
	}

	if w.pending == 0 {
		w.disarm()
	}
	return nil
}

// Close deregisters and closes the timerfd.
func (w *Wheel) Close() {
	_ = w.lp.Deregister(w.fd)
	_ = unix.Close(w.fd)
}
