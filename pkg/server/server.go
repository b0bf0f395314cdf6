//go:build linux

// Package server owns the compositor runtime: the shared State aggregate,
// global installation, session birth, and the run loop. State is created
// by New and handed by reference to every task; there are no ambient
// globals.
package server

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/rillwm/rill/internal/acceptor"
	"github.com/rillwm/rill/internal/backend"
	"github.com/rillwm/rill/internal/client"
	"github.com/rillwm/rill/internal/engine"
	"github.com/rillwm/rill/internal/fixed"
	"github.com/rillwm/rill/internal/forker"
	"github.com/rillwm/rill/internal/globals"
	"github.com/rillwm/rill/internal/ifs"
	"github.com/rillwm/rill/internal/logger"
	"github.com/rillwm/rill/internal/loop"
	"github.com/rillwm/rill/internal/wheel"
	"github.com/rillwm/rill/pkg/config"
	"github.com/rillwm/rill/pkg/metrics"
	prommetrics "github.com/rillwm/rill/pkg/metrics/prometheus"
)

// State is the compositor's shared context.
type State struct {
	Cfg     *config.Config
	Loop    *loop.Loop
	Engine  *engine.Engine
	Wheel   *wheel.Wheel
	Clients *client.Clients
	Globals *globals.Globals
	Serials *ifs.Serials
	Seat    *ifs.WlSeatGlobal
	Backend backend.Backend
	Forker  forker.Forker
	Metrics metrics.CompositorMetrics

	SlowClients   *engine.Queue[*client.Client]
	BackendEvents *engine.Queue[backend.Event]

	acceptor *acceptor.Acceptor
	signalFd int
}

// New assembles the runtime without starting it.
func New(cfg *config.Config, be backend.Backend) (*State, error) {
	lp, err := loop.New()
	if err != nil {
		return nil, err
	}

	eng := engine.New()
	lp.OnTurn(eng.Turn)

	wh, err := wheel.Install(lp)
	if err != nil {
		lp.Close()
		return nil, err
	}

	var m metrics.CompositorMetrics
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		m = prommetrics.NewCompositorMetrics()
		prommetrics.Serve(cfg.Metrics.ListenAddress)
	}

	serials := &ifs.Serials{}
	st := &State{
		Cfg:           cfg,
		Loop:          lp,
		Engine:        eng,
		Wheel:         wh,
		Clients:       client.NewClients(),
		Globals:       globals.New(),
		Serials:       serials,
		Seat:          ifs.NewWlSeatGlobal("seat0", serials),
		Backend:       be,
		Forker:        forker.New(),
		Metrics:       m,
		SlowClients:   engine.NewQueue[*client.Client](),
		BackendEvents: engine.NewQueue[backend.Event](),
		signalFd:      -1,
	}

	st.installGlobals()
	return st, nil
}

// installGlobals advertises the core service set.
func (st *State) installGlobals() {
	st.Globals.Add(&ifs.WlCompositorGlobal{})
	st.Globals.Add(&ifs.WlSubcompositorGlobal{})
	st.Globals.Add(&ifs.WlShmGlobal{})
	st.Globals.Add(&ifs.WlOutputGlobal{Info: ifs.OutputInfo{
		PhysicalWidth:  340,
		PhysicalHeight: 190,
		Make:           "rill",
		Model:          "virtual-0",
		Width:          1920,
		Height:         1080,
		Refresh:        60000,
		Scale:          1,
	}})
	st.Globals.Add(st.Seat)
	st.Globals.Add(&ifs.WlDataDeviceManagerGlobal{})
}

// AddClient births a session for an accepted connection descriptor.
func (st *State) AddClient(fd int) {
	if max := st.Cfg.Limits.MaxClients; max > 0 && st.Clients.Count() >= max {
		logger.Warn("Rejecting client: session limit reached", "max", max)
		_ = unix.Close(fd)
		return
	}

	id := st.Clients.NextID()
	c, err := client.New(id, fd, client.Config{
		Loop:           st.Loop,
		Engine:         st.Engine,
		Metrics:        st.Metrics,
		MaxMessageSize: int(st.Cfg.Limits.MaxMessageSize),
		WriteThreshold: int(st.Cfg.Limits.WriteBufferThreshold),
		WriteLimit:     int(st.Cfg.Limits.WriteBufferLimit),
		MaxQueuedFds:   st.Cfg.Limits.MaxQueuedFds,
		SlowClients:    st.SlowClients,
		OnRemove: func(c *client.Client) {
			st.Clients.Remove(c)
			if st.Metrics != nil {
				st.Metrics.SetActiveClients(st.Clients.Count())
			}
		},
	})
	if err != nil {
		logger.Error("Cannot create client session", "error", err)
		_ = unix.Close(fd)
		return
	}

	if _, err := ifs.NewWlDisplay(c, st.Globals, st.Serials); err != nil {
		logger.Error("Cannot install display object", "client", id, "error", err)
		c.Kill()
		return
	}

	st.Clients.Add(c)
	if st.Metrics != nil {
		st.Metrics.SetActiveClients(st.Clients.Count())
	}
}

// Run starts the acceptor, the backend, and the long-lived tasks, then
// drives the loop until shutdown. It returns nil on a clean shutdown.
func (st *State) Run() error {
	runtimeDir := st.Cfg.Socket.RuntimeDir
	if runtimeDir == "" {
		runtimeDir = os.Getenv("XDG_RUNTIME_DIR")
	}

	acc, err := acceptor.Install(st.Loop, runtimeDir, st.Cfg.Socket.Name, st.AddClient)
	if err != nil {
		return fmt.Errorf("install acceptor: %w", err)
	}
	st.acceptor = acc

	// Children spawned through the forker find the display through the
	// environment.
	st.Forker.SetEnv("WAYLAND_DISPLAY", acc.Name())
	if err := os.Setenv("WAYLAND_DISPLAY", acc.Name()); err != nil {
		logger.Warn("Cannot publish WAYLAND_DISPLAY", "error", err)
	}

	if err := st.installSignalHandler(); err != nil {
		acc.Close()
		return err
	}

	st.spawnTasks()

	if err := st.Backend.Start(st.BackendEvents); err != nil {
		acc.Close()
		return fmt.Errorf("start backend: %w", err)
	}

	logger.Info("Compositor running", "display", acc.Name())
	runErr := st.Loop.Run()

	st.shutdown()
	return runErr
}

// spawnTasks installs the long-lived engine tasks.
func (st *State) spawnTasks() {
	slow := st.Engine.NewTask(engine.Default, st.drainSlowClients)
	st.SlowClients.SetConsumer(slow)

	be := st.Engine.NewTask(engine.Default, st.handleBackendEvents)
	st.BackendEvents.SetConsumer(be)
}

// drainSlowClients opportunistically flushes clients whose event backlog
// crossed the threshold, so one stuck client cannot stall the rest.
// Progress for a still-stuck client comes from socket writability.
func (st *State) drainSlowClients() {
	for {
		c, ok := st.SlowClients.Pop()
		if !ok {
			return
		}
		if c.Dead() {
			continue
		}
		c.Flush()
	}
}

// handleBackendEvents applies backend occurrences to the seat.
func (st *State) handleBackendEvents() {
	for {
		ev, ok := st.BackendEvents.Pop()
		if !ok {
			return
		}
		switch e := ev.(type) {
		case backend.NewKeymap:
			st.Seat.SetKeymap(e.Fd, e.Size)
		case backend.PointerButton:
			st.Seat.PointerButton(e.Time, e.Button, e.State)
		case backend.PointerMotion:
			// Surface-local routing is layout policy; raw motion reaches
			// the focused surface unchanged.
			st.Seat.PointerMotion(e.Time, floatFixed(e.X), floatFixed(e.Y))
		case backend.KeyboardKey:
			// Key routing beyond focus bookkeeping is out of scope.
		default:
			logger.Debug("Unhandled backend event", "event", fmt.Sprintf("%T", ev))
		}
	}
}

// floatFixed converts backend float coordinates to wire fixed-point.
func floatFixed(f float64) fixed.Fixed {
	return fixed.FromFloat(f)
}

// installSignalHandler routes SIGINT/SIGTERM onto the loop through an
// eventfd so shutdown is just another readiness dispatch.
func (st *State) installSignalHandler() error {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return fmt.Errorf("eventfd: %w", err)
	}
	st.signalFd = fd

	if err := st.Loop.Register(fd, loop.Readable, func(loop.Mask) error {
		var buf [8]byte
		_, _ = unix.Read(fd, buf[:])
		logger.Info("Shutdown signal received")
		st.Loop.Stop(nil)
		return nil
	}); err != nil {
		_ = unix.Close(fd)
		return err
	}

	notifySignals(fd)
	return nil
}

// shutdown releases runtime resources after the loop exits.
func (st *State) shutdown() {
	st.Clients.Clear()
	st.Seat.Close()
	st.Backend.Stop()
	if st.acceptor != nil {
		st.acceptor.Close()
	}
	if st.signalFd >= 0 {
		_ = st.Loop.Deregister(st.signalFd)
		_ = unix.Close(st.signalFd)
		st.signalFd = -1
	}
	st.Wheel.Close()
	st.Loop.Close()
	logger.Info("Compositor stopped")
}
