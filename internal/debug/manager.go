// Package debug orchestrates build-then-launch and launch-only sessions of
// the engine editor. The compile step mirrors the build manager's invocation
// deliberately; the two managers share only the configuration record and do
// not coordinate with each other.
package debug

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"enginectl/internal/config"
	"enginectl/internal/engine"
	"enginectl/internal/events"
	"enginectl/internal/history"
	"enginectl/internal/models"
	"enginectl/internal/proc"
	"enginectl/internal/progress"
)

// ErrBusy is returned when a session is requested while one is starting.
var ErrBusy = errors.New("a debug session is already starting")

const progressTick = time.Second

type process interface {
	Wait() error
	KillTree() error
}

type startFunc func(name string, args []string, dir string, out proc.Output) (process, error)

type launchFunc func(name string, args []string, dir string) error

type Manager struct {
	cfg    *config.Manager
	notify events.Notifier
	hist   *history.Storage
	log    *slog.Logger

	start  startFunc
	launch launchFunc

	mu        sync.Mutex
	running   bool
	cancelled bool
	active    process
	percent   int
	lastMsg   string
}

func NewManager(cfg *config.Manager, notify events.Notifier, hist *history.Storage, log *slog.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		notify: notify,
		hist:   hist,
		log:    log,
		start: func(name string, args []string, dir string, out proc.Output) (process, error) {
			return proc.Start(name, args, dir, out)
		},
		launch: proc.StartDetached,
	}
}

// StartWithDebugger compiles the project, then launches the editor with the
// debug flag. The session counts as started the moment the editor spawns.
func (m *Manager) StartWithDebugger() error {
	return m.run(models.OpDebug, true, true)
}

// StartWithoutDebugger is the same minus the debug flag.
func (m *Manager) StartWithoutDebugger() error {
	return m.run(models.OpRun, true, false)
}

// LaunchOnly skips compilation and launches the editor directly.
func (m *Manager) LaunchOnly() error {
	return m.run(models.OpLaunch, false, false)
}

// Cancel terminates the tracked process tree. It only has effect during the
// compile step: the handle is cleared before launch, so an already-launched
// editor cannot be stopped from here. With nothing tracked it is a no-op.
func (m *Manager) Cancel() {
	m.mu.Lock()
	p := m.active
	if p == nil {
		m.mu.Unlock()
		return
	}
	m.cancelled = true
	m.mu.Unlock()

	if err := p.KillTree(); err != nil {
		m.log.Warn("failed to kill process tree", "error", err)
	}
}

func (m *Manager) run(op models.Operation, compile, debugFlag bool) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	if err := m.cfg.Validate(); err != nil {
		m.notify.Notify(events.DebugFailed{Operation: op, Err: err.Error()})
		return err
	}

	cfg := m.cfg.Get()
	rec := m.recordStart(op, cfg)

	m.log.Info("session starting", "operation", op, "project", rec.ProjectName)
	m.notify.Notify(events.DebugStarted{Operation: op})

	var err error
	if compile {
		err = m.compile(cfg)
	}

	m.mu.Lock()
	cancelled := m.cancelled
	m.cancelled = false
	m.mu.Unlock()

	if cancelled {
		m.log.Info("session cancelled", "operation", op)
		m.recordFinish(rec, models.RunStatusCancelled, nil)
		m.notify.Notify(events.DebugCancelled{Operation: op})
		return nil
	}

	if err == nil {
		err = m.launchEditor(cfg, debugFlag)
	}

	if err != nil {
		err = fmt.Errorf("start failed: %w", err)
		m.log.Error("session failed", "operation", op, "error", err)
		m.recordFinish(rec, models.RunStatusFailed, err)
		m.notify.Notify(events.DebugFailed{Operation: op, Err: err.Error()})
		return err
	}

	m.log.Info("session started", "operation", op)
	m.recordFinish(rec, models.RunStatusSucceeded, nil)
	m.notify.Notify(events.DebugSucceeded{Operation: op})
	return nil
}

func (m *Manager) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return ErrBusy
	}
	m.running = true
	m.cancelled = false
	m.percent = 0
	m.lastMsg = ""
	return nil
}

func (m *Manager) end() {
	m.mu.Lock()
	m.running = false
	m.active = nil
	m.mu.Unlock()
}

func (m *Manager) setActive(p process) {
	m.mu.Lock()
	m.active = p
	m.mu.Unlock()
}

func (m *Manager) emitProgress(pct int, msg string) {
	m.mu.Lock()
	if pct < m.percent {
		pct = m.percent
	} else {
		m.percent = pct
	}
	if msg == "" {
		msg = m.lastMsg
	} else {
		m.lastMsg = msg
	}
	m.mu.Unlock()

	m.notify.Notify(events.BuildProgress{Percent: pct, Message: msg})
}

// compile runs a full editor-target build, same invocation as the build
// manager's build step.
func (m *Manager) compile(cfg config.BuildConfig) error {
	script := engine.BuildScriptPath(engine.EngineRoot(cfg.EnginePath))
	if _, err := os.Stat(script); err != nil {
		return fmt.Errorf("build script not found at %s", script)
	}

	est := progress.NewEstimator()
	args := engine.BuildArgs(cfg.ProjectPath, cfg.BuildFlavor, false)
	m.log.Debug("invoking build script", "script", script, "args", args)

	p, err := m.start(script, args, engine.ProjectDir(cfg.ProjectPath), func(chunk string) {
		est.Observe(chunk)
		m.emitProgress(est.Estimate(), progress.Phase(chunk))
	})
	if err != nil {
		return err
	}
	m.setActive(p)
	// The handle is cleared right after the compile step; cancellation cannot
	// reach the launched editor.
	defer m.setActive(nil)

	stop := make(chan struct{})
	go func() {
		t := time.NewTicker(progressTick)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				m.emitProgress(est.Estimate(), "")
			case <-stop:
				return
			}
		}
	}()

	err = p.Wait()
	close(stop)
	if err != nil {
		return fmt.Errorf("build script failed: %w", err)
	}
	m.emitProgress(100, "compiled")
	return nil
}

// launchEditor spawns the engine executable detached. Once spawned it is
// considered started; the manager never tracks its lifecycle.
func (m *Manager) launchEditor(cfg config.BuildConfig, debugFlag bool) error {
	args := []string{cfg.ProjectPath}
	if debugFlag {
		args = append(args, "-debug")
	}
	if err := m.launch(cfg.EnginePath, args, engine.ProjectDir(cfg.ProjectPath)); err != nil {
		return fmt.Errorf("failed to launch editor: %w", err)
	}
	return nil
}

func (m *Manager) recordStart(op models.Operation, cfg config.BuildConfig) *models.OperationRun {
	run := &models.OperationRun{
		Operation:   op,
		ProjectName: engine.ProjectName(cfg.ProjectPath),
		Status:      models.RunStatusRunning,
		StartedAt:   time.Now(),
	}
	if m.hist != nil {
		id, err := m.hist.CreateRun(run)
		if err != nil {
			m.log.Warn("failed to record run", "error", err)
		} else {
			run.ID = id
		}
	}
	return run
}

func (m *Manager) recordFinish(run *models.OperationRun, status models.RunStatus, opErr error) {
	now := time.Now()
	run.Status = status
	run.CompletedAt = &now
	if opErr != nil {
		run.Error = opErr.Error()
		var exitErr *proc.ExitError
		if errors.As(opErr, &exitErr) {
			code := exitErr.Code
			run.ExitCode = &code
		}
	} else if status == models.RunStatusSucceeded {
		zero := 0
		run.ExitCode = &zero
	}
	if m.hist != nil {
		if err := m.hist.FinishRun(run); err != nil {
			m.log.Warn("failed to record run result", "error", err)
		}
	}
}
