// Package build orchestrates the solution clean/generate/build operations by
// invoking the engine's build script and translating its output into coarse
// progress updates for the host.
package build

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
	"enginectl/internal/hooks"
	"enginectl/internal/models"
	"enginectl/internal/proc"
	"enginectl/internal/progress"
)

// ErrBusy is returned when an operation is requested while one is running.
// The in-flight run is left untouched; requests are rejected, not queued.
var ErrBusy = errors.New("an operation is already running")

const (
	removeAttempts = 3
	removeBackoff  = 250 * time.Millisecond
	progressTick   = time.Second
)

// process is the slice of proc.Proc the manager needs; tests substitute fakes.
type process interface {
	Wait() error
	KillTree() error
}

type startFunc func(name string, args []string, dir string, out proc.Output) (process, error)

// Manager runs at most one operation at a time. It shares nothing with the
// debug manager except the configuration record.
type Manager struct {
	cfg    *config.Manager
	notify events.Notifier
	hist   *history.Storage
	log    *slog.Logger

	start startFunc

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
	}
}

// Clean removes the generated directories: intermediate build artifacts,
// compiled binaries, and staged packaging output. Already-absent directories
// count as success, so running it twice in a row is fine.
func (m *Manager) Clean() error {
	return m.run(models.OpClean, m.doClean)
}

// Generate deletes the existing solution file if present and regenerates
// project files via the build script.
func (m *Manager) Generate() error {
	return m.run(models.OpGenerate, m.doGenerate)
}

// Build runs a full compile.
func (m *Manager) Build() error {
	return m.run(models.OpBuild, m.doBuild)
}

// Regenerate is clean, then solution deletion and project file generation,
// then a full compile. The first failing step aborts the whole sequence.
func (m *Manager) Regenerate() error {
	return m.run(models.OpRegenerate, func() error {
		if err := m.doClean(); err != nil {
			return err
		}
		if err := m.doGenerate(); err != nil {
			return err
		}
		return m.doBuild()
	})
}

// Cancel forcibly terminates the active process tree. With no active process
// it is a strict no-op: no event, no error.
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

// run wraps one operation in the busy check, validation, notification, hook,
// and history bookkeeping common to all of them.
func (m *Manager) run(op models.Operation, fn func() error) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	if err := m.cfg.Validate(); err != nil {
		m.notify.Notify(events.BuildFailed{Operation: op, Err: err.Error()})
		return err
	}

	cfg := m.cfg.Get()
	rec := m.recordStart(op, cfg)
	h := hooks.Load(engine.ProjectDir(cfg.ProjectPath), m.log)

	m.log.Info("operation started", "operation", op, "project", rec.ProjectName)
	m.notify.Notify(events.BuildStarted{Operation: op})
	h.OnBuildStart(string(op))

	err := fn()

	m.mu.Lock()
	cancelled := m.cancelled
	m.cancelled = false
	m.mu.Unlock()

	switch {
	case cancelled:
		m.log.Info("operation cancelled", "operation", op)
		m.recordFinish(rec, models.RunStatusCancelled, nil)
		m.notify.Notify(events.BuildCancelled{Operation: op})
		return nil
	case err != nil:
		m.log.Error("operation failed", "operation", op, "error", err)
		m.recordFinish(rec, models.RunStatusFailed, err)
		h.OnBuildFailure(string(op), err.Error())
		m.notify.Notify(events.BuildFailed{Operation: op, Err: err.Error()})
		return err
	default:
		m.emitProgress(100, "done")
		m.log.Info("operation succeeded", "operation", op)
		m.recordFinish(rec, models.RunStatusSucceeded, nil)
		h.OnBuildSuccess(string(op))
		m.notify.Notify(events.BuildSucceeded{Operation: op})
		return nil
	}
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

// emitProgress forwards a progress update, clamped so the reported sequence
// never decreases within one operation. An empty message reuses the last one.
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

func (m *Manager) doClean() error {
	cfg := m.cfg.Get()
	targets := engine.CleanTargets(engine.ProjectDir(cfg.ProjectPath))
	labels := []string{"removed intermediate files", "removed binaries", "removed staged builds"}

	for i, dir := range targets {
		if err := removeAllRetry(dir); err != nil {
			return fmt.Errorf("failed to remove %s: %w", dir, err)
		}
		m.emitProgress((i+1)*30, labels[i])
	}
	return nil
}

func (m *Manager) doGenerate() error {
	cfg := m.cfg.Get()
	solution := engine.SolutionPath(cfg.ProjectPath)
	if err := os.Remove(solution); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove solution file: %w", err)
	}
	return m.runScript(cfg, true)
}

func (m *Manager) doBuild() error {
	return m.runScript(m.cfg.Get(), false)
}

// runScript invokes the build script and streams its combined output through
// the progress estimator. A ticker keeps the fallback time-based estimate
// moving when the script goes quiet.
func (m *Manager) runScript(cfg config.BuildConfig, generateProjectFiles bool) error {
	script := engine.BuildScriptPath(engine.EngineRoot(cfg.EnginePath))
	if _, err := os.Stat(script); err != nil {
		return fmt.Errorf("build script not found at %s", script)
	}

	est := progress.NewEstimator()
	args := engine.BuildArgs(cfg.ProjectPath, cfg.BuildFlavor, generateProjectFiles)
	m.log.Debug("invoking build script", "script", script, "args", args)

	p, err := m.start(script, args, engine.ProjectDir(cfg.ProjectPath), func(chunk string) {
		est.Observe(chunk)
		m.emitProgress(est.Estimate(), progress.Phase(chunk))
	})
	if err != nil {
		return err
	}
	m.setActive(p)
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
	return nil
}

func removeAllRetry(dir string) error {
	var err error
	for attempt := 0; attempt < removeAttempts; attempt++ {
		if err = os.RemoveAll(dir); err == nil {
			return nil
		}
		time.Sleep(removeBackoff)
	}
	return err
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
