// Package lifecycle owns the creation, caching, and teardown of automation
// sessions. At most one live handle exists per (execution unit, backend
// kind); creation is single-flight, teardown is idempotent and total.
//
// Execution units are explicit string keys (a worker name, a test shard, a
// goroutine-scoped ID) rather than implicit thread-local state, which keeps
// the partitioning visible and testable.
package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/harnesskit/harnesskit/pkg/backend"
	"github.com/harnesskit/harnesskit/pkg/config"
	"github.com/harnesskit/harnesskit/pkg/logging"
)

// Factory constructs native sessions. Satisfied by *backend.Factory; tests
// substitute counting stubs.
type Factory interface {
	Create(ctx context.Context, kind backend.Kind, params backend.Params) (backend.Session, error)
}

// Manager owns zero-or-one session handle per (execution unit, backend kind).
type Manager struct {
	cfg     *config.Snapshot
	factory Factory
	log     *logging.Logger

	// mu guards the whole check-and-create sequence so racing Start calls
	// for the same slot construct exactly one session.
	mu    sync.Mutex
	units map[string]map[backend.Kind]*Handle
}

// NewManager creates a lifecycle manager. The manager is an explicitly
// constructed instance: hold it in the test run's top-level setup and pass
// it to collaborators instead of reaching for package globals.
func NewManager(cfg *config.Snapshot, factory Factory, log *logging.Logger) *Manager {
	return &Manager{
		cfg:     cfg,
		factory: factory,
		log:     log,
		units:   make(map[string]map[backend.Kind]*Handle),
	}
}

// Start returns the live handle for (unit, kind), constructing one if none
// exists. When a handle already exists it is returned as-is with a warning;
// no duplicate construction ever happens for a live slot.
func (m *Manager) Start(ctx context.Context, unit string, kind backend.Kind, params backend.Params) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.units[unit][kind]; ok {
		m.log.Warnf("%s session already exists for unit %q, returning existing handle", kind, unit)
		return existing, nil
	}

	m.log.Infof("starting %s session for unit %q", kind, unit)
	session, err := m.factory.Create(ctx, kind, params)
	if err != nil {
		return nil, err
	}

	handle := newHandle(kind, m.cfg, session)
	if m.units[unit] == nil {
		m.units[unit] = make(map[backend.Kind]*Handle)
	}
	m.units[unit][kind] = handle
	return handle, nil
}

// Get returns the current handle for (unit, kind). It never constructs.
func (m *Manager) Get(unit string, kind backend.Kind) (*Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	handle, ok := m.units[unit][kind]
	return handle, ok
}

// Stop tears down the handle for (unit, kind). Native close errors are
// logged and suppressed, and the slot is cleared regardless, so a failing
// quit can never block the rest of the cleanup. Stopping an absent slot is
// a no-op.
func (m *Manager) Stop(unit string, kind backend.Kind) {
	m.mu.Lock()
	handle, ok := m.units[unit][kind]
	if ok {
		delete(m.units[unit], kind)
		if len(m.units[unit]) == 0 {
			delete(m.units, unit)
		}
	}
	m.mu.Unlock()

	if !ok {
		return
	}

	m.log.Infof("stopping %s session for unit %q", kind, unit)
	if err := handle.close(); err != nil {
		m.log.Errorf("error closing %s session for unit %q: %v", kind, unit, err)
	}
}

// StopAll tears down every backend for the unit, in kind order, continuing
// past individual failures.
func (m *Manager) StopAll(unit string) {
	for _, kind := range backend.Kinds {
		m.Stop(unit, kind)
	}
}

// Reset tears down every handle of every unit, returning the manager to its
// initial empty state. Intended for run teardown and between-suite resets.
func (m *Manager) Reset() {
	m.mu.Lock()
	units := make([]string, 0, len(m.units))
	for unit := range m.units {
		units = append(units, unit)
	}
	m.mu.Unlock()

	for _, unit := range units {
		m.StopAll(unit)
	}
}

// Screenshot captures the unit's active visual backend to
// <screenshot_dir>/<name>_<YYYYMMDD_HHMMSS>.png and returns the path.
// The web session takes priority when both web and mobile are active.
// Returns ok=false, without error, when no visual backend is active or the
// save fails; a diagnostic aid must never fail the test.
func (m *Manager) Screenshot(unit, name string) (string, bool) {
	shooter, ok := m.visualBackend(unit)
	if !ok {
		m.log.Warnf("no visual backend active for unit %q, skipping screenshot", unit)
		return "", false
	}

	dir := m.cfg.GetString("screenshot_dir", "screenshots")
	if err := os.MkdirAll(dir, 0750); err != nil {
		m.log.Errorf("failed to create screenshot directory %s: %v", dir, err)
		return "", false
	}

	filename := fmt.Sprintf("%s_%s.png", name, time.Now().Format("20060102_150405"))
	path := filepath.Join(dir, filename)

	if err := shooter.SaveScreenshot(path); err != nil {
		m.log.Errorf("failed to save screenshot %s: %v", path, err)
		return "", false
	}

	m.log.Infof("screenshot saved: %s", path)
	return path, true
}

// visualBackend picks the unit's screenshot source, web before mobile.
func (m *Manager) visualBackend(unit string) (backend.Screenshotter, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, kind := range []backend.Kind{backend.KindWeb, backend.KindMobile} {
		if handle, ok := m.units[unit][kind]; ok {
			if shooter, ok := handle.screenshotter(); ok {
				return shooter, true
			}
		}
	}
	return nil, false
}

// Units returns the execution units that currently own at least one handle.
func (m *Manager) Units() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	units := make([]string, 0, len(m.units))
	for unit := range m.units {
		units = append(units, unit)
	}
	return units
}
