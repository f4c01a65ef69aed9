// Package harness wires the scaffolding together: configuration resolution,
// session factory, lifecycle manager, and execution context behind one
// explicitly constructed value. Hold a Harness in the test run's top-level
// setup and pass it to collaborators; there is no package-global instance,
// so parallel runs with different configurations stay isolated.
package harness

import (
	"github.com/harnesskit/harnesskit/pkg/backend"
	"github.com/harnesskit/harnesskit/pkg/config"
	"github.com/harnesskit/harnesskit/pkg/lifecycle"
	"github.com/harnesskit/harnesskit/pkg/logging"
	"github.com/harnesskit/harnesskit/pkg/testctx"
)

// Harness bundles the core components for one test run.
type Harness struct {
	Config    *config.Snapshot
	Factory   *backend.Factory
	Lifecycle *lifecycle.Manager
	Context   *testctx.Context

	log *logging.Logger
}

// Options configure harness construction.
type Options struct {
	// ConfigDir overrides the directory searched for environment files.
	ConfigDir string
	// RequireConfigFile makes a missing environment file fatal instead of
	// falling back to defaults.
	RequireConfigFile bool
}

// New builds a harness for the named environment ("" selects the ENV
// variable, defaulting to "dev").
func New(env string, opts Options) (*Harness, error) {
	var resolverOpts []config.Option
	if opts.ConfigDir != "" {
		resolverOpts = append(resolverOpts, config.WithDir(opts.ConfigDir))
	}
	resolver := config.NewResolver(resolverOpts...)

	var (
		snap *config.Snapshot
		err  error
	)
	if opts.RequireConfigFile {
		snap, err = resolver.Load(env)
	} else {
		snap, err = resolver.LoadOrDefaults(env)
	}
	if err != nil {
		return nil, err
	}

	log, _ := logging.NewLogger("harness")
	factory := backend.NewFactory(snap, log)

	return &Harness{
		Config:    snap,
		Factory:   factory,
		Lifecycle: lifecycle.NewManager(snap, factory, log),
		Context:   testctx.New(),
		log:       log,
	}, nil
}

// GetConfig resolves a dotted configuration path against the run's snapshot.
func (h *Harness) GetConfig(key string, def interface{}) interface{} {
	return h.Config.Get(key, def)
}

// Close tears down every live session, stops the shared browser driver, and
// closes the run log. Teardown is total: individual failures are logged by
// the lifecycle manager and never propagate.
func (h *Harness) Close() {
	h.Lifecycle.Reset()
	if err := h.Factory.Shutdown(); err != nil {
		h.log.Errorf("failed to stop browser driver: %v", err)
	}
	_ = h.log.Close()
}
