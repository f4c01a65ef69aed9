// Package backend constructs automation sessions for the web, API, and
// mobile backends. The factory resolves configuration and builds one opaque
// session per call; lifecycle, caching, and teardown policy belong to the
// lifecycle package.
package backend

import (
	"context"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/harnesskit/harnesskit/pkg/config"
	"github.com/harnesskit/harnesskit/pkg/logging"
)

// Session is the opaque handle produced by the factory for one backend kind.
type Session interface {
	Kind() Kind
	Close() error
}

// Screenshotter is implemented by sessions with a visual surface.
type Screenshotter interface {
	SaveScreenshot(path string) error
}

// Params carries call-time overrides for session construction. Zero values
// fall back to the configuration snapshot.
type Params struct {
	// Browser selects the web browser family (chrome, firefox, edge, safari).
	Browser string
	// Platform selects the mobile platform (android, ios).
	Platform string
	// BaseURL overrides the configured API base URL.
	BaseURL string
	// Headers are applied as default headers on API sessions.
	Headers map[string]string
	// Capabilities are merged over the platform default capability set,
	// caller values winning on conflict.
	Capabilities map[string]interface{}
}

// Factory builds native sessions from an effective configuration snapshot.
// It knows nothing about per-unit caching or teardown ordering.
type Factory struct {
	cfg *config.Snapshot
	log *logging.Logger

	mu sync.Mutex
	pw *playwright.Playwright
}

// NewFactory creates a session factory bound to a configuration snapshot.
func NewFactory(cfg *config.Snapshot, log *logging.Logger) *Factory {
	return &Factory{cfg: cfg, log: log}
}

// Create constructs one native session for the requested backend kind.
// Engine failures are wrapped in *ConstructionError and logged with the
// backend kind and chosen variant; unrecognized variants fail with
// *UnsupportedError.
func (f *Factory) Create(ctx context.Context, kind Kind, params Params) (Session, error) {
	switch kind {
	case KindWeb:
		return f.createWeb(params)
	case KindAPI:
		return f.createAPI(params)
	case KindMobile:
		return f.createMobile(ctx, params)
	default:
		return nil, &UnsupportedError{Kind: kind, Value: kind.String()}
	}
}

// runner lazily starts the shared Playwright driver. All web sessions built
// by this factory share one driver process.
func (f *Factory) runner() (*playwright.Playwright, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pw != nil {
		return f.pw, nil
	}

	// Discard driver output so it cannot interleave with test output
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, err
	}
	f.pw = pw
	return pw, nil
}

// Shutdown stops the shared Playwright driver if it was started. Sessions
// must be closed first; the lifecycle manager calls this on run teardown.
func (f *Factory) Shutdown() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pw == nil {
		return nil
	}
	err := f.pw.Stop()
	f.pw = nil
	return err
}
