package lifecycle

import (
	"sync"
	"time"

	"github.com/harnesskit/harnesskit/pkg/backend"
	"github.com/harnesskit/harnesskit/pkg/config"
)

// Handle is the ownership-bearing wrapper around one native automation
// session. It records the backend kind, creation time, and the configuration
// snapshot the session was built from. Once closed, every accessor fails
// with backend.ErrUseAfterClose; closed is terminal.
type Handle struct {
	kind      backend.Kind
	createdAt time.Time
	cfg       *config.Snapshot

	mu      sync.Mutex
	closed  bool
	session backend.Session
}

func newHandle(kind backend.Kind, cfg *config.Snapshot, session backend.Session) *Handle {
	return &Handle{
		kind:      kind,
		createdAt: time.Now(),
		cfg:       cfg,
		session:   session,
	}
}

// Kind returns the backend kind this handle was created for.
func (h *Handle) Kind() backend.Kind { return h.kind }

// CreatedAt returns the handle creation time.
func (h *Handle) CreatedAt() time.Time { return h.createdAt }

// Config returns the configuration snapshot the session was built from.
func (h *Handle) Config() *config.Snapshot { return h.cfg }

// Closed reports whether the handle has been torn down.
func (h *Handle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Session returns the native session, or backend.ErrUseAfterClose once the
// handle has been torn down.
func (h *Handle) Session() (backend.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, backend.ErrUseAfterClose
	}
	return h.session, nil
}

// Web returns the native web session.
func (h *Handle) Web() (*backend.WebSession, error) {
	s, err := h.Session()
	if err != nil {
		return nil, err
	}
	web, ok := s.(*backend.WebSession)
	if !ok {
		return nil, &backend.UnsupportedError{Kind: h.kind, Value: "not a web session"}
	}
	return web, nil
}

// API returns the native HTTP client session.
func (h *Handle) API() (*backend.APISession, error) {
	s, err := h.Session()
	if err != nil {
		return nil, err
	}
	api, ok := s.(*backend.APISession)
	if !ok {
		return nil, &backend.UnsupportedError{Kind: h.kind, Value: "not an api session"}
	}
	return api, nil
}

// Mobile returns the native mobile session.
func (h *Handle) Mobile() (*backend.MobileSession, error) {
	s, err := h.Session()
	if err != nil {
		return nil, err
	}
	mobile, ok := s.(*backend.MobileSession)
	if !ok {
		return nil, &backend.UnsupportedError{Kind: h.kind, Value: "not a mobile session"}
	}
	return mobile, nil
}

// close tears down the native session exactly once. The native close error
// is returned for logging, but the handle transitions to closed regardless.
func (h *Handle) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	err := h.session.Close()
	h.session = nil
	return err
}

// screenshotter returns the native session's visual surface if the handle is
// live and the backend has one.
func (h *Handle) screenshotter() (backend.Screenshotter, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	shooter, ok := h.session.(backend.Screenshotter)
	return shooter, ok
}
