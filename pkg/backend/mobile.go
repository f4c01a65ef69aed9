package backend

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"resty.dev/v3"

	"github.com/harnesskit/harnesskit/pkg/logging"
)

// SwipeDirection names a screen swipe gesture.
type SwipeDirection string

const (
	SwipeUp    SwipeDirection = "up"
	SwipeDown  SwipeDirection = "down"
	SwipeLeft  SwipeDirection = "left"
	SwipeRight SwipeDirection = "right"
)

// MobileSession is a W3C WebDriver session against an Appium server.
// The wire protocol is plain HTTP, so the session reuses the same resty
// client stack as the API backend.
type MobileSession struct {
	client    *resty.Client
	platform  string
	sessionID string
	createdAt time.Time
	log       *logging.Logger
}

// wdResponse is the WebDriver envelope: every reply nests its payload (or an
// error object) under "value".
type wdResponse struct {
	Value json.RawMessage `json:"value"`
}

type wdError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func defaultCapabilities(platform string) (map[string]interface{}, error) {
	switch platform {
	case "android":
		return map[string]interface{}{
			"platformName":          "Android",
			"appium:automationName": "UiAutomator2",
			"appium:deviceName":     "Android Emulator",
		}, nil
	case "ios":
		return map[string]interface{}{
			"platformName":          "iOS",
			"appium:automationName": "XCUITest",
			"appium:deviceName":     "iPhone Simulator",
		}, nil
	default:
		return nil, &UnsupportedError{Kind: KindMobile, Value: platform}
	}
}

func (f *Factory) createMobile(ctx context.Context, params Params) (Session, error) {
	platform := params.Platform
	if platform == "" {
		platform = f.cfg.GetString("mobile_platform", "android")
	}
	platform = strings.ToLower(platform)

	caps, err := defaultCapabilities(platform)
	if err != nil {
		return nil, err
	}
	// Caller capabilities win on conflict
	for k, v := range params.Capabilities {
		caps[k] = v
	}

	server := f.cfg.GetString("appium_server", "http://127.0.0.1:4723")
	client := resty.New().
		SetBaseURL(server).
		SetTimeout(f.cfg.GetDuration("appium_timeout", 120*time.Second)).
		SetHeader("Content-Type", "application/json")

	session := &MobileSession{
		client:    client,
		platform:  platform,
		createdAt: time.Now(),
		log:       f.log,
	}

	f.log.Infof("creating %s mobile session at %s", platform, server)

	var created struct {
		SessionID string `json:"sessionId"`
	}
	err = session.execute(ctx, "POST", "/session", map[string]interface{}{
		"capabilities": map[string]interface{}{"alwaysMatch": caps},
	}, &created)
	if err != nil {
		_ = client.Close()
		f.log.Errorf("mobile session failed: could not connect %s at %s: %v", platform, server, err)
		return nil, &ConstructionError{Kind: KindMobile, Variant: platform, Err: err}
	}
	session.sessionID = created.SessionID

	// Implicit wait applies server-side to element lookups
	implicit := f.cfg.GetDuration("implicit_wait", 10*time.Second)
	if err := session.SetImplicitTimeout(ctx, implicit); err != nil {
		f.log.Warnf("mobile session: failed to set implicit timeout: %v", err)
	}

	return session, nil
}

// execute sends one WebDriver command and decodes the envelope's value into
// out (which may be nil for commands with no useful reply).
func (s *MobileSession) execute(ctx context.Context, method, route string, body, out interface{}) error {
	req := s.client.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, route)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, route, err)
	}

	var envelope wdResponse
	if err := json.Unmarshal(resp.Bytes(), &envelope); err != nil {
		return fmt.Errorf("%s %s: malformed response: %w", method, route, err)
	}

	if resp.IsError() {
		var wire wdError
		_ = json.Unmarshal(envelope.Value, &wire)
		if wire.Error == "" {
			wire.Error = fmt.Sprintf("status %d", resp.StatusCode())
		}
		return fmt.Errorf("%s %s: %s: %s", method, route, wire.Error, wire.Message)
	}

	if out != nil && len(envelope.Value) > 0 {
		if err := json.Unmarshal(envelope.Value, out); err != nil {
			return fmt.Errorf("%s %s: decode value: %w", method, route, err)
		}
	}
	return nil
}

func (s *MobileSession) route(suffix string) string {
	return "/session/" + s.sessionID + suffix
}

// Kind reports KindMobile.
func (s *MobileSession) Kind() Kind { return KindMobile }

// Platform returns the mobile platform the session was created for.
func (s *MobileSession) Platform() string { return s.platform }

// SessionID returns the WebDriver session ID assigned by the server.
func (s *MobileSession) SessionID() string { return s.sessionID }

// CreatedAt returns the session creation time.
func (s *MobileSession) CreatedAt() time.Time { return s.createdAt }

// SetImplicitTimeout sets the server-side implicit wait for element lookups.
func (s *MobileSession) SetImplicitTimeout(ctx context.Context, d time.Duration) error {
	return s.execute(ctx, "POST", s.route("/timeouts"), map[string]interface{}{
		"implicit": d.Milliseconds(),
	}, nil)
}

// WindowSize returns the device viewport dimensions.
func (s *MobileSession) WindowSize(ctx context.Context) (width, height int, err error) {
	var rect struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := s.execute(ctx, "GET", s.route("/window/rect"), nil, &rect); err != nil {
		return 0, 0, err
	}
	return rect.Width, rect.Height, nil
}

// Tap performs a touch tap at the given screen coordinates.
func (s *MobileSession) Tap(ctx context.Context, x, y int) error {
	s.log.Debugf("tap at (%d, %d)", x, y)
	return s.performPointer(ctx, x, y, x, y, 50*time.Millisecond)
}

// Swipe performs a swipe gesture across the middle of the screen in the
// given direction.
func (s *MobileSession) Swipe(ctx context.Context, direction SwipeDirection, duration time.Duration) error {
	width, height, err := s.WindowSize(ctx)
	if err != nil {
		return err
	}

	midX, midY := width/2, height/2
	var x1, y1, x2, y2 int
	switch direction {
	case SwipeUp:
		x1, y1, x2, y2 = midX, height*4/5, midX, height/5
	case SwipeDown:
		x1, y1, x2, y2 = midX, height/5, midX, height*4/5
	case SwipeLeft:
		x1, y1, x2, y2 = width*4/5, midY, width/5, midY
	case SwipeRight:
		x1, y1, x2, y2 = width/5, midY, width*4/5, midY
	default:
		return fmt.Errorf("unknown swipe direction: %q", direction)
	}

	s.log.Debugf("swipe %s: (%d,%d) -> (%d,%d)", direction, x1, y1, x2, y2)
	return s.performPointer(ctx, x1, y1, x2, y2, duration)
}

// performPointer issues a W3C touch pointer sequence from (x1,y1) to (x2,y2).
func (s *MobileSession) performPointer(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error {
	actions := map[string]interface{}{
		"actions": []interface{}{
			map[string]interface{}{
				"type":       "pointer",
				"id":         "finger1",
				"parameters": map[string]interface{}{"pointerType": "touch"},
				"actions": []interface{}{
					map[string]interface{}{"type": "pointerMove", "duration": 0, "x": x1, "y": y1},
					map[string]interface{}{"type": "pointerDown", "button": 0},
					map[string]interface{}{"type": "pointerMove", "duration": duration.Milliseconds(), "x": x2, "y": y2},
					map[string]interface{}{"type": "pointerUp", "button": 0},
				},
			},
		},
	}
	return s.execute(ctx, "POST", s.route("/actions"), actions, nil)
}

// HideKeyboard dismisses the on-screen keyboard if it is shown.
func (s *MobileSession) HideKeyboard(ctx context.Context) error {
	return s.execute(ctx, "POST", s.route("/appium/device/hide_keyboard"), map[string]interface{}{}, nil)
}

// ActivateApp brings the application with the given identifier to the
// foreground, launching it if needed.
func (s *MobileSession) ActivateApp(ctx context.Context, appID string) error {
	return s.execute(ctx, "POST", s.route("/appium/device/activate_app"), map[string]interface{}{
		"appId":    appID,
		"bundleId": appID,
	}, nil)
}

// TerminateApp stops the application with the given identifier.
func (s *MobileSession) TerminateApp(ctx context.Context, appID string) error {
	return s.execute(ctx, "POST", s.route("/appium/device/terminate_app"), map[string]interface{}{
		"appId":    appID,
		"bundleId": appID,
	}, nil)
}

// SaveScreenshot captures the device screen to the given path.
func (s *MobileSession) SaveScreenshot(path string) error {
	var encoded string
	if err := s.execute(context.Background(), "GET", s.route("/screenshot"), nil, &encoded); err != nil {
		return err
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("failed to decode screenshot: %w", err)
	}
	return os.WriteFile(path, raw, 0600)
}

// Close deletes the WebDriver session and releases the transport.
func (s *MobileSession) Close() error {
	var errs []error
	if s.sessionID != "" {
		if err := s.execute(context.Background(), "DELETE", s.route(""), nil, nil); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.client.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing mobile session: %v", errs)
	}
	return nil
}
