package backend

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/harnesskit/harnesskit/pkg/logging"
)

// Baseline launch arguments for chromium-family browsers. These keep the
// browser usable inside containers and suppress the automation banner that
// some applications key anti-bot behavior off.
var chromiumArgs = []string{
	"--no-sandbox",
	"--disable-dev-shm-usage",
	"--disable-gpu",
	"--disable-blink-features=AutomationControlled",
}

// WebSession wraps a Playwright browser, context, and page for one web
// automation session.
type WebSession struct {
	browser      playwright.Browser
	context      playwright.BrowserContext
	page         playwright.Page
	browserID    string
	headless     bool
	explicitWait time.Duration
	createdAt    time.Time
	log          *logging.Logger
}

func (f *Factory) createWeb(params Params) (Session, error) {
	browser := params.Browser
	if browser == "" {
		browser = f.cfg.GetString("browser", "chrome")
	}
	browser = strings.ToLower(browser)
	headless := f.cfg.GetBool("headless", false)

	// Reject unknown variants before the driver is even started
	switch browser {
	case "chrome", "chromium", "edge", "firefox", "safari", "webkit":
	default:
		return nil, &UnsupportedError{Kind: KindWeb, Value: browser}
	}

	pw, err := f.runner()
	if err != nil {
		f.log.Errorf("web session failed: playwright driver did not start: %v", err)
		return nil, &ConstructionError{Kind: KindWeb, Variant: browser, Err: err}
	}

	var (
		browserType playwright.BrowserType
		launchOpts  = playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(headless)}
	)
	switch browser {
	case "chrome", "chromium":
		browserType = pw.Chromium
		launchOpts.Args = chromiumArgs
	case "edge":
		browserType = pw.Chromium
		launchOpts.Args = chromiumArgs
		launchOpts.Channel = playwright.String("msedge")
	case "firefox":
		browserType = pw.Firefox
	case "safari", "webkit":
		browserType = pw.WebKit
	}

	// Maximize is best-effort: only chromium honors the argument, and a
	// browser that ignores it still launches at the configured viewport.
	if !headless && (browserType == pw.Chromium) {
		launchOpts.Args = append(append([]string{}, launchOpts.Args...), "--start-maximized")
	}

	f.log.Infof("launching %s browser (headless=%t)", browser, headless)

	b, err := browserType.Launch(launchOpts)
	if err != nil {
		f.log.Errorf("web session failed: could not launch %s: %v", browser, err)
		return nil, &ConstructionError{Kind: KindWeb, Variant: browser, Err: err}
	}

	width, height := parseWindowSize(f.cfg.GetString("window_size", "1920x1080"))
	context, err := b.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: width, Height: height},
	})
	if err != nil {
		_ = b.Close()
		f.log.Errorf("web session failed: could not create context for %s: %v", browser, err)
		return nil, &ConstructionError{Kind: KindWeb, Variant: browser, Err: err}
	}

	page, err := context.NewPage()
	if err != nil {
		_ = context.Close()
		_ = b.Close()
		f.log.Errorf("web session failed: could not open page for %s: %v", browser, err)
		return nil, &ConstructionError{Kind: KindWeb, Variant: browser, Err: err}
	}

	// Implicit wait bounds element lookups; page-load timeout bounds navigation
	page.SetDefaultTimeout(float64(f.cfg.GetDuration("implicit_wait", 10*time.Second).Milliseconds()))
	page.SetDefaultNavigationTimeout(float64(f.cfg.GetDuration("page_load_timeout", 30*time.Second).Milliseconds()))

	return &WebSession{
		browser:      b,
		context:      context,
		page:         page,
		browserID:    browser,
		headless:     headless,
		explicitWait: f.cfg.GetDuration("explicit_wait", 20*time.Second),
		createdAt:    time.Now(),
		log:          f.log,
	}, nil
}

func parseWindowSize(size string) (int, int) {
	parts := strings.SplitN(size, "x", 2)
	if len(parts) == 2 {
		w, werr := strconv.Atoi(strings.TrimSpace(parts[0]))
		h, herr := strconv.Atoi(strings.TrimSpace(parts[1]))
		if werr == nil && herr == nil && w > 0 && h > 0 {
			return w, h
		}
	}
	return 1920, 1080
}

// Kind reports KindWeb.
func (s *WebSession) Kind() Kind { return KindWeb }

// Page exposes the underlying Playwright page for operations this wrapper
// does not cover.
func (s *WebSession) Page() playwright.Page { return s.page }

// Browser returns the browser family the session was launched with.
func (s *WebSession) Browser() string { return s.browserID }

// Headless reports whether the browser runs without a visible window.
func (s *WebSession) Headless() bool { return s.headless }

// CreatedAt returns the session creation time.
func (s *WebSession) CreatedAt() time.Time { return s.createdAt }

// Navigate loads the given URL and waits for the load event.
func (s *WebSession) Navigate(url string) error {
	s.log.Debugf("navigate: %s", url)
	if _, err := s.page.Goto(url); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// URL returns the current page URL.
func (s *WebSession) URL() string { return s.page.URL() }

// Title returns the current page title.
func (s *WebSession) Title() (string, error) { return s.page.Title() }

// Click clicks the element matching the selector.
func (s *WebSession) Click(selector string) error {
	s.log.Debugf("click: %s", selector)
	return s.page.Click(selector)
}

// Fill clears and types text into the element matching the selector.
func (s *WebSession) Fill(selector, value string) error {
	s.log.Debugf("fill: %s", selector)
	return s.page.Fill(selector, value)
}

// Text returns the inner text of the element matching the selector.
func (s *WebSession) Text(selector string) (string, error) {
	return s.page.InnerText(selector)
}

// Attribute returns the named attribute of the element matching the
// selector, or the empty string when the attribute is absent.
func (s *WebSession) Attribute(selector, name string) (string, error) {
	value, err := s.page.GetAttribute(selector, name)
	if err != nil {
		return "", err
	}
	return value, nil
}

// IsVisible reports whether the element matching the selector is visible.
// Unlike WaitFor it returns immediately without polling.
func (s *WebSession) IsVisible(selector string) (bool, error) {
	return s.page.IsVisible(selector)
}

// WaitFor blocks until the element matching the selector reaches the given
// state: "attached", "detached", "visible", or "hidden". The wait is bounded
// by the configured explicit wait rather than the page default timeout.
func (s *WebSession) WaitFor(selector, state string) error {
	s.log.Debugf("wait for %s to be %s", selector, state)
	waitState := playwright.WaitForSelectorState(state)
	_, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   &waitState,
		Timeout: playwright.Float(float64(s.explicitWait.Milliseconds())),
	})
	return err
}

// SelectByLabel selects a dropdown option by its visible text.
func (s *WebSession) SelectByLabel(selector, label string) error {
	s.log.Debugf("select option %q in %s", label, selector)
	_, err := s.page.SelectOption(selector, playwright.SelectOptionValues{
		Labels: &[]string{label},
	})
	return err
}

// SelectByValue selects a dropdown option by its value attribute.
func (s *WebSession) SelectByValue(selector, value string) error {
	s.log.Debugf("select value %q in %s", value, selector)
	_, err := s.page.SelectOption(selector, playwright.SelectOptionValues{
		Values: &[]string{value},
	})
	return err
}

// Press sends a keyboard key to the element matching the selector.
func (s *WebSession) Press(selector, key string) error {
	return s.page.Press(selector, key)
}

// Hover moves the mouse over the element matching the selector.
func (s *WebSession) Hover(selector string) error {
	return s.page.Hover(selector)
}

// ScrollTo scrolls the element matching the selector into view.
func (s *WebSession) ScrollTo(selector string) error {
	return s.page.Locator(selector).ScrollIntoViewIfNeeded()
}

// SaveScreenshot captures the current page to the given path.
func (s *WebSession) SaveScreenshot(path string) error {
	_, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
	})
	return err
}

// Close releases the page, context, and browser. Cleanup continues past
// individual failures so a wedged page cannot leak the browser process.
func (s *WebSession) Close() error {
	var errs []error
	if err := s.page.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.context.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.browser.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing web session: %v", errs)
	}
	return nil
}
