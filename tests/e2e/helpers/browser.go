package helpers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/fleet-e2e/device-dialog/internal/fleetstub"
	"github.com/fleet-e2e/device-dialog/internal/locators"
	"github.com/fleet-e2e/device-dialog/tests/e2e/config"
	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
)

// ErrEnvironment marks failures to start the browser or reach the application
var ErrEnvironment = errors.New("e2e environment failure")

// Session owns one playwright driver, browser, context and page for the
// lifetime of a suite. TearDown releases whatever Setup managed to acquire.
type Session struct {
	Playwright *playwright.Playwright
	Browser    playwright.Browser
	Context    playwright.BrowserContext
	Page       playwright.Page
	Config     *config.TestConfig
	Locators   *locators.Table
	// AppURL is the page every test case starts from
	AppURL string
	RunID  string

	stub      *httptest.Server
	stubStore *fleetstub.Store
	t         testing.TB
	// captured counts failure screenshots already taken by subtests
	captured int
}

// NewSession creates a session bound to t; nothing is started until Setup.
func NewSession(t testing.TB, cfg *config.TestConfig) *Session {
	return &Session{
		Config: cfg,
		RunID:  uuid.New().String()[:8],
		t:      t,
	}
}

func envError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrEnvironment, fmt.Sprintf(format, args...))
}

// Setup resolves the application URL, launches the browser with the
// configured timeout as the default for every wait, signs in when
// configured, and navigates to the application page.
func (s *Session) Setup() error {
	table, err := locators.Load(s.Config.LocatorsFile)
	if err != nil {
		return envError("could not load locators: %v", err)
	}
	s.Locators = table

	if err := s.resolveAppURL(); err != nil {
		return err
	}

	if !s.Config.Preinstalled {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{s.Config.Browser}}); err != nil {
			return envError("could not install playwright browsers: %v", err)
		}
	}
	pw, err := playwright.Run()
	if err != nil {
		return envError("could not start playwright: %v", err)
	}
	s.Playwright = pw

	browserType := pw.Chromium
	switch s.Config.Browser {
	case "firefox":
		browserType = pw.Firefox
	case "webkit":
		browserType = pw.WebKit
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(s.Config.Headless),
		SlowMo:   playwright.Float(float64(s.Config.SlowMo.Milliseconds())),
	}
	maximized := !s.Config.Headless && s.Config.Browser == "chromium"
	if maximized {
		launch.Args = []string{"--start-maximized"}
	}
	browser, err := browserType.Launch(launch)
	if err != nil {
		return envError("could not launch %s: %v", s.Config.Browser, err)
	}
	s.Browser = browser

	contextOpts := playwright.BrowserNewContextOptions{}
	if maximized {
		// the window size decides the viewport
		contextOpts.NoViewport = playwright.Bool(true)
	} else {
		contextOpts.Viewport = &playwright.Size{
			Width:  s.Config.ViewportWidth,
			Height: s.Config.ViewportHeight,
		}
	}
	if s.Config.Videos {
		contextOpts.RecordVideo = &playwright.RecordVideo{
			Dir: filepath.Join(s.Config.ArtifactsDir, "videos", s.RunID),
		}
	}
	bctx, err := browser.NewContext(contextOpts)
	if err != nil {
		return envError("could not create context: %v", err)
	}
	s.Context = bctx

	page, err := bctx.NewPage()
	if err != nil {
		return envError("could not create page: %v", err)
	}
	s.Page = page

	page.SetDefaultTimeout(s.Config.TimeoutMillis())
	page.SetDefaultNavigationTimeout(s.Config.TimeoutMillis())

	if s.Config.LoginEnabled() {
		if err := s.Login(); err != nil {
			return envError("login failed: %v", err)
		}
	}

	if err := s.NavigateTo(s.AppURL); err != nil {
		return envError("%v", err)
	}
	log.Printf("[e2e-session] %s ready at %s (run %s)", s.Config.Browser, s.AppURL, s.RunID)
	return nil
}

// resolveAppURL starts the in-process stub when no BASE_URL is configured.
func (s *Session) resolveAppURL() error {
	if s.Config.BaseURL != "" {
		if !config.Reachable(s.Config.BaseURL) {
			return envError("application at %s is not reachable", s.Config.BaseURL)
		}
		s.AppURL = s.Config.BaseURL
		return nil
	}

	store, err := fleetstub.OpenStore(context.Background(), ":memory:")
	if err != nil {
		return envError("could not open stub store: %v", err)
	}
	s.stubStore = store
	opts := fleetstub.Options{Store: store, Quiet: true}
	if s.Config.LoginEnabled() {
		opts.User = s.Config.LoginUser
		opts.Password = s.Config.LoginPassword
	}
	srv, err := fleetstub.NewServer(opts)
	if err != nil {
		return envError("could not build stub: %v", err)
	}
	s.stub = httptest.NewServer(srv.Handler())
	s.AppURL = s.stub.URL + "/"
	log.Printf("[e2e-session] started fleet stub at %s", s.stub.URL)
	return nil
}

// NavigateTo loads target and waits for the load event
func (s *Session) NavigateTo(target string) error {
	_, err := s.Page.Goto(target, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	if err != nil {
		if strings.Contains(err.Error(), "ERR_TOO_MANY_REDIRECTS") {
			return fmt.Errorf("redirect loop navigating to %s (check BASE_URL / login configuration): %w", target, err)
		}
		return fmt.Errorf("failed to navigate to %s: %w", target, err)
	}
	return nil
}

// Screenshot writes a full-page screenshot under the artifacts directory
// and returns its path.
func (s *Session) Screenshot(name string) (string, error) {
	if s.Page == nil {
		return "", errors.New("no page")
	}
	dir := filepath.Join(s.Config.ArtifactsDir, "screenshots", s.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, sanitizeFileName(name)+".png")
	_, err := s.Page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return path, err
}

// CaptureFailure saves a screenshot named after t when t has failed and
// screenshots are enabled. It reports whether one was written.
func (s *Session) CaptureFailure(t testing.TB) bool {
	if t == nil || !t.Failed() || !s.Config.Screenshots || s.Page == nil {
		return false
	}
	path, err := s.Screenshot(t.Name())
	if err != nil {
		t.Logf("failure screenshot: %v", err)
		return false
	}
	t.Logf("failure screenshot: %s", path)
	if t != s.t {
		s.captured++
	}
	return true
}

// TearDown closes the browser and cleans up resources. Safe to call after
// a partial Setup and more than once. The suite-level failure screenshot is
// skipped when a subtest already captured the failing page.
func (s *Session) TearDown() {
	if s.captured == 0 {
		s.CaptureFailure(s.t)
	}

	if s.Page != nil {
		_ = s.Page.Close()
		s.Page = nil
	}
	if s.Context != nil {
		_ = s.Context.Close()
		s.Context = nil
	}
	if s.Browser != nil {
		_ = s.Browser.Close()
		s.Browser = nil
	}
	if s.Playwright != nil {
		if err := s.Playwright.Stop(); err != nil {
			log.Printf("[e2e-session] playwright stop: %v", err)
		}
		s.Playwright = nil
	}
	if s.stub != nil {
		s.stub.Close()
		s.stub = nil
	}
	if s.stubStore != nil {
		_ = s.stubStore.Close()
		s.stubStore = nil
	}
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitizeFileName(name string) string {
	return strings.Trim(unsafeFileChars.ReplaceAllString(name, "_"), "_")
}
