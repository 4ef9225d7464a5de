// Package browserutil wraps browser launch, stealth page setup and the
// humanized input primitives shared by the form-filling code.
package browserutil

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/yourusername/sweeps-automation/internal/logger"
)

var (
	rng *rand.Rand
)

func init() {
	rng = rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Options controls browser launch behavior
type Options struct {
	Headless   bool
	SlowMotion time.Duration
}

// Launch starts a Chrome instance. It prefers a locally installed browser
// and falls back to rod's downloaded one. The returned cleanup closes the
// browser and must be called on every exit path.
func Launch(opts Options) (*rod.Browser, func(), error) {
	path, exists := launcher.LookPath()
	var l *launcher.Launcher

	if exists {
		logger.Info("Using system Chrome browser", "path", path)
		l = launcher.New().Bin(path)
	} else {
		logger.Info("System Chrome not found, using downloaded browser")
		l = launcher.New()
	}

	l = l.Headless(opts.Headless).
		Devtools(false).
		Leakless(false) // Disable leakless to avoid antivirus issues

	l = l.Set("user-agent", RandomUserAgent())

	url, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if opts.SlowMotion > 0 {
		browser = browser.SlowMotion(opts.SlowMotion)
	}
	if err := browser.Connect(); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	logger.Info("Browser launched", "headless", opts.Headless)

	cleanup := func() {
		logger.Info("Closing browser...")
		if err := browser.Close(); err != nil {
			logger.Warn("Failed to close browser", "error", err)
		}
	}

	return browser, cleanup, nil
}

// NewPage opens a fresh page with the stealth evasions applied
func NewPage(browser *rod.Browser) (*rod.Page, error) {
	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("failed to create stealth page: %w", err)
	}

	if err := DisableAutomationFlags(page); err != nil {
		logger.Warn("Failed to mask automation flags", "error", err)
	}
	if err := SetRealisticViewport(page); err != nil {
		logger.Warn("Failed to set viewport", "error", err)
	}

	return page, nil
}

// DisableAutomationFlags masks the most common automation markers
func DisableAutomationFlags(page *rod.Page) error {
	_, err := page.Eval(`() => {
		Object.defineProperty(navigator, 'webdriver', {
			get: () => false
		});
		window.chrome = window.chrome || { runtime: {} };
	}`)
	if err != nil {
		return fmt.Errorf("failed to disable webdriver flag: %w", err)
	}
	return nil
}

// SetRealisticViewport sets a realistic viewport size
func SetRealisticViewport(page *rod.Page) error {
	viewports := []struct{ Width, Height int }{
		{1920, 1080},
		{1366, 768},
		{1536, 864},
		{1440, 900},
	}

	viewport := viewports[rng.Intn(len(viewports))]
	return page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  viewport.Width,
		Height: viewport.Height,
	})
}

// RandomUserAgent returns a realistic desktop Chrome user agent
func RandomUserAgent() string {
	userAgents := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}

	return userAgents[rng.Intn(len(userAgents))]
}

// RandomDelay returns a random duration between min and max
func RandomDelay(min, max time.Duration) time.Duration {
	if min >= max {
		return min
	}
	delta := max - min
	return min + time.Duration(rng.Int63n(int64(delta)))
}

// ShortDelay returns a short random delay
func ShortDelay() time.Duration {
	return RandomDelay(100*time.Millisecond, 500*time.Millisecond)
}

// Sleep blocks for d or until ctx is canceled. It reports whether the full
// duration elapsed.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// TypeInto clicks an element and types text with variable per-key delays
func TypeInto(el *rod.Element, text string) error {
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to click element: %w", err)
	}

	time.Sleep(ShortDelay())

	for _, char := range text {
		if err := el.Input(string(char)); err != nil {
			return fmt.Errorf("failed to type character: %w", err)
		}
		time.Sleep(RandomDelay(60*time.Millisecond, 160*time.Millisecond))
	}

	return nil
}

// Capture saves a timestamped screenshot of the page under dir and returns
// the file path. Used for failure diagnostics and ambiguous-outcome audit.
func Capture(page *rod.Page, dir, name string) (string, error) {
	if page == nil {
		return "", fmt.Errorf("no page to capture")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%d.png", name, time.Now().Unix()))
	data, err := page.Screenshot(false, nil)
	if err != nil {
		return "", fmt.Errorf("failed to capture screenshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}

	logger.Info("Saved screenshot", "path", path)
	return path, nil
}
