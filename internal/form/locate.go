package form

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"

	"github.com/yourusername/sweeps-automation/internal/logger"
)

const (
	// FormHost is the domain serving the embedded entry form
	FormHost = "sweepwidget.com"

	// deferredSrcAttr is where lazy-loading embeds park the frame URL
	// until a script promotes it to src
	deferredSrcAttr = "data-src"

	framePollInterval = 500 * time.Millisecond
)

// ErrFormUnavailable means neither the embedded frame nor fallback
// navigation produced a form surface. Fatal for the run; not retried.
var ErrFormUnavailable = errors.New("form surface unavailable")

var deferredSrcPattern = regexp.MustCompile(
	`data-src=["']((?:https?:)?//[^"']*` + regexp.QuoteMeta(FormHost) + `[^"']*)["']`)

// Locate finds the embedded entry form on a loaded page. The primary path
// waits for the widget iframe and polls until the frame reports a URL on
// the form host. When that times out, the fallback extracts the frame's
// deferred source URL and navigates the top-level page to it directly.
func Locate(page *rod.Page, profile Profile, timeout time.Duration) (*Session, error) {
	deadline := time.Now().Add(timeout)

	frameEl, err := page.Timeout(timeout).Element(profile.Selector(FieldFrame))
	if err != nil {
		logger.Warn("Widget iframe never appeared", "site", profile.Name, "error", err)
	} else {
		for time.Now().Before(deadline) {
			frame, ferr := frameEl.Frame()
			if ferr == nil {
				info, ierr := frame.Info()
				if ierr == nil && strings.Contains(info.URL, FormHost) {
					logger.Info("Form frame resolved", "site", profile.Name, "url", info.URL)
					return newSession(page, frame, profile, false), nil
				}
			}
			time.Sleep(framePollInterval)
		}
		logger.Warn("Widget iframe never reported the form host", "site", profile.Name)
	}

	// Fallback: pull the deferred source off the iframe element, or scan
	// the raw markup for it, and navigate to the form directly.
	src := ""
	if frameEl != nil {
		if attr, aerr := frameEl.Attribute(deferredSrcAttr); aerr == nil && attr != nil {
			src = *attr
		}
	}
	if src == "" {
		html, herr := page.HTML()
		if herr != nil {
			return nil, fmt.Errorf("%w: failed to read page markup: %v", ErrFormUnavailable, herr)
		}
		src = extractDeferredSrc(html)
	}
	if src == "" {
		return nil, ErrFormUnavailable
	}

	formURL := normalizeFormURL(src)
	if formURL == "" {
		return nil, fmt.Errorf("%w: unusable form URL %q", ErrFormUnavailable, src)
	}

	logger.Info("Falling back to direct form navigation", "site", profile.Name, "url", formURL)
	if err := page.Navigate(formURL); err != nil {
		return nil, fmt.Errorf("%w: direct navigation failed: %v", ErrFormUnavailable, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: form page never loaded: %v", ErrFormUnavailable, err)
	}

	return newSession(page, page, profile, true), nil
}

// extractDeferredSrc scans raw page markup for a deferred form URL
func extractDeferredSrc(html string) string {
	match := deferredSrcPattern.FindStringSubmatch(html)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}

// normalizeFormURL makes a protocol-relative URL absolute. Anything that is
// not an http(s) or protocol-relative URL is rejected.
func normalizeFormURL(src string) string {
	switch {
	case strings.HasPrefix(src, "//"):
		return "https:" + src
	case strings.HasPrefix(src, "https://"), strings.HasPrefix(src, "http://"):
		return src
	default:
		return ""
	}
}
