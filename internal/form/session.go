package form

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/yourusername/sweeps-automation/internal/browserutil"
	"github.com/yourusername/sweeps-automation/internal/logger"
)

const (
	// fieldWait bounds how long Fill waits for a field to exist
	fieldWait = 10 * time.Second
	// probeWait bounds the presence probe of an optional step
	probeWait = 5 * time.Second
)

// Session is the live handle to the resolved form surface. The surface is
// either the embedded frame or, after fallback navigation, the top-level
// page itself. A session is owned by exactly one pipeline run.
type Session struct {
	// Page is the top-level page, used for screenshots and full-page text
	Page *rod.Page

	surface *rod.Page
	profile Profile
	direct  bool
}

func newSession(page, surface *rod.Page, profile Profile, direct bool) *Session {
	return &Session{Page: page, surface: surface, profile: profile, direct: direct}
}

// Direct reports whether the session was established by fallback navigation
// instead of through the embedded frame.
func (s *Session) Direct() bool {
	return s.direct
}

// Fill resolves key to a selector, waits for the field and either selects
// value from a choice control or types it. Forms vary between sweepstakes,
// so a missing or unfillable field is logged and swallowed; callers must
// tolerate a field silently not being filled.
func (s *Session) Fill(key, value string, choice bool) {
	if value == "" {
		return
	}
	if err := s.fill(key, value, choice); err != nil {
		logger.Warn("Skipping form field", "field", key, "error", err)
	}
}

// fill is the strict variant used by load-bearing steps
func (s *Session) fill(key, value string, choice bool) error {
	selector := s.profile.Selector(key)
	if selector == "" {
		return fmt.Errorf("no selector for field %s", key)
	}

	el, err := s.surface.Timeout(fieldWait).Element(selector)
	if err != nil {
		return fmt.Errorf("field not found: %w", err)
	}

	if choice {
		if err := el.Select([]string{value}, true, rod.SelectorTypeText); err != nil {
			return fmt.Errorf("failed to select option %q: %w", value, err)
		}
		return nil
	}

	if err := browserutil.TypeInto(el, value); err != nil {
		return fmt.Errorf("failed to type value: %w", err)
	}
	return nil
}

// ClickAndWait waits for the control behind key, clicks it and lets the
// form settle for wait. A native click that fails falls back to a
// programmatic click against the same selector. A control that never
// appears is logged and the error propagated: a missing action control
// usually means the layout changed and the run should halt.
func (s *Session) ClickAndWait(key string, wait time.Duration) error {
	selector := s.profile.Selector(key)

	el, err := s.surface.Timeout(fieldWait).Element(selector)
	if err != nil {
		logger.Error("Action control not found", "field", key, "selector", selector, "error", err)
		return fmt.Errorf("control %s not found: %w", key, err)
	}

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		logger.Debug("Native click failed, falling back to programmatic click", "field", key, "error", err)
		if _, err := s.surface.Eval(`(sel) => document.querySelector(sel).click()`, selector); err != nil {
			return fmt.Errorf("failed to click %s: %w", key, err)
		}
	}

	time.Sleep(wait)
	return nil
}

// probe waits up to wait for the field behind key to exist
func (s *Session) probe(key string, wait time.Duration) (*rod.Element, bool) {
	selector := s.profile.Selector(key)
	if selector == "" {
		return nil, false
	}
	el, err := s.surface.Timeout(wait).Element(selector)
	if err != nil {
		return nil, false
	}
	return el, true
}

// Has reports whether the form surface currently contains selector
func (s *Session) Has(selector string) bool {
	if s.surface == nil {
		return false
	}
	has, _, err := s.surface.Has(selector)
	return err == nil && has
}

// PageURL returns the URL of the top-level page
func (s *Session) PageURL() string {
	if s.Page == nil {
		return ""
	}
	info, err := s.Page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// PageText returns the rendered text of the top-level page
func (s *Session) PageText() string {
	if s.Page == nil {
		return ""
	}
	res, err := s.Page.Eval(`() => document.body.innerText`)
	if err != nil {
		logger.Warn("Failed to read page text", "error", err)
		return ""
	}
	return res.Value.String()
}
