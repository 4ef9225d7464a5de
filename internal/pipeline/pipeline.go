// Package pipeline composes the entry run for one site: rate check,
// navigation, form location, step filling, challenge handling, submit and
// ledger recording.
package pipeline

import (
	"context"
	"time"

	"github.com/go-rod/rod"

	"github.com/yourusername/sweeps-automation/internal/browserutil"
	"github.com/yourusername/sweeps-automation/internal/challenge"
	"github.com/yourusername/sweeps-automation/internal/form"
	"github.com/yourusername/sweeps-automation/internal/history"
	"github.com/yourusername/sweeps-automation/internal/ledger"
	"github.com/yourusername/sweeps-automation/internal/logger"
)

// DefaultLocateTimeout bounds the form locator's primary path
const DefaultLocateTimeout = 30 * time.Second

// Runner executes entry runs. One Runner serves all sites; concurrent runs
// are safe because the ledger serializes its own writes and every run owns
// its own page.
type Runner struct {
	Browser       *rod.Browser
	Ledger        *ledger.Ledger
	Entrant       form.Entrant
	Challenge     *challenge.Handler
	ScreenshotDir string
	LocateTimeout time.Duration

	// stage functions, replaceable in tests
	openPage  func(ctx context.Context, profile form.Profile) (*rod.Page, func(), error)
	locate    func(page *rod.Page, profile form.Profile) (*form.Session, error)
	fillSteps func(ctx context.Context, s *form.Session) error
	resolve   func(ctx context.Context, s *form.Session) (bool, error)
	submit    func(s *form.Session) (form.Outcome, error)
}

// New builds a runner wired to the real browser stages
func New(browser *rod.Browser, led *ledger.Ledger, entrant form.Entrant, ch *challenge.Handler, screenshotDir string) *Runner {
	r := &Runner{
		Browser:       browser,
		Ledger:        led,
		Entrant:       entrant,
		Challenge:     ch,
		ScreenshotDir: screenshotDir,
		LocateTimeout: DefaultLocateTimeout,
	}

	r.openPage = r.defaultOpenPage
	r.locate = func(page *rod.Page, profile form.Profile) (*form.Session, error) {
		return form.Locate(page, profile, r.LocateTimeout)
	}
	r.fillSteps = func(ctx context.Context, s *form.Session) error {
		return form.RunSteps(ctx, s, r.Entrant)
	}
	r.resolve = func(ctx context.Context, s *form.Session) (bool, error) {
		return r.Challenge.Resolve(ctx, s)
	}
	r.submit = func(s *form.Session) (form.Outcome, error) {
		return s.Submit()
	}

	return r
}

// RunEntry executes one end-to-end entry run for the site and reports
// whether an entry was (or, in a dry run, would have been) submitted.
// It is the sole writer of ledger outcomes; guard denials and dry runs
// write nothing.
func (r *Runner) RunEntry(ctx context.Context, profile form.Profile, dryRun bool) bool {
	site := profile.Name

	if !r.Ledger.Allowed(site) {
		logger.Info("Entry already recorded for today, skipping run", "site", site)
		return false
	}

	logger.Info("Starting entry run", "site", site, "dry_run", dryRun)
	start := time.Now()

	page, cleanup, err := r.openPage(ctx, profile)
	if err != nil {
		r.fail(site, start, nil, "navigate: "+err.Error(), dryRun)
		return false
	}
	defer cleanup()

	sess, err := r.locate(page, profile)
	if err != nil {
		r.fail(site, start, page, "locate: "+err.Error(), dryRun)
		return false
	}
	logger.Info("Form surface resolved", "site", site, "direct", sess.Direct())

	if err := r.fillSteps(ctx, sess); err != nil {
		r.fail(site, start, page, "fill: "+err.Error(), dryRun)
		return false
	}

	cleared, err := r.resolve(ctx, sess)
	if err != nil || !cleared {
		if err == nil {
			err = challenge.ErrUnresolved
		}
		r.fail(site, start, page, err.Error(), dryRun)
		return false
	}

	if dryRun {
		// Dry runs never touch the ledger, so they can never satisfy
		// the once-per-day check by accident.
		logger.Info("Dry run complete, submit skipped", "site", site, "elapsed", time.Since(start))
		return true
	}

	outcome, err := r.submit(sess)
	if outcome == form.OutcomeFailure {
		msg := "submit failed"
		if err != nil {
			msg = err.Error()
		}
		r.fail(site, start, page, msg, false)
		return false
	}

	if outcome == form.OutcomeAmbiguous {
		// No success phrase but no error either. Policy records this as
		// a success; the screenshot is kept so a human can audit it.
		logger.Warn("No confirmation phrase on page, treating as success", "site", site)
		r.capture(page, site+"-ambiguous")
	}

	r.record(site, true, "", start)
	logger.Info("Entry submitted", "site", site, "outcome", outcome.String(), "elapsed", time.Since(start))
	return true
}

// defaultOpenPage opens a stealth page and navigates it to the entry URL.
// The cleanup is returned only on success; failure paths close the page
// themselves.
func (r *Runner) defaultOpenPage(ctx context.Context, profile form.Profile) (*rod.Page, func(), error) {
	page, err := browserutil.NewPage(r.Browser)
	if err != nil {
		return nil, nil, err
	}
	page = page.Context(ctx)

	cleanup := func() {
		if err := page.Close(); err != nil {
			logger.Warn("Failed to close page", "site", profile.Name, "error", err)
		}
	}

	if err := page.Navigate(profile.EntryURL); err != nil {
		cleanup()
		return nil, nil, err
	}
	if err := page.WaitLoad(); err != nil {
		cleanup()
		return nil, nil, err
	}

	return page, cleanup, nil
}

// fail logs a stage failure, keeps a diagnostic screenshot and records the
// outcome. Dry runs record nothing.
func (r *Runner) fail(site string, start time.Time, page *rod.Page, msg string, dryRun bool) {
	logger.Error("Entry run failed", "site", site, "error", msg, "elapsed", time.Since(start))
	r.capture(page, site+"-failure")
	if !dryRun {
		r.record(site, false, msg, start)
	}
}

func (r *Runner) record(site string, success bool, errMsg string, start time.Time) {
	if err := r.Ledger.Record(site, success, errMsg); err != nil {
		logger.Error("Failed to write ledger record", "site", site, "error", err)
	}
	if err := history.RecordAttempt(site, success, errMsg, time.Since(start)); err != nil {
		logger.Warn("Failed to archive attempt", "site", site, "error", err)
	}
}

func (r *Runner) capture(page *rod.Page, name string) {
	if page == nil {
		return
	}
	if _, err := browserutil.Capture(page, r.ScreenshotDir, name); err != nil {
		logger.Warn("Failed to capture screenshot", "error", err)
	}
}
