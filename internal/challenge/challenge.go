// Package challenge detects a bot-verification widget on the form surface
// and decides whether the run may proceed to submit.
package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/sweeps-automation/internal/browserutil"
	"github.com/yourusername/sweeps-automation/internal/form"
	"github.com/yourusername/sweeps-automation/internal/logger"
)

// ErrUnresolved means a challenge was present and could not be cleared.
// The pipeline must abort before the submit step.
var ErrUnresolved = errors.New("challenge unresolved")

// markerSelectors identify the known challenge widgets
var markerSelectors = []string{
	".g-recaptcha",
	"iframe[src*='recaptcha']",
	"iframe[title='reCAPTCHA']",
	"iframe[src*='hcaptcha']",
}

// Solver is an external captcha-solving capability. A real implementation
// can be substituted without touching the pipeline.
type Solver interface {
	Solve(ctx context.Context, pageURL string) (string, error)
}

// RemoteSolver is the placeholder client for a paid solving service. Solve
// reports failure rather than pretending the challenge was cleared.
type RemoteSolver struct {
	APIKey string
}

func (r *RemoteSolver) Solve(ctx context.Context, pageURL string) (string, error) {
	return "", fmt.Errorf("external captcha solver not implemented")
}

// Handler resolves challenges for pipeline runs
type Handler struct {
	// Wait is the manual-intervention window used when no solver is
	// configured. The handler assumes an operator cleared the widget
	// once the window elapses; it does not re-check.
	Wait time.Duration

	Solver Solver
}

// NewHandler builds a handler from configuration. A non-empty solver key
// selects the external solver path.
func NewHandler(wait time.Duration, solverAPIKey string) *Handler {
	h := &Handler{Wait: wait}
	if solverAPIKey != "" {
		h.Solver = &RemoteSolver{APIKey: solverAPIKey}
	}
	return h
}

// Resolve reports whether the run may proceed to submit. No challenge
// marker means an immediate yes. With a solver configured the result is
// the solver's; otherwise the handler blocks for the manual window and
// assumes the operator cleared it. A canceled context aborts the wait.
func (h *Handler) Resolve(ctx context.Context, s *form.Session) (bool, error) {
	return h.resolve(ctx, h.detect(s), s.PageURL())
}

func (h *Handler) detect(s *form.Session) bool {
	for _, selector := range markerSelectors {
		if s.Has(selector) {
			logger.Info("Challenge widget detected", "selector", selector)
			return true
		}
	}
	return false
}

func (h *Handler) resolve(ctx context.Context, present bool, pageURL string) (bool, error) {
	if !present {
		return true, nil
	}

	if h.Solver != nil {
		token, err := h.Solver.Solve(ctx, pageURL)
		if err != nil {
			logger.Warn("External solver failed", "error", err)
			return false, nil
		}
		logger.Info("Challenge solved externally", "token_len", len(token))
		return true, nil
	}

	logger.Info("Waiting for operator to clear the challenge", "wait", h.Wait)
	if !browserutil.Sleep(ctx, h.Wait) {
		return false, ctx.Err()
	}

	logger.Info("Manual wait elapsed, assuming challenge cleared")
	return true, nil
}
