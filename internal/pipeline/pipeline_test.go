package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/sweeps-automation/internal/challenge"
	"github.com/yourusername/sweeps-automation/internal/form"
	"github.com/yourusername/sweeps-automation/internal/ledger"
)

// testRunner wires a runner whose browser stages are fakes. The happy-path
// fakes locate a session, fill every step, see no challenge and submit
// successfully; individual tests override the stage under test.
func testRunner(t *testing.T) *Runner {
	t.Helper()

	led, err := ledger.New(filepath.Join(t.TempDir(), "ledger.json"), "America/New_York", 0)
	require.NoError(t, err)

	r := New(nil, led, form.Entrant{Email: "op@example.com", FirstName: "Pat", LastName: "Doe"},
		challenge.NewHandler(time.Millisecond, ""), t.TempDir())

	r.openPage = func(ctx context.Context, profile form.Profile) (*rod.Page, func(), error) {
		return nil, func() {}, nil
	}
	r.locate = func(page *rod.Page, profile form.Profile) (*form.Session, error) {
		return &form.Session{}, nil
	}
	r.fillSteps = func(ctx context.Context, s *form.Session) error {
		return nil
	}
	r.resolve = func(ctx context.Context, s *form.Session) (bool, error) {
		return true, nil
	}
	r.submit = func(s *form.Session) (form.Outcome, error) {
		return form.OutcomeSuccess, nil
	}

	return r
}

func testProfile() form.Profile {
	return form.NewProfile("luckyday", "https://luckyday.example.com/win", nil)
}

func TestRunEntrySuccessRecordsLedger(t *testing.T) {
	r := testRunner(t)
	start := time.Now()

	assert.True(t, r.RunEntry(context.Background(), testProfile(), false))

	records, err := r.Ledger.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "luckyday", records[0].Site)
	assert.True(t, records[0].Success)
	assert.Nil(t, records[0].Error)
	assert.WithinDuration(t, start, records[0].Timestamp, 5*time.Second)
}

func TestSecondRunSameDayDenied(t *testing.T) {
	r := testRunner(t)
	ctx := context.Background()

	require.True(t, r.RunEntry(ctx, testProfile(), false))

	openPageCalled := false
	r.openPage = func(ctx context.Context, profile form.Profile) (*rod.Page, func(), error) {
		openPageCalled = true
		return nil, func() {}, nil
	}

	assert.False(t, r.RunEntry(ctx, testProfile(), false))
	assert.False(t, openPageCalled, "denied run must not touch the browser")

	records, err := r.Ledger.Records()
	require.NoError(t, err)
	assert.Len(t, records, 1, "guard denial writes no record")
}

func TestDryRunWritesNothing(t *testing.T) {
	r := testRunner(t)

	submitted := false
	r.submit = func(s *form.Session) (form.Outcome, error) {
		submitted = true
		return form.OutcomeSuccess, nil
	}

	assert.True(t, r.RunEntry(context.Background(), testProfile(), true))
	assert.False(t, submitted, "dry run must not invoke the real submit")

	records, err := r.Ledger.Records()
	require.NoError(t, err)
	assert.Empty(t, records)

	// A dry run never satisfies the once-per-day rule, so a real run may
	// still proceed afterwards.
	assert.True(t, r.RunEntry(context.Background(), testProfile(), false))
}

func TestLocateFailureRecordsFailure(t *testing.T) {
	r := testRunner(t)

	cleanedUp := false
	r.openPage = func(ctx context.Context, profile form.Profile) (*rod.Page, func(), error) {
		return nil, func() { cleanedUp = true }, nil
	}
	r.locate = func(page *rod.Page, profile form.Profile) (*form.Session, error) {
		return nil, form.ErrFormUnavailable
	}

	assert.False(t, r.RunEntry(context.Background(), testProfile(), false))
	assert.True(t, cleanedUp, "page must be released on the failure path")

	records, err := r.Ledger.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].Success)
	require.NotNil(t, records[0].Error)
	assert.Contains(t, *records[0].Error, "form surface unavailable")
}

func TestUnresolvedChallengeAbortsBeforeSubmit(t *testing.T) {
	r := testRunner(t)

	r.resolve = func(ctx context.Context, s *form.Session) (bool, error) {
		return false, nil
	}
	submitted := false
	r.submit = func(s *form.Session) (form.Outcome, error) {
		submitted = true
		return form.OutcomeSuccess, nil
	}

	assert.False(t, r.RunEntry(context.Background(), testProfile(), false))
	assert.False(t, submitted)

	records, err := r.Ledger.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].Success)
	require.NotNil(t, records[0].Error)
	assert.Equal(t, challenge.ErrUnresolved.Error(), *records[0].Error)
}

func TestSubmitFailureCapturesError(t *testing.T) {
	r := testRunner(t)

	r.submit = func(s *form.Session) (form.Outcome, error) {
		return form.OutcomeFailure, errors.New("submit click timed out")
	}

	assert.False(t, r.RunEntry(context.Background(), testProfile(), false))

	records, err := r.Ledger.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].Success)
	require.NotNil(t, records[0].Error)
	assert.Equal(t, "submit click timed out", *records[0].Error)
}

func TestAmbiguousOutcomeTreatedAsSuccess(t *testing.T) {
	r := testRunner(t)

	r.submit = func(s *form.Session) (form.Outcome, error) {
		return form.OutcomeAmbiguous, nil
	}

	assert.True(t, r.RunEntry(context.Background(), testProfile(), false),
		"ambiguous-without-error is success by policy")

	records, err := r.Ledger.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Success)
}

func TestFillFailureRecordsFailure(t *testing.T) {
	r := testRunner(t)

	r.fillSteps = func(ctx context.Context, s *form.Session) error {
		return errors.New("email entry failed: field not found")
	}

	assert.False(t, r.RunEntry(context.Background(), testProfile(), false))

	records, err := r.Ledger.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].Success)
}

func TestConcurrentSitesShareLedger(t *testing.T) {
	r := testRunner(t)

	sites := []form.Profile{
		form.NewProfile("luckyday", "https://luckyday.example.com/win", nil),
		form.NewProfile("prizeportal", "https://prizeportal.example.com/enter", nil),
	}

	done := make(chan bool, len(sites))
	for _, p := range sites {
		go func(p form.Profile) {
			done <- r.RunEntry(context.Background(), p, false)
		}(p)
	}
	for range sites {
		assert.True(t, <-done)
	}

	records, err := r.Ledger.Records()
	require.NoError(t, err)
	assert.Len(t, records, 2, "near-simultaneous completions must not lose ledger updates")
}
