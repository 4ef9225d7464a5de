package form

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/yourusername/sweeps-automation/internal/logger"
)

const (
	// checkUserSettle is how long the form gets to decide between the
	// new-user and returning-user layouts after the email lookup
	checkUserSettle = 4 * time.Second

	stepSettle = 2 * time.Second
)

// RunSteps drives the multi-step entry form. The layout varies per
// sweepstakes, so every step except the email lookup probes for its own
// fields and is skipped when they are absent. Only the email step may fail
// the run here; the optional steps log and move on.
func RunSteps(ctx context.Context, s *Session, entrant Entrant) error {
	// Step 1: email lookup. Load-bearing; without it there is no entry.
	if err := s.fill(FieldEmail, entrant.Email, false); err != nil {
		return fmt.Errorf("email entry failed: %w", err)
	}
	if err := s.ClickAndWait(FieldCheckUser, checkUserSettle); err != nil {
		return fmt.Errorf("email lookup failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Step 2: registration fields only appear for a new user. A returning
	// user goes straight on.
	if _, ok := s.probe(FieldFirstName, probeWait); ok {
		logger.Info("New user form detected, filling registration fields")
		s.Fill(FieldFirstName, entrant.FirstName, false)
		s.Fill(FieldLastName, entrant.LastName, false)
	} else {
		logger.Debug("No registration fields, assuming returning user")
	}

	// Step 3: advance if a rendered next-step control is present
	s.clickNextIfVisible("advance")

	// Step 4: some forms insert a trivia screen between registration and
	// address collection; a second next click skips it.
	s.clickNextIfVisible("trivia skip")

	if err := ctx.Err(); err != nil {
		return err
	}

	// Step 5: address/contact/DOB block. Absence of the address field
	// means this sweepstakes does not collect address data.
	if _, ok := s.probe(FieldAddress1, 8*time.Second); !ok {
		logger.Info("No address block on this form, skipping")
		return nil
	}

	s.Fill(FieldAddress1, entrant.Address1, false)
	s.Fill(FieldAddress2, entrant.Address2, false)
	s.Fill(FieldCity, entrant.City, false)
	s.Fill(FieldState, entrant.State, true)
	s.Fill(FieldZip, entrant.Zip, false)
	s.Fill(FieldPhone, entrant.Phone, false)
	s.Fill(FieldDOBMonth, entrant.BirthMonth, true)
	s.Fill(FieldDOBDay, entrant.BirthDay, true)
	s.Fill(FieldDOBYear, entrant.BirthYear, true)
	s.Fill(FieldGender, entrant.Gender, true)

	return nil
}

// clickNextIfVisible clicks the next-step control when it is present and
// actually rendered. Best effort; a failed click is logged and swallowed.
func (s *Session) clickNextIfVisible(reason string) {
	el, ok := s.probe(FieldNext, probeWait)
	if !ok {
		logger.Debug("No next-step control present", "step", reason)
		return
	}

	visible, err := el.Visible()
	if err != nil || !visible {
		logger.Debug("Next-step control not rendered", "step", reason)
		return
	}

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		logger.Warn("Failed to click next-step control", "step", reason, "error", err)
		return
	}

	logger.Debug("Clicked next-step control", "step", reason)
	time.Sleep(stepSettle)
}
