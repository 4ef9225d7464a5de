package form

import (
	"strings"
	"time"
)

// submitSettle is how long the page gets to render the confirmation state
// after the submit click.
const submitSettle = 8 * time.Second

// Outcome classifies the page state after the submit click
type Outcome int

const (
	OutcomeFailure Outcome = iota
	OutcomeAmbiguous
	OutcomeSuccess
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeAmbiguous:
		return "ambiguous"
	default:
		return "failure"
	}
}

// successPhrases are the confirmation fragments the supported sites render.
// Matched case-insensitively against the full page text.
var successPhrases = []string{
	"thank you for entering",
	"you have been entered",
	"your entry has been received",
	"entry received",
	"good luck",
}

// Submit clicks the submit control, waits for the page to settle and
// classifies the result. An error during the click sequence is a failure;
// the error is returned for the ledger.
func (s *Session) Submit() (Outcome, error) {
	if err := s.ClickAndWait(FieldSubmit, submitSettle); err != nil {
		return OutcomeFailure, err
	}

	return ClassifyText(s.PageText()), nil
}

// ClassifyText maps rendered page text to an outcome. A page with no
// success phrase but no error is ambiguous; policy treats that as a
// success, which is a known false-positive risk, so callers retain a
// screenshot for audit.
func ClassifyText(text string) Outcome {
	lower := strings.ToLower(text)
	for _, phrase := range successPhrases {
		if strings.Contains(lower, phrase) {
			return OutcomeSuccess
		}
	}
	return OutcomeAmbiguous
}
