package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testZone = "America/New_York"

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.json")
	l, err := New(path, testZone, 0)
	require.NoError(t, err)
	return l
}

func writeRecords(t *testing.T, l *Ledger, records []SubmissionRecord) {
	t.Helper()
	data, err := json.Marshal(records)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(l.path, data, 0644))
}

func TestAllowedEmptyLedger(t *testing.T) {
	l := newTestLedger(t)
	assert.True(t, l.Allowed("luckyday"))
}

func TestAllowedDeniesAfterSuccessToday(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.Record("luckyday", true, ""))

	assert.False(t, l.Allowed("luckyday"), "same-day success must deny the run")
	assert.True(t, l.Allowed("prizeportal"), "other sites are unaffected")
}

func TestAllowedAfterYesterdaySuccess(t *testing.T) {
	l := newTestLedger(t)
	writeRecords(t, l, []SubmissionRecord{
		{Site: "luckyday", Success: true, Timestamp: time.Now().Add(-24 * time.Hour)},
	})

	assert.True(t, l.Allowed("luckyday"))
}

func TestAllowedIgnoresFailedRecords(t *testing.T) {
	l := newTestLedger(t)
	msg := "form surface unavailable"
	writeRecords(t, l, []SubmissionRecord{
		{Site: "luckyday", Success: false, Error: &msg, Timestamp: time.Now()},
	})

	assert.True(t, l.Allowed("luckyday"), "a failed attempt today must not block a retry")
}

func TestAllowedFailsOpenOnCorruptFile(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, os.WriteFile(l.path, []byte("{not json"), 0644))

	assert.True(t, l.Allowed("luckyday"))
}

func TestRecordCapturesError(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.Record("luckyday", false, "challenge unresolved"))

	records, err := l.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "luckyday", records[0].Site)
	assert.False(t, records[0].Success)
	require.NotNil(t, records[0].Error)
	assert.Equal(t, "challenge unresolved", *records[0].Error)
	assert.WithinDuration(t, time.Now(), records[0].Timestamp, 5*time.Second)
}

func TestRecordSuccessHasNullError(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.Record("luckyday", true, ""))

	data, err := os.ReadFile(l.path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"error": null`)
}

func TestRecordTruncatesToRetention(t *testing.T) {
	l := newTestLedger(t)

	var records []SubmissionRecord
	for i := 0; i < DefaultRetention+20; i++ {
		records = append(records, SubmissionRecord{
			Site:      fmt.Sprintf("site-%d", i),
			Success:   false,
			Timestamp: time.Now().Add(time.Duration(i-200) * time.Minute),
		})
	}
	writeRecords(t, l, records)

	require.NoError(t, l.Record("luckyday", true, ""))

	got, err := l.Records()
	require.NoError(t, err)
	require.Len(t, got, DefaultRetention)

	// Survivors keep oldest-first order and the newest record is last.
	assert.Equal(t, "site-21", got[0].Site)
	assert.Equal(t, "luckyday", got[DefaultRetention-1].Site)
}

func TestRecordRoundTrips(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.Record("luckyday", true, ""))
	require.NoError(t, l.Record("prizeportal", false, "locate timed out"))

	reopened, err := New(l.path, testZone, 0)
	require.NoError(t, err)
	records, err := reopened.Records()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "luckyday", records[0].Site)
	assert.Equal(t, "prizeportal", records[1].Site)
}

func TestConcurrentRecords(t *testing.T) {
	l := newTestLedger(t)

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			_ = l.Record(fmt.Sprintf("site-%d", i), true, "")
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	records, err := l.Records()
	require.NoError(t, err)
	assert.Len(t, records, 10, "no append may be lost")
}
