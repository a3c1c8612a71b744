package models

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncReportLifecycle(t *testing.T) {
	report := NewSyncReport("kpm2jira")
	require.NotEmpty(t, report.CycleID)
	assert.Equal(t, "kpm2jira", report.Name)
	assert.False(t, report.StartedAt.IsZero())

	report.TotalFound = 3
	report.RecordSynced("4520410", "https://esrlabs.atlassian.net/browse/AHCP5-100")
	report.RecordSynced("4520411", "https://esrlabs.atlassian.net/browse/AHCP5-101")
	report.RecordFailed("4520412", errors.New("boom"))
	report.Finalize()

	assert.Equal(t, 2, report.TotalSynced)
	assert.Equal(t, 1, report.TotalFailed)
	assert.Equal(t, "boom", report.Failed["4520412"])
	assert.False(t, report.FinishedAt.IsZero())
	assert.Contains(t, report.Duration, "minutes")
}

func TestSyncReportErrorCapped(t *testing.T) {
	report := NewSyncReport("kpm2jira")
	report.RecordFailed("1", errors.New(strings.Repeat("x", 2000)))
	assert.Len(t, report.Failed["1"], 500)
}

func TestSyncReportFileName(t *testing.T) {
	report := NewSyncReport("vwjira2esrjira")
	report.Finalize()
	pattern := regexp.MustCompile(
		`^\d{4}-\d{2}-\d{2}_finished_at_\d{2}\.\d{2}\.\d{2}\.\d{3}_vwjira2esrjira\.json$`)
	assert.Regexp(t, pattern, report.FileName())
}
