package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsmesamster/reduce-app/internal/models"
)

func testReport(name string, finished time.Time) *models.SyncReport {
	report := models.NewSyncReport(name)
	report.TotalFound = 1
	report.RecordSynced("4520410", "https://esrlabs.atlassian.net/browse/AHCP5-100")
	report.Finalize()
	report.FinishedAt = finished
	return report
}

func TestReportServiceSaveListLoad(t *testing.T) {
	dir := t.TempDir()
	service := NewReportService(nil, dir)

	older := testReport("kpm2jira", time.Now().Add(-24*time.Hour))
	newer := testReport("kpm2jira", time.Now())

	_, err := service.Save(older)
	require.NoError(t, err)
	path, err := service.Save(newer)
	require.NoError(t, err)
	assert.FileExists(t, path)

	names, err := service.List()
	require.NoError(t, err)
	require.Len(t, names, 2)
	assert.Equal(t, newer.FileName(), names[0])

	loaded, err := service.Load(names[0])
	require.NoError(t, err)
	assert.Equal(t, newer.CycleID, loaded.CycleID)
	assert.Equal(t, newer.Synced, loaded.Synced)
}

func TestReportServiceListEmptyDir(t *testing.T) {
	service := NewReportService(nil, filepath.Join(t.TempDir(), "missing"))
	names, err := service.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestReportServiceLoadRejectsPathTraversal(t *testing.T) {
	service := NewReportService(nil, t.TempDir())
	_, err := service.Load("../secrets.json")
	assert.Error(t, err)
}

func TestReportServiceClean(t *testing.T) {
	dir := t.TempDir()
	service := NewReportService(nil, dir)

	old := filepath.Join(dir, "2020-01-01_finished_at_10.00.00.000_kpm2jira.json")
	require.NoError(t, os.WriteFile(old, []byte("{}"), 0o644))
	fresh := filepath.Join(dir, time.Now().Format("2006-01-02")+"_finished_at_10.00.00.000_kpm2jira.json")
	require.NoError(t, os.WriteFile(fresh, []byte("{}"), 0o644))
	odd := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(odd, []byte("keep"), 0o644))

	service.Clean()

	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
	// files without a date stamp are never touched
	assert.FileExists(t, odd)
}

func TestAggregatedTicketsLink(t *testing.T) {
	link := AggregatedTicketsLink("https://esrlabs.atlassian.net/", []string{"AHCP5-2", "AHCP5-1"})
	assert.Equal(t,
		"https://esrlabs.atlassian.net/browse/AHCP5-2?jql=issuekey%20in%20(AHCP5-1%2C%20AHCP5-2)",
		link)

	assert.Equal(t, "", AggregatedTicketsLink("", []string{"AHCP5-1"}))
	assert.Equal(t, "", AggregatedTicketsLink("https://esrlabs.atlassian.net", nil))
}
