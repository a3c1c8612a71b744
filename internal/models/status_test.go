package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForJiraName(t *testing.T) {
	tests := []struct {
		jiraName      string
		comment       string
		code          string
		needsResponse bool
	}{
		{"Open", "Ins System Übernommen", "0", false},
		{"Info Missing", "Rückfrage gestellt", "", true},
		{"Reopened", "Ticket wiedereröffnet", "0", false},
		{"In Analysis", "Mit der Analyse begonnen", "1", false},
		{"In Review", "Fix in Review", "1", false},
		{"In Progress", "Fix in Umsetzung", "1", false},
		{"Rejected", "Reject", "4", true},
	}
	for _, tt := range tests {
		t.Run(tt.jiraName, func(t *testing.T) {
			status, ok := StatusForJiraName(tt.jiraName)
			require.True(t, ok)
			assert.Equal(t, tt.comment, status.Comment)
			assert.Equal(t, tt.code, status.Code)
			assert.Equal(t, tt.needsResponse, status.NeedsResponse)
		})
	}
}

func TestStatusForJiraNameFolding(t *testing.T) {
	upper, ok := StatusForJiraName("INFO MISSING")
	require.True(t, ok)
	spaced, ok2 := StatusForJiraName("  info missing ")
	require.True(t, ok2)
	assert.Equal(t, upper, spaced)
}

func TestStatusForJiraNameUnknown(t *testing.T) {
	_, ok := StatusForJiraName("Done")
	assert.False(t, ok)
	_, ok = StatusForJiraName("")
	assert.False(t, ok)
}

func TestKnownJiraStatuses(t *testing.T) {
	assert.Len(t, KnownJiraStatuses(), 7)
}
