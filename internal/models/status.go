package models

import "strings"

// KpmStatus describes the KPM side update for one Jira lifecycle status:
// the fixed comment, the supplier status code to set (empty means leave
// the code untouched and only add context) and whether a supplementary
// question or reject reason must be appended.
type KpmStatus struct {
	Name          string
	Comment       string
	Code          string
	NeedsResponse bool
}

// jiraToKpmStatuses is fixed at startup and never mutated.
var jiraToKpmStatuses = map[string]KpmStatus{
	"OPEN": {
		Name:    "OPEN",
		Comment: "Ins System Übernommen",
		Code:    "0",
	},
	"INFO_MISSING": {
		Name:          "INFO_MISSING",
		Comment:       "Rückfrage gestellt",
		NeedsResponse: true,
	},
	"REOPENED": {
		Name:    "REOPENED",
		Comment: "Ticket wiedereröffnet",
		Code:    "0",
	},
	"IN_ANALYSIS": {
		Name:    "IN_ANALYSIS",
		Comment: "Mit der Analyse begonnen",
		Code:    "1",
	},
	"IN_REVIEW": {
		Name:    "IN_REVIEW",
		Comment: "Fix in Review",
		Code:    "1",
	},
	"IN_PROGRESS": {
		Name:    "IN_PROGRESS",
		Comment: "Fix in Umsetzung",
		Code:    "1",
	},
	"REJECTED": {
		Name:          "REJECTED",
		Comment:       "Reject",
		Code:          "4",
		NeedsResponse: true,
	},
}

// StatusForJiraName resolves a Jira status display name to its KPM update.
// Lookup is case insensitive with spaces folded to underscores. Unknown
// names return false; callers log and skip, the cycle continues.
func StatusForJiraName(name string) (KpmStatus, bool) {
	key := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
	status, ok := jiraToKpmStatuses[key]
	return status, ok
}

// KnownJiraStatuses lists the fixed status names.
func KnownJiraStatuses() []string {
	names := make([]string, 0, len(jiraToKpmStatuses))
	for name := range jiraToKpmStatuses {
		names = append(names, name)
	}
	return names
}
