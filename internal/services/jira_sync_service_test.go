package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsmesamster/reduce-app/internal/clients"
	"github.com/itsmesamster/reduce-app/internal/models"
)

func jiraSyncFixture(esrAPI, vwAPI *fakeJiraAPI) *JiraSyncService {
	esr := clients.NewJiraClient(esrAPI, models.NewEsrFieldMap(), clients.JiraClientOptions{
		ServerURL:  "https://esrlabs.atlassian.net",
		ProjectKey: "AHCP5",
	})
	vw := clients.NewJiraClient(vwAPI, models.NewVwFieldMap(), clients.JiraClientOptions{
		ServerURL:  "https://devstack.vwgroup.com/jira",
		ProjectKey: "HCP5",
	})
	return NewJiraSyncService(esr, vw, nil, nil, JiraSyncConfig{
		VwProjectKey:        "HCP5",
		VwAssignees:         "(ufs1vcn, wvk8ck1)",
		IgnoredCommentUsers: []string{"syncbot1"},
	})
}

func TestTaskAndIntegrationJQL(t *testing.T) {
	service := jiraSyncFixture(newFakeJiraAPI(), newFakeJiraAPI())

	taskJQL := service.taskJQL()
	assert.Contains(t, taskJQL, "project = HCP5")
	assert.Contains(t, taskJQL, "labels = Technical_Clearing")
	assert.Contains(t, taskJQL, "statusCategory not in (Done)")
	assert.Contains(t, taskJQL, "assignee in (ufs1vcn, wvk8ck1)")

	integrationJQL := service.integrationJQL()
	assert.Contains(t, integrationJQL, "issuetype = Integration")
	assert.Contains(t, integrationJQL, `status = "Umsetzung angefragt"`)
	assert.Contains(t, integrationJQL, "AR_Integration")
	assert.Contains(t, integrationJQL, "after startOfYear()")
}

func TestCommentHeader(t *testing.T) {
	service := jiraSyncFixture(newFakeJiraAPI(), newFakeJiraAPI())
	comment := models.Comment{
		ID:          "9001",
		AuthorEmail: "someone@audi.de",
		AuthorLogin: "ufs1vcn",
		Created:     "2024-02-19T10:00:00.000+0100",
		Updated:     "2024-02-19T10:00:00.000+0100",
	}

	header := service.commentHeader(comment, "HCP5-77")
	assert.Contains(t, header, "\U0001F4C6 2024-02-19 10:00:00")
	assert.Contains(t, header, "\U0001F4EE someone@audi.de (ufs1vcn)")
	assert.Contains(t, header,
		"https://devstack.vwgroup.com/jira/browse/HCP5-77?focusedCommentId=9001")
	// untouched comments carry no updated stamp
	assert.NotContains(t, header, "updated:")

	comment.Updated = "2024-02-20T08:30:00.000+0100"
	assert.Contains(t, service.commentHeader(comment, "HCP5-77"),
		"updated: 2024-02-20 08:30:00")
}

func TestRewriteTicketMentions(t *testing.T) {
	service := jiraSyncFixture(newFakeJiraAPI(), newFakeJiraAPI())

	assert.Equal(t,
		"see https://devstack.vwgroup.com/jira/browse/HCP5-123 for details",
		service.rewriteTicketMentions("see HCP5-123 for details"))
	assert.Equal(t, "no mentions here", service.rewriteTicketMentions("no mentions here"))
	// keys embedded in other words stay as they are
	assert.Equal(t, "AHCP5-1", service.rewriteTicketMentions("AHCP5-1"))
}

func TestRewriteUserMentions(t *testing.T) {
	vwAPI := newFakeJiraAPI()
	vwAPI.users["ufs1vcn"] = map[string]any{"displayName": "Jane Roe"}
	service := jiraSyncFixture(newFakeJiraAPI(), vwAPI)

	text := service.rewriteUserMentions("ping [~ufs1vcn] please")
	assert.Equal(t, "ping *Jane Roe* please", text)

	// mention count mismatch leaves the text untouched
	odd := "ping [~short] please"
	assert.Equal(t, odd, service.rewriteUserMentions(odd))

	assert.Equal(t, "plain text", service.rewriteUserMentions("plain text"))
}

func TestRewriteUserMentionsExternalUser(t *testing.T) {
	vwAPI := newFakeJiraAPI()
	vwAPI.users["ufs1abc"] = map[string]any{"displayName": "John Doe (EXTERN: ESR Labs)"}
	esrAPI := newFakeJiraAPI()
	esrAPI.users["5b10ac8d"] = map[string]any{"displayName": "John Doe", "accountId": "5b10ac8d"}
	service := jiraSyncFixture(esrAPI, vwAPI)

	text := service.rewriteUserMentions("cc [~ufs1abc]")
	assert.Equal(t, "cc *John Doe (EXTERN: ESR Labs)* [~accountid:5b10ac8d]", text)
}

func TestIsIgnoredUser(t *testing.T) {
	service := jiraSyncFixture(newFakeJiraAPI(), newFakeJiraAPI())
	assert.True(t, service.isIgnoredUser("syncbot1"))
	assert.False(t, service.isIgnoredUser("ufs1vcn"))
}

func TestIsExternalEsrUser(t *testing.T) {
	service := jiraSyncFixture(newFakeJiraAPI(), newFakeJiraAPI())
	assert.True(t, service.isExternalEsrUser("John Doe (EXTERN: ESR Labs)"))
	assert.True(t, service.isExternalEsrUser("Jane Roe (extern: Accenture)"))
	assert.False(t, service.isExternalEsrUser("Max Mustermann"))
}

func TestConvertCommentTextRejectsEmpty(t *testing.T) {
	service := jiraSyncFixture(newFakeJiraAPI(), newFakeJiraAPI())
	esrTicket := models.NewEsrTicket(map[string]any{
		"key":    "AHCP5-1",
		"fields": map[string]any{},
	}, "")

	var convErr *CommentConversionError
	_, err := service.convertCommentText(models.Comment{Body: ""}, esrTicket)
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "AHCP5-1", convErr.Key)
}

func TestJiraSyncBatchIsolation(t *testing.T) {
	vwAPI := newFakeJiraAPI()
	esrAPI := newFakeJiraAPI()

	vwTask := map[string]any{
		"key": "HCP5-1",
		"fields": map[string]any{
			"summary":     "<HVK> Something broken",
			"description": "shared description",
			"issuetype":   map[string]any{"name": "Task"},
		},
	}
	vwBug := map[string]any{
		"key": "HCP5-2",
		"fields": map[string]any{
			"issuetype": map[string]any{"name": "Bug"},
		},
	}
	vwAPI.pages = [][]map[string]any{
		{vwTask, vwBug}, // clearing task query
		{},              // integration query
	}
	vwAPI.issues["HCP5-1"] = vwTask

	esrTicket := map[string]any{
		"key": "AHCP5-9",
		"fields": map[string]any{
			"description":       "shared description",
			"customfield_10503": "HCP5- 1",
		},
	}
	esrAPI.pages = [][]map[string]any{{esrTicket}}
	esrAPI.issues["AHCP5-9"] = esrTicket

	esr := clients.NewJiraClient(esrAPI, models.NewEsrFieldMap(), clients.JiraClientOptions{
		ServerURL:  "https://esrlabs.atlassian.net",
		ProjectKey: "AHCP5",
	})
	vw := clients.NewJiraClient(vwAPI, models.NewVwFieldMap(), clients.JiraClientOptions{
		ServerURL:  "https://devstack.vwgroup.com/jira",
		ProjectKey: "HCP5",
	})
	transformer := NewTransformer(esr, fixtureClusterMap(t), TransformerConfig{
		ProjectKey: "AHCP5",
	})
	service := NewJiraSyncService(esr, vw, transformer, nil, JiraSyncConfig{
		VwProjectKey: "HCP5",
	})

	report, err := service.Sync()
	require.NoError(t, err)

	// the unsupported ticket fails alone, the batch carries on
	assert.Equal(t, 2, report.TotalFound)
	assert.Equal(t, 1, report.TotalSynced)
	assert.Equal(t, 1, report.TotalFailed)
	assert.Contains(t, report.Synced, "HCP5-1")
	assert.Contains(t, report.Failed, "HCP5-2")
}

func TestReplaceAttachmentMentions(t *testing.T) {
	service := jiraSyncFixture(newFakeJiraAPI(), newFakeJiraAPI())
	esrTicket := models.NewEsrTicket(map[string]any{
		"key": "AHCP5-1",
		"fields": map[string]any{
			"attachment": []any{
				map[string]any{"id": "1", "filename": "trace(2024.01.23@11.10).log"},
				map[string]any{"id": "2", "filename": "plain.txt"},
			},
		},
	}, "")

	text := service.replaceAttachmentMentions("see !trace.log and !plain.txt", esrTicket)
	assert.Equal(t, "see !trace(2024.01.23@11.10).log and !plain.txt", text)
}
