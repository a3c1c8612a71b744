package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsmesamster/reduce-app/internal/clients"
	"github.com/itsmesamster/reduce-app/internal/models"
)

const fieldMapFixture = `{
  "jira_issue": {
    "project": {"key": "AHCP5"},
    "issuetype": {"name": "Bug"},
    "summary": "ShortText?",
    "description": "Description?",
    "customfield_10503": "ProblemNumber?",
    "priority": "Rating?",
    "components": "Function?",
    "fixVersions": "Software?",
    "customfield_10801": "Hardware?",
    "customfield_12600": "##cluster_mapping_based_on_software_version##",
    "customfield_12740": "VerbundRelease?",
    "customfield_12701": "Reproducibility?",
    "assignee": "AccountID?"
  },
  "priority": {"1": "Critical", "3": "Major"},
  "reproducibility": {"immer": "01 - Always"}
}`

func mapperFixture(t *testing.T) (*KpmMapper, *fakeJiraAPI) {
	t.Helper()
	api := newFakeJiraAPI()
	api.versions = []string{"0010", "0110", "-"}
	api.meta = metaWithOptions(map[string][]map[string]any{
		"customfield_12740": valued("VR21", "VR28", "VR000", "-"),
	})
	jira := clients.NewJiraClient(api, models.NewEsrFieldMap(), clients.JiraClientOptions{
		ServerURL:  "https://esrlabs.atlassian.net",
		ProjectKey: "AHCP5",
	})
	mapper, err := NewKpmMapperFromBytes(jira, fixtureClusterMap(t), []byte(fieldMapFixture), "abc123")
	require.NoError(t, err)
	return mapper, api
}

func mapperProblem(software string, release map[string]any) *models.KpmProblem {
	problem := map[string]any{
		"ProblemNumber": "4520410",
		"ShortText":     "Display stays dark",
		"Description":   "after the update the display never comes back",
		"Rating":        "1",
		"Repeatable":    "immer",
		"ForemostTestPart": map[string]any{
			"Software": software,
			"Hardware": "H030",
		},
	}
	if release != nil {
		problem["VerbundRelease"] = release
	}
	return models.NewKpmProblem(map[string]any{"DevelopmentProblem": problem})
}

func TestKpmMapperToJira(t *testing.T) {
	mapper, _ := mapperFixture(t)

	draft, err := mapper.ToJira(mapperProblem("0010", map[string]any{"Major": "28"}))
	require.NoError(t, err)
	updates := draft.PendingUpdates()

	assert.Equal(t, map[string]any{"key": "AHCP5"}, updates["project"])
	assert.Equal(t, map[string]any{"name": "Bug"}, updates["issuetype"])
	assert.Equal(t, "[K][ESR]Display stays dark", updates["summary"])
	assert.Equal(t, "after the update the display never comes back", updates["description"])
	assert.Equal(t, "4520410", updates["customfield_10503"])
	assert.Equal(t, map[string]any{"name": "Critical"}, updates["priority"])
	assert.Equal(t, []any{map[string]any{"name": "Unknown"}}, updates["components"])
	assert.Equal(t, []any{map[string]any{"name": "0010"}}, updates["fixVersions"])
	assert.Equal(t, "H030", updates["customfield_10801"])
	assert.Equal(t, []any{map[string]any{"value": "Cluster 4.3"}}, updates["customfield_12600"])
	assert.Equal(t, []any{map[string]any{"value": "VR28"}}, updates["customfield_12740"])
	assert.Equal(t, map[string]any{"value": "01 - Always"}, updates["customfield_12701"])
	assert.Equal(t, map[string]any{"accountId": "abc123"}, updates["assignee"])
}

func TestKpmMapperSoftwareFallback(t *testing.T) {
	mapper, _ := mapperFixture(t)

	draft, err := mapper.ToJira(mapperProblem("9999", nil))
	require.NoError(t, err)
	updates := draft.PendingUpdates()

	// unknown build falls back to the placeholder version and cluster
	assert.Equal(t, []any{map[string]any{"name": "-"}}, updates["fixVersions"])
	assert.Equal(t, []any{map[string]any{"value": "-"}}, updates["customfield_12600"])
}

func TestKpmMapperVerbundRelease(t *testing.T) {
	mapper, _ := mapperFixture(t)

	// records predating release tracking carry VR000
	draft, err := mapper.ToJira(mapperProblem("0010", nil))
	require.NoError(t, err)
	assert.Equal(t,
		[]any{map[string]any{"value": "VR000"}},
		draft.PendingUpdates()["customfield_12740"])

	// an unlisted release degrades to the placeholder
	draft, err = mapper.ToJira(mapperProblem("0010", map[string]any{"Major": "99"}))
	require.NoError(t, err)
	assert.Equal(t,
		[]any{map[string]any{"value": "-"}},
		draft.PendingUpdates()["customfield_12740"])

	draft, err = mapper.ToJira(mapperProblem("0010", map[string]any{"Major": "00"}))
	require.NoError(t, err)
	assert.Equal(t,
		[]any{map[string]any{"value": "-"}},
		draft.PendingUpdates()["customfield_12740"])
}

func TestKpmMapperReproducibilityDefault(t *testing.T) {
	mapper, _ := mapperFixture(t)

	problem := mapperProblem("0010", nil)
	problem.Raw["DevelopmentProblem"].(map[string]any)["Repeatable"] = "manchmal"
	draft, err := mapper.ToJira(problem)
	require.NoError(t, err)
	assert.Equal(t,
		map[string]any{"value": "03 - Frequent"},
		draft.PendingUpdates()["customfield_12701"])
}

func TestKpmMapperHardwarePlaceholder(t *testing.T) {
	mapper, _ := mapperFixture(t)

	problem := mapperProblem("0010", nil)
	problem.Raw["DevelopmentProblem"].(map[string]any)["ForemostTestPart"].(map[string]any)["Hardware"] = ""
	draft, err := mapper.ToJira(problem)
	require.NoError(t, err)
	assert.Equal(t, "-", draft.PendingUpdates()["customfield_10801"])
}

func TestNewKpmMapperFromBytesRejectsBadDocs(t *testing.T) {
	_, err := NewKpmMapperFromBytes(nil, nil, []byte("not json"), "")
	assert.Error(t, err)

	_, err = NewKpmMapperFromBytes(nil, nil, []byte(`{"priority": {}}`), "")
	assert.Error(t, err)
}
