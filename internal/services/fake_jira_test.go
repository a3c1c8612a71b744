package services

import (
	"fmt"

	"github.com/itsmesamster/reduce-app/internal/clients"
)

// fakeJiraAPI is an in-memory JiraAPI for service tests. Only what the
// tested paths touch is filled in, everything else returns zero values.
type fakeJiraAPI struct {
	meta      map[string]any
	versions  []string
	issues    map[string]map[string]any
	pages     [][]map[string]any
	pageCalls []string
	created   []map[string]any
	updates   map[string][]map[string]any
	comments  map[string][]map[string]any
	users     map[string]map[string]any
}

var _ clients.JiraAPI = (*fakeJiraAPI)(nil)

func newFakeJiraAPI() *fakeJiraAPI {
	return &fakeJiraAPI{
		issues:   make(map[string]map[string]any),
		updates:  make(map[string][]map[string]any),
		comments: make(map[string][]map[string]any),
		users:    make(map[string]map[string]any),
	}
}

func (f *fakeJiraAPI) Myself() (map[string]any, error) {
	return map[string]any{"accountId": "fake"}, nil
}

func (f *fakeJiraAPI) SearchPage(jql string, startAt int) ([]map[string]any, error) {
	f.pageCalls = append(f.pageCalls, fmt.Sprintf("%s@%d", jql, startAt))
	if len(f.pages) == 0 {
		return nil, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func (f *fakeJiraAPI) Issue(key string) (map[string]any, error) {
	issue, ok := f.issues[key]
	if !ok {
		return nil, fmt.Errorf("issue %s not found", key)
	}
	return issue, nil
}

func (f *fakeJiraAPI) CreateIssue(fields map[string]any) (string, error) {
	f.created = append(f.created, fields)
	return fmt.Sprintf("AHCP5-%d", 100+len(f.created)), nil
}

func (f *fakeJiraAPI) UpdateIssue(key string, fields map[string]any) error {
	f.updates[key] = append(f.updates[key], fields)
	return nil
}

func (f *fakeJiraAPI) Transitions(key string) ([]clients.Transition, error) {
	return nil, nil
}

func (f *fakeJiraAPI) DoTransition(key, transitionID, comment string) error {
	return nil
}

func (f *fakeJiraAPI) Comments(key string) ([]map[string]any, error) {
	return f.comments[key], nil
}

func (f *fakeJiraAPI) AddComment(key, body string) error {
	f.comments[key] = append(f.comments[key], map[string]any{"body": body})
	return nil
}

func (f *fakeJiraAPI) AddAttachment(key, filename string, data []byte) error {
	return nil
}

func (f *fakeJiraAPI) DownloadAttachment(id string) ([]byte, error) {
	return nil, nil
}

func (f *fakeJiraAPI) CreateMeta(projectKey, issueTypeName string) (map[string]any, error) {
	return f.meta, nil
}

func (f *fakeJiraAPI) ProjectVersions(projectKey string) ([]string, error) {
	return f.versions, nil
}

func (f *fakeJiraAPI) User(accountID string) (map[string]any, error) {
	user, ok := f.users[accountID]
	if !ok {
		return nil, fmt.Errorf("user %s not found", accountID)
	}
	return user, nil
}

func (f *fakeJiraAPI) SearchUsers(query string) ([]map[string]any, error) {
	var found []map[string]any
	for _, user := range f.users {
		if name, _ := user["displayName"].(string); name == query {
			found = append(found, user)
		}
	}
	return found, nil
}

// metaWithOptions builds a createmeta payload listing the allowed options
// of several fields at once. Options keyed "value" or "name" depending on
// what the field type would carry.
func metaWithOptions(fields map[string][]map[string]any) map[string]any {
	metaFields := make(map[string]any, len(fields))
	for fieldKey, options := range fields {
		rawOptions := make([]any, 0, len(options))
		for _, option := range options {
			entry := make(map[string]any, len(option))
			for k, v := range option {
				entry[k] = v
			}
			rawOptions = append(rawOptions, entry)
		}
		metaFields[fieldKey] = map[string]any{"allowedValues": rawOptions}
	}
	return map[string]any{
		"projects": []any{
			map[string]any{
				"issuetypes": []any{
					map[string]any{"fields": metaFields},
				},
			},
		},
	}
}

func valued(values ...string) []map[string]any {
	options := make([]map[string]any, 0, len(values))
	for _, value := range values {
		options = append(options, map[string]any{"value": value})
	}
	return options
}

func named(names ...string) []map[string]any {
	options := make([]map[string]any, 0, len(names))
	for _, name := range names {
		options = append(options, map[string]any{"name": name})
	}
	return options
}
