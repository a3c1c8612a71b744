package clients

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/itsmesamster/reduce-app/internal/models"
	"github.com/itsmesamster/reduce-app/pkg/cache"
	"github.com/itsmesamster/reduce-app/pkg/logger"
)

// pageSize is fixed by the Jira search API default; the query loop relies
// on it to detect the last page.
const pageSize = 50

// Transition is one available workflow transition of an issue.
type Transition struct {
	ID     string
	Name   string
	ToName string
}

// JiraAPI is the raw REST surface of one Jira instance. Implementations
// return decoded payloads and plain errors; cross reference uniqueness,
// retries and domain rules live above this interface.
type JiraAPI interface {
	Myself() (map[string]any, error)
	SearchPage(jql string, startAt int) ([]map[string]any, error)
	Issue(key string) (map[string]any, error)
	CreateIssue(fields map[string]any) (string, error)
	UpdateIssue(key string, fields map[string]any) error
	Transitions(key string) ([]Transition, error)
	DoTransition(key, transitionID, comment string) error
	Comments(key string) ([]map[string]any, error)
	AddComment(key, body string) error
	AddAttachment(key, filename string, data []byte) error
	DownloadAttachment(id string) ([]byte, error)
	CreateMeta(projectKey, issueTypeName string) (map[string]any, error)
	ProjectVersions(projectKey string) ([]string, error)
	User(accountID string) (map[string]any, error)
	SearchUsers(query string) ([]map[string]any, error)
}

type httpJiraAPI struct {
	serverURL string
	email     string
	token     string
	client    *http.Client
}

// NewJiraAPI builds the REST transport for one Jira server with basic
// auth. The trailing slash of the server URL is normalized away.
func NewJiraAPI(serverURL, email, token string) JiraAPI {
	return &httpJiraAPI{
		serverURL: strings.TrimRight(serverURL, "/"),
		email:     email,
		token:     token,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (a *httpJiraAPI) doJSON(method, path string, query url.Values, body any, out any) error {
	endpoint := a.serverURL + "/rest/api/2" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, endpoint, reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth(a.email, a.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("jira returned %d for %s %s: %s",
			resp.StatusCode, method, path, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode jira response for %s: %w", path, err)
	}
	return nil
}

func (a *httpJiraAPI) Myself() (map[string]any, error) {
	var me map[string]any
	if err := a.doJSON(http.MethodGet, "/myself", nil, nil, &me); err != nil {
		return nil, err
	}
	return me, nil
}

func (a *httpJiraAPI) SearchPage(jql string, startAt int) ([]map[string]any, error) {
	query := url.Values{}
	query.Set("jql", jql)
	query.Set("startAt", strconv.Itoa(startAt))
	query.Set("maxResults", strconv.Itoa(pageSize))

	var result struct {
		Issues []map[string]any `json:"issues"`
	}
	if err := a.doJSON(http.MethodGet, "/search", query, nil, &result); err != nil {
		return nil, err
	}
	return result.Issues, nil
}

func (a *httpJiraAPI) Issue(key string) (map[string]any, error) {
	var issue map[string]any
	if err := a.doJSON(http.MethodGet, "/issue/"+key, nil, nil, &issue); err != nil {
		return nil, err
	}
	return issue, nil
}

func (a *httpJiraAPI) CreateIssue(fields map[string]any) (string, error) {
	var created struct {
		Key string `json:"key"`
	}
	body := map[string]any{"fields": fields}
	if err := a.doJSON(http.MethodPost, "/issue", nil, body, &created); err != nil {
		return "", err
	}
	if created.Key == "" {
		return "", fmt.Errorf("jira created an issue but returned no key")
	}
	return created.Key, nil
}

func (a *httpJiraAPI) UpdateIssue(key string, fields map[string]any) error {
	body := map[string]any{"fields": fields}
	return a.doJSON(http.MethodPut, "/issue/"+key, nil, body, nil)
}

func (a *httpJiraAPI) Transitions(key string) ([]Transition, error) {
	var result struct {
		Transitions []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			To   struct {
				Name string `json:"name"`
			} `json:"to"`
		} `json:"transitions"`
	}
	err := a.doJSON(http.MethodGet, "/issue/"+key+"/transitions", nil, nil, &result)
	if err != nil {
		return nil, err
	}
	transitions := make([]Transition, 0, len(result.Transitions))
	for _, t := range result.Transitions {
		transitions = append(transitions, Transition{
			ID:     t.ID,
			Name:   t.Name,
			ToName: t.To.Name,
		})
	}
	return transitions, nil
}

func (a *httpJiraAPI) DoTransition(key, transitionID, comment string) error {
	body := map[string]any{
		"transition": map[string]any{"id": transitionID},
	}
	if comment != "" {
		body["update"] = map[string]any{
			"comment": []map[string]any{
				{"add": map[string]any{"body": comment}},
			},
		}
	}
	return a.doJSON(http.MethodPost, "/issue/"+key+"/transitions", nil, body, nil)
}

func (a *httpJiraAPI) Comments(key string) ([]map[string]any, error) {
	var result struct {
		Comments []map[string]any `json:"comments"`
	}
	err := a.doJSON(http.MethodGet, "/issue/"+key+"/comment", nil, nil, &result)
	if err != nil {
		return nil, err
	}
	return result.Comments, nil
}

func (a *httpJiraAPI) AddComment(key, body string) error {
	payload := map[string]any{"body": body}
	return a.doJSON(http.MethodPost, "/issue/"+key+"/comment", nil, payload, nil)
}

func (a *httpJiraAPI) AddAttachment(key, filename string, data []byte) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	endpoint := a.serverURL + "/rest/api/2/issue/" + key + "/attachments"
	req, err := http.NewRequest(http.MethodPost, endpoint, &buf)
	if err != nil {
		return err
	}
	req.SetBasicAuth(a.email, a.token)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	// required by Jira to bypass XSRF protection on multipart posts
	req.Header.Set("X-Atlassian-Token", "no-check")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("jira returned %d for attachment upload to %s: %s",
			resp.StatusCode, key, strings.TrimSpace(string(data)))
	}
	return nil
}

func (a *httpJiraAPI) DownloadAttachment(id string) ([]byte, error) {
	var meta struct {
		Content string `json:"content"`
	}
	if err := a.doJSON(http.MethodGet, "/attachment/"+id, nil, nil, &meta); err != nil {
		return nil, err
	}
	if meta.Content == "" {
		return nil, fmt.Errorf("attachment %s has no content url", id)
	}

	req, err := http.NewRequest(http.MethodGet, meta.Content, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(a.email, a.token)
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jira returned %d downloading attachment %s", resp.StatusCode, id)
	}
	return io.ReadAll(resp.Body)
}

func (a *httpJiraAPI) CreateMeta(projectKey, issueTypeName string) (map[string]any, error) {
	query := url.Values{}
	query.Set("projectKeys", projectKey)
	if issueTypeName != "" {
		query.Set("issuetypeNames", issueTypeName)
	}
	query.Set("expand", "projects.issuetypes.fields")

	var meta map[string]any
	if err := a.doJSON(http.MethodGet, "/issue/createmeta", query, nil, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (a *httpJiraAPI) ProjectVersions(projectKey string) ([]string, error) {
	var raw []struct {
		Name string `json:"name"`
	}
	err := a.doJSON(http.MethodGet, "/project/"+projectKey+"/versions", nil, nil, &raw)
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(raw))
	for _, v := range raw {
		if v.Name != "" {
			versions = append(versions, v.Name)
		}
	}
	return versions, nil
}

func (a *httpJiraAPI) User(accountID string) (map[string]any, error) {
	query := url.Values{}
	query.Set("accountId", accountID)
	var user map[string]any
	if err := a.doJSON(http.MethodGet, "/user", query, nil, &user); err != nil {
		return nil, err
	}
	return user, nil
}

func (a *httpJiraAPI) SearchUsers(query string) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("query", query)
	var users []map[string]any
	if err := a.doJSON(http.MethodGet, "/user/search", params, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// JiraClientOptions scopes one JiraClient to a project. IssueTypes,
// Reporters and Origin are JQL fragments, already quoted the way the
// server expects them, e.g. `("Task", "Integration")`.
type JiraClientOptions struct {
	ServerURL  string
	Project    string
	ProjectKey string
	IssueTypes string
	Reporters  string
	Origin     string
}

// JiraClient layers paging, caching and JQL building over a JiraAPI. One
// client serves one project on one server.
type JiraClient struct {
	api     JiraAPI
	opts    JiraClientOptions
	fields  models.FieldMap
	baseJQL string
	meta    *cache.HourlyCache
	users   *cache.HourlyCache
}

func NewJiraClient(api JiraAPI, fields models.FieldMap, opts JiraClientOptions) *JiraClient {
	return &JiraClient{
		api:    api,
		opts:   opts,
		fields: fields,
		meta:   cache.NewHourlyCache(32),
		users:  cache.NewHourlyCache(256),
	}
}

// ServerURL is the UI base for browse links.
func (c *JiraClient) ServerURL() string { return c.opts.ServerURL }

// API exposes the raw transport for operations without a wrapper.
func (c *JiraClient) API() JiraAPI { return c.api }

// FieldMap is the field translation this client wraps tickets with.
func (c *JiraClient) FieldMap() models.FieldMap { return c.fields }

// Check verifies credentials with a cheap authenticated request.
func (c *JiraClient) Check() error {
	if _, err := c.api.Myself(); err != nil {
		return fmt.Errorf("jira connection check failed for %s: %w", c.opts.ServerURL, err)
	}
	logger.GetLogger().Infof("Jira connection to %s ok", c.opts.ServerURL)
	return nil
}

// BaseJQL builds the project scope every query starts from.
func (c *JiraClient) BaseJQL() string {
	if c.baseJQL != "" {
		return c.baseJQL
	}
	var parts []string
	if c.opts.Project != "" {
		parts = append(parts, fmt.Sprintf("PROJECT = %q", c.opts.Project))
	}
	if c.opts.IssueTypes != "" {
		parts = append(parts, "issuetype in "+c.opts.IssueTypes)
	}
	if c.opts.Reporters != "" {
		parts = append(parts, "reporter in "+c.opts.Reporters)
	}
	if c.opts.Origin != "" {
		parts = append(parts, fmt.Sprintf(`"Origin" in (%q)`, c.opts.Origin))
	}
	c.baseJQL = strings.Join(parts, " AND ")
	return c.baseJQL
}

// QueryAll pages through a JQL query 50 issues at a time. A short page
// ends the loop; anything beyond the page size is a protocol error.
func (c *JiraClient) QueryAll(jql string) ([]*models.Ticket, error) {
	log := logger.GetLogger()
	log.Infof("Query Jira issues: %s", jql)

	var all []*models.Ticket
	startAt := 0
	for {
		page, err := c.api.SearchPage(jql, startAt)
		if err != nil {
			return nil, err
		}
		for _, raw := range page {
			all = append(all, models.NewTicket(raw, c.fields, c.opts.ServerURL))
		}
		switch {
		case len(page) < pageSize:
			log.Debugf("Found %d Jira issues for query", len(all))
			return all, nil
		case len(page) == pageSize:
			startAt += pageSize
		default:
			return nil, fmt.Errorf("invalid search page length %d, must be between 0 and %d",
				len(page), pageSize)
		}
	}
}

// Ticket fetches one issue by key.
func (c *JiraClient) Ticket(key string) (*models.Ticket, error) {
	raw, err := c.api.Issue(key)
	if err != nil {
		return nil, fmt.Errorf("failed to request Jira issue %s: %w", key, err)
	}
	return models.NewTicket(raw, c.fields, c.opts.ServerURL), nil
}

// TicketsByExternalReference lists every ticket in scope carrying the
// reference. Uniqueness is the caller's rule to enforce.
func (c *JiraClient) TicketsByExternalReference(reference string) ([]*models.Ticket, error) {
	jql := fmt.Sprintf(`%s AND "External Reference" ~ %s`, c.BaseJQL(), reference)
	return c.QueryAll(jql)
}

// TicketsWithChangedStatus lists tickets whose status changed within the
// window.
func (c *JiraClient) TicketsWithChangedStatus(hours int) ([]*models.Ticket, error) {
	jql := fmt.Sprintf(`%s AND status changed AFTER "-%dh"`, c.BaseJQL(), hours)
	return c.QueryAll(jql)
}

// TicketsUpdated lists tickets updated within the window.
func (c *JiraClient) TicketsUpdated(hours int) ([]*models.Ticket, error) {
	jql := fmt.Sprintf("%s AND updated >= -%dh", c.BaseJQL(), hours)
	return c.QueryAll(jql)
}

// TicketsWithFieldNotEmpty lists recently updated tickets where the named
// custom field carries a value.
func (c *JiraClient) TicketsWithFieldNotEmpty(fieldName string, hours int) ([]*models.Ticket, error) {
	jql := fmt.Sprintf("%s AND %q is not EMPTY AND updated >= -%dh",
		c.BaseJQL(), fieldName, hours)
	return c.QueryAll(jql)
}

// Create posts a new issue and returns its key.
func (c *JiraClient) Create(fields map[string]any) (string, error) {
	key, err := c.api.CreateIssue(fields)
	if err != nil {
		return "", fmt.Errorf("failed to create Jira issue: %w", err)
	}
	logger.GetLogger().Infof("Created Jira issue %s", key)
	return key, nil
}

// Update posts changed fields for an issue.
func (c *JiraClient) Update(key string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if err := c.api.UpdateIssue(key, fields); err != nil {
		return fmt.Errorf("failed to update Jira issue %s: %w", key, err)
	}
	logger.GetLogger().Infof("Updated Jira issue %s fields: %v", key, fieldKeys(fields))
	return nil
}

func fieldKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	return keys
}

// UpdateDescription replaces the issue description.
func (c *JiraClient) UpdateDescription(key, description string) error {
	return c.Update(key, map[string]any{"description": description})
}

// UpdateStatus walks the available transitions to the one landing on the
// wanted status and executes it, then returns the refreshed ticket.
func (c *JiraClient) UpdateStatus(key, newStatus, comment string) (*models.Ticket, error) {
	transitions, err := c.api.Transitions(key)
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions of %s: %w", key, err)
	}

	transitionID := ""
	for _, t := range transitions {
		if t.ToName == newStatus {
			transitionID = t.ID
			break
		}
	}
	if transitionID == "" {
		return nil, fmt.Errorf("no transition of %s leads to status %q", key, newStatus)
	}

	if err := c.api.DoTransition(key, transitionID, comment); err != nil {
		return nil, fmt.Errorf("failed to transition %s to %q: %w", key, newStatus, err)
	}
	logger.GetLogger().Infof("Moved Jira issue %s to status %q", key, newStatus)
	return c.Ticket(key)
}

// Comments lists the comments of an issue, oldest first.
func (c *JiraClient) Comments(key string) ([]models.Comment, error) {
	raw, err := c.api.Comments(key)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments of %s: %w", key, err)
	}
	return models.CommentsFromPayload(raw), nil
}

// AllCommentsMerged joins every comment body into one searchable string.
func (c *JiraClient) AllCommentsMerged(key string) (string, error) {
	comments, err := c.Comments(key)
	if err != nil {
		return "", err
	}
	bodies := make([]string, 0, len(comments))
	for _, comment := range comments {
		bodies = append(bodies, comment.Body)
	}
	return strings.Join(bodies, " ### "), nil
}

// AddComment posts a comment unless it repeats the last one verbatim.
func (c *JiraClient) AddComment(key, body string) error {
	comments, err := c.Comments(key)
	if err != nil {
		return err
	}
	if len(comments) > 0 && comments[len(comments)-1].Body == body {
		logger.GetLogger().Warnf("Same comment already present on %s", key)
		return nil
	}
	if err := c.api.AddComment(key, body); err != nil {
		return fmt.Errorf("failed to add comment to %s: %w", key, err)
	}
	logger.GetLogger().Infof("Added comment to Jira issue %s", key)
	return nil
}

// AddAttachment uploads a file to an issue.
func (c *JiraClient) AddAttachment(key, filename string, data []byte) error {
	if err := c.api.AddAttachment(key, filename, data); err != nil {
		return fmt.Errorf("failed to attach %q to %s: %w", filename, key, err)
	}
	logger.GetLogger().Infof("Attached %q (%d bytes) to Jira issue %s", filename, len(data), key)
	return nil
}

// DownloadAttachment fetches attachment content by attachment id.
func (c *JiraClient) DownloadAttachment(id string) ([]byte, error) {
	return c.api.DownloadAttachment(id)
}

// Labels lists the labels of an issue.
func (c *JiraClient) Labels(key string) ([]string, error) {
	ticket, err := c.Ticket(key)
	if err != nil {
		return nil, err
	}
	return ticket.GetStrings("labels"), nil
}

// AddLabel appends a label, keeping the existing ones.
func (c *JiraClient) AddLabel(key, label string) error {
	labels, err := c.Labels(key)
	if err != nil {
		return err
	}
	for _, existing := range labels {
		if existing == label {
			return nil
		}
	}
	labels = append(labels, label)
	return c.Update(key, map[string]any{"labels": labels})
}

// AllowedValues returns the select options of a field for the project's
// issue type, cached per hour. Fields without options return an empty
// list, any value is allowed then.
func (c *JiraClient) AllowedValues(fieldKey, issueTypeName string) ([]string, error) {
	cacheKey := fieldKey + "|" + issueTypeName
	if cached, ok := c.meta.Get(cacheKey); ok {
		return cached.([]string), nil
	}

	meta, err := c.api.CreateMeta(c.opts.ProjectKey, issueTypeName)
	if err != nil {
		return nil, fmt.Errorf("failed to request createmeta for %s: %w", c.opts.ProjectKey, err)
	}
	values := allowedValuesFromMeta(meta, fieldKey)
	c.meta.Set(cacheKey, values)
	return values, nil
}

// allowedValuesFromMeta digs projects[0].issuetypes[0].fields[fieldKey]
// .allowedValues out of the createmeta payload. Options carry either a
// "value" or a "name" depending on the field type.
func allowedValuesFromMeta(meta map[string]any, fieldKey string) []string {
	projects, _ := meta["projects"].([]any)
	if len(projects) == 0 {
		return nil
	}
	project, _ := projects[0].(map[string]any)
	issueTypes, _ := project["issuetypes"].([]any)
	if len(issueTypes) == 0 {
		return nil
	}
	issueType, _ := issueTypes[0].(map[string]any)
	fields, _ := issueType["fields"].(map[string]any)
	field, _ := fields[fieldKey].(map[string]any)
	rawValues, _ := field["allowedValues"].([]any)

	var values []string
	for _, rawValue := range rawValues {
		option, _ := rawValue.(map[string]any)
		if value, _ := option["value"].(string); value != "" {
			values = append(values, value)
			continue
		}
		if name, _ := option["name"].(string); name != "" {
			values = append(values, name)
		}
	}
	return values
}

// AvailableVersions lists the release versions of the project, cached
// per hour.
func (c *JiraClient) AvailableVersions() ([]string, error) {
	if cached, ok := c.meta.Get("versions|" + c.opts.ProjectKey); ok {
		return cached.([]string), nil
	}
	versions, err := c.api.ProjectVersions(c.opts.ProjectKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions of %s: %w", c.opts.ProjectKey, err)
	}
	if len(versions) == 0 {
		logger.GetLogger().Errorf("No release versions found for Jira project %s", c.opts.ProjectKey)
	}
	c.meta.Set("versions|"+c.opts.ProjectKey, versions)
	return versions, nil
}

// UserData resolves an account id to its user payload, cached per hour.
// A failed lookup caches the miss so broken mentions do not hammer the
// server once per comment line.
func (c *JiraClient) UserData(accountID string) map[string]any {
	if cached, ok := c.users.Get(accountID); ok {
		user, _ := cached.(map[string]any)
		return user
	}
	user, err := c.api.User(accountID)
	if err != nil {
		logger.GetLogger().Errorf("User lookup failed for %s: %v", accountID, err)
		c.users.Set(accountID, map[string]any(nil))
		return nil
	}
	c.users.Set(accountID, user)
	return user
}

// SearchUser finds the single user whose display name matches, word
// order and punctuation ignored. More than one exact match is an error.
func (c *JiraClient) SearchUser(displayName string) (map[string]any, error) {
	users, err := c.api.SearchUsers(displayName)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		logger.GetLogger().Warnf("No user found for name %q", displayName)
		return nil, nil
	}

	var matches []map[string]any
	for _, user := range users {
		found, _ := user["displayName"].(string)
		if namesAreEqual(displayName, found) {
			matches = append(matches, user)
		}
	}
	if len(matches) > 1 {
		return nil, fmt.Errorf("more than one user found for name %q", displayName)
	}
	if len(matches) == 0 {
		logger.GetLogger().Warnf("No exact name match for user %q", displayName)
		return nil, nil
	}
	return matches[0], nil
}

// namesAreEqual compares person names ignoring case, commas, dashes and
// word order, "Doe, John" equals "John Doe".
func namesAreEqual(name1, name2 string) bool {
	normalize := func(name string) map[string]int {
		name = strings.ToLower(name)
		name = strings.NewReplacer(",", "", "-", "").Replace(name)
		words := map[string]int{}
		for _, word := range strings.Fields(name) {
			words[word]++
		}
		return words
	}
	words1, words2 := normalize(name1), normalize(name2)
	if len(words1) != len(words2) {
		return false
	}
	for word, count := range words1 {
		if words2[word] != count {
			return false
		}
	}
	return true
}
