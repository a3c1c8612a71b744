package clients

import (
	"bytes"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/itsmesamster/reduce-app/internal/models"
	"github.com/itsmesamster/reduce-app/pkg/cache"
	"github.com/itsmesamster/reduce-app/pkg/logger"
)

const (
	kpmServiceNS = "http://xmldefs.volkswagenag.com/PP/QM/GroupProblemManagementService/V3"
	kpmAddrNS    = "http://www.w3.org/2005/08/addressing"
	soapEnvNS    = "http://schemas.xmlsoap.org/soap/envelope/"

	kpmSuccessMessage  = "Method completed successfully"
	kpmNoAccessMessage = "The user has no permission to read the problem"

	// process step type descriptions as KPM reports them
	StepSupplierResponse = "Lieferantenaussage"
	StepSupplierQuestion = "Rückfrage"
	StepAnalysisDone     = "Analyse abgeschlossen"
	StepAnswer           = "Antwort"
)

// ProblemRef is one entry of a changed-problems query.
type ProblemRef struct {
	Number    string
	Timestamp string
	Types     []string
}

// ProcessStepItem is one row of the process step list of a problem.
type ProcessStepItem struct {
	ProblemNumber  string
	StepID         string
	LastChangeDate string
	StepType       string
	StepTypeDesc   string
	Status         string
	SenderRole     string
}

// KpmUser identifies the author of a process step.
type KpmUser struct {
	Email    string
	Phone    string
	UserID   string
	UserName string
}

// ProcessStep is the detailed payload of one process step.
type ProcessStep struct {
	CreationDate   string
	Creator        KpmUser
	LastChangeDate string
	LastChanger    KpmUser
	ProblemNumber  string
	StepID         string
	StepType       string
	StepTypeDesc   string
	SenderRole     string
	Status         string
	Text           string
}

// ForJiraUI renders the step for a Jira custom field: a stamp row with the
// author, then the text. Supplier responses skip the author, that is
// always the sync system user.
func (s *ProcessStep) ForJiraUI() string {
	date := strings.SplitN(s.LastChangeDate, ".", 2)[0]
	date = strings.ReplaceAll(date, "-", "/")

	var firstRow string
	switch {
	case s.StepTypeDesc == StepSupplierResponse:
		firstRow = fmt.Sprintf(" \U0001F4C6 \t %s", date)
	case s.LastChanger.Email != "":
		firstRow = fmt.Sprintf(" \U0001F4C6 \t %s \t\t | \t\t \U0001F4EE %s", date, s.LastChanger.Email)
	case s.LastChanger.UserName != "":
		firstRow = fmt.Sprintf(" \U0001F4C6 \t %s \t\t | \t\t \U0001F4EE %s", date, s.LastChanger.UserName)
	default:
		firstRow = fmt.Sprintf(" \U0001F4C6 \t %s", date)
	}

	var secondRow string
	if s.Text != "" {
		text := strings.NewReplacer("<b>", "", "</b>", "").Replace(s.Text)
		secondRow = fmt.Sprintf(" \U0001F4DD \t %s\n\n", text)
	} else {
		secondRow = fmt.Sprintf(" \U0001F4DD \t [issue-sync] No text found in this %q\n\n", s.StepTypeDesc)
	}
	return firstRow + "\n        " + secondRow
}

// DocumentRef is one attachment listed on a KPM problem.
type DocumentRef struct {
	ID          string
	Name        string
	Size        int64
	AccessRight string
	Suffix      string
	Type        string
}

// FullName is the file name with its suffix restored.
func (d DocumentRef) FullName() string {
	if d.Suffix == "" {
		return d.Name
	}
	return d.Name + "." + d.Suffix
}

// KpmAPI is the SOAP surface of the KPM problem management service.
// Implementations return decoded payloads and plain errors; posting
// policy and comparison rules live above this interface.
type KpmAPI interface {
	Problem(kpmID string) (map[string]any, error)
	ChangedProblems(since string) ([]ProblemRef, error)
	ProcessStepList(kpmID string) ([]ProcessStepItem, error)
	ProcessStep(kpmID, stepID string) (*ProcessStep, error)
	DocumentList(kpmID string) ([]DocumentRef, error)
	Document(kpmID, documentID string) ([]byte, error)
	AddSupplierResponse(kpmID, ticketID, status, text string) error
	AddSupplierQuestion(kpmID, question string) error
	HasNoAccess(kpmID string) (bool, error)
}

type soapKpmAPI struct {
	serverURL string
	userID    string
	inbox     string
	client    *http.Client
}

// NewKpmAPI builds the SOAP transport. certFile is a combined PEM with
// client certificate and key for the mutual TLS the service requires; an
// empty path skips client auth, useful against a stub.
func NewKpmAPI(serverURL, userID, certFile, inbox string) (KpmAPI, error) {
	client := &http.Client{Timeout: 120 * time.Second}
	if certFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, certFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load KPM client certificate %s: %w", certFile, err)
		}
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{Certificates: []tls.Certificate{cert}},
		}
	}
	return &soapKpmAPI{
		serverURL: serverURL,
		userID:    userID,
		inbox:     inbox,
		client:    client,
	}, nil
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func (a *soapKpmAPI) envelope(action, body string) string {
	return fmt.Sprintf(
		`<soapenv:Envelope xmlns:soapenv=%q xmlns:v3=%q>`+
			`<soapenv:Header>`+
			`<To xmlns=%q>ws://volkswagenag.com/PP/QM/GroupProblemManagementService/V3</To>`+
			`<Action xmlns=%q>%s/KpmService/%s</Action>`+
			`<MessageID xmlns=%q>urn:uuid:%s</MessageID>`+
			`</soapenv:Header>`+
			`<soapenv:Body>%s</soapenv:Body>`+
			`</soapenv:Envelope>`,
		soapEnvNS, kpmServiceNS,
		kpmAddrNS,
		kpmAddrNS, kpmServiceNS, action,
		kpmAddrNS, uuid.NewString(),
		body,
	)
}

func (a *soapKpmAPI) auth() string {
	return fmt.Sprintf("<UserAuthentification><UserId>%s</UserId></UserAuthentification>", a.userID)
}

func (a *soapKpmAPI) post(action, body string) (*http.Response, error) {
	payload := a.envelope(action, body)
	req, err := http.NewRequest(http.MethodPost, a.serverURL, strings.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to post %s to KPM: %w", action, err)
	}
	return resp, nil
}

// call posts a request and returns the parsed SOAP body as a nested map.
func (a *soapKpmAPI) call(action, body string) (map[string]any, error) {
	resp, err := a.post(action, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := soapXMLPart(resp)
	if err != nil {
		return nil, err
	}
	parsed, err := parseSoapBody(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse KPM %s response: %w", action, err)
	}
	return parsed, nil
}

// soapXMLPart returns the XML document of a response, unwrapping the
// first part of an MTOM/XOP multipart when needed.
func soapXMLPart(resp *http.Response) ([]byte, error) {
	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return io.ReadAll(resp.Body)
	}
	reader := multipart.NewReader(resp.Body, params["boundary"])
	part, err := reader.NextPart()
	if err != nil {
		return nil, fmt.Errorf("empty multipart KPM response: %w", err)
	}
	return io.ReadAll(part)
}

// parseSoapBody decodes a SOAP envelope into nested maps keyed by local
// element names. Repeated siblings collect into []any, text-only elements
// become strings.
func parseSoapBody(data []byte) (map[string]any, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("no envelope found: %w", err)
		}
		if start, ok := token.(xml.StartElement); ok {
			root, err := parseElement(decoder, start)
			if err != nil {
				return nil, err
			}
			envelope, _ := root.(map[string]any)
			body, _ := envelope["Body"].(map[string]any)
			if body == nil {
				return nil, fmt.Errorf("no SOAP body in KPM response")
			}
			return body, nil
		}
	}
}

func parseElement(decoder *xml.Decoder, start xml.StartElement) (any, error) {
	children := map[string]any{}
	var text strings.Builder
	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			child, err := parseElement(decoder, t)
			if err != nil {
				return nil, err
			}
			name := t.Name.Local
			switch existing := children[name].(type) {
			case nil:
				children[name] = child
			case []any:
				children[name] = append(existing, child)
			default:
				children[name] = []any{existing, child}
			}
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if len(children) > 0 {
				return children, nil
			}
			return strings.TrimSpace(text.String()), nil
		}
	}
}

// dig walks a parsed body by local element names.
func dig(node any, path ...string) any {
	for _, key := range path {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = m[key]
	}
	return node
}

func digString(node any, path ...string) string {
	s, _ := dig(node, path...).(string)
	return s
}

// digList normalizes a single element and a repeated element to a slice.
func digList(node any, path ...string) []any {
	value := dig(node, path...)
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		return v
	default:
		return []any{v}
	}
}

// responseMessage finds the first ResponseMessage/MessageText anywhere in
// the parsed body.
func responseMessage(node any) string {
	m, ok := node.(map[string]any)
	if !ok {
		return ""
	}
	if text := digString(m, "ResponseMessage", "MessageText"); text != "" {
		return text
	}
	for _, child := range m {
		if text := responseMessage(child); text != "" {
			return text
		}
	}
	return ""
}

func validateKpmBody(body map[string]any, action string) error {
	message := responseMessage(body)
	if message == kpmSuccessMessage {
		return nil
	}
	if message == "" {
		message = "no response message found"
	}
	return fmt.Errorf("KPM %s failed: %s", action, message)
}

func (a *soapKpmAPI) Problem(kpmID string) (map[string]any, error) {
	body := fmt.Sprintf("<v3:GetDevelopmentProblemData>%s<ProblemNumber>%s</ProblemNumber></v3:GetDevelopmentProblemData>",
		a.auth(), kpmID)
	parsed, err := a.call("GetDevelopmentProblemDataRequest", body)
	if err != nil {
		return nil, err
	}
	internal, _ := dig(parsed,
		"GetDevelopmentProblemDataResponse",
		"GetDevelopmentProblemDataResponseInternal").(map[string]any)
	if internal == nil {
		return nil, fmt.Errorf("KPM problem %s: unexpected response shape", kpmID)
	}
	if err := validateKpmBody(internal, "GetDevelopmentProblemData"); err != nil {
		return nil, err
	}
	return internal, nil
}

func (a *soapKpmAPI) HasNoAccess(kpmID string) (bool, error) {
	body := fmt.Sprintf("<v3:GetDevelopmentProblemData>%s<ProblemNumber>%s</ProblemNumber></v3:GetDevelopmentProblemData>",
		a.auth(), kpmID)
	parsed, err := a.call("GetDevelopmentProblemDataRequest", body)
	if err != nil {
		return false, err
	}
	return responseMessage(parsed) == kpmNoAccessMessage, nil
}

func (a *soapKpmAPI) ChangedProblems(since string) ([]ProblemRef, error) {
	parts := strings.Split(a.inbox, "/")
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	body := fmt.Sprintf(
		"<v3:GetMultipleProblemData>%s"+
			"<LastChangeTimestamp>%s</LastChangeTimestamp>"+
			"<OverviewAddress>"+
			"<AddressTimestamp></AddressTimestamp>"+
			"<ContactPerson></ContactPerson>"+
			"<Description></Description>"+
			"<OrganisationalUnit>%s</OrganisationalUnit>"+
			"<Group>%s</Group>"+
			"<Plant>%s</Plant>"+
			"</OverviewAddress>"+
			"<ActiveOverview>true</ActiveOverview>"+
			"<PassiveOverview>false</PassiveOverview>"+
			"</v3:GetMultipleProblemData>",
		a.auth(), since, parts[1], parts[2], parts[0])

	parsed, err := a.call("GetMultipleProblemDataRequest", body)
	if err != nil {
		return nil, err
	}
	internal := dig(parsed,
		"GetMultipleProblemDataResponse",
		"GetMultipleProblemDataResponseInternal")

	var refs []ProblemRef
	for _, raw := range digList(internal, "ProblemReference") {
		ref := ProblemRef{
			Number:    digString(raw, "ProblemNumber"),
			Timestamp: digString(raw, "LastChangeTimestamp"),
		}
		for _, t := range digList(raw, "MessageTypeList", "MessageType") {
			if s, ok := t.(string); ok {
				ref.Types = append(ref.Types, s)
			}
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (a *soapKpmAPI) ProcessStepList(kpmID string) ([]ProcessStepItem, error) {
	body := fmt.Sprintf("<v3:GetProcessStepList>%s<ProblemNumber>%s</ProblemNumber></v3:GetProcessStepList>",
		a.auth(), kpmID)
	parsed, err := a.call("GetProcessStepListRequest", body)
	if err != nil {
		return nil, err
	}
	internal := dig(parsed, "GetProcessStepListResponse", "GetProcessStepListResponse")

	var items []ProcessStepItem
	for _, raw := range digList(internal, "ProcessStepItem") {
		items = append(items, ProcessStepItem{
			ProblemNumber:  digString(raw, "ProblemNumber"),
			StepID:         digString(raw, "ProcessStepId"),
			LastChangeDate: digString(raw, "LastChangeDate"),
			StepType:       digString(raw, "ProcessStepType"),
			StepTypeDesc:   digString(raw, "ProcessStepTypeDescription"),
			Status:         digString(raw, "Status"),
			SenderRole:     digString(raw, "SenderRole"),
		})
	}
	return items, nil
}

func kpmUserFrom(node any) KpmUser {
	return KpmUser{
		Email:    digString(node, "Email"),
		Phone:    digString(node, "Phone"),
		UserID:   digString(node, "UserId"),
		UserName: digString(node, "UserName"),
	}
}

func (a *soapKpmAPI) ProcessStep(kpmID, stepID string) (*ProcessStep, error) {
	body := fmt.Sprintf("<v3:GetProcessStep>%s<ProblemNumber>%s</ProblemNumber><ProcessStepId>%s</ProcessStepId></v3:GetProcessStep>",
		a.auth(), kpmID, stepID)
	parsed, err := a.call("GetProcessStepRequest", body)
	if err != nil {
		return nil, err
	}
	raw := dig(parsed, "GetProcessStepResponse", "GetProcessStepResponse", "ProcessStep")
	if raw == nil {
		return nil, fmt.Errorf("KPM step %s of %s: unexpected response shape", stepID, kpmID)
	}
	return &ProcessStep{
		CreationDate:   digString(raw, "CreationDate"),
		Creator:        kpmUserFrom(dig(raw, "Creator")),
		LastChangeDate: digString(raw, "LastChangeDate"),
		LastChanger:    kpmUserFrom(dig(raw, "LastChanger")),
		ProblemNumber:  digString(raw, "ProblemNumber"),
		StepID:         digString(raw, "ProcessStepId"),
		StepType:       digString(raw, "ProcessStepType"),
		StepTypeDesc:   digString(raw, "ProcessStepTypeDescription"),
		SenderRole:     digString(raw, "SenderRole"),
		Status:         digString(raw, "Status"),
		Text:           digString(raw, "Text"),
	}, nil
}

func (a *soapKpmAPI) DocumentList(kpmID string) ([]DocumentRef, error) {
	body := fmt.Sprintf("<v3:GetDocumentList>%s<ProblemNumber>%s</ProblemNumber></v3:GetDocumentList>",
		a.auth(), kpmID)
	parsed, err := a.call("GetDocumentListRequest", body)
	if err != nil {
		return nil, err
	}
	internal := dig(parsed, "GetDocumentListResponse", "GetDocumentListResponseInternal")

	var docs []DocumentRef
	for _, raw := range digList(internal, "DocumentReference") {
		size, _ := strconv.ParseInt(digString(raw, "Size"), 10, 64)
		docs = append(docs, DocumentRef{
			ID:          digString(raw, "DocumentId"),
			Name:        digString(raw, "Name"),
			Size:        size,
			AccessRight: digString(raw, "AccessRight"),
			Suffix:      digString(raw, "Suffix"),
			Type:        digString(raw, "Type"),
		})
	}
	return docs, nil
}

// Document downloads the binary content of one attachment. KPM ships it
// as the second part of an MTOM/XOP multipart response.
func (a *soapKpmAPI) Document(kpmID, documentID string) ([]byte, error) {
	body := fmt.Sprintf("<v3:GetDocument>%s<ProblemNumber>%s</ProblemNumber><DocumentId>%s</DocumentId></v3:GetDocument>",
		a.auth(), kpmID, documentID)
	resp, err := a.post("GetDocumentRequest", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("KPM document %s of %s: expected multipart response, got %q: %s",
			documentID, kpmID, mediaType, strings.TrimSpace(string(data)))
	}

	reader := multipart.NewReader(resp.Body, params["boundary"])
	first, err := reader.NextPart()
	if err != nil {
		return nil, fmt.Errorf("empty KPM document response: %w", err)
	}
	xmlData, err := io.ReadAll(first)
	if err != nil {
		return nil, err
	}
	parsed, err := parseSoapBody(xmlData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse KPM document response: %w", err)
	}
	if err := validateKpmBody(parsed, "GetDocument"); err != nil {
		return nil, err
	}

	binary, err := reader.NextPart()
	if err != nil {
		return nil, fmt.Errorf("KPM document %s of %s has no binary part: %w", documentID, kpmID, err)
	}
	return io.ReadAll(binary)
}

func (a *soapKpmAPI) AddSupplierResponse(kpmID, ticketID, status, text string) error {
	body := fmt.Sprintf(
		"<v3:AddSupplierResponse>%s<ProblemNumber>%s</ProblemNumber>"+
			"<SupplierResponse>"+
			"<Status>%s</Status>"+
			"<ErrorNumber>%s</ErrorNumber>"+
			"</SupplierResponse>"+
			"<ResponseText>%s</ResponseText>"+
			"</v3:AddSupplierResponse>",
		a.auth(), kpmID, status, ticketID, xmlEscaper.Replace(text))
	parsed, err := a.call("AddSupplierResponseRequest", body)
	if err != nil {
		return err
	}
	return validateKpmBody(parsed, "AddSupplierResponse")
}

func (a *soapKpmAPI) AddSupplierQuestion(kpmID, question string) error {
	body := fmt.Sprintf(
		"<v3:AddSupplierQuestion>%s<ProblemNumber>%s</ProblemNumber>"+
			"<SupplierQuestion>%s</SupplierQuestion>"+
			"</v3:AddSupplierQuestion>",
		a.auth(), kpmID, xmlEscaper.Replace(question))
	parsed, err := a.call("AddSupplierQuestionRequest", body)
	if err != nil {
		return err
	}
	return validateKpmBody(parsed, "AddSupplierQuestion")
}

// SinceTimestamp formats the query window start the way KPM expects,
// "2022-11-29 10:43:17.0". Monday runs reach back further to cover the
// weekend.
func SinceTimestamp(now time.Time, hours, mondayHours int) string {
	window := hours
	if now.Weekday() == time.Monday && mondayHours > hours {
		window = mondayHours
	}
	return now.Add(-time.Duration(window) * time.Hour).Format("2006-01-02 15:04:05.0")
}

// KpmClient layers caching and posting policy over a KpmAPI.
type KpmClient struct {
	api      KpmAPI
	postBack bool
	steps    *cache.HourlyCache
}

// NewKpmClient wraps the transport. postBack false keeps every mutating
// call local, logged but never sent, for dry runs against production
// data.
func NewKpmClient(api KpmAPI, postBack bool) *KpmClient {
	return &KpmClient{
		api:      api,
		postBack: postBack,
		steps:    cache.NewHourlyCache(64),
	}
}

// API exposes the raw transport.
func (c *KpmClient) API() KpmAPI { return c.api }

// PostBackEnabled reports whether mutating calls reach the server.
func (c *KpmClient) PostBackEnabled() bool { return c.postBack }

// Problem fetches one problem by id.
func (c *KpmClient) Problem(kpmID string) (*models.KpmProblem, error) {
	logger.GetLogger().Infof("Request KPM issue %s", kpmID)
	raw, err := c.api.Problem(kpmID)
	if err != nil {
		return nil, err
	}
	return models.NewKpmProblem(raw), nil
}

// ChangedSince lists the problems changed since the timestamp.
func (c *KpmClient) ChangedSince(since string) ([]ProblemRef, error) {
	refs, err := c.api.ChangedProblems(since)
	if err != nil {
		return nil, err
	}
	logger.GetLogger().Infof("Found %d KPM issues changed since %s", len(refs), since)
	return refs, nil
}

// ProcessSteps lists the process steps of a problem.
func (c *KpmClient) ProcessSteps(kpmID string) ([]ProcessStepItem, error) {
	return c.api.ProcessStepList(kpmID)
}

// Step fetches one process step, cached per hour. Steps are immutable
// once written, only the list grows.
func (c *KpmClient) Step(kpmID, stepID string) (*ProcessStep, error) {
	cacheKey := kpmID + "|" + stepID
	if cached, ok := c.steps.Get(cacheKey); ok {
		return cached.(*ProcessStep), nil
	}
	step, err := c.api.ProcessStep(kpmID, stepID)
	if err != nil {
		return nil, err
	}
	c.steps.Set(cacheKey, step)
	return step, nil
}

// StepsOfType filters the step list by type description, list order kept.
func (c *KpmClient) StepsOfType(kpmID, stepTypeDesc string) ([]ProcessStepItem, error) {
	items, err := c.ProcessSteps(kpmID)
	if err != nil {
		return nil, err
	}
	var filtered []ProcessStepItem
	for _, item := range items {
		if item.StepTypeDesc == stepTypeDesc {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

// LastStepOfType resolves the newest step of one type in detail. The
// step list arrives newest first, so the first match wins.
func (c *KpmClient) LastStepOfType(kpmID, stepTypeDesc string) (*ProcessStep, error) {
	items, err := c.ProcessSteps(kpmID)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.StepTypeDesc == stepTypeDesc {
			return c.Step(item.ProblemNumber, item.StepID)
		}
	}
	return nil, nil
}

// LastSupplierResponse is the newest supplier statement, if any.
func (c *KpmClient) LastSupplierResponse(kpmID string) (*ProcessStep, error) {
	return c.LastStepOfType(kpmID, StepSupplierResponse)
}

// LastSupplierQuestion is the newest question to the OEM, if any.
func (c *KpmClient) LastSupplierQuestion(kpmID string) (*ProcessStep, error) {
	return c.LastStepOfType(kpmID, StepSupplierQuestion)
}

// Documents lists the attachments of a problem.
func (c *KpmClient) Documents(kpmID string) ([]DocumentRef, error) {
	return c.api.DocumentList(kpmID)
}

// Document downloads one attachment.
func (c *KpmClient) Document(kpmID string, ref DocumentRef) ([]byte, error) {
	data, err := c.api.Document(kpmID, ref.ID)
	if err != nil {
		return nil, err
	}
	if ref.Size > 0 && int64(len(data)) != ref.Size {
		logger.GetLogger().Warnf("KPM document %s of %s: size %d differs from listed %d",
			ref.FullName(), kpmID, len(data), ref.Size)
	}
	return data, nil
}

// PostSupplierResponse posts a supplier statement. With post back
// disabled the payload is only logged.
func (c *KpmClient) PostSupplierResponse(kpmID, ticketID, status, text string) error {
	if !c.postBack {
		logger.GetLogger().Warnf(
			"POST BACK TO KPM disabled, supplier response for %s not sent: status=%s text=%q",
			kpmID, status, text)
		return nil
	}
	if err := c.api.AddSupplierResponse(kpmID, ticketID, status, text); err != nil {
		return err
	}
	logger.GetLogger().Infof("Added supplier response to KPM %s (status %s)", kpmID, status)
	return nil
}

// PostSupplierQuestion posts a question to the OEM. With post back
// disabled the payload is only logged.
func (c *KpmClient) PostSupplierQuestion(kpmID, question string) error {
	if !c.postBack {
		logger.GetLogger().Warnf(
			"POST BACK TO KPM disabled, supplier question for %s not sent: %q",
			kpmID, question)
		return nil
	}
	if err := c.api.AddSupplierQuestion(kpmID, question); err != nil {
		return err
	}
	logger.GetLogger().Infof("Added supplier question to KPM %s", kpmID)
	return nil
}

// HasNoAccess reports whether the configured user is locked out of the
// problem.
func (c *KpmClient) HasNoAccess(kpmID string) (bool, error) {
	return c.api.HasNoAccess(kpmID)
}
