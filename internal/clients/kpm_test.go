package clients

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessStepForJiraUI(t *testing.T) {
	step := &ProcessStep{
		LastChangeDate: "2024-02-19.11:10:05",
		StepTypeDesc:   StepSupplierResponse,
		Text:           "<b>analysis</b> ongoing",
	}
	assert.Equal(t,
		" \U0001F4C6 \t 2024/02/19\n         \U0001F4DD \t analysis ongoing\n\n",
		step.ForJiraUI())

	step = &ProcessStep{
		LastChangeDate: "2024-02-19.11:10:05",
		StepTypeDesc:   StepAnswer,
		LastChanger:    KpmUser{Email: "someone@audi.de", UserName: "Someone"},
		Text:           "please retest",
	}
	assert.Equal(t,
		" \U0001F4C6 \t 2024/02/19 \t\t | \t\t \U0001F4EE someone@audi.de\n         \U0001F4DD \t please retest\n\n",
		step.ForJiraUI())

	// without an email the user name identifies the author
	step.LastChanger = KpmUser{UserName: "Someone"}
	assert.Contains(t, step.ForJiraUI(), "\U0001F4EE Someone")

	step = &ProcessStep{
		LastChangeDate: "2024-02-19.11:10:05",
		StepTypeDesc:   StepSupplierQuestion,
	}
	rendered := step.ForJiraUI()
	assert.Contains(t, rendered, `[issue-sync] No text found in this "Rückfrage"`)
	assert.NotContains(t, rendered, "\U0001F4EE")
}

func TestDocumentRefFullName(t *testing.T) {
	assert.Equal(t, "report.pdf", DocumentRef{Name: "report", Suffix: "pdf"}.FullName())
	assert.Equal(t, "README", DocumentRef{Name: "README"}.FullName())
}

func TestSinceTimestamp(t *testing.T) {
	// 2024-02-21 is a Wednesday
	wednesday := time.Date(2024, 2, 21, 12, 30, 17, 0, time.UTC)
	assert.Equal(t, "2024-02-20 00:30:17.0", SinceTimestamp(wednesday, 36, 84))

	// Monday runs widen the window over the weekend
	monday := time.Date(2024, 2, 19, 12, 30, 17, 0, time.UTC)
	assert.Equal(t, "2024-02-16 00:30:17.0", SinceTimestamp(monday, 36, 84))
	assert.Equal(t, "2024-02-18 00:30:17.0", SinceTimestamp(monday, 36, 24))
}

func TestParseSoapBody(t *testing.T) {
	payload := []byte(`<?xml version="1.0"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
  <soapenv:Body>
    <v3:GetProcessStepListResponse xmlns:v3="urn:test">
      <GetProcessStepListResponse>
        <ProcessStepItem>
          <ProblemNumber>4520410</ProblemNumber>
          <ProcessStepId>1</ProcessStepId>
        </ProcessStepItem>
        <ProcessStepItem>
          <ProblemNumber>4520410</ProblemNumber>
          <ProcessStepId>2</ProcessStepId>
        </ProcessStepItem>
        <ResponseMessage>
          <MessageText>Method completed successfully</MessageText>
        </ResponseMessage>
      </GetProcessStepListResponse>
    </v3:GetProcessStepListResponse>
  </soapenv:Body>
</soapenv:Envelope>`)

	body, err := parseSoapBody(payload)
	require.NoError(t, err)

	// namespaces drop, repeated siblings collect into a list
	items := digList(body, "GetProcessStepListResponse", "GetProcessStepListResponse", "ProcessStepItem")
	require.Len(t, items, 2)
	assert.Equal(t, "1", digString(items[0], "ProcessStepId"))
	assert.Equal(t, "2", digString(items[1], "ProcessStepId"))

	assert.Equal(t, "Method completed successfully", responseMessage(body))
	require.NoError(t, validateKpmBody(body, "GetProcessStepList"))
}

func TestParseSoapBodyRejectsBodyless(t *testing.T) {
	_, err := parseSoapBody([]byte("<Envelope><Header/></Envelope>"))
	assert.Error(t, err)
	_, err = parseSoapBody([]byte("not xml at all"))
	assert.Error(t, err)
}

func TestValidateKpmBodyFailure(t *testing.T) {
	body := map[string]any{
		"Response": map[string]any{
			"ResponseMessage": map[string]any{"MessageText": "Problem not found"},
		},
	}
	err := validateKpmBody(body, "GetDevelopmentProblemData")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Problem not found")

	err = validateKpmBody(map[string]any{}, "GetDevelopmentProblemData")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no response message found")
}

// fakeKpmAPI is an in-memory KpmAPI for client policy tests.
type fakeKpmAPI struct {
	steps     []ProcessStepItem
	details   map[string]*ProcessStep
	stepCalls int
	responses []string
	questions []string
}

var _ KpmAPI = (*fakeKpmAPI)(nil)

func (f *fakeKpmAPI) Problem(kpmID string) (map[string]any, error)      { return nil, nil }
func (f *fakeKpmAPI) ChangedProblems(since string) ([]ProblemRef, error) { return nil, nil }
func (f *fakeKpmAPI) DocumentList(kpmID string) ([]DocumentRef, error)  { return nil, nil }
func (f *fakeKpmAPI) Document(kpmID, documentID string) ([]byte, error) { return nil, nil }
func (f *fakeKpmAPI) HasNoAccess(kpmID string) (bool, error)            { return false, nil }

func (f *fakeKpmAPI) ProcessStepList(kpmID string) ([]ProcessStepItem, error) {
	return f.steps, nil
}

func (f *fakeKpmAPI) ProcessStep(kpmID, stepID string) (*ProcessStep, error) {
	f.stepCalls++
	step, ok := f.details[stepID]
	if !ok {
		return nil, fmt.Errorf("step %s not found", stepID)
	}
	return step, nil
}

func (f *fakeKpmAPI) AddSupplierResponse(kpmID, ticketID, status, text string) error {
	f.responses = append(f.responses, text)
	return nil
}

func (f *fakeKpmAPI) AddSupplierQuestion(kpmID, question string) error {
	f.questions = append(f.questions, question)
	return nil
}

func TestLastSupplierResponsePicksNewest(t *testing.T) {
	api := &fakeKpmAPI{
		// the list arrives newest first
		steps: []ProcessStepItem{
			{ProblemNumber: "4520410", StepID: "3", StepTypeDesc: StepAnswer},
			{ProblemNumber: "4520410", StepID: "2", StepTypeDesc: StepSupplierResponse},
			{ProblemNumber: "4520410", StepID: "1", StepTypeDesc: StepSupplierResponse},
		},
		details: map[string]*ProcessStep{
			"2": {StepID: "2", Text: "newer"},
		},
	}
	client := NewKpmClient(api, true)

	step, err := client.LastSupplierResponse("4520410")
	require.NoError(t, err)
	require.NotNil(t, step)
	assert.Equal(t, "newer", step.Text)

	responses, err := client.StepsOfType("4520410", StepSupplierResponse)
	require.NoError(t, err)
	assert.Len(t, responses, 2)

	missing, err := client.LastSupplierQuestion("4520410")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStepCaching(t *testing.T) {
	api := &fakeKpmAPI{details: map[string]*ProcessStep{"1": {StepID: "1"}}}
	client := NewKpmClient(api, true)

	for i := 0; i < 3; i++ {
		_, err := client.Step("4520410", "1")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, api.stepCalls)
}

func TestPostBackDisabledKeepsWritesLocal(t *testing.T) {
	api := &fakeKpmAPI{}
	client := NewKpmClient(api, false)

	require.NoError(t, client.PostSupplierResponse("4520410", "AHCP5-100", "1", "done"))
	require.NoError(t, client.PostSupplierQuestion("4520410", "why"))
	assert.Empty(t, api.responses)
	assert.Empty(t, api.questions)
	assert.False(t, client.PostBackEnabled())

	enabled := NewKpmClient(api, true)
	require.NoError(t, enabled.PostSupplierResponse("4520410", "AHCP5-100", "1", "done"))
	assert.Equal(t, []string{"done"}, api.responses)
}
