package models

import "strings"

// AnswerSeparator joins stacked OEM process step entries inside one
// text custom field, newest entry last.
const AnswerSeparator = "\n\n \U0001F4C6 \t "

// EsrTicket is the ESR Labs Jira view of a synchronized record.
type EsrTicket struct {
	*Ticket
}

func NewEsrTicket(raw map[string]any, baseURL string) *EsrTicket {
	return &EsrTicket{Ticket: NewTicket(raw, NewEsrFieldMap(), baseURL)}
}

// NewEsrDraft builds an empty ticket to be filled by a transformer and
// sent as a create payload.
func NewEsrDraft() *EsrTicket {
	return NewEsrTicket(map[string]any{"fields": map[string]any{}}, "")
}

func (t *EsrTicket) Summary() string     { return t.GetString(t.Map.Summary) }
func (t *EsrTicket) Description() string { return t.GetString(t.Map.Description) }
func (t *EsrTicket) Status() string      { return t.GetString(t.Map.Status + "/name") }
func (t *EsrTicket) IssueType() string   { return t.GetString(t.Map.IssueType + "/name") }
func (t *EsrTicket) Labels() []string    { return t.GetStrings(t.Map.Labels) }

func (t *EsrTicket) Components() []string {
	list, ok := t.GetField(t.Map.Components + "/name").([]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(list))
	for _, element := range list {
		if s, ok := element.(string); ok {
			names = append(names, s)
		}
	}
	return names
}

func (t *EsrTicket) Attachments() []Attachment {
	return AttachmentsFromField(t.GetField(t.Map.Attachment))
}

// ExternalReference holds the linked record's identity in the other
// system. It is the only correlation key between the trackers.
func (t *EsrTicket) ExternalReference() string {
	return t.GetString(t.Map.Extra(FieldExternalReference))
}

func (t *EsrTicket) SetExternalReference(ref string) {
	t.SetField(t.Map.Extra(FieldExternalReference), ref)
}

// KpmID is the external reference when the linked system is KPM.
func (t *EsrTicket) KpmID() string {
	return strings.TrimSpace(t.ExternalReference())
}

// VwID is the external reference when the linked system is the VW Jira.
// The stored reference carries a space after the project prefix to defeat
// auto linking, the real key has none.
func (t *EsrTicket) VwID() string {
	return strings.ReplaceAll(t.ExternalReference(), " ", "")
}

func (t *EsrTicket) QuestionToOEM() string {
	return t.GetString(t.Map.Extra(FieldQuestionToOEM))
}

func (t *EsrTicket) SetQuestionToOEM(value string) {
	t.SetField(t.Map.Extra(FieldQuestionToOEM), value)
}

func (t *EsrTicket) AnswerFromOEM() string {
	return t.GetString(t.Map.Extra(FieldAnswerFromOEM))
}

func (t *EsrTicket) SetAnswerFromOEM(value string) {
	t.SetField(t.Map.Extra(FieldAnswerFromOEM), value)
}

// LastAnswerFromOEM returns the newest stacked answer entry.
func (t *EsrTicket) LastAnswerFromOEM() string {
	answer := t.AnswerFromOEM()
	if answer == "" {
		return ""
	}
	all := strings.Split(answer, AnswerSeparator)
	if len(all) <= 1 {
		return answer
	}
	return " \U0001F4C6 \t " + all[len(all)-1]
}

func (t *EsrTicket) FeedbackToOEM() string {
	return t.GetString(t.Map.Extra(FieldFeedbackToOEM))
}

func (t *EsrTicket) SetFeedbackToOEM(value string) {
	t.SetField(t.Map.Extra(FieldFeedbackToOEM), value)
}

func (t *EsrTicket) FeedbackFromOEM() string {
	return t.GetString(t.Map.Extra(FieldFeedbackFromOEM))
}

func (t *EsrTicket) SetFeedbackFromOEM(value string) {
	t.SetField(t.Map.Extra(FieldFeedbackFromOEM), value)
}

// CauseOfReject is a select field, the value sits one level down.
func (t *EsrTicket) CauseOfReject() string {
	if m, ok := t.GetField(t.Map.Extra(FieldCauseOfReject)).(map[string]any); ok {
		return stringAt(m, "value")
	}
	return ""
}
