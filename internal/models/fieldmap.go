package models

// Named extra fields shared across the sync services. The internal custom
// field keys differ per Jira instance, the names are the common vocabulary.
const (
	FieldExternalReference = "external_reference"
	FieldOrigin            = "origin"
	FieldAudiCluster       = "audi_cluster"
	FieldAudiVR            = "audi_vr"
	FieldTeams             = "teams"
	FieldAudiDomain        = "audi_domain"
	FieldSourceURL         = "source_url"
	FieldFeedbackToOEM     = "feedback_to_oem"
	FieldFeedbackFromOEM   = "feedback_from_oem"
	FieldQuestionToOEM     = "question_to_oem"
	FieldAnswerFromOEM     = "answer_from_oem"
	FieldCauseOfReject     = "cause_of_reject"
)

// FieldMap translates UI facing field names into one system's internal
// field keys. Base fields cover what every tracker exposes, Extras hold the
// system specific custom fields. Instances are values and never shared
// between two systems.
type FieldMap struct {
	TicketID    string
	Summary     string
	Description string
	Project     string
	IssueType   string
	Status      string
	Priority    string
	Labels      string
	Components  string
	FixVersions string
	Assignee    string
	Reporter    string
	Attachment  string
	Created     string
	Updated     string

	Extras map[string]string
}

// Extra resolves a named custom field to the system's internal key,
// "" when the system has no such field.
func (m FieldMap) Extra(name string) string {
	return m.Extras[name]
}

// NewEsrFieldMap maps the ESR Labs Jira instance.
func NewEsrFieldMap() FieldMap {
	return FieldMap{
		TicketID:    "key",
		Summary:     "summary",
		Description: "description",
		Project:     "project",
		IssueType:   "issuetype",
		Status:      "status",
		Priority:    "priority",
		Labels:      "labels",
		Components:  "components",
		FixVersions: "fixVersions",
		Assignee:    "assignee",
		Reporter:    "reporter",
		Attachment:  "attachment",
		Created:     "created",
		Updated:     "updated",
		Extras: map[string]string{
			FieldExternalReference: "customfield_10503",
			FieldSourceURL:         "customfield_10902",
			FieldAudiCluster:       "customfield_12600",
			FieldAudiDomain:        "customfield_12613",
			FieldOrigin:            "customfield_12640",
			FieldCauseOfReject:     "customfield_12713",
			FieldTeams:             "customfield_12733",
			FieldAudiVR:            "customfield_12740",
			FieldFeedbackFromOEM:   "customfield_12742",
			FieldFeedbackToOEM:     "customfield_12743",
			FieldQuestionToOEM:     "customfield_12759",
			FieldAnswerFromOEM:     "customfield_12760",
		},
	}
}

// NewVwFieldMap maps the VW/Audi Jira instance.
func NewVwFieldMap() FieldMap {
	return FieldMap{
		TicketID:    "key",
		Summary:     "summary",
		Description: "description",
		Project:     "project",
		IssueType:   "issuetype",
		Status:      "status",
		Priority:    "priority",
		Labels:      "labels",
		Components:  "components",
		FixVersions: "fixVersions",
		Assignee:    "assignee",
		Reporter:    "reporter",
		Attachment:  "attachment",
		Created:     "created",
		Updated:     "updated",
		Extras: map[string]string{
			FieldAudiCluster:   "customfield_48514",
			FieldQuestionToOEM: "customfield_48515",
		},
	}
}
