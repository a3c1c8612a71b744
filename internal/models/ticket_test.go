package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func esrRaw(fields map[string]any) map[string]any {
	return map[string]any{"key": "AHCP5-42", "fields": fields}
}

func TestGetFieldPaths(t *testing.T) {
	ticket := NewTicket(esrRaw(map[string]any{
		"summary": "a summary",
		"status":  map[string]any{"name": "Open"},
		"components": []any{
			map[string]any{"name": "TM"},
			map[string]any{"name": "Online Update"},
		},
	}), NewEsrFieldMap(), "https://esrlabs.atlassian.net")

	assert.Equal(t, "a summary", ticket.GetString("summary"))
	assert.Equal(t, "Open", ticket.GetString("status/name"))
	assert.Equal(t, []any{"TM", "Online Update"}, ticket.GetField("components/name"))
	assert.Nil(t, ticket.GetField("missing"))
	assert.Equal(t, "", ticket.GetString("missing"))
}

func TestGetFieldListProjectionFillsBlanks(t *testing.T) {
	ticket := NewTicket(esrRaw(map[string]any{
		"components": []any{
			map[string]any{"name": "TM"},
			map[string]any{"id": "1"},
		},
	}), NewEsrFieldMap(), "")
	assert.Equal(t, []any{"TM", ""}, ticket.GetField("components/name"))
}

func TestPendingUpdatesShadowReads(t *testing.T) {
	ticket := NewTicket(esrRaw(map[string]any{"summary": "old"}), NewEsrFieldMap(), "")
	ticket.SetField("summary", "new")
	assert.Equal(t, "new", ticket.GetString("summary"))
	assert.Equal(t, map[string]any{"summary": "new"}, ticket.PendingUpdates())

	ticket.ClearUpdates()
	assert.Equal(t, "old", ticket.GetString("summary"))
}

func TestUpdatedFieldsDiff(t *testing.T) {
	ticket := NewTicket(esrRaw(map[string]any{}), NewEsrFieldMap(), "")
	ticket.SetField("summary", "same")
	ticket.SetField("description", "changed")

	current := NewTicket(esrRaw(map[string]any{
		"summary":     "same",
		"description": "different on server",
	}), NewEsrFieldMap(), "")

	changed := ticket.UpdatedFields(current)
	assert.Equal(t, map[string]any{"description": "changed"}, changed)
}

func TestUIURL(t *testing.T) {
	ticket := NewTicket(esrRaw(nil), NewEsrFieldMap(), "https://esrlabs.atlassian.net/")
	assert.Equal(t, "https://esrlabs.atlassian.net/browse/AHCP5-42", ticket.UIURL())

	noBase := NewTicket(esrRaw(nil), NewEsrFieldMap(), "")
	assert.Equal(t, "", noBase.UIURL())
}

func TestEsrTicketExternalReferences(t *testing.T) {
	fields := NewEsrFieldMap()
	ticket := NewEsrTicket(esrRaw(map[string]any{
		fields.Extra(FieldExternalReference): "HCP5- 1234",
	}), "")
	assert.Equal(t, "HCP5-1234", ticket.VwID())

	kpm := NewEsrTicket(esrRaw(map[string]any{
		fields.Extra(FieldExternalReference): " 4520410 ",
	}), "")
	assert.Equal(t, "4520410", kpm.KpmID())
}

func TestLastAnswerFromOEM(t *testing.T) {
	fields := NewEsrFieldMap()

	single := NewEsrTicket(esrRaw(map[string]any{
		fields.Extra(FieldAnswerFromOEM): "only entry",
	}), "")
	assert.Equal(t, "only entry", single.LastAnswerFromOEM())

	stacked := NewEsrTicket(esrRaw(map[string]any{
		fields.Extra(FieldAnswerFromOEM): " \U0001F4C6 \t old" + AnswerSeparator + "2024/03/01: newest",
	}), "")
	assert.Equal(t, " \U0001F4C6 \t 2024/03/01: newest", stacked.LastAnswerFromOEM())

	empty := NewEsrTicket(esrRaw(map[string]any{}), "")
	assert.Equal(t, "", empty.LastAnswerFromOEM())
}

func TestCauseOfReject(t *testing.T) {
	fields := NewEsrFieldMap()
	ticket := NewEsrTicket(esrRaw(map[string]any{
		fields.Extra(FieldCauseOfReject): map[string]any{"value": "Not Reproducible"},
	}), "")
	assert.Equal(t, "Not Reproducible", ticket.CauseOfReject())

	plain := NewEsrTicket(esrRaw(map[string]any{}), "")
	assert.Equal(t, "", plain.CauseOfReject())
}

func TestVwTicketFixVersionParsing(t *testing.T) {
	ticket := NewVwTicket(map[string]any{
		"key": "HCP5-9",
		"fields": map[string]any{
			"fixVersions": []any{
				map[string]any{"name": "0010 (VR28.1)"},
				map[string]any{"name": "0011 (VR28.2)"},
				map[string]any{"name": "0020 (VR30)"},
			},
		},
	}, "")

	assert.Equal(t, []string{"0010", "0011", "0020"}, ticket.SoftwareVersions())
	assert.Equal(t, []string{"VR28", "VR30"}, ticket.Versions())

	software, version := ticket.SplitFixVersion("0010 (VR28.1)")
	assert.Equal(t, "0010", software)
	assert.Equal(t, "VR28", version)

	software, version = ticket.SplitFixVersion("garbage")
	assert.Equal(t, "", software)
	assert.Equal(t, "", version)
}

func TestVwTicketComponentsFromTitle(t *testing.T) {
	titled := NewVwTicket(map[string]any{
		"key":    "HCP5-9",
		"fields": map[string]any{"summary": "<HVK/HVLSF> Failed Integration Tests"},
	}, "")
	assert.Equal(t, []string{"HVK", "HVLSF"}, titled.ComponentsFromTitle())

	plain := NewVwTicket(map[string]any{
		"key":    "HCP5-9",
		"fields": map[string]any{"summary": "No prefix here"},
	}, "")
	assert.Nil(t, plain.ComponentsFromTitle())
}

func TestVwTicketAudiClusterAndVR(t *testing.T) {
	fields := NewVwFieldMap()
	ticket := NewVwTicket(map[string]any{
		"key": "HCP5-9",
		"fields": map[string]any{
			fields.Extra(FieldAudiCluster): []any{
				map[string]any{"value": "Cluster 4.3 VR21 VR22"},
				map[string]any{"value": "Cluster 4.4 VR30"},
				map[string]any{"value": "Unrelated"},
			},
		},
	}, "")

	assert.Equal(t, []string{"Cluster 4.3", "Cluster 4.4"}, ticket.AudiCluster())
	assert.Equal(t, []string{"VR21", "VR22", "VR30"}, ticket.AudiVR())
}

func TestKpmProblemAccessors(t *testing.T) {
	problem := NewKpmProblem(map[string]any{
		"DevelopmentProblem": map[string]any{
			"ProblemNumber":  "4520410",
			"ProblemStatus":  "2",
			"SupplierStatus": "1",
			"Supplier": map[string]any{
				"Contractor": map[string]any{
					"PersonalContractor": map[string]any{"UserId": "EXTESR1"},
					"Address": map[string]any{
						"Plant":              "FF",
						"OrganisationalUnit": "HCP5BS-ESR",
					},
				},
			},
			"ForemostTestPart": map[string]any{
				"Software": "0010",
				"Hardware": "H30",
				"PartNumber": map[string]any{
					"PreNumber":   "5WK",
					"MiddleGroup": "501",
					"EndNumber":   "23",
				},
			},
		},
	})

	assert.Equal(t, "4520410", problem.ProblemNumber())
	assert.Equal(t, "2", problem.ProblemStatus())
	assert.Equal(t, "1", problem.SupplierStatus())
	assert.Equal(t, "EXTESR1", problem.SupplierUserID())
	assert.Equal(t, "0010", problem.Software())
	assert.Equal(t, "H30", problem.Hardware())
	assert.Equal(t, "5WK50123", problem.PartNumberString())

	plant, orgUnit := problem.SupplierPlantAndOrgUnit()
	require.Equal(t, "FF", plant)
	assert.Equal(t, "HCP5BS-ESR", orgUnit)
}

func TestCommentsFromPayload(t *testing.T) {
	payload := []map[string]any{
		{
			"id":      "1001",
			"body":    "first",
			"created": "2024-02-19T10:00:00.000+0100",
			"author": map[string]any{
				"displayName":  "Jane Doe",
				"name":         "jd01abc",
				"emailAddress": "jane@example.com",
			},
		},
		{
			"id":   "1002",
			"body": "edited",
			"author": map[string]any{
				"displayName": "Jane Doe",
				"name":        "jd01abc",
			},
			"updateAuthor": map[string]any{
				"name":         "xy99zzz",
				"emailAddress": "editor@example.com",
			},
		},
	}

	comments := CommentsFromPayload(payload)
	require.Len(t, comments, 2)
	assert.Equal(t, "jd01abc", comments[0].AuthorLogin)
	assert.Equal(t, "jane@example.com", comments[0].AuthorEmail)
	// edits reassign the comment to the update author
	assert.Equal(t, "xy99zzz", comments[1].AuthorLogin)
	assert.Equal(t, "editor@example.com", comments[1].AuthorEmail)

	assert.Nil(t, CommentsFromPayload("not a list"))
}

func TestAttachmentsFromField(t *testing.T) {
	attachments := AttachmentsFromField([]any{
		map[string]any{
			"id":       "900",
			"filename": "trace.log",
			"size":     float64(2048),
			"created":  "2024-01-23T11:10:05.000+0100",
		},
	})
	require.Len(t, attachments, 1)
	assert.Equal(t, "trace.log", attachments[0].Filename)
	assert.Equal(t, int64(2048), attachments[0].Size)
}
