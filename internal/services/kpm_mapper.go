package services

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/itsmesamster/reduce-app/internal/clients"
	"github.com/itsmesamster/reduce-app/internal/models"
	"github.com/itsmesamster/reduce-app/pkg/logger"
)

// clusterPlaceholder marks the map entry resolved through the cluster map
// instead of a KPM field.
const clusterPlaceholder = "##cluster_mapping_based_on_software_version##"

// kpmSummaryPrefix tags tickets created from KPM in the target summary.
const kpmSummaryPrefix = "[K][ESR]"

// fieldMapDoc is the on-disk shape of the KPM to Jira field map. Values
// in jira_issue are either fixed JSON values set verbatim, a KPM field
// name with a "?" suffix, or the cluster placeholder.
type fieldMapDoc struct {
	JiraIssue       map[string]any    `json:"jira_issue"`
	Priority        map[string]string `json:"priority"`
	Reproducibility map[string]string `json:"reproducibility"`
}

// KpmMapper converts KPM development problems into ESR Jira create
// payloads, driven by the JSON field map document.
type KpmMapper struct {
	jira      *clients.JiraClient
	clusters  *ClusterMap
	doc       fieldMapDoc
	accountID string
}

func NewKpmMapper(jira *clients.JiraClient, clusters *ClusterMap, path, accountID string) (*KpmMapper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load field map %s: %w", path, err)
	}
	return NewKpmMapperFromBytes(jira, clusters, data, accountID)
}

func NewKpmMapperFromBytes(jira *clients.JiraClient, clusters *ClusterMap, data []byte, accountID string) (*KpmMapper, error) {
	var doc fieldMapDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse field map: %w", err)
	}
	if len(doc.JiraIssue) == 0 {
		return nil, fmt.Errorf("field map has no jira_issue section")
	}
	return &KpmMapper{
		jira:      jira,
		clusters:  clusters,
		doc:       doc,
		accountID: accountID,
	}, nil
}

// ToJira builds the ESR draft for one KPM problem.
func (m *KpmMapper) ToJira(problem *models.KpmProblem) (*models.EsrTicket, error) {
	log := logger.GetLogger()
	kpmID := problem.ProblemNumber()
	log.Infof("Converting KPM %s to Jira", kpmID)

	draft := models.NewEsrDraft()
	for field, mapping := range m.doc.JiraIssue {
		source, isString := mapping.(string)
		switch {
		case isString && source == clusterPlaceholder:
			draft.SetField(field, m.clusterValues(problem.Software()))
		case isString && strings.HasSuffix(source, "?"):
			if err := m.setFromProblem(draft, field, strings.TrimSuffix(source, "?"), problem); err != nil {
				return nil, err
			}
		default:
			draft.SetField(field, mapping)
		}
	}

	log.Debugf("KPM ticket %s is ready for Jira", kpmID)
	return draft, nil
}

// clusterValues resolves the software build to its clusters. The field is
// mandatory in the target schema, an unmapped build falls back to "-".
func (m *KpmMapper) clusterValues(software string) []any {
	clusters := m.clusters.Clusters(software, "")
	if len(clusters) == 0 {
		logger.GetLogger().Errorf("Cluster not found for software version %q", software)
		return []any{map[string]any{"value": "-"}}
	}
	values := make([]any, 0, len(clusters))
	for _, cluster := range clusters {
		values = append(values, map[string]any{"value": cluster})
	}
	return values
}

func (m *KpmMapper) setFromProblem(draft *models.EsrTicket, field, source string, problem *models.KpmProblem) error {
	log := logger.GetLogger()
	switch source {
	case "ShortText":
		draft.SetField(field, kpmSummaryPrefix+problem.ShortText())
	case "Description":
		draft.SetField(field, problem.Description())
	case "ProblemNumber":
		draft.SetField(field, problem.ProblemNumber())
	case "Exclaimer":
		draft.SetField(field, problem.Exclaimer())
	case "Rating":
		name := m.doc.Priority[problem.Rating()]
		draft.SetField(field, map[string]any{"name": name})
	case "Function":
		draft.SetField(field, []any{map[string]any{"name": "Unknown"}})
	case "Software":
		versions, err := m.jira.AvailableVersions()
		if err != nil {
			return err
		}
		software := problem.Software()
		if software != "" && contains(versions, software) {
			draft.SetField(field, []any{map[string]any{"name": software}})
			return nil
		}
		// mandatory field, "-" is the agreed placeholder version
		if !contains(versions, "-") {
			log.Errorf("Version %q not found in the release versions of the target project", "-")
		}
		draft.SetField(field, []any{map[string]any{"name": "-"}})
	case "Hardware":
		hardware := problem.Hardware()
		if hardware == "" {
			hardware = "-"
		}
		draft.SetField(field, hardware)
	case "Reproducibility":
		reproducibility, ok := m.doc.Reproducibility[problem.Repeatable()]
		if !ok {
			reproducibility = "03 - Frequent"
		}
		draft.SetField(field, map[string]any{"value": reproducibility})
	case "VerbundRelease":
		value, err := m.verbundRelease(problem)
		if err != nil {
			return err
		}
		draft.SetField(field, value)
	case "PartNumber":
		draft.SetField(field, problem.PartNumberString())
	case "AccountID":
		draft.SetField(field, map[string]any{"accountId": m.accountID})
	default:
		log.Warnf("Field map entry %q has unknown source %q", field, source)
	}
	return nil
}

// verbundRelease maps the KPM release triple to the Audi VR select field.
// A missing triple means the record predates release tracking, VR000 by
// convention; an unlisted VR degrades to "-".
func (m *KpmMapper) verbundRelease(problem *models.KpmProblem) ([]any, error) {
	release := problem.VerbundRelease()
	if release == nil {
		return []any{map[string]any{"value": "VR000"}}, nil
	}
	major, _ := release["Major"].(string)

	vr := ""
	if major != "" && major != "00" {
		vr = "VR" + major
	}
	fields := models.NewEsrFieldMap()
	available, err := m.jira.AllowedValues(fields.Extra(models.FieldAudiVR), "")
	if err != nil {
		return nil, err
	}
	if vr != "" && !contains(available, vr) {
		logger.GetLogger().Errorf(
			"KPM %s VerbundRelease %s not in the allowed Audi VR values",
			problem.ProblemNumber(), vr)
		vr = "-"
	}
	if vr == "" {
		vr = "-"
	}
	return []any{map[string]any{"value": vr}}, nil
}

func contains(values []string, wanted string) bool {
	for _, value := range values {
		if value == wanted {
			return true
		}
	}
	return false
}
