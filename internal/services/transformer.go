package services

import (
	"strings"

	"github.com/itsmesamster/reduce-app/internal/clients"
	"github.com/itsmesamster/reduce-app/internal/models"
	"github.com/itsmesamster/reduce-app/pkg/logger"
)

// integrationLabels are the only source labels carried over on
// Integration tickets.
var integrationLabels = []string{
	"AR_Integration",
	"SSW_Integration",
	"Iot_Integration",
	"E3_Integration",
	"MOD_Integration",
}

// TransformerConfig carries the target side constants of the VW to ESR
// conversion.
type TransformerConfig struct {
	ProjectKey       string
	ParentEpic       string
	Origin           string
	AssigneeID       string
	DefaultCluster   string
	DefaultComponent string
}

// issueTypeMapper describes how one source issue type converts: fixed
// target values, plain field copies and computed property copies. Copy
// paths containing a slash keep only the addressed sub key and rewrap it,
// "priority/name" becomes {"name": value}.
type issueTypeMapper struct {
	hardcoded    map[string]any
	fromSource   map[string]string
	fromProperty map[string]string
}

// Transformer converts VW/Audi Jira tickets into ESR Jira create
// payloads.
type Transformer struct {
	esr      *clients.JiraClient
	clusters *ClusterMap
	cfg      TransformerConfig
	mappers  map[string]issueTypeMapper
}

func NewTransformer(esr *clients.JiraClient, clusters *ClusterMap, cfg TransformerConfig) *Transformer {
	if cfg.DefaultComponent == "" {
		cfg.DefaultComponent = "Unknown"
	}
	fields := models.NewEsrFieldMap()
	copies := map[string]string{
		"issuetype":   "issuetype/name",
		"summary":     "summary",
		"description": "description",
		"priority":    "priority/name",
	}
	properties := map[string]string{
		fields.Extra(models.FieldSourceURL): "ui_url",
	}
	return &Transformer{
		esr:      esr,
		clusters: clusters,
		cfg:      cfg,
		mappers: map[string]issueTypeMapper{
			"Task": {
				hardcoded: map[string]any{
					"project":                            map[string]any{"key": cfg.ProjectKey},
					"parent":                             map[string]any{"key": cfg.ParentEpic},
					fields.Extra(models.FieldOrigin):     map[string]any{"value": cfg.Origin},
					fields.Extra(models.FieldAudiDomain): []any{map[string]any{"value": "VD"}},
					"labels":                             []any{"Technical_Clearing"},
					"assignee":                           map[string]any{"accountId": cfg.AssigneeID},
				},
				fromSource:   copies,
				fromProperty: properties,
			},
			"Integration": {
				hardcoded: map[string]any{
					"project":                            map[string]any{"key": cfg.ProjectKey},
					fields.Extra(models.FieldOrigin):     map[string]any{"value": cfg.Origin},
					fields.Extra(models.FieldAudiDomain): []any{map[string]any{"value": "VD"}},
					"assignee":                           map[string]any{"accountId": cfg.AssigneeID},
				},
				fromSource:   copies,
				fromProperty: properties,
			},
		},
	}
}

// Supports reports whether the issue type has a conversion mapper.
func (t *Transformer) Supports(issueType string) bool {
	_, ok := t.mappers[issueType]
	return ok
}

// ToEsr builds the ESR draft for one VW ticket. Unknown issue types fail
// with UnsupportedIssueTypeError, the batch skips them.
func (t *Transformer) ToEsr(vw *models.VwTicket) (*models.EsrTicket, error) {
	log := logger.GetLogger()
	vwID := vw.Key()

	issueType := vw.IssueType()
	if issueType == "" {
		return nil, &UnsupportedIssueTypeError{Key: vwID, IssueType: "(none)"}
	}
	mapper, ok := t.mappers[issueType]
	if !ok {
		return nil, &UnsupportedIssueTypeError{Key: vwID, IssueType: issueType}
	}
	log.Infof("Converting VW Audi Jira %s to ESR Jira", vwID)

	draft := models.NewEsrDraft()
	for field, value := range mapper.hardcoded {
		draft.SetField(field, value)
	}
	for field, sourcePath := range mapper.fromSource {
		value := vw.GetField(sourcePath)
		if i := strings.LastIndex(sourcePath, "/"); i != -1 {
			value = map[string]any{sourcePath[i+1:]: value}
		}
		draft.SetField(field, value)
	}
	for field, property := range mapper.fromProperty {
		draft.SetField(field, vw.Property(property))
	}

	// the space keeps Jira from auto linking the source key
	draft.SetExternalReference(strings.Replace(vwID, "HCP5-", "HCP5- ", 1))

	components, err := t.componentsToSet(vw, issueType)
	if err != nil {
		return nil, err
	}
	if len(components) > 0 {
		draft.SetField(draft.Map.Components, wrapNamed(components))
	}

	fields := draft.Map
	switch issueType {
	case "Task":
		clusters := t.clusters.AudiClusters(vw.SoftwareVersions(), vw.Versions(), t.cfg.DefaultCluster)
		clusters, err = t.filterAllowed(fields.Extra(models.FieldAudiCluster), clusters, t.cfg.DefaultCluster, issueType)
		if err != nil {
			return nil, err
		}
		if len(clusters) > 0 {
			draft.SetField(fields.Extra(models.FieldAudiCluster), wrapValued(clusters))
		}

	case "Integration":
		fixVersions, err := t.filterAllowed(fields.FixVersions, vw.FixVersions(), "", issueType)
		if err != nil {
			return nil, err
		}
		if len(fixVersions) > 0 {
			draft.SetField(fields.FixVersions, wrapNamed(fixVersions))
		}

		clusters, err := t.filterAllowed(fields.Extra(models.FieldAudiCluster), vw.AudiCluster(), t.cfg.DefaultCluster, issueType)
		if err != nil {
			return nil, err
		}
		if len(clusters) > 0 {
			draft.SetField(fields.Extra(models.FieldAudiCluster), wrapValued(clusters))
		}

		vrs, err := t.filterAllowed(fields.Extra(models.FieldAudiVR), vw.AudiVR(), t.cfg.DefaultCluster, issueType)
		if err != nil {
			return nil, err
		}
		if len(vrs) > 0 {
			draft.SetField(fields.Extra(models.FieldAudiVR), wrapValued(vrs))
		}

		var labels []any
		for _, label := range vw.GetStrings("labels") {
			for _, keep := range integrationLabels {
				if label == keep {
					labels = append(labels, label)
				}
			}
		}
		if len(labels) > 0 {
			draft.SetField(fields.Labels, labels)
		}
	}

	log.Debugf("VW Audi Jira ticket %s is ready for ESR Jira", vwID)
	return draft, nil
}

// componentsToSet derives the target components: Tasks carry them in the
// title prefix, Integrations carry real components that translate by
// table.
func (t *Transformer) componentsToSet(vw *models.VwTicket, issueType string) ([]string, error) {
	var components []string
	switch issueType {
	case "Task":
		components = vw.ComponentsFromTitle()
	case "Integration":
		components = t.convertComponents(vw.GetStrings(vw.Map.Components + "/name"))
	default:
		return nil, nil
	}

	accepted, err := t.filterAllowed(vw.Map.Components, components, t.cfg.DefaultComponent, issueType)
	if err != nil {
		return nil, err
	}
	var dropped []string
	for _, component := range components {
		found := false
		for _, kept := range accepted {
			if component == kept {
				found = true
				break
			}
		}
		if !found {
			dropped = append(dropped, component)
		}
	}
	if len(dropped) > 0 {
		logger.GetLogger().Debugf("Components of %s not accepted: %v", vw.Key(), dropped)
	}
	return accepted, nil
}

// convertComponents translates VW component names to their ESR
// counterparts. Names without a table entry drop their "NF " prefix.
func (t *Transformer) convertComponents(vwComponents []string) []string {
	var converted []string
	for _, component := range vwComponents {
		switch component {
		case "NF ORU_Con":
			converted = append(converted, "Functional Safety", "Online Update", "ORU Control A")
		case "NF ZZI":
			converted = append(converted, "Diagnostics VD")
		case "NF ORUOM":
			converted = append(converted, "ORU OBD")
		case "NF GDC-BA":
			converted = append(converted, "SWC Platform")
		case "NF TM_BASE", "NF TM_OBD":
			converted = append(converted, "TM")
		default:
			converted = append(converted, strings.TrimPrefix(component, "NF "))
		}
	}
	if len(converted) == 0 {
		converted = []string{t.cfg.DefaultComponent}
	}
	return converted
}

// filterAllowed keeps only values the target field accepts. When nothing
// survives, the default wins if accepted, else the first allowed value.
// Fields without an options list accept anything.
func (t *Transformer) filterAllowed(fieldKey string, values []string, defaultValue, issueType string) ([]string, error) {
	allowed, err := t.esr.AllowedValues(fieldKey, issueType)
	if err != nil {
		return nil, err
	}
	if len(allowed) == 0 {
		return values, nil
	}

	allowedSet := make(map[string]bool, len(allowed))
	for _, value := range allowed {
		allowedSet[value] = true
	}

	var accepted []string
	for _, value := range values {
		if allowedSet[value] {
			accepted = append(accepted, value)
		}
	}
	if len(accepted) > 0 {
		return accepted, nil
	}
	if defaultValue == "" {
		return nil, nil
	}
	if allowedSet[defaultValue] {
		return []string{defaultValue}, nil
	}
	logger.GetLogger().Warnf(
		"No accepted values for %s and default %q not accepted, using %q",
		fieldKey, defaultValue, allowed[0])
	return []string{allowed[0]}, nil
}

func wrapNamed(values []string) []any {
	wrapped := make([]any, 0, len(values))
	for _, value := range values {
		wrapped = append(wrapped, map[string]any{"name": value})
	}
	return wrapped
}

func wrapValued(values []string) []any {
	wrapped := make([]any, 0, len(values))
	for _, value := range values {
		wrapped = append(wrapped, map[string]any{"value": value})
	}
	return wrapped
}
