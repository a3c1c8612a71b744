package models

import (
	"sort"
	"strings"
)

// VwTicket is the VW/Audi Jira view of a source record.
type VwTicket struct {
	*Ticket
}

func NewVwTicket(raw map[string]any, baseURL string) *VwTicket {
	return &VwTicket{Ticket: NewTicket(raw, NewVwFieldMap(), baseURL)}
}

func (t *VwTicket) Summary() string     { return t.GetString(t.Map.Summary) }
func (t *VwTicket) Description() string { return t.GetString(t.Map.Description) }
func (t *VwTicket) Status() string      { return t.GetString(t.Map.Status + "/name") }
func (t *VwTicket) IssueType() string   { return t.GetString(t.Map.IssueType + "/name") }

func (t *VwTicket) FixVersions() []string {
	list, ok := t.GetField(t.Map.FixVersions + "/name").([]any)
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

func (t *VwTicket) Attachments() []Attachment {
	return AttachmentsFromField(t.GetField(t.Map.Attachment))
}

func (t *VwTicket) QuestionToOEM() string {
	return t.GetString(t.Map.Extra(FieldQuestionToOEM))
}

// SplitFixVersion splits one fix version entry into its software build and
// release train, e.g. "0010 (VR28.1)" into software "0010", version "VR28".
func (t *VwTicket) SplitFixVersion(fixVersion string) (string, string) {
	parts := strings.Split(fixVersion, " (")
	if len(parts) != 2 {
		return "", ""
	}
	version := strings.Split(strings.ReplaceAll(parts[1], ")", ""), ".")[0]
	return parts[0], version
}

// SoftwareVersions returns the distinct software builds of all fix
// versions, sorted.
func (t *VwTicket) SoftwareVersions() []string {
	return t.fixVersionParts(true)
}

// Versions returns the distinct release trains of all fix versions, sorted.
func (t *VwTicket) Versions() []string {
	return t.fixVersionParts(false)
}

func (t *VwTicket) fixVersionParts(software bool) []string {
	seen := make(map[string]bool)
	var result []string
	for _, fixVersion := range t.FixVersions() {
		sw, version := t.SplitFixVersion(fixVersion)
		value := version
		if software {
			value = sw
		}
		if value != "" && !seen[value] {
			seen[value] = true
			result = append(result, value)
		}
	}
	sort.Strings(result)
	return result
}

// ComponentsFromTitle parses the bracketed component prefix of the title,
// e.g. "<HVK/HVLSF> Failed Integration Tests" yields HVK and HVLSF.
func (t *VwTicket) ComponentsFromTitle() []string {
	title := t.Summary()
	if title == "" {
		return nil
	}
	if !strings.Contains(title, "<") && !strings.Contains(title, ">") {
		return nil
	}
	prefix := strings.TrimLeft(strings.Split(title, ">")[0], "<")
	return strings.Split(prefix, "/")
}

// AudiClusterAndVR returns the raw combined cluster/release entries, e.g.
// "Cluster 4.3 VR21".
func (t *VwTicket) AudiClusterAndVR() []string {
	list, ok := t.GetField(t.Map.Extra(FieldAudiCluster) + "/value").([]any)
	if !ok {
		return nil
	}
	values := make([]string, 0, len(list))
	for _, element := range list {
		if s, ok := element.(string); ok {
			values = append(values, s)
		}
	}
	return values
}

// AudiCluster extracts the cluster names from the combined entries.
func (t *VwTicket) AudiCluster() []string {
	var clusters []string
	for _, entry := range t.AudiClusterAndVR() {
		parts := strings.Split(entry, " ")
		if len(parts) >= 2 && parts[0] == "Cluster" {
			clusters = append(clusters, strings.Join(parts[:2], " "))
		}
	}
	return clusters
}

// AudiVR extracts the release trains from the combined entries.
func (t *VwTicket) AudiVR() []string {
	seen := make(map[string]bool)
	var vrs []string
	for _, entry := range t.AudiClusterAndVR() {
		parts := strings.Split(entry, " ")
		if len(parts) < 3 || parts[0] != "Cluster" {
			continue
		}
		for _, part := range parts[2:] {
			if strings.HasPrefix(part, "VR") && !seen[part] {
				seen[part] = true
				vrs = append(vrs, part)
			}
		}
	}
	return vrs
}

// Property resolves a computed property by name for the transformer's
// property copy pass.
func (t *VwTicket) Property(name string) string {
	switch name {
	case "ui_url":
		return t.UIURL()
	case "jira_id":
		return t.Key()
	default:
		return ""
	}
}
