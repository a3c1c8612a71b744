package models

import (
	"fmt"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// Ticket wraps one decoded tracker record. The raw payload stays as the
// nested tree the transport decoded; fields are addressed by slash
// separated paths against the "fields" subtree.
type Ticket struct {
	Raw     map[string]any
	Map     FieldMap
	BaseURL string

	fields  map[string]any
	updates map[string]any
}

func NewTicket(raw map[string]any, fieldMap FieldMap, baseURL string) *Ticket {
	return &Ticket{
		Raw:     raw,
		Map:     fieldMap,
		BaseURL: baseURL,
		updates: make(map[string]any),
	}
}

// Fields returns the field subtree. Records without a "fields" wrapper
// (KPM problem data) are treated as the tree itself.
func (t *Ticket) Fields() map[string]any {
	if t.fields != nil {
		return t.fields
	}
	if sub, ok := t.Raw["fields"].(map[string]any); ok {
		t.fields = sub
	} else {
		t.fields = t.Raw
	}
	return t.fields
}

// Key returns the immutable record identity assigned by the owning system.
func (t *Ticket) Key() string {
	if key, ok := t.Raw["key"].(string); ok {
		return key
	}
	return ""
}

// GetField resolves a slash separated path against the field tree.
// A scalar hit truncates the remaining path. A list pops exactly one
// segment and projects it onto every element; an element missing the
// sub key contributes "" instead of failing. Deeper list nesting is not
// resolved further, the partially projected list is returned as is.
func (t *Ticket) GetField(path string) any {
	if v, ok := t.updates[path]; ok {
		return v
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	var node any = t.Fields()

	for _, segment := range segments {
		switch current := node.(type) {
		case map[string]any:
			value, ok := current[segment]
			if !ok {
				return nil
			}
			node = value
		case []any:
			return projectSubKey(current, segment)
		default:
			return current
		}
	}
	return node
}

func projectSubKey(list []any, key string) []any {
	projected := make([]any, 0, len(list))
	for _, element := range list {
		if m, ok := element.(map[string]any); ok {
			if value, ok := m[key]; ok {
				projected = append(projected, value)
			} else {
				projected = append(projected, "")
			}
		} else {
			projected = append(projected, element)
		}
	}
	return projected
}

// GetString returns the field as a string, "" when absent.
func (t *Ticket) GetString(path string) string {
	value := t.GetField(path)
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// GetStrings returns the field as a string slice, skipping non strings.
func (t *Ticket) GetStrings(path string) []string {
	list, ok := t.GetField(path).([]any)
	if !ok {
		return nil
	}
	result := make([]string, 0, len(list))
	for _, element := range list {
		if s, ok := element.(string); ok {
			result = append(result, s)
		}
	}
	return result
}

// SetField stages a local write. Writes are flat at the update root no
// matter how deep the read path for the same field goes; nested writes
// pass the nested value as a map. Nothing reaches the server until the
// staged updates are diffed and flushed.
func (t *Ticket) SetField(name string, value any) {
	t.updates[name] = value
}

// PendingUpdates exposes the staged writes.
func (t *Ticket) PendingUpdates() map[string]any {
	return t.updates
}

// UpdatedFields diffs the staged writes against a freshly fetched copy of
// the same record and keeps only the fields that actually changed on the
// server side view. The diff runs against live state, not the state at
// fetch time.
func (t *Ticket) UpdatedFields(current *Ticket) map[string]any {
	changed := make(map[string]any)
	for name, value := range t.updates {
		if current == nil || !reflect.DeepEqual(current.GetField(name), value) {
			changed[name] = value
		}
	}
	return changed
}

// ClearUpdates drops the staged writes after a flush.
func (t *Ticket) ClearUpdates() {
	t.updates = make(map[string]any)
}

// UIURL builds the browse link for the record.
func (t *Ticket) UIURL() string {
	if t.BaseURL == "" || t.Key() == "" {
		return ""
	}
	return strings.TrimSuffix(t.BaseURL, "/") + "/browse/" + t.Key()
}

func (t *Ticket) String() string {
	return fmt.Sprintf("%s %s", t.Key(), t.UIURL())
}

// YAML renders the field tree for diagnostics output.
func (t *Ticket) YAML() string {
	out, err := yaml.Marshal(t.Fields())
	if err != nil {
		return ""
	}
	return string(out)
}
