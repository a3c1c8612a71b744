package models

// Attachment is one file attached to a tracker record.
type Attachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Created  string `json:"created"`
}

// AttachmentsFromField decodes the attachment list of a Jira fields tree.
func AttachmentsFromField(value any) []Attachment {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	attachments := make([]Attachment, 0, len(list))
	for _, element := range list {
		m, ok := element.(map[string]any)
		if !ok {
			continue
		}
		attachments = append(attachments, Attachment{
			ID:       stringAt(m, "id"),
			Filename: stringAt(m, "filename"),
			Size:     int64At(m, "size"),
			Created:  stringAt(m, "created"),
		})
	}
	return attachments
}

// Comment is one tracker comment with its author identity. On server
// installations the author carries a short login name, on cloud an
// account id; both are kept.
type Comment struct {
	ID          string `json:"id"`
	Body        string `json:"body"`
	Created     string `json:"created"`
	Updated     string `json:"updated"`
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`
	AuthorID    string `json:"author_id"`
	AuthorLogin string `json:"author_login"`
}

// CommentsFromPayload decodes a Jira comment listing payload. The list
// arrives typed from the transport or untyped from a raw fields tree.
func CommentsFromPayload(value any) []Comment {
	var list []map[string]any
	switch v := value.(type) {
	case []map[string]any:
		list = v
	case []any:
		for _, element := range v {
			if m, ok := element.(map[string]any); ok {
				list = append(list, m)
			}
		}
	default:
		return nil
	}
	comments := make([]Comment, 0, len(list))
	for _, m := range list {
		comment := Comment{
			ID:      stringAt(m, "id"),
			Body:    stringAt(m, "body"),
			Created: stringAt(m, "created"),
			Updated: stringAt(m, "updated"),
		}
		if author, ok := m["author"].(map[string]any); ok {
			comment.AuthorName = stringAt(author, "displayName")
			comment.AuthorEmail = stringAt(author, "emailAddress")
			comment.AuthorID = stringAt(author, "accountId")
			comment.AuthorLogin = stringAt(author, "name")
		}
		// the update author is who the comment is attributed to after edits
		if updater, ok := m["updateAuthor"].(map[string]any); ok {
			if name := stringAt(updater, "name"); name != "" {
				comment.AuthorLogin = name
			}
			if email := stringAt(updater, "emailAddress"); email != "" {
				comment.AuthorEmail = email
			}
		}
		comments = append(comments, comment)
	}
	return comments
}

func stringAt(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func int64At(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}
