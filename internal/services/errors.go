package services

import "fmt"

// ConnectionError means a backing system is unreachable. Fatal for the
// whole batch cycle, there is no partial batch without both systems.
type ConnectionError struct {
	System string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.System, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// MultipleMatchesError means an expected unique cross reference lookup
// returned more than one ticket. Fatal for that ticket only.
type MultipleMatchesError struct {
	Reference string
	Keys      []string
}

func (e *MultipleMatchesError) Error() string {
	return fmt.Sprintf("multiple tickets found for external reference %q: %v", e.Reference, e.Keys)
}

// UnsupportedIssueTypeError means the source issue type has no mapper.
// Fatal for that ticket only.
type UnsupportedIssueTypeError struct {
	Key       string
	IssueType string
}

func (e *UnsupportedIssueTypeError) Error() string {
	return fmt.Sprintf("issue type %q of %s is not accepted for sync", e.IssueType, e.Key)
}

// AttachmentSizeMismatchError means an attachment already present by name
// differs in size. Raised loudly, never silently overwritten.
type AttachmentSizeMismatchError struct {
	Name       string
	SourceSize int64
	TargetSize int64
}

func (e *AttachmentSizeMismatchError) Error() string {
	return fmt.Sprintf("attachment size mismatch for %q: source %d vs target %d",
		e.Name, e.SourceSize, e.TargetSize)
}

// SyncConditionError means a source record does not qualify for sync
// (wrong inbox, closed, not assigned to us). Skipped with a warning.
type SyncConditionError struct {
	ID     string
	Reason string
}

func (e *SyncConditionError) Error() string {
	return fmt.Sprintf("sync conditions not met for %s: %s", e.ID, e.Reason)
}

// CommentConversionError means a source comment could not be rendered for
// the target system. Fatal for that ticket only.
type CommentConversionError struct {
	Key    string
	Reason string
}

func (e *CommentConversionError) Error() string {
	return fmt.Sprintf("failed to convert comment of %s: %s", e.Key, e.Reason)
}
