package syncdomain

import (
	"encoding/json"
	"strings"
	"unicode"
)

// maxIdentifierLength bounds each external identifier inside a job ID.
// Two identifiers that only differ after this many characters produce the same
// job ID; the queue then treats them as the same unit of work.
const maxIdentifierLength = 8

// GenerateJobID builds the deterministic job ID for a unit of work. The same
// domain, component and identifiers always yield the same ID, which is what makes
// submission idempotent at the queue boundary.
func GenerateJobID(domain Domain, component Component, identifiers ...string) string {
	parts := make([]string, 0, len(identifiers)+2)
	parts = append(parts, strings.ToLower(string(domain)), strings.ToLower(string(component)))
	for _, id := range identifiers {
		parts = append(parts, sanitizeIdentifier(id))
	}
	return strings.Join(parts, "-")
}

func sanitizeIdentifier(id string) string {
	var b strings.Builder
	n := 0
	for _, r := range id {
		if n == maxIdentifierLength {
			break
		}
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
		n++
	}
	return b.String()
}

// ExtractParentID returns the parent job ID of a record. The linkage is either the
// dedicated column or a "parent" entry in the options blob, which older producers
// stored as a serialized JSON string.
func ExtractParentID(record JobRecord) (string, bool) {
	if record.ParentID != "" {
		return record.ParentID, true
	}
	if len(record.Options) == 0 {
		return "", false
	}
	return parentFromOptions(record.Options)
}

func parentFromOptions(opts map[string]any) (string, bool) {
	if id, ok := stringValue(opts["parentId"]); ok {
		return id, true
	}

	switch parent := opts["parent"].(type) {
	case map[string]any:
		return stringValue(parent["id"])
	case string:
		var decoded map[string]any
		if err := json.Unmarshal([]byte(parent), &decoded); err != nil {
			return "", false
		}
		return stringValue(decoded["id"])
	}

	if raw, ok := opts["options"].(string); ok {
		var nested map[string]any
		if err := json.Unmarshal([]byte(raw), &nested); err != nil {
			return "", false
		}
		return parentFromOptions(nested)
	}
	return "", false
}

func stringValue(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
