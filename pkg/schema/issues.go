package schema

import (
	"fmt"
	"strings"
)

// Severity classifies a sanitizer finding.
type Severity string

const (
	// SeverityError marks a value that could not be coerced and was dropped.
	SeverityError Severity = "error"
	// SeverityWarning marks a value that was corrected (clamped, truncated).
	SeverityWarning Severity = "warning"
	// SeveritySecurity marks a value from which unsafe content was stripped.
	SeveritySecurity Severity = "security"
	// SeverityIgnored marks an input key the schema does not declare.
	SeverityIgnored Severity = "ignored"
)

// Issue codes.
const (
	CodeInvalidType   = "invalid_type"
	CodeInvalidFormat = "invalid_format"
	CodeClamped       = "clamped"
	CodeRounded       = "rounded"
	CodeInvalidChoice = "invalid_choice"
	CodeTruncated     = "truncated"
	CodeUnsafeContent = "unsafe_content"
	CodeUnknownField  = "unknown_field"
)

// Issue is a single per-field finding.
type Issue struct {
	Field    string   `json:"field"`
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Issues is the ordered list of findings produced by one sanitize call.
type Issues []Issue

// Fatal reports whether any value was dropped.
func (is Issues) Fatal() bool {
	for _, i := range is {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Only returns the issues of the given severities.
func (is Issues) Only(sev ...Severity) Issues {
	var out Issues
	for _, i := range is {
		for _, s := range sev {
			if i.Severity == s {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

// ValidationError carries the issues of a rejected candidate.
type ValidationError struct {
	Issues Issues
}

func (e *ValidationError) Error() string {
	fatal := e.Issues.Only(SeverityError)
	if len(fatal) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(fatal))
	for _, i := range fatal {
		parts = append(parts, fmt.Sprintf("%s: %s", i.Field, i.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
