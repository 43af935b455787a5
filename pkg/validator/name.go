package validator

import (
	"regexp"
	"strings"
)

// connectorNameRegexp defines the valid format for connector names pushed to
// the execution engine: letters, numbers, dots, underscores and hyphens,
// 1-128 characters. The engine embeds the name in REST paths.
var connectorNameRegexp = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,128}$`)

// ValidateConnectorName checks if the given name is a valid connector name.
func ValidateConnectorName(name string) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return false
	}
	return connectorNameRegexp.MatchString(trimmed)
}

// SanitizeConnectorName trims whitespace and validates the connector name.
// Returns the sanitized name and a boolean indicating if it's valid.
func SanitizeConnectorName(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", false
	}
	if !connectorNameRegexp.MatchString(trimmed) {
		return trimmed, false
	}
	return trimmed, true
}
