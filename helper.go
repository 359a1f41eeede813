// File: atbashEE/config/helper.go
package config

import (
	"fmt"
	"strings"
)

// flattenMap converts a nested map[string]any to a flat map of dotted paths to raw string values.
// Lists become comma separated values with embedded commas escaped.
func flattenMap(nested map[string]any, prefix string) map[string]string {
	flat := make(map[string]string)

	for key, value := range nested {
		newPath := key
		if prefix != "" {
			newPath = prefix + "." + key
		}

		switch v := value.(type) {
		case map[string]any:
			for subPath, subValue := range flattenMap(v, newPath) {
				flat[subPath] = subValue
			}
		case map[any]any:
			converted := make(map[string]any, len(v))
			for k, sub := range v {
				converted[fmt.Sprint(k)] = sub
			}
			for subPath, subValue := range flattenMap(converted, newPath) {
				flat[subPath] = subValue
			}
		default:
			flat[newPath] = stringify(value)
		}
	}

	return flat
}

// stringify renders a decoded file value as the raw string a source serves.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = strings.ReplaceAll(stringify(item), ",", `\,`)
		}
		return strings.Join(parts, ",")
	case []string:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = strings.ReplaceAll(item, ",", `\,`)
		}
		return strings.Join(parts, ",")
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// splitList splits a comma separated value. A backslash escapes a comma; blank items are dropped.
func splitList(s string) []string {
	var (
		items []string
		cur   strings.Builder
	)
	flush := func() {
		if item := strings.TrimSpace(cur.String()); item != "" {
			items = append(items, item)
		}
		cur.Reset()
	}
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s) && s[i+1] == ',':
			cur.WriteByte(',')
			i++
		case s[i] == ',':
			flush()
		default:
			cur.WriteByte(s[i])
		}
	}
	flush()
	return items
}

// setNestedValue sets a value in a nested map using a dot-notation path.
// It creates intermediate maps if they don't exist.
// If a segment exists but is not a map, it will be overwritten by a new map.
func setNestedValue(nested map[string]any, path string, value any) {
	segments := strings.Split(path, ".")
	current := nested

	for i := 0; i < len(segments)-1; i++ {
		segment := segments[i]

		next, exists := current[segment]
		if nextMap, isMap := next.(map[string]any); exists && isMap {
			current = nextMap
			continue
		}
		newMap := make(map[string]any)
		current[segment] = newMap
		current = newMap
	}

	current[segments[len(segments)-1]] = value
}

// isValidKeySegment checks if a single path segment is a valid bare key part (A-Za-z0-9_-).
func isValidKeySegment(s string) bool {
	if len(s) == 0 {
		return false
	}

	for _, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isUnderscore := r == '_'
		isDash := r == '-'

		if !(isLetter || isDigit || isUnderscore || isDash) {
			return false
		}
	}
	return true
}

// validateKeyPath checks every segment of a dotted key. A leading profile marker is allowed.
func validateKeyPath(path, profilePrefix string) error {
	trimmed := strings.TrimPrefix(path, profilePrefix)
	for _, segment := range strings.Split(trimmed, ".") {
		if !isValidKeySegment(segment) {
			return fmt.Errorf("invalid key segment %q in path %q", segment, path)
		}
	}
	return nil
}
