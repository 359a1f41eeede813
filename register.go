// FILE: atbashEE/config/register.go
package config

import (
	"fmt"
	"reflect"
	"strings"
)

// NewStructSource flattens a struct of default values into a source with OrdinalStructDefaults.
// Paths come from `toml` tags, falling back to the field name; a "-" tag skips the field.
// The prefix is prepended to all paths (e.g., "log."). An empty prefix is allowed.
func NewStructSource(prefix string, structWithDefaults any) (*MapSource, error) {
	v := reflect.ValueOf(structWithDefaults)

	// Handle pointer or direct struct value
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, fmt.Errorf("struct defaults require a non-nil struct pointer or value")
		}
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("struct defaults require a struct or struct pointer, got %T", structWithDefaults)
	}

	values := make(map[string]string)
	var errs []string
	collectFields(v, prefix, "", values, &errs)

	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to register %d field(s): %s", len(errs), strings.Join(errs, "; "))
	}

	return NewMapSourceWithOrdinal("StructSource", values, OrdinalStructDefaults), nil
}

// collectFields walks struct fields recursively, recording leaf values under their dotted path.
func collectFields(v reflect.Value, pathPrefix, fieldPath string, values map[string]string, errs *[]string) {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("toml")
		if tag == "-" {
			continue
		}

		key := field.Name
		if name, _, _ := strings.Cut(tag, ","); name != "" {
			key = name
		}

		currentPath := key
		if pathPrefix != "" {
			currentPath = strings.TrimSuffix(pathPrefix, ".") + "." + key
		}

		fieldType := fieldValue.Type()
		isStruct := fieldValue.Kind() == reflect.Struct
		isPtrToStruct := fieldValue.Kind() == reflect.Ptr && fieldType.Elem().Kind() == reflect.Struct

		if (isStruct || isPtrToStruct) && !isLeafType(fieldType) {
			nestedValue := fieldValue
			if isPtrToStruct {
				if fieldValue.IsNil() {
					// Skip nil pointers, as their paths aren't well-defined defaults.
					continue
				}
				nestedValue = fieldValue.Elem()
			}
			collectFields(nestedValue, currentPath, fieldPath+field.Name+".", values, errs)
			continue
		}

		if err := validateKeyPath(currentPath, ""); err != nil {
			*errs = append(*errs, fmt.Sprintf("field %s%s (path %s): %v", fieldPath, field.Name, currentPath, err))
			continue
		}

		if raw, ok := leafString(fieldValue); ok {
			values[currentPath] = raw
		}
	}
}

// isLeafType reports struct types that render as a single value, such as time.Time or url.URL.
func isLeafType(t reflect.Type) bool {
	stringer := reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
	return t.Implements(stringer) || reflect.PointerTo(t).Implements(stringer)
}

// leafString renders a default value. Nil pointers, maps and empty slices produce no entry.
func leafString(v reflect.Value) (string, bool) {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return "", false
		}
		return leafString(v.Elem())
	case reflect.Map:
		return "", false
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			// net.IP and friends
			if s, ok := v.Interface().(fmt.Stringer); ok {
				return s.String(), true
			}
			return string(v.Bytes()), true
		}
		if v.Len() == 0 {
			return "", false
		}
		items := make([]any, v.Len())
		for i := range items {
			items[i] = v.Index(i).Interface()
		}
		return stringify(items), true
	}
	if v.CanAddr() {
		if s, ok := v.Addr().Interface().(fmt.Stringer); ok {
			return s.String(), true
		}
	}
	return stringify(v.Interface()), true
}
