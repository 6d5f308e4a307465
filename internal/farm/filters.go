package farm

import (
	"fmt"
	"sort"
	"strings"
)

// FieldType is the static type tag for one filterable field on a listing
// endpoint. spec.md §9 redesigns the original's runtime type-inspection
// into a per-endpoint schema resolved at call time.
type FieldType int

const (
	FieldInt FieldType = iota
	FieldString
	FieldBool
)

// FieldSchema declares, per endpoint, which fields may be filtered on and
// their type.
type FieldSchema map[string]FieldType

// Schemas for each listing endpoint (mirrors the field maps originally
// declared alongside each get_* function in bitbar/*.py).
var (
	DeviceFields = FieldSchema{
		"displayname": FieldString,
		"enabled":     FieldBool,
		"id":          FieldInt,
		"locked":      FieldBool,
		"model":       FieldString,
		"online":      FieldBool,
		"ostype":      FieldString,
	}

	DeviceGroupFields = FieldSchema{
		"displayname": FieldString,
		"id":          FieldInt,
		"ostype":      FieldString,
	}

	FrameworkFields = FieldSchema{
		"id":          FieldInt,
		"jobconfigid": FieldInt,
		"labelname":   FieldString,
		"name":        FieldString,
		"ostype":      FieldString,
		"type":        FieldString,
	}

	FileFields = FieldSchema{
		"createtime": FieldInt,
		"direction":  FieldString,
		"id":         FieldInt,
		"mimetype":   FieldString,
		"name":       FieldString,
		"size":       FieldInt,
		"state":      FieldString,
	}

	ProjectFields = FieldSchema{
		"frameworkid": FieldInt,
		"id":          FieldInt,
		"name":        FieldString,
		"ostype":      FieldString,
	}
)

// Filter is one (field, value) constraint to render.
type Filter struct {
	Field string
	Value interface{}
}

// RenderFilter renders each Filter as "<flag>_<field>_eq_<value>" against
// schema, per spec.md §4.1: d_ for integer fields whose name contains
// "time", n_ for other integers, s_ for strings, b_ for booleans. A type
// mismatch against the schema, or a field absent from the schema, is a
// construction-time error rather than a runtime type-inspection failure.
func RenderFilter(schema FieldSchema, filters ...Filter) ([]string, error) {
	rendered := make([]string, 0, len(filters))
	for _, f := range filters {
		fieldType, ok := schema[f.Field]
		if !ok {
			return nil, fmt.Errorf("farm: unknown filter field %q", f.Field)
		}

		var flag, value string
		switch fieldType {
		case FieldInt:
			n, ok := f.Value.(int)
			if !ok {
				return nil, fmt.Errorf("farm: field %q expects int, got %T", f.Field, f.Value)
			}
			if strings.Contains(f.Field, "time") {
				flag = "d"
			} else {
				flag = "n"
			}
			value = fmt.Sprintf("%d", n)
		case FieldString:
			s, ok := f.Value.(string)
			if !ok {
				return nil, fmt.Errorf("farm: field %q expects string, got %T", f.Field, f.Value)
			}
			flag = "s"
			value = s
		case FieldBool:
			b, ok := f.Value.(bool)
			if !ok {
				return nil, fmt.Errorf("farm: field %q expects bool, got %T", f.Field, f.Value)
			}
			flag = "b"
			value = fmt.Sprintf("%t", b)
		default:
			return nil, fmt.Errorf("farm: unknown filter field type for %q", f.Field)
		}

		rendered = append(rendered, fmt.Sprintf("%s_%s_eq_%s", flag, f.Field, value))
	}
	// Stable output makes query strings (and tests) deterministic even
	// though callers may pass filters in map iteration order.
	sort.Strings(rendered)
	return rendered, nil
}
