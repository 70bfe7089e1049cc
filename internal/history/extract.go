package history

import (
	"fmt"
	"strings"

	"github.com/tickethist/jira2git/internal/fields"
)

// currentValue converts the raw JSON shape of one current field value into
// the tagged value model, following the dictionary's declared type rather
// than sniffing the shape at use sites. Handles the shapes the tracker
// emits: plain scalars, {"value": ...} options, {"name": ...} references,
// and arrays of any of those.
func currentValue(dict *fields.Dictionary, fieldName string, raw any) (fields.Value, error) {
	if raw == nil {
		return fields.Absent(), nil
	}

	switch typed := raw.(type) {
	case string:
		if fieldName == "Status" {
			return fields.Scalar(dict.StatusName(typed)), nil
		}
		return fields.Scalar(typed), nil
	case bool:
		return fields.Scalar(fmt.Sprintf("%t", typed)), nil
	case float64:
		return fields.Scalar(trimFloat(typed)), nil
	case map[string]any:
		if value, ok := typed["value"].(string); ok {
			return fields.Scalar(value), nil
		}
		if name, ok := typed["name"].(string); ok {
			if fieldName == "Status" {
				name = dict.StatusName(name)
			}
			return fields.Scalar(name), nil
		}
		return fields.Absent(), fmt.Errorf("field %q object has neither value nor name", fieldName)
	case []any:
		var items []string
		for _, element := range typed {
			item, err := itemValue(dict, fieldName, element)
			if err != nil {
				return fields.Absent(), err
			}
			if item != "" {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			return fields.Absent(), nil
		}
		return fields.List(items...), nil
	default:
		return fields.Absent(), fmt.Errorf("field %q has unsupported shape %T", fieldName, raw)
	}
}

func itemValue(dict *fields.Dictionary, fieldName string, element any) (string, error) {
	switch typed := element.(type) {
	case string:
		return typed, nil
	case float64:
		return trimFloat(typed), nil
	case map[string]any:
		if value, ok := typed["value"].(string); ok {
			if dict.FirstWordOnly(fieldName) {
				value, _, _ = strings.Cut(value, " ")
			}
			return value, nil
		}
		if name, ok := typed["name"].(string); ok {
			return name, nil
		}
		return "", fmt.Errorf("list field %q item has neither value nor name", fieldName)
	default:
		return "", fmt.Errorf("list field %q item has unsupported shape %T", fieldName, element)
	}
}

func trimFloat(f float64) string {
	formatted := fmt.Sprintf("%g", f)
	return formatted
}
