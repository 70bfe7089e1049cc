package fields

import "strings"

type valueKind int

const (
	kindAbsent valueKind = iota
	kindScalar
	kindList
)

// Value is one field value: a scalar string, an ordered list of strings, or
// explicitly absent. The kind is decided once per field by the dictionary's
// declared type, never sniffed from data at use sites.
type Value struct {
	kind valueKind
	str  string
	list []string
}

// Absent returns the explicitly-absent value.
func Absent() Value {
	return Value{kind: kindAbsent}
}

// Scalar wraps a scalar string value.
func Scalar(s string) Value {
	return Value{kind: kindScalar, str: s}
}

// List wraps an ordered list value.
func List(items ...string) Value {
	return Value{kind: kindList, list: items}
}

// IsAbsent reports whether the value is explicitly absent.
func (v Value) IsAbsent() bool {
	return v.kind == kindAbsent
}

// IsList reports whether the value is a list.
func (v Value) IsList() bool {
	return v.kind == kindList
}

// Items returns the value as a list. A scalar is parsed as a
// comma-separated list; absent yields nil.
func (v Value) Items() []string {
	switch v.kind {
	case kindList:
		return v.list
	case kindScalar:
		if v.str == "" {
			return nil
		}
		var items []string
		for _, item := range strings.Split(v.str, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				items = append(items, trimmed)
			}
		}
		return items
	default:
		return nil
	}
}

// String returns the scalar content, or the comma-joined list.
func (v Value) String() string {
	if v.kind == kindList {
		return strings.Join(v.list, ", ")
	}
	return v.str
}

// IsEmpty reports whether the value is absent, an empty scalar, or an empty
// list.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case kindAbsent:
		return true
	case kindScalar:
		return v.str == ""
	default:
		return len(v.list) == 0
	}
}
