// Package fields holds the static field dictionary: display names, rename
// and deletion history, value types, and the layout of persisted records.
package fields

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Rename records that a field stopped being known as From and became To at
// the given time.
type Rename struct {
	From string    `yaml:"from"`
	To   string    `yaml:"to"`
	At   time.Time `yaml:"at"`
}

// ValueRename records a rename of one value of a field.
type ValueRename struct {
	Field string    `yaml:"field"`
	From  string    `yaml:"from"`
	To    string    `yaml:"to"`
	At    time.Time `yaml:"at"`
}

// Deletion records that a field was dropped from the tracker at the given
// time.
type Deletion struct {
	Field string    `yaml:"field"`
	At    time.Time `yaml:"at"`
}

// FieldSpec is one entry of the structured field configuration: the field's
// display name, its record group, its value type ("scalar", "text", or
// "List <what>") and an optional trailing comment for the record file.
type FieldSpec struct {
	Name    string `yaml:"name"`
	Group   string `yaml:"group"`
	Type    string `yaml:"type"`
	Comment string `yaml:"comment,omitempty"`
}

// Config is the structured field configuration file.
type Config struct {
	Fields       []FieldSpec   `yaml:"fields"`
	Renames      []Rename      `yaml:"renames,omitempty"`
	ValueRenames []ValueRename `yaml:"valueRenames,omitempty"`
	Deletions    []Deletion    `yaml:"deleted,omitempty"`
}

// Kind classifies how a field's values are represented.
type Kind int

const (
	KindScalar Kind = iota
	KindText
	KindList
)

// Dictionary is the read-only field lookup table set. It is fully built at
// construction; the only mutation is the one-time transitive closure of the
// rename chains.
type Dictionary struct {
	order        []string
	groups       map[string]string
	kinds        map[string]Kind
	comments     map[string]string
	renames      []Rename
	valueRenames []ValueRename
	deletions    []Deletion
	finals       map[string]string
}

// New builds a dictionary from the field configuration. Unknown fields in
// the configuration (no display-name entry and not a post-rename name) are
// a configuration error surfaced here, not at issue-processing time.
func New(cfg Config) (*Dictionary, error) {
	d := &Dictionary{
		groups:       make(map[string]string),
		kinds:        make(map[string]Kind),
		comments:     make(map[string]string),
		renames:      append([]Rename(nil), cfg.Renames...),
		valueRenames: append([]ValueRename(nil), cfg.ValueRenames...),
		deletions:    append([]Deletion(nil), cfg.Deletions...),
	}

	sort.SliceStable(d.renames, func(i, j int) bool { return d.renames[i].At.Before(d.renames[j].At) })
	sort.SliceStable(d.valueRenames, func(i, j int) bool { return d.valueRenames[i].At.Before(d.valueRenames[j].At) })
	sort.SliceStable(d.deletions, func(i, j int) bool { return d.deletions[i].At.Before(d.deletions[j].At) })

	known := make(map[string]bool)
	for _, name := range displayNames {
		known[name] = true
	}
	for name := range linkCategories {
		known[name] = true
	}
	for _, rename := range d.renames {
		if !known[rename.From] {
			return nil, fmt.Errorf("rename references unknown field %q", rename.From)
		}
		known[rename.To] = true
	}

	for _, spec := range cfg.Fields {
		if !known[spec.Name] {
			return nil, fmt.Errorf("field configuration references unknown field %q", spec.Name)
		}
		if _, dup := d.kinds[spec.Name]; dup {
			return nil, fmt.Errorf("field %q configured twice", spec.Name)
		}
		kind, err := parseKind(spec.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", spec.Name, err)
		}
		d.order = append(d.order, spec.Name)
		d.groups[spec.Name] = spec.Group
		d.kinds[spec.Name] = kind
		if spec.Comment != "" {
			d.comments[spec.Name] = spec.Comment
		}
	}

	// Precompute the transitive closure of the rename chains so FinalName
	// is a single map lookup. The chains themselves stay stepwise because
	// ResolveAt walks them one hop at a time.
	d.finals = make(map[string]string, len(d.renames))
	for _, rename := range d.renames {
		if _, done := d.finals[rename.From]; done {
			continue
		}
		final, err := d.follow(rename.From)
		if err != nil {
			return nil, err
		}
		d.finals[rename.From] = final
	}

	return d, nil
}

// LoadConfig reads the structured field configuration file and builds the
// dictionary from it.
func LoadConfig(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read field configuration: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse field configuration: %w", err)
	}
	return New(cfg)
}

func parseKind(declared string) (Kind, error) {
	switch {
	case declared == "scalar":
		return KindScalar, nil
	case declared == "text":
		return KindText, nil
	case strings.HasPrefix(declared, "List"):
		return KindList, nil
	default:
		return KindScalar, fmt.Errorf("unsupported value type %q", declared)
	}
}

// follow walks forward renames from name to a fixed point, failing on
// cycles in a malformed table.
func (d *Dictionary) follow(name string) (string, error) {
	current := name
	for hops := 0; hops <= len(d.renames); hops++ {
		next := current
		for _, rename := range d.renames {
			if rename.From == current {
				next = rename.To
				break
			}
		}
		if next == current {
			return current, nil
		}
		current = next
	}
	return "", fmt.Errorf("rename chain starting at %q does not terminate", name)
}

// DisplayName maps an internal field key to its display name, falling back
// to the key itself when unmapped.
func (d *Dictionary) DisplayName(internalKey string) string {
	if name, ok := displayNames[internalKey]; ok {
		return name
	}
	return internalKey
}

// InternalKey maps a display name back to its internal field key.
func (d *Dictionary) InternalKey(displayName string) (string, bool) {
	for key, name := range displayNames {
		if name == displayName {
			return key, true
		}
	}
	return "", false
}

// Known reports whether the internal field key has a display-name mapping.
func (d *Dictionary) Known(internalKey string) bool {
	_, ok := displayNames[internalKey]
	return ok
}

// ResolveAt returns the name the field had at the given time: for each
// rename that became effective only after t, the post-rename name is
// substituted back to its pre-rename name.
func (d *Dictionary) ResolveAt(fieldName string, t time.Time) string {
	name := fieldName
	for i := len(d.renames) - 1; i >= 0; i-- {
		rename := d.renames[i]
		if rename.At.After(t) && name == rename.To {
			name = rename.From
		}
	}
	return name
}

// FinalName follows forward renames to the field's present-day name.
func (d *Dictionary) FinalName(fieldName string) string {
	if final, ok := d.finals[fieldName]; ok {
		return final
	}
	return fieldName
}

// Renames returns the field rename history, ordered by effective time.
func (d *Dictionary) Renames() []Rename {
	return d.renames
}

// ValueRenames returns the value rename history, ordered by effective time.
func (d *Dictionary) ValueRenames() []ValueRename {
	return d.valueRenames
}

// Deletions returns the field deletion history, ordered by effective time.
func (d *Dictionary) Deletions() []Deletion {
	return d.deletions
}

// Order returns the canonical field ordering for persisted records.
func (d *Dictionary) Order() []string {
	return d.order
}

// Group returns the record group of a field; fields outside the ordering
// have the empty group.
func (d *Dictionary) Group(fieldName string) string {
	return d.groups[fieldName]
}

// FieldKind returns the declared value kind of a field. Fields outside the
// configuration default to scalar.
func (d *Dictionary) FieldKind(fieldName string) Kind {
	return d.kinds[fieldName]
}

// IsList reports whether the field is declared list-typed.
func (d *Dictionary) IsList(fieldName string) bool {
	return d.kinds[fieldName] == KindList
}

// IsText reports whether the field is declared as long-form text.
func (d *Dictionary) IsText(fieldName string) bool {
	return d.kinds[fieldName] == KindText
}

// Ordered reports whether the field appears in the canonical ordering.
func (d *Dictionary) Ordered(fieldName string) bool {
	_, ok := d.kinds[fieldName]
	return ok
}

// Comment returns the trailing record-file comment for a field, if any.
func (d *Dictionary) Comment(fieldName string) string {
	return d.comments[fieldName]
}

// StatusName maps a raw tracker status to its destination display name,
// falling back to the raw name.
func (d *Dictionary) StatusName(raw string) string {
	if mapped, ok := statusNames[raw]; ok {
		return mapped
	}
	return raw
}

// LinkCategory reports whether the field is one of the issue-link
// relationship lists.
func (d *Dictionary) LinkCategory(fieldName string) bool {
	return linkCategories[fieldName]
}

// FirstWordOnly reports whether list items of the field keep only their
// first word.
func (d *Dictionary) FirstWordOnly(fieldName string) bool {
	return firstWordOnly[fieldName]
}

// SpaceSeparated reports whether the field's changelog records its value as
// one space-separated string.
func (d *Dictionary) SpaceSeparated(fieldName string) bool {
	return spaceSeparated[fieldName]
}

// ReverseReplayed reports whether the field's original value is recovered
// by reverse replay of its delta history.
func (d *Dictionary) ReverseReplayed(fieldName string) bool {
	return reverseReplayed[fieldName]
}
