package record

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/tickethist/jira2git/internal/fields"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), fields.Default(), logrus.NewEntry(logrus.New()))
}

func TestWriteReadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	values := map[string]fields.Value{
		"Status":      fields.Scalar("Tag Ready"),
		"Component/s": fields.List("Headings", "Tables"),
		"Labels":      fields.List("alpha", "beta"),
		"Keywords":    fields.List("H1"),
		"Related":     fields.List("#3", "#7"),
	}

	if err := store.Write(7, values, true); err != nil {
		t.Fatalf("unexpected error writing record: %v", err)
	}

	read, err := store.Read(7)
	if err != nil {
		t.Fatalf("unexpected error reading record: %v", err)
	}

	for name, expected := range values {
		actual, ok := read[name]
		if !ok {
			t.Errorf("field %q missing after round trip", name)
			continue
		}
		if !reflect.DeepEqual(actual.Items(), expected.Items()) {
			t.Errorf("field %q: expected %q, got %q", name, expected.Items(), actual.Items())
		}
	}
}

func TestClearedListRoundTrip(t *testing.T) {
	store := newTestStore(t)

	values := map[string]fields.Value{
		"Status":      fields.Scalar("Reported"),
		"Component/s": fields.List(),
	}

	if err := store.Write(5, values, true); err != nil {
		t.Fatalf("unexpected error writing record: %v", err)
	}
	data, err := os.ReadFile(store.Path(5))
	if err != nil {
		t.Fatalf("unexpected error reading record file: %v", err)
	}
	if !strings.Contains(string(data), "Component/s: []") {
		t.Errorf("expected an explicit empty list, got %q", data)
	}

	read, err := store.Read(5)
	if err != nil {
		t.Fatalf("unexpected error reading record: %v", err)
	}
	value, ok := read["Component/s"]
	if !ok {
		t.Fatal("expected the cleared list to survive the round trip")
	}
	if value.IsAbsent() {
		t.Error("expected an empty list, got an absent value")
	}
	if items := value.Items(); len(items) != 0 {
		t.Errorf("expected no items, got %q", items)
	}
}

func TestTypedScalarRoundTrip(t *testing.T) {
	store := newTestStore(t)

	values := map[string]fields.Value{
		"Status":        fields.Scalar("Reported"),
		"Example type":  fields.Scalar("1.5"),
		"PAC 3 Checked": fields.Scalar("Yes"),
	}

	if err := store.Write(6, values, true); err != nil {
		t.Fatalf("unexpected error writing record: %v", err)
	}
	read, err := store.Read(6)
	if err != nil {
		t.Fatalf("unexpected error reading record: %v", err)
	}
	if value := read["Example type"].String(); value != "1.5" {
		t.Errorf("expected %q, got %q", "1.5", value)
	}
	if value := read["PAC 3 Checked"].String(); value != "Yes" {
		t.Errorf("expected %q, got %q", "Yes", value)
	}
}

func TestReadLegacyNumericScalar(t *testing.T) {
	store := newTestStore(t)

	if err := os.MkdirAll(filepath.Dir(store.Path(9)), 0755); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	record := "Number: 9\nStatus: Reported\nExample type: 1.5\n"
	if err := os.WriteFile(store.Path(9), []byte(record), 0644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	read, err := store.Read(9)
	if err != nil {
		t.Fatalf("unexpected error reading record: %v", err)
	}
	if value := read["Example type"].String(); value != "1.5" {
		t.Errorf("expected %q, got %q", "1.5", value)
	}
}

func TestWriteIsADeterministicFixedPoint(t *testing.T) {
	store := newTestStore(t)

	values := map[string]fields.Value{
		"Status":      fields.Scalar("Reported"),
		"Component/s": fields.List("Headings"),
	}

	if err := store.Write(3, values, true); err != nil {
		t.Fatalf("unexpected error writing record: %v", err)
	}
	first, err := os.ReadFile(store.Path(3))
	if err != nil {
		t.Fatalf("unexpected error reading record file: %v", err)
	}

	read, err := store.Read(3)
	if err != nil {
		t.Fatalf("unexpected error reading record: %v", err)
	}
	if err := store.Write(3, read, true); err != nil {
		t.Fatalf("unexpected error rewriting record: %v", err)
	}
	second, err := os.ReadFile(store.Path(3))
	if err != nil {
		t.Fatalf("unexpected error reading record file: %v", err)
	}

	if string(first) != string(second) {
		t.Errorf("expected identical files after read-write cycle:\n--- first\n%s\n--- second\n%s", first, second)
	}
}

func TestWriteLayout(t *testing.T) {
	store := newTestStore(t)

	values := map[string]fields.Value{
		"Status":      fields.Scalar("Reported"),
		"Component/s": fields.List("Headings"),
		"Description": fields.Scalar("text/3-description.md"),
	}

	if err := store.Write(3, values, true); err != nil {
		t.Fatalf("unexpected error writing record: %v", err)
	}
	data, err := os.ReadFile(store.Path(3))
	if err != nil {
		t.Fatalf("unexpected error reading record file: %v", err)
	}
	content := string(data)

	if !strings.HasPrefix(content, "Number: 3\n") {
		t.Errorf("expected the record to start with the issue number, got %q", content)
	}
	if !strings.Contains(content, "\n\nComponent/s:\n  - Headings\n") {
		t.Errorf("expected a blank-separated component list, got %q", content)
	}
	if strings.Index(content, "Status:") > strings.Index(content, "Description:") {
		t.Errorf("expected dictionary ordering (Status before Description), got %q", content)
	}
}

func TestFormatScalar(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{name: "plain value", value: "Tag Ready", expected: "Tag Ready"},
		{name: "empty value", value: "", expected: "''"},
		{name: "reserved punctuation", value: "a: b", expected: "'a: b'"},
		{name: "issue reference", value: "#12", expected: "'#12'"},
		{name: "single quotes are doubled", value: "it's", expected: "'it''s'"},
		{name: "leading space", value: " padded", expected: "' padded'"},
		{name: "dash prefix", value: "- item", expected: "'- item'"},
		{name: "integer", value: "12", expected: "'12'"},
		{name: "float", value: "1.5", expected: "'1.5'"},
		{name: "boolean-looking value", value: "Yes", expected: "'Yes'"},
		{name: "version is not a number", value: "1.0.1", expected: "1.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := store.formatScalar(1, "Status", tt.value); result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestTextPath(t *testing.T) {
	store := NewStore("/store", fields.Default(), logrus.NewEntry(logrus.New()))

	if path := store.TextPath(12, "Description"); path != "/store/text/12-description.md" {
		t.Errorf("unexpected text path %q", path)
	}
	if path := store.TextPath(4, "Pass / Fail"); path != "/store/text/4-pass---fail.md" {
		t.Errorf("unexpected text path %q", path)
	}
}
