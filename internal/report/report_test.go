package report

import (
	"strings"
	"testing"

	"github.com/tickethist/jira2git/internal/replay"
)

func TestRender(t *testing.T) {
	output := Render(Summary{
		Project: "PDFUA",
		Issues:  42,
		Counters: replay.Counters{
			Created: 42,
			Updated: 310,
			Ignored: 17,
			Commits: 298,
		},
		Unknown: map[string]int{
			"customfield_99999": 3,
			"customfield_11111": 1,
		},
	})

	for _, expected := range []string{
		"Replayed project PDFUA",
		"Issues created",
		"310",
		"2 field identifiers had no dictionary entry:",
		"customfield_99999 (3 changes)",
	} {
		if !strings.Contains(output, expected) {
			t.Errorf("expected the report to contain %q, full output:\n%s", expected, output)
		}
	}

	if idx11111 := strings.Index(output, "customfield_11111"); idx11111 == -1 || idx11111 > strings.Index(output, "customfield_99999") {
		t.Error("expected unknown fields to be listed in sorted order")
	}
}

func TestRenderWithoutUnknownFields(t *testing.T) {
	output := Render(Summary{Project: "PDFUA", Issues: 1})
	if strings.Contains(output, "dictionary entry") {
		t.Errorf("expected no warning block, full output:\n%s", output)
	}
}
