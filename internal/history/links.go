package history

import (
	"regexp"
	"strconv"
	"strings"
)

// Link change strings look like "This issue relates to PDFUA-123". The
// relationship verb decides which record list the reference is filed
// under; directions that duplicate the information on the other issue
// (blocks, is duplicated by as seen from the duplicate) stay unfiled.
var (
	linkRef = regexp.MustCompile(`([A-Z][A-Z0-9]*)-(\d+)\s*$`)
	hashRef = regexp.MustCompile(`#(\d+)\s*$`)
)

var linkVerbs = []struct {
	verb     string
	category string
}{
	{"relates to", "Related"},
	{"is duplicated by", "Duplicates"},
	{"duplicates", "Duplicates"},
	{"is blocked by", "Blocked by"},
}

// linkCategory parses one link description into the record list it belongs
// to and the normalized "#n" issue reference. The last result is false for
// link directions that are not migrated.
func linkCategory(description string) (category, ref string, ok bool) {
	match := linkRef.FindStringSubmatch(description)
	if match == nil {
		return "", "", false
	}
	for _, candidate := range linkVerbs {
		if strings.Contains(description, candidate.verb) {
			n, err := strconv.Atoi(match[2])
			if err != nil {
				return "", "", false
			}
			return candidate.category, "#" + strconv.Itoa(n), true
		}
	}
	return "", "", false
}

// isCloneLink matches the link description of a freshly-cloned issue.
func isCloneLink(description string) bool {
	return strings.Contains(description, "clones")
}

// IssueRef returns the numeric part of an issue reference like "#12" or
// "PDFUA-12", or -1 when there is none. Link lists de-duplicate on this.
func IssueRef(value string) int {
	if match := hashRef.FindStringSubmatch(value); match != nil {
		if n, err := strconv.Atoi(match[1]); err == nil {
			return n
		}
	}
	if match := linkRef.FindStringSubmatch(value); match != nil {
		if n, err := strconv.Atoi(match[2]); err == nil {
			return n
		}
	}
	return -1
}
