// Package history reconstructs, from one issue's changelog, the original
// state of the issue at creation time and a per-field timeline of changes.
package history

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/tickethist/jira2git/internal/fields"
	"github.com/tickethist/jira2git/internal/jiraexport"
)

// Change is one atomic field mutation, keyed by the name the field had
// when the issue was created.
type Change struct {
	At       time.Time
	Author   *jiraexport.User
	Field    string
	From     string
	FromText string
	To       string
	ToText   string
}

// Delta classifies a list-delta change: exactly one side populated.
func (c Change) Delta() (value string, added, ok bool) {
	fromSide := c.FromText != "" || c.From != ""
	toSide := c.ToText != "" || c.To != ""
	switch {
	case toSide && !fromSide:
		return firstNonEmpty(c.ToText, c.To), true, true
	case fromSide && !toSide:
		return firstNonEmpty(c.FromText, c.From), false, true
	default:
		return "", false, false
	}
}

// AttachmentSeed is an attachment that must exist from issue creation on:
// either it has no add event in the changelog, or its only event is a
// removal.
type AttachmentSeed struct {
	ID       string
	Filename string
}

// Reconstruction is the derived state of one issue: its field values at
// creation time plus the ordered per-field change timeline.
type Reconstruction struct {
	Key       string
	Number    int
	CreatedAt time.Time
	Creator   *jiraexport.User

	// Original maps resolved field names to their value at creation time.
	Original map[string]fields.Value
	// Timeline maps resolved field names to their changes, ordered by time.
	Timeline map[string][]Change
	// OriginalAttachments are present since creation.
	OriginalAttachments []AttachmentSeed
	// CloneOf is the number of the issue this one was cloned from, 0 if none.
	CloneOf int
	// UnknownFields are the deduplicated field identifiers with no known
	// mapping, reported for post-migration audit.
	UnknownFields []string
}

// changelogAliases normalizes the handful of changelog field identifiers
// that match neither an internal key nor a display name.
var changelogAliases = map[string]string{
	"Component":   "Component/s",
	"Fix Version": "Fix Version/s",
	"Version":     "Affects Version/s",
	"Workflow":    "Workflow",
	"Link":        "Link",
}

// Reconstruct computes the original state and per-field timeline of one
// exported issue.
func Reconstruct(issue *jiraexport.Issue, dict *fields.Dictionary, log *logrus.Entry) (*Reconstruction, error) {
	number, err := issue.Number()
	if err != nil {
		return nil, err
	}

	r := &Reconstruction{
		Key:       issue.Key,
		Number:    number,
		CreatedAt: issue.Fields.Created.Time,
		Creator:   issue.Fields.Creator,
		Original:  make(map[string]fields.Value),
		Timeline:  make(map[string][]Change),
	}

	r.collectTimeline(issue, dict, log)
	r.reconstructCurrent(issue, dict, log)
	r.reconstructOriginals(dict, log)
	r.reconstructAttachments(issue)
	r.detectClone(issue)

	return r, nil
}

// collectTimeline groups all changelog items by the name the target field
// had at issue creation time.
func (r *Reconstruction) collectTimeline(issue *jiraexport.Issue, dict *fields.Dictionary, log *logrus.Entry) {
	if issue.Changelog == nil {
		return
	}

	histories := append([]jiraexport.History(nil), issue.Changelog.Histories...)
	sort.SliceStable(histories, func(i, j int) bool {
		return histories[i].Created.Time.Before(histories[j].Created.Time)
	})

	unknownSeen := make(map[string]bool)
	for _, entry := range histories {
		for _, item := range entry.Items {
			if item.Field == "Link" {
				r.collectLinkChange(entry, item)
				continue
			}

			display, recognized := displayFor(dict, item.Field)
			name := dict.ResolveAt(display, r.CreatedAt)
			if !recognized && !dict.Ordered(name) && !dict.LinkCategory(name) {
				if !unknownSeen[item.Field] {
					unknownSeen[item.Field] = true
					r.UnknownFields = append(r.UnknownFields, item.Field)
					log.Warnf("issue %s: changelog references unrecognized field %q", r.Key, item.Field)
				}
			}

			r.Timeline[name] = append(r.Timeline[name], Change{
				At:       entry.Created.Time,
				Author:   entry.Author,
				Field:    name,
				From:     item.From,
				FromText: item.FromString,
				To:       item.To,
				ToText:   item.ToString,
			})
		}
	}

	for name := range r.Timeline {
		changes := r.Timeline[name]
		sort.SliceStable(changes, func(i, j int) bool { return changes[i].At.Before(changes[j].At) })
	}
	sort.Strings(r.UnknownFields)
}

// collectLinkChange files one link mutation under its relationship
// category. Each side of a link item describes one delta.
func (r *Reconstruction) collectLinkChange(entry jiraexport.History, item jiraexport.Item) {
	if item.ToString != "" {
		if category, ref, ok := linkCategory(item.ToString); ok {
			r.Timeline[category] = append(r.Timeline[category], Change{
				At: entry.Created.Time, Author: entry.Author, Field: category,
				To: ref, ToText: item.ToString,
			})
		}
	}
	if item.FromString != "" {
		if category, ref, ok := linkCategory(item.FromString); ok {
			r.Timeline[category] = append(r.Timeline[category], Change{
				At: entry.Created.Time, Author: entry.Author, Field: category,
				From: ref, FromText: item.FromString,
			})
		}
	}
}

// reconstructCurrent fills Original with the current value of every
// ordered field. Fields with history get overridden afterwards; for all
// others the current value is the original value.
func (r *Reconstruction) reconstructCurrent(issue *jiraexport.Issue, dict *fields.Dictionary, log *logrus.Entry) {
	for _, name := range dict.Order() {
		if dict.LinkCategory(name) {
			if links := currentLinks(issue, name); len(links) > 0 {
				r.Original[name] = fields.List(links...)
			}
			continue
		}

		key, ok := dict.InternalKey(name)
		if !ok {
			// A renamed field keeps the export key of its oldest name.
			key, ok = dict.InternalKey(dict.ResolveAt(name, time.Time{}))
		}
		if !ok {
			continue
		}
		raw, present := issue.Fields.Raw[key]
		if !present {
			continue
		}
		value, err := currentValue(dict, name, raw)
		if err != nil {
			log.Warnf("issue %s: %v", r.Key, err)
			continue
		}
		if !value.IsAbsent() {
			r.Original[name] = value
		}
	}
}

// currentLinks extracts the current "#n" references of one link category.
func currentLinks(issue *jiraexport.Issue, category string) []string {
	var refs []string
	for _, link := range issue.Fields.IssueLinks {
		var description string
		var other *jiraexport.Issue
		if link.OutwardIssue != nil {
			other = link.OutwardIssue
			description = fmt.Sprintf("This issue %s %s", link.Type.Outward, other.Key)
		} else if link.InwardIssue != nil {
			other = link.InwardIssue
			description = fmt.Sprintf("This issue %s %s", link.Type.Inward, other.Key)
		} else {
			continue
		}
		if linkedCategory, ref, ok := linkCategory(description); ok && linkedCategory == category {
			refs = append(refs, ref)
		}
	}
	return refs
}

// reconstructOriginals overrides Original for every field that has
// history, per the reconstruction rules: reverse replay for delta-tracked
// list fields, earliest-from extraction for everything else.
func (r *Reconstruction) reconstructOriginals(dict *fields.Dictionary, log *logrus.Entry) {
	for name, changes := range r.Timeline {
		switch {
		case name == "Attachment" || name == "Comment":
			// Not field state; handled separately.
		case dict.ReverseReplayed(name):
			r.Original[name] = r.reverseReplay(dict, name, changes, log)
		default:
			r.Original[name] = r.earliestFrom(dict, name, changes, log)
		}
	}
}

// reverseReplay walks the delta history backwards from the current value:
// undoing an add removes the item, undoing a remove puts it back. The
// current value lives in Original under the field's present-day name,
// while the timeline is keyed by its creation-time name.
func (r *Reconstruction) reverseReplay(dict *fields.Dictionary, name string, changes []Change, log *logrus.Entry) fields.Value {
	final := dict.FinalName(name)
	current := sets.New[string]()
	if value, ok := r.Original[final]; ok {
		current.Insert(value.Items()...)
		if final != name {
			delete(r.Original, final)
		}
	}
	for i := len(changes) - 1; i >= 0; i-- {
		value, added, ok := changes[i].Delta()
		if !ok {
			log.Warnf("issue %s: field %q history item at %s has both sides populated, expected a delta",
				r.Key, name, changes[i].At.Format(time.RFC3339))
			continue
		}
		if added {
			current.Delete(value)
		} else {
			current.Insert(value)
		}
	}
	if current.Len() == 0 {
		return fields.Absent()
	}
	return fields.List(sets.List(current)...)
}

// earliestFrom derives the creation-time value from the chronologically
// earliest change's from side.
func (r *Reconstruction) earliestFrom(dict *fields.Dictionary, name string, changes []Change, log *logrus.Entry) fields.Value {
	earliest := changes[0]

	if dict.IsList(name) && !dict.SpaceSeparated(name) {
		// Delta-tracked list that is not reverse replayed: multiple
		// simultaneous items are the expected shape at any timestamp.
		simultaneous := 0
		for _, change := range changes {
			if change.At.Equal(earliest.At) {
				simultaneous++
			}
		}
		if simultaneous == 1 {
			if _, _, ok := earliest.Delta(); !ok {
				log.Warnf("issue %s: field %q has a single non-delta history item, expected simultaneous deltas",
					r.Key, name)
			}
		}
	}

	if earliest.From == "" && earliest.FromText == "" {
		return fields.Absent()
	}

	switch {
	case name == "Status":
		return fields.Scalar(dict.StatusName(earliest.FromText))
	case dict.SpaceSeparated(name):
		return fields.List(strings.Fields(earliest.FromText)...)
	case dict.IsList(name):
		return fields.List(firstNonEmpty(earliest.FromText, earliest.From))
	default:
		return fields.Scalar(firstNonEmpty(earliest.FromText, earliest.From))
	}
}

// reconstructAttachments computes the attachments present since creation:
// current attachments with no add event, plus attachments whose only
// recorded event is a removal.
func (r *Reconstruction) reconstructAttachments(issue *jiraexport.Issue) {
	added := sets.New[string]()
	removed := make(map[string]string)
	for _, change := range r.Timeline["Attachment"] {
		if change.To != "" {
			added.Insert(change.To)
		} else if change.From != "" {
			removed[change.From] = change.FromText
		}
	}

	for _, attachment := range issue.Fields.Attachments {
		if !added.Has(attachment.ID) {
			r.OriginalAttachments = append(r.OriginalAttachments, AttachmentSeed{
				ID:       attachment.ID,
				Filename: attachment.Filename,
			})
		}
	}
	for id, filename := range removed {
		if !added.Has(id) {
			r.OriginalAttachments = append(r.OriginalAttachments, AttachmentSeed{ID: id, Filename: filename})
		}
	}
	sort.Slice(r.OriginalAttachments, func(i, j int) bool {
		return r.OriginalAttachments[i].ID < r.OriginalAttachments[j].ID
	})
}

// detectClone records the source issue when this issue was created as a
// clone of another one.
func (r *Reconstruction) detectClone(issue *jiraexport.Issue) {
	for _, link := range issue.Fields.IssueLinks {
		if link.OutwardIssue != nil && isCloneLink(link.Type.Outward) {
			if n := IssueRef(link.OutwardIssue.Key); n > 0 {
				r.CloneOf = n
				return
			}
		}
	}
}

// displayFor normalizes a changelog field identifier to a display name,
// reporting whether the identifier was recognized.
func displayFor(dict *fields.Dictionary, rawField string) (string, bool) {
	if alias, ok := changelogAliases[rawField]; ok {
		return alias, true
	}
	if dict.Known(rawField) {
		return dict.DisplayName(rawField), true
	}
	if lower := strings.ToLower(rawField); dict.Known(lower) {
		return dict.DisplayName(lower), true
	}
	if _, ok := dict.InternalKey(rawField); ok {
		return rawField, true
	}
	return rawField, false
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
