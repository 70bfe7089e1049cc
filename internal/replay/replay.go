package replay

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/tickethist/jira2git/internal/fields"
	"github.com/tickethist/jira2git/internal/gitrepo"
	"github.com/tickethist/jira2git/internal/history"
	"github.com/tickethist/jira2git/internal/identity"
	"github.com/tickethist/jira2git/internal/jiraexport"
	"github.com/tickethist/jira2git/internal/markup"
	"github.com/tickethist/jira2git/internal/record"
)

// gcInterval is how many commits pass between repository compactions.
const gcInterval = 100

// Committer is the version-control collaborator the replay drives.
type Committer interface {
	Stage(paths ...string) error
	Commit(message string, author, committer gitrepo.Signature, allowEmpty bool) error
	GC() error
}

// Counters summarizes one replay run.
type Counters struct {
	Created int
	Updated int
	Ignored int
	Commits int
}

// ignoredFields are already represented in the issue body or comments, or
// have no migrated equivalent; their changes never touch the record.
var ignoredFields = map[string]bool{
	"Assignee": true,
	"Comment":  true,
	"Reporter": true,
	"Workflow": true,
}

// excludedFields may legitimately leave a group with nothing to commit.
// An empty group whose events all target these is silently skipped; any
// other empty group is a defect in the data and aborts the batch.
var excludedFields = map[string]bool{
	"Assignee":   true,
	"Attachment": true,
	"Comment":    true,
	"Reporter":   true,
	"Workflow":   true,
	"Link":       true,
}

// Replayer replays the merged global event stream into the record store,
// one commit per (timestamp, author) group.
type Replayer struct {
	dict    *fields.Dictionary
	users   *identity.Directory
	records *record.Store
	repo    Committer
	convert *markup.Converter
	export  *jiraexport.Store
	log     *logrus.Entry

	recons   map[int]*history.Reconstruction
	state    map[int]map[string]fields.Value
	slots    map[int]map[string][]string
	missed   map[string]bool
	counters Counters
	skip     int
}

// New creates a replayer over the given collaborators.
func New(dict *fields.Dictionary, users *identity.Directory, records *record.Store,
	repo Committer, convert *markup.Converter, export *jiraexport.Store, log *logrus.Entry) *Replayer {
	return &Replayer{
		dict:    dict,
		users:   users,
		records: records,
		repo:    repo,
		convert: convert,
		export:  export,
		log:     log,
		state:   make(map[int]map[string]fields.Value),
		slots:   make(map[int]map[string][]string),
		missed:  make(map[string]bool),
	}
}

// SetSkip makes the replayer rebuild record state for the first n commit
// groups without committing them. Used to resume into a repository that
// already holds those commits; the record writes are deterministic, so the
// working tree converges on the committed state.
func (r *Replayer) SetSkip(n int) {
	r.skip = n
}

// Run replays every issue's reconstructed timeline, in one global
// chronological pass.
func (r *Replayer) Run(recons map[int]*history.Reconstruction) (Counters, error) {
	r.recons = recons
	events := BuildEvents(recons, r.dict)
	for _, group := range groupEvents(events) {
		if err := r.processGroup(group); err != nil {
			return r.counters, err
		}
	}
	return r.counters, nil
}

// removedMark remembers a just-processed attachment removal so that an
// immediately-following add of the same original filename is recognized as
// a replace.
type removedMark struct {
	valid    bool
	issue    int
	original string
	lineIdx  int
}

// groupState accumulates everything one (timestamp, author) group
// produces before its single commit.
type groupState struct {
	lines      []string
	changes    []fieldChange
	touched    sets.Set[int]
	seenFields []string
	deltas     map[deltaKey]*deltaAcc
	deltaOrder []deltaKey
	lastRemove removedMark
}

type deltaKey struct {
	issue int
	field string
}

type deltaAcc struct {
	adds    []string
	deletes []string
}

func (g *groupState) delta(issue int, field string) *deltaAcc {
	key := deltaKey{issue: issue, field: field}
	acc, ok := g.deltas[key]
	if !ok {
		acc = &deltaAcc{}
		g.deltas[key] = acc
		g.deltaOrder = append(g.deltaOrder, key)
	}
	return acc
}

func (r *Replayer) processGroup(group []Event) error {
	var rest []Event
	for _, event := range group {
		if event.Kind == KindCreate {
			if err := r.processCreate(event); err != nil {
				return err
			}
			continue
		}
		rest = append(rest, event)
	}
	if len(rest) == 0 {
		return nil
	}

	g := &groupState{
		touched: sets.New[int](),
		deltas:  make(map[deltaKey]*deltaAcc),
	}

	for _, event := range rest {
		switch event.Kind {
		case KindHistory:
			for _, change := range event.Changes {
				if err := r.applyChange(event, change, g); err != nil {
					return err
				}
			}
		case KindRenameField:
			r.applyRenameField(event, g)
		case KindRenameValues:
			r.applyRenameValues(event, g)
		case KindDeleteField:
			r.applyDeleteField(event, g)
		}
	}

	r.applyDeltas(g)

	for _, n := range sets.List(g.touched) {
		if err := r.records.Write(n, r.state[n], true); err != nil {
			return err
		}
	}

	message := synthesizeMessage(g.changes, g.lines)
	if message == "" {
		if r.allExcluded(g.seenFields) {
			return nil
		}
		return fmt.Errorf("unexpected empty update at %s by %s touching fields %q",
			rest[0].At.Format(time.RFC3339), rest[0].Author, g.seenFields)
	}

	return r.commit(message, rest[0].At, rest[0].Author)
}

// processCreate writes the full original issue state as the issue's first
// commit. A clone creation starts from a copy of the cloned issue's record
// with its link lists dropped.
func (r *Replayer) processCreate(event Event) error {
	recon := r.recons[event.Issue]

	values := make(map[string]fields.Value)
	message := fmt.Sprintf("Created initial data for issue #%d", event.Issue)
	if recon.CloneOf != 0 && r.records.Exists(recon.CloneOf) {
		cloned, err := r.records.Read(recon.CloneOf)
		if err != nil {
			return fmt.Errorf("failed to read record of clone source #%d: %w", recon.CloneOf, err)
		}
		for name, value := range cloned {
			if !r.dict.LinkCategory(name) {
				values[name] = value
			}
		}
		message = fmt.Sprintf("Created initial data for issue #%d (cloned from #%d)", event.Issue, recon.CloneOf)
	}

	for name, value := range recon.Original {
		if value.IsAbsent() {
			delete(values, name)
			continue
		}
		if r.dict.IsText(name) {
			pointer, err := r.writeText(event.Issue, name, value.String())
			if err != nil {
				return err
			}
			value = pointer
		}
		values[name] = value
	}

	r.state[event.Issue] = values
	if err := r.records.Write(event.Issue, values, true); err != nil {
		return err
	}

	for _, seed := range recon.OriginalAttachments {
		if _, err := r.addAttachment(event.Issue, recon.Key, seed.ID, seed.Filename); err != nil {
			return err
		}
	}

	r.counters.Created++
	return r.commit(message, event.At, event.Author)
}

// applyChange dispatches one field change against the pending record of
// its issue.
func (r *Replayer) applyChange(event Event, change history.Change, g *groupState) error {
	key := r.nameAt(change.Field, event.At)
	g.seenFields = append(g.seenFields, key)

	switch {
	case key == "Attachment":
		return r.applyAttachment(event, change, g)

	case ignoredFields[key]:
		r.counters.Ignored++
		return nil

	case r.dict.LinkCategory(key) || r.dict.ReverseReplayed(key):
		value, added, ok := change.Delta()
		if !ok {
			r.log.Warnf("issue #%d: field %q change at %s is not a delta, skipping",
				event.Issue, key, event.At.Format(time.RFC3339))
			return nil
		}
		if r.dict.LinkCategory(key) {
			if ref := history.IssueRef(value); ref > 0 {
				value = fmt.Sprintf("#%d", ref)
			}
		}
		acc := g.delta(event.Issue, key)
		if added {
			acc.adds = append(acc.adds, value)
		} else {
			acc.deletes = append(acc.deletes, value)
		}
		return nil

	case r.dict.IsText(key):
		return r.applyText(event, change, key, g)

	case r.dict.Ordered(key):
		r.applyOverwrite(event, change, key, g)
		return nil

	default:
		if !r.missed[key] {
			r.missed[key] = true
			r.log.Warnf("field %q missed while writing history (first seen on issue #%d)", key, event.Issue)
		}
		r.counters.Ignored++
		return nil
	}
}

func (r *Replayer) applyAttachment(event Event, change history.Change, g *groupState) error {
	recon := r.recons[event.Issue]

	if change.From != "" {
		name, renames, err := r.removeAttachment(event.Issue, recon.Key, change.From, change.FromText)
		if err != nil {
			r.log.Warnf("issue #%d: %v", event.Issue, err)
			return nil
		}
		g.lines = append(g.lines, fmt.Sprintf("Remove '%s' (Jira id %s) from issue #%d", name, change.From, event.Issue))
		mark := removedMark{valid: len(renames) == 0, issue: event.Issue, original: change.FromText, lineIdx: len(g.lines) - 1}
		g.lines = append(g.lines, renames...)
		g.lastRemove = mark
	}

	if change.To != "" {
		replace := g.lastRemove.valid && g.lastRemove.issue == event.Issue && g.lastRemove.original == change.ToText
		name, err := r.addAttachment(event.Issue, recon.Key, change.To, change.ToText)
		if err != nil {
			return err
		}
		if replace {
			g.lines[g.lastRemove.lineIdx] = fmt.Sprintf("Replace '%s' (Jira id %s) in issue #%d", name, change.To, event.Issue)
		} else {
			g.lines = append(g.lines, fmt.Sprintf("Add '%s' (Jira id %s) to issue #%d", name, change.To, event.Issue))
		}
		g.lastRemove = removedMark{}
	}

	return nil
}

func (r *Replayer) applyText(event Event, change history.Change, key string, g *groupState) error {
	state := r.stateFor(event.Issue)
	if state == nil {
		return nil
	}

	if change.ToText == "" {
		delete(state, key)
		g.changes = append(g.changes, fieldChange{Issue: event.Issue, Field: key, Kind: changeUnset})
	} else {
		pointer, err := r.writeText(event.Issue, key, change.ToText)
		if err != nil {
			return err
		}
		state[key] = pointer
		g.changes = append(g.changes, fieldChange{Issue: event.Issue, Field: key, Kind: changeUpdate, New: pointer})
	}
	g.touched.Insert(event.Issue)
	r.counters.Updated++
	return nil
}

func (r *Replayer) applyOverwrite(event Event, change history.Change, key string, g *groupState) {
	state := r.stateFor(event.Issue)
	if state == nil {
		return
	}

	switch {
	case change.ToText == "" && change.To == "":
		if r.dict.IsList(key) {
			state[key] = fields.List()
			g.changes = append(g.changes, fieldChange{Issue: event.Issue, Field: key, Kind: changeClear})
		} else {
			delete(state, key)
			g.changes = append(g.changes, fieldChange{Issue: event.Issue, Field: key, Kind: changeUnset})
		}
	case key == "Status":
		value := fields.Scalar(r.dict.StatusName(change.ToText))
		state[key] = value
		g.changes = append(g.changes, fieldChange{Issue: event.Issue, Field: key, Kind: changeUpdate, New: value})
	case r.dict.SpaceSeparated(key):
		value := fields.List(strings.Fields(change.ToText)...)
		state[key] = value
		g.changes = append(g.changes, fieldChange{Issue: event.Issue, Field: key, Kind: changeUpdate, New: value})
	case r.dict.IsList(key):
		value := fields.List(fields.Scalar(change.ToText).Items()...)
		state[key] = value
		g.changes = append(g.changes, fieldChange{Issue: event.Issue, Field: key, Kind: changeUpdate, New: value})
	default:
		value := fields.Scalar(firstNonEmptyString(change.ToText, change.To))
		state[key] = value
		g.changes = append(g.changes, fieldChange{Issue: event.Issue, Field: key, Kind: changeUpdate, New: value})
	}
	g.touched.Insert(event.Issue)
	r.counters.Updated++
}

// applyDeltas folds the accumulated list add/delete operations into their
// records: adds first, then deletes, de-duplicated (link lists by numeric
// reference rather than exact string).
func (r *Replayer) applyDeltas(g *groupState) {
	for _, key := range g.deltaOrder {
		acc := g.deltas[key]
		state := r.stateFor(key.issue)
		if state == nil {
			continue
		}

		existing := state[key.field].Items()
		merged := append(append([]string(nil), existing...), acc.adds...)
		merged = r.dedupe(key.field, merged)

		deletes := sets.New[string](acc.deletes...)
		deleteRefs := sets.New[int]()
		if r.dict.LinkCategory(key.field) {
			for _, del := range acc.deletes {
				if ref := history.IssueRef(del); ref > 0 {
					deleteRefs.Insert(ref)
				}
			}
		}
		var result []string
		for _, item := range merged {
			if deletes.Has(item) {
				continue
			}
			if ref := history.IssueRef(item); ref > 0 && deleteRefs.Has(ref) {
				continue
			}
			result = append(result, item)
		}

		var parts []string
		for _, del := range acc.deletes {
			parts = append(parts, fmt.Sprintf("Remove %s", del))
		}
		for _, add := range acc.adds {
			parts = append(parts, fmt.Sprintf("add %s", add))
		}

		value := fields.List(result...)
		state[key.field] = value
		g.changes = append(g.changes, fieldChange{
			Issue:  key.issue,
			Field:  key.field,
			Kind:   changeList,
			New:    value,
			Detail: strings.Join(parts, "; "),
		})
		g.touched.Insert(key.issue)
		r.counters.Updated++
	}
}

// dedupe removes duplicate list items, by normalized numeric reference for
// link lists and by exact string otherwise, keeping first occurrences.
func (r *Replayer) dedupe(field string, items []string) []string {
	seen := sets.New[string]()
	seenRefs := sets.New[int]()
	var out []string
	for _, item := range items {
		if r.dict.LinkCategory(field) {
			if ref := history.IssueRef(item); ref > 0 {
				if seenRefs.Has(ref) {
					continue
				}
				seenRefs.Insert(ref)
				out = append(out, item)
				continue
			}
		}
		if seen.Has(item) {
			continue
		}
		seen.Insert(item)
		out = append(out, item)
	}
	return out
}

func (r *Replayer) applyRenameField(event Event, g *groupState) {
	state := r.stateFor(event.Issue)
	if state == nil {
		return
	}
	value, ok := state[event.Rename.From]
	if !ok {
		return
	}
	delete(state, event.Rename.From)
	state[event.Rename.To] = value
	g.lines = append(g.lines, fmt.Sprintf("Rename field '%s' to '%s' in issue #%d", event.Rename.From, event.Rename.To, event.Issue))
	g.lastRemove = removedMark{}
	g.touched.Insert(event.Issue)
	r.counters.Updated++
}

func (r *Replayer) applyRenameValues(event Event, g *groupState) {
	state := r.stateFor(event.Issue)
	if state == nil {
		return
	}
	rename := event.ValueRename
	value, ok := state[rename.Field]
	if !ok {
		return
	}

	changed := false
	if value.IsList() {
		items := value.Items()
		for i, item := range items {
			if item == rename.From {
				items[i] = rename.To
				changed = true
			}
		}
		if changed {
			state[rename.Field] = fields.List(items...)
		}
	} else if value.String() == rename.From {
		state[rename.Field] = fields.Scalar(rename.To)
		changed = true
	}
	if !changed {
		return
	}

	g.lines = append(g.lines, fmt.Sprintf("Rename value '%s' to '%s' in field '%s' of issue #%d",
		rename.From, rename.To, rename.Field, event.Issue))
	g.lastRemove = removedMark{}
	g.touched.Insert(event.Issue)
	r.counters.Updated++
}

func (r *Replayer) applyDeleteField(event Event, g *groupState) {
	state := r.stateFor(event.Issue)
	if state == nil {
		return
	}
	if _, ok := state[event.DeleteField]; !ok {
		return
	}
	delete(state, event.DeleteField)
	g.lines = append(g.lines, fmt.Sprintf("Remove field '%s' from issue #%d", event.DeleteField, event.Issue))
	g.lastRemove = removedMark{}
	g.touched.Insert(event.Issue)
	r.counters.Updated++
}

// writeText converts one long-form field through the markup converter into
// its companion file and returns the record value pointing at it.
func (r *Replayer) writeText(issue int, field, text string) (fields.Value, error) {
	path := r.records.TextPath(issue, field)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fields.Absent(), fmt.Errorf("failed to create text directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(r.convert.ToMarkdown(text)), 0644); err != nil {
		return fields.Absent(), fmt.Errorf("failed to write text file: %w", err)
	}
	rel, err := filepath.Rel(r.records.Root(), path)
	if err != nil {
		return fields.Absent(), err
	}
	return fields.Scalar(filepath.ToSlash(rel)), nil
}

// stateFor returns the pending record of one issue, loading it from disk
// on first touch. A change arriving before the issue's creation event is a
// data anomaly: it is reported and dropped.
func (r *Replayer) stateFor(n int) map[string]fields.Value {
	if state, ok := r.state[n]; ok {
		return state
	}
	if !r.records.Exists(n) {
		r.log.Warnf("change targets issue #%d before its record exists, skipping", n)
		return nil
	}
	state, err := r.records.Read(n)
	if err != nil {
		r.log.WithError(err).Warnf("failed to load record of issue #%d", n)
		return nil
	}
	r.state[n] = state
	return state
}

// nameAt maps a creation-time field name to the name the field carried at
// the change's own time.
func (r *Replayer) nameAt(name string, t time.Time) string {
	return r.dict.ResolveAt(r.dict.FinalName(name), t)
}

func (r *Replayer) commit(message string, at time.Time, author string) error {
	if r.skip > 0 {
		r.skip--
		return nil
	}

	name, email := r.users.Signature(author)
	sig := gitrepo.Signature{Name: name, Email: email, When: at}

	if err := r.repo.Stage(); err != nil {
		return fmt.Errorf("failed to stage: %w", err)
	}

	err := r.repo.Commit(message, sig, sig, false)
	if err != nil && safeToForce(message) {
		r.log.WithError(err).Warnf("commit failed, retrying as allow-empty: %s", firstLine(message))
		err = r.repo.Commit(message, sig, sig, true)
	}
	if err != nil {
		return fmt.Errorf("failed to commit %q: %w", firstLine(message), err)
	}

	r.counters.Commits++
	if r.counters.Commits%gcInterval == 0 {
		if err := r.repo.GC(); err != nil {
			r.log.WithError(err).Warn("repository compaction failed")
		}
	}
	return nil
}

// allExcluded decides whether a group that produced nothing to commit is
// legitimate. Known-but-unmigrated fields (already warned about through
// r.missed) leave nothing behind on purpose, so they never make an empty
// group fatal.
func (r *Replayer) allExcluded(fieldNames []string) bool {
	for _, name := range fieldNames {
		if excludedFields[name] || r.missed[name] || strings.HasPrefix(name, "#") {
			continue
		}
		return false
	}
	return true
}

func firstLine(message string) string {
	line, _, _ := strings.Cut(message, "\n")
	return line
}

func firstNonEmptyString(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

func (c Counters) String() string {
	return fmt.Sprintf("created %d, updated %d, ignored %d, commits %d", c.Created, c.Updated, c.Ignored, c.Commits)
}
