// Package replay merges all issues' reconstructed timelines into one
// global chronological event stream and replays it, commit by commit, into
// the git-backed record store.
package replay

import (
	"sort"
	"time"

	"github.com/tickethist/jira2git/internal/fields"
	"github.com/tickethist/jira2git/internal/history"
	"github.com/tickethist/jira2git/internal/jiraexport"
)

// Kind distinguishes event types in the global stream.
type Kind int

const (
	// KindCreate is the synthetic issue-creation event.
	KindCreate Kind = iota
	// KindHistory carries one changelog entry's field changes.
	KindHistory
	// KindRenameField is a virtual global field rename.
	KindRenameField
	// KindRenameValues is a virtual global value rename on one field.
	KindRenameValues
	// KindDeleteField is a virtual global field deletion.
	KindDeleteField
)

// virtualAuthor is the identity token virtual events are recorded under.
const virtualAuthor = "tracker"

// Event is one replayable unit: something that happened to one issue at
// one instant, by one author.
type Event struct {
	At     time.Time
	Author string
	User   *jiraexport.User
	Issue  int
	Kind   Kind

	Changes     []history.Change   // KindHistory
	Rename      fields.Rename      // KindRenameField
	ValueRename fields.ValueRename // KindRenameValues
	DeleteField string             // KindDeleteField
}

// BuildEvents expands every issue's reconstruction plus the dictionary's
// global rename/deletion history into one sorted event stream. Virtual
// events are expanded per issue number so they replay identically for
// every issue.
func BuildEvents(recons map[int]*history.Reconstruction, dict *fields.Dictionary) []Event {
	var events []Event

	numbers := make([]int, 0, len(recons))
	for n := range recons {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	for _, n := range numbers {
		recon := recons[n]
		events = append(events, Event{
			At:     recon.CreatedAt,
			Author: recon.Creator.Ref(),
			User:   recon.Creator,
			Issue:  n,
			Kind:   KindCreate,
		})

		type slot struct {
			at     time.Time
			author string
		}
		grouped := make(map[slot]*Event)
		var order []slot
		for _, changes := range recon.Timeline {
			for _, change := range changes {
				key := slot{at: change.At, author: change.Author.Ref()}
				event, ok := grouped[key]
				if !ok {
					event = &Event{
						At:     change.At,
						Author: key.author,
						User:   change.Author,
						Issue:  n,
						Kind:   KindHistory,
					}
					grouped[key] = event
					order = append(order, key)
				}
				event.Changes = append(event.Changes, change)
			}
		}
		sort.Slice(order, func(i, j int) bool {
			if !order[i].at.Equal(order[j].at) {
				return order[i].at.Before(order[j].at)
			}
			return order[i].author < order[j].author
		})
		for _, key := range order {
			event := grouped[key]
			sort.SliceStable(event.Changes, func(i, j int) bool {
				return event.Changes[i].Field < event.Changes[j].Field
			})
			events = append(events, *event)
		}
	}

	for _, rename := range dict.Renames() {
		for _, n := range numbers {
			events = append(events, Event{
				At: rename.At, Author: virtualAuthor, Issue: n,
				Kind: KindRenameField, Rename: rename,
			})
		}
	}
	for _, rename := range dict.ValueRenames() {
		for _, n := range numbers {
			events = append(events, Event{
				At: rename.At, Author: virtualAuthor, Issue: n,
				Kind: KindRenameValues, ValueRename: rename,
			})
		}
	}
	for _, deletion := range dict.Deletions() {
		for _, n := range numbers {
			events = append(events, Event{
				At: deletion.At, Author: virtualAuthor, Issue: n,
				Kind: KindDeleteField, DeleteField: deletion.Field,
			})
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].At.Equal(events[j].At) {
			return events[i].At.Before(events[j].At)
		}
		if events[i].Author != events[j].Author {
			return events[i].Author < events[j].Author
		}
		return events[i].Issue < events[j].Issue
	})

	return events
}

// groupEvents splits the sorted stream into (timestamp, author) groups:
// each group becomes at most one commit.
func groupEvents(events []Event) [][]Event {
	var groups [][]Event
	for i := 0; i < len(events); {
		j := i + 1
		for j < len(events) && events[j].At.Equal(events[i].At) && events[j].Author == events[i].Author {
			j++
		}
		groups = append(groups, events[i:j])
		i = j
	}
	return groups
}
