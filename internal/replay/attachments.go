package replay

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// slotName computes the on-disk filename of the attachment occupying
// position pos of one original filename: "x.png", then "x.1.png",
// "x.2.png" for later arrivals sharing the name.
func slotName(original string, pos int) string {
	if pos == 0 {
		return original
	}
	ext := filepath.Ext(original)
	base := strings.TrimSuffix(original, ext)
	return fmt.Sprintf("%s.%d%s", base, pos, ext)
}

// slotsFor returns the filename slot table of one issue, creating it on
// first use.
func (r *Replayer) slotsFor(issue int) map[string][]string {
	slots, ok := r.slots[issue]
	if !ok {
		slots = make(map[string][]string)
		r.slots[issue] = slots
	}
	return slots
}

// addAttachment materializes one attachment under a collision-free name
// and returns the on-disk name it received.
func (r *Replayer) addAttachment(issue int, issueKey, id, original string) (string, error) {
	slots := r.slotsFor(issue)
	pos := len(slots[original])
	name := slotName(original, pos)
	slots[original] = append(slots[original], id)

	dir := r.records.AttachmentsDir(issueKey)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create attachment directory: %w", err)
	}

	target := filepath.Join(dir, name)
	payload := filepath.Join(r.export.AttachmentCacheDir(issueKey), id)
	if err := copyFile(payload, target); err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to copy attachment payload: %w", err)
		}
		// No payload in the export cache: keep the slot with an empty
		// placeholder so the history still shows the file existed.
		r.log.Warnf("issue %s: no payload for attachment %s (%s), writing empty placeholder", issueKey, id, original)
		if err := os.WriteFile(target, nil, 0644); err != nil {
			return "", fmt.Errorf("failed to write attachment placeholder: %w", err)
		}
	}
	return name, nil
}

// removeAttachment deletes one attachment and renumbers any later
// attachments sharing its original filename so the lowest suffixes stay
// occupied. It returns the on-disk name the attachment had and the rename
// commit lines produced by renumbering.
func (r *Replayer) removeAttachment(issue int, issueKey, id, original string) (string, []string, error) {
	slots := r.slotsFor(issue)
	occupants := slots[original]
	pos := -1
	for i, occupant := range occupants {
		if occupant == id {
			pos = i
			break
		}
	}
	if pos == -1 {
		return "", nil, fmt.Errorf("attachment %s (%s) is not present on issue %s", id, original, issueKey)
	}

	dir := r.records.AttachmentsDir(issueKey)
	name := slotName(original, pos)
	if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
		return "", nil, fmt.Errorf("failed to remove attachment %s: %w", name, err)
	}

	var renames []string
	for i := pos + 1; i < len(occupants); i++ {
		oldName := slotName(original, i)
		newName := slotName(original, i-1)
		if err := os.Rename(filepath.Join(dir, oldName), filepath.Join(dir, newName)); err != nil {
			return "", nil, fmt.Errorf("failed to renumber attachment %s: %w", oldName, err)
		}
		renames = append(renames, fmt.Sprintf("Rename '%s' to '%s' in issue #%d", oldName, newName, issue))
	}

	slots[original] = append(occupants[:pos], occupants[pos+1:]...)
	if len(slots[original]) == 0 {
		delete(slots, original)
	}
	return name, renames, nil
}

func copyFile(source, target string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s: %w", source, err)
	}
	return out.Close()
}
