// Package lint validates the vault's reference graph: every wiki token
// must point at an existing note, anchored references at an existing
// heading slug or block label, and frontmatter ids at their filenames.
package lint

import (
	"fmt"
	"sort"

	"github.com/starford/hypo/internal/note"
	"github.com/starford/hypo/internal/vault"
)

// Finding severities. Only error findings affect the lint exit status.
const (
	SeverityError = "error"
	SeverityWarn  = "warn"
	SeverityInfo  = "info"
)

// Finding is one diagnostic, attached to a note and optionally to a byte
// range within its file (frontmatter included in the offsets).
type Finding struct {
	NoteID   string      `json:"note_id"`
	Severity string      `json:"severity"`
	Message  string      `json:"message"`
	Range    *note.Range `json:"range,omitempty"`
}

// HasErrors reports whether any finding carries error severity.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Run lints every note in the vault. Parse failures become findings for
// the affected note and do not stop the batch. The returned findings are
// sorted by note id, then by position within the file.
func Run(v *vault.Vault) ([]Finding, error) {
	notes, fails, err := v.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("lint: %w", err)
	}

	// Every file on disk claims its id, parseable or not; a link to a
	// broken note is not a dangling link.
	exists := make(map[string]bool, len(notes)+len(fails))
	for id := range notes {
		exists[id] = true
	}
	for id := range fails {
		exists[id] = true
	}

	var findings []Finding
	for id, err := range fails {
		findings = append(findings, Finding{
			NoteID:   id,
			Severity: SeverityError,
			Message:  fmt.Sprintf("Parse failure: %v", err),
		})
	}

	ids := make([]string, 0, len(notes))
	for id := range notes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	aliasOwner := make(map[string]string)
	for _, id := range ids {
		n := notes[id]
		findings = append(findings, lintNote(n, notes, exists)...)
		for _, alias := range n.Aliases() {
			if owner, taken := aliasOwner[alias]; taken {
				findings = append(findings, Finding{
					NoteID:   id,
					Severity: SeverityError,
					Message:  fmt.Sprintf("Duplicate alias %q also used by %s", alias, owner),
				})
				continue
			}
			aliasOwner[alias] = id
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.NoteID != b.NoteID {
			return a.NoteID < b.NoteID
		}
		as, bs := rangeStart(a.Range), rangeStart(b.Range)
		if as != bs {
			return as < bs
		}
		return a.Message < b.Message
	})
	return findings, nil
}

func rangeStart(r *note.Range) int {
	if r == nil {
		return -1
	}
	return r.Start
}

func lintNote(n *note.Note, notes map[string]*note.Note, exists map[string]bool) []Finding {
	var out []Finding

	if raw, ok := n.Meta["id"]; ok {
		if fmID, ok := raw.(string); ok && fmID != n.ID {
			out = append(out, Finding{
				NoteID:   n.ID,
				Severity: SeverityError,
				Message:  fmt.Sprintf("Frontmatter id %q does not match filename %q", fmID, n.ID),
			})
		}
	}

	for _, ref := range n.Refs {
		r := &note.Range{
			Start: n.BodyStart + ref.Range.Start,
			End:   n.BodyStart + ref.Range.End,
		}
		if !exists[ref.Target] {
			out = append(out, Finding{
				NoteID:   n.ID,
				Severity: SeverityError,
				Message:  fmt.Sprintf("Unknown note id %s", ref.Target),
				Range:    r,
			})
			continue
		}
		if ref.Anchor == nil {
			continue
		}
		target, ok := notes[ref.Target]
		if !ok {
			// Target exists on disk but failed to parse; its anchors are
			// unknowable, which the parse finding already covers.
			continue
		}
		if _, ok := target.Slice(ref.Anchor); !ok {
			out = append(out, Finding{
				NoteID:   n.ID,
				Severity: SeverityError,
				Message:  fmt.Sprintf("Unknown anchor for %s", ref.Target),
				Range:    r,
			})
		}
	}
	return out
}
