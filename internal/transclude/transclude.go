// Package transclude expands ![[...]] embeds by splicing the referenced
// note content, or the anchored slice of it, into the host body.
package transclude

import (
	"strings"

	"github.com/starford/hypo/internal/note"
)

// Resolver expands embeds against a lookup function, so the same logic
// runs over a fully parsed batch (export) or a lazily loaded vault.
// A nil result from lookup means the id does not exist.
type Resolver struct {
	lookup func(id string) *note.Note
}

func New(lookup func(id string) *note.Note) *Resolver {
	return &Resolver{lookup: lookup}
}

// ExpandNote returns the note body with every embed replaced by the
// referenced content, recursively. Unresolvable embeds are replaced by
// inline quote markers rather than failing the whole expansion.
func (r *Resolver) ExpandNote(n *note.Note) string {
	visiting := map[string]struct{}{n.ID: {}}
	return r.expand(n, note.Range{Start: 0, End: len(n.Body)}, visiting)
}

// expand renders the span of n's body, splicing in the embeds whose
// tokens fall entirely inside it. Tokens inside code fences were never
// scanned as refs, so they pass through as literal text.
func (r *Resolver) expand(n *note.Note, span note.Range, visiting map[string]struct{}) string {
	var embeds []note.Ref
	for _, ref := range n.Refs {
		if ref.Embed && ref.Range.Start >= span.Start && ref.Range.End <= span.End {
			embeds = append(embeds, ref)
		}
	}
	if len(embeds) == 0 {
		return n.Body[span.Start:span.End]
	}

	var b strings.Builder
	pos := span.Start
	for _, ref := range embeds {
		b.WriteString(n.Body[pos:ref.Range.Start])
		b.WriteString(r.resolveEmbed(ref, visiting))
		pos = ref.Range.End
	}
	b.WriteString(n.Body[pos:span.End])
	return b.String()
}

// resolveEmbed produces the replacement text for one embed token. The
// visiting set holds the ids on the current expansion path; hitting one
// again is a cycle and stops the recursion with a marker.
func (r *Resolver) resolveEmbed(ref note.Ref, visiting map[string]struct{}) string {
	target := r.lookup(ref.Target)
	if target == nil {
		return "> **Hypo:** missing note `" + ref.Target + "`"
	}
	if _, ok := visiting[ref.Target]; ok {
		return "> **Hypo:** transclusion cycle `" + ref.Target + "`"
	}
	span, ok := target.Slice(ref.Anchor)
	if !ok {
		return "> **Hypo:** missing anchor `" + ref.Target + ref.Anchor.String() + "`"
	}

	visiting[ref.Target] = struct{}{}
	out := r.expand(target, span, visiting)
	delete(visiting, ref.Target)
	return out
}
