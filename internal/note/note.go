// Package note defines the domain types for hypo: parsed notes, their
// structural blocks, and the wiki references between them.
package note

import "strings"

// Range is a byte span into a note body.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Anchor kinds.
const (
	AnchorHeading = "heading"
	AnchorBlock   = "block"
)

// Anchor narrows a reference to a heading (by slug) or to a ^labeled block.
type Anchor struct {
	Kind  string `json:"kind"`
	Value string `json:"value"` // heading slug text, or label without the caret
}

// String renders the anchor as written in a link: #slug or #^label.
func (a Anchor) String() string {
	if a.Kind == AnchorBlock {
		return "#^" + a.Value
	}
	return "#" + a.Value
}

// Block kinds.
const (
	BlockHeading   = "heading"
	BlockFence     = "fence"
	BlockList      = "list"
	BlockParagraph = "paragraph"
)

// Block is one structural region of a note body.
type Block struct {
	Kind  string
	Range Range
	Label string // ^label without the caret, empty when unlabeled

	// Heading fields, set when Kind == BlockHeading.
	HeadingText  string
	HeadingLevel int
	HeadingSlug  string

	// FenceInfo is the info string of a fenced code block.
	FenceInfo string
}

// Ref is a single wiki token ([[...]] or ![[...]]) found in a note body.
type Ref struct {
	Target  string  // raw target id as written
	Anchor  *Anchor // nil when the whole note is referenced
	Display string  // text after |, empty when absent
	Rel     string  // relation name from rel:name|id|text, empty otherwise
	Embed   bool    // true for ![[...]] transclusions
	Range   Range   // token span within the body
}

// Token renders the reference in canonical wiki form, with any stray
// whitespace from the source trimmed away.
func (r Ref) Token() string {
	var b strings.Builder
	if r.Embed {
		b.WriteByte('!')
	}
	b.WriteString("[[")
	if r.Rel != "" {
		b.WriteString("rel:")
		b.WriteString(r.Rel)
		b.WriteByte('|')
	}
	b.WriteString(r.Target)
	if r.Anchor != nil {
		b.WriteString(r.Anchor.String())
	}
	if r.Display != "" {
		b.WriteByte('|')
		b.WriteString(r.Display)
	}
	b.WriteString("]]")
	return b.String()
}

// Note is a parsed vault file.
type Note struct {
	ID        string
	Meta      map[string]any
	Body      string // text after the frontmatter block
	BodyStart int    // byte offset of Body within the raw file
	Title     string
	Blocks    []Block
	Refs      []Ref
	HasMath   bool
}

// Embeds returns the transclusion refs in body order.
func (n *Note) Embeds() []Ref {
	var out []Ref
	for _, r := range n.Refs {
		if r.Embed {
			out = append(out, r)
		}
	}
	return out
}

// Aliases returns the core/aliases metadata as a string slice. A scalar
// value is treated as a single alias.
func (n *Note) Aliases() []string {
	raw, ok := n.Meta["core/aliases"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// HeadingBySlug returns the heading block matching the given anchor text.
// The anchor is slugified first, so "Some Heading" and "some-heading" both
// match. Returns nil when no heading matches.
func (n *Note) HeadingBySlug(anchor string) *Block {
	want := Slugify(anchor)
	for i := range n.Blocks {
		b := &n.Blocks[i]
		if b.Kind == BlockHeading && b.HeadingSlug == want {
			return b
		}
	}
	return nil
}

// BlockByLabel returns the block carrying ^label (without caret), or nil.
func (n *Note) BlockByLabel(label string) *Block {
	for i := range n.Blocks {
		if n.Blocks[i].Label == label {
			return &n.Blocks[i]
		}
	}
	return nil
}

// ParseRef splits a reference string of the form "id", "id#heading-slug",
// or "id#^label" into its id and optional anchor.
func ParseRef(ref string) (string, *Anchor) {
	id, frag, found := strings.Cut(ref, "#")
	id = strings.TrimSpace(id)
	if !found {
		return id, nil
	}
	frag = strings.TrimSpace(frag)
	if frag == "" {
		return id, nil
	}
	if rest, ok := strings.CutPrefix(frag, "^"); ok {
		return id, &Anchor{Kind: AnchorBlock, Value: rest}
	}
	return id, &Anchor{Kind: AnchorHeading, Value: frag}
}

// LineNumber returns the 1-based line number containing byte offset off.
func LineNumber(s string, off int) int {
	if off > len(s) {
		off = len(s)
	}
	if off < 0 {
		off = 0
	}
	return 1 + strings.Count(s[:off], "\n")
}

// ContextLines returns the span [start,end) widened to whole lines plus n
// lines of context on each side.
func ContextLines(s string, start, end, n int) string {
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if end < start {
		end = start
	}

	lo := start
	for i := 0; i <= n; i++ {
		lo = strings.LastIndexByte(s[:lo], '\n')
		if lo < 0 {
			lo = 0
			break
		}
	}
	if lo > 0 {
		lo++ // step past the newline itself
	}

	hi := end
	for i := 0; i <= n; i++ {
		off := strings.IndexByte(s[hi:], '\n')
		if off < 0 {
			hi = len(s)
			break
		}
		hi += off + 1
	}

	return strings.TrimRight(s[lo:hi], "\n")
}
