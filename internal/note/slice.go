package note

// Slice returns the byte range of the note body addressed by an anchor.
// A nil anchor covers the whole body. A heading anchor runs from the
// heading line to the next heading of the same or higher level, or to the
// end of the body. A block anchor is the labeled block's exact range,
// which for fences includes the closing fence line. ok is false when the
// anchor names nothing in this note.
func (n *Note) Slice(a *Anchor) (Range, bool) {
	if a == nil {
		return Range{Start: 0, End: len(n.Body)}, true
	}
	switch a.Kind {
	case AnchorHeading:
		h := n.HeadingBySlug(a.Value)
		if h == nil {
			return Range{}, false
		}
		end := len(n.Body)
		for _, b := range n.Blocks {
			if b.Kind == BlockHeading && b.Range.Start > h.Range.Start && b.HeadingLevel <= h.HeadingLevel {
				end = b.Range.Start
				break
			}
		}
		return Range{Start: h.Range.Start, End: end}, true
	case AnchorBlock:
		b := n.BlockByLabel(a.Value)
		if b == nil {
			return Range{}, false
		}
		return b.Range, true
	}
	return Range{}, false
}
