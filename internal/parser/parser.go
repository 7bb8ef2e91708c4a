// Package parser turns raw vault files into structured notes: frontmatter,
// body blocks with heading slugs and ^labels, and wiki references.
package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/hypo/internal/note"
)

var (
	headingRe    = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	listItemRe   = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+`)
	labelLineRe  = regexp.MustCompile(`^\^[\w-]+$`)
	refRe        = regexp.MustCompile(`(!?)\[\[([^\[\]\n]+?)\]\]`)
	inlineCodeRe = regexp.MustCompile("`[^`\n]*`")
)

// Parse parses a raw vault file into a Note. Malformed frontmatter
// (unterminated block or invalid YAML) is a structural error; callers
// running over a batch report it per note and continue.
func Parse(id string, raw []byte) (*note.Note, error) {
	meta, body, bodyStart, err := SplitFrontmatter(raw)
	if err != nil {
		return nil, err
	}
	blocks := scanBlocks(body)
	return &note.Note{
		ID:        id,
		Meta:      meta,
		Body:      body,
		BodyStart: bodyStart,
		Title:     deriveTitle(meta, body),
		Blocks:    blocks,
		Refs:      scanRefs(body, blocks),
		HasMath:   hasMath(body),
	}, nil
}

// SplitFrontmatter separates the YAML frontmatter block (between ---
// delimiter lines at the top of the file) from the body. It returns the
// decoded metadata, the body text, and the byte offset of the body within
// raw. Blank lines between the closing delimiter and the body are consumed
// into the offset.
func SplitFrontmatter(raw []byte) (map[string]any, string, int, error) {
	s := string(raw)

	// Tolerate blank lines before the opening delimiter.
	open := 0
	for open < len(s) && (s[open] == '\n' || s[open] == '\r') {
		open++
	}
	rest := s[open:]
	if !strings.HasPrefix(rest, "---\n") && !strings.HasPrefix(rest, "---\r\n") {
		return nil, s, 0, nil
	}

	// Walk lines after the opening delimiter looking for the closing one.
	pos := open + strings.IndexByte(rest, '\n') + 1
	yamlStart := pos
	for pos <= len(s) {
		lineEnd := strings.IndexByte(s[pos:], '\n')
		var line string
		var next int
		if lineEnd < 0 {
			line = s[pos:]
			next = len(s)
		} else {
			line = s[pos : pos+lineEnd]
			next = pos + lineEnd + 1
		}
		if strings.TrimRight(line, " \t\r") == "---" {
			var meta map[string]any
			if err := yaml.Unmarshal([]byte(s[yamlStart:pos]), &meta); err != nil {
				return nil, "", 0, fmt.Errorf("parser: frontmatter yaml: %w", err)
			}
			// Consume blank lines between the delimiter and the body.
			for next < len(s) && (s[next] == '\n' || s[next] == '\r') {
				next++
			}
			return meta, s[next:], next, nil
		}
		if lineEnd < 0 {
			break
		}
		pos = next
	}
	return nil, "", 0, errors.New("parser: unterminated frontmatter")
}

// ScanBody runs the block and reference passes over bare body text with
// no frontmatter handling. The formatter and exporter use it to rescan
// text they have just rewritten.
func ScanBody(body string) ([]note.Block, []note.Ref) {
	blocks := scanBlocks(body)
	return blocks, scanRefs(body, blocks)
}

// scanBlocks performs a line-based pass over the body, classifying
// headings, fenced code blocks, lists, and paragraphs with byte ranges.
// Heading slugs are de-duplicated with numeric suffixes; ^labels attach
// to their heading, fence info string, or nearest preceding block.
func scanBlocks(body string) []note.Block {
	var blocks []note.Block
	slugSeen := make(map[string]int)
	var open *note.Block

	flush := func() {
		if open != nil {
			blocks = append(blocks, *open)
			open = nil
		}
	}

	pos := 0
	for pos < len(body) {
		lineEnd := strings.IndexByte(body[pos:], '\n')
		var line string
		var next int
		if lineEnd < 0 {
			line = body[pos:]
			next = len(body)
		} else {
			line = body[pos : pos+lineEnd]
			next = pos + lineEnd + 1
		}
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "```"):
			flush()
			info := strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			fenceEnd := len(body)
			scan := next
			for scan < len(body) {
				le := strings.IndexByte(body[scan:], '\n')
				var l string
				var n int
				if le < 0 {
					l = body[scan:]
					n = len(body)
				} else {
					l = body[scan : scan+le]
					n = scan + le + 1
				}
				if strings.HasPrefix(strings.TrimSpace(l), "```") {
					fenceEnd = n
					break
				}
				scan = n
			}
			b := note.Block{
				Kind:      note.BlockFence,
				Range:     note.Range{Start: pos, End: fenceEnd},
				FenceInfo: info,
			}
			for _, w := range strings.Fields(info) {
				if len(w) > 1 && w[0] == '^' {
					b.Label = w[1:]
					break
				}
			}
			blocks = append(blocks, b)
			pos = fenceEnd
			continue

		case headingRe.MatchString(line):
			flush()
			m := headingRe.FindStringSubmatch(line)
			level := len(m[1])
			text := strings.TrimSpace(m[2])
			label := ""
			if words := strings.Fields(text); len(words) > 0 {
				last := words[len(words)-1]
				if len(last) > 1 && last[0] == '^' {
					label = last[1:]
					text = strings.TrimSpace(strings.TrimSuffix(text, last))
				}
			}
			slug := note.Slugify(text)
			if n := slugSeen[slug]; n > 0 {
				slugSeen[slug] = n + 1
				slug = fmt.Sprintf("%s-%d", slug, n)
			} else {
				slugSeen[slug] = 1
			}
			blocks = append(blocks, note.Block{
				Kind:         note.BlockHeading,
				Range:        note.Range{Start: pos, End: next},
				Label:        label,
				HeadingText:  text,
				HeadingLevel: level,
				HeadingSlug:  slug,
			})

		case trimmed == "":
			flush()

		case labelLineRe.MatchString(trimmed):
			// A line holding only ^label names the block above it.
			flush()
			if len(blocks) > 0 {
				blocks[len(blocks)-1].Label = trimmed[1:]
			}

		default:
			if open == nil {
				kind := note.BlockParagraph
				if listItemRe.MatchString(line) {
					kind = note.BlockList
				}
				open = &note.Block{Kind: kind, Range: note.Range{Start: pos}}
			}
			open.Range.End = next
		}
		pos = next
	}
	flush()
	return blocks
}

// scanRefs extracts [[...]] and ![[...]] tokens from the body, skipping
// tokens inside fenced code blocks and inline code spans.
func scanRefs(body string, blocks []note.Block) []note.Ref {
	var fences []note.Range
	for _, b := range blocks {
		if b.Kind == note.BlockFence {
			fences = append(fences, b.Range)
		}
	}
	inFence := func(off int) bool {
		for _, r := range fences {
			if off >= r.Start && off < r.End {
				return true
			}
		}
		return false
	}
	var codeSpans [][]int
	for _, m := range inlineCodeRe.FindAllStringIndex(body, -1) {
		if !inFence(m[0]) {
			codeSpans = append(codeSpans, m)
		}
	}
	inCode := func(off int) bool {
		for _, m := range codeSpans {
			if off >= m[0] && off < m[1] {
				return true
			}
		}
		return false
	}

	var out []note.Ref
	for _, m := range refRe.FindAllStringSubmatchIndex(body, -1) {
		start, end := m[0], m[1]
		if inFence(start) || inCode(start) {
			continue
		}
		r := parseTarget(body[m[4]:m[5]])
		if r.Target == "" {
			continue
		}
		r.Embed = m[3] > m[2]
		r.Range = note.Range{Start: start, End: end}
		out = append(out, r)
	}
	return out
}

// parseTarget decodes the inner text of a wiki token: "id", "id#anchor",
// "id|display", and the "rel:name|id|display" relation form.
func parseTarget(inner string) note.Ref {
	var r note.Ref
	if strings.HasPrefix(inner, "rel:") {
		head, rest, found := strings.Cut(inner, "|")
		if !found {
			return r // relation with no target
		}
		r.Rel = strings.TrimSpace(strings.TrimPrefix(head, "rel:"))
		inner = rest
	}
	targetPart, display, _ := strings.Cut(inner, "|")
	r.Display = strings.TrimSpace(display)
	r.Target, r.Anchor = note.ParseRef(targetPart)
	return r
}

// deriveTitle picks the display title: core/title, then title, then the
// first heading, then the first non-empty body line.
func deriveTitle(meta map[string]any, body string) string {
	for _, key := range []string{"core/title", "title"} {
		if v, ok := meta[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	for _, line := range strings.Split(body, "\n") {
		s := strings.TrimSpace(line)
		if s == "" {
			continue
		}
		if strings.HasPrefix(s, "#") {
			return strings.TrimSpace(strings.TrimLeft(s, "#"))
		}
		return s
	}
	return ""
}

// hasMath reports whether the body contains an unescaped $ delimiter.
func hasMath(body string) bool {
	for i := 0; i < len(body); i++ {
		if body[i] == '$' && (i == 0 || body[i-1] != '\\') {
			return true
		}
	}
	return false
}
