// Package format normalizes note files: frontmatter in canonical key
// order with the id repaired to the filename stem, wiki tokens re-rendered
// without stray spaces, and whitespace hygiene over the body.
package format

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/starford/hypo/internal/note"
	"github.com/starford/hypo/internal/parser"
)

// Change categories reported in Result.Changes.
const (
	ChangeFrontmatter = "frontmatter"
	ChangeLinks       = "links"
	ChangeWhitespace  = "whitespace"
)

// Result describes the canonical form of one note and how it differs
// from the input.
type Result struct {
	NoteID  string   `json:"note_id"`
	Changed bool     `json:"changed"`
	Changes []string `json:"changes,omitempty"`
	Output  []byte   `json:"-"`
}

// FormatNote computes the canonical rendering of one raw note file. It
// never writes; callers decide what to do with Output. Formatting the
// output again is a fixed point.
func FormatNote(id string, raw []byte) (Result, error) {
	meta, body, bodyStart, err := parser.SplitFrontmatter(raw)
	if err != nil {
		return Result{}, fmt.Errorf("format: %s: %w", id, err)
	}

	cleaned := normalizeWhitespace(body)
	linked := rewriteTokens(cleaned)

	if meta == nil {
		meta = map[string]any{}
	}
	meta["id"] = id
	out, err := parser.EncodeFile(meta, linked)
	if err != nil {
		return Result{}, fmt.Errorf("format: %s: %w", id, err)
	}

	res := Result{NoteID: id, Output: out}
	// EncodeFile appends the body verbatim, so the head is everything
	// before it.
	newHead := out[:len(out)-len(linked)]
	if !bytes.Equal(newHead, raw[:bodyStart]) {
		res.Changes = append(res.Changes, ChangeFrontmatter)
	}
	if linked != cleaned {
		res.Changes = append(res.Changes, ChangeLinks)
	}
	if cleaned != body {
		res.Changes = append(res.Changes, ChangeWhitespace)
	}
	res.Changed = len(res.Changes) > 0
	return res, nil
}

// normalizeWhitespace converts CRLF to LF, drops leading blank lines,
// strips trailing spaces and tabs from lines outside code fences, and
// pins the body to exactly one trailing newline. An all-whitespace body
// collapses to empty.
func normalizeWhitespace(body string) string {
	s := strings.ReplaceAll(body, "\r\n", "\n")
	s = strings.TrimLeft(s, "\n")
	if strings.TrimSpace(s) == "" {
		return ""
	}

	blocks, _ := parser.ScanBody(s)
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

	var out strings.Builder
	out.Grow(len(s))
	pos := 0
	for pos < len(s) {
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
		if !inFence(pos) {
			line = strings.TrimRight(line, " \t")
		}
		out.WriteString(line)
		if lineEnd >= 0 {
			out.WriteByte('\n')
		}
		pos = next
	}
	return strings.TrimRight(out.String(), "\n") + "\n"
}

// rewriteTokens re-renders every wiki token in canonical form. Tokens in
// fenced or inline code were never scanned as refs and pass through.
func rewriteTokens(body string) string {
	_, refs := parser.ScanBody(body)
	if len(refs) == 0 {
		return body
	}
	var b strings.Builder
	b.Grow(len(body))
	pos := 0
	for _, r := range refs {
		b.WriteString(body[pos:r.Range.Start])
		b.WriteString(r.Token())
		pos = r.Range.End
	}
	b.WriteString(body[pos:])
	return b.String()
}
