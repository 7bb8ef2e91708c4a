// Package export renders the vault for a Quartz site: one directory per
// note with transclusions expanded and wiki tokens rewritten to relative
// markdown links, plus a graph manifest of every edge in the vault.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/hypo/internal/assets"
	"github.com/starford/hypo/internal/note"
	"github.com/starford/hypo/internal/parser"
	"github.com/starford/hypo/internal/storage"
	"github.com/starford/hypo/internal/transclude"
	"github.com/starford/hypo/internal/vault"
)

type Options struct {
	OutDir    string
	AssetsDir string // vault-relative source of referenced assets; empty skips copying
	KatexAuto bool   // write the katex.enabled flag when any note has math
}

type Summary struct {
	Notes  int
	Assets int
	Katex  bool
}

type graphNode struct {
	ID string `json:"id"`
}

type graphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type graphManifest struct {
	Nodes []graphNode `json:"nodes"`
	Edges []graphEdge `json:"edges"`
}

// Quartz exports every parseable note to opts.OutDir. Dangling links and
// unresolvable transclusions export as markers, never as failures; notes
// with structural parse errors are skipped (the linter reports them).
// The vault itself is never written to.
func Quartz(v *vault.Vault, opts Options) (Summary, error) {
	if opts.OutDir == "" {
		return Summary{}, fmt.Errorf("export: output directory required")
	}
	notes, _, err := v.LoadAll()
	if err != nil {
		return Summary{}, fmt.Errorf("export: %w", err)
	}
	ids := make([]string, 0, len(notes))
	for id := range notes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	resolver := transclude.New(func(id string) *note.Note { return notes[id] })

	var sum Summary
	hasMath := false
	for _, id := range ids {
		n := notes[id]
		if n.HasMath {
			hasMath = true
		}
		expanded := resolver.ExpandNote(n)
		rewritten := rewriteLinks(expanded, notes)

		meta := make(map[string]any, len(n.Meta)+2)
		for k, val := range n.Meta {
			meta[k] = val
		}
		meta["id"] = id
		meta["title"] = exportTitle(n)

		data, err := parser.EncodeFile(meta, rewritten)
		if err != nil {
			return sum, fmt.Errorf("export: %s: %w", id, err)
		}
		dst := filepath.Join(opts.OutDir, id, "index.md")
		if err := storage.WriteFileAtomic(dst, data); err != nil {
			return sum, fmt.Errorf("export: %s: %w", id, err)
		}
		sum.Notes++
	}

	if err := writeGraph(opts.OutDir, notes, ids); err != nil {
		return sum, err
	}

	if opts.AssetsDir != "" {
		copied, err := copyAssets(v.Root(), opts.OutDir, opts.AssetsDir, notes, ids)
		if err != nil {
			return sum, err
		}
		sum.Assets = copied
	}

	if opts.KatexAuto && hasMath {
		flag := filepath.Join(opts.OutDir, "katex.enabled")
		if err := storage.WriteFileAtomic(flag, nil); err != nil {
			return sum, fmt.Errorf("export: katex flag: %w", err)
		}
		sum.Katex = true
	}
	return sum, nil
}

// exportTitle is the Quartz page title: the derived note title, falling
// back to the raw id so every page has one.
func exportTitle(n *note.Note) string {
	if n.Title != "" {
		return n.Title
	}
	return n.ID
}

// rewriteLinks converts every wiki token left in the expanded body into a
// relative markdown link. Display text wins, then the target's title,
// then the raw id; anchors carry over as written.
func rewriteLinks(body string, notes map[string]*note.Note) string {
	_, refs := parser.ScanBody(body)
	if len(refs) == 0 {
		return body
	}
	var b strings.Builder
	b.Grow(len(body))
	pos := 0
	for _, r := range refs {
		b.WriteString(body[pos:r.Range.Start])
		b.WriteString(markdownLink(r, notes))
		pos = r.Range.End
	}
	b.WriteString(body[pos:])
	return b.String()
}

func markdownLink(r note.Ref, notes map[string]*note.Note) string {
	text := r.Display
	if text == "" {
		if target, ok := notes[r.Target]; ok && target.Title != "" {
			text = target.Title
		} else {
			text = r.Target
		}
	}
	href := "/" + r.Target + "/"
	if r.Anchor != nil {
		href += r.Anchor.String()
	}
	return "[" + text + "](" + href + ")"
}

// writeGraph emits graph.json: nodes are every id seen anywhere (vault
// notes and dangling targets), edges every distinct parsed src→dst pair.
// Unresolved edges are kept; the manifest mirrors the raw graph.
func writeGraph(outDir string, notes map[string]*note.Note, ids []string) error {
	nodeSet := make(map[string]bool, len(ids))
	edgeSet := make(map[[2]string]bool)
	for _, id := range ids {
		nodeSet[id] = true
		for _, r := range notes[id].Refs {
			nodeSet[r.Target] = true
			edgeSet[[2]string{id, r.Target}] = true
		}
	}

	manifest := graphManifest{Nodes: []graphNode{}, Edges: []graphEdge{}}
	nodeIDs := make([]string, 0, len(nodeSet))
	for id := range nodeSet {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Strings(nodeIDs)
	for _, id := range nodeIDs {
		manifest.Nodes = append(manifest.Nodes, graphNode{ID: id})
	}

	pairs := make([][2]string, 0, len(edgeSet))
	for p := range edgeSet {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	for _, p := range pairs {
		manifest.Edges = append(manifest.Edges, graphEdge{Source: p[0], Target: p[1]})
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("export: graph manifest: %w", err)
	}
	data = append(data, '\n')
	if err := storage.WriteFileAtomic(filepath.Join(outDir, "graph.json"), data); err != nil {
		return fmt.Errorf("export: graph manifest: %w", err)
	}
	return nil
}

// copyAssets copies every referenced asset that exists on disk into
// out/assets/, flattened to its base name.
func copyAssets(root, outDir, srcDir string, notes map[string]*note.Note, ids []string) (int, error) {
	seen := make(map[string]bool)
	copied := 0
	for _, id := range ids {
		for _, ref := range assets.Scan(notes[id], srcDir) {
			if ref.Rel == "" || seen[ref.Rel] {
				continue
			}
			seen[ref.Rel] = true
			src := filepath.Join(root, filepath.FromSlash(ref.Rel))
			data, err := os.ReadFile(src)
			if err != nil {
				if os.IsNotExist(err) {
					continue // missing assets are the verifier's problem
				}
				return copied, fmt.Errorf("export: asset %s: %w", ref.Rel, err)
			}
			dst := filepath.Join(outDir, "assets", path.Base(ref.Rel))
			if err := storage.WriteFileAtomic(dst, data); err != nil {
				return copied, fmt.Errorf("export: asset %s: %w", ref.Rel, err)
			}
			copied++
		}
	}
	return copied, nil
}
