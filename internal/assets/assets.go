// Package assets verifies the binary files a vault references: images,
// file links, and HTML img tags must point at existing files, and files
// under the assets directory should be referenced by at least one note.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/hypo/internal/checksum"
	"github.com/starford/hypo/internal/note"
	"github.com/starford/hypo/internal/storage"
	"github.com/starford/hypo/internal/vault"
)

// DefaultDir is the vault-relative directory bare asset names resolve to.
const DefaultDir = "assets"

// Ref types reported for missing assets.
const (
	RefImage = "image"
	RefLink  = "link"
	RefHTML  = "html"
)

type Options struct {
	AssetsDir     string // vault-relative, DefaultDir when empty
	Hashes        bool   // compute SHA-256 per existing referenced asset
	WriteSidecars bool   // write <file>.sha256 next to each existing asset
}

// MissingRef is one reference whose target does not exist. AssetPath is
// the path as written in the note; Range covers the whole token within
// the file.
type MissingRef struct {
	NoteID    string     `json:"note_id"`
	AssetPath string     `json:"asset_path"`
	RefType   string     `json:"ref_type"`
	Range     note.Range `json:"range"`
}

type Report struct {
	TotalRefs int               `json:"total_refs"`
	Missing   []MissingRef      `json:"missing_refs"`
	Dangling  []string          `json:"dangling_files"`
	Hashes    map[string]string `json:"hashes,omitempty"`
}

var (
	mdRefRe   = regexp.MustCompile(`\[[^\]\n]*\]\(([^)\n]+)\)`)
	htmlImgRe = regexp.MustCompile(`(?i)<img\s[^>]*src\s*=\s*["']([^"']+)["']`)
)

// Verify scans every parseable note for asset references and checks each
// against the file system. Notes that fail to parse are skipped here; the
// linter reports them.
func Verify(v *vault.Vault, opts Options) (*Report, error) {
	if opts.AssetsDir == "" {
		opts.AssetsDir = DefaultDir
	}
	notes, _, err := v.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	ids := make([]string, 0, len(notes))
	for id := range notes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	report := &Report{Missing: []MissingRef{}, Dangling: []string{}}
	root := v.Root()
	referenced := make(map[string]bool)
	var existing []string

	for _, id := range ids {
		for _, ref := range Scan(notes[id], opts.AssetsDir) {
			report.TotalRefs++
			abs := filepath.Join(root, filepath.FromSlash(ref.Rel))
			if ref.Rel == "" || !regularFile(abs) {
				report.Missing = append(report.Missing, MissingRef{
					NoteID:    ref.NoteID,
					AssetPath: ref.Written,
					RefType:   ref.Type,
					Range:     ref.Range,
				})
				continue
			}
			if !referenced[ref.Rel] {
				referenced[ref.Rel] = true
				existing = append(existing, ref.Rel)
			}
		}
	}
	sort.Strings(existing)

	if opts.Hashes || opts.WriteSidecars {
		// Hashing is file I/O; a bounded group keeps large asset trees fast
		// without unbounded open files. Each goroutine owns one slot.
		sums := make([]string, len(existing))
		var g errgroup.Group
		g.SetLimit(runtime.GOMAXPROCS(0))
		for i, rel := range existing {
			g.Go(func() error {
				abs := filepath.Join(root, filepath.FromSlash(rel))
				sum, err := checksum.SumFile(abs)
				if err != nil {
					return fmt.Errorf("assets: %w", err)
				}
				sums[i] = sum
				if opts.WriteSidecars {
					line := fmt.Sprintf("%s  %s\n", sum, path.Base(rel))
					if err := storage.WriteFileAtomic(abs+".sha256", []byte(line)); err != nil {
						return fmt.Errorf("assets: %w", err)
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		report.Hashes = make(map[string]string, len(existing))
		for i, rel := range existing {
			report.Hashes[rel] = sums[i]
		}
	}

	dangling, err := findDangling(root, opts.AssetsDir, referenced)
	if err != nil {
		return nil, err
	}
	report.Dangling = dangling
	return report, nil
}

// Ref is one asset reference found in a note body.
type Ref struct {
	NoteID  string
	Written string // path as written, fragment and query stripped
	Rel     string // vault-relative resolved path, empty when unresolvable
	Type    string
	Range   note.Range // token span within the file
}

// Scan extracts the asset references of one parsed note, in body order.
// External targets, pure fragments, and anything inside code fences are
// not asset references.
func Scan(n *note.Note, assetsDir string) []Ref {
	if assetsDir == "" {
		assetsDir = DefaultDir
	}
	inFence := fenceChecker(n.Blocks)
	body := n.Body
	var out []Ref

	for _, m := range mdRefRe.FindAllStringSubmatchIndex(body, -1) {
		start, end := m[0], m[1]
		if inFence(start) {
			continue
		}
		refType := RefLink
		if start > 0 && body[start-1] == '!' {
			refType = RefImage
			start--
		}
		written := cleanPath(body[m[2]:m[3]])
		if written == "" {
			continue
		}
		if refType == RefLink {
			// Only links to non-note files are asset refs; [t](abc.md)
			// and extension-less paths are navigation, not assets.
			ext := path.Ext(written)
			if ext == "" || strings.EqualFold(ext, ".md") {
				continue
			}
		}
		out = append(out, Ref{
			NoteID:  n.ID,
			Written: written,
			Rel:     resolveRel(written, assetsDir),
			Type:    refType,
			Range:   note.Range{Start: n.BodyStart + start, End: n.BodyStart + end},
		})
	}

	for _, m := range htmlImgRe.FindAllStringSubmatchIndex(body, -1) {
		if inFence(m[0]) {
			continue
		}
		written := cleanPath(body[m[2]:m[3]])
		if written == "" {
			continue
		}
		out = append(out, Ref{
			NoteID:  n.ID,
			Written: written,
			Rel:     resolveRel(written, assetsDir),
			Type:    RefHTML,
			Range:   note.Range{Start: n.BodyStart + m[0], End: n.BodyStart + m[1]},
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Range.Start < out[j].Range.Start })
	return out
}

// cleanPath trims a markdown title suffix and the fragment/query parts,
// and drops external or pure-fragment targets entirely.
func cleanPath(raw string) string {
	p := strings.TrimSpace(raw)
	if i := strings.IndexAny(p, " \t"); i >= 0 {
		p = p[:i]
	}
	lower := strings.ToLower(p)
	for _, pre := range []string{"http://", "https://", "data:", "mailto:", "//"} {
		if strings.HasPrefix(lower, pre) {
			return ""
		}
	}
	if strings.HasPrefix(p, "#") {
		return ""
	}
	p, _, _ = strings.Cut(p, "#")
	p, _, _ = strings.Cut(p, "?")
	return p
}

// resolveRel maps a written path to a vault-relative one: absolute and
// dotted paths resolve against the vault root, bare names against the
// assets directory. Paths escaping the root resolve to "".
func resolveRel(p, assetsDir string) string {
	var rel string
	switch {
	case strings.HasPrefix(p, "/"):
		rel = path.Clean(strings.TrimPrefix(p, "/"))
	case strings.Contains(p, "/"):
		rel = path.Clean(p)
	default:
		rel = path.Join(assetsDir, p)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return ""
	}
	return rel
}

func regularFile(abs string) bool {
	info, err := os.Stat(abs)
	return err == nil && info.Mode().IsRegular()
}

func fenceChecker(blocks []note.Block) func(int) bool {
	var fences []note.Range
	for _, b := range blocks {
		if b.Kind == note.BlockFence {
			fences = append(fences, b.Range)
		}
	}
	return func(off int) bool {
		for _, r := range fences {
			if off >= r.Start && off < r.End {
				return true
			}
		}
		return false
	}
}

// findDangling lists files under the assets directory that no note
// references. Sidecar .sha256 files are not assets.
func findDangling(root, assetsDir string, referenced map[string]bool) ([]string, error) {
	dir := filepath.Join(root, filepath.FromSlash(assetsDir))
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("assets: stat %s: %w", assetsDir, err)
	}
	if !info.IsDir() {
		return []string{}, nil
	}

	out := []string{}
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), ".sha256") {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel = filepath.ToSlash(rel); !referenced[rel] {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("assets: walk %s: %w", assetsDir, err)
	}
	sort.Strings(out)
	return out, nil
}
