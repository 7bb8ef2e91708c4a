package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/hypo/internal/testutil"
)

func readOut(t *testing.T, outDir, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(outDir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}

func TestQuartz_WritesNotePages(t *testing.T) {
	v, dir := testutil.TestVault(t)
	testutil.WriteNote(t, dir, "aaa111", "---\nid: aaa111\ncore/title: First\n---\n\nsee [[bbb222]] and [[bbb222|custom]]\n")
	testutil.WriteNote(t, dir, "bbb222", "---\nid: bbb222\ncore/title: Other Title\n---\n\nback\n")
	out := t.TempDir()

	sum, err := Quartz(v, Options{OutDir: out})
	if err != nil {
		t.Fatalf("Quartz: %v", err)
	}
	if sum.Notes != 2 {
		t.Errorf("Notes = %d", sum.Notes)
	}

	page := readOut(t, out, "aaa111/index.md")
	if !strings.Contains(page, "title: First\n") {
		t.Errorf("page = %q", page)
	}
	if !strings.Contains(page, "[Other Title](/bbb222/)") {
		t.Errorf("page = %q", page)
	}
	if !strings.Contains(page, "[custom](/bbb222/)") {
		t.Errorf("page = %q", page)
	}
}

func TestQuartz_AnchorsAndDanglingLinks(t *testing.T) {
	v, dir := testutil.TestVault(t)
	testutil.WriteNote(t, dir, "aaa111", "[[bbb222#part-one|p1]] [[bbb222#^eq]] [[zzz999]]\n")
	testutil.WriteNote(t, dir, "bbb222", "## Part One\n\nx\n^eq\n")
	out := t.TempDir()

	if _, err := Quartz(v, Options{OutDir: out}); err != nil {
		t.Fatalf("Quartz: %v", err)
	}
	page := readOut(t, out, "aaa111/index.md")
	if !strings.Contains(page, "[p1](/bbb222/#part-one)") {
		t.Errorf("page = %q", page)
	}
	if !strings.Contains(page, "](/bbb222/#^eq)") {
		t.Errorf("page = %q", page)
	}
	// Dangling target: no title to fall back to, raw id serves as text.
	if !strings.Contains(page, "[zzz999](/zzz999/)") {
		t.Errorf("page = %q", page)
	}
}

func TestQuartz_ExpandsTransclusions(t *testing.T) {
	v, dir := testutil.TestVault(t)
	testutil.WriteNote(t, dir, "aaa111", "intro\n\n![[bbb222]]\n\n![[gone99]]\n")
	testutil.WriteNote(t, dir, "bbb222", "embedded text with [[ccc333]]\n")
	testutil.WriteNote(t, dir, "ccc333", "---\ncore/title: Third\n---\n\nleaf\n")
	out := t.TempDir()

	if _, err := Quartz(v, Options{OutDir: out}); err != nil {
		t.Fatalf("Quartz: %v", err)
	}
	page := readOut(t, out, "aaa111/index.md")
	if !strings.Contains(page, "embedded text with [Third](/ccc333/)") {
		t.Errorf("page = %q", page)
	}
	if !strings.Contains(page, "> **Hypo:** missing note `gone99`") {
		t.Errorf("page = %q", page)
	}
}

func TestQuartz_GraphManifest(t *testing.T) {
	v, dir := testutil.TestVault(t)
	testutil.WriteNote(t, dir, "aaa111", "[[bbb222]] [[bbb222]] ![[zzz999]]\n")
	testutil.WriteNote(t, dir, "bbb222", "plain\n")
	out := t.TempDir()

	if _, err := Quartz(v, Options{OutDir: out}); err != nil {
		t.Fatalf("Quartz: %v", err)
	}

	var manifest struct {
		Nodes []struct {
			ID string `json:"id"`
		} `json:"nodes"`
		Edges []struct {
			Source string `json:"source"`
			Target string `json:"target"`
		} `json:"edges"`
	}
	if err := json.Unmarshal([]byte(readOut(t, out, "graph.json")), &manifest); err != nil {
		t.Fatalf("graph.json: %v", err)
	}

	if len(manifest.Nodes) != 3 {
		t.Errorf("nodes = %+v", manifest.Nodes)
	}
	wantNodes := []string{"aaa111", "bbb222", "zzz999"}
	for i, n := range manifest.Nodes {
		if n.ID != wantNodes[i] {
			t.Errorf("node[%d] = %q, want %q", i, n.ID, wantNodes[i])
		}
	}
	// Duplicate links collapse; the dangling edge stays.
	if len(manifest.Edges) != 2 {
		t.Fatalf("edges = %+v", manifest.Edges)
	}
	if manifest.Edges[0].Target != "bbb222" || manifest.Edges[1].Target != "zzz999" {
		t.Errorf("edges = %+v", manifest.Edges)
	}
}

func TestQuartz_CopiesAssets(t *testing.T) {
	v, dir := testutil.TestVault(t)
	if err := os.MkdirAll(filepath.Join(dir, "assets"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "assets", "pic.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	testutil.WriteNote(t, dir, "aaa111", "![p](pic.png) ![missing](gone.png)\n")
	out := t.TempDir()

	sum, err := Quartz(v, Options{OutDir: out, AssetsDir: "assets"})
	if err != nil {
		t.Fatalf("Quartz: %v", err)
	}
	if sum.Assets != 1 {
		t.Errorf("Assets = %d", sum.Assets)
	}
	if got := readOut(t, out, "assets/pic.png"); got != "png" {
		t.Errorf("copied asset = %q", got)
	}
}

func TestQuartz_KatexSidecar(t *testing.T) {
	v, dir := testutil.TestVault(t)
	testutil.WriteNote(t, dir, "aaa111", "inline $e^{i\\pi}$ math\n")
	out := t.TempDir()

	sum, err := Quartz(v, Options{OutDir: out, KatexAuto: true})
	if err != nil {
		t.Fatalf("Quartz: %v", err)
	}
	if !sum.Katex {
		t.Error("Katex = false")
	}
	if _, err := os.Stat(filepath.Join(out, "katex.enabled")); err != nil {
		t.Errorf("katex.enabled: %v", err)
	}

	out2 := t.TempDir()
	sum2, err := Quartz(v, Options{OutDir: out2, KatexAuto: false})
	if err != nil {
		t.Fatalf("Quartz: %v", err)
	}
	if sum2.Katex {
		t.Error("Katex = true with auto disabled")
	}
	if _, err := os.Stat(filepath.Join(out2, "katex.enabled")); !os.IsNotExist(err) {
		t.Errorf("katex.enabled present: %v", err)
	}
}

func TestQuartz_DoesNotTouchVault(t *testing.T) {
	v, dir := testutil.TestVault(t)
	raw := "---\nid: aaa111\n---\n\n![[gone]]\n"
	testutil.WriteNote(t, dir, "aaa111", raw)
	out := t.TempDir()

	if _, err := Quartz(v, Options{OutDir: out}); err != nil {
		t.Fatalf("Quartz: %v", err)
	}
	after, err := os.ReadFile(filepath.Join(dir, "aaa111.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(after) != raw {
		t.Errorf("vault file changed: %q", after)
	}
}
