package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

// runCLI executes one command against dir as the vault and returns
// stdout, stderr, and the exit code main would use.
func runCLI(t *testing.T, dir string, args ...string) (string, string, int) {
	t.Helper()
	return runCLIContext(t, context.Background(), dir, args...)
}

func runCLIContext(t *testing.T, ctx context.Context, dir string, args ...string) (string, string, int) {
	t.Helper()
	var out, errBuf bytes.Buffer

	// Flag state sticks to a command tree after Run, so every invocation
	// gets a fresh one.
	root := New()
	root.Writer = &out
	root.ErrWriter = &errBuf

	argv := append([]string{"hypo", "--vault", dir}, args...)
	err := root.Run(ctx, argv)

	code := 0
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Msg != "" {
				fmt.Fprintln(&errBuf, exitErr.Msg)
			}
			code = exitErr.Code
		} else {
			fmt.Fprintln(&errBuf, "Error:", err)
			code = 1
		}
	}
	return out.String(), errBuf.String(), code
}

func seed(t *testing.T, dir, id, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, id+".md"), []byte(content), 0o644); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

// linkedVault seeds three notes where alpha links to beta and gamma
// stands alone.
func linkedVault(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	seed(t, dir, "aaa111aaa111", "# Alpha\n\nSee [[bbb222bbb222]].\n")
	seed(t, dir, "bbb222bbb222", "# Beta\n")
	seed(t, dir, "ccc333ccc333", "# Gamma\n")
	return dir
}

func TestID_PrintsHexID(t *testing.T) {
	out, _, code := runCLI(t, t.TempDir(), "id")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !regexp.MustCompile(`^[0-9a-f]{12}\n$`).MatchString(out) {
		t.Errorf("id output = %q, want 12 hex chars", out)
	}
}

func TestNew_CreatesNote(t *testing.T) {
	dir := t.TempDir()
	out, _, code := runCLI(t, dir, "new", "--title", "Greeting")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	id := strings.TrimSpace(out)
	if id == "" {
		t.Fatal("no id printed")
	}
	data, err := os.ReadFile(filepath.Join(dir, id+".md"))
	if err != nil {
		t.Fatalf("note file: %v", err)
	}
	if !strings.Contains(string(data), "# Greeting") {
		t.Errorf("note body missing heading:\n%s", data)
	}
	if !strings.Contains(string(data), "core/title: Greeting") {
		t.Errorf("note frontmatter missing title:\n%s", data)
	}
}

func TestNew_QuietSuppressesID(t *testing.T) {
	out, _, code := runCLI(t, t.TempDir(), "--quiet", "new", "--title", "Silent")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if out != "" {
		t.Errorf("quiet output = %q, want empty", out)
	}
}

func TestNew_RejectsMalformedMeta(t *testing.T) {
	_, stderr, code := runCLI(t, t.TempDir(), "new", "--meta", "broken")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Invalid format: broken. Expected key=value") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestOpen_PrintsRawFile(t *testing.T) {
	dir := t.TempDir()
	content := "---\nid: aaa111aaa111\ntopic: ops\n---\n# Alpha\n"
	seed(t, dir, "aaa111aaa111", content)

	out, _, code := runCLI(t, dir, "open", "aaa111aaa111")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if out != content {
		t.Errorf("open output = %q, want raw file", out)
	}
}

func TestOpen_NotFound(t *testing.T) {
	_, stderr, code := runCLI(t, t.TempDir(), "open", "zzzz")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Note zzzz not found") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestLs_PlainListsSortedIDs(t *testing.T) {
	dir := linkedVault(t)
	out, _, code := runCLI(t, dir, "ls")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	want := "aaa111aaa111\nbbb222bbb222\nccc333ccc333\n"
	if out != want {
		t.Errorf("ls = %q, want %q", out, want)
	}
	// No filter was used, so the index must not have been created.
	if _, err := os.Stat(filepath.Join(dir, ".hypo", "index.sqlite")); err == nil {
		t.Error("plain ls created the index database")
	}
}

func TestLs_Orphans(t *testing.T) {
	dir := linkedVault(t)
	out, _, code := runCLI(t, dir, "ls", "--orphans")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if out != "ccc333ccc333\n" {
		t.Errorf("orphans = %q", out)
	}
}

func TestLs_GrepAndTitles(t *testing.T) {
	dir := linkedVault(t)
	out, _, code := runCLI(t, dir, "ls", "--grep", "gamma", "--with-titles")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if out != "ccc333ccc333\tGamma\n" {
		t.Errorf("filtered ls = %q", out)
	}
}

func TestLs_JSON(t *testing.T) {
	dir := linkedVault(t)
	out, _, code := runCLI(t, dir, "--json", "ls")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	for _, want := range []string{`"id": "aaa111aaa111"`, `"title": "Alpha"`} {
		if !strings.Contains(out, want) {
			t.Errorf("json ls missing %s:\n%s", want, out)
		}
	}
}

func TestFind_MatchesBody(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, "aaa111aaa111", "# Alpha\n\nQuartz crystals hum quietly.\n")
	seed(t, dir, "bbb222bbb222", "# Beta\n")

	out, _, code := runCLI(t, dir, "find", "crystals")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if out != "aaa111aaa111\n" {
		t.Errorf("find = %q", out)
	}

	out, _, _ = runCLI(t, dir, "find", "--snippets", "crystals")
	if out != "aaa111aaa111\tQuartz crystals hum quietly.\n" {
		t.Errorf("find --snippets = %q", out)
	}
}

func TestFind_AliasFallback(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, "bbb222bbb222", "---\ncore/aliases:\n  - quartz-export\n---\n# Beta\n")

	out, _, code := runCLI(t, dir, "find", "export")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if out != "" {
		t.Errorf("find without --aliases = %q, want no hits", out)
	}

	out, _, _ = runCLI(t, dir, "find", "--aliases", "export")
	if out != "bbb222bbb222\n" {
		t.Errorf("find --aliases = %q", out)
	}
}

func TestResolve_ExactAlias(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, "bbb222bbb222", "---\ncore/aliases:\n  - quartz-export\n---\n# Beta\n")

	out, _, code := runCLI(t, dir, "resolve", "quartz-export")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if out != "bbb222bbb222\n" {
		t.Errorf("resolve = %q", out)
	}
}

func TestResolve_AmbiguousTitle(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, "aaa111aaa111", "# Dup\n")
	seed(t, dir, "bbb222bbb222", "# Dup\n")

	_, stderr, code := runCLI(t, dir, "resolve", "Dup")
	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if !strings.Contains(stderr, "Ambiguous: 'Dup' matches multiple notes via title:") {
		t.Errorf("stderr = %q", stderr)
	}
	if !strings.Contains(stderr, "aaa111aaa111\tDup") {
		t.Errorf("stderr missing candidate: %q", stderr)
	}
}

func TestResolve_NotFound(t *testing.T) {
	dir := linkedVault(t)
	_, stderr, code := runCLI(t, dir, "resolve", "nope")
	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if !strings.Contains(stderr, "No exact match for 'nope'. Candidates:") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRm_ConfirmedByFlag(t *testing.T) {
	dir := linkedVault(t)
	out, _, code := runCLI(t, dir, "rm", "--yes", "ccc333ccc333")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out, "Deleted ccc333ccc333") {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "ccc333ccc333.md")); !os.IsNotExist(err) {
		t.Error("note file still exists")
	}
}

func TestRm_PromptAborts(t *testing.T) {
	dir := linkedVault(t)
	old := stdinReader
	stdinReader = strings.NewReader("n\n")
	defer func() { stdinReader = old }()

	out, _, code := runCLI(t, dir, "rm", "ccc333ccc333")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out, "Delete note ccc333ccc333? [y/N] ") || !strings.Contains(out, "Aborted") {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "ccc333ccc333.md")); err != nil {
		t.Error("aborted rm removed the file")
	}
}

func TestRm_PromptAccepts(t *testing.T) {
	dir := linkedVault(t)
	old := stdinReader
	stdinReader = strings.NewReader("y\n")
	defer func() { stdinReader = old }()

	out, _, code := runCLI(t, dir, "rm", "ccc333ccc333")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out, "Deleted ccc333ccc333") {
		t.Errorf("output = %q", out)
	}
}

func TestMeta_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, "eee555eee555", "# Epsilon\n")

	out, _, code := runCLI(t, dir, "meta", "set", "eee555eee555", "user/rank=3", "topic=physics")
	if code != 0 {
		t.Fatalf("set exit code = %d", code)
	}
	if !strings.Contains(out, "Updated metadata for eee555eee555") {
		t.Errorf("set output = %q", out)
	}

	out, _, _ = runCLI(t, dir, "meta", "get", "eee555eee555", "user/rank")
	if out != "user/rank=3\n" {
		t.Errorf("get = %q", out)
	}

	out, _, _ = runCLI(t, dir, "--json", "meta", "get", "eee555eee555", "user/rank")
	if out != "{\"user/rank\":3}\n" {
		t.Errorf("json get = %q", out)
	}

	_, stderr, _ := runCLI(t, dir, "meta", "get", "eee555eee555", "missing")
	if !strings.Contains(stderr, "Key 'missing' not found") {
		t.Errorf("stderr = %q", stderr)
	}

	out, _, _ = runCLI(t, dir, "meta", "unset", "eee555eee555", "topic")
	if !strings.Contains(out, "Removed keys: topic") {
		t.Errorf("unset = %q", out)
	}
	out, _, _ = runCLI(t, dir, "meta", "unset", "eee555eee555", "topic")
	if !strings.Contains(out, "No keys removed") {
		t.Errorf("second unset = %q", out)
	}
}

func TestMetaGet_AllKeysSorted(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, "eee555eee555", "---\nid: eee555eee555\ntopic: physics\ncore/aliases:\n  - eps\n---\n# Epsilon\n")

	out, _, code := runCLI(t, dir, "meta", "get", "eee555eee555")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), out)
	}
	for i, prefix := range []string{"core/aliases=", "id=", "topic="} {
		if !strings.HasPrefix(lines[i], prefix) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], prefix)
		}
	}
}

func TestMetaShow_NoMetadata(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, "eee555eee555", "# Epsilon\n")

	out, _, code := runCLI(t, dir, "meta", "show", "eee555eee555")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if out != "# No metadata\n" {
		t.Errorf("show = %q", out)
	}
}

func TestReindex_ReportsCounts(t *testing.T) {
	dir := linkedVault(t)
	out, _, code := runCLI(t, dir, "reindex")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	for _, want := range []string{
		"Reindexing vault... (full=false, hash=false)",
		"Scanned: 3",
		"Inserted: 3",
		"Removed: 0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	// A second pass over the unchanged vault touches nothing.
	out, _, _ = runCLI(t, dir, "reindex")
	if !strings.Contains(out, "Dirty: 0") || !strings.Contains(out, "Inserted: 0") {
		t.Errorf("second pass = %q", out)
	}
}

func TestReindex_JSON(t *testing.T) {
	dir := linkedVault(t)
	out, _, code := runCLI(t, dir, "--json", "reindex")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out, `"scanned": 3`) || !strings.Contains(out, `"inserted": 3`) {
		t.Errorf("json output = %q", out)
	}
}

func TestLint_DanglingLinkFails(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, "aaa111aaa111", "# Alpha\n\nSee [[zzzz99zzzz99]].\n")

	out, _, code := runCLI(t, dir, "lint")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(out, "aaa111aaa111:") || !strings.Contains(out, "Unknown note id zzzz99zzzz99") {
		t.Errorf("lint output = %q", out)
	}
}

func TestLint_CleanVaultPasses(t *testing.T) {
	dir := linkedVault(t)
	out, _, code := runCLI(t, dir, "lint")
	if code != 0 {
		t.Fatalf("exit code = %d, output %q", code, out)
	}
}

func TestYank_HeadingSection(t *testing.T) {
	dir := t.TempDir()
	body := "# Title\n\nIntro.\n\n## Section One\n\nBody of section one.\n\n## Section Two\n\nOther text.\n"
	seed(t, dir, "fff666fff666", body)

	out, _, code := runCLI(t, dir, "yank", "fff666fff666#section-one")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if out != "## Section One\n\nBody of section one.\n\n" {
		t.Errorf("yank = %q", out)
	}
}

func TestYank_PlainStripsFence(t *testing.T) {
	dir := t.TempDir()
	body := "# Code\n\n```go\nfmt.Println(\"hi\")\n```\n^snip\n"
	seed(t, dir, "fff666fff666", body)

	out, _, code := runCLI(t, dir, "yank", "--plain", "fff666fff666#^snip")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if out != "fmt.Println(\"hi\")\n" {
		t.Errorf("yank --plain = %q", out)
	}
}

func TestYank_AnchorMiss(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, "fff666fff666", "# Title\n")

	_, stderr, code := runCLI(t, dir, "yank", "fff666fff666#nope")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Anchor #nope not found in note fff666fff666") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestLocate_TSV(t *testing.T) {
	dir := t.TempDir()
	body := "# Gee\n\nText.\n"
	seed(t, dir, "ggg777ggg777", body)

	out, _, code := runCLI(t, dir, "locate", "--format", "tsv", "ggg777ggg777")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	path, err := filepath.Abs(filepath.Join(dir, "ggg777ggg777.md"))
	if err != nil {
		t.Fatal(err)
	}
	want := fmt.Sprintf("ggg777ggg777\t%s\t0\t%d\t1\t%d\n", path, len(body), 1+strings.Count(body, "\n"))
	if out != want {
		t.Errorf("locate tsv = %q, want %q", out, want)
	}
}

func TestLocate_JSONWithAnchor(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, "ggg777ggg777", "# Gee\n\n## Part\n\nText.\n")

	out, _, code := runCLI(t, dir, "locate", "ggg777ggg777#part")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	for _, want := range []string{`"id": "ggg777ggg777"`, `"kind": "heading"`, `"value": "part"`, `"path"`} {
		if !strings.Contains(out, want) {
			t.Errorf("json locate missing %s:\n%s", want, out)
		}
	}

	// Whole-note locate has no anchor to report.
	out, _, _ = runCLI(t, dir, "locate", "ggg777ggg777")
	if strings.Contains(out, `"anchor"`) {
		t.Errorf("unanchored locate carries anchor:\n%s", out)
	}
}

func TestBackrefs_ShowsContext(t *testing.T) {
	dir := linkedVault(t)
	out, _, code := runCLI(t, dir, "backrefs", "bbb222bbb222")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out, "aaa111aaa111:") || !strings.Contains(out, "  See [[bbb222bbb222]].") {
		t.Errorf("backrefs = %q", out)
	}

	out, _, _ = runCLI(t, dir, "--json", "backrefs", "bbb222bbb222")
	if !strings.Contains(out, `"source": "aaa111aaa111"`) {
		t.Errorf("json backrefs = %q", out)
	}
}

func TestGraph_DotOutput(t *testing.T) {
	dir := linkedVault(t)
	out, _, code := runCLI(t, dir, "graph", "--dot")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	for _, want := range []string{
		"digraph vault {",
		`  "aaa111aaa111" [label="Alpha"];`,
		`  "aaa111aaa111" -> "bbb222bbb222";`,
		"}",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dot output missing %q:\n%s", want, out)
		}
	}
}

func TestGraph_JSON(t *testing.T) {
	dir := linkedVault(t)
	out, _, code := runCLI(t, dir, "graph")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	for _, want := range []string{`"nodes"`, `"edges"`, `"source": "aaa111aaa111"`} {
		if !strings.Contains(out, want) {
			t.Errorf("graph json missing %s:\n%s", want, out)
		}
	}
}

func TestFmt_ReportThenWrite(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, "hhh888hhh888", "---\nid: hhh888hhh888\n---\n# Messy\n\nTrailing spaces.   \n")

	out, _, code := runCLI(t, dir, "fmt", "hhh888hhh888")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out, "hhh888hhh888: ") || !strings.Contains(out, "whitespace") {
		t.Errorf("report = %q", out)
	}
	if !strings.Contains(out, "Run with --confirm to write changes") {
		t.Errorf("report missing hint: %q", out)
	}

	out, _, _ = runCLI(t, dir, "fmt", "--confirm", "hhh888hhh888")
	if !strings.Contains(out, "Formatted 1 notes") {
		t.Errorf("write pass = %q", out)
	}
	data, err := os.ReadFile(filepath.Join(dir, "hhh888hhh888.md"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "Trailing spaces.   ") {
		t.Errorf("trailing spaces survived:\n%s", data)
	}

	// Formatting is a fixed point: a second pass reports nothing.
	out, _, _ = runCLI(t, dir, "fmt", "hhh888hhh888")
	if out != "" {
		t.Errorf("second pass = %q, want empty", out)
	}
}

func TestDoctor_HealthyVault(t *testing.T) {
	dir := linkedVault(t)
	if _, _, code := runCLI(t, dir, "reindex"); code != 0 {
		t.Fatal("reindex failed")
	}

	out, _, code := runCLI(t, dir, "doctor")
	if code != 0 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	for _, want := range []string{
		"✓ Vault exists: ",
		"✓ Vault is writable",
		"✓ Database exists: ",
		"✓ Schema version: ",
		"Counts:",
		"  Notes: 3",
		"✓ All checks passed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("doctor missing %q:\n%s", want, out)
		}
	}
}

func TestDoctor_MissingDatabase(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, "aaa111aaa111", "# Alpha\n")

	out, _, code := runCLI(t, dir, "doctor")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(out, "✗ Database does not exist: ") {
		t.Errorf("doctor output = %q", out)
	}
	if !strings.Contains(out, "Recommendations:") || !strings.Contains(out, "  Run: hypo reindex --full") {
		t.Errorf("doctor missing recommendation:\n%s", out)
	}
	// Diagnosing must never create the database it reported missing.
	if _, err := os.Stat(filepath.Join(dir, ".hypo", "index.sqlite")); err == nil {
		t.Error("doctor created the index database")
	}
}

func TestExportQuartz_WritesSite(t *testing.T) {
	dir := linkedVault(t)
	outDir := filepath.Join(t.TempDir(), "site")

	out, _, code := runCLI(t, dir, "export", "quartz", outDir)
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out, "Exported to "+outDir) {
		t.Errorf("output = %q", out)
	}

	page, err := os.ReadFile(filepath.Join(outDir, "aaa111aaa111", "index.md"))
	if err != nil {
		t.Fatalf("exported page: %v", err)
	}
	if !strings.Contains(string(page), "title: Alpha") {
		t.Errorf("page missing title:\n%s", page)
	}
	if !strings.Contains(string(page), "[Beta](/bbb222bbb222/)") {
		t.Errorf("wiki token not rewritten:\n%s", page)
	}

	graph, err := os.ReadFile(filepath.Join(outDir, "graph.json"))
	if err != nil {
		t.Fatalf("graph manifest: %v", err)
	}
	if !strings.Contains(string(graph), `"source": "aaa111aaa111"`) {
		t.Errorf("graph manifest = %s", graph)
	}
}

func TestVerifyAssets_MissingFails(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, "iii999iii999", "# Pics\n\n![shot](assets/missing.png)\n")

	out, _, code := runCLI(t, dir, "verify-assets")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(out, "Refs: 1") || !strings.Contains(out, "iii999iii999: assets/missing.png") {
		t.Errorf("output = %q", out)
	}
}

func TestVerifyAssets_CleanPasses(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "assets"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "assets", "shot.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	seed(t, dir, "iii999iii999", "# Pics\n\n![shot](assets/shot.png)\n")

	out, _, code := runCLI(t, dir, "verify-assets")
	if code != 0 {
		t.Fatalf("exit code = %d, output %q", code, out)
	}
	if !strings.Contains(out, "✓ All assets present") {
		t.Errorf("output = %q", out)
	}
}

func TestEdit_UnchangedEditorSkipsWrite(t *testing.T) {
	dir := t.TempDir()
	content := "---\nid: aaa111aaa111\n---\n# Alpha\n"
	seed(t, dir, "aaa111aaa111", content)
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "true")

	_, _, code := runCLI(t, dir, "edit", "aaa111aaa111")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	data, err := os.ReadFile(filepath.Join(dir, "aaa111aaa111.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != content {
		t.Errorf("file changed by no-op edit:\n%s", data)
	}
}

func TestEdit_NotFound(t *testing.T) {
	_, stderr, code := runCLI(t, t.TempDir(), "edit", "zzzz")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Note zzzz not found") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestWatch_StopsWithContext(t *testing.T) {
	dir := linkedVault(t)
	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	_, stderr, code := runCLIContext(t, ctx, dir, "watch")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr %q", code, stderr)
	}
	// The startup sync ran before watching began.
	if _, err := os.Stat(filepath.Join(dir, ".hypo", "index.sqlite")); err != nil {
		t.Error("watch did not build the index")
	}
}
