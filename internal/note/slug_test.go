package note

import "testing"

func TestSlugify_Basic(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"Riemann–Christoffel symbols", "riemann-christoffel-symbols"},
		{"Node.js", "nodejs"},
		{"C++ Programming", "c-programming"},
		{"Café", "cafe"},
		{"  spaces   everywhere  ", "spaces-everywhere"},
		{"already-a-slug", "already-a-slug"},
		{"Mixed_Case_With_Underscores", "mixed_case_with_underscores"},
		{"", ""},
		{"!!!", ""},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSlugify_Idempotent(t *testing.T) {
	inputs := []string{"Hello World", "Café au lait", "a — b", "#1 Section"}
	for _, in := range inputs {
		once := Slugify(in)
		twice := Slugify(once)
		if once != twice {
			t.Errorf("Slugify not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestSlugify_CollapsesHyphenRuns(t *testing.T) {
	if got := Slugify("a - b"); got != "a-b" {
		t.Errorf("Slugify(%q) = %q, want %q", "a - b", got, "a-b")
	}
}
