package crawler

import "testing"

// TestCanonicalize tests the node-identity rule.
func TestCanonicalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain URL unchanged", "https://ex.com/a", "https://ex.com/a"},
		{"trailing slash stripped", "https://ex.com/a/", "https://ex.com/a"},
		{"query dropped", "https://ex.com/a?x=1", "https://ex.com/a"},
		{"fragment dropped", "https://ex.com/a#frag", "https://ex.com/a"},
		{"query and fragment dropped", "https://ex.com/a?x=1#frag", "https://ex.com/a"},
		{"empty path defaults to root", "https://ex.com", "https://ex.com/"},
		{"root trailing slash kept", "https://ex.com/", "https://ex.com/"},
		{"repeated slashes collapsed", "https://ex.com//a///b", "https://ex.com/a/b"},
		{"slash run reduces to root", "https://ex.com///", "https://ex.com/"},
		{"scheme and host lowercased", "HTTPS://EX.com/A", "https://ex.com/A"},
		{"surrounding whitespace trimmed", "  https://ex.com/a  ", "https://ex.com/a"},
		{"relative URL tolerated", "/a/b/", "/a/b"},
		{"empty input tolerated", "", "/"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Canonicalize(tt.in); got != tt.want {
				t.Errorf("Canonicalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestCanonicalizeIdempotent verifies canonicalize(canonicalize(u)) == canonicalize(u).
func TestCanonicalizeIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"https://ex.com/a?x=1#frag",
		"https://EX.com//a//b/",
		"https://ex.com",
		"http://ex.com:8080/path/?q=2",
		"not a url at all",
		"",
	}
	for _, in := range inputs {
		once := Canonicalize(in)
		twice := Canonicalize(once)
		if once != twice {
			t.Errorf("Canonicalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

// TestStripFragment verifies that only the fragment is removed.
func TestStripFragment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"https://ex.com/a?x=1#frag", "https://ex.com/a?x=1"},
		{"https://ex.com/a#frag", "https://ex.com/a"},
		{"https://ex.com/a?x=1", "https://ex.com/a?x=1"},
		{"https://ex.com/a/", "https://ex.com/a/"},
	}
	for _, tt := range tests {
		if got := StripFragment(tt.in); got != tt.want {
			t.Errorf("StripFragment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestHasQuery verifies query-string detection.
func TestHasQuery(t *testing.T) {
	t.Parallel()

	if !HasQuery("https://ex.com/a?x=1") {
		t.Error("expected HasQuery true for URL with query")
	}
	if HasQuery("https://ex.com/a") {
		t.Error("expected HasQuery false for URL without query")
	}
	if HasQuery("https://ex.com/a#frag") {
		t.Error("expected HasQuery false for URL with only a fragment")
	}
}
