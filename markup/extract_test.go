package markup

import (
	"reflect"
	"strings"
	"testing"
)

func TestExtractLinks(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		current string
		want    []string
	}{
		{
			name:    "plain and labeled",
			text:    "See [[child]] and [[other:page|the other page]].",
			current: "a:start",
			want:    []string{"a:child", "other:page"},
		},
		{
			name:    "dedup keeps first occurrence order",
			text:    "[[b]] [[a]] [[B]] [[b#section]]",
			current: "ns:start",
			want:    []string{"ns:b", "ns:a"},
		},
		{
			name:    "skips external interwiki and media",
			text:    "[[https://go.dev]] [[mailto:x@y.z]] [[wp>Go]] [[\\\\share\\dir]] [[{{img.png}}]] [[ok]]",
			current: "a:start",
			want:    []string{"a:ok"},
		},
		{
			name:    "relative links",
			text:    "[[:root]] [[..:sibling]] [[Leaf Page]]",
			current: "a:b:start",
			want:    []string{"root", "a:sibling", "a:b:leaf_page"},
		},
		{
			name:    "anchor only is skipped",
			text:    "[[#top]]",
			current: "a:start",
			want:    []string{},
		},
		{
			name:    "no links",
			text:    "nothing here",
			current: "a:start",
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractLinks(tt.text, tt.current)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractLinks() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

// TestExtractTags verifies quoted tokens, order, and dedup across blocks.
func TestExtractTags(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"single block", `{{tag>alpha beta "two words"}}`, []string{"alpha", "beta", "two words"}},
		{"multiple blocks dedup", "{{tag>alpha beta}}\ntext\n{{tag>beta gamma alpha}}", []string{"alpha", "beta", "gamma"}},
		{"case preserved", "{{tag>Go go}}", []string{"Go", "go"}},
		{"none", "no tags", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractTags(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractTags() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		text string
		id   string
		want string
	}{
		{"heading", "====== Widget Overview ======\nbody", "a:widget", "Widget Overview"},
		{"first heading wins", "intro\n=== First ===\n== Second ==", "a:x", "First"},
		{"fallback", "just text", "a:plain", "a:plain"},
		{"empty document", "", "a:empty", "a:empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTitle(tt.text, tt.id); got != tt.want {
				t.Errorf("ExtractTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExcerpt(t *testing.T) {
	text := "====== Title ======\n**Bold** intro with [[a:b|a link]] and [[plain]].\n{{tag>x y}}\nMore text."
	got := Excerpt(text, 0)
	want := "Bold intro with a link and plain. More text."
	if got != want {
		t.Errorf("Excerpt() = %q, want %q", got, want)
	}

	short := Excerpt(text, 12)
	if !strings.HasSuffix(short, "...") {
		t.Errorf("truncated excerpt %q should end with ...", short)
	}
	if len([]rune(strings.TrimSuffix(short, "..."))) > 12 {
		t.Errorf("truncated excerpt %q exceeds limit", short)
	}
}
