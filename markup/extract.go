package markup

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jonwraymond/wikigraph/pageid"
)

var (
	linkPattern     = regexp.MustCompile(`\[\[([^\]|]+)(?:\|[^\]]+)?\]\]`)
	tagBlockPattern = regexp.MustCompile(`\{\{tag>([^}]+)\}\}`)
	tagTokenPattern = regexp.MustCompile(`"([^"]+)"|\S+`)
	headingPattern  = regexp.MustCompile(`(?m)^=+\s*(.+?)\s*=+\s*$`)
)

// ExtractLinks returns the resolved identifiers of every internal link in
// text, in order of first appearance. currentID supplies the namespace for
// relative links.
func ExtractLinks(text, currentID string) []string {
	matches := linkPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return []string{}
	}

	links := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		resolved, ok := pageid.ResolveLink(m[1], currentID)
		if !ok {
			continue
		}
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}
		links = append(links, resolved)
	}
	return links
}

// ExtractTags returns every tag annotated in text. Quoted tokens keep
// their inner whitespace; tags keep their case.
func ExtractTags(text string) []string {
	blocks := tagBlockPattern.FindAllStringSubmatch(text, -1)
	tags := make([]string, 0, len(blocks))
	seen := make(map[string]struct{})
	for _, block := range blocks {
		for _, tok := range tagTokenPattern.FindAllString(block[1], -1) {
			tag := strings.TrimSpace(strings.Trim(tok, `"`))
			if tag == "" {
				continue
			}
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	return tags
}

// ExtractTitle returns the text of the first heading in text, or id when
// the document has none.
func ExtractTitle(text, id string) string {
	m := headingPattern.FindStringSubmatch(text)
	if m == nil {
		return id
	}
	title := strings.TrimSpace(m[1])
	if title == "" {
		return id
	}
	return title
}

var (
	labeledLink = regexp.MustCompile(`\[\[[^\]|]+\|([^\]]+)\]\]`)
	plainLink   = regexp.MustCompile(`\[\[([^\]|]+)\]\]`)
	embed       = regexp.MustCompile(`\{\{[^}]*\}\}`)
	formatting  = strings.NewReplacer("**", "", "//", "", "__", "", "''", "", "<del>", "", "</del>", "")
	whitespace  = regexp.MustCompile(`\s+`)
)

// Excerpt returns a plain-text preview of at most maxRunes runes. Headings,
// embeds and tag blocks are dropped, links collapse to their label.
func Excerpt(text string, maxRunes int) string {
	body := headingPattern.ReplaceAllString(text, "")
	body = embed.ReplaceAllString(body, "")
	body = labeledLink.ReplaceAllString(body, "$1")
	body = plainLink.ReplaceAllString(body, "$1")
	body = formatting.Replace(body)
	body = strings.TrimSpace(whitespace.ReplaceAllString(body, " "))

	if maxRunes <= 0 || utf8.RuneCountInString(body) <= maxRunes {
		return body
	}

	runes := []rune(body)
	cut := string(runes[:maxRunes])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "..."
}
