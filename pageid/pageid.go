package pageid

import (
	"regexp"
	"strings"
)

// Separator delimits namespace segments.
const Separator = ":"

// TagPrefix prefixes the semantic key of tag nodes.
const TagPrefix = "tag:"

var (
	externalPattern = regexp.MustCompile(`^(https?:|mailto:|\\\\|\{)`)
	nonNeutral      = regexp.MustCompile(`[^a-z\d:_\-]`)
)

// Canonical returns the canonical (trimmed, lowercase) form of id.
func Canonical(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Namespace returns the namespace portion of id, or "" for top-level ids.
func Namespace(id string) string {
	i := strings.LastIndex(id, Separator)
	if i < 0 {
		return ""
	}
	return id[:i]
}

// LocalName returns the final segment of id.
func LocalName(id string) string {
	i := strings.LastIndex(id, Separator)
	if i < 0 {
		return id
	}
	return id[i+1:]
}

// Parent pops one segment off a namespace.
func Parent(namespace string) string {
	return Namespace(namespace)
}

// InNamespace reports whether id equals ns or lives below it.
// An empty ns contains every id.
func InNamespace(id, ns string) bool {
	if ns == "" {
		return true
	}
	return id == ns || strings.HasPrefix(id, ns+Separator)
}

// IsExternal reports whether a raw link token points outside the graph:
// URLs, mail links, windows shares, media embeds and interwiki links.
func IsExternal(raw string) bool {
	token := strings.ToLower(strings.TrimSpace(raw))
	if externalPattern.MatchString(token) {
		return true
	}
	return strings.Contains(token, ">")
}

// NormalizeToken lowercases a raw link token, replaces spaces with
// underscores and drops any #fragment.
func NormalizeToken(raw string) string {
	token := strings.ToLower(strings.TrimSpace(raw))
	token = strings.ReplaceAll(token, " ", "_")
	if i := strings.IndexByte(token, '#'); i >= 0 {
		token = token[:i]
	}
	return strings.TrimSpace(token)
}

// Resolve maps a normalized link token to an absolute identifier relative
// to namespace. It returns false when the token names nothing in the graph.
func Resolve(token, namespace string) (string, bool) {
	if token == "" || IsExternal(token) {
		return "", false
	}

	switch {
	case strings.HasPrefix(token, Separator):
		abs := strings.TrimLeft(token, Separator)
		return abs, abs != ""

	case strings.HasPrefix(token, ".."):
		rest := strings.TrimPrefix(token, "..")
		rest = strings.TrimPrefix(rest, Separator)
		if rest == "" {
			return "", false
		}
		parent := Parent(namespace)
		if parent == "" {
			return rest, true
		}
		return parent + Separator + rest, true

	case strings.Contains(token, Separator):
		return token, true

	case namespace != "":
		return namespace + Separator + token, true

	default:
		return token, true
	}
}

// ResolveLink runs the full pipeline for a token found in the document
// currentID: external filtering, normalization and resolution.
func ResolveLink(raw, currentID string) (string, bool) {
	if IsExternal(raw) {
		return "", false
	}
	return Resolve(NormalizeToken(raw), Namespace(Canonical(currentID)))
}

// NodeID returns the neutral graph node id for a document identifier.
// Colons survive; everything outside [a-z0-9:_-] is dropped.
func NodeID(id string) string {
	id = strings.ToLower(id)
	id = strings.ReplaceAll(id, "%20", "_")
	return nonNeutral.ReplaceAllString(id, "")
}

// TagNodeID returns the neutral graph node id for a tag.
func TagNodeID(tag string) string {
	return NodeID(TagPrefix + tag)
}
