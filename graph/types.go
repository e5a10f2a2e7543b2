package graph

import "fmt"

// Kind is the variant of a node.
type Kind int

const (
	// KindPage is a document reached by expansion.
	KindPage Kind = iota + 1

	// KindTag is a tag annotation.
	KindTag

	// KindRoot is a document chosen as a traversal origin.
	KindRoot
)

var kindNames = map[Kind]string{
	KindPage: "page",
	KindTag:  "tag",
	KindRoot: "root",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("graph: unknown node kind %q", b)
}

// IsDocument reports whether nodes of this kind wrap a document.
func (k Kind) IsDocument() bool {
	return k == KindPage || k == KindRoot
}

// EdgeKind is the relationship an edge records.
type EdgeKind int

const (
	// EdgeLink is a page-to-page markup reference.
	EdgeLink EdgeKind = iota + 1

	// EdgeTag connects a page and a tag.
	EdgeTag
)

var edgeKindNames = map[EdgeKind]string{
	EdgeLink: "link",
	EdgeTag:  "tag",
}

// String returns the wire name of the edge kind.
func (k EdgeKind) String() string {
	if name, ok := edgeKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the edge kind by name.
func (k EdgeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes an edge kind name.
func (k *EdgeKind) UnmarshalText(b []byte) error {
	for kind, name := range edgeKindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("graph: unknown edge kind %q", b)
}

// Point is a position in renderer coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one vertex of an exploration session.
//
// Level and Parent are fixed by the first discovery. Label starts as the
// local name of the document and is replaced once the title resolves.
type Node struct {
	ID       string `json:"id"`
	Kind     Kind   `json:"kind"`
	PageID   string `json:"page_id,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Title    string `json:"title"`
	Label    string `json:"label"`
	Level    int    `json:"level"`
	Parent   string `json:"parent,omitempty"`
	Position Point  `json:"position"`
	Expanded bool   `json:"expanded"`

	Color string `json:"color"`
	Shape string `json:"shape"`
	Size  int    `json:"size"`
}

// Edge is a directed typed connection. At most one edge of each kind
// exists between an ordered pair of nodes.
type Edge struct {
	ID     string   `json:"id"`
	Kind   EdgeKind `json:"kind"`
	From   string   `json:"from"`
	To     string   `json:"to"`
	Level  int      `json:"level"`
	Color  string   `json:"color"`
	Width  int      `json:"width"`
	Dashed bool     `json:"dashed"`
}

// EdgeID returns the identity of the edge of kind from -> to.
func EdgeID(kind EdgeKind, from, to string) string {
	return kind.String() + ":" + from + "->" + to
}

// Path is a traceback result ordered from the root to the selected node.
type Path struct {
	Nodes     []string `json:"nodes"`
	Edges     []string `json:"edges"`
	Truncated bool     `json:"truncated"`
}

// EventKind is an interaction reported by the renderer.
type EventKind string

const (
	EventPrimarySelect   EventKind = "primary-select"
	EventSecondarySelect EventKind = "secondary-select"
	EventDoubleActivate  EventKind = "double-activate"
	EventHoverEnter      EventKind = "hover-enter"
	EventHoverLeave      EventKind = "hover-leave"
)

// Event is one renderer interaction. An empty Node means the background.
type Event struct {
	Kind EventKind `json:"event"`
	Node string    `json:"node,omitempty"`
}

// Info is what the info panel shows for a hovered node.
type Info struct {
	NodeID    string `json:"node"`
	Kind      Kind   `json:"kind"`
	Title     string `json:"title"`
	PageID    string `json:"page_id,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	Tag       string `json:"tag,omitempty"`
	Hint      string `json:"hint"`
}
