package graph

import "testing"

// TestWordWrap verifies labels wrap on word boundaries and unwrap losslessly.
func TestWordWrap(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{"short", "start", 15, "start"},
		{"wraps on words", "Getting Started With The Wiki", 15, "Getting Started\nWith The Wiki"},
		{"long word stays whole", "supercalifragilistic", 15, "supercalifragilistic"},
		{"root width", "Getting Started With The Wiki", 20, "Getting Started With\nThe Wiki"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WordWrap(tt.text, tt.limit)
			if got != tt.want {
				t.Errorf("WordWrap(%q, %d) = %q, want %q", tt.text, tt.limit, got, tt.want)
			}
			if back := Unwrap(got); back != tt.text {
				t.Errorf("Unwrap(%q) = %q, want %q", got, back, tt.text)
			}
		})
	}
}

func TestLightenHex(t *testing.T) {
	tests := []struct {
		hex     string
		percent int
		want    string
	}{
		{PageColor, 0, "#03a9f4"},
		{PageColor, 5, "#10adf5"},
		{PageColor, 250, "#ffffff"}, // clamped
		{"nonsense", 5, "nonsense"},
	}
	for _, tt := range tests {
		if got := LightenHex(tt.hex, tt.percent); got != tt.want {
			t.Errorf("LightenHex(%q, %d) = %q, want %q", tt.hex, tt.percent, got, tt.want)
		}
	}
}

// TestDarken verifies border shades are darker than their fill.
func TestDarken(t *testing.T) {
	if got := Darken("#ffffff"); got != "#cccccc" {
		t.Errorf("Darken(#ffffff) = %q", got)
	}
	if got := Darken("#000000"); got != "#000000" {
		t.Errorf("Darken(#000000) = %q", got)
	}

	rgb, ok := parseHex(Darken(PageColor))
	if !ok {
		t.Fatal("Darken(PageColor) is not a hex color")
	}
	orig, _ := parseHex(PageColor)
	if rgb[2] >= orig[2] {
		t.Errorf("border blue %v, want less than %v", rgb[2], orig[2])
	}
}

// TestKindStyles verifies color, shape and size per node kind and level.
func TestKindStyles(t *testing.T) {
	tests := []struct {
		kind  Kind
		level int
		color string
		shape string
		size  int
	}{
		{KindPage, 0, "#03a9f4", "dot", 1},
		{KindPage, 1, "#10adf5", "dot", 1},
		{KindTag, 3, TagColor, "diamond", 1},
		{KindRoot, 0, RootColor, "square", 2},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			n := Node{Kind: tt.kind, Level: tt.level}
			restyle(&n)
			if n.Color != tt.color || n.Shape != tt.shape || n.Size != tt.size {
				t.Errorf("restyle() = %s %s %d, want %s %s %d",
					n.Color, n.Shape, n.Size, tt.color, tt.shape, tt.size)
			}
		})
	}
}

func TestRestyleEdge(t *testing.T) {
	tag := Edge{Kind: EdgeTag, Level: 1, Width: PathWidth}
	restyleEdge(&tag, nil)
	if tag.Color != TagEdgeColor || !tag.Dashed || tag.Width != NormalWidth {
		t.Errorf("tag edge = %+v", tag)
	}

	link := Edge{Kind: EdgeLink, Level: 4}
	restyleEdge(&link, &Node{Level: 1})
	if want := linkEdgeColor(1); link.Color != want {
		t.Errorf("link edge color = %q, want the target level's %q", link.Color, want)
	}
	if link.Dashed {
		t.Error("link edges are solid")
	}
}

func TestKindNames(t *testing.T) {
	if got := KindPage.String(); got != "page" {
		t.Errorf("KindPage.String() = %q", got)
	}
	if got := Kind(0).String(); got != "unknown" {
		t.Errorf("Kind(0).String() = %q", got)
	}
	if got := EdgeLink.String(); got != "link" {
		t.Errorf("EdgeLink.String() = %q", got)
	}
	b, err := KindRoot.MarshalText()
	if err != nil || string(b) != "root" {
		t.Errorf("KindRoot.MarshalText() = %q, %v", b, err)
	}
}

func TestKindUnmarshal(t *testing.T) {
	var k Kind
	if err := k.UnmarshalText([]byte("tag")); err != nil || k != KindTag {
		t.Errorf("UnmarshalText(tag) = %v, %v", k, err)
	}
	if err := k.UnmarshalText([]byte("blob")); err == nil {
		t.Error("UnmarshalText(blob) should fail")
	}

	var e EdgeKind
	if err := e.UnmarshalText([]byte("link")); err != nil || e != EdgeLink {
		t.Errorf("EdgeKind.UnmarshalText(link) = %v, %v", e, err)
	}
}
