package lookup

// PageTitle is the pagename payload.
type PageTitle struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
}

// PageInfo combines title, namespace and tags of one document.
type PageInfo struct {
	ID        string   `json:"id" yaml:"id"`
	Title     string   `json:"title" yaml:"title"`
	Namespace string   `json:"namespace" yaml:"namespace"`
	Tags      []string `json:"tags" yaml:"tags"`
}

// Preview is a short plain-text excerpt of a document.
type Preview struct {
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Excerpt string `json:"excerpt" yaml:"excerpt"`
}

// PageEntry identifies one document in tag and random-page payloads.
type PageEntry struct {
	ID string `json:"id" yaml:"id"`
}

// TagPages is the answer of PagesByTag.
type TagPages struct {
	Pages []PageEntry `json:"pages" yaml:"pages"`

	// Unindexed counts documents whose tags were not examined because the
	// cold-fetch bound was reached. Zero means the result is complete.
	Unindexed int `json:"unindexed" yaml:"unindexed"`

	// FromIndex is set when the aggregate tag index answered.
	FromIndex bool `json:"from_index" yaml:"from_index"`
}

// TagIndex maps a tag to the documents carrying it, in corpus order.
type TagIndex map[string][]PageEntry

// Node types of a prebuilt graph.
const (
	NodePage = "page"
	NodeTag  = "tag"
)

// Edge types of a prebuilt graph.
const (
	EdgeLink = "link"
	EdgeTag  = "tag"
)

// GraphNode is one node of a prebuilt graph.
type GraphNode struct {
	ID        string `json:"id" yaml:"id"`
	Label     string `json:"label" yaml:"label"`
	Type      string `json:"type" yaml:"type"`
	Namespace string `json:"namespace" yaml:"namespace"`
}

// GraphEdge is one edge of a prebuilt graph.
type GraphEdge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
	Type string `json:"type" yaml:"type"`
}

// Graph is the full node/edge set of a namespace.
type Graph struct {
	Nodes []GraphNode `json:"nodes" yaml:"nodes"`
	Edges []GraphEdge `json:"edges" yaml:"edges"`
}

// ClientConfig is the configuration the UI needs.
type ClientConfig struct {
	WikiURL       string `json:"wiki_url" yaml:"wiki_url"`
	BaseNamespace string `json:"base_namespace" yaml:"base_namespace"`
}

// facts are the per-document extraction results.
type facts struct {
	id    string
	title string
	links []string
	tags  []string
}
