package graph

// Node is a single vertex in the analyzed graph. The engine treats nodes as
// opaque: ID identifies, Type classifies, Attrs carries whatever the source
// system wants to attach.
type Node struct {
	ID    string            `json:"id"`
	Type  string            `json:"type"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// Edge is a directed, typed connection between two nodes. Two edges between
// the same pair with different types are distinct edges.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type"`
}

// Document is a plain serializable container for a whole graph, the shape
// accepted by file sources and the seeding command.
type Document struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}
