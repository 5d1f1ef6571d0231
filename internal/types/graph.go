package types

// RelLinksTo is the relationship type of a page-to-page link edge.
const RelLinksTo = "LINKS_TO"

// GraphNode is a page in a Graph.
type GraphNode struct {
	Title string `json:"title"`
}

// GraphEdge is a directed link between two pages.
type GraphEdge struct {
	Source  string `json:"source"`
	Target  string `json:"target"`
	RelType string `json:"rel_type"`
}

// Graph is a deduplicated node/edge view of a link map.
type Graph struct {
	RootTitle        string                `json:"root_title"`
	Nodes            map[string]*GraphNode `json:"nodes"`
	Edges            []GraphEdge           `json:"edges"`
	MaxDepthExplored int                   `json:"max_depth_explored"`

	edgeSet map[GraphEdge]struct{}
}

// NewGraph creates a graph holding only the root node.
func NewGraph(rootTitle string) *Graph {
	g := &Graph{
		RootTitle: rootTitle,
		Nodes:     make(map[string]*GraphNode),
		edgeSet:   make(map[GraphEdge]struct{}),
	}
	g.AddNode(rootTitle)
	return g
}

// NewGraphFromTree flattens a link tree. A title reached through several
// parents becomes one node with several incoming edges.
func NewGraphFromTree(root *LinkNode) *Graph {
	g := NewGraph(root.Title)
	root.Walk(func(node *LinkNode, depth int) bool {
		if node.Expanded && depth > g.MaxDepthExplored {
			g.MaxDepthExplored = depth
		}
		for _, child := range node.Children {
			g.AddLink(node.Title, child.Title)
		}
		return true
	})
	return g
}

// AddNode adds a node if it does not exist and returns it.
func (g *Graph) AddNode(title string) *GraphNode {
	if n, ok := g.Nodes[title]; ok {
		return n
	}
	if g.Nodes == nil {
		g.Nodes = make(map[string]*GraphNode)
	}
	n := &GraphNode{Title: title}
	g.Nodes[title] = n
	return n
}

// AddLink adds both endpoints and a LINKS_TO edge. Duplicate edges are ignored.
func (g *Graph) AddLink(source, target string) {
	g.AddNode(source)
	g.AddNode(target)
	e := GraphEdge{Source: source, Target: target, RelType: RelLinksTo}
	if g.edgeSet == nil {
		// Decoded or zero-value graph: index the edges it already has.
		g.edgeSet = make(map[GraphEdge]struct{}, len(g.Edges))
		for _, old := range g.Edges {
			g.edgeSet[old] = struct{}{}
		}
	}
	if _, ok := g.edgeSet[e]; ok {
		return
	}
	g.edgeSet[e] = struct{}{}
	g.Edges = append(g.Edges, e)
}

// Outgoing returns the targets linked from title, in insertion order.
func (g *Graph) Outgoing(title string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.Source == title {
			out = append(out, e.Target)
		}
	}
	return out
}

// Incoming returns the sources linking to title, in insertion order.
func (g *Graph) Incoming(title string) []string {
	var in []string
	for _, e := range g.Edges {
		if e.Target == title {
			in = append(in, e.Source)
		}
	}
	return in
}
