package graphstore

import (
	"sort"
	"strings"
	"sync"

	"github.com/GPTNLP/AURA/internal/util"
)

// Node is an entity in the graph. Name is the unique key; repeated
// extraction of the same name appends to Description rather than
// overwriting it.
type Node struct {
	Name        string
	Type        string
	Description string
}

// Edge is a relationship between two entities. Storage and traversal treat
// it as undirected, but Source and Target preserve the ordering of the
// first extraction that produced it.
type Edge struct {
	Source      string
	Target      string
	Description string
	Keywords    string
}

// Neighbor pairs an adjacent node name with the connecting edge.
type Neighbor struct {
	Name string
	Edge Edge
}

// Graph maintains entities and relationships with merge-on-insert
// semantics. It is safe for concurrent readers; the indexing pipeline is
// the single writer during a build.
type Graph struct {
	mu        sync.RWMutex
	nodes     map[string]*Node
	nodeOrder []string

	adj       map[string]map[string]*Edge
	edgeOrder []string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		adj:   make(map[string]map[string]*Edge),
	}
}

// NormalizeName produces the unique node key: trimmed, inner whitespace
// collapsed, upper-cased.
func NormalizeName(name string) string {
	return strings.ToUpper(util.CollapseWhitespace(name))
}

func edgeKey(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}

// AddOrMergeNode inserts a node or, when the name already exists, appends
// the description (space-joined). Duplicate names are expected, not an
// error. An empty type never overwrites a known one.
func (g *Graph) AddOrMergeNode(name, nodeType, description string) {
	name = NormalizeName(name)
	if name == "" {
		return
	}
	description = util.CollapseWhitespace(description)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.addOrMergeNodeLocked(name, nodeType, description)
}

func (g *Graph) addOrMergeNodeLocked(name, nodeType, description string) *Node {
	if node, ok := g.nodes[name]; ok {
		if description != "" {
			if node.Description == "" {
				node.Description = description
			} else {
				node.Description += " " + description
			}
		}
		if node.Type == "" && nodeType != "" {
			node.Type = nodeType
		}
		return node
	}

	node := &Node{Name: name, Type: nodeType, Description: description}
	g.nodes[name] = node
	g.nodeOrder = append(g.nodeOrder, name)
	g.adj[name] = make(map[string]*Edge)
	return node
}

// AddOrMergeEdge inserts a relationship or, when one already connects the
// pair, appends the description. Missing endpoints are created implicitly
// so a relationship record never fails on ordering.
func (g *Graph) AddOrMergeEdge(source, target, description, keywords string) {
	source = NormalizeName(source)
	target = NormalizeName(target)
	if source == "" || target == "" || source == target {
		return
	}
	description = util.CollapseWhitespace(description)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.addOrMergeNodeLocked(source, "", "")
	g.addOrMergeNodeLocked(target, "", "")

	if edge, ok := g.adj[source][target]; ok {
		if description != "" {
			if edge.Description == "" {
				edge.Description = description
			} else {
				edge.Description += " " + description
			}
		}
		mergeKeywords(edge, keywords)
		return
	}

	edge := &Edge{
		Source:      source,
		Target:      target,
		Description: description,
		Keywords:    util.CollapseWhitespace(keywords),
	}
	g.adj[source][target] = edge
	g.adj[target][source] = edge
	g.edgeOrder = append(g.edgeOrder, edgeKey(source, target))
}

func mergeKeywords(edge *Edge, keywords string) {
	keywords = util.CollapseWhitespace(keywords)
	if keywords == "" {
		return
	}
	if edge.Keywords == "" {
		edge.Keywords = keywords
		return
	}

	have := make(map[string]bool)
	for _, k := range strings.Split(edge.Keywords, ",") {
		have[strings.ToLower(strings.TrimSpace(k))] = true
	}
	for _, k := range strings.Split(keywords, ",") {
		k = strings.TrimSpace(k)
		if k == "" || have[strings.ToLower(k)] {
			continue
		}
		edge.Keywords += ", " + k
		have[strings.ToLower(k)] = true
	}
}

// Node returns a copy of the named node.
func (g *Graph) Node(name string) (Node, bool) {
	name = NormalizeName(name)

	g.mu.RLock()
	defer g.mu.RUnlock()

	node, ok := g.nodes[name]
	if !ok {
		return Node{}, false
	}
	return *node, true
}

// Neighbors returns the adjacent nodes of name with their connecting
// edges, sorted by neighbor name. An absent name yields an empty result.
func (g *Graph) Neighbors(name string) []Neighbor {
	name = NormalizeName(name)

	g.mu.RLock()
	defer g.mu.RUnlock()

	adjacent, ok := g.adj[name]
	if !ok {
		return nil
	}

	neighbors := make([]Neighbor, 0, len(adjacent))
	for other, edge := range adjacent {
		neighbors = append(neighbors, Neighbor{Name: other, Edge: *edge})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		return neighbors[i].Name < neighbors[j].Name
	})
	return neighbors
}

// MergeNodes contracts secondary into primary: descriptions are appended,
// secondary's edges reattach to primary (duplicates merged, self-loops
// dropped) and secondary is removed. Absent names make it a no-op.
func (g *Graph) MergeNodes(primary, secondary string) {
	primary = NormalizeName(primary)
	secondary = NormalizeName(secondary)
	if primary == "" || secondary == "" || primary == secondary {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	primaryNode, ok := g.nodes[primary]
	if !ok {
		return
	}
	secondaryNode, ok := g.nodes[secondary]
	if !ok {
		return
	}

	if secondaryNode.Description != "" {
		if primaryNode.Description == "" {
			primaryNode.Description = secondaryNode.Description
		} else {
			primaryNode.Description += " " + secondaryNode.Description
		}
	}
	if primaryNode.Type == "" {
		primaryNode.Type = secondaryNode.Type
	}

	for other, edge := range g.adj[secondary] {
		delete(g.adj[other], secondary)
		g.removeEdgeOrderLocked(edgeKey(secondary, other))

		if other == primary {
			continue // self-loop after contraction
		}

		if existing, ok := g.adj[primary][other]; ok {
			if edge.Description != "" {
				if existing.Description == "" {
					existing.Description = edge.Description
				} else {
					existing.Description += " " + edge.Description
				}
			}
			mergeKeywords(existing, edge.Keywords)
			continue
		}

		if edge.Source == secondary {
			edge.Source = primary
		}
		if edge.Target == secondary {
			edge.Target = primary
		}
		g.adj[primary][other] = edge
		g.adj[other][primary] = edge
		g.edgeOrder = append(g.edgeOrder, edgeKey(primary, other))
	}

	delete(g.adj, secondary)
	delete(g.nodes, secondary)
	g.removeNodeOrderLocked(secondary)
}

func (g *Graph) removeEdgeOrderLocked(key string) {
	for i, k := range g.edgeOrder {
		if k == key {
			g.edgeOrder = append(g.edgeOrder[:i], g.edgeOrder[i+1:]...)
			return
		}
	}
}

func (g *Graph) removeNodeOrderLocked(name string) {
	for i, n := range g.nodeOrder {
		if n == name {
			g.nodeOrder = append(g.nodeOrder[:i], g.nodeOrder[i+1:]...)
			return
		}
	}
}

// Nodes returns copies of all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make([]Node, 0, len(g.nodeOrder))
	for _, name := range g.nodeOrder {
		nodes = append(nodes, *g.nodes[name])
	}
	return nodes
}

// Edges returns copies of all edges in insertion order.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edges := make([]Edge, 0, len(g.edgeOrder))
	for _, key := range g.edgeOrder {
		parts := strings.SplitN(key, "|", 2)
		if edge, ok := g.adj[parts[0]][parts[1]]; ok {
			edges = append(edges, *edge)
		}
	}
	return edges
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edgeOrder)
}

// Reset discards all nodes and edges.
func (g *Graph) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes = make(map[string]*Node)
	g.nodeOrder = nil
	g.adj = make(map[string]map[string]*Edge)
	g.edgeOrder = nil
}
