package graphstore

import (
	"math/rand/v2"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"
)

// Communities partitions the graph with Louvain modularity maximisation.
// Each community is a sorted slice of node names and the communities
// themselves are ordered by their first member, so repeated calls on the
// same graph with the same seed yield identical output.
func (g *Graph) Communities(seed uint64) [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.nodeOrder) == 0 {
		return nil
	}

	idByName := make(map[string]int64, len(g.nodeOrder))
	nameByID := make(map[int64]string, len(g.nodeOrder))
	ug := simple.NewUndirectedGraph()
	for i, name := range g.nodeOrder {
		id := int64(i)
		idByName[name] = id
		nameByID[id] = name
		ug.AddNode(simple.Node(id))
	}
	for _, key := range g.edgeOrder {
		parts := strings.SplitN(key, "|", 2)
		if parts[0] == parts[1] {
			continue
		}
		ug.SetEdge(simple.Edge{F: simple.Node(idByName[parts[0]]), T: simple.Node(idByName[parts[1]])})
	}

	src := rand.NewPCG(seed, seed)
	reduced := community.Modularize(ug, 1.0, src)

	var out [][]string
	for _, com := range reduced.Communities() {
		members := make([]string, 0, len(com))
		for _, node := range com {
			members = append(members, nameByID[node.ID()])
		}
		sort.Strings(members)
		out = append(out, members)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
