package graphstore

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
)

// GraphML persistence. The attribute keys follow the usual GraphML
// convention of declared <key> elements so other tooling (networkx, gephi)
// can read the files.

type graphmlDoc struct {
	XMLName xml.Name     `xml:"graphml"`
	Xmlns   string       `xml:"xmlns,attr"`
	Keys    []graphmlKey `xml:"key"`
	Graph   graphmlGraph `xml:"graph"`
}

type graphmlKey struct {
	ID       string `xml:"id,attr"`
	For      string `xml:"for,attr"`
	AttrName string `xml:"attr.name,attr"`
	AttrType string `xml:"attr.type,attr"`
}

type graphmlGraph struct {
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []graphmlNode `xml:"node"`
	Edges       []graphmlEdge `xml:"edge"`
}

type graphmlNode struct {
	ID   string        `xml:"id,attr"`
	Data []graphmlData `xml:"data"`
}

type graphmlEdge struct {
	Source string        `xml:"source,attr"`
	Target string        `xml:"target,attr"`
	Data   []graphmlData `xml:"data"`
}

type graphmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

const (
	keyNodeType = "d0"
	keyNodeDesc = "d1"
	keyEdgeDesc = "d2"
	keyEdgeKw   = "d3"
)

// SaveGraphML serializes the full graph to path. The file is written to a
// temporary sibling first and renamed into place so a failed write never
// corrupts the previous state.
func (g *Graph) SaveGraphML(path string) error {
	doc := graphmlDoc{
		Xmlns: "http://graphml.graphdrawing.org/xmlns",
		Keys: []graphmlKey{
			{ID: keyNodeType, For: "node", AttrName: "type", AttrType: "string"},
			{ID: keyNodeDesc, For: "node", AttrName: "description", AttrType: "string"},
			{ID: keyEdgeDesc, For: "edge", AttrName: "description", AttrType: "string"},
			{ID: keyEdgeKw, For: "edge", AttrName: "keywords", AttrType: "string"},
		},
		Graph: graphmlGraph{EdgeDefault: "undirected"},
	}

	for _, node := range g.Nodes() {
		doc.Graph.Nodes = append(doc.Graph.Nodes, graphmlNode{
			ID: node.Name,
			Data: []graphmlData{
				{Key: keyNodeType, Value: node.Type},
				{Key: keyNodeDesc, Value: node.Description},
			},
		})
	}
	for _, edge := range g.Edges() {
		doc.Graph.Edges = append(doc.Graph.Edges, graphmlEdge{
			Source: edge.Source,
			Target: edge.Target,
			Data: []graphmlData{
				{Key: keyEdgeDesc, Value: edge.Description},
				{Key: keyEdgeKw, Value: edge.Keywords},
			},
		})
	}

	payload, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}
	payload = append([]byte(xml.Header), payload...)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create graph directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write graph file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace graph file: %w", err)
	}
	return nil
}

// LoadGraphML populates the graph from path. A missing file leaves the
// graph empty and returns nil; the store starts fresh on first run.
func (g *Graph) LoadGraphML(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read graph file: %w", err)
	}

	var doc graphmlDoc
	if err := xml.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("failed to parse graph file: %w", err)
	}

	// Resolve declared keys by attribute name so files written by other
	// tools load too.
	nodeType, nodeDesc, edgeDesc, edgeKw := keyNodeType, keyNodeDesc, keyEdgeDesc, keyEdgeKw
	for _, key := range doc.Keys {
		switch {
		case key.For == "node" && key.AttrName == "type":
			nodeType = key.ID
		case key.For == "node" && key.AttrName == "description":
			nodeDesc = key.ID
		case key.For == "edge" && key.AttrName == "description":
			edgeDesc = key.ID
		case key.For == "edge" && key.AttrName == "keywords":
			edgeKw = key.ID
		}
	}

	g.Reset()
	for _, node := range doc.Graph.Nodes {
		g.AddOrMergeNode(node.ID, dataValue(node.Data, nodeType), dataValue(node.Data, nodeDesc))
	}
	for _, edge := range doc.Graph.Edges {
		g.AddOrMergeEdge(edge.Source, edge.Target, dataValue(edge.Data, edgeDesc), dataValue(edge.Data, edgeKw))
	}
	return nil
}

func dataValue(data []graphmlData, key string) string {
	for _, d := range data {
		if d.Key == key {
			return d.Value
		}
	}
	return ""
}
