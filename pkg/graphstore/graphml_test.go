package graphstore

import (
	"os"
	"path/filepath"
	"testing"
)

func buildTestGraph() *Graph {
	g := New()
	g.AddOrMergeNode("ada lovelace", "person", "First programmer.")
	g.AddOrMergeNode("analytical engine", "machine", "Mechanical general-purpose computer.")
	g.AddOrMergeEdge("ada lovelace", "analytical engine", "Wrote the first program for it.", "computing, history")
	return g
}

func TestGraphMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.graphml")

	src := buildTestGraph()
	if err := src.SaveGraphML(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	dst := New()
	if err := dst.LoadGraphML(path); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if dst.NodeCount() != src.NodeCount() || dst.EdgeCount() != src.EdgeCount() {
		t.Fatalf("expected %d nodes %d edges, got %d nodes %d edges",
			src.NodeCount(), src.EdgeCount(), dst.NodeCount(), dst.EdgeCount())
	}

	node, ok := dst.Node("ADA LOVELACE")
	if !ok {
		t.Fatal("expected node after round trip")
	}
	if node.Type != "person" || node.Description != "First programmer." {
		t.Fatalf("node attributes lost: %+v", node)
	}

	edge := dst.Edges()[0]
	if edge.Description != "Wrote the first program for it." {
		t.Fatalf("edge description lost: %q", edge.Description)
	}
	if edge.Keywords != "computing, history" {
		t.Fatalf("edge keywords lost: %q", edge.Keywords)
	}
}

func TestLoadGraphMLMissingFile(t *testing.T) {
	g := New()
	if err := g.LoadGraphML(filepath.Join(t.TempDir(), "absent.graphml")); err != nil {
		t.Fatalf("expected missing file to be silent, got %v", err)
	}
	if g.NodeCount() != 0 {
		t.Fatalf("expected empty graph, got %d nodes", g.NodeCount())
	}
}

func TestLoadGraphMLMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.graphml")
	if err := os.WriteFile(path, []byte("not xml at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := New().LoadGraphML(path); err == nil {
		t.Fatal("expected error for malformed file")
	}
}

func TestSaveGraphMLLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.graphml")
	if err := buildTestGraph().SaveGraphML(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "graph.graphml" {
		t.Fatalf("expected only the final file, got %v", entries)
	}
}
