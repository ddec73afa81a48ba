/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package desugar_test

import (
	"reflect"
	"slices"
	"testing"

	"bennypowers.dev/dexa/desugar"
)

func mustAddEdge(t *testing.T, g *desugar.Graph, dependent, dependency string) {
	t.Helper()
	if err := g.AddEdge(dependent, dependency); err != nil {
		t.Fatalf("AddEdge(%q, %q) failed: %v", dependent, dependency, err)
	}
}

func TestGraphDependents(t *testing.T) {
	g := desugar.NewGraph()

	// Set up: A depends on B, B depends on C
	mustAddEdge(t, g, "a/A.class", "b/B.class")
	mustAddEdge(t, g, "b/B.class", "c/C.class")

	deps := g.Dependents("c/C.class")
	if !reflect.DeepEqual(deps, []string{"b/B.class"}) {
		t.Errorf("Expected Dependents(C) = [B], got %v", deps)
	}

	deps = g.Dependents("b/B.class")
	if !reflect.DeepEqual(deps, []string{"a/A.class"}) {
		t.Errorf("Expected Dependents(B) = [A], got %v", deps)
	}

	if deps := g.Dependencies("a/A.class"); !reflect.DeepEqual(deps, []string{"b/B.class"}) {
		t.Errorf("Expected Dependencies(A) = [B], got %v", deps)
	}
}

func TestGraphAllDependents(t *testing.T) {
	g := desugar.NewGraph()

	// A depends on B, B depends on C, D depends on C
	mustAddEdge(t, g, "A.class", "B.class")
	mustAddEdge(t, g, "B.class", "C.class")
	mustAddEdge(t, g, "D.class", "C.class")

	deps := g.AllDependents([]string{"C.class"})
	want := []string{"A.class", "B.class", "D.class"}
	if !reflect.DeepEqual(deps, want) {
		t.Errorf("Expected AllDependents(C) = %v, got %v", want, deps)
	}

	// Seeds are not included in the result
	if slices.Contains(deps, "C.class") {
		t.Errorf("Expected AllDependents(C) to exclude the seed, got %v", deps)
	}

	// Multiple seeds: closure over the union
	deps = g.AllDependents([]string{"B.class", "C.class"})
	if !reflect.DeepEqual(deps, want) {
		t.Errorf("Expected AllDependents(B, C) = %v, got %v", want, deps)
	}
}

func TestGraphAllDependentsCycle(t *testing.T) {
	g := desugar.NewGraph()

	// A and B depend on each other; C depends on A
	mustAddEdge(t, g, "A.class", "B.class")
	mustAddEdge(t, g, "B.class", "A.class")
	mustAddEdge(t, g, "C.class", "A.class")

	deps := g.AllDependents([]string{"B.class"})
	want := []string{"A.class", "B.class", "C.class"}
	if !reflect.DeepEqual(deps, want) {
		t.Errorf("Expected AllDependents(B) = %v over the cycle, got %v", want, deps)
	}
}

func TestGraphAllDependentsUnknownNode(t *testing.T) {
	g := desugar.NewGraph()
	mustAddEdge(t, g, "A.class", "B.class")

	if deps := g.AllDependents([]string{"missing.class"}); len(deps) != 0 {
		t.Errorf("Expected no dependents for unknown node, got %v", deps)
	}
}

func TestGraphRemoveNode(t *testing.T) {
	g := desugar.NewGraph()

	mustAddEdge(t, g, "A.class", "B.class")
	mustAddEdge(t, g, "B.class", "C.class")

	dependents := g.RemoveNode("B.class")
	if !slices.Contains(dependents, "A.class") {
		t.Errorf("Expected RemoveNode to return A as dependent, got %v", dependents)
	}

	// No edge mentions B anymore
	for _, edge := range g.Edges() {
		if edge[0] == "B.class" || edge[1] == "B.class" {
			t.Errorf("Expected no edge mentioning B after removal, got %v", edge)
		}
	}
	if deps := g.Dependents("C.class"); slices.Contains(deps, "B.class") {
		t.Errorf("Expected C to no longer have B as dependent, got %v", deps)
	}
	if deps := g.AllDependents([]string{"C.class"}); slices.Contains(deps, "B.class") {
		t.Errorf("Expected AllDependents(C) to no longer report B, got %v", deps)
	}
	if slices.Contains(g.Nodes(), "B.class") {
		t.Errorf("Expected B to be gone from Nodes, got %v", g.Nodes())
	}
}

func TestGraphRemoveUnknownNode(t *testing.T) {
	g := desugar.NewGraph()
	mustAddEdge(t, g, "A.class", "B.class")

	if deps := g.RemoveNode("missing.class"); len(deps) != 0 {
		t.Errorf("Expected removing an unknown node to be a no-op, got %v", deps)
	}
	if g.Len() != 1 {
		t.Errorf("Expected edge count to stay 1, got %d", g.Len())
	}
}

func TestGraphAddEdgeIdempotent(t *testing.T) {
	g := desugar.NewGraph()

	mustAddEdge(t, g, "A.class", "B.class")
	mustAddEdge(t, g, "A.class", "B.class")

	if g.Len() != 1 {
		t.Errorf("Expected 1 edge after duplicate insertion, got %d", g.Len())
	}
}

func TestGraphAddEdgeSelf(t *testing.T) {
	g := desugar.NewGraph()

	if err := g.AddEdge("A.class", "A.class"); err != nil {
		t.Fatalf("AddEdge self failed: %v", err)
	}
	if g.Len() != 0 {
		t.Errorf("Expected self-edge to be ignored, got %d edges", g.Len())
	}
}

func TestGraphAddEdgeInvalidNode(t *testing.T) {
	g := desugar.NewGraph()

	invalid := []string{
		"",
		"/abs/path/A.class",
		"../escape/A.class",
		"..",
		`win\slash\A.class`,
		"a//b.class",
	}
	for _, node := range invalid {
		if err := g.AddEdge(node, "B.class"); err == nil {
			t.Errorf("Expected AddEdge(%q, B) to fail", node)
		}
		if err := g.AddEdge("B.class", node); err == nil {
			t.Errorf("Expected AddEdge(B, %q) to fail", node)
		}
	}
	if g.Len() != 0 {
		t.Errorf("Expected no edges after invalid insertions, got %d", g.Len())
	}
}

func TestGraphClone(t *testing.T) {
	g := desugar.NewGraph()
	mustAddEdge(t, g, "A.class", "B.class")

	clone := g.Clone()

	if !reflect.DeepEqual(g.Edges(), clone.Edges()) {
		t.Error("Clone should have same edges")
	}

	// Modify original, verify clone is independent
	mustAddEdge(t, g, "C.class", "D.class")
	if len(clone.Dependents("D.class")) != 0 {
		t.Error("Clone should be independent of original modifications")
	}
}

func TestGraphEdgesSorted(t *testing.T) {
	g := desugar.NewGraph()
	mustAddEdge(t, g, "b/B.class", "c/C.class")
	mustAddEdge(t, g, "a/A.class", "c/C.class")
	mustAddEdge(t, g, "a/A.class", "b/B.class")

	want := [][2]string{
		{"a/A.class", "b/B.class"},
		{"a/A.class", "c/C.class"},
		{"b/B.class", "c/C.class"},
	}
	if got := g.Edges(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected sorted edges %v, got %v", want, got)
	}
}
