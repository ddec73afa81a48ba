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

// Package desugar tracks dependencies between class files for incremental
// dexing. An edge (dependent, dependency) means the dependent's desugared
// output depends on the dependency's bytecode, so a change to the dependency
// invalidates the dependent's output.
package desugar

import (
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"
	"sync"
)

// Graph is a directed dependency graph over class-file paths.
// Nodes are slash-separated paths relative to a single shared root, which
// keeps a persisted graph relocatable across machines and caches. Nodes
// exist only by virtue of edges: a path with no recorded edges has no
// dependents and no dependencies.
type Graph struct {
	mu sync.RWMutex

	// dependsOn maps a class file to the set of class files it needs
	// e.g., "com/example/Foo.class" -> {"com/example/Base.class": true}
	dependsOn map[string]map[string]bool

	// dependents maps a class file to the set of class files that need it
	// e.g., "com/example/Base.class" -> {"com/example/Foo.class": true}
	dependents map[string]map[string]bool
}

// NewGraph creates a new empty dependency graph.
func NewGraph() *Graph {
	return &Graph{
		dependsOn:  make(map[string]map[string]bool),
		dependents: make(map[string]map[string]bool),
	}
}

// checkNode rejects paths that cannot be expressed relative to a single
// root. Absolute paths from different roots must never coexist in one graph.
func checkNode(node string) error {
	switch {
	case node == "" || node == ".":
		return fmt.Errorf("empty graph node")
	case strings.HasPrefix(node, "/"):
		return fmt.Errorf("graph node %q is absolute; nodes must be relative to the class root", node)
	case strings.Contains(node, `\`):
		return fmt.Errorf("graph node %q contains a backslash; nodes must use forward slashes", node)
	case path.Clean(node) != node || node == ".." || strings.HasPrefix(node, "../"):
		return fmt.Errorf("graph node %q escapes the class root", node)
	}
	return nil
}

// AddEdge records that dependent requires dependency. Both paths must be
// clean slash-separated paths relative to the class root. Self-edges are
// ignored; repeated insertion is a no-op.
func (g *Graph) AddEdge(dependent, dependency string) error {
	if err := checkNode(dependent); err != nil {
		return err
	}
	if err := checkNode(dependency); err != nil {
		return err
	}
	if dependent == dependency {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.dependsOn[dependent] == nil {
		g.dependsOn[dependent] = make(map[string]bool)
	}
	g.dependsOn[dependent][dependency] = true

	if g.dependents[dependency] == nil {
		g.dependents[dependency] = make(map[string]bool)
	}
	g.dependents[dependency][dependent] = true
	return nil
}

// RemoveNode removes a node and every edge mentioning it, used when a class
// file is deleted or is about to be reprocessed so stale edges don't linger.
// Returns the former direct dependents of the removed node. Removing an
// unknown node is a no-op.
func (g *Graph) RemoveNode(node string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	result := make([]string, 0, len(g.dependents[node]))
	for dependent := range g.dependents[node] {
		result = append(result, dependent)
	}

	for dependency := range g.dependsOn[node] {
		delete(g.dependents[dependency], node)
		if len(g.dependents[dependency]) == 0 {
			delete(g.dependents, dependency)
		}
	}
	for dependent := range g.dependents[node] {
		delete(g.dependsOn[dependent], node)
		if len(g.dependsOn[dependent]) == 0 {
			delete(g.dependsOn, dependent)
		}
	}

	delete(g.dependsOn, node)
	delete(g.dependents, node)

	slices.Sort(result)
	return result
}

// Dependents returns the class files that directly depend on node.
func (g *Graph) Dependents(node string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.dependents[node])
}

// Dependencies returns the class files that node directly depends on.
func (g *Graph) Dependencies(node string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.dependsOn[node])
}

// AllDependents returns every class file that directly or transitively
// depends on any node in changed, following reverse edges breadth-first.
// The changed nodes themselves are not included unless one changed node
// depends on another. Cycles are handled.
func (g *Graph) AllDependents(changed []string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[string]bool, len(changed))
	queue := slices.Clone(changed)
	var result []string

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for dependent := range g.dependents[current] {
			if !visited[dependent] {
				visited[dependent] = true
				result = append(result, dependent)
				queue = append(queue, dependent)
			}
		}
	}

	slices.Sort(result)
	return result
}

// Nodes returns every path mentioned by at least one edge, sorted.
func (g *Graph) Nodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	set := make(map[string]bool, len(g.dependsOn)+len(g.dependents))
	for node := range g.dependsOn {
		set[node] = true
	}
	for node := range g.dependents {
		set[node] = true
	}
	return sortedKeys(set)
}

// Edges returns every edge as (dependent, dependency) pairs, sorted by
// dependent then dependency. Used by serialization and inspection.
func (g *Graph) Edges() [][2]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var edges [][2]string
	for dependent, deps := range g.dependsOn {
		for dependency := range deps {
			edges = append(edges, [2]string{dependent, dependency})
		}
	}
	slices.SortFunc(edges, func(a, b [2]string) int {
		if c := strings.Compare(a[0], b[0]); c != 0 {
			return c
		}
		return strings.Compare(a[1], b[1])
	})
	return edges
}

// Len returns the number of edges in the graph.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := 0
	for _, deps := range g.dependsOn {
		n += len(deps)
	}
	return n
}

// Clone creates a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	clone := NewGraph()
	for node, deps := range g.dependsOn {
		clone.dependsOn[node] = make(map[string]bool, len(deps))
		maps.Copy(clone.dependsOn[node], deps)
	}
	for node, deps := range g.dependents {
		clone.dependents[node] = make(map[string]bool, len(deps))
		maps.Copy(clone.dependents[node], deps)
	}
	return clone
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	result := make([]string, 0, len(set))
	for key := range set {
		result = append(result, key)
	}
	slices.Sort(result)
	return result
}
