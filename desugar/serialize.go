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
package desugar

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"

	"bennypowers.dev/dexa/fs"
)

// Binary graph format, version 1:
//
//	magic "dxg1"
//	uvarint nodeCount
//	nodeCount × (uvarint length, path bytes), sorted
//	uvarint edgeCount
//	edgeCount × (uvarint dependentIndex, uvarint dependencyIndex), sorted
//
// Node paths are relative slash paths, so the file is byte-identical for
// the same graph regardless of where the class root lives.
const graphMagic = "dxg1"

// ErrBadGraphFile reports a missing, truncated, or corrupt graph file.
// Callers should treat it as "no previous graph" and fall back to a full
// (non-incremental) run rather than failing the build.
var ErrBadGraphFile = errors.New("malformed desugar graph file")

// Encode serializes the graph to its binary format. Equal graphs encode to
// identical bytes.
func (g *Graph) Encode() []byte {
	nodes := g.Nodes()
	index := make(map[string]uint64, len(nodes))
	for i, node := range nodes {
		index[node] = uint64(i)
	}

	buf := []byte(graphMagic)
	buf = binary.AppendUvarint(buf, uint64(len(nodes)))
	for _, node := range nodes {
		buf = binary.AppendUvarint(buf, uint64(len(node)))
		buf = append(buf, node...)
	}

	edges := g.Edges()
	buf = binary.AppendUvarint(buf, uint64(len(edges)))
	for _, edge := range edges {
		buf = binary.AppendUvarint(buf, index[edge[0]])
		buf = binary.AppendUvarint(buf, index[edge[1]])
	}
	return buf
}

// Decode deserializes a graph from its binary format. The result holds
// exactly the edges that were encoded: no duplication, no loss.
func Decode(data []byte) (*Graph, error) {
	if len(data) < len(graphMagic) || string(data[:len(graphMagic)]) != graphMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrBadGraphFile)
	}
	data = data[len(graphMagic):]

	nodeCount, data, err := readUvarint(data)
	if err != nil {
		return nil, fmt.Errorf("%w: node count: %v", ErrBadGraphFile, err)
	}
	// Each node costs at least one length byte, so a count beyond the
	// remaining data is corrupt before we allocate anything.
	if nodeCount > uint64(len(data)) {
		return nil, fmt.Errorf("%w: node count %d exceeds file size", ErrBadGraphFile, nodeCount)
	}
	nodes := make([]string, 0, nodeCount)
	for i := uint64(0); i < nodeCount; i++ {
		var length uint64
		length, data, err = readUvarint(data)
		if err != nil {
			return nil, fmt.Errorf("%w: node %d length: %v", ErrBadGraphFile, i, err)
		}
		if length > uint64(len(data)) {
			return nil, fmt.Errorf("%w: node %d truncated", ErrBadGraphFile, i)
		}
		node := string(data[:length])
		if err := checkNode(node); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadGraphFile, err)
		}
		nodes = append(nodes, node)
		data = data[length:]
	}

	edgeCount, data, err := readUvarint(data)
	if err != nil {
		return nil, fmt.Errorf("%w: edge count: %v", ErrBadGraphFile, err)
	}
	if edgeCount > uint64(len(data)) {
		return nil, fmt.Errorf("%w: edge count %d exceeds file size", ErrBadGraphFile, edgeCount)
	}
	graph := NewGraph()
	for i := uint64(0); i < edgeCount; i++ {
		var dependent, dependency uint64
		dependent, data, err = readUvarint(data)
		if err != nil {
			return nil, fmt.Errorf("%w: edge %d: %v", ErrBadGraphFile, i, err)
		}
		dependency, data, err = readUvarint(data)
		if err != nil {
			return nil, fmt.Errorf("%w: edge %d: %v", ErrBadGraphFile, i, err)
		}
		if dependent >= nodeCount || dependency >= nodeCount {
			return nil, fmt.Errorf("%w: edge %d references node out of range", ErrBadGraphFile, i)
		}
		if err := graph.AddEdge(nodes[dependent], nodes[dependency]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadGraphFile, err)
		}
	}
	if len(data) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrBadGraphFile, len(data))
	}
	return graph, nil
}

// Save writes the graph to path, creating parent directories as needed.
func Save(fsys fs.FileSystem, path string, g *Graph) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating graph directory: %w", err)
		}
	}
	if err := fsys.WriteFile(path, g.Encode(), 0644); err != nil {
		return fmt.Errorf("writing graph file: %w", err)
	}
	return nil
}

// Load reads a graph from path. A missing or unreadable file yields an
// error wrapping ErrBadGraphFile so callers can fall back to a full run.
func Load(fsys fs.FileSystem, path string) (*Graph, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadGraphFile, err)
	}
	return Decode(data)
}

func readUvarint(data []byte) (uint64, []byte, error) {
	value, n := binary.Uvarint(data)
	if n <= 0 {
		return 0, nil, errors.New("truncated uvarint")
	}
	return value, data[n:], nil
}
