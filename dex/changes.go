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
package dex

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"

	"bennypowers.dev/dexa/fs"
)

// ChangeSet describes which class files changed since the previous run.
// Paths are slash paths relative to the class root.
type ChangeSet struct {
	Added    []string
	Modified []string
	Removed  []string
}

// IsEmpty reports whether nothing changed.
func (c ChangeSet) IsEmpty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Removed) == 0
}

// FileState is the recorded fingerprint of one input file.
type FileState struct {
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// Snapshot records the fingerprint of every input file at the end of a run.
// Diffing the previous snapshot against the current one stands in for the
// change notifications a host build system would provide.
type Snapshot struct {
	Files map[string]FileState `json:"files"`
}

// TakeSnapshot fingerprints the given root-relative files.
func TakeSnapshot(fsys fs.FileSystem, root string, files []string) (*Snapshot, error) {
	snap := &Snapshot{Files: make(map[string]FileState, len(files))}
	for _, rel := range files {
		data, err := fsys.ReadFile(filepath.Join(root, rel))
		if err != nil {
			return nil, fmt.Errorf("fingerprinting %s: %w", rel, err)
		}
		sum := sha256.Sum256(data)
		snap.Files[rel] = FileState{
			Size:   int64(len(data)),
			SHA256: hex.EncodeToString(sum[:]),
		}
	}
	return snap, nil
}

// Diff computes the change set that turns the receiver into cur. A file
// counts as modified only when its content hash differs; touching a file
// without changing it does not trigger reprocessing.
func (s *Snapshot) Diff(cur *Snapshot) ChangeSet {
	var changes ChangeSet
	for rel, state := range cur.Files {
		prev, ok := s.Files[rel]
		switch {
		case !ok:
			changes.Added = append(changes.Added, rel)
		case prev.SHA256 != state.SHA256:
			changes.Modified = append(changes.Modified, rel)
		}
	}
	for rel := range s.Files {
		if _, ok := cur.Files[rel]; !ok {
			changes.Removed = append(changes.Removed, rel)
		}
	}
	slices.Sort(changes.Added)
	slices.Sort(changes.Modified)
	slices.Sort(changes.Removed)
	return changes
}

// SaveSnapshot writes the snapshot as JSON, creating parent directories.
func SaveSnapshot(fsys fs.FileSystem, path string, snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating snapshot directory: %w", err)
		}
	}
	if err := fsys.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a snapshot written by SaveSnapshot. Errors mean "no
// usable previous state"; callers fall back to a full run.
func LoadSnapshot(fsys fs.FileSystem, path string) (*Snapshot, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap.Files == nil {
		snap.Files = make(map[string]FileState)
	}
	return &snap, nil
}
