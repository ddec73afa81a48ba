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
package dex_test

import (
	"reflect"
	"testing"

	"bennypowers.dev/dexa/dex"
	"bennypowers.dev/dexa/internal/mapfs"
)

func TestSnapshotDiff(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/src/A.class", "aaa", 0644)
	mfs.AddFile("/src/B.class", "bbb", 0644)
	mfs.AddFile("/src/C.class", "ccc", 0644)

	prev, err := dex.TakeSnapshot(mfs, "/src", []string{"A.class", "B.class", "C.class"})
	if err != nil {
		t.Fatalf("TakeSnapshot failed: %v", err)
	}

	// B modified, C removed, D added
	mfs.AddFile("/src/B.class", "BBB", 0644)
	mfs.AddFile("/src/D.class", "ddd", 0644)

	cur, err := dex.TakeSnapshot(mfs, "/src", []string{"A.class", "B.class", "D.class"})
	if err != nil {
		t.Fatalf("TakeSnapshot failed: %v", err)
	}

	changes := prev.Diff(cur)
	if !reflect.DeepEqual(changes.Added, []string{"D.class"}) {
		t.Errorf("Expected added [D], got %v", changes.Added)
	}
	if !reflect.DeepEqual(changes.Modified, []string{"B.class"}) {
		t.Errorf("Expected modified [B], got %v", changes.Modified)
	}
	if !reflect.DeepEqual(changes.Removed, []string{"C.class"}) {
		t.Errorf("Expected removed [C], got %v", changes.Removed)
	}
}

func TestSnapshotDiffIgnoresTouch(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/src/A.class", "aaa", 0644)

	prev, err := dex.TakeSnapshot(mfs, "/src", []string{"A.class"})
	if err != nil {
		t.Fatalf("TakeSnapshot failed: %v", err)
	}

	// Rewrite with identical content; only the modification time moves
	mfs.AddFile("/src/A.class", "aaa", 0644)

	cur, err := dex.TakeSnapshot(mfs, "/src", []string{"A.class"})
	if err != nil {
		t.Fatalf("TakeSnapshot failed: %v", err)
	}

	if changes := prev.Diff(cur); !changes.IsEmpty() {
		t.Errorf("Expected no changes for touched-but-identical file, got %+v", changes)
	}
}

func TestSnapshotSaveLoad(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/src/A.class", "aaa", 0644)

	snap, err := dex.TakeSnapshot(mfs, "/src", []string{"A.class"})
	if err != nil {
		t.Fatalf("TakeSnapshot failed: %v", err)
	}
	if err := dex.SaveSnapshot(mfs, "/state/snapshot.json", snap); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	loaded, err := dex.LoadSnapshot(mfs, "/state/snapshot.json")
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if !reflect.DeepEqual(snap.Files, loaded.Files) {
		t.Errorf("Save/Load changed snapshot: %+v vs %+v", snap.Files, loaded.Files)
	}
}

func TestLoadSnapshotMissing(t *testing.T) {
	mfs := mapfs.New()
	if _, err := dex.LoadSnapshot(mfs, "/state/snapshot.json"); err == nil {
		t.Error("Expected LoadSnapshot of missing file to fail")
	}
}

func TestLoadSnapshotCorrupt(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/state/snapshot.json", "{not json", 0644)
	if _, err := dex.LoadSnapshot(mfs, "/state/snapshot.json"); err == nil {
		t.Error("Expected LoadSnapshot of corrupt file to fail")
	}
}
