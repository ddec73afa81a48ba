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

// Package testutil provides testing utilities for the dexa packages.
// Class-file inputs are synthesized in memory rather than checked into
// testdata, since binary fixtures are neither reviewable nor editable.
package testutil

import (
	"encoding/binary"
	"path"
	"testing"

	"bennypowers.dev/dexa/internal/mapfs"
)

// ClassSpec describes a synthetic class file.
type ClassSpec struct {
	// Super is the internal superclass name. Defaults to java/lang/Object.
	Super string
	// Interfaces are internal names of implemented interfaces.
	Interfaces []string
	// Refs are additional internal class names placed in the constant pool,
	// as a method body referencing those classes would.
	Refs []string
	// Marker bytes are appended after the class structure so two specs
	// that are otherwise identical produce distinct file contents.
	Marker string
}

// ClassBytes builds a minimal valid class file for the given internal name.
// The file has an empty body: no fields, methods, or attributes.
func ClassBytes(t *testing.T, name string, spec ClassSpec) []byte {
	t.Helper()

	super := spec.Super
	if super == "" {
		super = "java/lang/Object"
	}

	// Constant pool layout: for each class name, a Utf8 entry followed by
	// a Class entry referencing it. Pool indices are 1-based.
	names := append([]string{name, super}, spec.Interfaces...)
	names = append(names, spec.Refs...)
	classIndex := make(map[string]uint16, len(names))

	var pool []byte
	next := uint16(1)
	for _, n := range names {
		if _, seen := classIndex[n]; seen {
			continue
		}
		pool = append(pool, 1) // CONSTANT_Utf8
		pool = binary.BigEndian.AppendUint16(pool, uint16(len(n)))
		pool = append(pool, n...)
		pool = append(pool, 7) // CONSTANT_Class
		pool = binary.BigEndian.AppendUint16(pool, next)
		classIndex[n] = next + 1
		next += 2
	}

	var buf []byte
	buf = binary.BigEndian.AppendUint32(buf, 0xCAFEBABE)
	buf = binary.BigEndian.AppendUint16(buf, 0)  // minor
	buf = binary.BigEndian.AppendUint16(buf, 52) // major: Java 8
	buf = binary.BigEndian.AppendUint16(buf, next)
	buf = append(buf, pool...)
	buf = binary.BigEndian.AppendUint16(buf, 0x0021) // ACC_PUBLIC | ACC_SUPER
	buf = binary.BigEndian.AppendUint16(buf, classIndex[name])
	buf = binary.BigEndian.AppendUint16(buf, classIndex[super])
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(spec.Interfaces)))
	for _, iface := range spec.Interfaces {
		buf = binary.BigEndian.AppendUint16(buf, classIndex[iface])
	}
	buf = binary.BigEndian.AppendUint16(buf, 0) // fields
	buf = binary.BigEndian.AppendUint16(buf, 0) // methods
	buf = binary.BigEndian.AppendUint16(buf, 0) // attributes
	buf = append(buf, spec.Marker...)
	return buf
}

// NewClassFS builds an in-memory filesystem holding a class tree under
// rootPath. Keys of classes are internal class names; each becomes
// <rootPath>/<name>.class.
func NewClassFS(t *testing.T, rootPath string, classes map[string]ClassSpec) *mapfs.MapFileSystem {
	t.Helper()

	mfs := mapfs.New()
	for name, spec := range classes {
		mfs.AddFile(path.Join(rootPath, name+".class"), string(ClassBytes(t, name, spec)), 0644)
	}
	return mfs
}

// AddClass writes one synthetic class file into an existing filesystem,
// used to simulate edits and additions between incremental runs.
func AddClass(t *testing.T, mfs *mapfs.MapFileSystem, rootPath, name string, spec ClassSpec) {
	t.Helper()
	mfs.AddFile(path.Join(rootPath, name+".class"), string(ClassBytes(t, name, spec)), 0644)
}
