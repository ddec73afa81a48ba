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
	"encoding/binary"

	"bennypowers.dev/dexa/classfile"
)

// Dependency is one class file another class needs desugaring support from.
type Dependency struct {
	// Path is the root-relative slash path of the dependency.
	Path string
	// Data is the dependency's current bytecode.
	Data []byte
}

// Dexer converts a single class file into its dexed output. deps are the
// direct dependencies discovered for the class, sorted by path; their
// bytecode feeds into the output, which is what makes dependency-driven
// invalidation necessary in the first place.
type Dexer interface {
	Dex(rel string, class *classfile.ClassFile, raw []byte, deps []Dependency) ([]byte, error)
}

// ContainerDexer is the built-in Dexer. It emits a deterministic per-class
// container record rather than real DEX bytecode: a header, the minimum API
// level, the class name, a digest of the class bytes, and a digest over each
// dependency's bytes. Two runs over identical inputs produce byte-identical
// outputs, and any change to the class or a direct dependency changes the
// record.
type ContainerDexer struct {
	// MinAPI is the minimum Android API level targeted, as passed to d8
	// via --min-api. It determines how much desugaring the output needs,
	// so it is part of the output record.
	MinAPI int
}

const containerMagic = "dexc"

func (d *ContainerDexer) Dex(rel string, class *classfile.ClassFile, raw []byte, deps []Dependency) ([]byte, error) {
	out := []byte(containerMagic)
	out = binary.AppendUvarint(out, uint64(d.MinAPI))
	out = binary.AppendUvarint(out, uint64(len(class.ThisClass)))
	out = append(out, class.ThisClass...)

	sum := sha256.Sum256(raw)
	out = append(out, sum[:]...)

	out = binary.AppendUvarint(out, uint64(len(deps)))
	for _, dep := range deps {
		out = binary.AppendUvarint(out, uint64(len(dep.Path)))
		out = append(out, dep.Path...)
		depSum := sha256.Sum256(dep.Data)
		out = append(out, depSum[:]...)
	}
	return out, nil
}
