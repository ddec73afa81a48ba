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

// Package classfile reads just enough of the JVM class-file format to
// discover which other classes a compiled class refers to. It parses the
// constant pool, the superclass, and the implemented interfaces, then stops;
// fields, methods, and attributes are never needed for dependency discovery.
package classfile

import (
	"encoding/binary"
	"fmt"
	"slices"
	"strings"
)

// Constant pool tags from the JVM specification (table 4.4-B).
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

// Version is a class-file format version. Major 52 corresponds to Java 8,
// the first release whose language features require desugaring on Android.
type Version struct {
	Minor uint16
	Major uint16
}

// ClassFile holds the parts of a parsed class file that matter for
// dependency discovery.
type ClassFile struct {
	Version     Version
	AccessFlags uint16

	// ThisClass is the internal binary name, e.g. "com/example/Foo".
	ThisClass string

	// SuperClass is the internal name of the direct superclass, or empty
	// for java/lang/Object.
	SuperClass string

	// Interfaces are the internal names of directly implemented interfaces.
	Interfaces []string

	referenced []string
}

// ReferencedClasses returns the internal names of every class mentioned in
// the constant pool, excluding the class itself and array descriptors,
// sorted and deduplicated. This is a superset of SuperClass and Interfaces.
func (c *ClassFile) ReferencedClasses() []string {
	return slices.Clone(c.referenced)
}

type reader struct {
	data []byte
	off  int
}

func (r *reader) u1() (uint8, error) {
	if r.off+1 > len(r.data) {
		return 0, fmt.Errorf("truncated at offset %d", r.off)
	}
	v := r.data[r.off]
	r.off++
	return v, nil
}

func (r *reader) u2() (uint16, error) {
	if r.off+2 > len(r.data) {
		return 0, fmt.Errorf("truncated at offset %d", r.off)
	}
	v := binary.BigEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v, nil
}

func (r *reader) skip(n int) error {
	if r.off+n > len(r.data) {
		return fmt.Errorf("truncated at offset %d", r.off)
	}
	r.off += n
	return nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if r.off+n > len(r.data) {
		return nil, fmt.Errorf("truncated at offset %d", r.off)
	}
	v := r.data[r.off : r.off+n]
	r.off += n
	return v, nil
}

// Parse reads the leading portion of a class file: magic, version, constant
// pool, access flags, this/super class, and interfaces. Malformed input
// yields a descriptive error.
func Parse(data []byte) (*ClassFile, error) {
	if len(data) < 4 || binary.BigEndian.Uint32(data) != 0xCAFEBABE {
		return nil, fmt.Errorf("not a class file: bad magic")
	}
	r := &reader{data: data, off: 4}

	minor, err := r.u2()
	if err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	major, err := r.u2()
	if err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}

	poolCount, err := r.u2()
	if err != nil {
		return nil, fmt.Errorf("reading constant pool count: %w", err)
	}
	if poolCount == 0 {
		return nil, fmt.Errorf("constant pool count must be at least 1")
	}

	// Pool indices are 1-based; Long and Double entries occupy two slots.
	// The loop index is wider than uint16 so a two-slot entry at the end of
	// a full-size pool cannot wrap it back to zero.
	utf8s := make(map[uint16]string)
	classRefs := make(map[uint16]uint16)
	for index := 1; index < int(poolCount); index++ {
		tag, err := r.u1()
		if err != nil {
			return nil, fmt.Errorf("reading constant pool entry %d: %w", index, err)
		}
		switch tag {
		case tagUtf8:
			length, err := r.u2()
			if err != nil {
				return nil, fmt.Errorf("constant pool entry %d: %w", index, err)
			}
			raw, err := r.bytes(int(length))
			if err != nil {
				return nil, fmt.Errorf("constant pool entry %d: %w", index, err)
			}
			utf8s[uint16(index)] = string(raw)
		case tagClass:
			nameIndex, err := r.u2()
			if err != nil {
				return nil, fmt.Errorf("constant pool entry %d: %w", index, err)
			}
			classRefs[uint16(index)] = nameIndex
		case tagInteger, tagFloat:
			err = r.skip(4)
		case tagLong, tagDouble:
			err = r.skip(8)
			index++ // occupies two pool slots
		case tagString, tagMethodType, tagModule, tagPackage:
			err = r.skip(2)
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType, tagDynamic, tagInvokeDynamic:
			err = r.skip(4)
		case tagMethodHandle:
			err = r.skip(3)
		default:
			return nil, fmt.Errorf("constant pool entry %d: unknown tag %d", index, tag)
		}
		if err != nil {
			return nil, fmt.Errorf("constant pool entry %d: %w", index, err)
		}
	}

	className := func(poolIndex uint16) (string, error) {
		nameIndex, ok := classRefs[poolIndex]
		if !ok {
			return "", fmt.Errorf("constant pool index %d is not a class entry", poolIndex)
		}
		name, ok := utf8s[nameIndex]
		if !ok {
			return "", fmt.Errorf("class entry %d references missing utf8 entry %d", poolIndex, nameIndex)
		}
		return name, nil
	}

	accessFlags, err := r.u2()
	if err != nil {
		return nil, fmt.Errorf("reading access flags: %w", err)
	}
	thisIndex, err := r.u2()
	if err != nil {
		return nil, fmt.Errorf("reading this_class: %w", err)
	}
	thisClass, err := className(thisIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving this_class: %w", err)
	}

	superIndex, err := r.u2()
	if err != nil {
		return nil, fmt.Errorf("reading super_class: %w", err)
	}
	var superClass string
	if superIndex != 0 {
		superClass, err = className(superIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving super_class: %w", err)
		}
	}

	interfaceCount, err := r.u2()
	if err != nil {
		return nil, fmt.Errorf("reading interface count: %w", err)
	}
	interfaces := make([]string, 0, interfaceCount)
	for i := uint16(0); i < interfaceCount; i++ {
		ifaceIndex, err := r.u2()
		if err != nil {
			return nil, fmt.Errorf("reading interface %d: %w", i, err)
		}
		iface, err := className(ifaceIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving interface %d: %w", i, err)
		}
		interfaces = append(interfaces, iface)
	}

	referenced := make(map[string]bool, len(classRefs))
	for poolIndex := range classRefs {
		name, err := className(poolIndex)
		if err != nil {
			return nil, err
		}
		// Array descriptors name element types through their own Class
		// entries when relevant; the descriptor itself is not a class.
		if strings.HasPrefix(name, "[") || name == thisClass {
			continue
		}
		referenced[name] = true
	}
	names := make([]string, 0, len(referenced))
	for name := range referenced {
		names = append(names, name)
	}
	slices.Sort(names)

	return &ClassFile{
		Version:     Version{Minor: minor, Major: major},
		AccessFlags: accessFlags,
		ThisClass:   thisClass,
		SuperClass:  superClass,
		Interfaces:  interfaces,
		referenced:  names,
	}, nil
}
