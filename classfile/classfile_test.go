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
package classfile_test

import (
	"encoding/binary"
	"reflect"
	"slices"
	"strings"
	"testing"

	"bennypowers.dev/dexa/classfile"
	"bennypowers.dev/dexa/testutil"
)

func TestParseMinimalClass(t *testing.T) {
	data := testutil.ClassBytes(t, "com/example/Foo", testutil.ClassSpec{})

	class, err := classfile.Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if class.ThisClass != "com/example/Foo" {
		t.Errorf("Expected this class com/example/Foo, got %q", class.ThisClass)
	}
	if class.SuperClass != "java/lang/Object" {
		t.Errorf("Expected superclass java/lang/Object, got %q", class.SuperClass)
	}
	if len(class.Interfaces) != 0 {
		t.Errorf("Expected no interfaces, got %v", class.Interfaces)
	}
	if class.Version.Major != 52 {
		t.Errorf("Expected major version 52, got %d", class.Version.Major)
	}
}

func TestParseInterfacesAndRefs(t *testing.T) {
	data := testutil.ClassBytes(t, "com/example/Foo", testutil.ClassSpec{
		Super:      "com/example/Base",
		Interfaces: []string{"java/lang/Runnable", "com/example/Iface"},
		Refs:       []string{"com/example/Helper"},
	})

	class, err := classfile.Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if class.SuperClass != "com/example/Base" {
		t.Errorf("Expected superclass com/example/Base, got %q", class.SuperClass)
	}
	wantIfaces := []string{"java/lang/Runnable", "com/example/Iface"}
	if !reflect.DeepEqual(class.Interfaces, wantIfaces) {
		t.Errorf("Expected interfaces %v, got %v", wantIfaces, class.Interfaces)
	}

	refs := class.ReferencedClasses()
	for _, want := range []string{
		"com/example/Base",
		"com/example/Iface",
		"com/example/Helper",
		"java/lang/Runnable",
	} {
		if !slices.Contains(refs, want) {
			t.Errorf("Expected referenced classes to include %s, got %v", want, refs)
		}
	}
	if slices.Contains(refs, "com/example/Foo") {
		t.Errorf("Expected referenced classes to exclude the class itself, got %v", refs)
	}
	if !slices.IsSorted(refs) {
		t.Errorf("Expected referenced classes to be sorted, got %v", refs)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	valid := testutil.ClassBytes(t, "Foo", testutil.ClassSpec{})

	cases := map[string][]byte{
		"empty":           {},
		"bad magic":       {0xDE, 0xAD, 0xBE, 0xEF, 0, 0, 0, 52},
		"truncated pool":  valid[:10],
		"truncated class": valid[:len(valid)-8],
	}
	for name, data := range cases {
		if _, err := classfile.Parse(data); err == nil {
			t.Errorf("%s: expected Parse to fail", name)
		}
	}
}

// TestParseFullSizeConstantPool exercises the largest allowed pool with a
// two-slot Long entry in its final slot pair, which must end the pool scan
// rather than wrap it back to the beginning.
func TestParseFullSizeConstantPool(t *testing.T) {
	var data []byte
	data = binary.BigEndian.AppendUint32(data, 0xCAFEBABE)
	data = binary.BigEndian.AppendUint16(data, 0)     // minor
	data = binary.BigEndian.AppendUint16(data, 52)    // major
	data = binary.BigEndian.AppendUint16(data, 65535) // pool count
	data = append(data, 1, 0, 1, 'A')                 // 1: Utf8 "A"
	data = append(data, 7, 0, 1)                      // 2: Class -> 1
	for index := 3; index < 65534; index++ {          // 3..65533: Integer
		data = append(data, 3, 0, 0, 0, 0)
	}
	data = append(data, 5, 0, 0, 0, 0, 0, 0, 0, 0) // 65534: Long, two slots
	data = binary.BigEndian.AppendUint16(data, 0x0021)
	data = binary.BigEndian.AppendUint16(data, 2) // this_class
	data = binary.BigEndian.AppendUint16(data, 0) // super_class
	data = binary.BigEndian.AppendUint16(data, 0) // interface count

	class, err := classfile.Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if class.ThisClass != "A" {
		t.Errorf("Expected this class A, got %q", class.ThisClass)
	}
	if class.SuperClass != "" {
		t.Errorf("Expected no superclass, got %q", class.SuperClass)
	}
}

func TestParseUnknownPoolTag(t *testing.T) {
	data := testutil.ClassBytes(t, "Foo", testutil.ClassSpec{})
	// First pool entry starts right after the count at offset 10
	data = append([]byte{}, data...)
	data[10] = 99

	_, err := classfile.Parse(data)
	if err == nil || !strings.Contains(err.Error(), "unknown tag") {
		t.Errorf("Expected unknown tag error, got %v", err)
	}
}
