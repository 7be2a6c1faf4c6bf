// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tsz

import (
	"fmt"
	"sort"
	"strings"
)

// FieldValueKind identifies the variant held by a FieldValue.
type FieldValueKind int

const (
	FieldValueBool FieldValueKind = iota
	FieldValueInt
	FieldValueStr
)

// FieldValue is a tagged union of the value types a label or metric field can carry.
// It totally orders by variant tag first, then by value, so that maps of FieldValue are
// totally ordered.
type FieldValue struct {
	kind FieldValueKind
	b    bool
	i    int64
	s    string
}

func BoolValue(value bool) FieldValue  { return FieldValue{kind: FieldValueBool, b: value} }
func IntValue(value int64) FieldValue  { return FieldValue{kind: FieldValueInt, i: value} }
func StrValue(value string) FieldValue { return FieldValue{kind: FieldValueStr, s: value} }

func (v FieldValue) Kind() FieldValueKind { return v.kind }

// Bool returns the boolean payload. Panics if the value isn't a bool; this mirrors the
// typed-accessor contract elsewhere in tsz (a type mismatch is a programmer error).
func (v FieldValue) Bool() bool {
	if v.kind != FieldValueBool {
		panic("FieldValue: not a bool")
	}
	return v.b
}

func (v FieldValue) Int() int64 {
	if v.kind != FieldValueInt {
		panic("FieldValue: not an int")
	}
	return v.i
}

func (v FieldValue) Str() string {
	if v.kind != FieldValueStr {
		panic("FieldValue: not a string")
	}
	return v.s
}

func (v FieldValue) Equal(other FieldValue) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case FieldValueBool:
		return v.b == other.b
	case FieldValueInt:
		return v.i == other.i
	default:
		return v.s == other.s
	}
}

// Compare returns -1, 0, or 1 comparing v to other, ordering first by variant tag and
// then by payload.
func (v FieldValue) Compare(other FieldValue) int {
	if v.kind != other.kind {
		if v.kind < other.kind {
			return -1
		}
		return 1
	}
	switch v.kind {
	case FieldValueBool:
		if v.b == other.b {
			return 0
		}
		if !v.b {
			return -1
		}
		return 1
	case FieldValueInt:
		switch {
		case v.i < other.i:
			return -1
		case v.i > other.i:
			return 1
		default:
			return 0
		}
	default:
		return strings.Compare(v.s, other.s)
	}
}

func (v FieldValue) String() string {
	switch v.kind {
	case FieldValueBool:
		return fmt.Sprintf("%v", v.b)
	case FieldValueInt:
		return fmt.Sprintf("%d", v.i)
	default:
		return v.s
	}
}

type fieldEntry struct {
	name  string
	value FieldValue
}

// FieldMap is an ordered, deduplicated map from label/field name to FieldValue. It
// maintains two invariants: entries are sorted by name ascending, and names are unique.
// Equality and ordering are defined pairwise over the sorted entry sequence, which makes
// a FieldMap a canonical identity for a cell.
type FieldMap struct {
	entries []fieldEntry
}

// NewFieldMap builds a FieldMap from an unordered set of name/value pairs. If a name
// appears more than once, the entry associated with its first occurrence in args wins;
// later duplicates are discarded. This is a deliberately stronger, deterministic
// guarantee than "implementation-defined but consistent" (see DESIGN.md).
func NewFieldMap(args ...FieldMapArg) FieldMap {
	entries := make([]fieldEntry, 0, len(args))
	for _, a := range args {
		entries = append(entries, fieldEntry{name: a.Name, value: a.Value})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].name < entries[j].name
	})
	deduped := entries[:0]
	for i, e := range entries {
		if i > 0 && deduped[len(deduped)-1].name == e.name {
			continue
		}
		deduped = append(deduped, e)
	}
	return FieldMap{entries: deduped}
}

// FieldMapArg is one (name, value) pair supplied to NewFieldMap.
type FieldMapArg struct {
	Name  string
	Value FieldValue
}

func Field(name string, value FieldValue) FieldMapArg {
	return FieldMapArg{Name: name, Value: value}
}

func (m FieldMap) Len() int { return len(m.entries) }

func (m FieldMap) IsEmpty() bool { return len(m.entries) == 0 }

// Get performs a binary search lookup, returning ok=false if name is absent.
func (m FieldMap) Get(name string) (FieldValue, bool) {
	i, j := 0, len(m.entries)
	for i < j {
		k := i + (j-i)/2
		switch {
		case name < m.entries[k].name:
			j = k
		case name > m.entries[k].name:
			i = k + 1
		default:
			return m.entries[k].value, true
		}
	}
	return FieldValue{}, false
}

// Index looks up name, panicking if absent — mirrors the Rust Index operator, which is
// a programmer error on static metric schemas, not a runtime error.
func (m FieldMap) Index(name string) FieldValue {
	v, ok := m.Get(name)
	if !ok {
		panic(fmt.Sprintf("FieldMap: no such field %q", name))
	}
	return v
}

// Equal reports whether m and other have the same sorted entry sequence.
func (m FieldMap) Equal(other FieldMap) bool {
	return m.Compare(other) == 0
}

// Compare totally orders FieldMaps by their sorted entry sequences.
func (m FieldMap) Compare(other FieldMap) int {
	n := len(m.entries)
	if len(other.entries) < n {
		n = len(other.entries)
	}
	for i := 0; i < n; i++ {
		if c := strings.Compare(m.entries[i].name, other.entries[i].name); c != 0 {
			return c
		}
		if c := m.entries[i].value.Compare(other.entries[i].value); c != 0 {
			return c
		}
	}
	switch {
	case len(m.entries) < len(other.entries):
		return -1
	case len(m.entries) > len(other.entries):
		return 1
	default:
		return 0
	}
}

func (m FieldMap) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%s", e.name, e.value)
	}
	b.WriteByte('}')
	return b.String()
}

// Key returns a canonical string encoding of m suitable for use as a map key (FieldMap
// itself holds a slice and isn't comparable). The encoding is length-prefixed per
// entry so that no combination of names/values can collide across distinct FieldMaps.
func (m FieldMap) Key() string {
	var b strings.Builder
	for _, e := range m.entries {
		fmt.Fprintf(&b, "%d:%s|%d:", len(e.name), e.name, int(e.value.kind))
		switch e.value.kind {
		case FieldValueBool:
			if e.value.b {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		case FieldValueInt:
			fmt.Fprintf(&b, "%d", e.value.i)
		default:
			fmt.Fprintf(&b, "%d:%s", len(e.value.s), e.value.s)
		}
		b.WriteByte(';')
	}
	return b.String()
}

// ForEach iterates the entries in sorted order.
func (m FieldMap) ForEach(fn func(name string, value FieldValue)) {
	for _, e := range m.entries {
		fn(e.name, e.value)
	}
}
