package dom

import "strings"

// TypeOf returns the space-separated values of the typeof attribute.
func (d *Document) TypeOf(n NodeID) []string {
	return strings.Fields(d.GetAttribute(n, "typeof"))
}

// HasTypeOf reports whether the typeof attribute of n contains t.
func (d *Document) HasTypeOf(n NodeID, t string) bool {
	for _, v := range d.TypeOf(n) {
		if v == t {
			return true
		}
	}
	return false
}

// AddTypeOf adds t to the typeof attribute of n unless already present.
// With prepend set, t becomes the first value.
func (d *Document) AddTypeOf(n NodeID, t string, prepend bool) {
	types := d.TypeOf(n)
	for _, v := range types {
		if v == t {
			return
		}
	}
	if prepend {
		types = append([]string{t}, types...)
	} else {
		types = append(types, t)
	}
	d.SetAttribute(n, "typeof", strings.Join(types, " "))
}

// RemoveTypeOf removes every occurrence of t from the typeof attribute. The
// attribute itself is dropped when it becomes empty.
func (d *Document) RemoveTypeOf(n NodeID, t string) {
	types := d.TypeOf(n)
	kept := types[:0]
	for _, v := range types {
		if v != t {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		d.RemoveAttribute(n, "typeof")
		return
	}
	d.SetAttribute(n, "typeof", strings.Join(kept, " "))
}
