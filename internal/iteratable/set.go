/*
Package iteratable implements an iteratable, destructive set container.

No other package of this module imports it; chart and forest keep
their bookkeeping in plain maps, slices and gods containers. Values must be
comparable (structs of comparable fields, or pointers), since membership
is tracked with a plain Go map.

Unusually, most set operations are destructive: Union folds its argument
into the receiver and returns it; Subset and Difference allocate fresh
sets but do not protect the receiver from concurrent mutation during
iteration. Callers that need a stable snapshot should call Copy first.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package iteratable

// Set is a destructive, iteratable set of comparable values.
type Set struct {
	items []interface{}
	index map[interface{}]int // value -> position in items

	cursor int // -1 before IterateOnce(), len(items) after exhaustion
}

// NewSet creates an empty set. sizeHint pre-allocates backing storage;
// pass 0 if unknown.
func NewSet(sizeHint int) *Set {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Set{
		items:  make([]interface{}, 0, sizeHint),
		index:  make(map[interface{}]int, sizeHint),
		cursor: -1,
	}
}

// Add inserts v into the set, if not already present. Returns the set,
// for chaining.
func (s *Set) Add(v interface{}) *Set {
	if _, ok := s.index[v]; ok {
		return s
	}
	s.index[v] = len(s.items)
	s.items = append(s.items, v)
	return s
}

// Remove deletes v from the set, if present.
func (s *Set) Remove(v interface{}) {
	i, ok := s.index[v]
	if !ok {
		return
	}
	last := len(s.items) - 1
	moved := s.items[last]
	s.items[i] = moved
	s.index[moved] = i
	s.items = s.items[:last]
	delete(s.index, v)
}

// Contains tests membership.
func (s *Set) Contains(v interface{}) bool {
	_, ok := s.index[v]
	return ok
}

// Size returns the number of elements.
func (s *Set) Size() int {
	return len(s.items)
}

// Empty is a predicate: does the set hold zero elements?
func (s *Set) Empty() bool {
	return len(s.items) == 0
}

// Values returns a snapshot slice of all elements, in insertion order.
func (s *Set) Values() []interface{} {
	out := make([]interface{}, len(s.items))
	copy(out, s.items)
	return out
}

// AppendTo appends all elements of the set to dst and returns the result.
func (s *Set) AppendTo(dst []interface{}) []interface{} {
	return append(dst, s.items...)
}

// Copy returns a shallow, independent copy of the set.
func (s *Set) Copy() *Set {
	c := NewSet(len(s.items))
	for _, v := range s.items {
		c.Add(v)
	}
	return c
}

// Equals tests two sets for element-wise equality, order independent.
func (s *Set) Equals(other *Set) bool {
	if other == nil || len(s.items) != len(other.items) {
		return false
	}
	for _, v := range s.items {
		if !other.Contains(v) {
			return false
		}
	}
	return true
}

// Union folds other's elements into s (destructively) and returns s.
func (s *Set) Union(other *Set) *Set {
	if other == nil {
		return s
	}
	for _, v := range other.items {
		s.Add(v)
	}
	return s
}

// Difference returns a fresh set holding every element of s not in other.
func (s *Set) Difference(other *Set) *Set {
	d := NewSet(len(s.items))
	for _, v := range s.items {
		if other == nil || !other.Contains(v) {
			d.Add(v)
		}
	}
	return d
}

// Subset returns a fresh set of every element satisfying predicate.
func (s *Set) Subset(predicate func(interface{}) bool) *Set {
	r := NewSet(0)
	for _, v := range s.items {
		if predicate(v) {
			r.Add(v)
		}
	}
	return r
}

// Each applies f to every element, in insertion order.
func (s *Set) Each(f func(interface{})) {
	for _, v := range s.items {
		f(v)
	}
}

// FirstMatch returns the first element satisfying predicate, or nil.
func (s *Set) FirstMatch(predicate func(interface{}) bool) interface{} {
	for _, v := range s.items {
		if predicate(v) {
			return v
		}
	}
	return nil
}

// Sort orders the set's backing slice in place using less. Subsequent
// IterateOnce/Next calls visit elements in the new order.
func (s *Set) Sort(less func(a, b interface{}) bool) {
	n := len(s.items)
	for i := 1; i < n; i++ {
		for j := i; j > 0 && less(s.items[j], s.items[j-1]); j-- {
			s.items[j], s.items[j-1] = s.items[j-1], s.items[j]
		}
	}
	for i, v := range s.items {
		s.index[v] = i
	}
}

// IterateOnce arms the set for a single Next()/Item() sweep, resetting
// the cursor to the start of the backing slice. The sweep walks the
// live backing slice directly: an Add past the current cursor position
// during a sweep is still visited before the sweep ends; a Remove can
// shift a not-yet-visited element into an already-visited slot (Remove
// swaps with the last element). Callers needing a stable view should
// call Copy first and sweep the copy.
func (s *Set) IterateOnce() {
	s.cursor = -1
}

// Next advances the iteration cursor. Returns false once exhausted.
func (s *Set) Next() bool {
	if s.cursor+1 >= len(s.items) {
		s.cursor = len(s.items)
		return false
	}
	s.cursor++
	return true
}

// Item returns the element at the current iteration cursor.
func (s *Set) Item() interface{} {
	if s.cursor < 0 || s.cursor >= len(s.items) {
		return nil
	}
	return s.items[s.cursor]
}
