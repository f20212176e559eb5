package iteratable

import "testing"

func TestAddIsIdempotentAndTracksSize(t *testing.T) {
	s := NewSet(0)
	s.Add(1).Add(2).Add(1)
	if s.Size() != 2 {
		t.Fatalf("expected size 2 after a duplicate Add, got %d", s.Size())
	}
	if !s.Contains(1) || !s.Contains(2) || s.Contains(3) {
		t.Fatalf("unexpected membership after Add")
	}
}

func TestRemoveSwapsWithLastAndFixesIndex(t *testing.T) {
	s := NewSet(0)
	s.Add(1).Add(2).Add(3)
	s.Remove(1)
	if s.Contains(1) {
		t.Fatalf("expected 1 to be removed")
	}
	if s.Size() != 2 {
		t.Fatalf("expected size 2, got %d", s.Size())
	}
	// every remaining element must still be independently addressable
	// (exercises the swap-with-last index fixup in Remove).
	s.Remove(2)
	s.Remove(3)
	if !s.Empty() {
		t.Fatalf("expected the set to be empty after removing every element")
	}
}

func TestEqualsIsOrderIndependent(t *testing.T) {
	a := NewSet(0)
	a.Add(1).Add(2).Add(3)
	b := NewSet(0)
	b.Add(3).Add(1).Add(2)
	if !a.Equals(b) {
		t.Fatalf("expected element-wise equal sets built in different orders to be Equals")
	}
	b.Add(4)
	if a.Equals(b) {
		t.Fatalf("expected sets of different size to be unequal")
	}
}

func TestUnionIsDestructiveOnReceiver(t *testing.T) {
	a := NewSet(0)
	a.Add(1)
	b := NewSet(0)
	b.Add(2)
	ret := a.Union(b)
	if ret != a {
		t.Fatalf("expected Union to return the receiver")
	}
	if !a.Contains(1) || !a.Contains(2) {
		t.Fatalf("expected a to contain both 1 and 2 after Union, got %v", a.Values())
	}
	if b.Contains(1) {
		t.Fatalf("expected Union to leave its argument b untouched")
	}
}

func TestDifferenceReturnsElementsNotInOther(t *testing.T) {
	a := NewSet(0)
	a.Add(1).Add(2).Add(3)
	b := NewSet(0)
	b.Add(2)
	d := a.Difference(b)
	if d.Size() != 2 || !d.Contains(1) || !d.Contains(3) {
		t.Fatalf("expected difference {1,3}, got %v", d.Values())
	}
	if a.Contains(2) == false {
		t.Fatalf("Difference must not mutate the receiver")
	}
}

func TestSubsetFiltersByPredicate(t *testing.T) {
	a := NewSet(0)
	a.Add(1).Add(2).Add(3).Add(4)
	evens := a.Subset(func(v interface{}) bool { return v.(int)%2 == 0 })
	if evens.Size() != 2 || !evens.Contains(2) || !evens.Contains(4) {
		t.Fatalf("expected {2,4}, got %v", evens.Values())
	}
}

func TestSortOrdersBackingSliceAndIteration(t *testing.T) {
	a := NewSet(0)
	a.Add(3).Add(1).Add(2)
	a.Sort(func(x, y interface{}) bool { return x.(int) < y.(int) })

	a.IterateOnce()
	var got []int
	for a.Next() {
		got = append(got, a.Item().(int))
	}
	want := []int{1, 2, 3}
	for i, v := range want {
		if got[i] != v {
			t.Fatalf("expected sorted iteration order %v, got %v", want, got)
		}
	}
}

func TestIterateOnceSweepsLiveBackingSlice(t *testing.T) {
	a := NewSet(0)
	a.Add(1).Add(2)
	a.IterateOnce()
	a.Next()
	a.Add(3) // appended past the cursor; the live sweep still reaches it

	count := 1 // already consumed one via Next() above
	for a.Next() {
		count++
	}
	if count != 3 {
		t.Fatalf("expected the live sweep to also see the element added past the cursor, got %d", count)
	}
}

func TestFirstMatchReturnsNilWhenNoneSatisfy(t *testing.T) {
	a := NewSet(0)
	a.Add(1).Add(3)
	if got := a.FirstMatch(func(v interface{}) bool { return v.(int)%2 == 0 }); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	if got := a.FirstMatch(func(v interface{}) bool { return v.(int) == 3 }); got != 3 {
		t.Fatalf("expected 3, got %v", got)
	}
}
