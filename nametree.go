// Copyright 2014 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pdf

// NameTree and NumberTree give lookup access to the balanced trees PDF
// uses in several places (e.g. /Dests, /EmbeddedFiles, /PageLabels) in
// place of a flat dictionary or array, so that large tables don't have
// to be loaded in full (ISO 32000-1 §7.9.6, §7.9.7).
//
// An intermediate node carries /Kids, an array of references to child
// nodes, each tagged with a /Limits pair bounding the keys reachable
// below it. A leaf node carries /Names (NameTree) or /Nums (NumberTree),
// a flat, key-sorted array alternating key and value. Lookup walks
// intermediate nodes by /Limits and then binary-searches the leaf.

// NameTree is a name tree (ISO 32000-1 §7.9.6), whose keys are
// PDF strings ordered lexicographically by byte value.
type NameTree struct {
	root Value
}

// NewNameTree returns the name tree rooted at v, which must be the
// dictionary at the top of the tree (e.g. the value of a /Dests or
// /EmbeddedFiles key).
func NewNameTree(v Value) NameTree {
	return NameTree{root: v}
}

// Lookup returns the value associated with key, and reports whether
// key was found.
func (t NameTree) Lookup(key string) (Value, bool) {
	return treeLookup(t.root, "Names", func(kv Value) int {
		return stringCompare(key, kv.RawString())
	})
}

// NumberTree is a number tree (ISO 32000-1 §7.9.7), whose keys are
// integers ordered numerically.
type NumberTree struct {
	root Value
}

// NewNumberTree returns the number tree rooted at v, which must be the
// dictionary at the top of the tree (e.g. the value of a /PageLabels key).
func NewNumberTree(v Value) NumberTree {
	return NumberTree{root: v}
}

// Lookup returns the value associated with key, and reports whether
// key was found.
func (t NumberTree) Lookup(key int64) (Value, bool) {
	return treeLookup(t.root, "Nums", func(kv Value) int {
		return int64Compare(key, kv.Int64())
	})
}

// treeLookup descends from root to the leaf that could contain a key,
// using cmp to compare the sought key against a candidate key Value
// (a /Limits bound or a /Names or /Nums entry): negative if the sought
// key is smaller, zero if equal, positive if larger. label selects the
// leaf array, "Names" or "Nums".
func treeLookup(root Value, label string, cmp func(Value) int) (Value, bool) {
	node := root
	for node.Key(label).IsNull() {
		kids := node.Key("Kids")
		var next Value
		found := false
		for i := 0; i < kids.Len(); i++ {
			kid := kids.Index(i)
			limits := kid.Key("Limits")
			if limits.Kind() != Array || limits.Len() != 2 {
				continue
			}
			lo := limits.Index(0)
			hi := limits.Index(1)
			if cmp(lo) < 0 {
				// key is below this kid's lower limit; since kids are
				// listed in increasing order, no later kid can match
				// either (the spec's "ket.value" branch in the
				// original source is the dead form of this check,
				// written key.value < limits[0]).
				return Value{}, false
			}
			if cmp(hi) <= 0 {
				next = kid
				found = true
				break
			}
		}
		if !found {
			return Value{}, false
		}
		node = next
	}

	items := node.Key(label)
	lo, hi := 0, items.Len()/2
	for lo < hi {
		mid := (lo + hi) / 2
		k := items.Index(mid * 2)
		switch c := cmp(k); {
		case c == 0:
			return items.Index(mid*2 + 1), true
		case c < 0:
			hi = mid
		default:
			lo = mid + 1
		}
	}
	return Value{}, false
}

func stringCompare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func int64Compare(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
