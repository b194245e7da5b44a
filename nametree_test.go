package pdf

import "testing"

func rootValue(d dict) Value {
	return Value{nil, objptr{}, d}
}

func TestNameTreeFlatLookup(t *testing.T) {
	root := rootValue(dict{
		"Names": array{"apple", int64(1), "banana", int64(2), "cherry", int64(3)},
	})
	tree := NewNameTree(root)

	v, ok := tree.Lookup("banana")
	if !ok || v.Int64() != 2 {
		t.Fatalf("Lookup(banana) = %v, %v; want 2, true", v, ok)
	}

	_, ok = tree.Lookup("durian")
	if ok {
		t.Fatalf("Lookup(durian) found, want not found")
	}
}

func TestNameTreeTwoLevel(t *testing.T) {
	left := dict{
		"Limits": array{"apple", "banana"},
		"Names":  array{"apple", int64(1), "banana", int64(2)},
	}
	right := dict{
		"Limits": array{"mango", "peach"},
		"Names":  array{"mango", int64(3), "peach", int64(4)},
	}
	root := rootValue(dict{"Kids": array{left, right}})
	tree := NewNameTree(root)

	v, ok := tree.Lookup("mango")
	if !ok || v.Int64() != 3 {
		t.Fatalf("Lookup(mango) = %v, %v; want 3, true", v, ok)
	}

	v, ok = tree.Lookup("apple")
	if !ok || v.Int64() != 1 {
		t.Fatalf("Lookup(apple) = %v, %v; want 1, true", v, ok)
	}
}

func TestNameTreeKeyBelowFirstLimitNotFound(t *testing.T) {
	leaf := dict{
		"Limits": array{"mango", "peach"},
		"Names":  array{"mango", int64(3), "peach", int64(4)},
	}
	root := rootValue(dict{"Kids": array{leaf}})
	tree := NewNameTree(root)

	if _, ok := tree.Lookup("apple"); ok {
		t.Fatalf("Lookup(apple) found a value below the tree's Limits")
	}
}

func TestNameTreeKeyBetweenLimitsButAbsent(t *testing.T) {
	leaf := dict{
		"Limits": array{"apple", "peach"},
		"Names":  array{"apple", int64(1), "peach", int64(4)},
	}
	root := rootValue(dict{"Kids": array{leaf}})
	tree := NewNameTree(root)

	if _, ok := tree.Lookup("mango"); ok {
		t.Fatalf("Lookup(mango) found, want not found (absent but within Limits)")
	}
}

func TestNumberTreeLookup(t *testing.T) {
	left := dict{
		"Limits": array{int64(0), int64(1)},
		"Nums":   array{int64(0), "i", int64(1), "ii"},
	}
	right := dict{
		"Limits": array{int64(10), int64(11)},
		"Nums":   array{int64(10), "xi", int64(11), "xii"},
	}
	root := rootValue(dict{"Kids": array{left, right}})
	tree := NewNumberTree(root)

	v, ok := tree.Lookup(11)
	if !ok || v.RawString() != "xii" {
		t.Fatalf("Lookup(11) = %v, %v; want xii, true", v, ok)
	}

	if _, ok := tree.Lookup(5); ok {
		t.Fatalf("Lookup(5) found, want not found (falls in the gap between kids)")
	}
}
