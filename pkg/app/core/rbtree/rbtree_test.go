package rbtree

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/uhyunpark/hyperlicked/pkg/app/core/arena"
)

func keyOf(a *arena.Arena, i uint32) uint32 {
	return binary.LittleEndian.Uint32(a.Get(i).Payload[:4])
}

func setKey(a *arena.Arena, i uint32, key uint32) {
	binary.LittleEndian.PutUint32(a.Get(i).Payload[:4], key)
}

func newIntTree(a *arena.Arena) *Tree {
	return New(a, func(x, y uint32) bool {
		return keyOf(a, x) < keyOf(a, y)
	})
}

func insertKey(a *arena.Arena, tr *Tree, key uint32) uint32 {
	idx, err := a.Alloc(arena.TagOrder)
	if err != nil {
		panic(err)
	}
	setKey(a, idx, key)
	tr.Insert(idx)
	return idx
}

// inorder collects the keys of tr in ascending order by repeated
// Successor walks starting at Min, exercising the same traversal the
// matching engine uses to walk price levels.
func inorder(a *arena.Arena, tr *Tree) []uint32 {
	var out []uint32
	for n := Min(tr, tr.Root); n != nilIdx; n = tr.Successor(n) {
		out = append(out, keyOf(a, n))
	}
	return out
}

func assertSorted(t *testing.T, got []uint32) {
	t.Helper()
	for i := 1; i < len(got); i++ {
		if got[i-1] > got[i] {
			t.Fatalf("not sorted at %d: %v", i, got)
		}
	}
}

// checkRBInvariants walks the tree recursively (test-only; the
// production tree never recurses) and verifies no red node has a red
// child and every root-to-leaf path carries the same black height.
func checkRBInvariants(t *testing.T, tr *Tree, root uint32) int {
	t.Helper()
	if root == nilIdx {
		return 1
	}
	blk := tr.node(root)
	if blk.Color == arena.Red {
		if tr.color(tr.left(root)) == arena.Red || tr.color(tr.right(root)) == arena.Red {
			t.Fatalf("red node %d has a red child", root)
		}
	}
	lh := checkRBInvariants(t, tr, tr.left(root))
	rh := checkRBInvariants(t, tr, tr.right(root))
	if lh != rh {
		t.Fatalf("black-height mismatch at %d: left=%d right=%d", root, lh, rh)
	}
	if blk.Color == arena.Black {
		return lh + 1
	}
	return lh
}

func TestInsertProducesSortedOrder(t *testing.T) {
	a := arena.New()
	a.Expand(32)
	tr := newIntTree(a)

	keys := []uint32{50, 20, 70, 10, 30, 60, 80, 5, 15, 25, 35}
	for _, k := range keys {
		insertKey(a, tr, k)
	}

	got := inorder(a, tr)
	assertSorted(t, got)
	if len(got) != len(keys) {
		t.Fatalf("inorder returned %d keys, want %d", len(got), len(keys))
	}
	if tr.Root == nilIdx || tr.color(tr.Root) != arena.Black {
		t.Fatalf("root must be black")
	}
	checkRBInvariants(t, tr, tr.Root)
}

func TestMinMax(t *testing.T) {
	a := arena.New()
	a.Expand(8)
	tr := newIntTree(a)
	for _, k := range []uint32{40, 10, 90, 25, 60} {
		insertKey(a, tr, k)
	}

	if got := keyOf(a, Min(tr, tr.Root)); got != 10 {
		t.Fatalf("Min = %d, want 10", got)
	}
	if got := keyOf(a, Max(tr, tr.Root)); got != 90 {
		t.Fatalf("Max = %d, want 90", got)
	}
}

func TestSuccessorPredecessorRoundTrip(t *testing.T) {
	a := arena.New()
	a.Expand(16)
	tr := newIntTree(a)
	keys := []uint32{8, 3, 15, 1, 5, 12, 20}
	nodes := make([]uint32, len(keys))
	for i, k := range keys {
		nodes[i] = insertKey(a, tr, k)
	}

	first := Min(tr, tr.Root)
	forward := []uint32{keyOf(a, first)}
	n := first
	for {
		n = tr.Successor(n)
		if n == nilIdx {
			break
		}
		forward = append(forward, keyOf(a, n))
	}
	assertSorted(t, forward)
	if len(forward) != len(keys) {
		t.Fatalf("forward walk length = %d, want %d", len(forward), len(keys))
	}

	last := Max(tr, tr.Root)
	back := []uint32{keyOf(a, last)}
	n = last
	for {
		n = tr.Predecessor(n)
		if n == nilIdx {
			break
		}
		back = append(back, keyOf(a, n))
	}
	if len(back) != len(keys) {
		t.Fatalf("backward walk length = %d, want %d", len(back), len(keys))
	}
	for i := range forward {
		if forward[i] != back[len(back)-1-i] {
			t.Fatalf("forward/backward walks disagree: %v vs reversed %v", forward, back)
		}
	}
}

func TestRemoveLeafMiddleAndRoot(t *testing.T) {
	a := arena.New()
	a.Expand(16)
	tr := newIntTree(a)
	keys := []uint32{50, 30, 70, 20, 40, 60, 80}
	nodeByKey := make(map[uint32]uint32)
	for _, k := range keys {
		nodeByKey[k] = insertKey(a, tr, k)
	}

	// remove a leaf
	tr.Remove(nodeByKey[20])
	checkRBInvariants(t, tr, tr.Root)
	got := inorder(a, tr)
	assertSorted(t, got)
	if len(got) != len(keys)-1 {
		t.Fatalf("after removing leaf: %d keys, want %d", len(got), len(keys)-1)
	}

	// remove a node with two children
	tr.Remove(nodeByKey[30])
	checkRBInvariants(t, tr, tr.Root)
	got = inorder(a, tr)
	assertSorted(t, got)
	if len(got) != len(keys)-2 {
		t.Fatalf("after removing internal node: %d keys, want %d", len(got), len(keys)-2)
	}

	// remove the root
	tr.Remove(nodeByKey[50])
	checkRBInvariants(t, tr, tr.Root)
	got = inorder(a, tr)
	assertSorted(t, got)
	if len(got) != len(keys)-3 {
		t.Fatalf("after removing root: %d keys, want %d", len(got), len(keys)-3)
	}
}

func TestFindMatchesExactKey(t *testing.T) {
	a := arena.New()
	a.Expand(8)
	tr := newIntTree(a)
	for _, k := range []uint32{5, 15, 25, 35} {
		insertKey(a, tr, k)
	}

	found := Find(tr, func(candidate uint32) int {
		c := keyOf(a, candidate)
		switch {
		case 25 < c:
			return -1
		case 25 > c:
			return 1
		default:
			return 0
		}
	})
	if found == nilIdx {
		t.Fatal("Find did not locate key 25")
	}
	if keyOf(a, found) != 25 {
		t.Fatalf("Find returned key %d, want 25", keyOf(a, found))
	}

	missing := Find(tr, func(candidate uint32) int {
		c := keyOf(a, candidate)
		switch {
		case 999 < c:
			return -1
		case 999 > c:
			return 1
		default:
			return 0
		}
	})
	if missing != nilIdx {
		t.Fatalf("Find located a non-existent key: %d", keyOf(a, missing))
	}
}

func TestRandomInsertRemoveMaintainsInvariants(t *testing.T) {
	a := arena.New()
	a.Expand(256)
	tr := newIntTree(a)

	rng := rand.New(rand.NewSource(1))
	present := make(map[uint32]uint32) // key -> node index
	for i := 0; i < 200; i++ {
		key := uint32(rng.Intn(1000))
		if _, exists := present[key]; exists {
			continue
		}
		present[key] = insertKey(a, tr, key)
	}
	checkRBInvariants(t, tr, tr.Root)
	assertSorted(t, inorder(a, tr))

	i := 0
	for key, idx := range present {
		if i%2 == 0 {
			tr.Remove(idx)
			delete(present, key)
		}
		i++
	}
	checkRBInvariants(t, tr, tr.Root)
	got := inorder(a, tr)
	assertSorted(t, got)
	if len(got) != len(present) {
		t.Fatalf("remaining count = %d, want %d", len(got), len(present))
	}
}
