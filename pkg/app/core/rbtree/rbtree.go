// Package rbtree implements an iterative, arena-backed red-black tree.
//
// Nodes are not heap-allocated Go values; a "node" is an index into an
// arena.Arena, and Left/Right/Parent/Color live directly on the
// arena.Block at that index. This keeps the structure free of Go-level
// recursion (bounded stack, straightforward to reason about) and lets
// bids, asks, and seats share one arena via three independent Trees with
// different comparators, per the design notes in spec §9 ("trees sharing
// an arena").
package rbtree

import "github.com/uhyunpark/hyperlicked/pkg/app/core/arena"

const nilIdx = arena.NIL

// Less compares the keys of two live blocks and reports whether a sorts
// strictly before b. Implementations read whatever payload fields (price,
// sequence number, trader key, ...) define the tree's order.
type Less func(a, b uint32) bool

// Tree is a red-black tree over a shared Arena, ordered by Cmp.
type Tree struct {
	Arena *arena.Arena
	Root  uint32
	Cmp   Less
}

// New creates an empty tree over a (possibly already populated) arena.
func New(a *arena.Arena, cmp Less) *Tree {
	return &Tree{Arena: a, Root: nilIdx, Cmp: cmp}
}

func (t *Tree) node(i uint32) *arena.Block { return t.Arena.Get(i) }

func (t *Tree) left(i uint32) uint32   { return t.node(i).Left }
func (t *Tree) right(i uint32) uint32  { return t.node(i).Right }
func (t *Tree) parent(i uint32) uint32 { return t.node(i).Parent }
func (t *Tree) color(i uint32) arena.Color {
	if i == nilIdx {
		return arena.Black
	}
	return t.node(i).Color
}

// setLeft/setRight/setParent guard the NIL sentinel: RB-tree rotations
// sometimes compute a linkage update targeting NIL (e.g. a rotation whose
// child subtree is empty); since there is no real sentinel block to write
// into, such updates are simply dropped.
func (t *Tree) setLeft(i, v uint32) {
	if i == nilIdx {
		return
	}
	t.node(i).Left = v
}
func (t *Tree) setRight(i, v uint32) {
	if i == nilIdx {
		return
	}
	t.node(i).Right = v
}
func (t *Tree) setParent(i, v uint32) {
	if i == nilIdx {
		return
	}
	t.node(i).Parent = v
}
func (t *Tree) setColor(i uint32, c arena.Color) {
	if i == nilIdx {
		return
	}
	t.node(i).Color = c
}

// Min walks to the leftmost (minimum-key) node of the subtree rooted at
// root. Returns NIL if root is NIL.
func Min(t *Tree, root uint32) uint32 {
	if root == nilIdx {
		return nilIdx
	}
	for t.left(root) != nilIdx {
		root = t.left(root)
	}
	return root
}

// Max walks to the rightmost (maximum-key) node of the subtree rooted at
// root. Returns NIL if root is NIL.
func Max(t *Tree, root uint32) uint32 {
	if root == nilIdx {
		return nilIdx
	}
	for t.right(root) != nilIdx {
		root = t.right(root)
	}
	return root
}

// Successor returns the next node in key order after n, or NIL if n is
// the maximum.
func (t *Tree) Successor(n uint32) uint32 {
	if t.right(n) != nilIdx {
		return Min(t, t.right(n))
	}
	p := t.parent(n)
	for p != nilIdx && n == t.right(p) {
		n = p
		p = t.parent(p)
	}
	return p
}

// Predecessor returns the previous node in key order before n, or NIL if
// n is the minimum.
func (t *Tree) Predecessor(n uint32) uint32 {
	if t.left(n) != nilIdx {
		return Max(t, t.left(n))
	}
	p := t.parent(n)
	for p != nilIdx && n == t.left(p) {
		n = p
		p = t.parent(p)
	}
	return p
}

func (t *Tree) rotateLeft(x uint32) {
	y := t.right(x)
	t.setRight(x, t.left(y))
	if t.left(y) != nilIdx {
		t.setParent(t.left(y), x)
	}
	t.setParent(y, t.parent(x))
	if t.parent(x) == nilIdx {
		t.Root = y
	} else if x == t.left(t.parent(x)) {
		t.setLeft(t.parent(x), y)
	} else {
		t.setRight(t.parent(x), y)
	}
	t.setLeft(y, x)
	t.setParent(x, y)
}

func (t *Tree) rotateRight(x uint32) {
	y := t.left(x)
	t.setLeft(x, t.right(y))
	if t.right(y) != nilIdx {
		t.setParent(t.right(y), x)
	}
	t.setParent(y, t.parent(x))
	if t.parent(x) == nilIdx {
		t.Root = y
	} else if x == t.right(t.parent(x)) {
		t.setRight(t.parent(x), y)
	} else {
		t.setLeft(t.parent(x), y)
	}
	t.setRight(y, x)
	t.setParent(x, y)
}

// Insert links the already-allocated block z (its Left/Right/Parent must
// be NIL) into the tree in key order and rebalances.
func (t *Tree) Insert(z uint32) {
	var y uint32 = nilIdx
	x := t.Root
	for x != nilIdx {
		y = x
		if t.Cmp(z, x) {
			x = t.left(x)
		} else {
			x = t.right(x)
		}
	}
	t.setParent(z, y)
	if y == nilIdx {
		t.Root = z
	} else if t.Cmp(z, y) {
		t.setLeft(y, z)
	} else {
		t.setRight(y, z)
	}
	t.setLeft(z, nilIdx)
	t.setRight(z, nilIdx)
	t.setColor(z, arena.Red)
	t.insertFixup(z)
}

func (t *Tree) insertFixup(z uint32) {
	for t.color(t.parent(z)) == arena.Red {
		p := t.parent(z)
		gp := t.parent(p)
		if p == t.left(gp) {
			y := t.right(gp)
			if t.color(y) == arena.Red {
				t.setColor(p, arena.Black)
				t.setColor(y, arena.Black)
				t.setColor(gp, arena.Red)
				z = gp
				continue
			}
			if z == t.right(p) {
				z = p
				t.rotateLeft(z)
				p = t.parent(z)
				gp = t.parent(p)
			}
			t.setColor(p, arena.Black)
			t.setColor(gp, arena.Red)
			t.rotateRight(gp)
		} else {
			y := t.left(gp)
			if t.color(y) == arena.Red {
				t.setColor(p, arena.Black)
				t.setColor(y, arena.Black)
				t.setColor(gp, arena.Red)
				z = gp
				continue
			}
			if z == t.left(p) {
				z = p
				t.rotateRight(z)
				p = t.parent(z)
				gp = t.parent(p)
			}
			t.setColor(p, arena.Black)
			t.setColor(gp, arena.Red)
			t.rotateLeft(gp)
		}
	}
	t.setColor(t.Root, arena.Black)
}

func (t *Tree) transplant(u, v uint32) {
	p := t.parent(u)
	if p == nilIdx {
		t.Root = v
	} else if u == t.left(p) {
		t.setLeft(p, v)
	} else {
		t.setRight(p, v)
	}
	t.setParent(v, p)
}

// Remove unlinks node z from the tree and rebalances. z's own
// Left/Right/Parent are left stale; the caller (typically arena.Free) is
// responsible for returning the block to the free list.
func (t *Tree) Remove(z uint32) {
	y := z
	yOriginalColor := t.color(y)
	var x, xParent uint32

	if t.left(z) == nilIdx {
		x = t.right(z)
		xParent = t.parent(z)
		t.transplant(z, t.right(z))
	} else if t.right(z) == nilIdx {
		x = t.left(z)
		xParent = t.parent(z)
		t.transplant(z, t.left(z))
	} else {
		y = Min(t, t.right(z))
		yOriginalColor = t.color(y)
		x = t.right(y)
		if t.parent(y) == z {
			xParent = y
		} else {
			xParent = t.parent(y)
			t.transplant(y, t.right(y))
			t.setRight(y, t.right(z))
			t.setParent(t.right(y), y)
		}
		t.transplant(z, y)
		t.setLeft(y, t.left(z))
		t.setParent(t.left(y), y)
		t.setColor(y, t.color(z))
	}

	if yOriginalColor == arena.Black {
		t.removeFixup(x, xParent)
	}
}

// removeFixup rebalances after a black node was spliced out. x may be
// NIL, in which case xParent identifies its logical parent (NIL has no
// Parent field of its own).
func (t *Tree) removeFixup(x, xParent uint32) {
	for x != t.Root && t.color(x) == arena.Black {
		if x == t.left(xParent) {
			w := t.right(xParent)
			if t.color(w) == arena.Red {
				t.setColor(w, arena.Black)
				t.setColor(xParent, arena.Red)
				t.rotateLeft(xParent)
				w = t.right(xParent)
			}
			if t.color(t.left(w)) == arena.Black && t.color(t.right(w)) == arena.Black {
				t.setColor(w, arena.Red)
				x = xParent
				xParent = t.parent(x)
				continue
			}
			if t.color(t.right(w)) == arena.Black {
				t.setColor(t.left(w), arena.Black)
				t.setColor(w, arena.Red)
				t.rotateRight(w)
				w = t.right(xParent)
			}
			t.setColor(w, t.color(xParent))
			t.setColor(xParent, arena.Black)
			t.setColor(t.right(w), arena.Black)
			t.rotateLeft(xParent)
			x = t.Root
		} else {
			w := t.left(xParent)
			if t.color(w) == arena.Red {
				t.setColor(w, arena.Black)
				t.setColor(xParent, arena.Red)
				t.rotateRight(xParent)
				w = t.left(xParent)
			}
			if t.color(t.right(w)) == arena.Black && t.color(t.left(w)) == arena.Black {
				t.setColor(w, arena.Red)
				x = xParent
				xParent = t.parent(x)
				continue
			}
			if t.color(t.left(w)) == arena.Black {
				t.setColor(t.right(w), arena.Black)
				t.setColor(w, arena.Red)
				t.rotateLeft(w)
				w = t.left(xParent)
			}
			t.setColor(w, t.color(xParent))
			t.setColor(xParent, arena.Black)
			t.setColor(t.left(w), arena.Black)
			t.rotateRight(xParent)
			x = t.Root
		}
	}
	t.setColor(x, arena.Black)
}

// Find walks the tree using cmp (key vs candidate: <0 go left, >0 go
// right, 0 match) and returns the matching node, or NIL.
func Find(t *Tree, cmp func(candidate uint32) int) uint32 {
	x := t.Root
	for x != nilIdx {
		c := cmp(x)
		switch {
		case c < 0:
			x = t.left(x)
		case c > 0:
			x = t.right(x)
		default:
			return x
		}
	}
	return nilIdx
}
