// Package arena implements the fixed-size block arena backing the market's
// dynamic region: a flat array of 80-byte blocks, each either a live tree
// node (seat or order) or a link in the free list.
package arena

import "fmt"

// NIL is the sentinel block index meaning "no node".
const NIL uint32 = 0xFFFF_FFFF

// BlockSize is the fixed size, in bytes, of every arena block: 16 bytes of
// tree-node overhead (left, right, parent, color) plus a 64-byte payload.
const BlockSize = 80

// PayloadSize is the portion of a block available to the node's logical
// payload (ClaimedSeat or OrderNode).
const PayloadSize = 64

// Tag identifies what a live block currently holds. It is not itself part
// of the wire layout (free blocks are recognized by their all-ones
// left/right/parent fields); it exists purely to catch programmer errors
// when decoding a payload.
type Tag uint8

const (
	TagFree Tag = iota
	TagSeat
	TagOrder
)

// Block is one arena slot: RB-tree linkage plus an opaque payload.
//
// A free block keeps its forward free-list link in Next, a field of its
// own; Left/Right/Parent are pinned to NIL so the wire pattern described
// in spec §6 ("all-ones left/right/parent ⇒ free block") still holds when
// this struct is serialized.
type Block struct {
	Left, Right, Parent uint32
	Next                uint32 // valid only while Tag == TagFree
	Color               Color
	Tag                 Tag
	Payload             [PayloadSize]byte
}

// Color is the red-black tree node color.
type Color uint8

const (
	Red Color = iota
	Black
)

// isFreeLinkage reports whether a block carries the free-block marker
// (all-ones left/right/parent and Tag == TagFree), matching the wire
// convention in spec §6: a free block is recognized by its all-ones
// tree-node header.
func (b *Block) isFreeLinkage() bool {
	return b.Left == NIL && b.Right == NIL && b.Parent == NIL && b.Tag == TagFree
}

// ErrOutOfBlocks is returned by Alloc when the free list is empty; the
// caller must grow the arena (Expand) before allocating again.
var ErrOutOfBlocks = fmt.Errorf("arena: out of blocks")

// Arena owns the flat block array and the free list threaded through it,
// including the free-list head (FreeHead). A market snapshot copies
// FreeHead alongside the blocks so the free list survives serialization.
type Arena struct {
	Blocks   []Block
	FreeHead uint32
}

// New creates an empty arena with no blocks.
func New() *Arena {
	return &Arena{FreeHead: NIL}
}

// Expand appends n new blocks to the arena, threading them onto the free
// list (LIFO, matching how Free pushes a single returned block).
func (a *Arena) Expand(n int) {
	start := len(a.Blocks)
	for i := 0; i < n; i++ {
		a.Blocks = append(a.Blocks, Block{})
	}
	for i := start; i < len(a.Blocks); i++ {
		a.freeLinked(uint32(i))
	}
}

// freeLinked pushes block index i onto the free list without checking its
// previous tag; used only during Expand, where the block is guaranteed
// fresh.
func (a *Arena) freeLinked(i uint32) {
	blk := &a.Blocks[i]
	blk.Tag = TagFree
	blk.Left, blk.Right, blk.Parent = NIL, NIL, NIL
	blk.Next = a.FreeHead
	a.FreeHead = i
}

// Alloc pops a block off the free list, tags it, and zeroes its payload.
// Returns ErrOutOfBlocks if the free list is empty.
func (a *Arena) Alloc(tag Tag) (uint32, error) {
	if a.FreeHead == NIL {
		return NIL, ErrOutOfBlocks
	}
	idx := a.FreeHead
	blk := &a.Blocks[idx]
	a.FreeHead = blk.Next
	blk.Tag = tag
	blk.Left, blk.Right, blk.Parent = NIL, NIL, NIL
	blk.Color = Red
	blk.Payload = [PayloadSize]byte{}
	return idx, nil
}

// Free returns a live block to the free list.
func (a *Arena) Free(idx uint32) {
	a.freeLinked(idx)
}

// Len returns the total number of blocks ever allocated in the arena
// (live + free).
func (a *Arena) Len() int { return len(a.Blocks) }

// FreeLen walks the free list and counts its length. Used by invariant
// checks (property 5 in spec §8), not on any hot path.
func (a *Arena) FreeLen() int {
	n := 0
	for cur := a.FreeHead; cur != NIL; cur = a.Blocks[cur].Next {
		n++
	}
	return n
}

// Get returns a pointer to the block at idx for in-place mutation.
func (a *Arena) Get(idx uint32) *Block {
	return &a.Blocks[idx]
}
