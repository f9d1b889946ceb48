package arena

import "testing"

func TestNewEmpty(t *testing.T) {
	a := New()
	if a.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", a.Len())
	}
	if a.FreeHead != NIL {
		t.Fatalf("FreeHead = %d, want NIL", a.FreeHead)
	}
	if _, err := a.Alloc(TagSeat); err != ErrOutOfBlocks {
		t.Fatalf("Alloc on empty arena: err = %v, want ErrOutOfBlocks", err)
	}
}

func TestExpandAndAlloc(t *testing.T) {
	a := New()
	a.Expand(4)
	if a.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", a.Len())
	}
	if a.FreeLen() != 4 {
		t.Fatalf("FreeLen() = %d, want 4", a.FreeLen())
	}

	idx, err := a.Alloc(TagOrder)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	blk := a.Get(idx)
	if blk.Tag != TagOrder {
		t.Fatalf("Tag = %v, want TagOrder", blk.Tag)
	}
	if blk.Left != NIL || blk.Right != NIL || blk.Parent != NIL {
		t.Fatalf("freshly allocated block has non-NIL linkage: %+v", blk)
	}
	if blk.Color != Red {
		t.Fatalf("freshly allocated block color = %v, want Red", blk.Color)
	}
	if a.FreeLen() != 3 {
		t.Fatalf("FreeLen() after one alloc = %d, want 3", a.FreeLen())
	}
}

func TestAllocExhaustsFreeList(t *testing.T) {
	a := New()
	a.Expand(2)

	if _, err := a.Alloc(TagSeat); err != nil {
		t.Fatalf("first Alloc: %v", err)
	}
	if _, err := a.Alloc(TagSeat); err != nil {
		t.Fatalf("second Alloc: %v", err)
	}
	if _, err := a.Alloc(TagSeat); err != ErrOutOfBlocks {
		t.Fatalf("third Alloc: err = %v, want ErrOutOfBlocks", err)
	}
}

func TestFreeReturnsBlockToFreeList(t *testing.T) {
	a := New()
	a.Expand(1)

	idx, err := a.Alloc(TagOrder)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if a.FreeLen() != 0 {
		t.Fatalf("FreeLen() after draining the only block = %d, want 0", a.FreeLen())
	}

	a.Free(idx)
	if a.FreeLen() != 1 {
		t.Fatalf("FreeLen() after Free = %d, want 1", a.FreeLen())
	}
	blk := a.Get(idx)
	if blk.Tag != TagFree {
		t.Fatalf("Tag after Free = %v, want TagFree", blk.Tag)
	}
	if !blk.isFreeLinkage() {
		t.Fatalf("freed block does not match the all-NIL free-linkage pattern: %+v", blk)
	}

	idx2, err := a.Alloc(TagSeat)
	if err != nil {
		t.Fatalf("re-Alloc after Free: %v", err)
	}
	if idx2 != idx {
		t.Fatalf("re-Alloc returned %d, want reused index %d", idx2, idx)
	}
}

func TestExpandThreadsOntoExistingFreeList(t *testing.T) {
	a := New()
	a.Expand(2)
	a.Expand(3)
	if a.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", a.Len())
	}
	if a.FreeLen() != 5 {
		t.Fatalf("FreeLen() = %d, want 5", a.FreeLen())
	}

	seen := make(map[uint32]bool)
	for cur := a.FreeHead; cur != NIL; cur = a.Blocks[cur].Next {
		if seen[cur] {
			t.Fatalf("free list cycles at index %d", cur)
		}
		seen[cur] = true
	}
	if len(seen) != 5 {
		t.Fatalf("free list visited %d distinct blocks, want 5", len(seen))
	}
}

func TestAllocZeroesPayload(t *testing.T) {
	a := New()
	a.Expand(1)

	idx, _ := a.Alloc(TagOrder)
	blk := a.Get(idx)
	blk.Payload[0] = 0xFF
	a.Free(idx)

	idx2, _ := a.Alloc(TagOrder)
	blk2 := a.Get(idx2)
	if blk2.Payload[0] != 0 {
		t.Fatalf("payload not zeroed on re-Alloc: got %#x", blk2.Payload[0])
	}
}
