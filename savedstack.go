package tealet

// sizeDefunct is the sentinel saved_bytes value of a defunct SavedStack
// (spec.md section 3 invariants).
const sizeDefunct = ^uintptr(0)

// savedStack is the heap-resident record of a suspended coroutine's stack
// (spec.md section 3, "SavedStack"). chunk0 is the inlined initial chunk;
// more chains any additional chunks added by grow. Chunks are added only
// deeper than the existing range, never in front of it.
type savedStack struct {
	refcount   int32
	dir        Direction
	far        uintptr // owner's stack_far at save time; always bounded
	savedBytes uintptr // sum of chunk sizes, or sizeDefunct
	chunk0     chunk
	owner      *coroCore // for defunct propagation during the pending-list walk

	pendPrev, pendNext *savedStack
	inPending          bool
}

// lastChunk returns the deepest chunk currently in the list.
func (ss *savedStack) lastChunk() *chunk {
	c := &ss.chunk0
	for c.next != nil {
		c = c.next
	}
	return c
}

// coveredTo returns the deepest native-stack address already saved.
func (ss *savedStack) coveredTo() uintptr {
	return ss.lastChunk().lowAddr(ss.dir)
}

// isPartial reports whether this SavedStack's saved range has not yet
// reached its owner's stack_far (spec.md GLOSSARY, "Partial stack").
func (ss *savedStack) isPartial() bool {
	if ss.savedBytes == sizeDefunct {
		return false
	}
	return !isAtLeastAsDeep(ss.dir, ss.coveredTo(), ss.far)
}

// newSavedStack implements SavedStack.new (spec.md section 4.2): it copies
// [near, saveTo] off the live native stack into one inline chunk. near is
// ordinarily shallower than saveTo, but a switch whose target's stack_far is
// still Furthest (the common case: any Create/StubNew/New called directly
// from main) resolves saveTo to the outgoing coroutine's own far —
// shallowerFar's "Furthest never wins" rule (farmark.go) — which was
// captured shallower than where the save callback runs, leaving near deeper
// than saveTo. spanBytes has no defined result for that ordering, so the
// size is clamped to zero instead, mirroring
// original_source/tealet.c's tealet_stack_saveto: "if (size < 0) size = 0".
func newSavedStack(alloc Allocator, dir Direction, owner *coroCore, near, ownerFar, saveTo uintptr) (*savedStack, error) {
	var size uintptr
	if isAtLeastAsDeep(dir, saveTo, near) {
		size = spanBytes(dir, near, saveTo)
	}
	buf, err := alloc.Alloc(int(size))
	if err != nil {
		return nil, err
	}
	ss := &savedStack{refcount: 1, dir: dir, far: ownerFar, owner: owner}
	ss.chunk0 = chunk{nearEnd: near, data: buf}
	ss.chunk0.saveFromNative(dir)
	ss.savedBytes = size
	return ss, nil
}

// grow implements SavedStack.grow (spec.md section 4.2): it appends a new
// chunk covering the bytes between what's already saved and requestFar,
// never rewriting earlier chunks. It amortizes repeated small grows during
// a pending-list walk by doubling the previously saved size, a policy
// carried over from the original C implementation's chunk growth (see
// SPEC_FULL.md, SUPPLEMENTED FEATURES), capped so it never copies bytes
// past ownerFar, which the owner does not own.
func (ss *savedStack) grow(alloc Allocator, requestFar uintptr) error {
	cur := ss.coveredTo()
	if isAtLeastAsDeep(ss.dir, cur, requestFar) {
		return nil
	}
	need := spanBytes(ss.dir, cur, requestFar)
	ambition := ss.savedBytes * 2
	if ambition < need {
		ambition = need
	}
	if max := spanBytes(ss.dir, cur, ss.far); ambition > max {
		ambition = max
	}

	buf, err := alloc.Alloc(int(ambition))
	if err != nil {
		return StatusErrMem
	}
	nc := &chunk{nearEnd: cur, data: buf}
	nc.saveFromNative(ss.dir)

	ss.lastChunk().next = nc
	ss.savedBytes += ambition
	return nil
}

// restore implements SavedStack.restore: memcpy every chunk back to its
// recorded native-stack location. Chunks are disjoint, so order never
// matters; a partial SavedStack with refcount 1 simply leaves its unsaved
// deep tail as-is, since nothing else could have touched it (spec.md
// section 4.3).
func (ss *savedStack) restore() {
	for c := &ss.chunk0; c != nil; c = c.next {
		c.restoreToNative(ss.dir)
	}
}

// dup implements SavedStack.dup: saved-stack storage is immutably shared by
// duplicated coroutines.
func (ss *savedStack) dup() *savedStack {
	ss.refcount++
	return ss
}

// decref implements SavedStack.decref, freeing every chunk once the last
// sharer releases it.
func (ss *savedStack) decref(alloc Allocator) {
	ss.refcount--
	if ss.refcount > 0 {
		return
	}
	for c := ss.chunk0.next; c != nil; {
		next := c.next
		alloc.Free(c.data)
		c = next
	}
	alloc.Free(ss.chunk0.data)
}

// defunctify implements SavedStack.defunct: drop every chunk but the
// inline one (so the coroutine's size field can still be read), and mark
// saved_bytes with the defunct sentinel. The caller is responsible for
// setting the owning coroutine's state to Defunct.
func (ss *savedStack) defunctify(alloc Allocator) {
	for c := ss.chunk0.next; c != nil; {
		next := c.next
		alloc.Free(c.data)
		c = next
	}
	ss.chunk0.next = nil
	ss.savedBytes = sizeDefunct
}
