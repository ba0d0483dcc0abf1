package tealet

// Stats is the statistics record of spec.md section 4.6 / EXTERNAL
// INTERFACES: field order is mandated (counts, then byte/block totals, then
// peak, then stack totals, then expanded, then naive) because host bindings
// may read this struct by position.
type Stats struct {
	ActiveCoroutines int
	TotalCreated     uint64

	BytesAllocated  int64
	BlocksAllocated int64

	BytesAllocatedPeak  int64
	BlocksAllocatedPeak int64

	// StackBytesHeld is the live sum of every SavedStack's saved_bytes in
	// this family. In this implementation the allocator is only ever used
	// for SavedStack chunks, so it always equals BytesAllocated; the two
	// fields are kept distinct because spec.md's field-order contract
	// names them separately and a future allocator use (e.g. Extra
	// payloads) would make them diverge.
	StackBytesHeld int64

	// Expanded is the sum of chunk bytes counting every sharer of a
	// refcounted SavedStack once each: what storage would cost without
	// SavedStack dedup via duplicate/fork.
	Expanded int64
	// Naive is, for every live coroutine, the full [near, far] extent it
	// would need in one block without slicing, summed.
	Naive int64
}

// noteAlloc updates the byte counters after a SavedStack has just been
// created or grown by delta bytes.
func (s *Stats) noteAlloc(delta int64) {
	s.BytesAllocated += delta
	if s.BytesAllocated > s.BytesAllocatedPeak {
		s.BytesAllocatedPeak = s.BytesAllocated
	}
}

// noteSave records a brand-new SavedStack (one new block, chunk0's bytes).
func (s *Stats) noteSave(ss *savedStack) {
	s.BlocksAllocated++
	if s.BlocksAllocated > s.BlocksAllocatedPeak {
		s.BlocksAllocatedPeak = s.BlocksAllocated
	}
	s.noteAlloc(int64(ss.chunk0.size()))
	s.StackBytesHeld += int64(ss.chunk0.size())
}

// noteGrow records one additional chunk appended to an existing SavedStack.
func (s *Stats) noteGrow(addedBytes int64) {
	s.BlocksAllocated++
	if s.BlocksAllocated > s.BlocksAllocatedPeak {
		s.BlocksAllocatedPeak = s.BlocksAllocated
	}
	s.noteAlloc(addedBytes)
	s.StackBytesHeld += addedBytes
}

// noteRelease records every chunk of a SavedStack being freed (refcount
// reached zero, or defunct dropped the trailing chunks).
func (s *Stats) noteRelease(freedBytes int64, freedBlocks int64) {
	s.BytesAllocated -= freedBytes
	s.StackBytesHeld -= freedBytes
	s.BlocksAllocated -= freedBlocks
}

// releaseStack decrefs ss, freeing its chunks, unlinking it from the
// pending list and updating the byte/block counters if this was the last
// sharer.
func (fam *Family) releaseStack(ss *savedStack) {
	wasLast := ss.refcount == 1
	var freedBytes, freedBlocks int64
	if wasLast {
		fam.pending.unlink(ss)
		freedBytes = int64(ss.savedBytes)
		for c := &ss.chunk0; c != nil; c = c.next {
			freedBlocks++
		}
	}
	ss.decref(fam.alloc)
	if wasLast {
		fam.stats.noteRelease(freedBytes, freedBlocks)
	}
}

// defunctStack drops ss's trailing chunks (keeping chunk0) and updates the
// byte/block counters for whatever was freed.
func (fam *Family) defunctStack(ss *savedStack) {
	var freedBytes, freedBlocks int64
	for c := ss.chunk0.next; c != nil; c = c.next {
		freedBytes += int64(c.size())
		freedBlocks++
	}
	ss.defunctify(fam.alloc)
	fam.stats.noteRelease(freedBytes, freedBlocks)
}

// GetStats returns a copy of the family's current statistics, including the
// two walk-computed aggregates (spec.md section 4.6).
func (fam *Family) GetStats() Stats {
	st := fam.stats
	st.Expanded, st.Naive = fam.walkAggregates()
	return st
}

// walkAggregates implements get_stats's all-coroutines walk: expanded sums
// chunk bytes once per sharer of a refcounted SavedStack (no dedup credit);
// naive sums, per coroutine, the full [near, far] span it would need without
// slicing at all.
func (fam *Family) walkAggregates() (expanded, naive int64) {
	if fam.allHead == nil {
		return 0, 0
	}
	c := fam.allHead
	for {
		co := coroFromCore(c)
		switch co.state.kind {
		case stateSuspended:
			ss := co.state.saved
			if ss.savedBytes != sizeDefunct {
				expanded += int64(ss.savedBytes)
				naive += int64(spanBytes(fam.dir, ss.chunk0.nearEnd, ss.far))
			}
		case stateRunning:
			// The running coroutine has nothing saved; its naive cost is
			// zero extra (it already occupies live native stack).
		}
		c = c.listNext
		if c == fam.allHead {
			break
		}
	}
	return expanded, naive
}

// ResetPeaks resets the incremental peak counters to the current live
// totals, without touching those totals (spec.md section 4.6, "peak
// bytes/blocks ... can be reset").
func (fam *Family) ResetPeaks() {
	fam.stats.BytesAllocatedPeak = fam.stats.BytesAllocated
	fam.stats.BlocksAllocatedPeak = fam.stats.BlocksAllocated
}
