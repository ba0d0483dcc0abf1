package tealet

// pendingList is the intrusive list of partially-saved SavedStacks awaiting
// further growth (spec.md section 3 / C.3). A SavedStack appears here
// exactly while isPartial() holds.
type pendingList struct {
	head *savedStack
}

func (p *pendingList) link(ss *savedStack) {
	if ss.inPending {
		return
	}
	ss.pendNext = p.head
	if p.head != nil {
		p.head.pendPrev = ss
	}
	ss.pendPrev = nil
	p.head = ss
	ss.inPending = true
}

func (p *pendingList) unlink(ss *savedStack) {
	if !ss.inPending {
		return
	}
	if ss.pendPrev != nil {
		ss.pendPrev.pendNext = ss.pendNext
	} else {
		p.head = ss.pendNext
	}
	if ss.pendNext != nil {
		ss.pendNext.pendPrev = ss.pendPrev
	}
	ss.pendPrev, ss.pendNext = nil, nil
	ss.inPending = false
}

// growPendingTo implements the pending-list walk of spec.md section 4.3:
// every partial SavedStack is grown to at least targetFar and unlinked once
// it reaches its own far; the walk stops once it reaches stopAt (the
// incoming target's own SavedStack, already fully saved with respect to
// targetFar by construction), except that a shared (refcount > 1) stopAt
// must still be grown to its own far in full, since restoring it will
// overwrite the live native stack up to that point and a sharer may have
// since clobbered whatever made the shortcut safe.
//
// If targetFar is Furthest (switching into an unbounded main), each entry is
// grown to its own far rather than to a shared numeric bound: main's
// reachable depth has no fixed edge to grow other stacks to, so the only
// well-defined target for "grow enough that main can't clobber it" is full
// materialization (spec.md section 4.3's Furthest edge case, generalized
// here to targets other than the outgoing coroutine).
//
// mustNotFail implements spec.md section 4.3's exiting-coroutine rule: when
// true, a grow failure defuncts the offending SavedStack's owner instead of
// aborting the walk.
func (fam *Family) growPendingTo(targetFar stackFar, stopAt *savedStack, mustNotFail bool) error {
	ss := fam.pending.head
	for ss != nil {
		next := ss.pendNext
		reached := ss == stopAt

		want := ss.far
		if !targetFar.isFurthest() && !reached {
			want = targetFar.addr
		}
		if reached && ss.refcount <= 1 {
			// Already fully saved with respect to anything shallower than
			// it; an unshared partial tail is safe to leave as-is.
			break
		}

		before := ss.savedBytes
		if err := ss.grow(fam.alloc, want); err != nil {
			if !mustNotFail {
				return err
			}
			if ss.owner != nil {
				ss.owner.markDefunct()
			}
			fam.pending.unlink(ss)
			if reached {
				break
			}
			ss = next
			continue
		}
		fam.stats.noteGrow(int64(ss.savedBytes - before))
		if !ss.isPartial() {
			fam.pending.unlink(ss)
		}
		if reached {
			break
		}
		ss = next
	}
	return nil
}
