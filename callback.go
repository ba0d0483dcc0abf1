package tealet

import "github.com/iansmith/tealet/internal/stackswitch"

// runSwitch drives one stack_switch call (section 4.1) using whatever the
// caller has already populated on fam's scratch fields (scratchTarget,
// scratchArg). It is the one place internal/stackswitch.Switch is called
// from; every lifecycle op funnels through it.
func (fam *Family) runSwitch() {
	cb := func(ctx uintptr, op stackswitch.Op, sp uintptr) uintptr {
		if op == stackswitch.OpSave {
			return fam.onSave(sp)
		}
		return fam.onRestore(sp)
	}
	stackswitch.Switch(cb, 0)
}

// onSave is the SAVE half of section 4.4's save/restore callback. out is
// whoever fam.current is at the moment of the switch (normally the actual
// caller; during Create's bootstrap, current has been "lied about" to be
// the freshly allocated coroutine instead). target is fam.scratchTarget.
func (fam *Family) onSave(near uintptr) uintptr {
	out := fam.current
	target := fam.scratchTarget

	exiting := out.far.isExiting()

	// The pending-list walk (section 4.3) runs regardless of whether out
	// itself is exiting: other already-partial SavedStacks still need to
	// be grown to reach target.far before target can safely run. Only the
	// "save out itself" step below is skipped for an exiting out.
	var stopAt *savedStack
	if target.state.kind == stateSuspended {
		stopAt = target.state.saved
	}
	if err := fam.growPendingTo(target.far, stopAt, exiting); err != nil {
		fam.discrim = discrimErr
		fam.switchErr = err
		return near
	}

	if exiting {
		// out.saved_stack is always NULL here: nothing was ever saved for
		// a coroutine mid-its-first-and-only exit (section 4.4 step 1).
		if out.deleteOnExit {
			out.fam.unlinkAllCoros(&out.coroCore)
			out.fam.stats.ActiveCoroutines--
			// Mark the record itself Defunct too, not just unlinked: an
			// explicit Delete call reaching this coroutine later (a caller
			// that didn't track that FlagDelete already auto-freed it) must
			// see state.kind == stateDefunct and no-op, rather than
			// double-decrementing ActiveCoroutines or unlinking an
			// already-unlinked node a second time.
			out.state = coroState{kind: stateDefunct}
		}
	} else {
		saveTo := fam.saveToFor(out, target)
		ss, err := newSavedStack(fam.alloc, fam.dir, &out.coroCore, near, out.far.addr, saveTo)
		if err != nil {
			fam.discrim = discrimErr
			fam.switchErr = StatusErrMem
			return near
		}
		if ss.isPartial() {
			fam.pending.link(ss)
		}
		out.state = coroState{kind: stateSuspended, saved: ss}
		fam.stats.noteSave(ss)

		if out == target {
			// Fork's fake self-save (section 4.5): out is about to be
			// restored right back into itself a few lines down, which would
			// release ss to a dangling zero refcount before Fork ever gets
			// to hand it to the new child. Keep a second reference alive
			// across that self-restore.
			fam.forkSnapshot = ss.dup()
		}
	}

	if target.state.kind != stateSuspended {
		// Target has no SavedStack (Create's "temporarily lied about"
		// parent, which is literally running right now): nothing to
		// restore, so leave the stack pointer alone. Fork's self-switch
		// does not land here, since out was just marked suspended above.
		fam.discrim = discrimNOP
		return near
	}
	fam.discrim = discrimRestore
	return target.state.saved.chunk0.nearEnd
}

// saveToFor computes section 4.3's saveto = min(out.far, target.far), the
// point to which out's outbound save must reach before it is safe to leave
// the remainder on the pending list.
func (fam *Family) saveToFor(out, target *Coro) uintptr {
	saveTo := shallowerFar(fam.dir, out.far, target.far)
	if saveTo.isFurthest() {
		// Both ends unbounded: can only happen switching between two
		// Furthest mains, which never occurs within one family.
		return out.far.addr
	}
	return saveTo.addr
}

// onRestore is the RESTORE half of section 4.4.
func (fam *Family) onRestore(newSP uintptr) uintptr {
	switch fam.discrim {
	case discrimRestore:
		target := fam.scratchTarget
		out := fam.current
		ss := target.state.saved
		ss.restore()
		fam.releaseStack(ss)
		target.state = coroState{kind: stateRunning}
		target.previous = out
		fam.lastSwitchSource = out
		fam.current = target
	case discrimErr:
		// switchErr is already set; nothing further to unwind, since the
		// SAVE half returned the unchanged stack pointer.
	case discrimNOP:
		// Create bootstrap: current never actually moved.
	}
	return 0
}
