package tealet

import (
	"fmt"
	"unsafe"
)

// RunFunc is a coroutine's entry point (spec.md section 6, "run_fn"):
// invoked with the coroutine itself and whatever argument it was dispatched
// or switched into with. Returning is equivalent to calling
// Exit(self, returned, nil, FlagDelete).
type RunFunc func(self *Coro, arg any) *Coro

// newCoroRecord allocates and links a fresh, not-yet-entered coroutine
// record into the family's bookkeeping (spec.md section 3, "Family record"
// / all-coroutines list).
func (fam *Family) newCoroRecord(far stackFar) *Coro {
	co := &Coro{coroCore: coroCore{
		id:    fam.nextCoroID(),
		fam:   fam,
		far:   far,
		state: coroState{kind: stateRunning},
	}}
	fam.linkAllCoros(&co.coroCore)
	fam.stats.ActiveCoroutines++
	fam.stats.TotalCreated++
	return co
}

// Create implements spec.md section 4.5's create: it allocates a coroutine
// and saves an empty initial stub without running it yet, by temporarily
// installing the new coroutine as current around one real switch whose
// target (the actual caller) has no saved_stack of its own, so the
// callback's NOP path leaves control exactly where it already is.
// run_fn is fixed now; StubNew below defers it to StubRun instead.
func (fam *Family) Create(runFn RunFunc) (*Coro, error) {
	caller := fam.current
	child := fam.newCoroRecord(boundedFar(0)) // far is set for real inside stubTrampoline
	child.stubRunFn = runFn

	fam.current = child
	fam.scratchTarget = caller
	fam.scratchArg = nil
	fam.switchErr = nil
	fam.stubTrampoline(child)
	fam.current = caller

	if fam.switchErr != nil {
		err := fam.switchErr
		fam.switchErr = nil
		fam.unlinkAllCoros(&child.coroCore)
		fam.stats.ActiveCoroutines--
		return nil, err
	}
	return child, nil
}

// StubNew is Create without a run-function fixed yet; StubRun supplies one
// later, possibly after Duplicate has cloned the stub (spec.md section 4.5,
// "Initial stub / stub_run").
func (fam *Family) StubNew() (*Coro, error) {
	return fam.Create(nil)
}

// StubRun dispatches a parked stub (from StubNew, or a Duplicate of one)
// for the first time with the given run-function and argument.
func (fam *Family) StubRun(stub *Coro, runFn RunFunc, arg any) (any, error) {
	stub.stubRunFn = runFn
	return fam.Switch(stub, arg)
}

// stubTrampoline is the real, nested Go call whose own stack frame becomes
// the coroutine's initial saved template (spec.md section 4.5, "Initial
// stub"). It is entered exactly once per coroutine as a genuine recursive
// call (from Create); it is resumed a second and subsequent times via the
// switch primitive restoring this exact call site, which is how a later
// real Switch actually dispatches run_fn (see DESIGN.md for why this
// implementation takes the literal-recursion route instead of a separately
// mapped stack arena).
//
// child is only good for the far-marker bootstrap below. Once a restore
// happens, this call's frame may belong to a Duplicate of child sharing the
// same saved bytes, so self is read back off fam.current instead — the
// same thing the original does by calling run() with g_main->g_current
// rather than its own initialstub parameter, precisely because "this
// assertion may be invalid if a tealet_create() tealet was duplicated; we
// may now be a copy."
func (fam *Family) stubTrampoline(child *Coro) {
	var mark byte
	child.far = boundedFar(uintptr(unsafe.Pointer(&mark)))

	fam.runSwitch()

	if fam.discrim != discrimRestore {
		// The bootstrap's own synchronous fallthrough (NOP: the caller of
		// Create had no saved_stack to restore) or an error; either way
		// Create() regains control next, not run_fn.
		return
	}

	self := fam.current
	runFn := self.stubRunFn
	arg := fam.scratchArg
	next := runFn(self, arg)

	if fam.deferredArmed {
		target, deferredArg, flags := fam.deferredTarget, fam.deferredArg, fam.deferredFlags
		fam.deferredArmed = false
		fam.exitInternal(self, target, deferredArg, flags)
		return
	}
	fam.exitInternal(self, next, nil, FlagDelete)
}

// New implements spec.md section 4.5's new: semantically create followed by
// an immediate switch, in the one call.
func (fam *Family) New(runFn RunFunc, arg any) (*Coro, any, error) {
	child, err := fam.Create(runFn)
	if err != nil {
		return nil, nil, err
	}
	result, err := fam.Switch(child, arg)
	return child, result, err
}

// Switch implements spec.md section 4.5's switch. A self-switch is a no-op
// returning arg unchanged; otherwise it populates the scratch slots and
// drives the switch primitive.
func (fam *Family) Switch(target *Coro, arg any) (any, error) {
	if target == fam.current {
		return arg, nil
	}
	if target.fam != fam {
		return nil, fmt.Errorf("tealet: switch across families is undefined behavior")
	}
	if target.state.kind == stateDefunct {
		return nil, StatusErrDefunct
	}

	fam.scratchTarget = target
	fam.scratchArg = arg
	fam.switchErr = nil
	fam.runSwitch()

	if fam.switchErr != nil {
		err := fam.switchErr
		fam.switchErr = nil
		return nil, err
	}
	return fam.scratchArg, nil
}

// Exit implements spec.md section 4.5's exit. FlagDefer stashes the real
// exit for later (see stubTrampoline's post-run_fn dispatch) so the caller
// can unwind its own frames first; otherwise the exit happens immediately
// and never returns to the caller's Go frame.
func (fam *Family) Exit(self *Coro, target *Coro, arg any, flags Flag) (any, error) {
	if self.isMain() {
		return nil, fmt.Errorf("tealet: exit of the main coroutine is undefined behavior")
	}
	if flags.has(FlagDefer) {
		fam.deferredTarget = target
		fam.deferredArg = arg
		fam.deferredFlags = flags &^ FlagDefer
		fam.deferredArmed = true
		return StatusOK, nil
	}
	return fam.exitInternal(self, target, arg, flags)
}

// exitInternal performs the real, non-deferred exit: marks self exiting,
// falls back to main if target is defunct, and switches. It never returns
// to a live caller (spec.md section 4.5): once self's far is exitingFar,
// the save callback never re-saves this frame, so this call's own Go frame
// is abandoned, not resumed.
func (fam *Family) exitInternal(self *Coro, target *Coro, arg any, flags Flag) (any, error) {
	self.far = exitingFar
	self.deleteOnExit = flags.has(FlagDelete)

	if target.state.kind == stateDefunct {
		target = fam.main
	}

	// onSave's exiting branch (callback.go) performs the actual record
	// teardown once this switch really saves/transfers control away.
	return fam.Switch(target, arg)
}

// Duplicate implements spec.md section 4.5's duplicate: coro must be
// suspended and not main. The copy shares coro's SavedStack (refcounted)
// and starts in the same suspended, ready-to-switch-to state.
func (fam *Family) Duplicate(co *Coro) (*Coro, error) {
	if co.isMain() {
		return nil, fmt.Errorf("tealet: cannot duplicate the main coroutine")
	}
	if co.state.kind != stateSuspended {
		return nil, fmt.Errorf("tealet: duplicate requires a suspended coroutine")
	}
	cp := fam.newCoroRecord(co.far)
	cp.state = coroState{kind: stateSuspended, saved: co.state.saved.dup()}
	cp.extra = co.extra
	cp.stubRunFn = co.stubRunFn
	return cp, nil
}

// Fork implements spec.md section 4.5's fork: current's stack must be
// bounded. Like the original tealet_fork, it takes its snapshot via a fake
// switch to itself rather than a real handoff — but where the C original
// calls its low-level save routine directly, this port drives the real
// stack_switch primitive with scratchTarget pointing back at the caller
// (the same "lie about who is restoring, call the switch primitive from a
// dedicated nested frame" trick Create's bootstrap already uses). That
// keeps every SavedStack in this runtime shaped the same way, captured
// through the identical save/restore call sites, fork included.
//
// The consequence is the one genuinely fork-like property: this call
// returns twice. The first return is immediate, to the parent, with
// isChild false and other set to the new child. The second return happens
// whenever somebody later does Switch(child, ...): that restore resumes
// execution right back here, inside Fork's own restored call frame, this
// time with isChild true and other set to the parent.
func (fam *Family) Fork(flags ForkFlag) (isChild bool, other *Coro, err error) {
	cur := fam.current
	if !cur.far.isBounded() {
		return false, nil, StatusErrUnforkable
	}

	fam.scratchTarget = cur
	fam.scratchArg = nil
	fam.switchErr = nil
	fam.runSwitch()

	if fam.current != cur {
		// Second return: some later Switch(child, ...) restored the
		// snapshot taken below, landing back here as the child. cur is the
		// parent, preserved verbatim in the restored copy of this frame.
		return true, cur, nil
	}

	if fam.switchErr != nil {
		err := fam.switchErr
		fam.switchErr = nil
		return false, nil, err
	}

	ss := fam.forkSnapshot
	fam.forkSnapshot = nil

	child := fam.newCoroRecord(cur.far)
	child.state = coroState{kind: stateSuspended, saved: ss}
	child.extra = cur.extra

	if flags.has(ForkSwitch) {
		if _, err := fam.Switch(child, nil); err != nil {
			return false, nil, err
		}
	}
	return false, child, nil
}

// Delete implements spec.md section 4.5's delete: explicit teardown of a
// suspended, non-current coroutine. Undefined behavior (reported as an
// error here rather than silently corrupting state) if co is current.
func (fam *Family) Delete(co *Coro) error {
	if co == fam.current {
		return fmt.Errorf("tealet: delete of the current coroutine is undefined behavior")
	}
	if co.state.kind == stateSuspended {
		fam.releaseStack(co.state.saved)
	}
	if co.state.kind != stateDefunct {
		fam.unlinkAllCoros(&co.coroCore)
		fam.stats.ActiveCoroutines--
	}
	co.state = coroState{kind: stateDefunct}
	return nil
}
