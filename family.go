package tealet

import (
	"fmt"
	"log/slog"
	"runtime"
)

// discriminator carries the save callback's decision from the SAVE half of
// a switch to its RESTORE half (spec.md section 4.4 / design notes: "the
// double-call callback ... carrying the decision (NOP/RESTORE/ERR) through
// the family scratch area rather than through a callback closure").
type discriminator uint8

const (
	discrimNOP discriminator = iota
	discrimRestore
	discrimErr
)

// Family is the root of one coroutine family: one main coroutine, its
// allocator, and every coroutine it has (transitively) created. A Family is
// pinned to the native thread that called Initialize (spec.md section 5);
// nothing here is safe to touch concurrently from a second thread.
type Family struct {
	alloc Allocator
	dir   Direction
	log   *slog.Logger

	main    *Coro
	current *Coro
	// lastSwitchSource records the outgoing coroutine of the most recent
	// restoring switch. The per-coroutine Coro.previous is set directly from
	// that outgoing coroutine in onRestore; nothing reads this field.
	lastSwitchSource *Coro

	pending pendingList

	// scratch call slots (spec.md section 3, "Family record"): a lifecycle
	// op populates these and hands control to the switch primitive, which
	// the save/restore callback reads back out.
	scratchTarget *Coro
	scratchArg    any
	discrim       discriminator
	switchErr     error

	// exit-via-FlagDefer stashes its target/arg/flags here instead of
	// switching immediately (spec.md section 4.5, "exit").
	deferredTarget *Coro
	deferredArg    any
	deferredFlags  Flag
	deferredArmed  bool

	allHead *coroCore // circular intrusive list of every coroutine, for stats walks
	nextID  uint64

	stats Stats

	stubs *StubRegistry

	pinned bool

	// forkSnapshot carries a duplicated SavedStack out of onSave's
	// self-switch branch (spec.md section 4.5's fork) back to Fork, across
	// the self-restore that would otherwise release the only reference.
	forkSnapshot *savedStack
}

// FamilyOption configures Initialize.
type FamilyOption func(*Family)

// WithAllocator overrides the default GoAllocator.
func WithAllocator(a Allocator) FamilyOption {
	return func(f *Family) { f.alloc = a }
}

// WithLogger overrides the default slog logger, slog.Default() (spec.md has
// no notion of logging; this is purely ambient). The Family stores the
// logger; no operation in this package writes to it.
func WithLogger(l *slog.Logger) FamilyOption {
	return func(f *Family) { f.log = l }
}

// WithStubRegistry attaches a bounded LRU cache of named stub templates
// (see stubregistry.go and SPEC_FULL.md's SUPPLEMENTED FEATURES).
func WithStubRegistry(r *StubRegistry) FamilyOption {
	return func(f *Family) { f.stubs = r }
}

// WithThreadPin locks the initializing goroutine to its current OS thread
// for the family's lifetime (spec.md section 5: "a family is pinned to the
// native thread that called initialize"). Every raw stack address this
// runtime hands to the assembly switch primitive is only ever meaningful on
// the one OS thread that produced it; without this, the Go scheduler is
// free to migrate the goroutine to a different thread between switches,
// silently violating that contract. Pair with NewLockedArenaAllocator when
// also using an ArenaAllocator, so neither the thread nor the memory backing
// saved stacks can move out from under a suspended coroutine.
func WithThreadPin() FamilyOption {
	return func(f *Family) {
		runtime.LockOSThread()
		f.pinned = true
	}
}

// Initialize implements spec.md section 4.5's "initialize": it allocates
// the main coroutine and its family record. The main coroutine starts with
// stack_far == Furthest and is immediately the current, running coroutine.
func Initialize(dir Direction, opts ...FamilyOption) *Family {
	fam := &Family{
		alloc: GoAllocator{},
		dir:   dir,
		log:   slog.Default(),
	}
	main := &Coro{coroCore: coroCore{id: 0, fam: fam, far: furthestFar, state: coroState{kind: stateRunning}}}
	main.listPrev, main.listNext = &main.coroCore, &main.coroCore
	fam.main = main
	fam.current = main
	fam.allHead = &main.coroCore
	fam.nextID = 1
	fam.stats.ActiveCoroutines = 1
	fam.stats.TotalCreated = 1

	for _, opt := range opts {
		opt(fam)
	}
	return fam
}

// Finalize implements spec.md section 4.5's "finalize": it releases the
// family record. It is undefined behavior to call this when current is not
// main, or with outstanding non-main coroutines still alive; both are
// checked here and reported rather than silently corrupting state, since
// this is a debug-friendly rewrite rather than a port of the C assertion
// discipline (spec.md section 7, misuse bullet 4).
func (fam *Family) Finalize() error {
	if fam.current != fam.main {
		return fmt.Errorf("tealet: Finalize called with current != main")
	}
	if fam.stats.ActiveCoroutines != 1 {
		return fmt.Errorf("tealet: Finalize called with %d coroutines still alive", fam.stats.ActiveCoroutines)
	}
	fam.main = nil
	fam.current = nil
	fam.allHead = nil
	if fam.pinned {
		runtime.UnlockOSThread()
		fam.pinned = false
	}
	return nil
}

// Pinned reports whether WithThreadPin locked this family to its creating
// OS thread.
func (fam *Family) Pinned() bool { return fam.pinned }

// Current returns the family's currently running coroutine.
func (fam *Family) Current() *Coro { return fam.current }

// MainCoro returns the family's main coroutine.
func (fam *Family) MainCoro() *Coro { return fam.main }

func (fam *Family) nextCoroID() uint64 {
	id := fam.nextID
	fam.nextID++
	return id
}

// linkAllCoros inserts c into the family's circular intrusive list.
func (fam *Family) linkAllCoros(c *coroCore) {
	head := fam.allHead
	tail := head.listPrev
	c.listPrev = tail
	c.listNext = head
	tail.listNext = c
	head.listPrev = c
}

// unlinkAllCoros removes c from the family's circular intrusive list.
func (fam *Family) unlinkAllCoros(c *coroCore) {
	if c.listNext == c {
		return
	}
	if fam.allHead == c {
		fam.allHead = c.listNext
	}
	c.listPrev.listNext = c.listNext
	c.listNext.listPrev = c.listPrev
	c.listPrev, c.listNext = nil, nil
}
