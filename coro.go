package tealet

import "unsafe"

// runKind tags the three-valued nature of saved_stack (spec.md section 3):
// NULL (running), the reserved defunct sentinel, or a real SavedStack. This
// is the explicit sum type spec.md's design notes ask for in place of the
// sentinel-pointer trick.
type runKind uint8

const (
	stateRunning runKind = iota
	stateDefunct
	stateSuspended
)

type coroState struct {
	kind  runKind
	saved *savedStack
}

// coroCore is the non-generic part of a coroutine record: the bookkeeping
// the slicing algorithm needs regardless of what user payload a Coro
// carries. Splitting it out lets savedStack hold an owner back-reference
// (needed so the pending-list walk can mark the right coroutine defunct,
// spec.md section 4.3's grow-failure edge case) without entangling that
// with the public Coro type.
type coroCore struct {
	id  uint64
	fam *Family
	far stackFar

	state        coroState
	deleteOnExit bool

	// intrusive circular list of every coroutine in the family, for the
	// statistics walk (spec.md section 4.6); nil fam.allHead means empty.
	listPrev, listNext *coroCore
}

func (c *coroCore) isMain() bool { return c == &c.fam.main.coroCore }

// coroFromCore recovers the owning *Coro from its embedded coroCore, used
// by the all-coroutines list walk (stats.go) which only ever stores
// *coroCore links. Valid because coroCore is Coro's first field.
func coroFromCore(c *coroCore) *Coro { return (*Coro)(unsafe.Pointer(c)) }

// markDefunct implements the DEFUNCT transition of the state machine
// (spec.md section 4.7): the SavedStack (if any) is defunctified and the
// coroutine can never be entered again.
func (c *coroCore) markDefunct() {
	if c.state.kind == stateSuspended && c.state.saved != nil {
		c.fam.defunctStack(c.state.saved)
	}
	c.state = coroState{kind: stateDefunct}
}

// Coro is one coroutine: either the family's main coroutine or one created
// with New, Create, Duplicate, Fork, or StubNew.
type Coro struct {
	coroCore
	extra    any
	previous *Coro // "coroutine that woke me" (spec.md section 5, tealet_previous)

	// stubRunFn is the entry point dispatched the first time this
	// coroutine is really switched into; set by New/Create/StubRun
	// (lifecycle.go). Nil only between StubNew and StubRun.
	stubRunFn RunFunc
}

// Main returns the main coroutine of c's family.
func (c *Coro) Main() *Coro { return c.fam.main }

// Family returns the family c belongs to.
func (c *Coro) Family() *Family { return c.fam }

// Extra returns the opaque per-coroutine payload (spec.md section 3,
// "extra" data slot), modeled as Go's natural any rather than a
// fixed-size C struct slot, since every caller here is Go and doesn't need
// a stable binary layout for it.
func (c *Coro) Extra() any { return c.extra }

// SetExtra replaces the opaque per-coroutine payload.
func (c *Coro) SetExtra(v any) { c.extra = v }

// Previous returns the coroutine that most recently switched into c.
func (c *Coro) Previous() *Coro { return c.previous }

// Status classifies c per spec.md section 4.6.
func (c *Coro) Status() LifePhase {
	switch {
	case c.far.isExiting():
		return PhaseExited
	case c.state.kind == stateDefunct:
		return PhaseDefunct
	default:
		return PhaseActive
	}
}

// IsMain reports whether c is its family's main coroutine.
func (c *Coro) IsMain() bool { return c.isMain() }
