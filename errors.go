package tealet

import "fmt"

// Status is the small, fixed set of integer results every tealet operation
// can return. It implements error so callers can use errors.Is, but the
// underlying integer values are part of the contract (SPEC_FULL.md, EXTERNAL
// INTERFACES) and must never be renumbered.
type Status int32

const (
	// StatusOK is returned by an operation that completed normally.
	StatusOK Status = 0
	// StatusSavedOnly is the "saved only" code: the native stack was saved
	// but no coroutine body has run yet. No operation in this package
	// returns it; Create and StubNew report a successful initial-stub save
	// as a nil error.
	StatusSavedOnly Status = 1
	// StatusErrMem means a save could not grow a SavedStack; the caller's
	// observable state is unchanged (see SPEC_FULL.md / spec.md section 7.1).
	StatusErrMem Status = -1
	// StatusErrDefunct means the switch target is permanently unusable.
	StatusErrDefunct Status = -2
	// StatusErrUnforkable means Fork was called on a coroutine whose stack
	// is not bounded (main, with StackFar still at Furthest).
	StatusErrUnforkable Status = -3
)

func (s Status) Error() string {
	switch s {
	case StatusOK:
		return "tealet: ok"
	case StatusSavedOnly:
		return "tealet: saved only, no run"
	case StatusErrMem:
		return "tealet: out of memory saving stack"
	case StatusErrDefunct:
		return "tealet: target coroutine is defunct"
	case StatusErrUnforkable:
		return "tealet: coroutine has no bounded stack to fork"
	default:
		return fmt.Sprintf("tealet: status %d", int32(s))
	}
}

// Ok reports whether s represents successful completion (0 or 1).
func (s Status) Ok() bool { return s == StatusOK || s == StatusSavedOnly }

// Flag composes options for Exit.
type Flag uint8

const (
	FlagNone Flag = 0
	// FlagDelete frees the exiting coroutine's record once the save
	// callback observes its saved stack cleared.
	FlagDelete Flag = 1 << 0
	// FlagDefer only records the exit's target/arg/flags on the family
	// and returns StatusOK immediately, so the caller can unwind its own
	// stack frames before the real exit happens. stubTrampoline performs
	// the stashed exit once the run-function returns.
	FlagDefer Flag = 1 << 1
)

func (f Flag) has(bit Flag) bool { return f&bit != 0 }

// ForkFlag composes options for Fork.
type ForkFlag uint8

const (
	ForkDefault ForkFlag = 0
	// ForkSwitch makes Fork switch into the child immediately instead of
	// returning to the parent with the child merely created.
	ForkSwitch ForkFlag = 1 << 0
)

func (f ForkFlag) has(bit ForkFlag) bool { return f&bit != 0 }

// LifePhase is the coarse classification returned by Coro.Status: the three
// states visible to the outside world, collapsing the six internal states
// of the lifecycle state machine (section 4.7) that aren't separately
// observable from outside a switch.
type LifePhase int32

const (
	PhaseActive  LifePhase = 0
	PhaseExited  LifePhase = 1
	PhaseDefunct LifePhase = -2
)

func (p LifePhase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseExited:
		return "exited"
	case PhaseDefunct:
		return "defunct"
	default:
		return "unknown"
	}
}
