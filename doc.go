// Package tealet implements a user-space coroutine runtime built on stack
// slicing: a single native thread's execution stack is shared by many
// cooperatively-scheduled coroutines, and only the portion of the stack
// that actually overlaps between an outgoing and an incoming coroutine is
// copied to and from the heap. A suspended coroutine's memory footprint is
// therefore proportional to the stack it has actually used, not to a
// pre-reserved upper bound.
//
// A Family groups one main coroutine with every coroutine it (transitively)
// creates. All coroutines in a family are pinned to the native thread that
// called Initialize; switching between coroutines of different families is
// undefined behavior, as is migrating a coroutine across threads, per-thread
// preemption, or symmetric multi-coroutine execution on one thread. None of
// that is implemented here; see spec.md and SPEC_FULL.md section 1.
package tealet
