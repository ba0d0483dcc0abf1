//go:build unix

package tealet

import "golang.org/x/sys/unix"

// NewLockedArenaAllocator behaves like NewArenaAllocator but backs the arena
// with an anonymous mmap region that is mlock'd into physical memory, so
// saved-stack bytes backing a suspended coroutine are never paged out from
// under it (spec.md section 5 pairs a family with one native thread for
// life; a locked arena extends that guarantee to the memory the thread's
// saved stacks live in). Pair with WithThreadPin. Grounded on
// yaofei517-go's use of golang.org/x/sys/unix for raw mmap/mlock syscalls;
// this package has no arena-as-execution-stack use (see DESIGN.md for why
// that original idea was dropped) — the arena here only ever backs
// SavedStack chunk bytes, never a live stack pointer.
//
// The returned release func munlocks and munmaps the region; callers must
// call it once every coroutine backed by this allocator has been released
// (normally at Family.Finalize time).
func NewLockedArenaAllocator(size int) (arena *ArenaAllocator, release func() error, err error) {
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, err
	}
	if err := unix.Mlock(b); err != nil {
		_ = unix.Munmap(b)
		return nil, nil, err
	}

	a := &ArenaAllocator{arena: b}
	a.head = a.segmentAt(0)
	*a.head = heapSegment{segmentSize: uintptr(size)}

	release = func() error {
		_ = unix.Munlock(b)
		return unix.Munmap(b)
	}
	return a, release, nil
}
