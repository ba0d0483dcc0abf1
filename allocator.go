package tealet

import (
	"fmt"
	"sync"
	"unsafe"
)

// Allocator is the pluggable memory vtable every Family is configured with
// (spec.md section 3, "Family record"). It must behave like a reentrant
// malloc/free pair with respect to itself: the runtime calls it from
// whatever coroutine happens to be saving or restoring, never concurrently
// from more than one native thread (section 5).
type Allocator interface {
	Alloc(size int) ([]byte, error)
	Free(b []byte)
}

// GoAllocator is the default Allocator: it defers to the Go runtime's own
// allocator and garbage collector. This is the right choice for almost every
// caller; ArenaAllocator below exists for programs that want a bounded,
// deterministic memory budget for saved stacks.
type GoAllocator struct{}

func (GoAllocator) Alloc(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("tealet: negative allocation size %d", size)
	}
	return make([]byte, size), nil
}

func (GoAllocator) Free([]byte) {
	// The garbage collector reclaims it; nothing to do.
}

// heapSegment is a node in ArenaAllocator's best-fit free list, placed
// in-band at the front of every block it describes. Adapted from the
// teacher's kmalloc/kfree (src/go/mazarin/heap.go): same best-fit-with-split
// search and coalesce-on-free policy, rehomed onto a single Go-allocated
// arena instead of a linker-provided physical memory range, since this
// runtime has no MMU to manage pages with.
type heapSegment struct {
	next, prev  *heapSegment
	allocated   bool
	segmentSize uintptr // total size of this segment including the header
}

const heapAlignment = 16

var segHeaderSize = unsafe.Sizeof(heapSegment{})

// ArenaAllocator carves SavedStack chunks out of one fixed-size backing
// array using a best-fit free list, the same way a kernel heap carves
// kernel objects out of a fixed physical region. Alloc returns a plain
// error (not a Status, since Allocator is a generic vtable) once the arena
// is exhausted; it never grows.
type ArenaAllocator struct {
	mu    sync.Mutex
	arena []byte
	head  *heapSegment
}

// NewArenaAllocator reserves size bytes up front and carves SavedStack
// chunks out of them with a first-fit-by-best-size search, never touching
// the Go heap again after construction.
func NewArenaAllocator(size int) *ArenaAllocator {
	a := &ArenaAllocator{arena: make([]byte, size)}
	a.head = a.segmentAt(0)
	*a.head = heapSegment{segmentSize: uintptr(size)}
	return a
}

func (a *ArenaAllocator) segmentAt(offset uintptr) *heapSegment {
	return (*heapSegment)(unsafe.Pointer(&a.arena[offset]))
}

func (a *ArenaAllocator) offsetOf(seg *heapSegment) uintptr {
	return uintptr(unsafe.Pointer(seg)) - uintptr(unsafe.Pointer(&a.arena[0]))
}

func (a *ArenaAllocator) Alloc(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("tealet: negative allocation size %d", size)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	total := uintptr(size) + segHeaderSize
	if rem := total % heapAlignment; rem != 0 {
		total += heapAlignment - rem
	}

	var best *heapSegment
	var bestSlack uintptr = ^uintptr(0)
	for cur := a.head; cur != nil; cur = cur.next {
		if cur.allocated || cur.segmentSize < total {
			continue
		}
		slack := cur.segmentSize - total
		if slack < bestSlack {
			best, bestSlack = cur, slack
		}
	}
	if best == nil {
		return nil, fmt.Errorf("tealet: arena exhausted allocating %d bytes", size)
	}

	// Only split off a new free segment if it would itself be usable.
	if bestSlack > segHeaderSize {
		newSeg := a.segmentAt(a.offsetOf(best) + total)
		*newSeg = heapSegment{
			next:        best.next,
			prev:        best,
			segmentSize: best.segmentSize - total,
		}
		if newSeg.next != nil {
			newSeg.next.prev = newSeg
		}
		best.next = newSeg
		best.segmentSize = total
	}
	best.allocated = true

	dataOff := a.offsetOf(best) + segHeaderSize
	return a.arena[dataOff : dataOff+uintptr(size) : dataOff+uintptr(size)], nil
}

func (a *ArenaAllocator) Free(b []byte) {
	if len(b) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	dataOff := uintptr(unsafe.Pointer(&b[0])) - uintptr(unsafe.Pointer(&a.arena[0]))
	seg := a.segmentAt(dataOff - segHeaderSize)
	seg.allocated = false

	for seg.prev != nil && !seg.prev.allocated {
		prev := seg.prev
		prev.next = seg.next
		prev.segmentSize += seg.segmentSize
		if seg.next != nil {
			seg.next.prev = prev
		}
		seg = prev
	}
	for seg.next != nil && !seg.next.allocated {
		next := seg.next
		seg.segmentSize += next.segmentSize
		seg.next = next.next
		if next.next != nil {
			next.next.prev = seg
		}
	}
}
