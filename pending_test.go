package tealet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPendingListLinkUnlink(t *testing.T) {
	var p pendingList
	a := &savedStack{}
	b := &savedStack{}
	c := &savedStack{}

	p.link(a)
	p.link(b)
	p.link(c)
	require.True(t, a.inPending)
	require.True(t, b.inPending)
	require.True(t, c.inPending)

	// Linking the same entry twice must be a no-op, not duplicate it in
	// the list.
	p.link(b)
	count := 0
	for ss := p.head; ss != nil; ss = ss.pendNext {
		count++
	}
	require.Equal(t, 3, count)

	p.unlink(b)
	require.False(t, b.inPending)
	count = 0
	for ss := p.head; ss != nil; ss = ss.pendNext {
		require.NotSame(t, b, ss)
		count++
	}
	require.Equal(t, 2, count)

	// Unlinking something already out must be a no-op, not corrupt the
	// remaining list.
	p.unlink(b)
	count = 0
	for ss := p.head; ss != nil; ss = ss.pendNext {
		count++
	}
	require.Equal(t, 2, count)

	p.unlink(a)
	p.unlink(c)
	require.Nil(t, p.head)
}

func TestGrowPendingToGrowsPartialEntriesToTarget(t *testing.T) {
	near, far, backing := fakeStack(t, 256)
	for i := range backing {
		backing[i] = byte(i)
	}
	owner := &coroCore{}
	fam := &Family{alloc: GoAllocator{}, dir: GrowsDown}

	ss, err := newSavedStack(fam.alloc, fam.dir, owner, near, far, near-32)
	require.NoError(t, err)
	require.True(t, ss.isPartial())
	fam.pending.link(ss)

	require.NoError(t, fam.growPendingTo(boundedFar(far), nil, false))
	require.False(t, ss.isPartial())
	require.False(t, ss.inPending, "a fully grown entry must be unlinked from the pending list")
}

func TestGrowPendingToDefunctsOwnerOnFailureWhenMustNotFail(t *testing.T) {
	near, far, _ := fakeStack(t, 256)
	failing := &failingAllocator{}
	fam := &Family{dir: GrowsDown, alloc: failing}
	owner := &coroCore{fam: fam}

	ss, err := newSavedStack(failing, fam.dir, owner, near, far, near-32)
	require.NoError(t, err)
	owner.state = coroState{kind: stateSuspended, saved: ss}
	fam.pending.link(ss)

	require.NoError(t, fam.growPendingTo(boundedFar(far), nil, true))
	require.Equal(t, stateDefunct, owner.state.kind, "a grow failure with mustNotFail must defunct the owner instead of returning an error")
	require.False(t, ss.inPending)
}

// failingAllocator always fails Alloc after the first call, for testing the
// pending-walk's defunct-on-failure path without a generated mock.
type failingAllocator struct {
	calls int
}

func (a *failingAllocator) Alloc(size int) ([]byte, error) {
	a.calls++
	if a.calls == 1 {
		return GoAllocator{}.Alloc(size)
	}
	return nil, errAllocFail
}

func (a *failingAllocator) Free(b []byte) { GoAllocator{}.Free(b) }

var errAllocFail = &allocFailError{}

type allocFailError struct{}

func (*allocFailError) Error() string { return "test: allocator exhausted" }
