package tealet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// TestCreateFailsCleanlyWhenAllocatorIsExhausted exercises the allocator
// failure path through MockAllocator (allocator_mock_test.go) instead of a hand-rolled
// wrapper (cmd/tealetbench/defunct.go uses the latter for its own §8
// scenario 5 demo; this test exercises the same go.uber.org/mock dependency
// the rest of this pack's test suites use, against Create's own error path
// in lifecycle.go).
func TestCreateFailsCleanlyWhenAllocatorIsExhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	alloc := NewMockAllocator(ctrl)
	alloc.EXPECT().Alloc(gomock.Any()).Return(nil, errors.New("test: injected allocator exhaustion")).AnyTimes()

	fam := Initialize(GrowsDown, WithAllocator(alloc))
	defer fam.Finalize()

	// Create's bootstrap needs one real allocation (the stub's own initial
	// save, lifecycle.go's stubTrampoline via onSave); with every Alloc call
	// failing, Create must report StatusErrMem and leave no trace of the
	// half-built coroutine behind rather than leaking a record main can
	// never reach.
	_, err := fam.Create(func(self *Coro, arg any) *Coro { return fam.MainCoro() })
	require.ErrorIs(t, err, StatusErrMem)
	require.Equal(t, 1, fam.GetStats().ActiveCoroutines, "the failed Create must not leave the half-built child counted")
	require.Equal(t, fam.main, fam.Current(), "a failed Create must not leave current pointed at the half-built child")
}

// TestGrowPendingToDefunctsRatherThanFailsDuringExit exercises the same
// mustNotFail contract as TestGrowPendingToDefunctsOwnerOnFailureWhenMustNotFail
// (pending_test.go) but through MockAllocator, confirming an
// out-of-memory grow during an exiting switch never turns into a returned
// error — it can only ever defunct the stuck owner (spec.md section 4.3's
// exiting-coroutine rule).
func TestGrowPendingToDefunctsRatherThanFailsDuringExit(t *testing.T) {
	ctrl := gomock.NewController(t)
	alloc := NewMockAllocator(ctrl)

	calls := 0
	alloc.EXPECT().Alloc(gomock.Any()).DoAndReturn(func(size int) ([]byte, error) {
		calls++
		if calls == 1 {
			return make([]byte, size), nil
		}
		return nil, errors.New("test: injected allocator exhaustion")
	}).AnyTimes()

	near, far, _ := fakeStack(t, 256)
	fam := &Family{dir: GrowsDown, alloc: alloc}
	owner := &coroCore{fam: fam}

	ss, err := newSavedStack(alloc, fam.dir, owner, near, far, near-32)
	require.NoError(t, err)
	owner.state = coroState{kind: stateSuspended, saved: ss}
	fam.pending.link(ss)

	require.NoError(t, fam.growPendingTo(boundedFar(far), nil, true))
	require.Equal(t, stateDefunct, owner.state.kind)
}
