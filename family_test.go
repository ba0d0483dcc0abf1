package tealet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitializeStartsWithOneActiveMainCoroutine(t *testing.T) {
	fam := Initialize(GrowsDown)
	defer fam.Finalize()

	require.Equal(t, fam.main, fam.Current())
	require.Equal(t, fam.main, fam.MainCoro())
	require.True(t, fam.main.IsMain())
	require.Equal(t, 1, fam.GetStats().ActiveCoroutines)
}

func TestFinalizeRejectsNonMainCurrent(t *testing.T) {
	fam := Initialize(GrowsDown)
	child, err := fam.Create(func(self *Coro, arg any) *Coro { return fam.MainCoro() })
	require.NoError(t, err)
	fam.current = child // simulate being mid-switch without unwinding cleanly

	err = fam.Finalize()
	require.Error(t, err)

	// Restore and clean up properly so nothing here depends on Finalize's
	// internal teardown order beyond what this test is actually checking.
	fam.current = fam.main
	require.NoError(t, fam.Delete(child))
	require.NoError(t, fam.Finalize())
}

func TestFinalizeRejectsOutstandingCoroutines(t *testing.T) {
	fam := Initialize(GrowsDown)
	_, err := fam.Create(func(self *Coro, arg any) *Coro { return fam.MainCoro() })
	require.NoError(t, err)

	err = fam.Finalize()
	require.Error(t, err)
}

func TestWithThreadPinSetsPinnedAndFinalizeUnpins(t *testing.T) {
	fam := Initialize(GrowsDown, WithThreadPin())
	require.True(t, fam.Pinned())
	require.NoError(t, fam.Finalize())
	require.False(t, fam.Pinned())
}

// TestPingPong mirrors cmd/tealetbench's scenario 1: a worker coroutine
// yields a 0..9 counter back to main ten times, then exits.
func TestPingPong(t *testing.T) {
	fam := Initialize(GrowsDown, WithThreadPin())
	defer fam.Finalize()

	worker := func(self *Coro, arg any) *Coro {
		for i := 0; i < 10; i++ {
			if _, err := fam.Switch(fam.MainCoro(), i); err != nil {
				return fam.MainCoro()
			}
		}
		return fam.MainCoro()
	}

	w, first, err := fam.New(worker, nil)
	require.NoError(t, err)

	var seq []int
	seq = append(seq, first.(int))
	for w.Status() == PhaseActive {
		v, err := fam.Switch(w, nil)
		require.NoError(t, err)
		if w.Status() != PhaseActive {
			break
		}
		seq = append(seq, v.(int))
	}

	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, seq)
	require.Equal(t, PhaseExited, w.Status())
	require.Equal(t, 1, fam.GetStats().ActiveCoroutines, "the exited worker with FlagDelete must be unlinked")
}

func TestSwitchToSelfIsANoop(t *testing.T) {
	fam := Initialize(GrowsDown, WithThreadPin())
	defer fam.Finalize()

	v, err := fam.Switch(fam.MainCoro(), "unchanged")
	require.NoError(t, err)
	require.Equal(t, "unchanged", v)
}

func TestSwitchAcrossFamiliesIsRejected(t *testing.T) {
	famA := Initialize(GrowsDown, WithThreadPin())
	defer famA.Finalize()
	famB := Initialize(GrowsDown)
	defer famB.Finalize()

	_, err := famA.Switch(famB.MainCoro(), nil)
	require.Error(t, err)
}

func TestSwitchToDefunctReturnsStatusErrDefunct(t *testing.T) {
	fam := Initialize(GrowsDown, WithThreadPin())
	defer fam.Finalize()

	stub, err := fam.StubNew()
	require.NoError(t, err)
	require.NoError(t, fam.Delete(stub))

	_, err = fam.Switch(stub, nil)
	require.ErrorIs(t, err, StatusErrDefunct)
}
