package tealet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestStubRegistryReuse mirrors cmd/tealetbench's scenario 2: duplicating
// one cached template runs each clone with its own argument.
func TestStubRegistryReuse(t *testing.T) {
	fam := Initialize(GrowsDown, WithThreadPin())
	defer fam.Finalize()

	reg, err := NewStubRegistry(fam, 8)
	require.NoError(t, err)
	require.Equal(t, 0, reg.Len())

	echo := func(self *Coro, arg any) *Coro {
		fam.Switch(fam.MainCoro(), arg)
		return fam.MainCoro()
	}

	s1, err := reg.GetOrCreate("echo")
	require.NoError(t, err)
	require.Equal(t, 1, reg.Len())
	s2, err := reg.GetOrCreate("echo")
	require.NoError(t, err)
	require.Equal(t, 1, reg.Len(), "a second GetOrCreate of the same name must reuse the cached template, not grow the cache")

	ra, err := fam.StubRun(s1, echo, "a")
	require.NoError(t, err)
	rb, err := fam.StubRun(s2, echo, "b")
	require.NoError(t, err)
	require.Equal(t, "a", ra)
	require.Equal(t, "b", rb)

	_, err = fam.Switch(s1, nil)
	require.NoError(t, err)
	_, err = fam.Switch(s2, nil)
	require.NoError(t, err)

	reg.Evict("echo")
	require.Equal(t, 0, reg.Len())
	require.Equal(t, 1, fam.GetStats().ActiveCoroutines, "main only, once both echoers exited and the template was evicted")
}

func TestStubRegistryLRUEvictsOldestOnOverflow(t *testing.T) {
	fam := Initialize(GrowsDown, WithThreadPin())
	defer fam.Finalize()

	reg, err := NewStubRegistry(fam, 2)
	require.NoError(t, err)

	_, err = reg.GetOrCreate("a")
	require.NoError(t, err)
	_, err = reg.GetOrCreate("b")
	require.NoError(t, err)
	require.Equal(t, 2, reg.Len())

	_, err = reg.GetOrCreate("c")
	require.NoError(t, err)
	require.Equal(t, 2, reg.Len(), "adding a third name to a size-2 registry must evict, not grow past the bound")
}
