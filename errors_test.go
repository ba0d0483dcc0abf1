package tealet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusOk(t *testing.T) {
	require.True(t, StatusOK.Ok())
	require.True(t, StatusSavedOnly.Ok())
	require.False(t, StatusErrMem.Ok())
	require.False(t, StatusErrDefunct.Ok())
	require.False(t, StatusErrUnforkable.Ok())
}

func TestStatusIsAnError(t *testing.T) {
	var err error = StatusErrMem
	require.True(t, errors.Is(err, StatusErrMem))
	require.False(t, errors.Is(err, StatusErrDefunct))
	require.NotEmpty(t, err.Error())
}

func TestStatusUnknownValueStillFormats(t *testing.T) {
	s := Status(99)
	require.Contains(t, s.Error(), "99")
}

func TestFlagHas(t *testing.T) {
	f := FlagDelete | FlagDefer
	require.True(t, f.has(FlagDelete))
	require.True(t, f.has(FlagDefer))
	require.False(t, FlagNone.has(FlagDelete))
}

func TestForkFlagHas(t *testing.T) {
	require.True(t, ForkSwitch.has(ForkSwitch))
	require.False(t, ForkDefault.has(ForkSwitch))
}
