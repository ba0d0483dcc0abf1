//go:build amd64 || arm64

package stackswitch

func init() { Supported = true }

// rawSwitch is implemented in switch_amd64.s / switch_arm64.s.
func rawSwitch() uintptr
