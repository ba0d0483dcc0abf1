package stackswitch

import (
	"runtime"
	"testing"
)

// TestSupportedMatchesBuildTarget does not drive an actual switch (that
// would require a live coroutine family and a real call into rawSwitch);
// it only pins down the contract callers rely on: Supported is true exactly
// on the architectures switch_asm.go is built for (amd64, arm64), whose
// init sets it, and stays false where switch_unsupported.go is built.
func TestSupportedMatchesBuildTarget(t *testing.T) {
	want := runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64"
	if Supported != want {
		t.Fatalf("Supported = %v on %s, want %v", Supported, runtime.GOARCH, want)
	}
	if !Supported {
		t.Skip("no rawSwitch implementation for this architecture; Family.Initialize callers must check Supported themselves")
	}
}

func TestOpValues(t *testing.T) {
	if OpSave == OpRestore {
		t.Fatal("OpSave and OpRestore must be distinct, the callback dispatches on this")
	}
}
