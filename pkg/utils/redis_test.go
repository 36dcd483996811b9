package utils

import "testing"

func TestFixedWindowScriptCompiles(t *testing.T) {
	// Compile-time smoke test: the script should be initialized.
	if fixedWindowScript == nil {
		t.Fatalf("expected script to be initialized")
	}
}
