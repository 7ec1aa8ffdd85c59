package javaruntime

import (
	"runtime"
	"testing"
)

func TestPlatformKeyMatchesHostGOOS(t *testing.T) {
	key := platformKey()
	switch runtime.GOOS {
	case "linux":
		if key != "linux" && key != "linux-i386" {
			t.Errorf("platformKey() = %q on linux, want linux or linux-i386", key)
		}
	case "darwin":
		if key != "mac-os" && key != "mac-os-arm64" {
			t.Errorf("platformKey() = %q on darwin, want mac-os or mac-os-arm64", key)
		}
	case "windows":
		if key != "windows-x64" && key != "windows-x86" {
			t.Errorf("platformKey() = %q on windows, want windows-x64 or windows-x86", key)
		}
	default:
		if key != runtime.GOOS {
			t.Errorf("platformKey() = %q on unmapped GOOS %q, want it passed through unchanged", key, runtime.GOOS)
		}
	}
}
