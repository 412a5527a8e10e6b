package version

import (
	"testing"
)

func TestGetPrefersInjectedVersion(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = "v1.2.3"
	if got := Get(); got != "v1.2.3" {
		t.Errorf("Get() = %q, want v1.2.3", got)
	}
	if got := String("yomu"); got != "yomu version v1.2.3" {
		t.Errorf("String() = %q", got)
	}
}

func TestGetInfo(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = "v1.2.3"
	info := GetInfo("yomu")
	if info.Name != "yomu" {
		t.Errorf("Name = %q", info.Name)
	}
	if info.Version != "v1.2.3" {
		t.Errorf("Version = %q", info.Version)
	}
}

func TestGetFallsBackToDev(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = ""
	// Test binaries may or may not embed build info; either way the
	// resolved version is never empty.
	if got := Get(); got == "" {
		t.Error("Get() returned empty version")
	}
}
