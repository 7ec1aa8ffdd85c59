package launch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mrnavastar/launchcore/internal/catalog"
	"github.com/mrnavastar/launchcore/internal/config"
	"github.com/mrnavastar/launchcore/internal/resolve"
	"github.com/mrnavastar/launchcore/internal/supervisor"
)

func TestLoadInstanceConfigReadsInstanceJSON(t *testing.T) {
	paths := config.NewPaths(t.TempDir())
	instanceDir := paths.InstanceDir("Survival")
	if err := os.MkdirAll(instanceDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	cfg := catalog.InstanceConfig{InstanceName: "Survival", VanillaVersion: "1.21"}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(instanceDir, "instance.json"), data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	e := &Engine{paths: paths}
	got, err := e.loadInstanceConfig("Survival")
	if err != nil {
		t.Fatalf("loadInstanceConfig: %v", err)
	}
	if got.VanillaVersion != "1.21" {
		t.Errorf("VanillaVersion = %q, want 1.21", got.VanillaVersion)
	}
}

func TestLoadInstanceConfigMissingReturnsNotFound(t *testing.T) {
	paths := config.NewPaths(t.TempDir())
	e := &Engine{paths: paths}
	if _, err := e.loadInstanceConfig("Nonexistent"); err == nil {
		t.Error("loadInstanceConfig() for a missing instance succeeded, want error")
	}
}

func TestResolveJVMPathInstanceOverrideWins(t *testing.T) {
	e := &Engine{}
	got := e.resolveJVMPath(context.Background(), "/custom/java", &resolve.ResolvedProfile{JavaComponent: "java-runtime-gamma"})
	if got != "/custom/java" {
		t.Errorf("resolveJVMPath() = %q, want the instance override", got)
	}
}

func TestResolveJVMPathFallsBackToSettingsOverride(t *testing.T) {
	e := &Engine{settings: config.Settings{JvmPathOverride: "/opt/java21/bin/java"}}
	got := e.resolveJVMPath(context.Background(), "", &resolve.ResolvedProfile{})
	if got != "/opt/java21/bin/java" {
		t.Errorf("resolveJVMPath() = %q, want the launcher-wide override", got)
	}
}

func TestResolveJVMPathFinalFallbackIsJavaOnPath(t *testing.T) {
	e := &Engine{}
	got := e.resolveJVMPath(context.Background(), "", &resolve.ResolvedProfile{})
	if got != "java" {
		t.Errorf("resolveJVMPath() = %q, want java", got)
	}
}

func TestWrapReleaseOnExitAlwaysReleasesAndCallsInner(t *testing.T) {
	paths := config.NewPaths(t.TempDir())
	if err := paths.EnsureAll(); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	cat := catalog.New(paths)
	if err := cat.CreateInstance(catalog.InstanceConfig{InstanceName: "Survival"}); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	if err := cat.Acquire("Survival"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	innerCalled := false
	wrapped := wrapReleaseOnExit(supervisor.Callbacks{OnExited: func(code *int) { innerCalled = true }}, cat, "Survival")
	wrapped.OnExited(nil)

	if !innerCalled {
		t.Error("wrapped OnExited did not call the inner callback")
	}
	// a second Acquire only succeeds if Release actually ran
	if err := cat.Acquire("Survival"); err != nil {
		t.Errorf("Acquire after wrapped exit callback: %v, want the lock released", err)
	}
}
