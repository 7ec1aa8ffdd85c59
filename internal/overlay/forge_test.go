package overlay

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/mrnavastar/launchcore/internal/resolve"
)

// installFakeJava puts a shell script named "java" ahead of the real one on
// PATH so runProcessors can be exercised without a JDK: it only needs to
// exit 0, since requireWithinDir checks the declared output path, not that
// anything was actually written there.
func installFakeJava(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake java shim is a POSIX shell script")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "java")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write fake java: %v", err)
	}
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}

func writeTestZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()
	w := zip.NewWriter(f)
	for name, content := range files {
		entry, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip.Create(%q): %v", name, err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatalf("write(%q): %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip.Close: %v", err)
	}
}

func TestLibraryFileErrorsWhenNotYetDownloaded(t *testing.T) {
	e := &ForgeEngine{libraries: t.TempDir()}
	if _, err := e.libraryFile("net.minecraftforge:installertools:1.3.0"); err == nil {
		t.Error("libraryFile() for an undownloaded coordinate succeeded, want error")
	}
}

func TestLibraryFileResolvesAgainstSharedLibraryRoot(t *testing.T) {
	librariesRoot := t.TempDir()
	jarPath := filepath.Join(librariesRoot, "net", "minecraftforge", "installertools", "1.3.0", "installertools-1.3.0.jar")
	writeTestZip(t, jarPath, map[string]string{"dummy": "x"})

	e := &ForgeEngine{libraries: librariesRoot}
	got, err := e.libraryFile("net.minecraftforge:installertools:1.3.0")
	if err != nil {
		t.Fatalf("libraryFile: %v", err)
	}
	if got != jarPath {
		t.Errorf("libraryFile() = %q, want %q", got, jarPath)
	}
}

func TestRunProcessorsSkipsWhenAlreadyMarked(t *testing.T) {
	cacheRoot := t.TempDir()
	buildDir := filepath.Join(cacheRoot, "47.2.0")
	writeTestZip(t, filepath.Join(buildDir, "installer.jar"), map[string]string{"dummy": "x"})
	if err := os.WriteFile(filepath.Join(buildDir, ".processed"), []byte("ok"), 0o644); err != nil {
		t.Fatalf("WriteFile marker: %v", err)
	}

	// libraries is deliberately left empty: if RunProcessors tried to
	// actually run a processor here it would fail resolving a jar, proving
	// the marker short-circuit ran instead.
	e := &ForgeEngine{cacheRoot: cacheRoot, resolver: resolve.NewResolver(nil)}
	if err := e.RunProcessors(context.Background(), "1.20.1", "47.2.0"); err != nil {
		t.Fatalf("RunProcessors() = %v, want nil (already processed)", err)
	}
}

func TestRunProcessorsExecutesEachProcessorAgainstSharedLibraryRoot(t *testing.T) {
	installFakeJava(t)

	librariesRoot := t.TempDir()
	processorJar := filepath.Join(librariesRoot, "net", "minecraftforge", "installertools", "1.3.0", "installertools-1.3.0.jar")
	writeTestZip(t, processorJar, map[string]string{
		"META-INF/MANIFEST.MF": "Manifest-Version: 1.0\nMain-Class: net.minecraftforge.installertools.Main\n",
	})

	cacheRoot := t.TempDir()
	buildDir := filepath.Join(cacheRoot, "47.2.0")
	installProfile := `{
		"version": "1.20.1-forge-47.2.0",
		"versionInfo": {},
		"data": {},
		"libraries": [],
		"processors": [
			{
				"jar": "net.minecraftforge:installertools:1.3.0",
				"classpath": [],
				"args": ["--task", "DOWNLOAD_MOJMAPS"],
				"outputs": {"OUT": "{ROOT}/out.txt"}
			}
		]
	}`
	writeTestZip(t, filepath.Join(buildDir, "installer.jar"), map[string]string{
		"install_profile.json": installProfile,
		"version.json":         `{"id":"1.20.1-forge-47.2.0"}`,
	})

	e := &ForgeEngine{cacheRoot: cacheRoot, libraries: librariesRoot, resolver: resolve.NewResolver(nil)}
	if err := e.RunProcessors(context.Background(), "1.20.1", "47.2.0"); err != nil {
		t.Fatalf("RunProcessors: %v", err)
	}
	if _, err := os.Stat(filepath.Join(buildDir, ".processed")); err != nil {
		t.Errorf("RunProcessors did not leave a marker file: %v", err)
	}
}

func TestRunProcessorsFailsWhenProcessorLibraryNotDownloaded(t *testing.T) {
	installFakeJava(t)

	cacheRoot := t.TempDir()
	buildDir := filepath.Join(cacheRoot, "47.2.0")
	installProfile := `{
		"version": "1.20.1-forge-47.2.0",
		"versionInfo": {},
		"processors": [{"jar": "net.minecraftforge:installertools:1.3.0", "args": []}]
	}`
	writeTestZip(t, filepath.Join(buildDir, "installer.jar"), map[string]string{
		"install_profile.json": installProfile,
		"version.json":         `{"id":"1.20.1-forge-47.2.0"}`,
	})

	// No library root population at all: this is the bug the pipeline
	// restructuring fixed, caught here instead of failing deep inside
	// jarMainClass with a confusing "no such file" error.
	e := &ForgeEngine{cacheRoot: cacheRoot, libraries: t.TempDir(), resolver: resolve.NewResolver(nil)}
	if err := e.RunProcessors(context.Background(), "1.20.1", "47.2.0"); err == nil {
		t.Error("RunProcessors() with an undownloaded processor jar succeeded, want error")
	}
}

func TestRequireWithinDirRejectsEscapingPath(t *testing.T) {
	root := t.TempDir()
	if err := requireWithinDir(filepath.Join(root, "..", "escaped.txt"), root); err == nil {
		t.Error("requireWithinDir() for a path outside root succeeded, want error")
	}
}

func TestRequireWithinDirAcceptsNestedPath(t *testing.T) {
	root := t.TempDir()
	if err := requireWithinDir(filepath.Join(root, "nested", "file.txt"), root); err != nil {
		t.Errorf("requireWithinDir() for a nested path = %v, want nil", err)
	}
}

func TestAppliesToClientDefaultsTrueWhenSidesEmpty(t *testing.T) {
	if !appliesToClient(nil) {
		t.Error("appliesToClient(nil) = false, want true")
	}
}

func TestAppliesToClientFalseWhenServerOnly(t *testing.T) {
	if appliesToClient([]string{"server"}) {
		t.Error("appliesToClient([server]) = true, want false")
	}
}
