package manifest

import (
	"path/filepath"
	"testing"
)

func TestLibraryPathBuildsCanonicalLayout(t *testing.T) {
	got, err := LibraryPath("com.mojang:brigadier:1.0.18")
	if err != nil {
		t.Fatalf("LibraryPath: %v", err)
	}
	want := filepath.Join("com", "mojang", "brigadier", "1.0.18", "brigadier-1.0.18.jar")
	if got != want {
		t.Errorf("LibraryPath() = %q, want %q", got, want)
	}
}

func TestLibraryPathIncludesClassifier(t *testing.T) {
	got, err := LibraryPath("org.lwjgl:lwjgl:3.3.1:natives-linux")
	if err != nil {
		t.Fatalf("LibraryPath: %v", err)
	}
	want := filepath.Join("org", "lwjgl", "lwjgl", "3.3.1", "lwjgl-3.3.1-natives-linux.jar")
	if got != want {
		t.Errorf("LibraryPath() = %q, want %q", got, want)
	}
}

func TestLibraryPathRejectsMalformedCoordinate(t *testing.T) {
	if _, err := LibraryPath("too:short"); err == nil {
		t.Errorf("LibraryPath(\"too:short\") succeeded, want error")
	}
}

func TestLibraryMavenURLUsesDefaultRepoWhenEmpty(t *testing.T) {
	got, err := LibraryMavenURL("", "com.mojang:brigadier:1.0.18")
	if err != nil {
		t.Fatalf("LibraryMavenURL: %v", err)
	}
	want := "https://libraries.minecraft.net/com/mojang/brigadier/1.0.18/brigadier-1.0.18.jar"
	if got != want {
		t.Errorf("LibraryMavenURL() = %q, want %q", got, want)
	}
}

func TestLibraryMavenURLAppendsMissingSlash(t *testing.T) {
	got, err := LibraryMavenURL("https://maven.fabricmc.net", "net.fabricmc:fabric-loader:0.15.11")
	if err != nil {
		t.Fatalf("LibraryMavenURL: %v", err)
	}
	want := "https://maven.fabricmc.net/net/fabricmc/fabric-loader/0.15.11/fabric-loader-0.15.11.jar"
	if got != want {
		t.Errorf("LibraryMavenURL() = %q, want %q", got, want)
	}
}
