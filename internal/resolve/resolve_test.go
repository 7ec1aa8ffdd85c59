package resolve

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mrnavastar/launchcore/internal/manifest"
)

func testResolver() *Resolver {
	return NewResolver(manifest.NewVanillaSource(nil, nil))
}

func TestFlattenPopulatesScalarFields(t *testing.T) {
	desc := &manifest.VersionDescriptor{
		ID:        "1.21",
		Type:      "release",
		MainClass: "net.minecraft.client.main.Main",
		Assets:    "1.21",
		Downloads: &manifest.GameDownloads{
			Client: manifest.DownloadMetadata{URL: "https://client/1.21.jar", SHA1: "def", Size: 10},
		},
	}

	profile, err := testResolver().Flatten(context.Background(), desc)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if profile.VersionID != "1.21" || profile.VersionType != "release" {
		t.Errorf("scalar fields not copied: %+v", profile)
	}
	if profile.ClientJar.RemoteURL != "https://client/1.21.jar" {
		t.Errorf("ClientJar.RemoteURL = %q", profile.ClientJar.RemoteURL)
	}
	if profile.ClientJar.LocalPath != "versions/1.21/1.21.jar" {
		t.Errorf("ClientJar.LocalPath = %q", profile.ClientJar.LocalPath)
	}
}

func TestFlattenLibrariesSkipsDeniedRules(t *testing.T) {
	desc := &manifest.VersionDescriptor{
		ID: "1.21",
		Libraries: []manifest.Library{
			{
				Name:      "com.mojang:brigadier:1.0.18",
				Downloads: manifest.LibraryDownloads{Artifact: &manifest.Artifact{DownloadMetadata: manifest.DownloadMetadata{URL: "https://libs/brigadier.jar"}}},
			},
			{
				Name:      "com.example:windows-only:1.0",
				Downloads: manifest.LibraryDownloads{Artifact: &manifest.Artifact{DownloadMetadata: manifest.DownloadMetadata{URL: "https://libs/win.jar"}}},
				Rules:     []manifest.Rule{{Action: "allow", Type: manifest.RuleTypeOS, OS: map[string]string{"name": "windows"}}},
			},
		},
	}

	profile, err := testResolver().Flatten(context.Background(), desc)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if len(profile.Libraries) != 1 {
		t.Fatalf("len(Libraries) = %d, want 1 (windows-only library should be denied on this host)", len(profile.Libraries))
	}
	if profile.Libraries[0].Coordinate != "com.mojang:brigadier:1.0.18" {
		t.Errorf("unexpected survivor: %+v", profile.Libraries[0])
	}
}

func TestFlattenLibrariesTagsNativeCoordinateAsNativeRole(t *testing.T) {
	desc := &manifest.VersionDescriptor{
		ID: "1.21",
		Libraries: []manifest.Library{
			{
				Name:      "org.lwjgl:lwjgl:3.3.1:natives-linux",
				Downloads: manifest.LibraryDownloads{Artifact: &manifest.Artifact{DownloadMetadata: manifest.DownloadMetadata{URL: "https://libs/lwjgl-natives.jar"}}},
			},
		},
	}
	profile, err := testResolver().Flatten(context.Background(), desc)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if len(profile.Libraries) != 1 || profile.Libraries[0].Role != RoleNative {
		t.Fatalf("expected a single RoleNative library, got %+v", profile.Libraries)
	}
}

func TestFlattenLibrariesBareCoordinateUsesURLFallback(t *testing.T) {
	desc := &manifest.VersionDescriptor{
		ID: "1.21",
		Libraries: []manifest.Library{
			{Name: "net.minecraftforge:forge:1.21-1.0", URL: "https://maven.minecraftforge.net/"},
		},
	}
	profile, err := testResolver().Flatten(context.Background(), desc)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if len(profile.Libraries) != 1 {
		t.Fatalf("len(Libraries) = %d, want 1", len(profile.Libraries))
	}
	want := "https://maven.minecraftforge.net/net/minecraftforge/forge/1.21-1.0/forge-1.21-1.0.jar"
	if profile.Libraries[0].RemoteURL != want {
		t.Errorf("RemoteURL = %q, want %q", profile.Libraries[0].RemoteURL, want)
	}
}

func TestFlattenArgumentsDropsConditionalArgsWhoseRulesDeny(t *testing.T) {
	raw := `{
		"id": "1.21",
		"arguments": {
			"jvm": [
				"-Xmx2G",
				{"rules": [{"action": "allow", "os": {"name": "windows"}}], "value": "-Dwindows.only=true"}
			],
			"game": []
		}
	}`
	var desc manifest.VersionDescriptor
	if err := json.Unmarshal([]byte(raw), &desc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	profile, err := testResolver().Flatten(context.Background(), &desc)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if len(profile.JVMArgs) != 1 || profile.JVMArgs[0].Value != "-Xmx2G" {
		t.Errorf("JVMArgs = %+v, want only the literal -Xmx2G survived (windows-only conditional denied on this host)", profile.JVMArgs)
	}
}

func TestFlattenLegacyArgumentsSplitsOnWhitespace(t *testing.T) {
	desc := &manifest.VersionDescriptor{
		ID:                 "1.7.10",
		MinecraftArguments: "--username ${auth_player_name} --version ${version_name}",
	}
	profile, err := testResolver().Flatten(context.Background(), desc)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	want := []string{"--username", "${auth_player_name}", "--version", "${version_name}"}
	if len(profile.GameArgs) != len(want) {
		t.Fatalf("len(GameArgs) = %d, want %d: %+v", len(profile.GameArgs), len(want), profile.GameArgs)
	}
	for i, tok := range profile.GameArgs {
		if tok.Kind != ArgLiteral || tok.Value != want[i] {
			t.Errorf("GameArgs[%d] = %+v, want literal %q", i, tok, want[i])
		}
	}
}

func TestFlattenWithoutInheritanceNeedsNoCacheOrHTTP(t *testing.T) {
	// A descriptor with no InheritsFrom goes through Flatten's
	// ResolveInheritance step without touching the VanillaSource's cache or
	// HTTP pool; this is the path every other test here relies on.
	// Inheritance from a parent descriptor is not exercised.
	desc := &manifest.VersionDescriptor{ID: "1.21"}
	if _, err := testResolver().Flatten(context.Background(), desc); err != nil {
		t.Fatalf("Flatten with no InheritsFrom should need no cache/http: %v", err)
	}
}
