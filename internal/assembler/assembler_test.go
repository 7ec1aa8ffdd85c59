package assembler

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/mrnavastar/launchcore/internal/resolve"
)

func testProfile() *resolve.ResolvedProfile {
	return &resolve.ResolvedProfile{
		VersionID:   "1.21",
		VersionType: "release",
		MainClass:   "net.minecraft.client.main.Main",
		AssetsID:    "1.21",
		ClientJar:   resolve.FileRef{LocalPath: "versions/1.21/1.21.jar"},
		Libraries: []resolve.ResolvedLibrary{
			{Coordinate: "com.mojang:brigadier:1.0.18", LocalPath: filepath.Join("com", "mojang", "brigadier", "1.0.18", "brigadier-1.0.18.jar"), Role: resolve.RoleClasspath},
			{Coordinate: "org.lwjgl:lwjgl:3.3.1:natives-linux", Role: resolve.RoleNative},
		},
		JVMArgs: []resolve.ArgToken{
			{Kind: resolve.ArgLiteral, Value: "-Djava.library.path=${natives_directory}"},
			{Kind: resolve.ArgLiteral, Value: "-cp"},
			{Kind: resolve.ArgLiteral, Value: "${classpath}"},
		},
		GameArgs: []resolve.ArgToken{
			{Kind: resolve.ArgLiteral, Value: "--username"},
			{Kind: resolve.ArgLiteral, Value: "${auth_player_name}"},
			{Kind: resolve.ArgLiteral, Value: "--accessToken"},
			{Kind: resolve.ArgLiteral, Value: "${auth_access_token}"},
		},
	}
}

func TestAssembleOrdersArgsAndSubstitutesPlaceholders(t *testing.T) {
	profile := testProfile()
	ctx := LaunchContext{
		InstanceDir: t.TempDir(),
		AssetsRoot:  "/assets",
		NativesDir:  "/natives",
		Account:     AccountContext{PlayerName: "Steve", UUID: "aaaa-bbbb", AccessToken: "tok"},
		Resolution:  Resolution{Width: 1280, Height: 720},
	}

	cmd, err := Assemble(profile, "/app", "/libraries", ctx)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if cmd.Binary != "java" {
		t.Errorf("Binary = %q, want java (no JVMPath override)", cmd.Binary)
	}

	joined := strings.Join(cmd.Args, " ")
	if !strings.Contains(joined, "-Djava.library.path=/natives") {
		t.Errorf("args missing substituted natives_directory: %v", cmd.Args)
	}
	if !strings.Contains(joined, "net.minecraft.client.main.Main") {
		t.Errorf("args missing main class: %v", cmd.Args)
	}
	if !strings.Contains(joined, "Steve") {
		t.Errorf("args missing substituted auth_player_name: %v", cmd.Args)
	}

	mainIdx := indexOf(cmd.Args, "net.minecraft.client.main.Main")
	cpIdx := indexOf(cmd.Args, "-cp")
	userIdx := indexOf(cmd.Args, "--username")
	if !(cpIdx < mainIdx && mainIdx < userIdx) {
		t.Errorf("expected jvm args, main class, then game args in order; got %v", cmd.Args)
	}
}

func TestAssembleDropsArgsThatCollapseToEmpty(t *testing.T) {
	profile := testProfile()
	// AccessToken left empty: the "${auth_access_token}" game arg should
	// resolve to "" and be dropped entirely, not kept as an empty string.
	ctx := LaunchContext{InstanceDir: t.TempDir(), Account: AccountContext{PlayerName: "Steve"}}

	cmd, err := Assemble(profile, "/app", "/libraries", ctx)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	for _, arg := range cmd.Args {
		if arg == "" {
			t.Errorf("expected empty-collapsed args to be dropped, found one in %v", cmd.Args)
		}
	}
}

func TestAssembleUsesJVMPathOverride(t *testing.T) {
	profile := testProfile()
	ctx := LaunchContext{InstanceDir: t.TempDir(), JVMPath: "/usr/lib/jvm/temurin-21/bin/java"}

	cmd, err := Assemble(profile, "/app", "/libraries", ctx)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if cmd.Binary != "/usr/lib/jvm/temurin-21/bin/java" {
		t.Errorf("Binary = %q, want override", cmd.Binary)
	}
}

func TestAssembleOnlyOrdersClasspathRoleLibrariesOntoClasspath(t *testing.T) {
	profile := testProfile()
	ctx := LaunchContext{InstanceDir: t.TempDir()}

	cmd, err := Assemble(profile, "/app", "/libraries", ctx)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	joined := strings.Join(cmd.Args, " ")
	if strings.Contains(joined, "lwjgl") {
		t.Errorf("expected the natives-role library to be excluded from the classpath, got %v", cmd.Args)
	}
	if !strings.Contains(joined, "brigadier") {
		t.Errorf("expected the classpath-role library to appear in the classpath, got %v", cmd.Args)
	}
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
