// Package assembler builds the final java process invocation: placeholder
// substitution, classpath ordering, and command-line assembly (spec §4.4).
package assembler

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/mrnavastar/launchcore/internal/coreerr"
	"github.com/mrnavastar/launchcore/internal/resolve"
)

const (
	LauncherName    = "launchcore"
	LauncherVersion = "1.0.0"
)

// AccountContext is the subset of an authenticated account the assembler
// needs to fill in ${auth_*} placeholders (spec §4.4); it has no
// dependency on internal/auth's richer Account type to avoid an import
// cycle, since internal/auth in turn depends on nothing here.
type AccountContext struct {
	PlayerName  string
	UUID        string // no dashes, matching upstream's auth_uuid convention
	AccessToken string
}

// Resolution mirrors InstanceConfig.resolution (spec §3).
type Resolution struct {
	Width     int
	Height    int
	Maximized bool
}

// LaunchContext carries everything outside the ResolvedProfile the
// assembler needs: account tokens, instance-specific paths, and
// user-configured JVM additions.
type LaunchContext struct {
	InstanceDir           string
	AssetsRoot            string
	NativesDir            string
	AdditionalJVMArguments []string
	Resolution            Resolution
	Account               AccountContext
	JVMPath               string // resolved java binary, spec §12 supplement 1
}

// Command is the fully assembled process invocation (spec §4.4).
type Command struct {
	Binary     string
	Args       []string
	WorkingDir string
}

// Assemble implements spec §4.4's algorithm: substitute placeholders,
// order the classpath, and build
// "<jvm_binary> <additional_jvm_arguments> <resolved.jvm_args> <main_class> <resolved.game_args>".
func Assemble(profile *resolve.ResolvedProfile, appRoot, librariesRoot string, ctx LaunchContext) (*Command, error) {
	gameDir := filepath.Join(ctx.InstanceDir, "minecraft")
	if err := os.MkdirAll(gameDir, 0o755); err != nil {
		return nil, coreerr.Wrap(coreerr.KindFilesystem, "creating game directory", err)
	}

	classpath := buildClasspath(profile, appRoot, librariesRoot)
	placeholders := buildPlaceholders(profile, ctx, gameDir, classpath)

	var args []string
	args = append(args, ctx.AdditionalJVMArguments...)
	args = append(args, substituteTokens(profile.JVMArgs, placeholders)...)
	args = append(args, profile.MainClass)
	args = append(args, substituteTokens(profile.GameArgs, placeholders)...)

	binary := ctx.JVMPath
	if binary == "" {
		binary = "java"
	}

	return &Command{Binary: binary, Args: args, WorkingDir: gameDir}, nil
}

// buildClasspath orders classpath libraries followed by the client jar,
// joined with the platform separator (spec §4.4's ${classpath} token).
func buildClasspath(profile *resolve.ResolvedProfile, appRoot, librariesRoot string) string {
	var entries []string
	for _, lib := range profile.Libraries {
		if lib.Role != resolve.RoleClasspath {
			continue
		}
		entries = append(entries, filepath.Join(librariesRoot, filepath.FromSlash(lib.LocalPath)))
	}
	entries = append(entries, filepath.Join(appRoot, filepath.FromSlash(profile.ClientJar.LocalPath)))
	return strings.Join(entries, classpathSeparator())
}

func classpathSeparator() string {
	if runtime.GOOS == "windows" {
		return ";"
	}
	return ":"
}

func buildPlaceholders(profile *resolve.ResolvedProfile, ctx LaunchContext, gameDir, classpath string) map[string]string {
	return map[string]string{
		"auth_player_name":  ctx.Account.PlayerName,
		"auth_uuid":         strings.ReplaceAll(ctx.Account.UUID, "-", ""),
		"auth_access_token": ctx.Account.AccessToken,
		"user_type":         "msa",
		"version_name":      profile.VersionID,
		"version_type":      profile.VersionType,
		"game_directory":    gameDir,
		"assets_root":       ctx.AssetsRoot,
		"assets_index_name": profile.AssetsID,
		"natives_directory": ctx.NativesDir,
		"launcher_name":     LauncherName,
		"launcher_version":  LauncherVersion,
		"classpath":         classpath,
		"resolution_width":  itoa(ctx.Resolution.Width),
		"resolution_height": itoa(ctx.Resolution.Height),
	}
}

func itoa(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// substituteTokens resolves every ${placeholder} in each ArgToken's value,
// then drops the ones that collapsed to the empty string (spec §4.4:
// "arguments that collapse to empty strings are dropped"). Placeholders
// whose value in the table is empty are substituted with the empty string
// but their surrounding literal text is preserved, per the same paragraph;
// placeholders that are not in the table at all are left as written.
func substituteTokens(tokens []resolve.ArgToken, placeholders map[string]string) []string {
	var out []string
	for _, tok := range tokens {
		value := substitutePlaceholders(tok.Value, placeholders)
		if value == "" {
			continue
		}
		out = append(out, value)
	}
	return out
}

func substitutePlaceholders(template string, placeholders map[string]string) string {
	out := template
	for key, value := range placeholders {
		out = strings.ReplaceAll(out, "${"+key+"}", value)
	}
	return out
}
