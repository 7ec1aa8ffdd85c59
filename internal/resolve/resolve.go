package resolve

import (
	"context"
	"strings"

	"github.com/mrnavastar/launchcore/internal/coreerr"
	"github.com/mrnavastar/launchcore/internal/manifest"
)

// Resolver turns version descriptors into ResolvedProfiles (spec §4.1,
// steps 1-7; step 8's modloader handoff lives in internal/overlay so this
// package stays a pure vanilla flattener).
type Resolver struct {
	vanilla *manifest.VanillaSource
	host    manifest.Host
}

func NewResolver(vanilla *manifest.VanillaSource) *Resolver {
	return &Resolver{vanilla: vanilla, host: manifest.CurrentHost()}
}

// ResolveVanilla fetches, merges inheritance, and flattens a vanilla
// version id into a ResolvedProfile (spec §4.1 steps 1-7).
func (r *Resolver) ResolveVanilla(ctx context.Context, vanillaID string) (*ResolvedProfile, error) {
	desc, err := r.vanilla.Descriptor(ctx, vanillaID)
	if err != nil {
		return nil, err
	}
	return r.Flatten(ctx, desc)
}

// Flatten implements spec §4.1 steps 3-7 on an already-fetched descriptor,
// so Fabric/Forge profiles (already shaped as a VersionDescriptor with
// InheritsFrom set) can reuse it.
func (r *Resolver) Flatten(ctx context.Context, desc *manifest.VersionDescriptor) (*ResolvedProfile, error) {
	merged, err := r.vanilla.ResolveInheritance(ctx, desc)
	if err != nil {
		return nil, err
	}

	profile := &ResolvedProfile{
		VersionID:   merged.ID,
		VersionType: merged.Type,
		MainClass:   merged.MainClass,
	}
	if merged.JavaVersion != nil {
		profile.JavaMajorVersion = merged.JavaVersion.MajorVersion
		profile.JavaComponent = merged.JavaVersion.Component
	}
	profile.ComplianceLevel = merged.ComplianceLevel

	libs, err := r.flattenLibraries(merged.Libraries)
	if err != nil {
		return nil, err
	}
	profile.Libraries = libs

	if merged.AssetIndex != nil {
		profile.AssetIndex = AssetIndexRef{
			ID:   merged.AssetIndex.ID,
			URL:  merged.AssetIndex.URL,
			SHA1: merged.AssetIndex.SHA1,
			Size: merged.AssetIndex.Size,
		}
	}
	profile.AssetsID = merged.Assets

	if merged.Downloads != nil {
		profile.ClientJar = FileRef{
			RemoteURL: merged.Downloads.Client.URL,
			SHA1:      merged.Downloads.Client.SHA1,
			Size:      merged.Downloads.Client.Size,
			LocalPath: "versions/" + merged.ID + "/" + merged.ID + ".jar",
		}
	}

	args := merged.LaunchArguments()
	profile.JVMArgs = r.flattenArguments(args.JVM)
	if args.Legacy != "" {
		// Pre-1.13 descriptors carry a single minecraftArguments string
		// instead of arguments.game[]; the assembler supplies the JVM
		// defaults (classpath, natives dir) itself in that case.
		profile.GameArgs = r.flattenLegacyArguments(args.Legacy)
	} else {
		profile.GameArgs = r.flattenArguments(args.Game)
	}

	if merged.Logging != nil && merged.Logging.Client.File.URL != "" {
		lf := merged.Logging.Client.File
		profile.Logging = &LoggingConfig{
			Argument: merged.Logging.Client.Argument,
			File: FileRef{
				RemoteURL: lf.URL,
				SHA1:      lf.SHA1,
				Size:      lf.Size,
				LocalPath: "assets/log_configs/" + lf.ID,
			},
		}
	}

	return profile, nil
}

// flattenLibraries implements spec §4.1 steps 4-5 plus the natives
// classifier-selection open question (spec §9 open question a): prefer an
// explicit `natives` block, falling back to classifier-matching on the
// coordinate itself for descriptors that inline natives as plain libraries.
func (r *Resolver) flattenLibraries(libraries []manifest.Library) ([]ResolvedLibrary, error) {
	var out []ResolvedLibrary
	for _, lib := range libraries {
		if manifest.EvaluateRules(lib.Rules, r.host, nil) == manifest.Deny {
			continue
		}

		if artifact := lib.Downloads.Artifact; artifact != nil {
			role := RoleClasspath
			if isNativeCoordinate(lib.Name) {
				role = RoleNative
			}
			resolved, err := r.resolveArtifact(lib.Name, artifact, role, lib.Extract)
			if err != nil {
				return nil, err
			}
			out = append(out, resolved)
		} else if lib.URL != "" {
			// Forge-style bare maven coordinate: no downloads block, just a
			// repository base URL to build the path from (spec §4.1 step 5
			// fallback).
			resolved, err := r.resolveBareCoordinate(lib.Name, lib.URL)
			if err != nil {
				return nil, err
			}
			out = append(out, resolved)
		}

		if classifierTemplate, ok := lib.Natives[r.host.OSName]; ok {
			classifier := strings.ReplaceAll(classifierTemplate, "${arch}", archSuffix(r.host.Arch))
			artifact, ok := lib.Downloads.Classifiers[classifier]
			if !ok || artifact == nil {
				continue
			}
			resolved, err := r.resolveArtifact(lib.Name+":"+classifier, artifact, RoleNative, lib.Extract)
			if err != nil {
				return nil, err
			}
			out = append(out, resolved)
		}
	}
	return out, nil
}

func isNativeCoordinate(coordinate string) bool {
	parts := splitCoordinate(coordinate)
	return len(parts) > 3 && strings.HasPrefix(parts[3], "natives-")
}

// archSuffix maps Go's normalized arch back onto the "32"/"64" suffix older
// natives classifiers expect in place of ${arch}.
func archSuffix(arch string) string {
	if arch == "x86" {
		return "32"
	}
	return "64"
}

func (r *Resolver) resolveArtifact(coordinate string, artifact *manifest.Artifact, role LibraryRole, extract *manifest.LibraryExtraction) (ResolvedLibrary, error) {
	localPath := artifact.Path
	if localPath == "" {
		var err error
		localPath, err = manifest.LibraryPath(coordinate)
		if err != nil {
			return ResolvedLibrary{}, coreerr.Wrap(coreerr.KindSchema, "resolving library path", err)
		}
	}
	return ResolvedLibrary{
		Coordinate:   coordinate,
		LocalPath:    localPath,
		RemoteURL:    artifact.URL,
		SHA1:         artifact.SHA1,
		Size:         artifact.Size,
		Role:         role,
		ExtractRules: convertExtract(extract),
	}, nil
}

func (r *Resolver) resolveBareCoordinate(coordinate, repoBase string) (ResolvedLibrary, error) {
	localPath, err := manifest.LibraryPath(coordinate)
	if err != nil {
		return ResolvedLibrary{}, coreerr.Wrap(coreerr.KindSchema, "resolving library path", err)
	}
	remote, err := manifest.LibraryMavenURL(repoBase, coordinate)
	if err != nil {
		return ResolvedLibrary{}, coreerr.Wrap(coreerr.KindSchema, "building library maven url", err)
	}
	return ResolvedLibrary{
		Coordinate: coordinate,
		LocalPath:  localPath,
		RemoteURL:  remote,
		Role:       RoleClasspath,
	}, nil
}

func convertExtract(extract *manifest.LibraryExtraction) *ExtractRules {
	if extract == nil {
		return nil
	}
	return &ExtractRules{Exclude: extract.Exclude}
}

// flattenArguments implements spec §4.1 step 6 and §9's ArgToken tagged
// variant: conditional tokens have their rules evaluated now, against an
// empty feature set (features are always empty at the resolver layer per
// spec §4.1 step 4); only allowed values survive into the flat sequence.
func (r *Resolver) flattenArguments(args []manifest.Argument) []ArgToken {
	var out []ArgToken
	for _, arg := range args {
		if !arg.IsConditional {
			out = append(out, ArgToken{Kind: ArgLiteral, Value: arg.Literal})
			continue
		}
		if manifest.EvaluateRules(arg.Rules, r.host, nil) == manifest.Deny {
			continue
		}
		for _, value := range arg.Values {
			out = append(out, ArgToken{Kind: ArgConditional, Value: value})
		}
	}
	return out
}

// flattenLegacyArguments splits the pre-1.13 minecraftArguments string into
// literal tokens; it never contains rule-gated content.
func (r *Resolver) flattenLegacyArguments(legacy string) []ArgToken {
	fields := strings.Fields(legacy)
	out := make([]ArgToken, 0, len(fields))
	for _, f := range fields {
		out = append(out, ArgToken{Kind: ArgLiteral, Value: f})
	}
	return out
}
