// Package overlay merges a modloader (Fabric or Forge) onto a vanilla
// ResolvedProfile (spec §4.1 step 8, §4.7's Modloader Overlay component).
package overlay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mrnavastar/launchcore/internal/coreerr"
	"github.com/mrnavastar/launchcore/internal/logging"
	"github.com/mrnavastar/launchcore/internal/manifest"
	"github.com/mrnavastar/launchcore/internal/resolve"
)

var log = logging.For("overlay")

// ModloaderType enumerates InstanceConfig's modloader_type (spec §3).
type ModloaderType int

const (
	None ModloaderType = iota
	Fabric
	Forge
)

func (t ModloaderType) String() string {
	switch t {
	case Fabric:
		return "Fabric"
	case Forge:
		return "Forge"
	default:
		return "None"
	}
}

// MarshalJSON renders ModloaderType as the string InstanceConfig's schema
// requires (spec §3: "modloader_type ∈ {None, Fabric, Forge}") rather than
// its underlying int.
func (t ModloaderType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *ModloaderType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "Fabric":
		*t = Fabric
	case "Forge":
		*t = Forge
	default:
		*t = None
	}
	return nil
}

// Merge combines a modloader ResolvedProfile over a vanilla one, following
// spec §9's library-identity rule: "group:artifact is the merge key...
// later duplicates supersede earlier". MainClass comes from the overlay
// when the overlay set it; JVMArgs and GameArgs are vanilla's followed by
// the overlay's; vanilla's resolved asset
// index, client jar, and logging config carry over untouched since Fabric
// and Forge profiles never redeclare them.
func Merge(vanilla, overlay *resolve.ResolvedProfile) *resolve.ResolvedProfile {
	merged := *vanilla
	merged.VersionID = overlay.VersionID
	if overlay.MainClass != "" {
		merged.MainClass = overlay.MainClass
	}
	merged.Libraries = mergeLibraries(vanilla.Libraries, overlay.Libraries)
	merged.JVMArgs = append(append([]resolve.ArgToken{}, vanilla.JVMArgs...), overlay.JVMArgs...)
	merged.GameArgs = append(append([]resolve.ArgToken{}, vanilla.GameArgs...), overlay.GameArgs...)
	return &merged
}

// mergeLibraries keeps vanilla's ordering but lets an overlay entry with the
// same group:artifact replace (not append after) the vanilla entry,
// appending overlay-only entries at the end — this is what lets Fabric's
// own ASM/intermediary jars coexist with vanilla's while letting Forge
// override a shared dependency's version.
func mergeLibraries(vanillaLibs, overlayLibs []resolve.ResolvedLibrary) []resolve.ResolvedLibrary {
	overlayByKey := make(map[string]resolve.ResolvedLibrary, len(overlayLibs))
	var overlayOnly []resolve.ResolvedLibrary
	seen := make(map[string]bool, len(vanillaLibs))
	for _, lib := range vanillaLibs {
		seen[lib.GroupArtifact()] = true
	}
	for _, lib := range overlayLibs {
		key := lib.GroupArtifact()
		overlayByKey[key] = lib
		if !seen[key] {
			overlayOnly = append(overlayOnly, lib)
		}
	}

	out := make([]resolve.ResolvedLibrary, 0, len(vanillaLibs)+len(overlayOnly))
	for _, lib := range vanillaLibs {
		if replacement, ok := overlayByKey[lib.GroupArtifact()]; ok {
			out = append(out, replacement)
			continue
		}
		out = append(out, lib)
	}
	out = append(out, overlayOnly...)
	return out
}

// ResolveFabric fetches the Fabric profile for (vanillaID, loaderVersion),
// flattens it, and overlays it onto an already-resolved vanilla profile
// (spec §4.1 "Fabric path").
func ResolveFabric(ctx context.Context, fabric *manifest.FabricSource, resolver *resolve.Resolver, vanillaProfile *resolve.ResolvedProfile, vanillaID, loaderVersion string) (*resolve.ResolvedProfile, error) {
	supported, err := fabric.SupportsGameVersion(ctx, vanillaID)
	if err != nil {
		return nil, err
	}
	if !supported {
		return nil, coreerr.New(coreerr.KindConfig, fmt.Sprintf("fabric does not support %q", vanillaID))
	}

	profileDesc, err := fabric.Profile(ctx, vanillaID, loaderVersion)
	if err != nil {
		return nil, err
	}
	overlayProfile, err := resolver.Flatten(ctx, profileDesc)
	if err != nil {
		return nil, err
	}
	return Merge(vanillaProfile, overlayProfile), nil
}
