package launch

import (
	"context"
	"time"

	"github.com/mrnavastar/launchcore/internal/catalog"
	"github.com/mrnavastar/launchcore/internal/download"
	"github.com/mrnavastar/launchcore/internal/logging"
	"github.com/mrnavastar/launchcore/internal/manifest"
	"github.com/mrnavastar/launchcore/internal/natives"
	"github.com/mrnavastar/launchcore/internal/overlay"
	"github.com/mrnavastar/launchcore/internal/resolve"
)

var log = logging.For("launch")

// ManifestsSummary is obtain_manifests' response shape (spec §6).
type ManifestsSummary struct {
	VanillaVersions []VanillaVersionSummary `json:"vanilla_versions"`
	FabricVersions  []string                `json:"fabric_versions"`
	ForgeVersions   map[string][]string     `json:"forge_versions"`
}

type VanillaVersionSummary struct {
	Version      string `json:"version"`
	ReleasedDate string `json:"releasedDate"`
	VersionType  string `json:"versionType"`
}

// ObtainManifests implements spec §6's obtain_manifests: vanilla version
// list, Fabric loader versions, and the Forge version index.
func (e *Engine) ObtainManifests(ctx context.Context) (*ManifestsSummary, error) {
	idx, err := e.vanilla.Index(ctx)
	if err != nil {
		return nil, err
	}
	vanillaVersions := make([]VanillaVersionSummary, 0, len(idx.Versions))
	for _, v := range idx.Versions {
		vanillaVersions = append(vanillaVersions, VanillaVersionSummary{
			Version:      v.ID,
			ReleasedDate: v.ReleaseTime,
			VersionType:  v.Type,
		})
	}

	fabricLoaders, err := e.fabric.LoaderVersions(ctx)
	if err != nil {
		return nil, err
	}
	fabricVersions := make([]string, 0, len(fabricLoaders))
	for _, l := range fabricLoaders {
		fabricVersions = append(fabricVersions, l.Version)
	}

	forgeIndex, err := e.forge.VersionIndex(ctx)
	if err != nil {
		return nil, err
	}

	return &ManifestsSummary{
		VanillaVersions: vanillaVersions,
		FabricVersions:  fabricVersions,
		ForgeVersions:   forgeIndex,
	}, nil
}

// resolveProfile runs spec §4.1's full algorithm including the modloader
// handoff in step 8.
func (e *Engine) resolveProfile(ctx context.Context, vanillaID string, modloader overlay.ModloaderType, modloaderVersion string) (*resolve.ResolvedProfile, error) {
	vanillaProfile, err := e.resolver.ResolveVanilla(ctx, vanillaID)
	if err != nil {
		return nil, err
	}

	switch modloader {
	case overlay.Fabric:
		return overlay.ResolveFabric(ctx, e.fabric, e.resolver, vanillaProfile, vanillaID, modloaderVersion)
	case overlay.Forge:
		return e.forgeEngine.Resolve(ctx, vanillaProfile, vanillaID, modloaderVersion)
	default:
		return vanillaProfile, nil
	}
}

// ObtainVersion implements spec §6's obtain_version: resolve the profile,
// create the instance directory, and download everything it references.
// On success the instance is fully playable without further network
// access (barring a later refresh).
func (e *Engine) ObtainVersion(ctx context.Context, settings InstanceSettings) (string, error) {
	profile, err := e.resolveProfile(ctx, settings.VanillaVersion, settings.ModloaderType, settings.ModloaderVersion)
	if err != nil {
		return "", err
	}

	cfg := catalog.InstanceConfig{
		InstanceName:           settings.InstanceName,
		VanillaVersion:         settings.VanillaVersion,
		ModloaderType:          settings.ModloaderType,
		ModloaderVersion:       settings.ModloaderVersion,
		JVMPathOverride:        settings.JVMPathOverride,
		AdditionalJVMArguments: settings.AdditionalJVMArguments,
		Resolution:             settings.Resolution,
		RecordPlaytime:         settings.RecordPlaytime,
		OverrideOptionsTxt:     settings.OverrideOptionsTxt,
		OverrideServersDat:     settings.OverrideServersDat,
		Author:                 settings.Author,
		CreatedAt:              time.Now().UTC().Format(time.RFC3339),
	}
	if err := e.catalog.CreateInstance(cfg); err != nil {
		return "", err
	}

	if err := e.downloadProfile(ctx, profile); err != nil {
		return "", err
	}

	if err := e.runForgeProcessors(ctx, settings.ModloaderType, settings.VanillaVersion, settings.ModloaderVersion); err != nil {
		return "", err
	}

	log.Info("instance %q provisioned at %s", settings.InstanceName, settings.VanillaVersion)
	return settings.InstanceName, nil
}

// runForgeProcessors runs the Forge install processors for a just-downloaded
// profile (spec §4.1's modloader handoff). It is a no-op for every
// modloader but Forge, and must run after downloadProfile has populated the
// shared library root the processors load their jars from.
func (e *Engine) runForgeProcessors(ctx context.Context, modloader overlay.ModloaderType, vanillaID, modloaderVersion string) error {
	if modloader != overlay.Forge {
		return nil
	}
	return e.forgeEngine.RunProcessors(ctx, vanillaID, modloaderVersion)
}

// downloadProfile plans and executes every fetch task a resolved profile
// needs (spec §4.2), fetching the asset index along the way.
func (e *Engine) downloadProfile(ctx context.Context, profile *resolve.ResolvedProfile) error {
	ref := manifest.AssetIndexRef{
		ID: profile.AssetIndex.ID,
		DownloadMetadata: manifest.DownloadMetadata{
			URL:  profile.AssetIndex.URL,
			SHA1: profile.AssetIndex.SHA1,
			Size: profile.AssetIndex.Size,
		},
	}
	assetIndex, err := e.vanilla.AssetIndex(ctx, ref)
	if err != nil {
		return err
	}

	tasks := download.Plan(profile, assetIndex, e.paths)
	if err := e.executor.Run(ctx, tasks); err != nil {
		return err
	}
	return nil
}

// extractNatives wraps internal/natives for one instance's launch (spec
// §4.3): clears and repopulates <instance_dir>/natives.
func extractNatives(profile *resolve.ResolvedProfile, librariesRoot, natDir string) error {
	return natives.Extract(profile.Libraries, librariesRoot, natDir)
}
