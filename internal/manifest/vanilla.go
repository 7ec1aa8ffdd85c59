package manifest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mrnavastar/launchcore/internal/coreerr"
	"github.com/mrnavastar/launchcore/internal/httpclient"
	"github.com/mrnavastar/launchcore/internal/logging"
)

var log = logging.For("manifest")

const VanillaManifestURL = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"

// VanillaSource fetches and caches vanilla manifests and descriptors to
// disk, the way the teacher caches `modman.json` next to the data it
// describes, generalized per spec §4.1 step 1-2.
type VanillaSource struct {
	http        *httpclient.Pool
	cache       Cache
	cachedIndex *VersionManifestIndex
}

// Cache is the narrow disk-caching interface the resolver layer needs;
// implemented by internal/resolve.DiskCache so this package stays free of
// filesystem layout decisions beyond "cache this blob under this key".
type Cache interface {
	ReadJSON(key string, out any) (bool, error)
	WriteJSON(key string, value any) error
}

func NewVanillaSource(http *httpclient.Pool, cache Cache) *VanillaSource {
	return &VanillaSource{http: http, cache: cache}
}

// Index returns the VersionManifestIndex, fetching once per process
// lifetime per spec §3's "Lifecycle summary" (fetched once per session).
func (s *VanillaSource) Index(ctx context.Context) (*VersionManifestIndex, error) {
	if s.cachedIndex != nil {
		return s.cachedIndex, nil
	}
	var idx VersionManifestIndex
	if err := s.http.GetJSON(ctx, VanillaManifestURL, &idx); err != nil {
		return nil, coreerr.Wrap(coreerr.KindNetwork, "fetching vanilla version manifest", err)
	}
	if len(idx.Versions) == 0 {
		return nil, coreerr.New(coreerr.KindSchema, "vanilla manifest contained no versions")
	}
	s.cachedIndex = &idx
	return &idx, nil
}

// Descriptor fetches (or loads from the versions/<id>/<id>.json cache) the
// VersionDescriptor for a known vanilla id.
func (s *VanillaSource) Descriptor(ctx context.Context, id string) (*VersionDescriptor, error) {
	cacheKey := filepath.ToSlash(filepath.Join("versions", id, id+".json"))

	var cached VersionDescriptor
	if ok, err := s.cache.ReadJSON(cacheKey, &cached); err == nil && ok {
		log.Debug("using cached descriptor for %s", id)
		return &cached, nil
	}

	idx, err := s.Index(ctx)
	if err != nil {
		return nil, err
	}
	entry, ok := idx.Find(id)
	if !ok {
		return nil, coreerr.New(coreerr.KindNotFound, fmt.Sprintf("unknown vanilla version %q", id))
	}

	var desc VersionDescriptor
	if err := s.http.GetJSON(ctx, entry.URL, &desc); err != nil {
		return nil, coreerr.Wrap(coreerr.KindNetwork, fmt.Sprintf("fetching version descriptor for %s", id), err)
	}
	if desc.ID == "" {
		return nil, coreerr.New(coreerr.KindSchema, fmt.Sprintf("version descriptor for %s missing id", id))
	}
	if err := s.cache.WriteJSON(cacheKey, &desc); err != nil {
		log.Warn("failed to cache descriptor for %s: %v", id, err)
	}
	return &desc, nil
}

// AssetIndex fetches the asset index JSON referenced by an AssetIndexRef,
// caching at assets/indexes/<id>.json per spec §6.
func (s *VanillaSource) AssetIndex(ctx context.Context, ref AssetIndexRef) (*AssetIndex, error) {
	cacheKey := filepath.ToSlash(filepath.Join("assets", "indexes", ref.ID+".json"))

	var cached AssetIndex
	if ok, err := s.cache.ReadJSON(cacheKey, &cached); err == nil && ok {
		return &cached, nil
	}

	var idx AssetIndex
	if err := s.http.GetJSON(ctx, ref.URL, &idx); err != nil {
		return nil, coreerr.Wrap(coreerr.KindNetwork, fmt.Sprintf("fetching asset index %s", ref.ID), err)
	}
	if err := s.cache.WriteJSON(cacheKey, &idx); err != nil {
		log.Warn("failed to cache asset index %s: %v", ref.ID, err)
	}
	return &idx, nil
}

// MergeDescriptors implements spec §4.1 step 3: arrays concatenate
// (child after parent) for libraries and arguments.{game,jvm}; scalar
// fields from child override parent; mainClass from child wins if present.
func MergeDescriptors(parent, child *VersionDescriptor) *VersionDescriptor {
	merged := *parent

	merged.ID = child.ID
	if child.MainClass != "" {
		merged.MainClass = child.MainClass
	}
	if child.AssetIndex != nil {
		merged.AssetIndex = child.AssetIndex
	}
	if child.Assets != "" {
		merged.Assets = child.Assets
	}
	if child.Downloads != nil {
		merged.Downloads = child.Downloads
	}
	if child.Logging != nil {
		merged.Logging = child.Logging
	}
	if child.JavaVersion != nil {
		merged.JavaVersion = child.JavaVersion
	}
	if child.ComplianceLevel != 0 {
		merged.ComplianceLevel = child.ComplianceLevel
	}
	if child.Type != "" {
		merged.Type = child.Type
	}

	merged.Libraries = append(append([]Library{}, parent.Libraries...), child.Libraries...)

	parentArgs := parent.LaunchArguments()
	childArgs := child.LaunchArguments()
	if parentArgs.Legacy != "" || childArgs.Legacy != "" {
		legacy := parentArgs.Legacy
		if childArgs.Legacy != "" {
			legacy = childArgs.Legacy
		}
		merged.MinecraftArguments = legacy
		merged.Arguments = nil
	} else {
		merged.Arguments = &argumentsJSON{
			Game: append(append([]Argument{}, parentArgs.Game...), childArgs.Game...),
			JVM:  append(append([]Argument{}, parentArgs.JVM...), childArgs.JVM...),
		}
		merged.MinecraftArguments = ""
	}

	merged.InheritsFrom = ""
	return &merged
}

// ResolveInheritance recursively walks InheritsFrom, merging child over
// parent at each step (spec §4.1 step 3), terminating at a descriptor with
// no parent.
func (s *VanillaSource) ResolveInheritance(ctx context.Context, desc *VersionDescriptor) (*VersionDescriptor, error) {
	if desc.InheritsFrom == "" {
		return desc, nil
	}
	parent, err := s.Descriptor(ctx, desc.InheritsFrom)
	if err != nil {
		return nil, err
	}
	resolvedParent, err := s.ResolveInheritance(ctx, parent)
	if err != nil {
		return nil, err
	}
	return MergeDescriptors(resolvedParent, desc), nil
}

// LibraryPath computes the canonical local path for a library coordinate
// (spec §4.1 step 5): libraries/<group-as-path>/<artifact>/<version>/
// <artifact>-<version>[-<classifier>].jar
func LibraryPath(coordinate string) (string, error) {
	parts := strings.Split(coordinate, ":")
	if len(parts) < 3 {
		return "", fmt.Errorf("manifest: malformed library coordinate %q", coordinate)
	}
	group, artifact, version := parts[0], parts[1], parts[2]
	classifier := ""
	if len(parts) > 3 {
		classifier = parts[3]
	}
	filename := fmt.Sprintf("%s-%s", artifact, version)
	if classifier != "" {
		filename += "-" + classifier
	}
	filename += ".jar"
	groupPath := strings.ReplaceAll(group, ".", string(filepath.Separator))
	return filepath.Join(groupPath, artifact, version, filename), nil
}

const defaultMavenRepo = "https://libraries.minecraft.net/"

// LibraryMavenURL builds the fallback Maven-style URL for a coordinate
// under the default library repository (spec §4.1 step 5's fallback).
func LibraryMavenURL(repoBase, coordinate string) (string, error) {
	path, err := LibraryPath(coordinate)
	if err != nil {
		return "", err
	}
	if repoBase == "" {
		repoBase = defaultMavenRepo
	}
	if !strings.HasSuffix(repoBase, "/") {
		repoBase += "/"
	}
	return repoBase + filepath.ToSlash(path), nil
}
