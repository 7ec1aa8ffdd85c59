package manifest

import (
	"context"
	"fmt"

	"github.com/mrnavastar/launchcore/internal/coreerr"
	"github.com/mrnavastar/launchcore/internal/httpclient"
)

const fabricBaseURL = "https://meta.fabricmc.net/v2"

// FabricGameVersion mirrors the per-vanilla-version support entries Fabric
// publishes, used to validate a (vanilla, loader) pair before fetching the
// profile (spec §4.1 "Fabric path").
type FabricGameVersion struct {
	Version string `json:"version"`
	Stable  bool   `json:"stable"`
}

// FabricLoaderVersion is an entry from /v2/versions/loader, matching the
// teacher's LoaderVersion (api/fabric.go) but with the maven coordinate
// kept so the profile-building code below can use it directly.
type FabricLoaderVersion struct {
	Separator string `json:"separator"`
	Build     int    `json:"build"`
	Maven     string `json:"maven"`
	Version   string `json:"version"`
	Stable    bool   `json:"stable"`
}

// FabricSource adapts Fabric's meta API to the VersionDescriptor shape
// the resolver already knows how to merge (spec §4.1 "Fabric path").
type FabricSource struct {
	http *httpclient.Pool
}

func NewFabricSource(http *httpclient.Pool) *FabricSource {
	return &FabricSource{http: http}
}

func (s *FabricSource) GameVersions(ctx context.Context) ([]FabricGameVersion, error) {
	var versions []FabricGameVersion
	if err := s.http.GetJSON(ctx, fabricBaseURL+"/versions/game", &versions); err != nil {
		return nil, coreerr.Wrap(coreerr.KindNetwork, "fetching fabric game versions", err)
	}
	return versions, nil
}

func (s *FabricSource) SupportsGameVersion(ctx context.Context, vanillaID string) (bool, error) {
	versions, err := s.GameVersions(ctx)
	if err != nil {
		return false, err
	}
	for _, v := range versions {
		if v.Version == vanillaID {
			return true, nil
		}
	}
	return false, nil
}

func (s *FabricSource) LoaderVersions(ctx context.Context) ([]FabricLoaderVersion, error) {
	var versions []FabricLoaderVersion
	if err := s.http.GetJSON(ctx, fabricBaseURL+"/versions/loader", &versions); err != nil {
		return nil, coreerr.Wrap(coreerr.KindNetwork, "fetching fabric loader versions", err)
	}
	return versions, nil
}

// LatestStableLoader mirrors the teacher's GetLatestFabricLoaderVersion.
func (s *FabricSource) LatestStableLoader(ctx context.Context) (string, error) {
	versions, err := s.LoaderVersions(ctx)
	if err != nil {
		return "", err
	}
	for _, v := range versions {
		if v.Stable {
			return v.Version, nil
		}
	}
	return "", coreerr.New(coreerr.KindNotFound, "no stable fabric loader version published")
}

// Profile fetches the Fabric profile JSON for (vanilla, loader) and
// returns it as a VersionDescriptor with InheritsFrom set to vanillaID, per
// spec §4.1: "Treat it as a VersionDescriptor with inheritsFrom = vanilla".
func (s *FabricSource) Profile(ctx context.Context, vanillaID, loaderVersion string) (*VersionDescriptor, error) {
	url := fmt.Sprintf("%s/versions/loader/%s/%s/profile/json", fabricBaseURL, vanillaID, loaderVersion)
	var desc VersionDescriptor
	if err := s.http.GetJSON(ctx, url, &desc); err != nil {
		return nil, coreerr.Wrap(coreerr.KindNetwork, fmt.Sprintf("fetching fabric profile %s/%s", vanillaID, loaderVersion), err)
	}
	if desc.InheritsFrom == "" {
		desc.InheritsFrom = vanillaID
	}
	return &desc, nil
}
