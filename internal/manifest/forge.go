package manifest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mrnavastar/launchcore/internal/coreerr"
	"github.com/mrnavastar/launchcore/internal/httpclient"
)

const (
	forgeManifestURL = "https://files.minecraftforge.net/net/minecraftforge/forge/maven-metadata.json"
	forgeMavenBase   = "https://maven.minecraftforge.net/net/minecraftforge/forge"
)

// ForgeVersionIndex is the {vanilla_id -> [forge_version]} mapping spec §6
// names directly in `obtain_manifests`'s return shape.
type ForgeVersionIndex map[string][]string

// ForgeInstallProcessor is one ordered step of Forge's install pipeline
// (spec §4.1 "Forge path"): it may extract embedded files or invoke a
// bundled Java process to produce patched jars.
type ForgeInstallProcessor struct {
	Jar       string            `json:"jar"`
	Classpath []string          `json:"classpath"`
	Args      []string          `json:"args"`
	Outputs   map[string]string `json:"outputs,omitempty"`
	Sides     []string          `json:"sides,omitempty"` // defaults to client+server when absent
}

// ForgeInstallerProfile is Forge's install_profile.json: a version
// descriptor plus the install-processor list (spec §4.1).
type ForgeInstallerProfile struct {
	Version    string                           `json:"version"`
	Descriptor VersionDescriptor                `json:"versionInfo"`
	Data       map[string]map[string]string     `json:"data"`
	Processors []ForgeInstallProcessor           `json:"processors"`
	Libraries  []Library                        `json:"libraries"`
}

type ForgeSource struct {
	http *httpclient.Pool
}

func NewForgeSource(http *httpclient.Pool) *ForgeSource {
	return &ForgeSource{http: http}
}

func (s *ForgeSource) VersionIndex(ctx context.Context) (ForgeVersionIndex, error) {
	var idx ForgeVersionIndex
	if err := s.http.GetJSON(ctx, forgeManifestURL, &idx); err != nil {
		return nil, coreerr.Wrap(coreerr.KindNetwork, "fetching forge version index", err)
	}
	return idx, nil
}

// VersionsFor returns the Forge versions published for a vanilla id,
// newest first (Forge's own metadata order is ascending; spec's
// `obtain_manifests` shape doesn't mandate an order, but newest-first is
// the useful default for a "pick a version" UI).
func (s *ForgeSource) VersionsFor(ctx context.Context, vanillaID string) ([]string, error) {
	idx, err := s.VersionIndex(ctx)
	if err != nil {
		return nil, err
	}
	versions, ok := idx[vanillaID]
	if !ok {
		return nil, coreerr.New(coreerr.KindNotFound, fmt.Sprintf("no forge builds published for %q", vanillaID))
	}
	out := make([]string, len(versions))
	for i, v := range versions {
		out[len(versions)-1-i] = v
	}
	return out, nil
}

// ParseInstallerProfile parses the installer descriptor for a specific
// "<vanilla>-<forge>" build; it does no fetching itself. Forge publishes the installer jar itself
// (not a bare JSON endpoint); the installer profile is the
// `install_profile.json` entry inside that jar. The executor that already
// has to fetch and unpack the installer jar (internal/overlay) passes us
// the parsed bytes; this function exists to give that unmarshal a single,
// tested home instead of repeating it ad hoc.
func ParseInstallerProfile(data []byte) (*ForgeInstallerProfile, error) {
	var profile ForgeInstallerProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, coreerr.Wrap(coreerr.KindSchema, "parsing forge install_profile.json", err)
	}
	return &profile, nil
}

// InstallerURL builds the download URL for a Forge installer jar.
func InstallerURL(vanillaID, forgeVersion string) string {
	build := vanillaID + "-" + forgeVersion
	return fmt.Sprintf("%s/%s/forge-%s-installer.jar", forgeMavenBase, build, build)
}
