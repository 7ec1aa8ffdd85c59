// Package launch orchestrates spec §2's primary data flow: catalog load,
// auth refresh, manifest resolution, download, native extraction,
// assembly, and supervision, wired together behind the operations the
// RPC surface calls: ObtainManifests, ObtainVersion (create+populate an
// instance), ImportZip, CheckForUpdate, and LaunchInstance (run one).
package launch

import (
	"github.com/mrnavastar/launchcore/internal/auth"
	"github.com/mrnavastar/launchcore/internal/catalog"
	"github.com/mrnavastar/launchcore/internal/config"
	"github.com/mrnavastar/launchcore/internal/curseforge"
	"github.com/mrnavastar/launchcore/internal/download"
	"github.com/mrnavastar/launchcore/internal/javaruntime"
	"github.com/mrnavastar/launchcore/internal/manifest"
	"github.com/mrnavastar/launchcore/internal/overlay"
	"github.com/mrnavastar/launchcore/internal/resolve"
	"github.com/mrnavastar/launchcore/internal/supervisor"
)

// InstanceSettings is obtain_version's argument shape (spec §6): enough to
// build an InstanceConfig plus select a version/modloader pair.
type InstanceSettings struct {
	InstanceName           string                `json:"instanceName" validate:"required"`
	VanillaVersion         string                `json:"vanillaVersion" validate:"required"`
	ModloaderType          overlay.ModloaderType `json:"modloaderType"`
	ModloaderVersion       string                `json:"modloaderVersion"`
	JVMPathOverride        string                `json:"jvmPathOverride"`
	AdditionalJVMArguments []string              `json:"additionalJvmArguments"`
	Resolution             catalog.Resolution    `json:"resolution"`
	RecordPlaytime         bool                  `json:"recordPlaytime"`
	OverrideOptionsTxt     bool                  `json:"overrideOptionsTxt"`
	OverrideServersDat     bool                  `json:"overrideServersDat"`
	Author                 string                `json:"author"`
}

// Engine ties every leaf component to those top-level operations.
type Engine struct {
	paths    config.Paths
	settings config.Settings

	vanilla *manifest.VanillaSource
	fabric  *manifest.FabricSource
	forge   *manifest.ForgeSource

	resolver    *resolve.Resolver
	forgeEngine *overlay.ForgeEngine

	executor     *download.Executor
	catalog      *catalog.Catalog
	logStore     *supervisor.LogStore
	accounts     *auth.AccountSet
	javaRuntimes *javaruntime.Client
	curseforge   *curseforge.Client
}

// Deps bundles the already-constructed leaf components New wires
// together; every field is built once at process startup in cmd/launcher.
// Download progress is wired directly into download.NewExecutor's
// onProgress callback rather than threaded through Engine.
type Deps struct {
	Paths       config.Paths
	Settings    config.Settings
	Vanilla     *manifest.VanillaSource
	Fabric      *manifest.FabricSource
	Forge       *manifest.ForgeSource
	Resolver    *resolve.Resolver
	ForgeEngine *overlay.ForgeEngine
	Executor    *download.Executor
	Catalog      *catalog.Catalog
	LogStore     *supervisor.LogStore
	Accounts     *auth.AccountSet
	JavaRuntimes *javaruntime.Client
	Curseforge   *curseforge.Client
}

func New(d Deps) *Engine {
	return &Engine{
		paths:       d.Paths,
		settings:    d.Settings,
		vanilla:     d.Vanilla,
		fabric:      d.Fabric,
		forge:       d.Forge,
		resolver:    d.Resolver,
		forgeEngine: d.ForgeEngine,
		executor:     d.Executor,
		catalog:      d.Catalog,
		logStore:     d.LogStore,
		accounts:     d.Accounts,
		javaRuntimes: d.JavaRuntimes,
		curseforge:   d.Curseforge,
	}
}

// RunningInstance is what LaunchInstance hands back to the caller so it
// can subscribe to events and later call Shutdown.
type RunningInstance struct {
	Name       string
	Supervisor *supervisor.Supervisor
}
