package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/text"
	"github.com/urfave/cli/v2"

	"github.com/mrnavastar/launchcore/internal/auth"
	"github.com/mrnavastar/launchcore/internal/catalog"
	"github.com/mrnavastar/launchcore/internal/config"
	"github.com/mrnavastar/launchcore/internal/curseforge"
	"github.com/mrnavastar/launchcore/internal/download"
	"github.com/mrnavastar/launchcore/internal/httpclient"
	"github.com/mrnavastar/launchcore/internal/javaruntime"
	"github.com/mrnavastar/launchcore/internal/launch"
	"github.com/mrnavastar/launchcore/internal/logging"
	"github.com/mrnavastar/launchcore/internal/manifest"
	"github.com/mrnavastar/launchcore/internal/overlay"
	"github.com/mrnavastar/launchcore/internal/resolve"
	"github.com/mrnavastar/launchcore/internal/rpc"
	"github.com/mrnavastar/launchcore/internal/secretstore"
	"github.com/mrnavastar/launchcore/internal/supervisor"
	"github.com/mrnavastar/launchcore/internal/telemetry"
)

var log = logging.For("launcher")

// bootstrap wires every leaf component once at process startup, mirroring
// the teacher's own convention of keeping main.go a thin glue layer that
// defers all real work to its services/api packages.
type bootstrap struct {
	settings config.Settings
	paths    config.Paths
	engine   *launch.Engine
	accounts *auth.AccountSet
	catalog  *catalog.Catalog
	cf       *curseforge.Client
	events   *rpc.EventBus
	http     *httpclient.Pool
}

func newBootstrap(configRoot string) (*bootstrap, error) {
	paths := config.NewPaths(configRoot)
	if err := paths.EnsureAll(); err != nil {
		return nil, err
	}

	settings, err := config.Load(paths)
	if err != nil {
		return nil, err
	}
	config.ApplyLogLevel(settings)

	pool := httpclient.New()
	diskCache := resolve.NewDiskCache(filepath.Join(paths.Versions, "manifest-cache"))

	vanilla := manifest.NewVanillaSource(pool, diskCache)
	fabric := manifest.NewFabricSource(pool)
	forge := manifest.NewForgeSource(pool)

	resolver := resolve.NewResolver(vanilla)
	forgeEngine := overlay.NewForgeEngine(pool, forge, resolver, paths.ForgeCache, paths.Libraries)

	events := rpc.NewEventBus()
	executor := download.NewExecutor(pool, settings.DownloadConcurrency, func(p download.Progress) {
		events.Publish("download-progress", rpc.NewDownloadProgressEvent(p.TotalTasks, p.Completed, p.BytesDone, p.BytesTotalKnown))
	})

	logStore, err := supervisor.NewLogStore(500)
	if err != nil {
		return nil, err
	}

	secrets, err := secretstore.New(paths.Root)
	if err != nil {
		return nil, err
	}
	accounts, err := auth.Load(paths.AccountsFile(), secrets, pool)
	if err != nil {
		return nil, err
	}

	cat := catalog.New(paths)
	javaRuntimes := javaruntime.New(pool, filepath.Join(paths.Root, "runtimes"))
	cf := curseforge.New(pool, settings.CurseForgeAPIKey)

	engine := launch.New(launch.Deps{
		Paths:        paths,
		Settings:     settings,
		Vanilla:      vanilla,
		Fabric:       fabric,
		Forge:        forge,
		Resolver:     resolver,
		ForgeEngine:  forgeEngine,
		Executor:     executor,
		Catalog:      cat,
		LogStore:     logStore,
		Accounts:     accounts,
		JavaRuntimes: javaRuntimes,
		Curseforge:   cf,
	})

	return &bootstrap{
		settings: settings,
		paths:    paths,
		engine:   engine,
		accounts: accounts,
		catalog:  cat,
		cf:       cf,
		events:   events,
		http:     pool,
	}, nil
}

func (b *bootstrap) serve(ctx context.Context) error {
	shutdown, err := telemetry.InitTracer(b.settings.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer shutdown(ctx)

	handlers := rpc.NewHandlers(b.engine, b.accounts, b.catalog, b.cf, b.events, b.http)
	router := rpc.NewRouter(handlers)

	log.Info("listening on %s", b.settings.RPCListenAddr)
	server := &http.Server{Addr: b.settings.RPCListenAddr, Handler: router}
	return server.ListenAndServe()
}

func defaultConfigRoot() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".launchcore"
	}
	return filepath.Join(dir, "launchcore")
}

func main() {
	app := &cli.App{
		Name:  "launchcore",
		Usage: "Minecraft launcher backend: manifest resolution, downloads, and process supervision",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "override the launcher's config directory",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start the RPC server the UI talks to",
				Action: func(c *cli.Context) error {
					root := c.String("config")
					if root == "" {
						root = defaultConfigRoot()
					}
					b, err := newBootstrap(root)
					if err != nil {
						return err
					}
					return b.serve(c.Context)
				},
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "list every known instance",
				Action: func(c *cli.Context) error {
					root := c.String("config")
					if root == "" {
						root = defaultConfigRoot()
					}
					b, err := newBootstrap(root)
					if err != nil {
						return err
					}
					instances, err := b.catalog.LoadInstances()
					if err != nil {
						return err
					}

					lname, lversion := 0, 0
					for _, inst := range instances {
						if len(inst.InstanceName) > lname {
							lname = len(inst.InstanceName)
						}
						if len(inst.VanillaVersion) > lversion {
							lversion = len(inst.VanillaVersion)
						}
					}
					for _, inst := range instances {
						fmt.Println()
						fmt.Print(text.AlignDefault.Apply("NAME:", lname+2) + text.AlignDefault.Apply("VERSION:", lversion))
						fmt.Println()
						fmt.Println(text.AlignDefault.Apply(text.Bold.Sprintf(inst.InstanceName), lname+2) + text.AlignDefault.Apply(inst.VanillaVersion, lversion))
					}
					return nil
				},
			},
			{
				Name:  "launch",
				Usage: "launch a single instance headlessly, without starting the RPC server",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "instance", Aliases: []string{"i"}, Required: true},
				},
				Action: func(c *cli.Context) error {
					root := c.String("config")
					if root == "" {
						root = defaultConfigRoot()
					}
					b, err := newBootstrap(root)
					if err != nil {
						return err
					}
					exited := make(chan struct{})
					running, err := b.engine.LaunchInstance(c.Context, c.String("instance"), supervisor.Callbacks{
						OnLogging: func(lines []supervisor.TaggedLine) {
							for _, l := range lines {
								fmt.Printf("[%s] %s\n", l.Kind, l.Text)
							}
						},
						OnExited: func(code *int) {
							close(exited)
						},
					})
					if err != nil {
						return err
					}
					log.Info("launched %q", running.Name)
					<-exited
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}
