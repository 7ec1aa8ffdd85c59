package launch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrnavastar/launchcore/internal/assembler"
	"github.com/mrnavastar/launchcore/internal/catalog"
	"github.com/mrnavastar/launchcore/internal/coreerr"
	"github.com/mrnavastar/launchcore/internal/resolve"
	"github.com/mrnavastar/launchcore/internal/supervisor"
)

func (e *Engine) loadInstanceConfig(name string) (*catalog.InstanceConfig, error) {
	path := filepath.Join(e.paths.InstanceDir(name), "instance.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, coreerr.ErrNotFound
		}
		return nil, coreerr.Wrap(coreerr.KindFilesystem, "reading instance.json", err)
	}
	var cfg catalog.InstanceConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, coreerr.Wrap(coreerr.KindSchema, "parsing instance.json", err)
	}
	return &cfg, nil
}

// LaunchInstance implements spec §2's full launch flow: catalog load, auth
// refresh, manifest resolution (usually cached), download (usually a
// no-op), native extraction, assembly, and supervision. The caller owns
// the returned Supervisor; the instance's catalog lock is released
// automatically when OnExited fires (see wrapReleaseOnExit).
func (e *Engine) LaunchInstance(ctx context.Context, name string, callbacks supervisor.Callbacks) (*RunningInstance, error) {
	if err := e.catalog.Acquire(name); err != nil {
		return nil, err
	}

	cfg, err := e.loadInstanceConfig(name)
	if err != nil {
		e.catalog.Release(name)
		return nil, err
	}

	account, err := e.accounts.Active(ctx)
	if err != nil {
		e.catalog.Release(name)
		return nil, err
	}

	profile, err := e.resolveProfile(ctx, cfg.VanillaVersion, cfg.ModloaderType, cfg.ModloaderVersion)
	if err != nil {
		e.catalog.Release(name)
		return nil, err
	}

	if err := e.downloadProfile(ctx, profile); err != nil {
		e.catalog.Release(name)
		return nil, err
	}

	if err := e.runForgeProcessors(ctx, cfg.ModloaderType, cfg.VanillaVersion, cfg.ModloaderVersion); err != nil {
		e.catalog.Release(name)
		return nil, err
	}

	instanceDir := e.paths.InstanceDir(name)
	natDir := filepath.Join(instanceDir, "natives")
	if err := extractNatives(profile, e.paths.Libraries, natDir); err != nil {
		e.catalog.Release(name)
		return nil, err
	}

	jvmPath := e.resolveJVMPath(ctx, cfg.JVMPathOverride, profile)

	launchCtx := assembler.LaunchContext{
		InstanceDir:            instanceDir,
		AssetsRoot:             e.paths.Assets,
		NativesDir:             natDir,
		AdditionalJVMArguments: cfg.AdditionalJVMArguments,
		Resolution: assembler.Resolution{
			Width:     cfg.Resolution.Width,
			Height:    cfg.Resolution.Height,
			Maximized: cfg.Resolution.Maximized,
		},
		Account: assembler.AccountContext{
			PlayerName:  account.Name,
			UUID:        strings.ReplaceAll(account.UUID, "-", ""),
			AccessToken: account.MinecraftAccessToken,
		},
		JVMPath: jvmPath,
	}

	command, err := assembler.Assemble(profile, e.paths.Root, e.paths.Libraries, launchCtx)
	if err != nil {
		e.catalog.Release(name)
		return nil, err
	}

	sup := supervisor.New(name, command, filepath.Join(instanceDir, "logs"), e.logStore, wrapReleaseOnExit(callbacks, e.catalog, name))
	if err := sup.Start(ctx); err != nil {
		e.catalog.Release(name)
		return nil, err
	}

	return &RunningInstance{Name: name, Supervisor: sup}, nil
}

// resolveJVMPath implements spec §12 supplement 1: a per-instance override
// wins outright; otherwise it cross-references the profile's javaVersion
// component against Mojang's runtime manifest and downloads/caches a
// matching JRE, falling back to the launcher-wide override and finally
// "java" on PATH when the profile predates per-platform runtime manifests
// or the download fails.
func (e *Engine) resolveJVMPath(ctx context.Context, instanceOverride string, profile *resolve.ResolvedProfile) string {
	if instanceOverride != "" {
		return instanceOverride
	}
	if profile.JavaComponent != "" {
		if path, err := e.javaRuntimes.EnsureRuntime(ctx, profile.JavaComponent); err == nil {
			return path
		}
	}
	if e.settings.JvmPathOverride != "" {
		return e.settings.JvmPathOverride
	}
	return "java"
}

// wrapReleaseOnExit ensures the instance's running-lock is always
// released when the supervisor reports exit, regardless of what the
// caller's own OnExited callback does.
func wrapReleaseOnExit(callbacks supervisor.Callbacks, cat *catalog.Catalog, name string) supervisor.Callbacks {
	inner := callbacks.OnExited
	callbacks.OnExited = func(code *int) {
		cat.Release(name)
		if inner != nil {
			inner(code)
		}
	}
	return callbacks
}
