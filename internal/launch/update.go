package launch

import (
	"context"

	"github.com/mrnavastar/launchcore/internal/overlay"
)

// UpdateCheck is check_for_update's response shape: the instance's pinned
// loader version, whatever the matching source currently considers latest,
// and whether the two differ. It never applies anything itself.
type UpdateCheck struct {
	ModloaderType   overlay.ModloaderType `json:"modloaderType"`
	CurrentVersion  string                `json:"currentVersion"`
	LatestVersion   string                `json:"latestVersion"`
	UpdateAvailable bool                  `json:"updateAvailable"`
}

// CheckForUpdate implements the Fabric/Forge update check the teacher's
// UpdateInstance carried: it fetches the latest loader version published
// for the instance's modloader and flags whether the instance is pinned to
// something else. Vanilla-only instances and those without a modloader
// have nothing to check against and always report no update available.
func (e *Engine) CheckForUpdate(ctx context.Context, instanceName string) (*UpdateCheck, error) {
	cfg, err := e.loadInstanceConfig(instanceName)
	if err != nil {
		return nil, err
	}

	check := &UpdateCheck{
		ModloaderType:  cfg.ModloaderType,
		CurrentVersion: cfg.ModloaderVersion,
	}

	switch cfg.ModloaderType {
	case overlay.Fabric:
		latest, err := e.fabric.LatestStableLoader(ctx)
		if err != nil {
			return nil, err
		}
		check.LatestVersion = latest
	case overlay.Forge:
		versions, err := e.forge.VersionsFor(ctx, cfg.VanillaVersion)
		if err != nil {
			return nil, err
		}
		if len(versions) > 0 {
			check.LatestVersion = versions[0] // VersionsFor orders newest first
		}
	default:
		return check, nil
	}

	check.UpdateAvailable = check.LatestVersion != "" && check.LatestVersion != check.CurrentVersion
	return check, nil
}
