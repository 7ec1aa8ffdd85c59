package download

import (
	"path/filepath"

	"github.com/mrnavastar/launchcore/internal/config"
	"github.com/mrnavastar/launchcore/internal/manifest"
	"github.com/mrnavastar/launchcore/internal/resolve"
)

// Plan implements spec §4.2's planning step: produce a FetchTask per
// library/native, the client jar, the asset index, every referenced asset
// object, and the optional logging config, deduplicated by destination.
func Plan(profile *resolve.ResolvedProfile, assetIndex *manifest.AssetIndex, paths config.Paths) []FetchTask {
	seen := make(map[string]bool)
	var tasks []FetchTask

	add := func(t FetchTask) {
		if t.URL == "" || seen[t.Destination] {
			return
		}
		seen[t.Destination] = true
		tasks = append(tasks, t)
	}

	for _, lib := range profile.Libraries {
		role := RoleLibrary
		if lib.Role == resolve.RoleNative {
			role = RoleNative
		}
		add(FetchTask{
			URL:          lib.RemoteURL,
			Destination:  filepath.Join(paths.Libraries, filepath.FromSlash(lib.LocalPath)),
			ExpectedSHA1: lib.SHA1,
			ExpectedSize: lib.Size,
			Role:         role,
		})
	}

	add(FetchTask{
		URL:          profile.ClientJar.RemoteURL,
		Destination:  filepath.Join(paths.Root, filepath.FromSlash(profile.ClientJar.LocalPath)),
		ExpectedSHA1: profile.ClientJar.SHA1,
		ExpectedSize: profile.ClientJar.Size,
		Role:         RoleClientJar,
	})

	if profile.AssetIndex.URL != "" {
		add(FetchTask{
			URL:          profile.AssetIndex.URL,
			Destination:  filepath.Join(paths.AssetIndexes, profile.AssetIndex.ID+".json"),
			ExpectedSHA1: profile.AssetIndex.SHA1,
			ExpectedSize: profile.AssetIndex.Size,
			Role:         RoleAssetIndex,
		})
	}

	if assetIndex != nil {
		for _, obj := range assetIndex.Objects {
			if len(obj.Hash) < 2 {
				continue
			}
			prefix := obj.Hash[:2]
			add(FetchTask{
				URL:          "https://resources.download.minecraft.net/" + prefix + "/" + obj.Hash,
				Destination:  filepath.Join(paths.AssetObjects, prefix, obj.Hash),
				ExpectedSHA1: obj.Hash,
				ExpectedSize: obj.Size,
				Role:         RoleAssetObject,
			})
		}
	}

	if profile.Logging != nil {
		add(FetchTask{
			URL:          profile.Logging.File.RemoteURL,
			Destination:  filepath.Join(paths.Root, filepath.FromSlash(profile.Logging.File.LocalPath)),
			ExpectedSHA1: profile.Logging.File.SHA1,
			ExpectedSize: profile.Logging.File.Size,
			Role:         RoleLoggingConfig,
		})
	}

	return tasks
}
