package launch

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	kzip "github.com/klauspost/compress/zip"
	"github.com/tidwall/gjson"

	"github.com/mrnavastar/launchcore/internal/catalog"
	"github.com/mrnavastar/launchcore/internal/coreerr"
	"github.com/mrnavastar/launchcore/internal/download"
	"github.com/mrnavastar/launchcore/internal/overlay"
)

// curseforgeManifest is the manifest.json shape found at the root of a
// CurseForge modpack export, grounded on
// original_source/src-tauri/src/web_services/modpack/curseforge.rs's
// CurseforgeManifest (its `files`/`overrides`/`minecraft` fields are kept;
// the rest of that struct tracks metadata the launch path doesn't need).
type curseforgeManifest struct {
	Minecraft struct {
		Version    string `json:"version"`
		ModLoaders []struct {
			ID      string `json:"id"`
			Primary bool   `json:"primary"`
		} `json:"modLoaders"`
	} `json:"minecraft"`
	Name      string `json:"name"`
	Author    string `json:"author"`
	Overrides string `json:"overrides"`
	Files     []struct {
		ProjectID int  `json:"projectID"`
		FileID    int  `json:"fileID"`
		Required  bool `json:"required"`
	} `json:"files"`
}

// ImportZip implements spec §6's import_zip: unpack a CurseForge modpack
// export into a new instance, download its base game/modloader the same
// way obtain_version would, fetch every referenced mod file, and lay the
// pack's overrides/ directory over the instance's minecraft/ directory.
func (e *Engine) ImportZip(ctx context.Context, zipPath string) (string, error) {
	r, err := kzip.OpenReader(zipPath)
	if err != nil {
		return "", coreerr.Wrap(coreerr.KindFilesystem, "opening modpack zip", err)
	}
	defer r.Close()

	manifestFile, err := findEntry(r, "manifest.json")
	if err != nil {
		return "", err
	}
	manifestBytes, err := readZipEntryBytes(manifestFile)
	if err != nil {
		return "", coreerr.Wrap(coreerr.KindFilesystem, "reading modpack manifest", err)
	}

	// A quick tolerant peek before the strict decode below: CurseForge's
	// own exporter is the only producer we support, and it always stamps
	// this field, so a manifest.json without it is some other zip's file
	// of the same name rather than a malformed CurseForge export.
	if manifestType := gjson.GetBytes(manifestBytes, "manifestType").String(); manifestType != "minecraftModpack" {
		return "", coreerr.New(coreerr.KindSchema, "zip is not a CurseForge modpack export (manifestType="+manifestType+")")
	}

	var manifest curseforgeManifest
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return "", coreerr.Wrap(coreerr.KindSchema, "parsing modpack manifest", err)
	}

	modloaderType, modloaderVersion := parseModloader(manifest.Minecraft.ModLoaders)

	instanceName := manifest.Name
	cfg := catalog.InstanceConfig{
		InstanceName:     instanceName,
		VanillaVersion:   manifest.Minecraft.Version,
		ModloaderType:    modloaderType,
		ModloaderVersion: modloaderVersion,
		Resolution:       catalog.Resolution{Width: 854, Height: 480},
		Author:           manifest.Author,
		CreatedAt:        time.Now().UTC().Format(time.RFC3339),
	}
	if err := e.catalog.CreateInstance(cfg); err != nil {
		return "", err
	}

	profile, err := e.resolveProfile(ctx, cfg.VanillaVersion, modloaderType, modloaderVersion)
	if err != nil {
		return "", err
	}
	if err := e.downloadProfile(ctx, profile); err != nil {
		return "", err
	}

	instanceDir := e.paths.InstanceDir(instanceName)
	if err := extractOverrides(r, manifest.Overrides, filepath.Join(instanceDir, "minecraft")); err != nil {
		return "", err
	}

	if err := e.downloadModFiles(ctx, manifest.Files, filepath.Join(instanceDir, "minecraft", "mods")); err != nil {
		return "", err
	}

	log.Info("instance %q imported from %s", instanceName, zipPath)
	return instanceName, nil
}

func parseModloader(loaders []struct {
	ID      string `json:"id"`
	Primary bool   `json:"primary"`
}) (overlay.ModloaderType, string) {
	for _, l := range loaders {
		if !l.Primary && len(loaders) > 1 {
			continue
		}
		switch {
		case strings.HasPrefix(l.ID, "forge-"):
			return overlay.Forge, strings.TrimPrefix(l.ID, "forge-")
		case strings.HasPrefix(l.ID, "fabric-"):
			return overlay.Fabric, strings.TrimPrefix(l.ID, "fabric-")
		}
	}
	return overlay.None, ""
}

func (e *Engine) downloadModFiles(ctx context.Context, files []struct {
	ProjectID int  `json:"projectID"`
	FileID    int  `json:"fileID"`
	Required  bool `json:"required"`
}, modsDir string) error {
	if len(files) == 0 {
		return nil
	}
	tasks := make([]download.FetchTask, 0, len(files))
	for _, f := range files {
		url, err := e.curseforge.FileDownloadURL(ctx, f.ProjectID, f.FileID)
		if err != nil {
			if f.Required {
				return err
			}
			log.Warn("skipping optional mod file %d/%d: %v", f.ProjectID, f.FileID, err)
			continue
		}
		dest := filepath.Join(modsDir, filepath.Base(url))
		tasks = append(tasks, download.FetchTask{
			URL:         url,
			Destination: dest,
			Role:        download.RoleModFile,
		})
	}
	return e.executor.Run(ctx, tasks)
}

func findEntry(r *kzip.ReadCloser, name string) (*kzip.File, error) {
	for _, f := range r.File {
		if f.Name == name {
			return f, nil
		}
	}
	return nil, coreerr.New(coreerr.KindSchema, "modpack zip missing "+name)
}

func readZipEntryBytes(f *kzip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// extractOverrides copies every entry under the manifest's overrides
// directory (commonly "overrides/") into destDir, stripping that prefix,
// mirroring the original Tauri importer's extract_overrides step.
func extractOverrides(r *kzip.ReadCloser, overridesDir, destDir string) error {
	prefix := overridesDir + "/"
	for _, entry := range r.File {
		if entry.FileInfo().IsDir() || !strings.HasPrefix(entry.Name, prefix) {
			continue
		}
		rel := strings.TrimPrefix(entry.Name, prefix)
		dest := filepath.Join(destDir, filepath.FromSlash(rel))
		if !withinDir(dest, destDir) {
			continue
		}
		if err := writeZipEntry(entry, dest); err != nil {
			return coreerr.Wrap(coreerr.KindFilesystem, "extracting modpack override "+entry.Name, err)
		}
	}
	return nil
}

func withinDir(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && !strings.HasPrefix(rel, "..")
}

func writeZipEntry(entry *kzip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, entry.Mode()|0o600)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, rc)
	return err
}
