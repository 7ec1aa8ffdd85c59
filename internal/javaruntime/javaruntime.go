// Package javaruntime resolves a version descriptor's javaVersion
// component (spec §12 supplement 1) against Mojang's per-platform Java
// runtime manifest, downloading a self-contained JRE into the launcher's
// cache the first time a given component/platform pair is needed.
//
// Grounded on original_source/src-tauri/src/web_services/resources.rs's
// determine_key_for_java_manifest/download_java_from_runtime_manifest,
// generalized from Tauri's fs/sync model into a context-aware Go client
// using the same httpclient.Pool and integrity verifier the rest of the
// download path uses.
package javaruntime

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"

	"github.com/mrnavastar/launchcore/internal/coreerr"
	"github.com/mrnavastar/launchcore/internal/httpclient"
	"github.com/mrnavastar/launchcore/internal/integrity"
	"github.com/mrnavastar/launchcore/internal/logging"
)

var log = logging.For("javaruntime")

const manifestURL = "https://launchermeta.mojang.com/v1/products/java-runtime/2ec0cc96c44e5a76b9c8b7c39df7210883d12871/all.json"

// platformKey mirrors determine_key_for_java_manifest: GOOS/GOARCH are
// normalized to the keys Mojang's manifest indexes by.
func platformKey() string {
	goos := runtime.GOOS
	if goos == "darwin" {
		goos = "mac-os"
	}
	switch goos {
	case "linux":
		if runtime.GOARCH == "386" {
			return "linux-i386"
		}
		return "linux"
	case "mac-os":
		if runtime.GOARCH == "arm64" {
			return "mac-os-arm64"
		}
		return "mac-os"
	case "windows":
		if runtime.GOARCH == "386" {
			return "windows-x86"
		}
		return "windows-x64"
	default:
		return goos
	}
}

type componentAvailability struct {
	Manifest struct {
		SHA1 string `json:"sha1"`
		Size int64  `json:"size"`
		URL  string `json:"url"`
	} `json:"manifest"`
	Version struct {
		Name string `json:"name"`
	} `json:"version"`
}

// platformManifest is the top-level all.json shape: platform key -> component
// name -> list of candidate availabilities (Mojang keeps one entry per
// component in practice, but the manifest models it as a list).
type platformManifest map[string]map[string][]componentAvailability

type runtimeManifest struct {
	Files map[string]runtimeEntry `json:"files"`
}

type runtimeEntry struct {
	Type      string `json:"type"`
	Target    string `json:"target,omitempty"`
	Executable bool   `json:"executable,omitempty"`
	Downloads  struct {
		Raw struct {
			SHA1 string `json:"sha1"`
			Size int64  `json:"size"`
			URL  string `json:"url"`
		} `json:"raw"`
	} `json:"downloads"`
}

// Client downloads and caches self-contained JREs keyed by component name.
type Client struct {
	http     *httpclient.Pool
	cacheDir string
}

func New(http *httpclient.Pool, cacheDir string) *Client {
	return &Client{http: http, cacheDir: cacheDir}
}

// EnsureRuntime resolves `component` (a version descriptor's
// javaVersion.component, e.g. "java-runtime-gamma") for the host platform,
// downloading it into cacheDir/<component>/<version-name> on first use, and
// returns the path to the `java` binary inside it. Returns a KindNotFound
// error when the manifest has no entry for the host platform, or none for
// `component` on it; the caller falls back to another JVM on any error.
// Descriptors lacking a javaVersion entry never reach this function.
func (c *Client) EnsureRuntime(ctx context.Context, component string) (string, error) {
	key := platformKey()

	var manifest platformManifest
	if err := c.http.GetJSON(ctx, manifestURL, &manifest); err != nil {
		return "", coreerr.Wrap(coreerr.KindNetwork, "fetching java runtime manifest", err)
	}

	components, ok := manifest[key]
	if !ok {
		return "", coreerr.New(coreerr.KindNotFound, "no java runtime manifest entries for platform "+key)
	}
	availabilities := components[component]

	var chosen *componentAvailability
	for i := range availabilities {
		if availabilities[i].Version.Name != "" {
			a := availabilities[i]
			chosen = &a
			break
		}
	}
	if chosen == nil {
		return "", coreerr.New(coreerr.KindNotFound, "no java runtime published for component "+component)
	}

	basePath := filepath.Join(c.cacheDir, component, chosen.Version.Name)
	javaBin := "java"
	if runtime.GOOS == "windows" {
		javaBin = "java.exe"
	}
	javaPath := filepath.Join(basePath, "bin", javaBin)

	if _, err := os.Stat(javaPath); err == nil {
		return javaPath, nil
	}

	if err := c.download(ctx, chosen.Manifest.URL, basePath); err != nil {
		return "", err
	}
	log.Info("downloaded java runtime %s for %s", chosen.Version.Name, key)
	return javaPath, nil
}

func (c *Client) download(ctx context.Context, versionManifestURL, basePath string) error {
	resp, err := c.http.Client().R().SetContext(ctx).Get(versionManifestURL)
	if err != nil {
		return coreerr.Wrap(coreerr.KindNetwork, "fetching java runtime version manifest", err)
	}
	var rm runtimeManifest
	if err := json.Unmarshal(resp.Body(), &rm); err != nil {
		return coreerr.Wrap(coreerr.KindSchema, "parsing java runtime version manifest", err)
	}

	for relPath, entry := range rm.Files {
		dest := filepath.Join(basePath, relPath)
		switch entry.Type {
		case "directory":
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return coreerr.Wrap(coreerr.KindFilesystem, "creating java runtime directory", err)
			}
		case "file":
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return coreerr.Wrap(coreerr.KindFilesystem, "creating java runtime parent directory", err)
			}
			if err := c.downloadFile(ctx, entry, dest); err != nil {
				return err
			}
		case "link":
			// Symlinks are best-effort: a broken link still leaves the
			// referenced file reachable via its real path.
			target := filepath.Join(filepath.Dir(dest), entry.Target)
			_ = os.Symlink(target, dest)
		}
	}
	return nil
}

func (c *Client) downloadFile(ctx context.Context, entry runtimeEntry, dest string) error {
	resp, err := c.http.Client().R().SetContext(ctx).Get(entry.Downloads.Raw.URL)
	if err != nil {
		return coreerr.Wrap(coreerr.KindNetwork, "downloading java runtime file", err)
	}
	body := resp.Body()
	verifier, err := integrity.NewVerifier(integrity.SHA1)
	if err != nil {
		return err
	}
	if _, err := verifier.Write(body); err != nil {
		return coreerr.Wrap(coreerr.KindFilesystem, "hashing java runtime file", err)
	}
	if !verifier.Matches(entry.Downloads.Raw.SHA1) {
		return coreerr.New(coreerr.KindIntegrity, "java runtime file hash mismatch: "+dest)
	}

	mode := os.FileMode(0o644)
	if entry.Executable {
		mode = 0o755
	}
	if err := os.WriteFile(dest, body, mode); err != nil {
		return coreerr.Wrap(coreerr.KindFilesystem, "writing java runtime file", err)
	}
	return nil
}
