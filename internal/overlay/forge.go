package overlay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	kzip "github.com/klauspost/compress/zip"

	"github.com/mrnavastar/launchcore/internal/coreerr"
	"github.com/mrnavastar/launchcore/internal/httpclient"
	"github.com/mrnavastar/launchcore/internal/manifest"
	"github.com/mrnavastar/launchcore/internal/resolve"
)

// ForgeEngine drives the Forge install-processor pipeline (spec §4.1
// "Forge path", §9 open question (b), resolved per SPEC_FULL §12 item 2).
//
// Resolving a Forge profile and running its install processors are two
// separate steps on purpose: processors load their own jar and classpath
// out of the shared library root, which only the download planner
// populates. Resolve must therefore run before the planner (it contributes
// the libraries to plan for), and RunProcessors must run after it (so the
// jars it needs are actually on disk). internal/launch/provision.go is what
// sequences the two around downloadProfile.
type ForgeEngine struct {
	http      *httpclient.Pool
	forge     *manifest.ForgeSource
	resolver  *resolve.Resolver
	cacheRoot string
	libraries string
}

func NewForgeEngine(http *httpclient.Pool, forge *manifest.ForgeSource, resolver *resolve.Resolver, cacheRoot, librariesRoot string) *ForgeEngine {
	return &ForgeEngine{http: http, forge: forge, resolver: resolver, cacheRoot: cacheRoot, libraries: librariesRoot}
}

// Resolve downloads (if needed) the Forge installer and overlays its
// version descriptor and library list onto the vanilla profile. It does
// not run install processors — call RunProcessors for that, once the
// libraries this returns have actually been fetched.
func (e *ForgeEngine) Resolve(ctx context.Context, vanillaProfile *resolve.ResolvedProfile, vanillaID, forgeVersion string) (*resolve.ResolvedProfile, error) {
	_, installerPath, err := e.ensureInstaller(ctx, vanillaID, forgeVersion)
	if err != nil {
		return nil, err
	}

	installerProfile, versionDesc, err := extractProfiles(installerPath)
	if err != nil {
		return nil, err
	}

	overlayProfile, err := e.resolver.Flatten(ctx, versionDesc)
	if err != nil {
		return nil, err
	}
	overlayProfile.Libraries = append(overlayProfile.Libraries, flattenInstallerLibraries(installerProfile.Libraries)...)

	return Merge(vanillaProfile, overlayProfile), nil
}

// RunProcessors runs the Forge installer's install processors exactly once
// per (vanillaID, forgeVersion). It must be called only after the profile
// Resolve returned has been downloaded (spec §4.2), since processors
// resolve their own jar and classpath against the shared library root.
func (e *ForgeEngine) RunProcessors(ctx context.Context, vanillaID, forgeVersion string) error {
	buildDir, installerPath, err := e.ensureInstaller(ctx, vanillaID, forgeVersion)
	if err != nil {
		return err
	}

	marker := filepath.Join(buildDir, ".processed")
	if _, err := os.Stat(marker); err == nil {
		return nil
	}

	installerProfile, _, err := extractProfiles(installerPath)
	if err != nil {
		return err
	}

	if err := e.runProcessors(ctx, installerProfile, buildDir, installerPath); err != nil {
		return err
	}
	if err := os.WriteFile(marker, []byte("ok"), 0o644); err != nil {
		log.Warn("failed to write forge processor marker: %v", err)
	}
	return nil
}

// ensureInstaller makes sure forgeVersion's installer jar is downloaded
// into its cache directory, creating the directory if needed.
func (e *ForgeEngine) ensureInstaller(ctx context.Context, vanillaID, forgeVersion string) (buildDir, installerPath string, err error) {
	buildDir = filepath.Join(e.cacheRoot, forgeVersion)
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return "", "", coreerr.Wrap(coreerr.KindFilesystem, "creating forge cache directory", err)
	}

	installerPath = filepath.Join(buildDir, "installer.jar")
	if _, statErr := os.Stat(installerPath); os.IsNotExist(statErr) {
		if err := e.downloadInstaller(ctx, vanillaID, forgeVersion, installerPath); err != nil {
			return "", "", err
		}
	}
	return buildDir, installerPath, nil
}

func (e *ForgeEngine) downloadInstaller(ctx context.Context, vanillaID, forgeVersion, dest string) error {
	url := manifest.InstallerURL(vanillaID, forgeVersion)
	f, err := os.Create(dest)
	if err != nil {
		return coreerr.Wrap(coreerr.KindFilesystem, "creating forge installer file", err)
	}
	defer f.Close()

	if _, err := e.http.StreamTo(ctx, url, f, nil); err != nil {
		os.Remove(dest)
		return coreerr.Wrap(coreerr.KindNetwork, fmt.Sprintf("downloading forge installer %s", url), err)
	}
	return nil
}

// extractProfiles reads install_profile.json and version.json out of the
// installer jar using klauspost/compress/zip, the faster drop-in for
// archive/zip's read side (DESIGN.md).
func extractProfiles(installerPath string) (*manifest.ForgeInstallerProfile, *manifest.VersionDescriptor, error) {
	r, err := kzip.OpenReader(installerPath)
	if err != nil {
		return nil, nil, coreerr.Wrap(coreerr.KindFilesystem, "opening forge installer jar", err)
	}
	defer r.Close()

	var installerBytes, versionBytes []byte
	for _, f := range r.File {
		switch f.Name {
		case "install_profile.json":
			installerBytes, err = readZipEntry(f)
		case "version.json":
			versionBytes, err = readZipEntry(f)
		}
		if err != nil {
			return nil, nil, coreerr.Wrap(coreerr.KindFilesystem, "reading forge installer entry "+f.Name, err)
		}
	}
	if installerBytes == nil {
		return nil, nil, coreerr.New(coreerr.KindSchema, "forge installer jar missing install_profile.json")
	}

	profile, err := manifest.ParseInstallerProfile(installerBytes)
	if err != nil {
		return nil, nil, err
	}

	desc := &profile.Descriptor
	if versionBytes != nil {
		var embedded manifest.VersionDescriptor
		if err := json.Unmarshal(versionBytes, &embedded); err == nil {
			desc = &embedded
		}
	}
	if desc.InheritsFrom == "" {
		if idx := strings.Index(profile.Version, "-"); idx > 0 {
			desc.InheritsFrom = profile.Version[:idx]
		}
	}
	return profile, desc, nil
}

func readZipEntry(f *kzip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// runProcessors executes every install processor in order, confined to
// buildDir (SPEC_FULL §12 item 2): each processor's working directory is
// buildDir, and every output path it declares is canonicalized and checked
// to still be inside buildDir before the processor is trusted to have
// written anything at all.
func (e *ForgeEngine) runProcessors(ctx context.Context, profile *manifest.ForgeInstallerProfile, buildDir, installerPath string) error {
	data := flattenProcessorData(profile.Data, buildDir, installerPath)

	for i, proc := range profile.Processors {
		if !appliesToClient(proc.Sides) {
			continue
		}

		jarPath, err := e.libraryFile(proc.Jar)
		if err != nil {
			return err
		}
		mainClass, err := jarMainClass(jarPath)
		if err != nil {
			return coreerr.Wrap(coreerr.KindInstallProcessor, fmt.Sprintf("reading main class of processor %d", i), err)
		}

		classpath := []string{jarPath}
		for _, coordinate := range proc.Classpath {
			p, err := e.libraryFile(coordinate)
			if err != nil {
				return err
			}
			classpath = append(classpath, p)
		}

		args := make([]string, len(proc.Args))
		for j, a := range proc.Args {
			args[j] = substitute(a, data)
		}

		cmd := exec.CommandContext(ctx, "java", append([]string{"-cp", strings.Join(classpath, classpathSeparator()), mainClass}, args...)...)
		cmd.Dir = buildDir
		output, err := cmd.CombinedOutput()
		if err != nil {
			return coreerr.Wrap(coreerr.KindInstallProcessor, fmt.Sprintf("install processor %d failed: %s", i, string(output)), err)
		}

		for _, outPath := range proc.Outputs {
			resolvedOut := substitute(outPath, data)
			if err := requireWithinDir(resolvedOut, buildDir); err != nil {
				return err
			}
		}
	}
	return nil
}

func appliesToClient(sides []string) bool {
	if len(sides) == 0 {
		return true
	}
	for _, s := range sides {
		if s == "client" {
			return true
		}
	}
	return false
}

// requireWithinDir enforces SPEC_FULL §12 item 2's sandbox: a processor
// output must canonicalize to a path inside root, or the install fails
// closed.
func requireWithinDir(path, root string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return coreerr.Wrap(coreerr.KindInstallProcessor, "canonicalizing processor output path", err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return coreerr.Wrap(coreerr.KindInstallProcessor, "canonicalizing forge cache root", err)
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return coreerr.New(coreerr.KindInstallProcessor, fmt.Sprintf("install processor wrote outside its sandbox: %s", path))
	}
	return nil
}

func classpathSeparator() string {
	if os.PathSeparator == '\\' {
		return ";"
	}
	return ":"
}

func substitute(template string, data map[string]string) string {
	out := template
	for key, value := range data {
		out = strings.ReplaceAll(out, "{"+key+"}", value)
	}
	return out
}

func flattenProcessorData(data map[string]map[string]string, buildDir, installerPath string) map[string]string {
	flat := map[string]string{
		"INSTALLER": installerPath,
		"ROOT":      buildDir,
	}
	for key, sides := range data {
		if v, ok := sides["client"]; ok {
			flat[key] = strings.Trim(v, "'\"")
		}
	}
	return flat
}

// libraryFile resolves a processor's jar/classpath coordinate against the
// shared library root, the same place the download planner (spec §4.2)
// fetches every profile library to.
func (e *ForgeEngine) libraryFile(coordinate string) (string, error) {
	path, err := manifest.LibraryPath(coordinate)
	if err != nil {
		return "", coreerr.Wrap(coreerr.KindSchema, "resolving processor library path", err)
	}
	full := filepath.Join(e.libraries, path)
	if _, err := os.Stat(full); err != nil {
		return "", coreerr.Wrap(coreerr.KindInstallProcessor, "install processor library not downloaded: "+coordinate, err)
	}
	return full, nil
}

// jarMainClass reads Main-Class out of a jar's manifest; processors are
// plain executable jars.
func jarMainClass(jarPath string) (string, error) {
	r, err := kzip.OpenReader(jarPath)
	if err != nil {
		return "", err
	}
	defer r.Close()
	for _, f := range r.File {
		if f.Name != "META-INF/MANIFEST.MF" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			return "", err
		}
		for _, line := range strings.Split(string(content), "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "Main-Class:") {
				return strings.TrimSpace(strings.TrimPrefix(line, "Main-Class:")), nil
			}
		}
	}
	return "", fmt.Errorf("no Main-Class entry in %s", jarPath)
}

func flattenInstallerLibraries(libs []manifest.Library) []resolve.ResolvedLibrary {
	var out []resolve.ResolvedLibrary
	for _, lib := range libs {
		if lib.Downloads.Artifact == nil {
			continue
		}
		path := lib.Downloads.Artifact.Path
		if path == "" {
			p, err := manifest.LibraryPath(lib.Name)
			if err != nil {
				continue
			}
			path = p
		}
		out = append(out, resolve.ResolvedLibrary{
			Coordinate: lib.Name,
			LocalPath:  path,
			RemoteURL:  lib.Downloads.Artifact.URL,
			SHA1:       lib.Downloads.Artifact.SHA1,
			Size:       lib.Downloads.Artifact.Size,
			Role:       resolve.RoleClasspath,
		})
	}
	return out
}
