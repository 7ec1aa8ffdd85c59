// Package natives extracts platform-native archives into a per-instance
// natives directory, honoring include/exclude filters (spec §4.3).
package natives

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/mrnavastar/launchcore/internal/coreerr"
	"github.com/mrnavastar/launchcore/internal/logging"
	"github.com/mrnavastar/launchcore/internal/resolve"
)

var log = logging.For("natives")

// alwaysExcluded matches spec §4.3: "META-INF/ is always skipped"
// regardless of what the library's own extract_rules say.
const alwaysExcluded = "META-INF/"

// Extract clears destDir and unpacks every native library's archive into
// it, skipping entries under META-INF/ and any exclude prefix the library
// declares (spec §4.3). Files are written atomically: each entry is
// written to a temp path in destDir and renamed into place, so a reader
// racing the extraction never observes a partial file.
func Extract(libraries []resolve.ResolvedLibrary, librariesRoot, destDir string) error {
	if err := os.RemoveAll(destDir); err != nil {
		return coreerr.Wrap(coreerr.KindFilesystem, "clearing natives directory", err)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return coreerr.Wrap(coreerr.KindFilesystem, "creating natives directory", err)
	}

	for _, lib := range libraries {
		if lib.Role != resolve.RoleNative {
			continue
		}
		archivePath := filepath.Join(librariesRoot, filepath.FromSlash(lib.LocalPath))
		excludes := []string{alwaysExcluded}
		if lib.ExtractRules != nil {
			excludes = append(excludes, lib.ExtractRules.Exclude...)
		}
		if err := extractArchive(archivePath, destDir, excludes); err != nil {
			return coreerr.Wrap(coreerr.KindFilesystem, "extracting natives from "+lib.Coordinate, err)
		}
	}
	return nil
}

func extractArchive(archivePath, destDir string, excludes []string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, entry := range r.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		if isExcluded(entry.Name, excludes) {
			continue
		}

		dest := filepath.Join(destDir, filepath.FromSlash(entry.Name))
		if !withinDir(dest, destDir) {
			log.Warn("skipping native archive entry with unsafe path: %s", entry.Name)
			continue
		}
		if err := writeEntry(entry, dest); err != nil {
			return err
		}
	}
	return nil
}

func isExcluded(name string, excludes []string) bool {
	for _, prefix := range excludes {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func withinDir(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && !strings.HasPrefix(rel, "..")
}

func writeEntry(entry *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	tmp := dest + ".extracting"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, entry.Mode()|0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}
