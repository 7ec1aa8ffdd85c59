package resolve

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/mrnavastar/launchcore/internal/coreerr"
)

// DiskCache satisfies manifest.Cache by reading/writing JSON blobs under a
// root directory, generalizing the teacher's modman.json-next-to-its-data
// convention (util/fileutils/filehelpers.go's Setup/AddProfile) into a
// keyed cache instead of one monolithic file.
type DiskCache struct {
	root string
}

func NewDiskCache(root string) *DiskCache {
	return &DiskCache{root: root}
}

func (c *DiskCache) path(key string) string {
	return filepath.Join(c.root, filepath.FromSlash(key))
}

func (c *DiskCache) ReadJSON(key string, out any) (bool, error) {
	data, err := os.ReadFile(c.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, coreerr.Wrap(coreerr.KindFilesystem, "reading cache entry "+key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, coreerr.Wrap(coreerr.KindSchema, "decoding cache entry "+key, err)
	}
	return true, nil
}

func (c *DiskCache) WriteJSON(key string, value any) error {
	dest := c.path(key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return coreerr.Wrap(coreerr.KindFilesystem, "creating cache directory for "+key, err)
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return coreerr.Wrap(coreerr.KindSchema, "encoding cache entry "+key, err)
	}
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return coreerr.Wrap(coreerr.KindFilesystem, "writing cache entry "+key, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return coreerr.Wrap(coreerr.KindFilesystem, "renaming cache entry "+key, err)
	}
	return nil
}
