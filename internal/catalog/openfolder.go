package catalog

import (
	"os/exec"
	"runtime"

	"github.com/mrnavastar/launchcore/internal/coreerr"
)

// OpenFolder opens the OS file explorer at the instance directory (spec
// §4.7). No corpus example wraps a cross-platform "reveal in file manager"
// call, and the three OS openers (xdg-open/open/explorer) are a one-line
// os/exec dispatch each, so this stays on the standard library rather than
// pulling in a dependency for three command names.
func (c *Catalog) OpenFolder(name string) error {
	dir := c.paths.InstanceDir(name)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("explorer", dir)
	case "darwin":
		cmd = exec.Command("open", dir)
	default:
		cmd = exec.Command("xdg-open", dir)
	}

	if err := cmd.Start(); err != nil {
		return coreerr.Wrap(coreerr.KindFilesystem, "opening instance folder", err)
	}
	return nil
}
