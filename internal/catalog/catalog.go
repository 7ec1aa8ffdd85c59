package catalog

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/buger/jsonparser"
	"github.com/zeebo/blake3"

	"github.com/mrnavastar/launchcore/internal/config"
	"github.com/mrnavastar/launchcore/internal/coreerr"
	"github.com/mrnavastar/launchcore/internal/logging"
	"github.com/mrnavastar/launchcore/internal/overlay"
	"github.com/mrnavastar/launchcore/internal/supervisor"
)

var log = logging.For("catalog")

// Catalog owns the instance directory tree and the single-writer lock
// table spec §5 requires: "only one launch per instance is permitted at a
// time... a second launch_instance returns AlreadyRunning".
type Catalog struct {
	paths config.Paths

	mu      sync.Mutex
	running map[string]bool
}

func New(paths config.Paths) *Catalog {
	return &Catalog{paths: paths, running: map[string]bool{}}
}

// CreateInstance makes <app>/instances/<name>/ with its instance.json and
// the fixed subdirectory set (spec §4.7). Fails with AlreadyExists if the
// directory already exists.
func (c *Catalog) CreateInstance(cfg InstanceConfig) error {
	if cfg.InstanceName == "" {
		return coreerr.New(coreerr.KindConfig, "instance_name must not be empty")
	}
	dir := c.paths.InstanceDir(cfg.InstanceName)
	if _, err := os.Stat(dir); err == nil {
		return coreerr.ErrAlreadyExists
	}

	for _, sub := range []string{"", "minecraft", "logs", "screenshots", "natives"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return coreerr.Wrap(coreerr.KindFilesystem, "creating instance directory", err)
		}
	}

	if cfg.ContentID == "" {
		cfg.ContentID = contentID(cfg)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return coreerr.Wrap(coreerr.KindSchema, "encoding instance.json", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "instance.json"), data, 0o644); err != nil {
		return coreerr.Wrap(coreerr.KindFilesystem, "writing instance.json", err)
	}
	return nil
}

// LoadInstances scans the instances directory and returns every
// successfully parsed config, sorted by instance name using natural
// (numeric-aware) collation (spec §4.7).
func (c *Catalog) LoadInstances() ([]InstanceConfig, error) {
	entries, err := os.ReadDir(c.paths.Instances)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, coreerr.Wrap(coreerr.KindFilesystem, "listing instances directory", err)
	}

	var configs []InstanceConfig
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(c.paths.Instances, entry.Name(), "instance.json")
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("skipping %s: %v", entry.Name(), err)
			continue
		}
		var cfg InstanceConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			migrated, ok := migrateLegacyInstanceConfig(data, entry.Name())
			if !ok {
				log.Warn("skipping %s: malformed instance.json: %v", entry.Name(), err)
				continue
			}
			log.Info("migrated legacy instance.json for %s", entry.Name())
			cfg = migrated
		}
		configs = append(configs, cfg)
	}

	sort.Slice(configs, func(i, j int) bool {
		return naturalLess(configs[i].InstanceName, configs[j].InstanceName)
	})
	return configs, nil
}

// GetScreenshots lists screenshots/*.png sorted descending by filename
// (spec §4.7: "timestamp-prefixed filenames sort chronologically").
func (c *Catalog) GetScreenshots(name string) ([]string, error) {
	dir := filepath.Join(c.paths.InstanceDir(name), "screenshots")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, coreerr.Wrap(coreerr.KindFilesystem, "listing screenshots", err)
	}

	var shots []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".png") {
			continue
		}
		shots = append(shots, filepath.Join(dir, entry.Name()))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(shots)))
	return shots, nil
}

// GetLogs returns every log id (the live "running" buffer, if any, plus
// every sealed file) mapped to its classified lines.
func (c *Catalog) GetLogs(name string, live *supervisor.Supervisor) (map[string][]LogLine, error) {
	out := map[string][]LogLine{}
	if live != nil {
		out["running"] = taggedToLogLines(live.LiveBuffer())
	}

	dir := filepath.Join(c.paths.InstanceDir(name), "logs")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, coreerr.Wrap(coreerr.KindFilesystem, "listing logs", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == "latest.log" {
			continue
		}
		lines, err := readLogFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Warn("skipping log %s/%s: %v", name, entry.Name(), err)
			continue
		}
		out[entry.Name()] = lines
	}
	return out, nil
}

// ReadLogLines implements spec §4.7's read_log_lines: "running" reads the
// live in-memory buffer, anything else reads and reclassifies a sealed
// file from disk.
func (c *Catalog) ReadLogLines(name, logID string, live *supervisor.Supervisor) ([]LogLine, error) {
	if logID == "running" {
		if live == nil {
			return nil, coreerr.New(coreerr.KindNotFound, "instance is not running")
		}
		return taggedToLogLines(live.LiveBuffer()), nil
	}
	path := filepath.Join(c.paths.InstanceDir(name), "logs", logID)
	return readLogFile(path)
}

func taggedToLogLines(lines []supervisor.TaggedLine) []LogLine {
	out := make([]LogLine, len(lines))
	for i, l := range lines {
		out[i] = LogLine{Line: l.Text, LineType: lineKindToType(l.Kind)}
	}
	return out
}

func readLogFile(path string) ([]LogLine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindFilesystem, "reading log file", err)
	}
	var out []LogLine
	for _, raw := range strings.Split(string(data), "\n") {
		if raw == "" {
			continue
		}
		text := stripLogPrefix(raw)
		out = append(out, LogLine{Line: text, LineType: lineKindToType(supervisor.Classify(text))})
	}
	return out, nil
}

// stripLogPrefix removes the "[timestamp] [kind] " prefix logAppender
// writes, so rotated files reclassify the underlying game line rather than
// the decorated one.
func stripLogPrefix(line string) string {
	if !strings.HasPrefix(line, "[") {
		return line
	}
	idx := strings.Index(line, "] [")
	if idx == -1 {
		return line
	}
	rest := line[idx+3:]
	end := strings.Index(rest, "] ")
	if end == -1 {
		return line
	}
	return rest[end+2:]
}

func lineKindToType(k supervisor.LineKind) string {
	switch k {
	case supervisor.Warn:
		return "warning"
	case supervisor.Error:
		return "error"
	default:
		return ""
	}
}

// Acquire marks an instance as running, enforcing spec §5's single-writer
// rule: a second launch of the same instance name returns AlreadyRunning.
func (c *Catalog) Acquire(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running[name] {
		return coreerr.ErrAlreadyRunning
	}
	c.running[name] = true
	return nil
}

// Release clears an instance's running mark on exit.
func (c *Catalog) Release(name string) {
	c.mu.Lock()
	delete(c.running, name)
	c.mu.Unlock()
}

// contentID hashes the fields that define what an instance *is* (name,
// version, modloader) with blake3, giving a short stable identifier that
// survives a rename-and-recreate cycle differently from InstanceName
// alone. Not used for lookup today, only carried for future export/dedup
// tooling (SPEC_FULL §12 supplement).
func contentID(cfg InstanceConfig) string {
	h := blake3.New()
	h.Write([]byte(cfg.InstanceName))
	h.Write([]byte{0})
	h.Write([]byte(cfg.VanillaVersion))
	h.Write([]byte{0})
	h.Write([]byte(cfg.ModloaderType.String()))
	h.Write([]byte{0})
	h.Write([]byte(cfg.ModloaderVersion))
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// migrateLegacyInstanceConfig tolerantly recovers an InstanceConfig from
// an instance.json that fails strict decoding: older builds wrote the
// same four core fields with no ContentID and occasionally extra or
// reordered keys. jsonparser pulls just those fields out without
// requiring the whole document to match InstanceConfig's current shape.
func migrateLegacyInstanceConfig(data []byte, dirName string) (InstanceConfig, bool) {
	name, err := jsonparser.GetString(data, "instance_name")
	if err != nil || name == "" {
		name = dirName
	}
	vanilla, _ := jsonparser.GetString(data, "vanilla_version")
	if vanilla == "" {
		return InstanceConfig{}, false
	}
	modloaderStr, _ := jsonparser.GetString(data, "modloader_type")
	modloaderVersion, _ := jsonparser.GetString(data, "modloader_version")
	createdAt, _ := jsonparser.GetString(data, "created_at")

	var modloader overlay.ModloaderType
	switch modloaderStr {
	case "Fabric":
		modloader = overlay.Fabric
	case "Forge":
		modloader = overlay.Forge
	default:
		modloader = overlay.None
	}

	cfg := InstanceConfig{
		InstanceName:     name,
		VanillaVersion:   vanilla,
		ModloaderType:    modloader,
		ModloaderVersion: modloaderVersion,
		CreatedAt:        createdAt,
		Resolution:       Resolution{Width: 854, Height: 480},
	}
	cfg.ContentID = contentID(cfg)
	return cfg, true
}

// naturalLess implements numeric-aware collation (spec §4.7): runs of
// digits compare by value rather than lexicographically, so "Minecraft 2"
// sorts before "Minecraft 10".
func naturalLess(a, b string) bool {
	ai, bi := 0, 0
	for ai < len(a) && bi < len(b) {
		ac, bc := a[ai], b[bi]
		if isDigit(ac) && isDigit(bc) {
			aStart, bStart := ai, bi
			for ai < len(a) && isDigit(a[ai]) {
				ai++
			}
			for bi < len(b) && isDigit(b[bi]) {
				bi++
			}
			an, aerr := strconv.Atoi(a[aStart:ai])
			bn, berr := strconv.Atoi(b[bStart:bi])
			if aerr == nil && berr == nil && an != bn {
				return an < bn
			}
			continue
		}
		if ac != bc {
			return ac < bc
		}
		ai++
		bi++
	}
	return len(a)-ai < len(b)-bi
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
