// Package config resolves the application's on-disk layout (spec §6) and
// loads the ambient launcher-level settings file that sits alongside it.
package config

import (
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
	"encoding/json"

	"github.com/mrnavastar/launchcore/internal/logging"
)

var log = logging.For("config")

// Paths is the resolved filesystem layout rooted at the application config
// directory, matching spec §6's tree exactly.
type Paths struct {
	Root         string
	Instances    string
	Versions     string
	Libraries    string
	Assets       string
	AssetIndexes string
	AssetObjects string
	ForgeCache   string
}

func NewPaths(root string) Paths {
	return Paths{
		Root:         root,
		Instances:    filepath.Join(root, "instances"),
		Versions:     filepath.Join(root, "versions"),
		Libraries:    filepath.Join(root, "libraries"),
		Assets:       filepath.Join(root, "assets"),
		AssetIndexes: filepath.Join(root, "assets", "indexes"),
		AssetObjects: filepath.Join(root, "assets", "objects"),
		ForgeCache:   filepath.Join(root, "forge-cache"),
	}
}

func (p Paths) EnsureAll() error {
	for _, dir := range []string{p.Root, p.Instances, p.Versions, p.Libraries, p.AssetIndexes, p.AssetObjects, p.ForgeCache} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (p Paths) InstanceDir(name string) string   { return filepath.Join(p.Instances, name) }
func (p Paths) AccountsFile() string              { return filepath.Join(p.Root, "accounts.json") }
func (p Paths) LauncherSettingsFile() string       { return filepath.Join(p.Root, "launcher.jsonc") }

// Settings are ambient, launcher-wide knobs. Not part of spec §6's file
// layout contract (that layout is launcher *state*; this is launcher
// *behavior*), which is why it is allowed to live in a commented JSONC file
// instead of strict JSON.
type Settings struct {
	DownloadConcurrency int    `json:"downloadConcurrency"`
	LogLevel            string `json:"logLevel"`
	JvmPathOverride     string `json:"jvmPathOverride"`
	OTLPEndpoint        string `json:"otlpEndpoint"`
	RPCListenAddr       string `json:"rpcListenAddr"`
	CurseForgeAPIKey    string `json:"curseForgeApiKey"`
}

func DefaultSettings() Settings {
	return Settings{
		DownloadConcurrency: 16,
		LogLevel:            "info",
		RPCListenAddr:       "127.0.0.1:41523",
	}
}

// Load reads launcher.jsonc if present, falling back to defaults for any
// field left unset. A missing file is not an error.
func Load(p Paths) (Settings, error) {
	settings := DefaultSettings()
	data, err := os.ReadFile(p.LauncherSettingsFile())
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, err
	}

	stripped := jsonc.ToJSON(data)
	var overrides Settings
	if err := json.Unmarshal(stripped, &overrides); err != nil {
		log.Warn("failed to parse launcher.jsonc, using defaults: %v", err)
		return settings, nil
	}
	if overrides.DownloadConcurrency > 0 {
		settings.DownloadConcurrency = overrides.DownloadConcurrency
	}
	if overrides.LogLevel != "" {
		settings.LogLevel = overrides.LogLevel
	}
	if overrides.JvmPathOverride != "" {
		settings.JvmPathOverride = overrides.JvmPathOverride
	}
	if overrides.OTLPEndpoint != "" {
		settings.OTLPEndpoint = overrides.OTLPEndpoint
	}
	if overrides.RPCListenAddr != "" {
		settings.RPCListenAddr = overrides.RPCListenAddr
	}
	if overrides.CurseForgeAPIKey != "" {
		settings.CurseForgeAPIKey = overrides.CurseForgeAPIKey
	}
	return settings, nil
}

func ApplyLogLevel(s Settings) {
	if os.Getenv("DEBUG") == "1" {
		logging.SetLevel(logging.LevelDebug)
		return
	}
	switch s.LogLevel {
	case "debug":
		logging.SetLevel(logging.LevelDebug)
	case "warn":
		logging.SetLevel(logging.LevelWarn)
	case "error":
		logging.SetLevel(logging.LevelError)
	default:
		logging.SetLevel(logging.LevelInfo)
	}
}

// DefaultRoot mirrors the teacher's convention of deriving a work directory
// from a user-chosen root (there: dotMinecraft + "/modman"), generalized to
// the OS user config directory.
func DefaultRoot() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "launchcore"), nil
}
