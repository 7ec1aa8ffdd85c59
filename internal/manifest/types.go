// Package manifest fetches and parses the vanilla version manifest list,
// individual version descriptors, asset indices, the Fabric loader/profile
// JSONs, and the Forge version index (spec §4.1). It produces the raw,
// upstream-shaped structures; internal/resolve turns them into a flat
// ResolvedProfile.
package manifest

import (
	"encoding/json"
	"fmt"
)

// VersionEntry is one row of the vanilla VersionManifestIndex (spec §3).
type VersionEntry struct {
	ID          string `json:"id"`
	Type        string `json:"type"` // release, snapshot, old_beta, old_alpha
	URL         string `json:"url"`
	ReleaseTime string `json:"releaseTime"`
	SHA1        string `json:"sha1"`
}

// VersionManifestIndex is the ordered sequence Mojang publishes at
// VanillaManifestURL.
type VersionManifestIndex struct {
	Latest struct {
		Release  string `json:"release"`
		Snapshot string `json:"snapshot"`
	} `json:"latest"`
	Versions []VersionEntry `json:"versions"`
}

func (idx *VersionManifestIndex) Find(id string) (VersionEntry, bool) {
	for _, v := range idx.Versions {
		if v.ID == id {
			return v, true
		}
	}
	return VersionEntry{}, false
}

// DownloadMetadata is the {sha1, size, url} triple upstream attaches to
// almost every downloadable artifact.
type DownloadMetadata struct {
	SHA1 string `json:"sha1"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

type AssetIndexRef struct {
	ID string `json:"id"`
	DownloadMetadata
	TotalSize int64 `json:"totalSize"`
}

type GameDownloads struct {
	Client         DownloadMetadata  `json:"client"`
	ClientMappings *DownloadMetadata `json:"client_mappings,omitempty"`
	Server         *DownloadMetadata `json:"server,omitempty"`
	ServerMappings *DownloadMetadata `json:"server_mappings,omitempty"`
}

type JavaVersionRef struct {
	Component    string `json:"component"`
	MajorVersion int    `json:"majorVersion"`
}

// RuleType distinguishes the two shapes a rule's condition can take: a
// feature-flag map or an os-attribute map (spec §4.1 step 4, §9).
type RuleType int

const (
	RuleTypeNone RuleType = iota
	RuleTypeOS
	RuleTypeFeatures
)

type Rule struct {
	Action   string            `json:"action"` // "allow" or "disallow"
	Type     RuleType          `json:"-"`
	OS       map[string]string `json:"-"`
	Features map[string]bool   `json:"-"`
}

func (r *Rule) UnmarshalJSON(data []byte) error {
	var raw struct {
		Action   string            `json:"action"`
		OS       map[string]string `json:"os"`
		Features map[string]bool   `json:"features"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Action = raw.Action
	switch {
	case raw.OS != nil:
		r.Type = RuleTypeOS
		r.OS = raw.OS
	case raw.Features != nil:
		r.Type = RuleTypeFeatures
		r.Features = raw.Features
	default:
		r.Type = RuleTypeNone
	}
	return nil
}

// Argument is the tagged variant from spec §9: either a bare literal
// string, or a {rules, value} object whose value is a string or array of
// strings.
type Argument struct {
	Literal      string
	IsConditional bool
	Rules        []Rule
	Values       []string
}

func (a *Argument) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		a.Literal = asString
		return nil
	}

	var raw struct {
		Rules []Rule          `json:"rules"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("manifest: argument is neither a string nor a conditional object: %w", err)
	}
	a.IsConditional = true
	a.Rules = raw.Rules

	var single string
	if err := json.Unmarshal(raw.Value, &single); err == nil {
		a.Values = []string{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(raw.Value, &many); err != nil {
		return fmt.Errorf("manifest: conditional argument value is neither string nor []string: %w", err)
	}
	a.Values = many
	return nil
}

// LaunchArguments holds either the legacy pre-1.13 single string
// (`minecraftArguments`) or the modern {game, jvm} structure.
type LaunchArguments struct {
	Legacy string
	Game   []Argument
	JVM    []Argument
}

type argumentsJSON struct {
	Game []Argument `json:"game"`
	JVM  []Argument `json:"jvm"`
}

type Artifact struct {
	Path string `json:"path"`
	DownloadMetadata
}

type LibraryDownloads struct {
	Artifact    *Artifact            `json:"artifact,omitempty"`
	Classifiers map[string]*Artifact `json:"classifiers,omitempty"`
}

type LibraryExtraction struct {
	Exclude []string `json:"exclude"`
}

type Library struct {
	Name      string             `json:"name"`
	Downloads LibraryDownloads   `json:"downloads"`
	Rules     []Rule             `json:"rules,omitempty"`
	Natives   map[string]string  `json:"natives,omitempty"`
	Extract   *LibraryExtraction `json:"extract,omitempty"`
	URL       string             `json:"url,omitempty"` // Forge-style bare maven coordinate libraries
}

type ClientLoggerFile struct {
	ID string `json:"id"`
	DownloadMetadata
}

type ClientLogger struct {
	Argument string           `json:"argument"`
	File     ClientLoggerFile `json:"file"`
	Type     string           `json:"type"`
}

type LoggingConfig struct {
	Client ClientLogger `json:"client"`
}

// VersionDescriptor is the raw JSON profile published upstream (spec §3),
// shared by vanilla, Fabric, and Forge (Fabric/Forge profiles are treated
// as a VersionDescriptor with InheritsFrom set, per spec §4.1).
type VersionDescriptor struct {
	ID              string          `json:"id"`
	InheritsFrom    string          `json:"inheritsFrom,omitempty"`
	MainClass       string          `json:"mainClass,omitempty"`
	AssetIndex      *AssetIndexRef  `json:"assetIndex,omitempty"`
	Assets          string          `json:"assets,omitempty"`
	Downloads       *GameDownloads  `json:"downloads,omitempty"`
	Libraries       []Library       `json:"libraries,omitempty"`
	Logging         *LoggingConfig  `json:"logging,omitempty"`
	JavaVersion     *JavaVersionRef `json:"javaVersion,omitempty"`
	ComplianceLevel int             `json:"complianceLevel,omitempty"`
	Type            string          `json:"type,omitempty"`

	Arguments           *argumentsJSON `json:"arguments,omitempty"`
	MinecraftArguments  string         `json:"minecraftArguments,omitempty"`
}

func (d *VersionDescriptor) LaunchArguments() LaunchArguments {
	if d.Arguments != nil {
		return LaunchArguments{Game: d.Arguments.Game, JVM: d.Arguments.JVM}
	}
	return LaunchArguments{Legacy: d.MinecraftArguments}
}

// AssetIndex is the {virtual_name -> {hash, size}} mapping spec §3 names.
type AssetIndex struct {
	Objects map[string]AssetObject `json:"objects"`
}

type AssetObject struct {
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}
