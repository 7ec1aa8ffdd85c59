// Package catalog implements the Instance Catalog: on-disk instance
// directories, enumeration, screenshots, and log history (spec §4.7).
package catalog

import "github.com/mrnavastar/launchcore/internal/overlay"

// Resolution mirrors assembler.Resolution; duplicated here (rather than
// imported) because InstanceConfig is a persisted schema and must not
// change shape if the in-memory launch type evolves.
type Resolution struct {
	Width     int  `json:"width"`
	Height    int  `json:"height"`
	Maximized bool `json:"maximized"`
}

// InstanceConfig is the persisted shape of instance.json (spec §3).
type InstanceConfig struct {
	InstanceName            string                `json:"instance_name"`
	VanillaVersion           string                `json:"vanilla_version"`
	ModloaderType            overlay.ModloaderType `json:"modloader_type"`
	ModloaderVersion         string                `json:"modloader_version,omitempty"`
	JVMPathOverride          string                `json:"jvm_path_override,omitempty"`
	AdditionalJVMArguments   []string              `json:"additional_jvm_arguments,omitempty"`
	Resolution               Resolution            `json:"resolution"`
	RecordPlaytime           bool                  `json:"record_playtime"`
	OverrideOptionsTxt       bool                  `json:"override_options_txt"`
	OverrideServersDat       bool                  `json:"override_servers_dat"`
	Author                   string                `json:"author,omitempty"`
	CreatedAt                string                `json:"created_at"`

	// ContentID is a stable content-address for the instance's defining
	// fields (version/modloader/name), computed once at creation time.
	// Supplements spec §3 with an identifier export/dedup tooling can key
	// off of without depending on InstanceName staying unique forever.
	ContentID string `json:"content_id,omitempty"`
}

// LogLine is the RPC-facing shape read_log_lines returns (spec §6):
// lineType is "", "warning", or "error".
type LogLine struct {
	Line     string `json:"line"`
	LineType string `json:"lineType"`
}
