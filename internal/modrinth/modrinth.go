// Package modrinth is a read-only Modrinth adapter, kept for internal use
// only: the distilled command surface exposes CurseForge search to the UI
// but not Modrinth, so this package has no RPC handler of its own. It
// exists to let a future modpack-import path resolve a Modrinth slug
// without inventing a second HTTP client.
package modrinth

import (
	"context"

	"github.com/mrnavastar/launchcore/internal/coreerr"
	"github.com/mrnavastar/launchcore/internal/httpclient"
)

// apiBase is a var, not a const, so tests can point it at an httptest
// server instead of the real Modrinth API.
var apiBase = "https://api.modrinth.com/v2"

// Project is the subset of Modrinth's project response this adapter uses.
type Project struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
	IconURL string `json:"icon_url"`
}

// VersionFile is one downloadable file of a project version.
type VersionFile struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Primary  bool   `json:"primary"`
}

// Version is one entry of a project's version list.
type Version struct {
	ID            string        `json:"id"`
	GameVersions  []string      `json:"game_versions"`
	Loaders       []string      `json:"loaders"`
	Files         []VersionFile `json:"files"`
}

type Client struct {
	http *httpclient.Pool
}

func New(http *httpclient.Pool) *Client {
	return &Client{http: http}
}

// Project fetches a project by slug or id.
func (c *Client) Project(ctx context.Context, slug string) (*Project, error) {
	var project Project
	r, err := c.http.Client().R().
		SetContext(ctx).
		SetResult(&project).
		Get(apiBase + "/project/" + slug)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindNetwork, "fetching modrinth project", err)
	}
	if r.IsError() {
		return nil, coreerr.New(coreerr.KindNotFound, "modrinth project not found: "+slug)
	}
	return &project, nil
}

// Versions lists every published version of a project.
func (c *Client) Versions(ctx context.Context, slug string) ([]Version, error) {
	var versions []Version
	r, err := c.http.Client().R().
		SetContext(ctx).
		SetResult(&versions).
		Get(apiBase + "/project/" + slug + "/version")
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindNetwork, "fetching modrinth versions", err)
	}
	if r.IsError() {
		return nil, coreerr.New(coreerr.KindNotFound, "modrinth versions not found: "+slug)
	}
	return versions, nil
}

// MatchingFile returns the primary file (or, when none is marked primary,
// the first file) of the first version compatible with the given loader
// and Minecraft version, mirroring the teacher's
// GetModrinthModData matching rule (first game_versions+loaders match,
// primary file within it).
func MatchingFile(versions []Version, loader, gameVersion string) (*VersionFile, bool) {
	for _, v := range versions {
		if !contains(v.Loaders, loader) || !contains(v.GameVersions, gameVersion) {
			continue
		}
		for _, f := range v.Files {
			if f.Primary {
				return &f, true
			}
		}
		if len(v.Files) > 0 {
			return &v.Files[0], true
		}
	}
	return nil, false
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
