// Package curseforge is a read-only adapter over the CurseForge API for
// the modpack browsing surface (spec §4.7 design notes, §6's
// get_curseforge_categories/search_curseforge). It is not part of the
// launch path; failures here never block a launch.
package curseforge

import (
	"context"
	"strconv"

	"github.com/mrnavastar/launchcore/internal/coreerr"
	"github.com/mrnavastar/launchcore/internal/httpclient"
)

// apiBase is a var, not a const, so tests can point it at an httptest
// server instead of the real CurseForge API.
var apiBase = "https://api.curseforge.com/v1"

const (
	minecraftGameID = 432
	modpacksClassID = 4471
)

// Category is the get_curseforge_categories response shape (spec §6).
type Category struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	IconURL string `json:"iconUrl"`
}

// ModpackInformation is one search_curseforge result (spec §6).
type ModpackInformation struct {
	ID            int    `json:"id"`
	Slug          string `json:"slug"`
	Name          string `json:"name"`
	Summary       string `json:"summary"`
	IconURL       string `json:"iconUrl"`
	DownloadCount int64  `json:"downloadCount"`
	Author        string `json:"author"`
}

// SortField enumerates search_curseforge's selectedSort values.
type SortField string

const (
	SortFeatured    SortField = "Featured"
	SortPopularity  SortField = "Popularity"
	SortLastUpdated SortField = "LastUpdated"
	SortName        SortField = "Name"
)

// SearchParams mirrors search_curseforge's argument object (spec §6).
type SearchParams struct {
	Page             int
	SearchFilter     string
	SelectedVersion  string
	SelectedCategory int
	SelectedSort     SortField
}

// Client wraps the shared httpclient.Pool with CurseForge's required
// x-api-key header.
type Client struct {
	http   *httpclient.Pool
	apiKey string
}

func New(http *httpclient.Pool, apiKey string) *Client {
	return &Client{http: http, apiKey: apiKey}
}

type categoriesResponse struct {
	Data []struct {
		ID      int    `json:"id"`
		Name    string `json:"name"`
		IconURL string `json:"iconUrl"`
		ClassID int    `json:"classId"`
	} `json:"data"`
}

// Categories fetches the modpack category tree (spec §6:
// get_curseforge_categories).
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var resp categoriesResponse
	r, err := c.http.Client().R().
		SetContext(ctx).
		SetHeader("x-api-key", c.apiKey).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{
			"gameId":  strconv.Itoa(minecraftGameID),
			"classId": strconv.Itoa(modpacksClassID),
		}).
		SetResult(&resp).
		Get(apiBase + "/categories")
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindNetwork, "fetching curseforge categories", err)
	}
	if r.IsError() {
		return nil, coreerr.New(coreerr.KindNetwork, "curseforge categories request failed: "+r.Status())
	}

	out := make([]Category, 0, len(resp.Data))
	for _, c := range resp.Data {
		out = append(out, Category{ID: c.ID, Name: c.Name, IconURL: c.IconURL})
	}
	return out, nil
}

type searchResponse struct {
	Data []struct {
		ID     int    `json:"id"`
		Slug   string `json:"slug"`
		Name   string `json:"name"`
		Summary string `json:"summary"`
		Logo   struct {
			URL string `json:"url"`
		} `json:"logo"`
		DownloadCount int64 `json:"downloadCount"`
		Authors       []struct {
			Name string `json:"name"`
		} `json:"authors"`
	} `json:"data"`
}

const pageSize = 20

// Search implements spec §6's search_curseforge, paging by 20 results.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]ModpackInformation, error) {
	query := map[string]string{
		"gameId":       strconv.Itoa(minecraftGameID),
		"classId":      strconv.Itoa(modpacksClassID),
		"index":        strconv.Itoa(params.Page * pageSize),
		"pageSize":     strconv.Itoa(pageSize),
		"searchFilter": params.SearchFilter,
	}
	if params.SelectedVersion != "" {
		query["gameVersion"] = params.SelectedVersion
	}
	if params.SelectedCategory != 0 {
		query["categoryId"] = strconv.Itoa(params.SelectedCategory)
	}
	if params.SelectedSort != "" {
		query["sortField"] = string(params.SelectedSort)
	}

	var resp searchResponse
	r, err := c.http.Client().R().
		SetContext(ctx).
		SetHeader("x-api-key", c.apiKey).
		SetHeader("Accept", "application/json").
		SetQueryParams(query).
		SetResult(&resp).
		Get(apiBase + "/mods/search")
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindNetwork, "searching curseforge", err)
	}
	if r.IsError() {
		return nil, coreerr.New(coreerr.KindNetwork, "curseforge search failed: "+r.Status())
	}

	out := make([]ModpackInformation, 0, len(resp.Data))
	for _, m := range resp.Data {
		author := ""
		if len(m.Authors) > 0 {
			author = m.Authors[0].Name
		}
		out = append(out, ModpackInformation{
			ID:            m.ID,
			Slug:          m.Slug,
			Name:          m.Name,
			Summary:       m.Summary,
			IconURL:       m.Logo.URL,
			DownloadCount: m.DownloadCount,
			Author:        author,
		})
	}
	return out, nil
}
