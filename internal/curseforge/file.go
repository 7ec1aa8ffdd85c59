package curseforge

import (
	"context"
	"strconv"

	"github.com/mrnavastar/launchcore/internal/coreerr"
)

type fileDownloadURLResponse struct {
	Data string `json:"data"`
}

// FileDownloadURL resolves a CurseForge project/file id pair (as recorded
// in a modpack manifest's files[] entries) to the CDN URL the client should
// fetch, grounded on the original Tauri launcher's modpack import flow
// which resolves each manifest file against the same endpoint before
// streaming it into the instance's mods folder.
func (c *Client) FileDownloadURL(ctx context.Context, projectID, fileID int) (string, error) {
	var resp fileDownloadURLResponse
	r, err := c.http.Client().R().
		SetContext(ctx).
		SetHeader("x-api-key", c.apiKey).
		SetHeader("Accept", "application/json").
		SetResult(&resp).
		Get(apiBase + "/mods/" + strconv.Itoa(projectID) + "/files/" + strconv.Itoa(fileID) + "/download-url")
	if err != nil {
		return "", coreerr.Wrap(coreerr.KindNetwork, "resolving curseforge file download url", err)
	}
	if r.IsError() {
		return "", coreerr.New(coreerr.KindNetwork, "curseforge file download url request failed: "+r.Status())
	}
	return resp.Data, nil
}
