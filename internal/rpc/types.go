package rpc

// Account summaries (get_accounts, spec §6) never include the in-memory
// Minecraft access token or Xbox user hash.
type accountSummary struct {
	UUID    string `json:"uuid"`
	Name    string `json:"name"`
	SkinURL string `json:"skin_url"`
}

type accountsResponse struct {
	ActiveAccount string                     `json:"active_account"`
	Accounts      map[string]accountSummary  `json:"accounts"`
}

type deviceCodeResponse struct {
	Message    string `json:"message"`
	DeviceCode string `json:"device_code"`
}

type pollDeviceCodeRequest struct {
	DeviceCode string `json:"deviceCode" validate:"required"`
}

type loginToAccountRequest struct {
	UUID string `json:"uuid" validate:"required"`
}

type openFolderRequest struct {
	InstanceName string `json:"instanceName" validate:"required"`
}

type launchInstanceRequest struct {
	InstanceName string `json:"instanceName" validate:"required"`
}

type readLogLinesRequest struct {
	InstanceName string `json:"instanceName" validate:"required"`
	LogName      string `json:"logName" validate:"required"`
}

type checkForUpdateRequest struct {
	InstanceName string `json:"instanceName" validate:"required"`
}

type importZipRequest struct {
	ZipPath string `json:"zipPath" validate:"required"`
}

type searchCurseforgeRequest struct {
	Page             int    `json:"page"`
	SearchFilter     string `json:"searchFilter"`
	SelectedVersion  string `json:"selectedVersion"`
	SelectedCategory int    `json:"selectedCategory"`
	SelectedSort     string `json:"selectedSort"`
}

// Event payloads (spec §6 "Events (core -> UI)").

type instanceLoggingEvent struct {
	InstanceName string `json:"instance_name"`
	Category     string `json:"category"`
	Line         string `json:"line"`
}

type instanceExitedEvent struct {
	InstanceName string `json:"instance_name"`
	Code         *int   `json:"code,omitempty"`
}

type instanceStateEvent struct {
	InstanceName string `json:"instance_name"`
	State        string `json:"state"`
}

type authenticationErrorEvent struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// DownloadProgressEvent is download-progress's payload. Exported (unlike
// its sibling event types) because cmd/launcher constructs one directly
// from download.Executor's progress callback, outside any Handlers
// method.
type DownloadProgressEvent struct {
	Total      int   `json:"total"`
	Completed  int   `json:"completed"`
	BytesDone  int64 `json:"bytes_done"`
	BytesTotal int64 `json:"bytes_total"`
}

func NewDownloadProgressEvent(total, completed int, bytesDone, bytesTotal int64) DownloadProgressEvent {
	return DownloadProgressEvent{Total: total, Completed: completed, BytesDone: bytesDone, BytesTotal: bytesTotal}
}
