package rpc

import (
	"net/http"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/mrnavastar/launchcore/internal/auth"
	"github.com/mrnavastar/launchcore/internal/catalog"
	"github.com/mrnavastar/launchcore/internal/coreerr"
	"github.com/mrnavastar/launchcore/internal/curseforge"
	"github.com/mrnavastar/launchcore/internal/httpclient"
	"github.com/mrnavastar/launchcore/internal/launch"
	"github.com/mrnavastar/launchcore/internal/logging"
	"github.com/mrnavastar/launchcore/internal/supervisor"
	"github.com/mrnavastar/launchcore/internal/telemetry"
)

var log = logging.For("rpc")

// Handlers wires every spec §6 command to the leaf engines that implement
// it. Grounded on JHAEA-mcp-registry-service/internal/api's handler-struct
// pattern (one receiver holding every dependency, one method per route).
type Handlers struct {
	Engine     *launch.Engine
	Accounts   *auth.AccountSet
	Catalog    *catalog.Catalog
	Curseforge *curseforge.Client
	Events     *EventBus
	Validate   *validator.Validate
	HTTP       *httpclient.Pool

	mu       sync.Mutex
	pending  map[string]*auth.DeviceCodeResponse
	running  map[string]*launch.RunningInstance
}

func NewHandlers(engine *launch.Engine, accounts *auth.AccountSet, cat *catalog.Catalog, cf *curseforge.Client, events *EventBus, httpPool *httpclient.Pool) *Handlers {
	return &Handlers{
		Engine:     engine,
		Accounts:   accounts,
		Catalog:    cat,
		Curseforge: cf,
		Events:     events,
		Validate:   validator.New(),
		HTTP:       httpPool,
		pending:    map[string]*auth.DeviceCodeResponse{},
		running:    map[string]*launch.RunningInstance{},
	}
}

func (h *Handlers) validated(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeBody(r, dst); err != nil {
		writeError(w, err)
		return false
	}
	if err := h.Validate.Struct(dst); err != nil {
		writeError(w, coreerr.Wrap(coreerr.KindSchema, "validating request", err))
		return false
	}
	return true
}

// ObtainManifests implements obtain_manifests.
func (h *Handlers) ObtainManifests(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Engine.ObtainManifests(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ObtainVersion implements obtain_version: provisions the instance and, on
// success, publishes instance-done with the new instance's name.
func (h *Handlers) ObtainVersion(w http.ResponseWriter, r *http.Request) {
	var settings launch.InstanceSettings
	if !h.validated(w, r, &settings) {
		return
	}
	name, err := h.Engine.ObtainVersion(r.Context(), settings)
	if err != nil {
		writeError(w, err)
		return
	}
	h.Events.Publish("instance-done", name)
	h.Events.Publish("new-instance", name)
	writeJSON(w, http.StatusOK, nil)
}

// ImportZip implements import_zip.
func (h *Handlers) ImportZip(w http.ResponseWriter, r *http.Request) {
	var req importZipRequest
	if !h.validated(w, r, &req) {
		return
	}
	name, err := h.Engine.ImportZip(r.Context(), req.ZipPath)
	if err != nil {
		writeError(w, err)
		return
	}
	h.Events.Publish("instance-done", name)
	h.Events.Publish("new-instance", name)
	writeJSON(w, http.StatusOK, nil)
}

// LoadInstances implements load_instances.
func (h *Handlers) LoadInstances(w http.ResponseWriter, r *http.Request) {
	instances, err := h.Catalog.LoadInstances()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, instances)
}

// LaunchInstance implements launch_instance: wires the supervisor's
// callbacks onto the event bus, tracks the running supervisor so get_logs
// and read_log_lines can merge in unflushed live output, and clears that
// tracking when the process exits.
func (h *Handlers) LaunchInstance(w http.ResponseWriter, r *http.Request) {
	var req launchInstanceRequest
	if !h.validated(w, r, &req) {
		return
	}

	callbacks := supervisor.Callbacks{
		OnLogging: func(lines []supervisor.TaggedLine) {
			for _, l := range lines {
				h.Events.Publish("instance-logging", instanceLoggingEvent{
					InstanceName: req.InstanceName,
					Category:     l.Kind.String(),
					Line:         l.Text,
				})
			}
		},
		OnState: func(state supervisor.InstanceState) {
			h.Events.Publish("instance-state", instanceStateEvent{
				InstanceName: req.InstanceName,
				State:        state.String(),
			})
		},
		OnExited: func(code *int) {
			h.mu.Lock()
			delete(h.running, req.InstanceName)
			h.mu.Unlock()
			telemetry.RunningInstances.Dec()
			h.Events.Publish("instance-exited", instanceExitedEvent{
				InstanceName: req.InstanceName,
				Code:         code,
			})
		},
	}

	running, err := h.Engine.LaunchInstance(r.Context(), req.InstanceName, callbacks)
	if err != nil {
		writeError(w, err)
		return
	}

	h.mu.Lock()
	h.running[req.InstanceName] = running
	h.mu.Unlock()
	telemetry.RunningInstances.Inc()

	writeJSON(w, http.StatusOK, nil)
}

// CheckForUpdate implements check_for_update: reports whether an instance's
// Fabric/Forge loader has a newer published version, without applying it.
func (h *Handlers) CheckForUpdate(w http.ResponseWriter, r *http.Request) {
	var req checkForUpdateRequest
	if !h.validated(w, r, &req) {
		return
	}
	check, err := h.Engine.CheckForUpdate(r.Context(), req.InstanceName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (h *Handlers) liveSupervisor(name string) *supervisor.Supervisor {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.running[name]; ok {
		return r.Supervisor
	}
	return nil
}

// OpenFolder implements open_folder.
func (h *Handlers) OpenFolder(w http.ResponseWriter, r *http.Request) {
	var req openFolderRequest
	if !h.validated(w, r, &req) {
		return
	}
	if err := h.Catalog.OpenFolder(req.InstanceName); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// GetLogs implements get_logs: the response spans every instance, not just
// one, so every catalog entry is visited.
func (h *Handlers) GetLogs(w http.ResponseWriter, r *http.Request) {
	instances, err := h.Catalog.LoadInstances()
	if err != nil {
		writeError(w, err)
		return
	}
	out := map[string]map[string][]catalog.LogLine{}
	for _, inst := range instances {
		logs, err := h.Catalog.GetLogs(inst.InstanceName, h.liveSupervisor(inst.InstanceName))
		if err != nil {
			writeError(w, err)
			return
		}
		out[inst.InstanceName] = logs
	}
	writeJSON(w, http.StatusOK, out)
}

// ReadLogLines implements read_log_lines.
func (h *Handlers) ReadLogLines(w http.ResponseWriter, r *http.Request) {
	var req readLogLinesRequest
	if !h.validated(w, r, &req) {
		return
	}
	lines, err := h.Catalog.ReadLogLines(req.InstanceName, req.LogName, h.liveSupervisor(req.InstanceName))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

// GetScreenshots implements get_screenshots across every instance.
func (h *Handlers) GetScreenshots(w http.ResponseWriter, r *http.Request) {
	instances, err := h.Catalog.LoadInstances()
	if err != nil {
		writeError(w, err)
		return
	}
	out := map[string][]string{}
	for _, inst := range instances {
		shots, err := h.Catalog.GetScreenshots(inst.InstanceName)
		if err != nil {
			writeError(w, err)
			return
		}
		out[inst.InstanceName] = shots
	}
	writeJSON(w, http.StatusOK, out)
}

// GetAccounts implements get_accounts.
func (h *Handlers) GetAccounts(w http.ResponseWriter, r *http.Request) {
	accounts := h.Accounts.List()
	resp := accountsResponse{
		ActiveAccount: h.Accounts.ActiveUUID(),
		Accounts:      make(map[string]accountSummary, len(accounts)),
	}
	for _, a := range accounts {
		resp.Accounts[a.UUID] = accountSummary{UUID: a.UUID, Name: a.Name, SkinURL: a.SkinURL}
	}
	writeJSON(w, http.StatusOK, resp)
}

// StartAuthenticationFlow implements start_authentication_flow, stashing
// the returned interval/expiry so poll_device_code_authentication doesn't
// need the caller to resupply them.
func (h *Handlers) StartAuthenticationFlow(w http.ResponseWriter, r *http.Request) {
	resp, err := auth.StartDeviceCodeFlow(r.Context(), h.HTTP)
	if err != nil {
		writeError(w, err)
		return
	}

	h.mu.Lock()
	h.pending[resp.DeviceCode] = resp
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, deviceCodeResponse{Message: resp.Message, DeviceCode: resp.DeviceCode})
}

// PollDeviceCodeAuthentication implements poll_device_code_authentication.
// On an auth-kind failure it also publishes authentication-error, matching
// spec §6's event table.
func (h *Handlers) PollDeviceCodeAuthentication(w http.ResponseWriter, r *http.Request) {
	var req pollDeviceCodeRequest
	if !h.validated(w, r, &req) {
		return
	}

	h.mu.Lock()
	pending, ok := h.pending[req.DeviceCode]
	h.mu.Unlock()
	if !ok {
		writeError(w, coreerr.New(coreerr.KindNotFound, "unknown device code"))
		return
	}

	msa, err := auth.PollDeviceCode(r.Context(), h.HTTP, req.DeviceCode, pending.IntervalSeconds, pending.ExpiresIn)
	if err != nil {
		if ce, ok := coreerr.As(err); ok && ce.Kind == coreerr.KindAuth {
			telemetry.AuthFailuresTotal.WithLabelValues(string(ce.Sub)).Inc()
			h.Events.Publish("authentication-error", authenticationErrorEvent{Kind: string(ce.Sub), Detail: ce.Detail})
		}
		writeError(w, err)
		return
	}

	if _, err := h.Accounts.CompleteSignIn(r.Context(), msa.AccessToken, msa.RefreshToken); err != nil {
		writeError(w, err)
		return
	}

	h.mu.Lock()
	delete(h.pending, req.DeviceCode)
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, nil)
}

// LoginToAccount implements login_to_account.
func (h *Handlers) LoginToAccount(w http.ResponseWriter, r *http.Request) {
	var req loginToAccountRequest
	if !h.validated(w, r, &req) {
		return
	}
	if err := h.Accounts.SetActive(req.UUID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// GetAccountSkin implements get_account_skin.
func (h *Handlers) GetAccountSkin(w http.ResponseWriter, r *http.Request) {
	account, err := h.Accounts.Active(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account.SkinURL)
}

// GetCurseforgeCategories implements get_curseforge_categories.
func (h *Handlers) GetCurseforgeCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Curseforge.Categories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	writeJSON(w, http.StatusOK, categories)
}

// SearchCurseforge implements search_curseforge.
func (h *Handlers) SearchCurseforge(w http.ResponseWriter, r *http.Request) {
	var req searchCurseforgeRequest
	if !h.validated(w, r, &req) {
		return
	}
	results, err := h.Curseforge.Search(r.Context(), curseforge.SearchParams{
		Page:             req.Page,
		SearchFilter:     req.SearchFilter,
		SelectedVersion:  req.SelectedVersion,
		SelectedCategory: req.SelectedCategory,
		SelectedSort:     curseforge.SortField(req.SelectedSort),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
