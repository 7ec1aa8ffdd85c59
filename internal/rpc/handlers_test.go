package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mrnavastar/launchcore/internal/auth"
	"github.com/mrnavastar/launchcore/internal/catalog"
	"github.com/mrnavastar/launchcore/internal/config"
	"github.com/mrnavastar/launchcore/internal/overlay"
)

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	paths := config.NewPaths(t.TempDir())
	if err := paths.EnsureAll(); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	accounts, err := auth.Load(paths.AccountsFile(), nil, nil)
	if err != nil {
		t.Fatalf("auth.Load: %v", err)
	}
	return NewHandlers(nil, accounts, catalog.New(paths), nil, NewEventBus(), nil)
}

func TestLoadInstancesReturnsCreatedInstances(t *testing.T) {
	h := newTestHandlers(t)
	if err := h.Catalog.CreateInstance(catalog.InstanceConfig{InstanceName: "Survival", VanillaVersion: "1.21", ModloaderType: overlay.Fabric}); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/load_instances", nil)
	rec := httptest.NewRecorder()
	h.LoadInstances(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
	var instances []catalog.InstanceConfig
	if err := json.Unmarshal(rec.Body.Bytes(), &instances); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(instances) != 1 || instances[0].InstanceName != "Survival" {
		t.Errorf("instances = %+v", instances)
	}
}

func TestGetAccountsReturnsEmptySetWhenNoneSignedIn(t *testing.T) {
	h := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/get_accounts", nil)
	rec := httptest.NewRecorder()
	h.GetAccounts(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp accountsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.ActiveAccount != "" || len(resp.Accounts) != 0 {
		t.Errorf("resp = %+v, want empty", resp)
	}
}

func TestOpenFolderRejectsMissingInstanceName(t *testing.T) {
	h := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/open_folder", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	h.OpenFolder(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for a missing required field; body=%s", rec.Code, rec.Body.String())
	}
}

func TestOpenFolderRejectsMalformedJSON(t *testing.T) {
	h := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/open_folder", bytes.NewBufferString(`{not json`))
	rec := httptest.NewRecorder()
	h.OpenFolder(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for malformed JSON", rec.Code)
	}
}

func TestLoginToAccountUnknownUUIDReturnsNotFound(t *testing.T) {
	h := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/login_to_account", bytes.NewBufferString(`{"uuid": "deadbeef"}`))
	rec := httptest.NewRecorder()
	h.LoginToAccount(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404; body=%s", rec.Code, rec.Body.String())
	}
}
