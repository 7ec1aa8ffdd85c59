package auth

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mrnavastar/launchcore/internal/coreerr"
	"github.com/mrnavastar/launchcore/internal/secretstore"
)

func newTestAccountSet(t *testing.T) (*AccountSet, string) {
	t.Helper()
	dir := t.TempDir()
	secrets, err := secretstore.New(dir)
	if err != nil {
		t.Fatalf("secretstore.New: %v", err)
	}
	path := filepath.Join(dir, "accounts.json")
	set, err := Load(path, secrets, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return set, path
}

func TestLoadOnMissingFileReturnsEmptySet(t *testing.T) {
	set, _ := newTestAccountSet(t)
	if set.ActiveUUID() != "" {
		t.Errorf("ActiveUUID() = %q, want empty on a fresh set", set.ActiveUUID())
	}
	if len(set.List()) != 0 {
		t.Errorf("List() = %v, want empty", set.List())
	}
}

func TestLoadParsesExistingAccountsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.json")
	file := accountsFile{
		Active: "uuid-1",
		Accounts: map[string]Account{
			"uuid-1": {UUID: "uuid-1", Name: "Steve"},
		},
	}
	data, err := json.Marshal(file)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	secrets, err := secretstore.New(dir)
	if err != nil {
		t.Fatalf("secretstore.New: %v", err)
	}
	set, err := Load(path, secrets, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if set.ActiveUUID() != "uuid-1" {
		t.Errorf("ActiveUUID() = %q, want uuid-1", set.ActiveUUID())
	}
	if got := set.List(); len(got) != 1 || got[0].Name != "Steve" {
		t.Errorf("List() = %+v, want a single Steve account", got)
	}
}

func TestSetActiveOnUnknownUUIDReturnsNotFound(t *testing.T) {
	set, _ := newTestAccountSet(t)
	err := set.SetActive("nonexistent")
	if !errors.Is(err, coreerr.ErrNotFound) {
		t.Errorf("SetActive(unknown) = %v, want ErrNotFound", err)
	}
}

func TestSignOutRemovesAccountAndClearsActive(t *testing.T) {
	set, path := newTestAccountSet(t)
	set.accounts["uuid-1"] = Account{UUID: "uuid-1", Name: "Steve"}
	set.active = "uuid-1"
	if err := set.save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := set.SignOut("uuid-1"); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if set.ActiveUUID() != "" {
		t.Errorf("ActiveUUID() = %q after signing out the active account, want empty", set.ActiveUUID())
	}
	if len(set.List()) != 0 {
		t.Errorf("List() after SignOut = %v, want empty", set.List())
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var persisted accountsFile
	if err := json.Unmarshal(raw, &persisted); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(persisted.Accounts) != 0 {
		t.Errorf("persisted accounts = %+v, want empty after SignOut", persisted.Accounts)
	}
}

func TestSignOutOnUnknownUUIDReturnsNotFound(t *testing.T) {
	set, _ := newTestAccountSet(t)
	if err := set.SignOut("nonexistent"); !errors.Is(err, coreerr.ErrNotFound) {
		t.Errorf("SignOut(unknown) = %v, want ErrNotFound", err)
	}
}

func TestNeedsRefreshWithinFiveMinuteWindow(t *testing.T) {
	fresh := Account{MinecraftAccessTokenExpiry: time.Now().Add(1 * time.Hour)}
	if fresh.needsRefresh() {
		t.Error("an hour-out expiry should not need refresh yet")
	}

	nearExpiry := Account{MinecraftAccessTokenExpiry: time.Now().Add(2 * time.Minute)}
	if !nearExpiry.needsRefresh() {
		t.Error("an expiry inside the 5-minute window should need refresh")
	}

	expired := Account{MinecraftAccessTokenExpiry: time.Now().Add(-1 * time.Hour)}
	if !expired.needsRefresh() {
		t.Error("an already-expired token should need refresh")
	}
}

func TestActiveUUIDUnsignedInReturnsNotFound(t *testing.T) {
	set, _ := newTestAccountSet(t)
	if _, err := set.Active(context.Background()); !errors.Is(err, coreerr.ErrNotFound) {
		t.Errorf("Active() with nobody signed in = %v, want ErrNotFound", err)
	}
}
