package auth

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"

	"github.com/mrnavastar/launchcore/internal/coreerr"
	"github.com/mrnavastar/launchcore/internal/httpclient"
	"github.com/mrnavastar/launchcore/internal/secretstore"
)

// accountsFile is the on-disk shape of accounts.json: every field here is
// non-secret (spec §3 "Account"); the MSA refresh token lives only in the
// Store.
type accountsFile struct {
	Active   string             `json:"active"`
	Accounts map[string]Account `json:"accounts"`
}

// AccountSet owns the authenticated-account catalog: the active selection,
// the non-secret account records, and the refresh-token secret store. All
// mutation goes through a single lock, matching the teacher's
// single-writer-per-resource discipline (services/instance.go).
type AccountSet struct {
	mu       sync.Mutex
	path     string
	secrets  *secretstore.Store
	http     *httpclient.Pool
	active   string
	accounts map[string]Account
}

// Load reads accounts.json if present and wires it to the secret store
// that holds each account's refresh token.
func Load(path string, secrets *secretstore.Store, http *httpclient.Pool) (*AccountSet, error) {
	set := &AccountSet{
		path:     path,
		secrets:  secrets,
		http:     http,
		accounts: map[string]Account{},
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		return nil, coreerr.Wrap(coreerr.KindFilesystem, "reading accounts file", err)
	}
	var file accountsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, coreerr.Wrap(coreerr.KindSchema, "parsing accounts file", err)
	}
	set.active = file.Active
	set.accounts = file.Accounts
	if set.accounts == nil {
		set.accounts = map[string]Account{}
	}
	return set, nil
}

func (s *AccountSet) save() error {
	file := accountsFile{Active: s.active, Accounts: s.accounts}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return coreerr.Wrap(coreerr.KindSchema, "encoding accounts file", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return coreerr.Wrap(coreerr.KindFilesystem, "writing accounts file", err)
	}
	return os.Rename(tmp, s.path)
}

// CompleteSignIn finishes spec §4.6's flow after the user has authorized
// the device code: exchanges the MSA token for a Minecraft account,
// stores the refresh token, persists the record, and activates it.
func (s *AccountSet) CompleteSignIn(ctx context.Context, msaAccessToken, msaRefreshToken string) (*Account, error) {
	account, _, err := Authenticate(ctx, s.http, msaAccessToken)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.secrets.SetRefreshToken(account.UUID, msaRefreshToken); err != nil {
		return nil, coreerr.Wrap(coreerr.KindFilesystem, "storing refresh token", err)
	}
	s.accounts[account.UUID] = *account
	s.active = account.UUID
	if err := s.save(); err != nil {
		return nil, err
	}
	cp := *account
	return &cp, nil
}

// Active returns the active account, refreshing its Minecraft token first
// if it is within 5 minutes of expiry (spec §4.6 "Refresh").
func (s *AccountSet) Active(ctx context.Context) (*Account, error) {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if active == "" {
		return nil, coreerr.Wrap(coreerr.KindNotFound, "no account is signed in", coreerr.ErrNotFound)
	}
	return s.Refresh(ctx, active)
}

// Refresh returns the named account, transparently exchanging a stale
// Minecraft token for a fresh one via the stored MSA refresh token.
func (s *AccountSet) Refresh(ctx context.Context, uuid string) (*Account, error) {
	s.mu.Lock()
	account, ok := s.accounts[uuid]
	s.mu.Unlock()
	if !ok {
		return nil, coreerr.ErrNotFound
	}
	if !account.needsRefresh() {
		cp := account
		return &cp, nil
	}

	refreshToken, err := s.secrets.GetRefreshToken(uuid)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindAuth, "no stored refresh token for this account", err)
	}
	msa, err := refreshMicrosoftToken(ctx, s.http, refreshToken)
	if err != nil {
		return nil, err
	}
	refreshed, _, err := Authenticate(ctx, s.http, msa.AccessToken)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.secrets.SetRefreshToken(refreshed.UUID, msa.RefreshToken); err != nil {
		return nil, coreerr.Wrap(coreerr.KindFilesystem, "storing refreshed token", err)
	}
	s.accounts[refreshed.UUID] = *refreshed
	if err := s.save(); err != nil {
		return nil, err
	}
	cp := *refreshed
	return &cp, nil
}

// ActiveUUID returns the currently active account's UUID, or "" if none is
// signed in (spec §6's get_accounts response).
func (s *AccountSet) ActiveUUID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// List returns every signed-in account, non-secret fields only.
func (s *AccountSet) List() []Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	return out
}

// SetActive switches the active account without re-authenticating.
func (s *AccountSet) SetActive(uuid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[uuid]; !ok {
		return coreerr.ErrNotFound
	}
	s.active = uuid
	return s.save()
}

// SignOut removes an account's record and its stored refresh token.
func (s *AccountSet) SignOut(uuid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[uuid]; !ok {
		return coreerr.ErrNotFound
	}
	delete(s.accounts, uuid)
	if s.active == uuid {
		s.active = ""
	}
	if err := s.secrets.DeleteRefreshToken(uuid); err != nil && !errors.Is(err, os.ErrNotExist) {
		return coreerr.Wrap(coreerr.KindFilesystem, "removing stored refresh token", err)
	}
	return s.save()
}
