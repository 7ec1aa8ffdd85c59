// Package secretstore wraps an OS keyring for persisting MSA refresh
// tokens keyed by account UUID (spec §4.6, §7 "Auth"), the way the teacher
// wraps zalando/go-keyring for the dot-minecraft path. When no OS keyring
// is reachable — common for headless hosts and CI runners — secrets fall
// back to an age-encrypted file under the launcher's config root instead
// of silently writing plaintext.
package secretstore

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"
	"github.com/zalando/go-keyring"

	"github.com/mrnavastar/launchcore/internal/logging"
)

var log = logging.For("secretstore")

const service = "launchcore"

// Store persists and retrieves refresh tokens keyed by account UUID.
type Store struct {
	fallbackDir string
	identity    *age.X25519Identity
	useFallback bool
}

// New probes the OS keyring once; if it's unavailable it switches to the
// age-encrypted file fallback rooted at fallbackDir for the lifetime of
// this Store.
func New(fallbackDir string) (*Store, error) {
	s := &Store{fallbackDir: fallbackDir}

	probeErr := keyring.Set(service, "__probe__", "ok")
	if probeErr != nil {
		log.Warn("OS keyring unavailable (%v), falling back to encrypted file store", probeErr)
		s.useFallback = true
		identity, err := loadOrCreateIdentity(filepath.Join(fallbackDir, ".secretstore_identity"))
		if err != nil {
			return nil, fmt.Errorf("secretstore: initializing fallback identity: %w", err)
		}
		s.identity = identity
		return s, nil
	}
	_ = keyring.Delete(service, "__probe__")
	return s, nil
}

func (s *Store) key(accountUUID string) string {
	return "account:" + accountUUID
}

// SetRefreshToken persists the MSA refresh token for the given account.
func (s *Store) SetRefreshToken(accountUUID, refreshToken string) error {
	if s.useFallback {
		return s.setFallback(accountUUID, refreshToken)
	}
	return keyring.Set(service, s.key(accountUUID), refreshToken)
}

// GetRefreshToken retrieves the MSA refresh token for the given account.
func (s *Store) GetRefreshToken(accountUUID string) (string, error) {
	if s.useFallback {
		return s.getFallback(accountUUID)
	}
	return keyring.Get(service, s.key(accountUUID))
}

// DeleteRefreshToken removes the stored token on explicit sign-out.
func (s *Store) DeleteRefreshToken(accountUUID string) error {
	if s.useFallback {
		return os.Remove(s.fallbackPath(accountUUID))
	}
	err := keyring.Delete(service, s.key(accountUUID))
	if err == keyring.ErrNotFound {
		return nil
	}
	return err
}

func (s *Store) fallbackPath(accountUUID string) string {
	return filepath.Join(s.fallbackDir, "secrets", accountUUID+".age")
}

func (s *Store) setFallback(accountUUID, refreshToken string) error {
	path := s.fallbackPath(accountUUID)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, s.identity.Recipient())
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, refreshToken); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

func (s *Store) getFallback(accountUUID string) (string, error) {
	data, err := os.ReadFile(s.fallbackPath(accountUUID))
	if err != nil {
		return "", err
	}
	r, err := age.Decrypt(bytes.NewReader(data), s.identity)
	if err != nil {
		return "", err
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func loadOrCreateIdentity(path string) (*age.X25519Identity, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return age.ParseX25519Identity(string(bytes.TrimSpace(data)))
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(identity.String()), 0o600); err != nil {
		return nil, err
	}
	return identity, nil
}
