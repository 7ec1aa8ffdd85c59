// Package coreerr implements the error taxonomy from spec §7: every error
// that crosses the RPC boundary carries a Kind the UI can switch on and a
// human-readable Detail, without leaking Go-specific error chains to the UI.
package coreerr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNetwork          Kind = "Network"
	KindIntegrity        Kind = "Integrity"
	KindSchema           Kind = "Schema"
	KindAuth             Kind = "Auth"
	KindConfig           Kind = "Config"
	KindFilesystem       Kind = "Filesystem"
	KindChild            Kind = "Child"
	KindInstallProcessor Kind = "InstallProcessor"
	KindAlreadyRunning   Kind = "AlreadyRunning"
	KindAlreadyExists    Kind = "AlreadyExists"
	KindNotFound         Kind = "NotFound"
)

// AuthSubkind enumerates the Auth taxonomy's subkinds (spec §4.6, §7).
type AuthSubkind string

const (
	AuthNoXboxAccount    AuthSubkind = "NoXboxAccount"
	AuthRegionBanned     AuthSubkind = "RegionBanned"
	AuthChildAccount     AuthSubkind = "ChildAccount"
	AuthRefreshRejected  AuthSubkind = "RefreshRejected"
	AuthDeviceCodeExpired AuthSubkind = "DeviceCodeExpired"
	AuthNoEntitlement    AuthSubkind = "NoEntitlement"
)

// Error is the structured error every RPC command returns on failure.
type Error struct {
	Kind    Kind
	Sub     AuthSubkind // only meaningful when Kind == KindAuth
	Detail  string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Sub != "" {
		return fmt.Sprintf("%s/%s: %s", e.Kind, e.Sub, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Wrapped }

func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func Wrap(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Wrapped: err}
}

func AuthError(sub AuthSubkind, detail string) *Error {
	return &Error{Kind: KindAuth, Sub: sub, Detail: detail}
}

// As extracts a *Error from err, following the standard errors.As contract.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Sentinel errors for simple comparison with errors.Is, matching the style
// the teacher used informally (string-compared errors.New values) but made
// idiomatic with comparable package-level vars.
var (
	ErrAlreadyRunning = New(KindAlreadyRunning, "an instance of this name is already running")
	ErrAlreadyExists  = New(KindAlreadyExists, "an entry with that name already exists")
	ErrNotFound       = New(KindNotFound, "not found")
)

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Detail == t.Detail
}
