package rpc

import (
	"encoding/json"
	"net/http"

	"github.com/mrnavastar/launchcore/internal/coreerr"
)

// errorResponse is what every failed command returns: a Kind the UI can
// switch on plus a human string, matching spec §7's propagation policy.
// Modeled on JHAEA-mcp-registry-service/internal/domain's ErrorResponse
// shape (status/title/detail), generalized to coreerr's taxonomy.
type errorResponse struct {
	Kind   coreerr.Kind      `json:"kind"`
	Sub    coreerr.AuthSubkind `json:"sub,omitempty"`
	Detail string            `json:"detail"`
}

// kindStatus maps coreerr.Kind onto the HTTP status a REST-shaped client
// expects; the UI's real signal is the Kind field in the JSON body, not
// the status code, but picking a sensible one keeps generic HTTP tooling
// (curl, browser devtools) useful while developing against this API.
func kindStatus(kind coreerr.Kind) int {
	switch kind {
	case coreerr.KindNotFound:
		return http.StatusNotFound
	case coreerr.KindAlreadyExists, coreerr.KindAlreadyRunning:
		return http.StatusConflict
	case coreerr.KindAuth:
		return http.StatusUnauthorized
	case coreerr.KindSchema:
		return http.StatusBadRequest
	case coreerr.KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	if ce, ok := coreerr.As(err); ok {
		writeJSON(w, kindStatus(ce.Kind), errorResponse{Kind: ce.Kind, Sub: ce.Sub, Detail: ce.Detail})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{Kind: "Internal", Detail: err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return coreerr.Wrap(coreerr.KindSchema, "decoding request body", err)
	}
	return nil
}
