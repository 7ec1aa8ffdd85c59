package auth

import (
	"context"
	"time"

	"github.com/mrnavastar/launchcore/internal/coreerr"
	"github.com/mrnavastar/launchcore/internal/httpclient"
)

const (
	clientID            = "00000000-0000-0000-0000-000000000000" // launcher-specific Azure AD app id, configured at build time
	scope               = "XboxLive.signin offline_access"
	deviceCodeURL       = "https://login.microsoftonline.com/consumers/oauth2/v2.0/devicecode"
	tokenURL            = "https://login.microsoftonline.com/consumers/oauth2/v2.0/token"
	grantTypeDeviceCode = "urn:ietf:params:oauth:grant-type:device_code"
	grantTypeRefreshTok = "refresh_token"
)

// DeviceCodeResponse is what start_authentication_flow returns to the UI
// (spec §6).
type DeviceCodeResponse struct {
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	DeviceCode      string `json:"device_code"`
	IntervalSeconds int    `json:"interval"`
	ExpiresIn       int    `json:"expires_in"`
	Message         string `json:"message"`
}

type msaTokenSuccess struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type msaTokenError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// StartDeviceCodeFlow implements spec §4.6 step 1: POST to the Microsoft
// identity devicecode endpoint.
func StartDeviceCodeFlow(ctx context.Context, http *httpclient.Pool) (*DeviceCodeResponse, error) {
	var resp DeviceCodeResponse
	r, err := http.Client().R().
		SetContext(ctx).
		SetFormData(map[string]string{"client_id": clientID, "scope": scope}).
		SetResult(&resp).
		Post(deviceCodeURL)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindNetwork, "starting device code flow", err)
	}
	if r.IsError() {
		return nil, coreerr.New(coreerr.KindNetwork, "device code request rejected: "+r.Status())
	}
	return &resp, nil
}

// pollErrorKind classifies the MSA polling error codes spec §4.6 step 2
// names: "authorization_pending" and "slow_down" mean keep polling;
// anything else (including "expired_token") is terminal.
type pollErrorKind int

const (
	pollPending pollErrorKind = iota
	pollSlowDown
	pollTerminal
)

func classifyPollError(errCode string) pollErrorKind {
	switch errCode {
	case "authorization_pending":
		return pollPending
	case "slow_down":
		return pollSlowDown
	default:
		return pollTerminal
	}
}

// PollDeviceCode implements spec §4.6 step 2: poll the token endpoint at
// the server-provided interval, honoring slow_down/authorization_pending,
// giving up when expiresIn elapses.
func PollDeviceCode(ctx context.Context, http *httpclient.Pool, deviceCode string, intervalSeconds, expiresIn int) (*msaTokenSuccess, error) {
	interval := time.Duration(intervalSeconds) * time.Second
	deadline := time.Now().Add(time.Duration(expiresIn) * time.Second)

	for {
		if time.Now().After(deadline) {
			return nil, coreerr.AuthError(coreerr.AuthDeviceCodeExpired, "device code expired before the user completed sign-in")
		}

		var success msaTokenSuccess
		var failure msaTokenError
		r, err := http.Client().R().
			SetContext(ctx).
			SetFormData(map[string]string{
				"client_id":   clientID,
				"device_code": deviceCode,
				"grant_type":  grantTypeDeviceCode,
			}).
			SetResult(&success).
			SetError(&failure).
			Post(tokenURL)
		if err != nil {
			return nil, coreerr.Wrap(coreerr.KindNetwork, "polling device code token endpoint", err)
		}
		if r.IsError() {
			switch classifyPollError(failure.Error) {
			case pollPending:
				sleepOrCancel(ctx, interval)
				continue
			case pollSlowDown:
				interval += 5 * time.Second
				sleepOrCancel(ctx, interval)
				continue
			default:
				return nil, coreerr.New(coreerr.KindAuth, "microsoft sign-in failed: "+failure.ErrorDescription)
			}
		}
		return &success, nil
	}
}

// refreshMicrosoftToken exchanges a stored MSA refresh token for a new
// access+refresh token pair (spec §4.6 "Refresh").
func refreshMicrosoftToken(ctx context.Context, http *httpclient.Pool, refreshToken string) (*msaTokenSuccess, error) {
	var success msaTokenSuccess
	var failure msaTokenError
	r, err := http.Client().R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":     clientID,
			"refresh_token": refreshToken,
			"grant_type":    grantTypeRefreshTok,
			"scope":         scope,
		}).
		SetResult(&success).
		SetError(&failure).
		Post(tokenURL)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindNetwork, "refreshing microsoft token", err)
	}
	if r.IsError() {
		return nil, coreerr.AuthError(coreerr.AuthRefreshRejected, failure.ErrorDescription)
	}
	return &success, nil
}

func sleepOrCancel(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
