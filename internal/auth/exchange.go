package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/mrnavastar/launchcore/internal/coreerr"
	"github.com/mrnavastar/launchcore/internal/httpclient"
)

const (
	xboxLiveAuthenticateURL  = "https://user.auth.xboxlive.com/user/authenticate"
	xstsAuthenticateURL      = "https://xsts.auth.xboxlive.com/xsts/authorize"
	minecraftAuthenticateURL = "https://api.minecraftservices.com/authentication/login_with_xbox"
	minecraftEntitlementURL  = "https://api.minecraftservices.com/entitlements/mcstore"
	minecraftProfileURL      = "https://api.minecraftservices.com/minecraft/profile"
)

// xerrHints maps Xbox Live's XErr codes to the human-readable explanation
// the UI surfaces alongside the subkind (spec §4.6 step 3).
var xerrHints = map[uint64]string{
	2148916233: "this Microsoft account has no associated Xbox Live profile; sign in at xbox.com once to create one",
	2148916235: "Xbox Live is not available in this account's country",
	2148916236: "this account needs adult verification on the Xbox page (South Korea)",
	2148916237: "this account needs adult verification on the Xbox page (South Korea)",
	2148916238: "this is a child account and must be added to a Family by an adult before it can sign in",
}

func xerrSubkind(xerr uint64) coreerr.AuthSubkind {
	switch xerr {
	case 2148916233:
		return coreerr.AuthNoXboxAccount
	case 2148916235:
		return coreerr.AuthRegionBanned
	case 2148916236, 2148916237, 2148916238:
		return coreerr.AuthChildAccount
	default:
		return ""
	}
}

type xboxTokenRequest struct {
	Properties   map[string]any `json:"Properties"`
	RelyingParty string         `json:"RelyingParty"`
	TokenType    string         `json:"TokenType"`
}

type xboxTokenSuccess struct {
	Token          string                         `json:"Token"`
	DisplayClaims  map[string][]map[string]string `json:"DisplayClaims"`
}

func (x xboxTokenSuccess) userHash() (string, bool) {
	xui, ok := x.DisplayClaims["xui"]
	if !ok || len(xui) == 0 {
		return "", false
	}
	uhs, ok := xui[0]["uhs"]
	return uhs, ok
}

type xboxTokenFailure struct {
	XErr    uint64 `json:"XErr"`
	Message string `json:"Message"`
}

// obtainXBLToken exchanges a Microsoft access token for an Xbox Live user
// token (spec §4.6 step 3, "user.auth.xboxlive.com/user/authenticate").
func obtainXBLToken(ctx context.Context, http *httpclient.Pool, microsoftAccessToken string) (*xboxTokenSuccess, error) {
	body := xboxTokenRequest{
		Properties: map[string]any{
			"AuthMethod": "RPS",
			"SiteName":   "user.auth.xboxlive.com",
			"RpsTicket":  "d=" + microsoftAccessToken,
		},
		RelyingParty: "http://auth.xboxlive.com",
		TokenType:    "JWT",
	}
	return postXboxToken(ctx, http, xboxLiveAuthenticateURL, body)
}

// obtainXSTSToken exchanges an Xbox Live user token for an XSTS token
// scoped to the Minecraft relying party (spec §4.6 step 3).
func obtainXSTSToken(ctx context.Context, http *httpclient.Pool, xblToken string) (*xboxTokenSuccess, error) {
	body := xboxTokenRequest{
		Properties: map[string]any{
			"SandboxId":  "RETAIL",
			"UserTokens": []string{xblToken},
		},
		RelyingParty: "rp://api.minecraftservices.com/",
		TokenType:    "JWT",
	}
	return postXboxToken(ctx, http, xstsAuthenticateURL, body)
}

func postXboxToken(ctx context.Context, http *httpclient.Pool, url string, body xboxTokenRequest) (*xboxTokenSuccess, error) {
	var success xboxTokenSuccess
	var failure xboxTokenFailure
	r, err := http.Client().R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBody(body).
		SetResult(&success).
		SetError(&failure).
		Post(url)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindNetwork, "calling "+url, err)
	}
	if r.IsError() {
		sub := xerrSubkind(failure.XErr)
		hint, known := xerrHints[failure.XErr]
		if !known {
			hint = failure.Message
		}
		if sub == "" {
			return nil, coreerr.New(coreerr.KindAuth, fmt.Sprintf("xbox live rejected sign-in (XErr %d): %s", failure.XErr, hint))
		}
		return nil, coreerr.AuthError(sub, hint)
	}
	return &success, nil
}

type minecraftTokenRequest struct {
	IdentityToken       string `json:"identityToken"`
	EnsureLegacyEnabled bool   `json:"ensureLegacyEnabled"`
}

type minecraftTokenSuccess struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// obtainMinecraftToken exchanges the XSTS token and user hash for a
// Minecraft Services access token (spec §4.6 step 4).
func obtainMinecraftToken(ctx context.Context, http *httpclient.Pool, xstsToken, userHash string) (*minecraftTokenSuccess, error) {
	body := minecraftTokenRequest{
		IdentityToken:       fmt.Sprintf("XBL3.0 x=%s;%s", userHash, xstsToken),
		EnsureLegacyEnabled: true,
	}
	var success minecraftTokenSuccess
	r, err := http.Client().R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBody(body).
		SetResult(&success).
		Post(minecraftAuthenticateURL)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindNetwork, "exchanging xsts token for minecraft token", err)
	}
	if r.IsError() {
		return nil, coreerr.New(coreerr.KindAuth, "minecraft services rejected the xsts token: "+r.Status())
	}
	return &success, nil
}

type minecraftEntitlementItem struct {
	Name string `json:"name"`
}

type minecraftEntitlementSuccess struct {
	Items []minecraftEntitlementItem `json:"items"`
}

func (e minecraftEntitlementSuccess) ownsGame() bool {
	for _, item := range e.Items {
		if item.Name == "game_minecraft" || item.Name == "product_minecraft" {
			return true
		}
	}
	return false
}

// obtainMinecraftEntitlement verifies the account actually owns Minecraft:
// Java Edition (spec §4.6 step 4, "Verify entitlement") before a profile is
// ever fetched; a Microsoft/Xbox account can reach this point without ever
// having purchased the game.
func obtainMinecraftEntitlement(ctx context.Context, http *httpclient.Pool, minecraftAccessToken string) (*minecraftEntitlementSuccess, error) {
	var success minecraftEntitlementSuccess
	r, err := http.Client().R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetAuthToken(minecraftAccessToken).
		SetResult(&success).
		Get(minecraftEntitlementURL)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindNetwork, "checking minecraft entitlement", err)
	}
	if r.IsError() {
		return nil, coreerr.New(coreerr.KindAuth, "minecraft entitlement check failed: "+r.Status())
	}
	return &success, nil
}

type minecraftProfileSuccess struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Skins []Skin `json:"skins"`
	Capes []Cape `json:"capes"`
}

type minecraftProfileFailure struct {
	Error        string `json:"error"`
	ErrorMessage string `json:"errorMessage"`
}

// obtainMinecraftProfile fetches uuid/name/skins/capes (spec §4.6 step 5;
// capes are an upstream field the distilled spec dropped, supplemented
// per SPEC_FULL §12 item 3).
func obtainMinecraftProfile(ctx context.Context, http *httpclient.Pool, minecraftAccessToken string) (*minecraftProfileSuccess, error) {
	var success minecraftProfileSuccess
	var failure minecraftProfileFailure
	r, err := http.Client().R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetAuthToken(minecraftAccessToken).
		SetResult(&success).
		SetError(&failure).
		Get(minecraftProfileURL)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindNetwork, "fetching minecraft profile", err)
	}
	if r.IsError() {
		return nil, coreerr.New(coreerr.KindAuth, "fetching minecraft profile failed: "+failure.ErrorMessage)
	}
	return &success, nil
}

// Authenticate runs the full chain for a fresh Microsoft access token:
// Xbox Live -> XSTS -> Minecraft -> entitlement -> profile (spec §4.6
// steps 3-5).
func Authenticate(ctx context.Context, http *httpclient.Pool, microsoftAccessToken string) (*Account, string, error) {
	xbl, err := obtainXBLToken(ctx, http, microsoftAccessToken)
	if err != nil {
		return nil, "", err
	}
	xsts, err := obtainXSTSToken(ctx, http, xbl.Token)
	if err != nil {
		return nil, "", err
	}
	userHash, ok := xsts.userHash()
	if !ok {
		return nil, "", coreerr.New(coreerr.KindAuth, "xsts response carried no user hash")
	}
	mcToken, err := obtainMinecraftToken(ctx, http, xsts.Token, userHash)
	if err != nil {
		return nil, "", err
	}
	entitlement, err := obtainMinecraftEntitlement(ctx, http, mcToken.AccessToken)
	if err != nil {
		return nil, "", err
	}
	if !entitlement.ownsGame() {
		return nil, "", coreerr.AuthError(coreerr.AuthNoEntitlement, "this Microsoft account does not own Minecraft: Java Edition")
	}
	profile, err := obtainMinecraftProfile(ctx, http, mcToken.AccessToken)
	if err != nil {
		return nil, "", err
	}

	account := &Account{
		UUID:                       profile.ID,
		Name:                       profile.Name,
		Skins:                      profile.Skins,
		Capes:                      profile.Capes,
		SkinURL:                    activeSkinURL(profile.Skins),
		XboxUserHash:               userHash,
		MinecraftAccessToken:       mcToken.AccessToken,
		MinecraftAccessTokenExpiry: time.Now().Add(time.Duration(mcToken.ExpiresIn-10) * time.Second),
	}
	return account, mcToken.AccessToken, nil
}
