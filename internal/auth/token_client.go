package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/shared"
	"golang.org/x/oauth2"
)

// defaultLifetime applies when the token response carries no expires_in.
const defaultLifetime = time.Hour

// TokenClient talks to the Spotify accounts service as a public PKCE client.
//
// No client secret is ever sent: the exchange body is grant_type, code, redirect_uri, client_id and code_verifier,
// and the refresh body is grant_type, refresh_token and client_id.
type TokenClient struct {
	config     *oauth2.Config
	httpClient *http.Client
	now        func() time.Time
}

// NewTokenClient creates a [TokenClient] for clientID against the endpoints in cfg.
//
// A nil httpClient uses [http.DefaultClient]; a nil now uses [time.Now].
func NewTokenClient(cfg shared.SpotifyConfig, clientID string, httpClient *http.Client, now func() time.Time) *TokenClient {
	if now == nil {
		now = time.Now
	}

	return &TokenClient{
		config: &oauth2.Config{
			ClientID:    clientID,
			RedirectURL: cfg.RedirectURI,
			Scopes:      cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
		now:        now,
	}
}

// AuthCodeURL builds the authorization URL for one attempt.
func (c *TokenClient) AuthCodeURL(state string, pkce PKCE) string {
	return c.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge_method", pkce.Method),
		oauth2.SetAuthURLParam("code_challenge", pkce.Challenge),
	)
}

// Exchange trades an authorization code and its verifier for a [models.TokenSet].
func (c *TokenClient) Exchange(ctx context.Context, code, verifier string) (*models.TokenSet, error) {
	tok, err := c.config.Exchange(c.withClient(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrTokenExchangeFailed, endpointError(err))
	}
	return c.tokenSet(tok), nil
}

// Refresh redeems refreshToken for a new access token.
//
// The returned set keeps refreshToken when the server does not rotate it. Errors are classified with
// [IsReauthRequired] and [IsTransient].
func (c *TokenClient) Refresh(ctx context.Context, refreshToken string) (*models.TokenSet, error) {
	src := c.config.TokenSource(c.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, classifyRefreshError(endpointError(err))
	}

	set := c.tokenSet(tok)
	if set.RefreshToken == "" {
		set.RefreshToken = refreshToken
	}
	return set, nil
}

func (c *TokenClient) withClient(ctx context.Context) context.Context {
	if c.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// tokenSet computes an absolute expiry from expires_in using the client's clock.
func (c *TokenClient) tokenSet(tok *oauth2.Token) *models.TokenSet {
	set := &models.TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		set.Scope = scope
	}

	now := c.now()
	switch {
	case tok.ExpiresIn > 0:
		set.ExpiresAt = now.Add(time.Duration(tok.ExpiresIn) * time.Second).UnixMilli()
	case extraSeconds(tok) > 0:
		set.ExpiresAt = now.Add(time.Duration(extraSeconds(tok)) * time.Second).UnixMilli()
	case !tok.Expiry.IsZero():
		set.ExpiresAt = tok.Expiry.UnixMilli()
	default:
		set.ExpiresAt = now.Add(defaultLifetime).UnixMilli()
	}
	return set
}

func extraSeconds(tok *oauth2.Token) int64 {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}
