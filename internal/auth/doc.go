// Package auth owns the Spotify session: client credentials, the PKCE authorization flow, and the token lifecycle.
//
// [Manager] is the only reader and writer of the persisted credential and token records. Callers ask it for a
// usable access token through [Manager.GetValidAccessToken] and never see the refresh token.
//
// Authorization is a copy-paste flow: the authorization URL is opened in a browser, Spotify redirects to a local
// address nothing listens on, and the user pastes that URL back through a [Prompter].
//
// Refresh failures are classified once, in [TokenClient]:
//   - rejected refresh token (HTTP 400/401, invalid_grant): tokens are cleared, [IsReauthRequired] is true
//   - anything else (network, timeout, 5xx): tokens are kept, [IsTransient] is true
package auth
