// Package services implements [SpotifyClient], the Spotify Web API consumer of the auth session.
//
// # Tokens
//
// The client never stores tokens. Before every request it calls [TokenProvider.GetValidAccessToken], which refreshes
// tokens close to expiry. A 401 response triggers one more token lookup and a single retry.
//
// # Throttling
//
// Requests pass through a [rate.Limiter] sized from the [api] config section.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : no session, run "spotx auth login"
//   - [shared.ErrRefreshTokenExpired] : session revoked, reconnect
//   - [shared.ErrTransientRefresh] : token refresh failed, retry later
//   - [shared.ErrNoActiveDevice] : player endpoint returned 404
//   - [shared.ErrServiceUnavailable] : network failure, 429 or 5xx
//   - [shared.ErrAPIRequest] : any other non-2xx response
//
// Endpoints that answer 204 (nothing playing, no device) yield nil results rather than errors.
package services
