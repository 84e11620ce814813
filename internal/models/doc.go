// Package models defines the session records shared by the auth manager and its storage backends.
//
//   - [Credentials] : the user's client id/secret, collected once by prompt
//   - [TokenSet] : access/refresh token pair with an absolute expiry in unix milliseconds
//   - [SecurityEvent] : a rejected authorization response worth auditing
//
// Both session records are persisted as flat JSON under [CredentialsKey] and [TokensKey] through a [KeyValueStore].
// No package other than auth reads or writes those keys.
package models
