// Package repositories implements persistence for the session records and the security event log.
//
// Session records go through [models.KeyValueStore]; the backend is chosen by config:
//   - [StateRepository] : SQLite "state" table, upserted per key (default)
//   - [KeyringStore] : operating system keychain via go-keyring
//   - [FileStore] : a JSON document written atomically under a gofrs/flock lock
//   - [MemoryStore] : process-local, used by tests and ephemeral sessions
//
// All backends return [models.ErrNotFound] for absent keys and treat deleting an absent key as success.
//
// [EventRepository] stores [models.SecurityEvent] rows (UUID ids) in the same SQLite database.
package repositories
