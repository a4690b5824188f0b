// Package launchcontent implements the LaunchContent ("Product") service.
//
// Every entity is owned by exactly one user. Reads and writes are scoped to
// the caller: touching another user's entity returns domain.ErrForbidden.
//
// When a Cache and an Outbox are configured, writes are appended to the
// outbox and applied to the cache immediately; the outbox reconciler calls
// Apply to persist them to the repository later. Without them, writes go
// straight to the repository.
package launchcontent
