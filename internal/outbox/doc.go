// Package outbox is the durable write log that sits in front of the remote
// document store for LaunchContent writes.
//
// Writes are appended to a Redis list and applied to the remote repository
// by a Reconciler. An entry leaves the log only after the remote write is
// confirmed; failures are re-queued at the head so ordering per entity is
// preserved, and entries that keep failing are moved to a dead-letter list.
package outbox
