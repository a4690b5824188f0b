// Package memory provides in-process repositories for LaunchContent,
// Newsletter and Subscriber. They back the "memory" storage backend used in
// development and tests; data does not survive a restart.
package memory
