// Package store persists projects, capture sessions, assets, tasks, and
// sync state in a local SQLite database.
//
// Every write that affects a project's media or task counters runs inside a
// transaction that also updates the counters, so reads never recompute them.
// Lookups for missing rows return (nil, nil) rather than an error.
package store
