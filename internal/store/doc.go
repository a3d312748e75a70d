// Package store defines interfaces for fragment persistence operations.
// These interfaces abstract the underlying data storage mechanism from the
// memory service, allowing retention and gating rules to remain independent
// of whether fragments live in PostgreSQL or in memory.
package store
