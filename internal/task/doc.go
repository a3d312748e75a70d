// Package task provides the background maintenance machinery: a bounded
// queue feeding a small worker pool, and a periodic scheduler that enqueues
// idempotent maintenance work such as the stale-fragment purge. Nothing is
// persisted; a run lost to a restart is re-enqueued by its scheduler on the
// next boot.
package task
