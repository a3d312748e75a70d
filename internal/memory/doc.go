// Package memory implements the fragment memory service: idempotent
// creation on re-exposure, retention-gated memory checks with fuzzy
// suggestions, reinforcement recording with status promotion and demotion,
// bulk status overrides, review scheduling, and the stale-fragment purge.
//
// The service owns all fragment mutation. Transports and background tasks
// call it; nothing else writes fragments.
package memory
