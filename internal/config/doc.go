// Package config handles configuration loading, parsing, and validation
// from environment variables and files. It provides type-safe access to
// server, storage, pipeline, retention, and maintenance settings while
// keeping configuration details separate from business logic.
package config
