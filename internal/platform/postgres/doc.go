// Package postgres provides the PostgreSQL implementation of the fragment
// store interface defined in the internal/store package. It handles query
// execution, transaction plumbing, and mapping between memory fragments and
// their database rows.
package postgres
