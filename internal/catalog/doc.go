// Package catalog owns the canonical Work/Release model and its SQLite
// persistence. The store enforces the release business key, a monotonic
// notified transition, and single-writer discipline; all other components
// mutate catalog state exclusively through it.
package catalog
