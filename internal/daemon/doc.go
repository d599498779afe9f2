// Package daemon hosts the long-running cardflow process.
//
// The Daemon owns the board store and the coordination engines, exposes them
// over an HTTP API, and sweeps expired edit locks on a configured cadence. A
// file lock in the data directory guarantees that only one daemon instance
// runs against a database at a time.
//
// # API
//
// The HTTP API authenticates clients with an optional bearer token and
// identifies the acting user through the X-User-ID header. Handlers delegate
// to the api package services and translate their error markers into HTTP
// status codes.
package daemon
