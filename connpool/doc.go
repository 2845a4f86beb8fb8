/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package connpool provides a sharded in-process pool of reusable per-endpoint
// connection handles with health checking and idle eviction.
//
// The pool never blocks: when all handles of an endpoint are busy and the
// per-endpoint limit is reached, Get returns ErrPoolExhausted immediately.
// Transport specifics are injected via Dial and Probe functions.
package connpool
