/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package lrucache provides a generic in-memory LRU cache with optional TTL-based
// (absolute or sliding) expiration and Prometheus metrics.
// It backs the keyed state stores of the ratelimit package.
package lrucache
