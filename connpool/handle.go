/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package connpool

import (
	"io"
	"time"

	"github.com/rs/xid"
	"go.uber.org/atomic"
)

// State represents the lifecycle state of a pooled connection handle.
type State int32

// Handle states.
const (
	StateIdle State = iota
	StateActive
	StateUnhealthy
)

// String returns a string representation of the state.
// Implements fmt.Stringer interface.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateUnhealthy:
		return "unhealthy"
	}
	return "unknown"
}

// Handle is an opaque reference to a pooled connection.
// Handles are owned exclusively by the pool; callers receive one from Pool.Get,
// may use the carried transport object while the handle is active,
// and must give it back with Pool.Put exactly once per acquisition.
type Handle struct {
	id        string
	endpoint  string
	conn      io.Closer
	createdAt time.Time

	state      atomic.Int32
	lastUsedAt atomic.Int64 // unix nanoseconds
}

func newHandle(endpoint string, conn io.Closer, now time.Time) *Handle {
	h := &Handle{
		id:        xid.New().String(),
		endpoint:  endpoint,
		conn:      conn,
		createdAt: now,
	}
	h.state.Store(int32(StateActive))
	h.lastUsedAt.Store(now.UnixNano())
	return h
}

// ID returns the unique identifier of the handle.
func (h *Handle) ID() string { return h.id }

// Endpoint returns the endpoint the handle is connected to.
func (h *Handle) Endpoint() string { return h.endpoint }

// Conn returns the transport object produced by the pool's Dial function.
// It is nil when the pool was constructed without one.
func (h *Handle) Conn() io.Closer { return h.conn }

// CreatedAt returns the handle's creation time.
func (h *Handle) CreatedAt() time.Time { return h.createdAt }

// LastUsedAt returns the time of the last acquisition or return of the handle.
func (h *Handle) LastUsedAt() time.Time { return time.Unix(0, h.lastUsedAt.Load()) }

// State returns the current state of the handle.
func (h *Handle) State() State { return State(h.state.Load()) }

func (h *Handle) setState(s State) { h.state.Store(int32(s)) }

func (h *Handle) touch(now time.Time) { h.lastUsedAt.Store(now.UnixNano()) }

func (h *Handle) closeConn() error {
	if h.conn == nil {
		return nil
	}
	return h.conn.Close()
}
