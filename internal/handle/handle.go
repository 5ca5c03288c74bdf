// Copyright ©2026 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package handle provides the open/closed state shared by the reader,
// writer and file types.
package handle

import (
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/biogo/bamio"
)

// Handle guards a resource with a single lock. A Handle is Open until
// Close is called and Closed thereafter. Operations run through Do are
// serialised, those run through Share may run concurrently with each
// other, and both fail with bamio.ErrHandleClosed once the handle is
// closed.
//
// The zero Handle is open and owns no closer.
type Handle struct {
	mu     sync.RWMutex
	closed bool
	closer func() error
}

// New returns an open Handle that runs closer once when it is closed.
// A nil closer is allowed.
func New(closer func() error) *Handle {
	return &Handle{closer: closer}
}

// Owning returns a closer func that closes each non-nil c in order,
// returning the first error.
func Owning(c ...io.Closer) func() error {
	return func() error {
		var err error
		for _, cl := range c {
			if cl == nil {
				continue
			}
			if cerr := cl.Close(); err == nil {
				err = cerr
			}
		}
		return err
	}
}

// Do runs fn while holding the handle's lock. If the handle is closed
// fn is not run and an error wrapping bamio.ErrHandleClosed naming op
// is returned.
func (h *Handle) Do(op string, fn func() error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errors.Wrap(bamio.ErrHandleClosed, op)
	}
	return fn()
}

// Share is like Do but allows other Share operations to run at the
// same time. fn must not mutate state shared with other callers.
func (h *Handle) Share(op string, fn func() error) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return errors.Wrap(bamio.ErrHandleClosed, op)
	}
	return fn()
}

// Closed returns whether the handle has been closed.
func (h *Handle) Closed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}

// Close marks the handle closed and runs its closer. Only the first
// call runs the closer; later calls are no-ops returning nil.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if h.closer == nil {
		return nil
	}
	return h.closer()
}
