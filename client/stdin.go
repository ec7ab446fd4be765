// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import "os"

// stdinReadBufferSize is the fixed read buffer spec.md §4.6 calls for.
const stdinReadBufferSize = 16 * 1024

// startStdinPump launches the stdin reader goroutine and returns the
// channel it publishes events on. The goroutine blocks in os.Stdin.Read
// — Go's equivalent of a level-triggered non-blocking watcher is a
// blocking read on its own goroutine, since a read that never fires
// simply never produces an event, and the dispatch loop never blocks
// waiting on it specifically (it selects across this channel among
// others).
//
// Gating between reads is a permit channel the event loop feeds
// (enableStdin/disableStdin below): Go cannot un-block a goroutine
// already inside Read, so "disabling" the pump only ever withholds the
// *next* permit — it cannot cancel a read in flight.
func (c *Client) startStdinPump() {
	c.stdinEvents = make(chan stdinEvent, 1)
	c.stdinPermit = make(chan struct{}, 1)
	c.stdinEnabled = true
	c.stdinPermit <- struct{}{} // the first read is always allowed

	go func() {
		buf := make([]byte, stdinReadBufferSize)
		for range c.stdinPermit {
			n, err := os.Stdin.Read(buf)
			if n <= 0 || err != nil {
				c.stdinEvents <- stdinEvent{eof: true}
				return
			}
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			c.stdinEvents <- stdinEvent{data: chunk}
		}
	}()
}

// disableStdin withholds the next stdin read permit, discarding one that
// is already queued but not yet taken by the pump. Called when Ready
// arrives (spec.md §4.4, Wait state).
func (c *Client) disableStdin() {
	c.stdinEnabled = false
	select {
	case <-c.stdinPermit:
	default:
	}
}

// enableStdin grants the pump permission to read again, both updating
// the persistent flag the event loop consults after future reads and
// immediately unblocking a pump that is already parked waiting for one.
// Called on a Stdin flow-control frame from the server (spec.md §4.4,
// Wait state).
func (c *Client) enableStdin() {
	c.stdinEnabled = true
	select {
	case c.stdinPermit <- struct{}{}:
	default:
	}
}

// grantStdinPermitIfEnabled is called by the event loop after forwarding
// a stdin data chunk, to let the pump read the next chunk — but only if
// nothing has disabled it since the read that produced this chunk began.
func (c *Client) grantStdinPermitIfEnabled() {
	if !c.stdinEnabled {
		return
	}
	select {
	case c.stdinPermit <- struct{}{}:
	default:
	}
}
