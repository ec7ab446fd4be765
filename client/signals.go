// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/muxclient/transport"
)

// signalsOfInterest are the signals SignalBridge registers for (spec.md
// §4.5): SIGCHLD, SIGTERM, SIGHUP, SIGWINCH, SIGCONT.
var signalsOfInterest = []os.Signal{
	syscall.SIGCHLD,
	syscall.SIGTERM,
	syscall.SIGHUP,
	syscall.SIGWINCH,
	syscall.SIGCONT,
}

// startSignalBridge registers the signals of interest and returns the
// channel they arrive on. os/signal's internal queuing is itself the
// async-signal-safe indirection spec.md §4.5/§9 ask a hand-rolled
// self-pipe to provide — the channel receive happens on an ordinary
// goroutine, so everything downstream of this channel may do ordinary,
// non-signal-safe work (including sending a transport frame), as long
// as it happens on the single event-loop goroutine that reads from it.
func startSignalBridge() chan os.Signal {
	ch := make(chan os.Signal, 16)
	signal.Notify(ch, signalsOfInterest...)
	return ch
}

// handleSignal implements SignalBridge's dispatch table (spec.md §4.5).
// It is only ever called from the event-loop goroutine, after a value
// has already been received off the channel startSignalBridge returned.
// Returns exit=true when the signal drove the client to Exiting.
func (c *Client) handleSignal(sig os.Signal) (exit bool, err error) {
	if sig == syscall.SIGCHLD {
		reapZombies()
		return false, nil
	}

	switch c.state {
	case StateWait:
		if sig == syscall.SIGTERM {
			c.setState(StateExiting)
			return true, nil
		}
		return false, nil

	case StateAttached:
		switch sig {
		case syscall.SIGHUP:
			c.exitReason = ExitReasonLostTTY
			c.exitCode = 1
			if sendErr := c.transport.Send(transport.Frame{Type: transport.TypeExiting}); sendErr != nil {
				return true, sendErr
			}
			c.setState(StateExiting)
			return true, nil

		case syscall.SIGTERM:
			c.exitReason = ExitReasonTerminated
			c.exitCode = 1
			if sendErr := c.transport.Send(transport.Frame{Type: transport.TypeExiting}); sendErr != nil {
				return true, sendErr
			}
			c.setState(StateExiting)
			return true, nil

		case syscall.SIGWINCH:
			if sendErr := c.transport.Send(transport.Frame{Type: transport.TypeResize}); sendErr != nil {
				return true, sendErr
			}
			return false, nil

		case syscall.SIGCONT:
			// Ignore the stop signal on resumption (spec.md §4.5); the
			// Suspend message handler (dispatch.go) restores the
			// default disposition again before the next self-stop.
			signal.Ignore(syscall.SIGTSTP)
			if sendErr := c.transport.Send(transport.Frame{Type: transport.TypeWakeup}); sendErr != nil {
				return true, sendErr
			}
			return false, nil
		}
	}
	return false, nil
}

// reapZombies non-blockingly reaps any children that have exited,
// mirroring spec.md §4.5: installed early specifically so a
// daemon-style server spawn does not leave a zombie behind.
func reapZombies() {
	for {
		var status unix.WaitStatus
		pid, err := unix.Wait4(-1, &status, unix.WNOHANG, nil)
		if err != nil || pid <= 0 {
			return
		}
	}
}
