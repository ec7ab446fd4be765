// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// saveTTYState snapshots standard output's terminal attributes when
// entering CONTROLCONTROL mode, restored exactly once by terminate.
func (c *Client) saveTTYState() {
	fd := int(os.Stdout.Fd())
	state, err := term.GetState(fd)
	if err != nil {
		return
	}
	c.savedTTY = &savedTTYState{fd: fd, state: state}
}

// maybeRestoreTTY restores previously saved terminal attributes, if
// any. Safe to call unconditionally as a deferred cleanup — terminate
// also calls it on the CONTROLCONTROL exit path, and the no-op second
// call from Run's defer is harmless.
func (c *Client) maybeRestoreTTY() {
	if c.savedTTY == nil {
		return
	}
	term.Restore(c.savedTTY.fd, c.savedTTY.state)
	c.savedTTY = nil
}

// terminate runs the Terminator (spec.md §4.7) after the event loop has
// returned, and returns the process exit code.
func (c *Client) terminate() int {
	if c.exitType == ExitTypeExec {
		c.execHandoff() // does not return on success
		return 1
	}

	if c.reachedAttached {
		if text, ok := c.exitReason.banner(c.exitSession); ok {
			fmt.Fprintf(os.Stdout, "[%s]\n", text)
		}
		if c.exitType == ExitTypeDetachKill && c.parentPID > 1 {
			unix.Kill(c.parentPID, unix.SIGHUP)
		}
		return c.exitCode
	}

	if c.flags&FlagControlControl != 0 {
		if text, ok := c.exitReason.banner(c.exitSession); ok {
			fmt.Fprintf(os.Stdout, "%%exit %s\n", text)
		} else {
			io.WriteString(os.Stdout, "%exit\n")
		}
		fmt.Fprint(os.Stdout, "\x1b\\")
		c.maybeRestoreTTY()
		return c.exitCode
	}

	if text, ok := c.exitReason.banner(c.exitSession); ok {
		fmt.Fprintf(os.Stderr, "%s\n", text)
	}
	return c.exitCode
}

// execHandoff replaces the process image with the recorded shell
// running the recorded -c command, per spec.md §4.7 step 1. Does not
// return if syscall.Exec succeeds.
func (c *Client) execHandoff() {
	for _, fd := range []int{0, 1, 2} {
		unix.SetNonblock(fd, false)
	}
	// CloseRange may be unsupported on older kernels; best effort, like
	// the rest of this shutdown path.
	_ = unix.CloseRange(3, ^uint(0), 0)

	argv0 := filepath.Base(c.execShell)
	if c.flags&FlagLogin != 0 {
		argv0 = "-" + argv0
	}
	argv := []string{argv0, "-c", c.execCommand}
	err := syscall.Exec(c.execShell, argv, os.Environ())
	// Reached only on failure: Exec replaced the process image and this
	// function never returns on success, so falling through here means
	// the handoff itself failed — report it and let Run's caller decide
	// the exit code (already fixed at 1 by terminate above).
	fmt.Fprintf(os.Stderr, "exec %s: %v\n", c.execShell, err)
}
