// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/bureau-foundation/muxclient/transport"
)

// sendIdentify sends the ordered identity burst (spec.md §4.3). It is
// called exactly once, immediately after the transport connects, before
// the event loop starts dispatching inbound messages.
func (c *Client) sendIdentify() error {
	if err := c.transport.Send(transport.Frame{Type: transport.TypeIdentifyFlags, Payload: transport.EncodeUint32(uint32(c.flags))}); err != nil {
		return err
	}

	termPayload, err := transport.EncodeString(os.Getenv("TERM"))
	if err != nil {
		return err
	}
	if err := c.transport.Send(transport.Frame{Type: transport.TypeIdentifyTerm, Payload: termPayload}); err != nil {
		return err
	}

	ttyPayload, err := transport.EncodeString(ttyName())
	if err != nil {
		return err
	}
	if err := c.transport.Send(transport.Frame{Type: transport.TypeIdentifyTTYName, Payload: ttyPayload}); err != nil {
		return err
	}

	cwdPayload, err := transport.EncodeString(currentDirectory())
	if err != nil {
		return err
	}
	if err := c.transport.Send(transport.Frame{Type: transport.TypeIdentifyCwd, Payload: cwdPayload}); err != nil {
		return err
	}

	stdinDup, err := unix.Dup(int(os.Stdin.Fd()))
	if err != nil {
		return err
	}
	defer unix.Close(stdinDup)
	if err := c.transport.SendFD(transport.Frame{Type: transport.TypeIdentifyStdin}, stdinDup); err != nil {
		return err
	}

	if err := c.transport.Send(transport.Frame{Type: transport.TypeIdentifyClientPID, Payload: transport.EncodeInt32(int32(os.Getpid()))}); err != nil {
		return err
	}

	for _, entry := range os.Environ() {
		payload, err := transport.EncodeString(entry)
		if err != nil {
			return err
		}
		// Entries whose encoded size would not fit in a frame are
		// silently skipped (spec.md §4.3) — mirrors tmux's MAX_IMSGSIZE
		// check for the same message.
		if len(payload) > transport.MaxPayloadSize-9 {
			continue
		}
		if err := c.transport.Send(transport.Frame{Type: transport.TypeIdentifyEnviron, Payload: payload}); err != nil {
			return err
		}
	}

	return c.transport.Send(transport.Frame{Type: transport.TypeIdentifyDone})
}

// ttyName returns the name of the controlling terminal on stdin, or the
// empty string if stdin is not a terminal.
func ttyName() string {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return ""
	}
	name, err := os.Readlink("/proc/self/fd/0")
	if err != nil {
		return ""
	}
	return name
}

// currentDirectory returns the working directory to report in the
// identify burst: the real cwd, falling back to $HOME, falling back to
// "/" (spec.md §4.3).
func currentDirectory() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home
	}
	return "/"
}
