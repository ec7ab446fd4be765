// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import "fmt"

// SetupError wraps a failure during socket bring-up: a path that's too
// long for a Unix domain address, a refused connection with no server to
// start, or a lock/socket syscall failure. Setup failures are always
// fatal for the client (spec.md §7).
type SetupError struct {
	Op  string
	Err error
}

func (e *SetupError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// ProtocolError is a fatal payload-shape violation: a message whose
// length or NUL-termination disagrees with the form spec.md §4.4 and §9
// define for it. These represent programming bugs in one of the two
// peers, not a recoverable runtime condition — the loop aborts
// immediately and the diagnostic names the offending message.
type ProtocolError struct {
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// VersionError reports a protocol version mismatch between this client
// and the connected server (spec.md §4.4, §7 Version skew).
type VersionError struct {
	ClientVersion uint32
	ServerVersion uint32
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("protocol version mismatch (client %d, server %d)", e.ClientVersion, e.ServerVersion)
}
