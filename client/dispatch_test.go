// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"testing"

	"github.com/bureau-foundation/muxclient/transport"
)

func TestDispatchWaitReadyDisablesStdinAndSendsResize(t *testing.T) {
	c, server := newTestClient(t, 0)
	c.startStdinPump()

	result, err := c.dispatch(transport.Frame{Type: transport.TypeReady})
	if err != nil {
		t.Fatalf("dispatch Ready: %v", err)
	}
	if result.exit {
		t.Fatalf("Ready should not exit the loop")
	}
	if c.state != StateAttached {
		t.Fatalf("state = %v, want Attached", c.state)
	}
	if c.stdinEnabled {
		t.Fatalf("stdin should be disabled after Ready")
	}

	frame, err := server.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if frame.Type != transport.TypeResize {
		t.Fatalf("got frame type %v, want Resize", frame.Type)
	}
}

func TestDispatchWaitVersionMismatch(t *testing.T) {
	c, _ := newTestClient(t, 0)

	result, err := c.dispatch(transport.Frame{Type: transport.TypeVersion, PeerID: 7})
	if !result.exit {
		t.Fatalf("Version mismatch should exit the loop")
	}
	versionErr, ok := err.(*VersionError)
	if !ok {
		t.Fatalf("got err %v (%T), want *VersionError", err, err)
	}
	if versionErr.ServerVersion != 7 {
		t.Fatalf("ServerVersion = %d, want 7", versionErr.ServerVersion)
	}
	if c.exitCode != 1 {
		t.Fatalf("exitCode = %d, want 1", c.exitCode)
	}
	want := "protocol version mismatch (client 1, server 7)"
	if versionErr.Error() != want {
		t.Fatalf("Error() = %q, want %q", versionErr.Error(), want)
	}
}

func TestDispatchWaitShellSetsExecShellOnly(t *testing.T) {
	c, _ := newTestClient(t, 0)
	c.execCommand = "ls -la" // pre-set by Run from the user's -c flag

	result, err := c.dispatch(transport.Frame{Type: transport.TypeShell, Payload: transport.EncodeCString("/bin/sh")})
	if err != nil {
		t.Fatalf("dispatch Shell: %v", err)
	}
	if !result.exit {
		t.Fatalf("Shell should exit the loop")
	}
	if c.execShell != "/bin/sh" {
		t.Fatalf("execShell = %q, want /bin/sh", c.execShell)
	}
	if c.execCommand != "ls -la" {
		t.Fatalf("execCommand = %q, want unchanged ls -la", c.execCommand)
	}
	if c.exitType != ExitTypeExec {
		t.Fatalf("exitType = %v, want ExitTypeExec", c.exitType)
	}
}

func TestDispatchWaitRejectsBadPayloadLength(t *testing.T) {
	c, _ := newTestClient(t, 0)

	_, err := c.dispatch(transport.Frame{Type: transport.TypeReady, Payload: []byte{1}})
	if _, ok := err.(*ProtocolError); !ok {
		t.Fatalf("got err %v (%T), want *ProtocolError", err, err)
	}
}

func TestDispatchAttachedDetachRecordsSessionAndAcks(t *testing.T) {
	c, server := newTestClient(t, 0)
	c.state = StateAttached

	result, err := c.dispatch(transport.Frame{Type: transport.TypeDetach, Payload: transport.EncodeCString("work")})
	if err != nil {
		t.Fatalf("dispatch Detach: %v", err)
	}
	if !result.exit {
		t.Fatalf("Detach should exit the loop")
	}
	if c.exitSession != "work" {
		t.Fatalf("exitSession = %q, want work", c.exitSession)
	}
	if c.exitReason != ExitReasonDetached {
		t.Fatalf("exitReason = %v, want ExitReasonDetached", c.exitReason)
	}
	if c.exitType != ExitTypeDetach {
		t.Fatalf("exitType = %v, want ExitTypeDetach", c.exitType)
	}

	frame, err := server.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if frame.Type != transport.TypeExiting {
		t.Fatalf("got frame type %v, want Exiting", frame.Type)
	}
}

func TestDispatchAttachedDetachKillSetsHupFlag(t *testing.T) {
	c, _ := newTestClient(t, 0)
	c.state = StateAttached

	_, err := c.dispatch(transport.Frame{Type: transport.TypeDetachKill, Payload: transport.EncodeCString("work")})
	if err != nil {
		t.Fatalf("dispatch DetachKill: %v", err)
	}
	if c.exitReason != ExitReasonDetachedHup {
		t.Fatalf("exitReason = %v, want ExitReasonDetachedHup", c.exitReason)
	}
	if !c.hupParent {
		t.Fatalf("hupParent should be set")
	}
}

func TestDispatchAttachedExecRequiresBothStrings(t *testing.T) {
	c, _ := newTestClient(t, 0)
	c.state = StateAttached

	// Only one NUL-terminated string present — must be rejected per
	// spec.md §9's strlen(data) == datalen-1 check.
	_, err := c.dispatch(transport.Frame{Type: transport.TypeExec, Payload: transport.EncodeCString("ls -la")})
	if _, ok := err.(*ProtocolError); !ok {
		t.Fatalf("got err %v (%T), want *ProtocolError", err, err)
	}
}

func TestDispatchAttachedExecRecordsCommandAndShell(t *testing.T) {
	c, _ := newTestClient(t, 0)
	c.state = StateAttached

	payload := transport.EncodeExecPayload("ls -la", "/bin/sh")
	result, err := c.dispatch(transport.Frame{Type: transport.TypeExec, Payload: payload})
	if err != nil {
		t.Fatalf("dispatch Exec: %v", err)
	}
	if !result.exit {
		t.Fatalf("Exec should exit the loop")
	}
	if c.execCommand != "ls -la" || c.execShell != "/bin/sh" {
		t.Fatalf("got command=%q shell=%q", c.execCommand, c.execShell)
	}
	if c.exitType != ExitTypeExec {
		t.Fatalf("exitType = %v, want ExitTypeExec", c.exitType)
	}
}

func TestDispatchAttachedExitDoesNotCopyCodeIntoExitCode(t *testing.T) {
	// Documented Open Question resolution (spec.md §9): the Attached
	// Exit branch validates a payload code but never writes it to
	// exitCode, unlike the Wait-state Exit/Shutdown branch.
	c, _ := newTestClient(t, 0)
	c.state = StateAttached
	c.exitCode = 0

	_, err := c.dispatch(transport.Frame{Type: transport.TypeExit, Payload: transport.EncodeUint32(42)})
	if err != nil {
		t.Fatalf("dispatch Exit: %v", err)
	}
	if c.exitCode != 0 {
		t.Fatalf("exitCode = %d, want unchanged 0", c.exitCode)
	}
	if c.exitReason != ExitReasonExited {
		t.Fatalf("exitReason = %v, want ExitReasonExited", c.exitReason)
	}
}

func TestDispatchWaitExitCopiesCodeIntoExitCode(t *testing.T) {
	c, _ := newTestClient(t, 0)

	_, err := c.dispatch(transport.Frame{Type: transport.TypeExit, Payload: transport.EncodeUint32(42)})
	if err != nil {
		t.Fatalf("dispatch Exit: %v", err)
	}
	if c.exitCode != 42 {
		t.Fatalf("exitCode = %d, want 42", c.exitCode)
	}
}

func TestDispatchAttachedShutdownSetsServerExited(t *testing.T) {
	c, _ := newTestClient(t, 0)
	c.state = StateAttached

	result, err := c.dispatch(transport.Frame{Type: transport.TypeShutdown})
	if err != nil {
		t.Fatalf("dispatch Shutdown: %v", err)
	}
	if !result.exit {
		t.Fatalf("Shutdown should exit the loop")
	}
	if c.exitReason != ExitReasonServerExited || c.exitCode != 1 {
		t.Fatalf("got reason=%v code=%d, want ServerExited/1", c.exitReason, c.exitCode)
	}
}

func TestDispatchAttachedLockRunsCommandAndAcksUnlock(t *testing.T) {
	c, server := newTestClient(t, 0)
	c.state = StateAttached

	result, err := c.dispatch(transport.Frame{Type: transport.TypeLock, Payload: transport.EncodeCString("true")})
	if err != nil {
		t.Fatalf("dispatch Lock: %v", err)
	}
	if result.exit {
		t.Fatalf("Lock should not exit the loop")
	}

	frame, err := server.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if frame.Type != transport.TypeUnlock {
		t.Fatalf("got frame type %v, want Unlock", frame.Type)
	}
}

func TestStateMachineNeverMovesBackward(t *testing.T) {
	c, _ := newTestClient(t, 0)
	c.setState(StateAttached)
	c.setState(StateExiting)

	defer func() {
		if recover() == nil {
			t.Fatalf("setState backward should panic")
		}
	}()
	c.setState(StateWait)
}
