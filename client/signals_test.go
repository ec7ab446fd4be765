// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"syscall"
	"testing"

	"github.com/bureau-foundation/muxclient/transport"
)

func TestHandleSignalSIGCHLDNeverExits(t *testing.T) {
	c, _ := newTestClient(t, 0)
	exit, err := c.handleSignal(syscall.SIGCHLD)
	if exit || err != nil {
		t.Fatalf("got exit=%v err=%v, want false/nil", exit, err)
	}
}

func TestHandleSignalSIGTERMDuringWaitExits(t *testing.T) {
	c, _ := newTestClient(t, 0)

	exit, err := c.handleSignal(syscall.SIGTERM)
	if !exit || err != nil {
		t.Fatalf("got exit=%v err=%v, want true/nil", exit, err)
	}
	if c.state != StateExiting {
		t.Fatalf("state = %v, want Exiting", c.state)
	}
}

func TestHandleSignalSIGTERMWhileAttachedSendsExitingAndExits(t *testing.T) {
	c, server := newTestClient(t, 0)
	c.state = StateAttached

	exit, err := c.handleSignal(syscall.SIGTERM)
	if !exit || err != nil {
		t.Fatalf("got exit=%v err=%v, want true/nil", exit, err)
	}
	if c.exitReason != ExitReasonTerminated || c.exitCode != 1 {
		t.Fatalf("got reason=%v code=%d", c.exitReason, c.exitCode)
	}

	frame, err := server.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if frame.Type != transport.TypeExiting {
		t.Fatalf("got frame type %v, want Exiting", frame.Type)
	}
}

func TestHandleSignalSIGWINCHWhileAttachedSendsResize(t *testing.T) {
	c, server := newTestClient(t, 0)
	c.state = StateAttached

	exit, err := c.handleSignal(syscall.SIGWINCH)
	if exit || err != nil {
		t.Fatalf("got exit=%v err=%v, want false/nil", exit, err)
	}

	frame, err := server.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if frame.Type != transport.TypeResize {
		t.Fatalf("got frame type %v, want Resize", frame.Type)
	}
}

func TestHandleSignalSIGCONTWhileAttachedSendsWakeup(t *testing.T) {
	c, server := newTestClient(t, 0)
	c.state = StateAttached

	exit, err := c.handleSignal(syscall.SIGCONT)
	if exit || err != nil {
		t.Fatalf("got exit=%v err=%v, want false/nil", exit, err)
	}

	frame, err := server.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if frame.Type != transport.TypeWakeup {
		t.Fatalf("got frame type %v, want Wakeup", frame.Type)
	}
}

func TestHandleSignalSIGHUPDuringWaitIsIgnored(t *testing.T) {
	c, _ := newTestClient(t, 0)

	exit, err := c.handleSignal(syscall.SIGHUP)
	if exit || err != nil {
		t.Fatalf("got exit=%v err=%v, want false/nil", exit, err)
	}
	if c.state != StateWait {
		t.Fatalf("state = %v, want unchanged Wait", c.state)
	}
}
