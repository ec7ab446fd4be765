// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"net"
	"os"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/muxclient/transport"
)

// socketPair returns two connected Unix domain sockets wrapped as
// Transports, mirroring transport package's own test helper — dispatch
// logic needs a real Transport on each end since Client always sends
// through one.
func socketPair(t *testing.T) (*transport.Transport, *transport.Transport) {
	t.Helper()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}

	fileA := os.NewFile(uintptr(fds[0]), "a")
	fileB := os.NewFile(uintptr(fds[1]), "b")

	connA, err := net.FileConn(fileA)
	if err != nil {
		t.Fatalf("FileConn a: %v", err)
	}
	fileA.Close()
	connB, err := net.FileConn(fileB)
	if err != nil {
		t.Fatalf("FileConn b: %v", err)
	}
	fileB.Close()

	unixA := connA.(*net.UnixConn)
	unixB := connB.(*net.UnixConn)

	t.Cleanup(func() {
		unixA.Close()
		unixB.Close()
	})

	return transport.New(unixA), transport.New(unixB)
}

// newTestClient returns a Client wired to one end of a fresh socket
// pair, plus the peer Transport a test can use to play the server side.
func newTestClient(t *testing.T, flags Flags) (*Client, *transport.Transport) {
	t.Helper()
	clientSide, serverSide := socketPair(t)
	return New(clientSide, flags, nil), serverSide
}
