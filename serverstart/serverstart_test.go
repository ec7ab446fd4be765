// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package serverstart

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDaemonizerStartRequiresArgv(t *testing.T) {
	d := Daemonizer{SocketPath: "/tmp/does-not-matter.sock"}
	_, err := d.Start(-1, "")
	if err == nil {
		t.Fatalf("Start with empty Argv: want error, got nil")
	}
}

func TestDaemonizerStartTimesOutWhenServerNeverListens(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "mux.sock.lock")

	lockFile, err := os.OpenFile(lockPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer lockFile.Close()

	d := Daemonizer{
		// A real, short-lived process that never creates the socket, so
		// Start must observe the timeout path rather than hang.
		Argv:         []string{"/bin/sleep", "0.05"},
		SocketPath:   filepath.Join(dir, "mux.sock"),
		PollInterval: 5 * time.Millisecond,
		Timeout:      50 * time.Millisecond,
	}

	_, err = d.Start(int(lockFile.Fd()), lockPath)
	if err == nil {
		t.Fatalf("Start: want timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "did not become reachable") {
		t.Fatalf("got err %q, want timeout wording", err)
	}
}
