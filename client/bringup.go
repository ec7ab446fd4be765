// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/muxclient/serverstart"
	"github.com/bureau-foundation/muxclient/transport"
)

// maxSocketPathLen is the usable length of sockaddr_un's sun_path on
// Linux: sizeof(sun_path) is 108 bytes including the terminating NUL
// that net.UnixAddr adds implicitly, so one less than that is the
// longest path Connect can actually dial.
var maxSocketPathLen = int(unsafe.Sizeof(unix.RawSockaddrUnix{}.Path)) - 1

// lockRetryDelay bounds how long Connect waits between an EINTR on the
// blocking flock(2) wait and retrying it.
const lockRetryDelay = 10 * time.Millisecond

// Connect implements SocketBringup (spec.md §4.1): it connects to the
// server listening on path, spawning one via start if none is listening.
//
// start is nil when the caller already determined the command list
// requires no server (spec.md §6 command-parser collaborator) — in that
// case a missing server is always fatal, matching the spec's "if
// start_server is false, fail" step.
//
// The lock fd is managed with raw unix.Open/unix.Close rather than
// *os.File: os.File installs a GC finalizer that closes its fd, which
// would race the daemonized server's own close of the same fd number
// once ownership has been handed across the start collaborator.
func Connect(path string, start serverstart.Starter) (*transport.Transport, error) {
	if len(path) > maxSocketPathLen {
		return nil, &SetupError{Op: "connect", Err: fmt.Errorf("socket path %q exceeds %d bytes", path, maxSocketPathLen)}
	}

	lockfilePath := path + ".lock"
	lockFD := -1
	locked := false
	defer func() {
		if lockFD >= 0 {
			unix.Close(lockFD)
		}
	}()

	for {
		conn, dialErr := net.Dial("unix", path)
		if dialErr == nil {
			unixConn := conn.(*net.UnixConn)
			return transport.New(unixConn), nil
		}

		if !isRefusedOrMissing(dialErr) {
			return nil, connectError(path, dialErr)
		}

		if start == nil {
			return nil, connectError(path, dialErr)
		}

		if !locked {
			fd, openErr := unix.Open(lockfilePath, unix.O_RDWR|unix.O_CREAT, 0600)
			if openErr != nil {
				// Best effort, matching client_get_lock's fallthrough in
				// the source (original_source/client.c:131-141): treat a
				// failed open as "proceed as if locked" rather than
				// retrying the same open forever — lockFD stays -1, so
				// the next pass skips straight to the unlink-and-start
				// branch below instead of looping on a persistent open
				// failure (e.g. an unwritable socket directory).
				locked = true
				continue
			}

			if flockErr := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); flockErr == nil {
				lockFD = fd
				locked = true
				continue
			} else if !errors.Is(flockErr, unix.EWOULDBLOCK) {
				unix.Close(fd)
				continue
			}

			// Another client holds the lock and is bringing the server
			// up. Wait for it to finish, then let it have done the
			// work: release and retry the connect rather than racing it.
			if err := blockingFlock(fd); err != nil {
				unix.Close(fd)
				continue
			}
			unix.Flock(fd, unix.LOCK_UN)
			unix.Close(fd)
			continue
		}

		// We hold the lock and the connect still failed: no other
		// client beat us to it. Clear a stale socket file and ask the
		// collaborator to daemonize a fresh server.
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, &SetupError{Op: "removing stale socket " + path, Err: err}
		}

		unixConn, startErr := start(lockFD, lockfilePath)
		if startErr != nil {
			return nil, &SetupError{Op: "starting server", Err: startErr}
		}
		// Ownership of lockFD passed to the collaborator, which is
		// responsible for releasing and unlinking it once its server is
		// ready; this function must not close it in its own defer.
		lockFD = -1
		return transport.New(unixConn), nil
	}
}

// blockingFlock retries a blocking exclusive flock across EINTR, which
// Go's syscall wrapper surfaces as-is rather than retrying internally
// for flock(2).
func blockingFlock(fd int) error {
	for {
		err := unix.Flock(fd, unix.LOCK_EX)
		if err == nil {
			return nil
		}
		if errors.Is(err, syscall.EINTR) {
			time.Sleep(lockRetryDelay)
			continue
		}
		return err
	}
}

// isRefusedOrMissing reports whether err is the connection-refused or
// no-such-file family of dial failure that means "no server is
// currently listening here" as opposed to a genuine setup error.
func isRefusedOrMissing(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENOENT) || os.IsNotExist(err)
}

// connectError builds the final fatal diagnostic for a dial failure that
// Connect is giving up on, matching the original client.c:269-278
// wording literally: ECONNREFUSED specifically gets "no server running
// on %s" (spec.md §4.1 Failure semantics); every other errno, including
// ENOENT for a missing socket file, gets "error connecting to %s (%s)"
// with the system error text.
func connectError(path string, dialErr error) *SetupError {
	if errors.Is(dialErr, syscall.ECONNREFUSED) {
		return &SetupError{Op: fmt.Sprintf("no server running on %s", path)}
	}
	return &SetupError{Op: fmt.Sprintf("error connecting to %s (%s)", path, unwrapSyscallErr(dialErr))}
}

// unwrapSyscallErr peels a *net.OpError/*os.SyscallError down to the
// innermost error, so the printed text matches strerror(3)'s bare
// message ("no such file or directory") rather than Go's more verbose
// "dial unix <path>: connect: no such file or directory".
func unwrapSyscallErr(err error) error {
	for {
		type unwrapper interface{ Unwrap() error }
		u, ok := err.(unwrapper)
		if !ok {
			return err
		}
		inner := u.Unwrap()
		if inner == nil {
			return err
		}
		err = inner
	}
}
