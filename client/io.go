// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"os"
	"syscall"
)

const (
	stdoutFD = 1
	stderrFD = 2
)

// writeRetrying writes data to the given standard stream, retrying on
// EINTR/EAGAIN and silently giving up on any other error (spec.md §4.4
// Stdout/Stderr rows, §7 I/O: "the terminal is already gone").
func writeRetrying(fd int, data []byte) {
	var f *os.File
	switch fd {
	case stdoutFD:
		f = os.Stdout
	case stderrFD:
		f = os.Stderr
	default:
		return
	}

	for len(data) > 0 {
		n, err := f.Write(data)
		data = data[n:]
		if err == nil {
			continue
		}
		if errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN) {
			continue
		}
		return
	}
}
