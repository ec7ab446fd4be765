// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport implements the framed message channel between a mux
// client and a mux server over a Unix domain socket.
//
// Each frame has a fixed 9-byte header — 1 byte type, 4 bytes big-endian
// peer id, 4 bytes big-endian payload length — followed by the payload.
// Control message payloads come in two families (payloads.go): the flags
// word, exit codes and the client pid are fixed-width 4-byte big-endian
// integers, and shell paths, exec strings, session names and lock
// commands are raw NUL-terminated strings; the identify strings (TERM,
// tty name, cwd, environment entries) and the command argv are
// CBOR-encoded via marshal/unmarshal in codec.go. The three high-volume message
// types (Stdin, Stdout, Stderr) carry raw bytes with no CBOR envelope,
// since they are already a fixed {size, data} shape and are on the hot
// path of every keystroke and every line of output.
//
// Ancillary file descriptor passing is a distinct operation ([Transport.SendFD])
// from an ordinary send, since exactly one message type (IdentifyStdin) in the
// whole protocol ever carries a descriptor.
package transport
