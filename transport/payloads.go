// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"encoding/binary"
	"fmt"
)

// This file holds the wire encodings for control-message payloads.
//
// Two families exist side by side on purpose. Messages that the server
// validates byte-for-byte in the original protocol (NUL-terminated C
// strings, a "this must be exactly zero or exactly sizeof(int) bytes"
// rule) keep that literal raw-byte shape here, because the validation
// rules in spec.md §4.4/§9 are phrased in terms of those bytes ("the
// check strlen(data) == datalen-1 ... preserve this validation"). Every
// other control payload — values this client only ever produces, never
// parses under an adversarial-shape contract — is CBOR-encoded via
// [marshal]/[unmarshal], matching the reference stack's codec convention.

// EncodeUint32 encodes a fixed-width unsigned 32-bit payload (IdentifyFlags).
func EncodeUint32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

// DecodeUint32 decodes a fixed-width unsigned 32-bit payload. Returns an
// error if the payload is not exactly 4 bytes.
func DecodeUint32(payload []byte) (uint32, error) {
	if len(payload) != 4 {
		return 0, fmt.Errorf("expected 4-byte payload, got %d bytes", len(payload))
	}
	return binary.BigEndian.Uint32(payload), nil
}

// EncodeInt32 encodes a fixed-width signed 32-bit payload (IdentifyClientPID).
func EncodeInt32(v int32) []byte {
	return EncodeUint32(uint32(v))
}

// DecodeInt32 decodes a fixed-width signed 32-bit payload.
func DecodeInt32(payload []byte) (int32, error) {
	v, err := DecodeUint32(payload)
	return int32(v), err
}

// EncodeCString appends a single trailing NUL to s, matching the
// NUL-terminated string shape the original protocol uses for tty names,
// shell paths, and session names.
func EncodeCString(s string) []byte {
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	buf[len(s)] = 0
	return buf
}

// DecodeCString validates that payload is non-empty and that its last
// byte is NUL, then returns the payload with that final NUL stripped
// (earlier NUL bytes are not checked for and stay in the result).
// Mirrors the "datalen == 0 || data[datalen-1] != '\0'" fatal check the
// original client applies to MSG_SHELL, MSG_DETACH, and MSG_LOCK.
func DecodeCString(payload []byte) (string, error) {
	if len(payload) == 0 || payload[len(payload)-1] != 0 {
		return "", fmt.Errorf("payload is not a NUL-terminated string")
	}
	return string(payload[:len(payload)-1]), nil
}

// EncodeExecPayload packs the Exec message's two NUL-terminated strings
// back to back: command, then shell.
func EncodeExecPayload(command, shell string) []byte {
	buf := make([]byte, 0, len(command)+1+len(shell)+1)
	buf = append(buf, command...)
	buf = append(buf, 0)
	buf = append(buf, shell...)
	buf = append(buf, 0)
	return buf
}

// DecodeExecPayload validates and splits an Exec payload into its command
// and shell strings. Both must be non-empty, the payload must end in NUL,
// and there must be an embedded NUL separating the two strings — a
// payload containing only one terminated string (no embedded NUL) is
// rejected, per spec.md §9's documented "strlen(data) == datalen-1" check.
func DecodeExecPayload(payload []byte) (command, shell string, err error) {
	if len(payload) == 0 || payload[len(payload)-1] != 0 {
		return "", "", fmt.Errorf("exec payload is not NUL-terminated")
	}
	stringLength := cStringLength(payload)
	if stringLength == len(payload)-1 {
		return "", "", fmt.Errorf("exec payload contains only one string")
	}
	command = string(payload[:stringLength])
	shell = string(payload[stringLength+1 : len(payload)-1])
	if command == "" || shell == "" {
		return "", "", fmt.Errorf("exec payload has an empty command or shell")
	}
	return command, shell, nil
}

// cStringLength returns the length of the NUL-terminated string at the
// start of data, i.e. the index of the first 0x00 byte.
func cStringLength(data []byte) int {
	for i, b := range data {
		if b == 0 {
			return i
		}
	}
	return len(data)
}

// EncodeArgv CBOR-encodes a command's argument vector (the Command
// message). Returns an error if the encoded size would not fit in a
// single frame.
func EncodeArgv(argv []string) ([]byte, error) {
	payload, err := marshal(argv)
	if err != nil {
		return nil, err
	}
	if len(payload) > MaxPayloadSize-headerSize {
		return nil, fmt.Errorf("command too long")
	}
	return payload, nil
}

// DecodeArgv decodes a Command message payload.
func DecodeArgv(payload []byte) ([]string, error) {
	var argv []string
	if err := unmarshal(payload, &argv); err != nil {
		return nil, err
	}
	return argv, nil
}

// EncodeString CBOR-encodes a single string payload (IdentifyTerm,
// IdentifyTTYName, IdentifyCwd, one IdentifyEnviron entry).
func EncodeString(s string) ([]byte, error) {
	return marshal(s)
}

// DecodeString decodes a single CBOR string payload.
func DecodeString(payload []byte) (string, error) {
	var s string
	if err := unmarshal(payload, &s); err != nil {
		return "", err
	}
	return s, nil
}
