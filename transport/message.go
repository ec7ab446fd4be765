// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

// Type identifies the kind of a Frame. The numeric values have no wire
// significance outside this process pair; they only need to be stable for
// the lifetime of a single connection.
type Type uint8

const (
	// Outbound (client → server).
	TypeIdentifyFlags     Type = 1
	TypeIdentifyTerm      Type = 2
	TypeIdentifyTTYName   Type = 3
	TypeIdentifyCwd       Type = 4
	TypeIdentifyStdin     Type = 5 // carries an ancillary fd, no payload
	TypeIdentifyClientPID Type = 6
	TypeIdentifyEnviron   Type = 7
	TypeIdentifyDone      Type = 8 // no payload
	TypeCommand           Type = 9
	TypeShellRequest      Type = 10 // client asking for a shell; no payload
	TypeStdin             Type = 11
	TypeResize            Type = 12 // no payload
	TypeExiting           Type = 13 // no payload
	TypeWakeup            Type = 14 // no payload
	TypeUnlock            Type = 15 // no payload

	// Inbound (server → client).
	TypeReady      Type = 32 // no payload
	TypeStdout     Type = 33
	TypeStderr     Type = 34
	TypeVersion    Type = 35 // no payload; server version travels in PeerID
	TypeShell      Type = 36
	TypeExit       Type = 37
	TypeExited     Type = 38 // no payload
	TypeShutdown   Type = 39 // no payload
	TypeDetach     Type = 40
	TypeDetachKill Type = 41
	TypeExec       Type = 42
	TypeSuspend    Type = 43 // no payload
	TypeLock       Type = 44
)

// headerSize is 1 byte type + 4 bytes peer id + 4 bytes payload length.
const headerSize = 9

// MaxPayloadSize bounds a single frame's payload. Generous for terminal
// data (a Stdin/Stdout chunk is a few KB at most) while still rejecting a
// corrupt or hostile length field before allocating in its name.
const MaxPayloadSize = 1 << 20

// ProtocolVersion is this client's wire protocol version. The server
// reports its own version in a Version frame's PeerID field; a mismatch
// is fatal (spec.md §4.4, §7).
const ProtocolVersion = 1

// Frame is a single message on the wire.
type Frame struct {
	Type    Type
	PeerID  uint32
	Payload []byte
}
