// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"golang.org/x/sys/unix"
)

// Transport is a framed, bidirectional channel to a mux server over a
// Unix domain socket. A Transport is not safe for concurrent Send/SendFD
// calls from multiple goroutines (the client event loop is the only
// writer); Recv is called from its own goroutine and never overlaps with
// a Send/SendFD call on the same underlying connection at the byte level
// because each write is a single buffered syscall.
type Transport struct {
	conn   *net.UnixConn
	reader *bufio.Reader
}

// New wraps an already-connected Unix domain socket as a Transport.
func New(conn *net.UnixConn) *Transport {
	return &Transport{conn: conn, reader: bufio.NewReaderSize(conn, 32*1024)}
}

// Close closes the underlying connection.
func (t *Transport) Close() error {
	return t.conn.Close()
}

// Send writes frame to the connection. Equivalent to SendFD(frame, -1).
func (t *Transport) Send(frame Frame) error {
	return t.SendFD(frame, -1)
}

// SendFD writes frame to the connection, attaching fd as ancillary data
// (SCM_RIGHTS) when fd >= 0. Exactly one message type in this protocol
// (IdentifyStdin) is ever sent with an fd — callers elsewhere in this
// module always pass -1.
func (t *Transport) SendFD(frame Frame, fd int) error {
	if len(frame.Payload) > MaxPayloadSize {
		return fmt.Errorf("transport: payload of %d bytes exceeds max frame size", len(frame.Payload))
	}

	header := make([]byte, headerSize, headerSize+len(frame.Payload))
	header[0] = byte(frame.Type)
	binary.BigEndian.PutUint32(header[1:5], frame.PeerID)
	binary.BigEndian.PutUint32(header[5:9], uint32(len(frame.Payload)))
	buf := append(header, frame.Payload...)

	if fd < 0 {
		_, err := t.conn.Write(buf)
		return err
	}

	rights := unix.UnixRights(fd)
	_, _, err := t.conn.WriteMsgUnix(buf, rights, nil)
	return err
}

// Recv reads the next frame from the connection. Returns io.EOF when the
// peer has closed the connection cleanly — the caller (the client state
// machine) treats that as LostServer, per spec.md §4.2.
func (t *Transport) Recv() (Frame, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(t.reader, header); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return Frame{}, err
	}

	frame := Frame{
		Type:   Type(header[0]),
		PeerID: binary.BigEndian.Uint32(header[1:5]),
	}
	payloadLength := binary.BigEndian.Uint32(header[5:9])
	if payloadLength > MaxPayloadSize {
		return Frame{}, fmt.Errorf("transport: frame payload length %d exceeds maximum %d", payloadLength, MaxPayloadSize)
	}
	if payloadLength > 0 {
		frame.Payload = make([]byte, payloadLength)
		if _, err := io.ReadFull(t.reader, frame.Payload); err != nil {
			if err == io.ErrUnexpectedEOF {
				err = io.EOF
			}
			return Frame{}, err
		}
	}
	return frame, nil
}
