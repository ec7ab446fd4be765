// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"
	"os/exec"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/muxclient/transport"
)

// dispatchResult tells the event loop what to do after handling one
// inbound frame.
type dispatchResult struct {
	exit bool // the Exiting transition has been reached
}

// dispatch routes an inbound frame to the Wait or Attached table
// (spec.md §4.4) based on the client's current state. It is only ever
// called from the single event-loop goroutine.
func (c *Client) dispatch(frame transport.Frame) (dispatchResult, error) {
	switch c.state {
	case StateWait:
		return c.dispatchWait(frame)
	case StateAttached:
		return c.dispatchAttached(frame)
	default:
		// Exiting: the loop should already have stopped reading frames.
		return dispatchResult{exit: true}, nil
	}
}

func (c *Client) dispatchWait(frame transport.Frame) (dispatchResult, error) {
	switch frame.Type {
	case transport.TypeExit, transport.TypeShutdown:
		if len(frame.Payload) > 0 {
			code, err := transport.DecodeUint32(frame.Payload)
			if err != nil {
				return dispatchResult{}, protocolErr(frame.Type, err)
			}
			c.exitCode = int(code)
		}
		c.setState(StateExiting)
		return dispatchResult{exit: true}, nil

	case transport.TypeReady:
		if len(frame.Payload) != 0 {
			return dispatchResult{}, protocolErr(frame.Type, fmt.Errorf("expected empty payload"))
		}
		c.disableStdin()
		c.setState(StateAttached)
		if err := c.transport.Send(transport.Frame{Type: transport.TypeResize}); err != nil {
			return dispatchResult{}, err
		}
		return dispatchResult{}, nil

	case transport.TypeStdin:
		if len(frame.Payload) != 0 {
			return dispatchResult{}, protocolErr(frame.Type, fmt.Errorf("expected empty payload"))
		}
		c.enableStdin()
		return dispatchResult{}, nil

	case transport.TypeStdout:
		writeRetrying(stdoutFD, frame.Payload)
		return dispatchResult{}, nil

	case transport.TypeStderr:
		writeRetrying(stderrFD, frame.Payload)
		return dispatchResult{}, nil

	case transport.TypeVersion:
		c.exitCode = 1
		c.setState(StateExiting)
		return dispatchResult{exit: true}, &VersionError{ClientVersion: transport.ProtocolVersion, ServerVersion: frame.PeerID}

	case transport.TypeShell:
		shell, err := transport.DecodeCString(frame.Payload)
		if err != nil {
			return dispatchResult{}, protocolErr(frame.Type, err)
		}
		c.execShell = shell
		c.exitType = ExitTypeExec
		c.setState(StateExiting)
		return dispatchResult{exit: true}, nil

	case transport.TypeDetach, transport.TypeDetachKill:
		if err := c.transport.Send(transport.Frame{Type: transport.TypeExiting}); err != nil {
			return dispatchResult{}, err
		}
		c.setState(StateExiting)
		return dispatchResult{exit: true}, nil

	case transport.TypeExited:
		c.setState(StateExiting)
		return dispatchResult{exit: true}, nil

	default:
		return dispatchResult{}, protocolErr(frame.Type, fmt.Errorf("unexpected message in wait state"))
	}
}

func (c *Client) dispatchAttached(frame transport.Frame) (dispatchResult, error) {
	switch frame.Type {
	case transport.TypeDetach:
		session, err := transport.DecodeCString(frame.Payload)
		if err != nil {
			return dispatchResult{}, protocolErr(frame.Type, err)
		}
		c.exitSession = session
		c.exitType = ExitTypeDetach
		c.exitReason = ExitReasonDetached
		if err := c.transport.Send(transport.Frame{Type: transport.TypeExiting}); err != nil {
			return dispatchResult{}, err
		}
		c.setState(StateExiting)
		return dispatchResult{exit: true}, nil

	case transport.TypeDetachKill:
		session, err := transport.DecodeCString(frame.Payload)
		if err != nil {
			return dispatchResult{}, protocolErr(frame.Type, err)
		}
		c.exitSession = session
		c.exitType = ExitTypeDetachKill
		c.exitReason = ExitReasonDetachedHup
		c.hupParent = true
		if err := c.transport.Send(transport.Frame{Type: transport.TypeExiting}); err != nil {
			return dispatchResult{}, err
		}
		c.setState(StateExiting)
		return dispatchResult{exit: true}, nil

	case transport.TypeExec:
		command, shell, err := transport.DecodeExecPayload(frame.Payload)
		if err != nil {
			return dispatchResult{}, protocolErr(frame.Type, err)
		}
		c.execCommand = command
		c.execShell = shell
		c.exitType = ExitTypeExec
		if err := c.transport.Send(transport.Frame{Type: transport.TypeExiting}); err != nil {
			return dispatchResult{}, err
		}
		c.setState(StateExiting)
		return dispatchResult{exit: true}, nil

	case transport.TypeExit:
		// Open Question (spec.md §9): mirrors the source's conservative
		// behavior — exitReason is set unconditionally, and a payload
		// code, if present, is validated but never copied into
		// exitCode. Only the Wait-state Exit/Shutdown branch does that.
		if len(frame.Payload) > 0 {
			if _, err := transport.DecodeUint32(frame.Payload); err != nil {
				return dispatchResult{}, protocolErr(frame.Type, err)
			}
		}
		c.exitReason = ExitReasonExited
		if err := c.transport.Send(transport.Frame{Type: transport.TypeExiting}); err != nil {
			return dispatchResult{}, err
		}
		c.setState(StateExiting)
		return dispatchResult{exit: true}, nil

	case transport.TypeExited:
		c.setState(StateExiting)
		return dispatchResult{exit: true}, nil

	case transport.TypeShutdown:
		c.exitReason = ExitReasonServerExited
		c.exitCode = 1
		if err := c.transport.Send(transport.Frame{Type: transport.TypeExiting}); err != nil {
			return dispatchResult{}, err
		}
		c.setState(StateExiting)
		return dispatchResult{exit: true}, nil

	case transport.TypeSuspend:
		if len(frame.Payload) != 0 {
			return dispatchResult{}, protocolErr(frame.Type, fmt.Errorf("expected empty payload"))
		}
		c.suspendSelf()
		return dispatchResult{}, nil

	case transport.TypeLock:
		command, err := transport.DecodeCString(frame.Payload)
		if err != nil {
			return dispatchResult{}, protocolErr(frame.Type, err)
		}
		runShellCommandBestEffort(command)
		if err := c.transport.Send(transport.Frame{Type: transport.TypeUnlock}); err != nil {
			return dispatchResult{}, err
		}
		return dispatchResult{}, nil

	case transport.TypeStdout:
		writeRetrying(stdoutFD, frame.Payload)
		return dispatchResult{}, nil

	case transport.TypeStderr:
		writeRetrying(stderrFD, frame.Payload)
		return dispatchResult{}, nil

	default:
		return dispatchResult{}, protocolErr(frame.Type, fmt.Errorf("unexpected message in attached state"))
	}
}

// protocolErr builds the ProtocolError diagnostic naming the offending
// message type, per spec.md §7's "abort immediately with a diagnostic
// naming the message type."
func protocolErr(t transport.Type, err error) *ProtocolError {
	return &ProtocolError{Message: fmt.Sprintf("protocol violation on message type %d", t), Err: err}
}

// suspendSelf implements the Suspend branch of spec.md §4.4: restore the
// default disposition for SIGTSTP, then self-send it. Ignoring it again
// on resumption is the SIGCONT handler's job (signals.go).
func (c *Client) suspendSelf() {
	signal.Reset(syscall.SIGTSTP)
	unix.Kill(unix.Getpid(), unix.SIGTSTP)
}

// runShellCommandBestEffort runs command through the host's command
// interpreter and discards the result — spec.md §4.4 only requires the
// Unlock acknowledgement to follow, not that the command succeeded.
func runShellCommandBestEffort(command string) {
	cmd := exec.Command("/bin/sh", "-c", command)
	_ = cmd.Run()
}
