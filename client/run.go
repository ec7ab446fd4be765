// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/muxclient/serverstart"
	"github.com/bureau-foundation/muxclient/transport"
)

// recvEvent is one result from the transport-receive goroutine.
type recvEvent struct {
	frame transport.Frame
	err   error // io.EOF means the peer closed cleanly (LostServer)
}

// Run connects to path (starting a server via start if necessary and
// permitted), sends the identify burst, then drives the event loop
// until the state machine reaches Exiting, finally invoking the
// Terminator and returning the process exit code.
//
// start may be nil, meaning the caller's command-parser collaborator
// determined no command in this invocation needs a server; a missing
// server is then unconditionally fatal (spec.md §4.1 step 5).
//
// argv is the command to send as the first outbound payload after the
// identify burst (spec.md §6), used when shellCommand is empty.
//
// shellCommand is the user's -c argument, if any. A non-empty
// shellCommand sends ShellRequest instead of Command — "give me a
// shell for -c" — and pre-populates the exec command the Terminator
// will use once the server answers with a Shell message naming the
// shell path (dispatch.go's Wait-state Shell case only ever learns the
// shell path off the wire, never the command: the command is always
// the caller's own -c argument).
func Run(socketPath string, flags Flags, start serverstart.Starter, argv []string, shellCommand string) (int, error) {
	// Registered before Connect, which may itself fork a daemonized
	// server (serverstart.Daemonizer.Start): spec.md §4.5 requires
	// SIGCHLD be handled early enough that a server spawn occurring
	// during bring-up can never leave a zombie unreaped for the
	// lifetime of the client, matching client_main's signal(SIGCHLD,
	// SIG_IGN) at the very top of main, ahead of client_connect
	// (original_source/client.c:224-226,270).
	sigCh := startSignalBridge()

	t, err := Connect(socketPath, start)
	if err != nil {
		return 1, err
	}
	defer t.Close()

	c := New(t, flags, nil)
	defer c.maybeRestoreTTY()

	if flags&FlagControlControl != 0 {
		c.saveTTYState()
	}
	c.execCommand = shellCommand

	if err := c.sendIdentify(); err != nil {
		return 1, &SetupError{Op: "sending identify burst", Err: err}
	}

	if err := c.sendInitialCommand(argv, shellCommand); err != nil {
		return 1, &SetupError{Op: "sending command", Err: err}
	}

	loopErr := c.eventLoop(sigCh)
	return c.terminate(), loopErr
}

// sendInitialCommand sends the first non-identify outbound frame
// (spec.md §6): ShellRequest when the caller asked for a -c shell,
// Command otherwise (argv may itself be empty — an empty Command still
// reaches the server, which is free to treat it as a default action).
func (c *Client) sendInitialCommand(argv []string, shellCommand string) error {
	if shellCommand != "" {
		return c.transport.Send(transport.Frame{Type: transport.TypeShellRequest})
	}
	payload, err := transport.EncodeArgv(argv)
	if err != nil {
		return err
	}
	return c.transport.Send(transport.Frame{Type: transport.TypeCommand, Payload: payload})
}

// eventLoop is the single-threaded, cooperative dispatcher spec.md §5
// describes: one goroutine (this one) selects over the transport, stdin,
// and signals, and once it is running it is the only code in this
// package that mutates c's protocol-level fields or issues a
// transport.Send (Run sends the identify burst and first command before
// starting it). Each source is fed by its own single producer: the
// transport-receive goroutine is managed by an errgroup and is stopped
// and joined before this function returns; the stdin pump goroutine
// (stdin.go) is not joined and may stay blocked in its read; signals
// arrive through os/signal's own channel.
func (c *Client) eventLoop(sigCh chan os.Signal) error {
	recvCh := make(chan recvEvent, 1)
	group, _ := errgroup.WithContext(context.Background())
	group.Go(func() error {
		for {
			frame, err := c.transport.Recv()
			recvCh <- recvEvent{frame: frame, err: err}
			if err != nil {
				return nil
			}
		}
	})

	c.startStdinPump()

	var loopErr error
loop:
	for {
		select {
		case ev := <-recvCh:
			if ev.err != nil {
				if errors.Is(ev.err, io.EOF) {
					c.exitReason = ExitReasonLostServer
					c.exitCode = 1
				} else {
					loopErr = ev.err
				}
				break loop
			}
			result, err := c.dispatch(ev.frame)
			if err != nil {
				loopErr = err
			}
			if result.exit || err != nil {
				break loop
			}

		case ev := <-c.stdinEvents:
			if ev.eof {
				// A zero-length Stdin frame is the server's own EOF
				// signal (spec.md §4.6) — the pump goroutine has
				// already returned and will send no further events.
				_ = c.transport.Send(transport.Frame{Type: transport.TypeStdin})
				continue
			}
			if sendErr := c.transport.Send(transport.Frame{Type: transport.TypeStdin, Payload: ev.data}); sendErr != nil {
				loopErr = sendErr
				break loop
			}
			c.grantStdinPermitIfEnabled()

		case sig := <-sigCh:
			exit, err := c.handleSignal(sig)
			if err != nil {
				loopErr = err
			}
			if exit || err != nil {
				break loop
			}
		}
	}

	// Closing here (rather than only in Run's deferred Close) unblocks
	// the receive goroutine when this loop exited for a local reason
	// (a signal, a send error, stdin EOF) rather than because the peer
	// already closed its end — Wait would otherwise block forever on a
	// goroutine still parked in Recv.
	c.transport.Close()
	_ = group.Wait()
	return loopErr
}
