// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package client implements the mux client's handshake and message-dispatch
// state machine: socket bring-up, identity announcement, the two-phase
// (Wait/Attached) protocol, signal translation, and teardown.
package client

import (
	"log/slog"
	"os"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/bureau-foundation/muxclient/transport"
)

// Flags are boolean client modes, set once at startup from command-line
// flags and never mutated afterward.
type Flags uint32

const (
	// FlagLogin means the shell exec at teardown should prefix argv[0]
	// with "-", the same convention login(1) uses for a login shell.
	FlagLogin Flags = 1 << 0

	// FlagControlControl puts the client into machine-readable control
	// mode: banners are prefixed "%exit " and the output stream ends
	// with an ESC \ terminator.
	FlagControlControl Flags = 1 << 1
)

// State is the client's position in the Wait → Attached → Exiting
// progression. It only ever advances.
type State int

const (
	StateWait State = iota
	StateAttached
	StateExiting
)

func (s State) String() string {
	switch s {
	case StateWait:
		return "wait"
	case StateAttached:
		return "attached"
	case StateExiting:
		return "exiting"
	default:
		return "unknown"
	}
}

// ExitReason records why the event loop stopped. ExitReasonNone means the
// loop has not decided to exit yet.
type ExitReason int

const (
	ExitReasonNone ExitReason = iota
	ExitReasonDetached
	ExitReasonDetachedHup
	ExitReasonLostTTY
	ExitReasonTerminated
	ExitReasonLostServer
	ExitReasonExited
	ExitReasonServerExited
)

// banner returns the §4.7 banner text for a reason, given an optional
// detach session name. ok is false for ExitReasonNone, which has no banner.
func (r ExitReason) banner(session string) (text string, ok bool) {
	switch r {
	case ExitReasonDetached:
		if session != "" {
			return "detached (from session " + session + ")", true
		}
		return "detached", true
	case ExitReasonDetachedHup:
		if session != "" {
			return "detached and SIGHUP (from session " + session + ")", true
		}
		return "detached and SIGHUP", true
	case ExitReasonLostTTY:
		return "lost tty", true
	case ExitReasonTerminated:
		return "terminated", true
	case ExitReasonLostServer:
		return "lost server", true
	case ExitReasonExited:
		return "exited", true
	case ExitReasonServerExited:
		return "server exited", true
	default:
		return "", false
	}
}

// ExitType is the kind of the last terminal message received from the
// server; it selects the Terminator's post-loop action.
type ExitType int

const (
	ExitTypeNone ExitType = iota
	ExitTypeDetach
	ExitTypeDetachKill
	ExitTypeExec
	ExitTypeOther
)

// savedTTYState is the terminal attribute snapshot taken when entering
// CONTROLCONTROL mode, restored exactly once by the Terminator via
// golang.org/x/term.Restore.
type savedTTYState struct {
	fd    int
	state *term.State
}

// Client is the client context: the single mutable bundle of state that
// every component in this package operates on. Nothing in this package
// keeps mutable state outside a *Client — the signal dispatcher
// (handleSignal) is a method the event loop calls on the same *Client,
// not a handler reading a package-level global.
type Client struct {
	flags     Flags
	transport *transport.Transport
	logger    *slog.Logger
	runID     uuid.UUID

	state State
	// reachedAttached records whether the client was ever Attached,
	// independent of the current (monotonically later) state — the
	// Terminator needs to distinguish "exited while still Attached"
	// from "exited during Wait" even though both end up in Exiting.
	reachedAttached bool

	exitReason  ExitReason
	exitCode    int
	exitType    ExitType
	exitSession string

	// Populated from an Exec message, consumed only after the loop exits
	// (exitType == ExitTypeExec).
	execShell   string
	execCommand string

	// parentPID is the pid of the process that invoked this client, used
	// by the Terminator to deliver SIGHUP on a DetachKill per spec.md §4.7.
	parentPID int

	// hupParent is set when a DetachKill arrives; the Terminator signals
	// parentPID after the loop exits, not before, since the transport
	// must still be able to flush the Exiting frame first.
	hupParent bool

	savedTTY *savedTTYState

	// Stdin pump wiring (§4.6). stdinEnabled starts true: the client
	// reads and forwards stdin during Wait so piped pre-attach input
	// (e.g. control-mode commands) reaches the server. Ready disables
	// it — once attached, the server reads the client's terminal
	// directly via the duplicated fd handed over in IdentifyStdin, so
	// the client's own pump would only read bytes the server already
	// has another path to.
	stdinEvents  chan stdinEvent
	stdinPermit  chan struct{}
	stdinEnabled bool
}

// stdinEvent is one result from the stdin pump goroutine: either a
// chunk of data or an EOF/error terminator.
type stdinEvent struct {
	data []byte
	eof  bool
}

// New constructs a client context over an already-connected transport.
// flags are the boolean modes captured from the command line at startup.
func New(t *transport.Transport, flags Flags, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		flags:     flags,
		transport: t,
		logger:    logger,
		runID:     uuid.New(),
		parentPID: os.Getppid(),
	}
}

// State returns the client's current position in the state progression.
func (c *Client) State() State { return c.state }

// ExitCode returns the exit code the Terminator will return, valid only
// after the event loop has returned.
func (c *Client) ExitCode() int { return c.exitCode }

// setState advances state. It panics on a backward transition since that
// would violate the monotonic invariant spec.md §3 requires — a bug here
// is a programming error, not a runtime condition to recover from.
func (c *Client) setState(next State) {
	if next < c.state {
		panic("client: state must not move backward")
	}
	c.state = next
	if next == StateAttached {
		c.reachedAttached = true
	}
}
