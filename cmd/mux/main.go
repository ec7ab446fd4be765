// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// mux is the client half of a terminal multiplexer: it connects to a
// long-lived mux server over a Unix domain socket, attaches the current
// terminal to a session, and relays terminal I/O until detach, exec,
// suspend, or a server-driven exit.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/muxclient/client"
	"github.com/bureau-foundation/muxclient/cmdparse"
	"github.com/bureau-foundation/muxclient/serverstart"
)

// configureLogging sets the default slog level. Logging setup beyond
// this is an explicit Non-goal (spec.md §1). The client package keeps a
// slog.Default() logger on each Client but emits no log lines itself.
func configureLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func main() {
	code, err := run(os.Args[1:])
	if err != nil {
		printFatal(err)
		if code == 0 {
			code = 1
		}
	}
	os.Exit(code)
}

// printFatal writes the failure diagnostic spec.md §4.1/§7 calls for.
// client.SetupError and client.VersionError already carry the exact
// literal wording the spec (and the original client.c:269-278) pins —
// "no server running on %s", "error connecting to %s (%s)", "protocol
// version mismatch (client C, server S)" — so they print bare, without
// the generic "error: " prefix that would otherwise double up on them.
// Anything else (flag parsing, a collaborator failure) keeps the prefix.
func printFatal(err error) {
	switch err.(type) {
	case *client.SetupError, *client.VersionError:
		fmt.Fprintf(os.Stderr, "%v\n", err)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
}

func run(args []string) (int, error) {
	flagSet := pflag.NewFlagSet("mux", pflag.ContinueOnError)

	var (
		sessionName  string
		socketPath   string
		controlCount int
		loginShell   bool
		shellCommand string
		verbose      bool
	)
	flagSet.StringVarP(&sessionName, "socket-name", "L", "", "name of the server socket, relative to the default socket directory")
	flagSet.StringVarP(&socketPath, "socket-path", "S", "", "full path to the server socket (overrides -L)")
	flagSet.CountVarP(&controlCount, "control", "C", "enter control mode; repeat for full control mode")
	flagSet.BoolVarP(&loginShell, "login", "l", false, "prefix the exec'd shell's argv[0] with \"-\"")
	flagSet.StringVarP(&shellCommand, "command", "c", "", "run command in a shell via the server, then exit")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "raise logging to debug level")
	flagSet.SetInterspersed(false)

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0, nil
		}
		return 1, err
	}

	configureLogging(verbose)

	var flags client.Flags
	if loginShell {
		flags |= client.FlagLogin
	}
	if controlCount > 0 {
		flags |= client.FlagControlControl
	}

	path := resolveSocketPath(socketPath, sessionName)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return 1, fmt.Errorf("creating socket directory: %w", err)
	}

	result := cmdparse.Parse(flagSet.Args())

	var starter serverstart.Starter
	if result.StartServer {
		starter = serverstart.Daemonizer{
			Argv:       []string{serverBinary(), "-S", path},
			SocketPath: path,
		}.Start
	}

	return client.Run(path, flags, starter, result.Argv, shellCommand)
}

// serverBinary resolves the server binary to spawn. The server itself
// is out of scope for this module (spec.md §1 Non-goals); in a real
// deployment this resolves the sibling "mux-server" binary installed
// next to "mux", overridable for testing via $MUX_SERVER_BIN.
func serverBinary() string {
	if bin := os.Getenv("MUX_SERVER_BIN"); bin != "" {
		return bin
	}
	if exe, err := os.Executable(); err == nil {
		return exe + "-server"
	}
	return "mux-server"
}

// resolveSocketPath follows tmux's own resolution order: an explicit
// -S path wins outright; otherwise the default directory is
// $TMUX_TMPDIR (or /tmp) plus a per-uid mux-<uid> directory, with the
// socket named by -L (default "default").
func resolveSocketPath(explicitPath, socketName string) string {
	if explicitPath != "" {
		return explicitPath
	}
	if socketName == "" {
		socketName = "default"
	}
	base := os.Getenv("TMUX_TMPDIR")
	if base == "" {
		base = "/tmp"
	}
	dir := fmt.Sprintf("%s/mux-%d", base, os.Getuid())
	return dir + "/" + socketName
}
