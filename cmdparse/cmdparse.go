// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cmdparse is the command-parser collaborator spec.md §6
// deliberately puts out of scope ("defining the full set of multiplexer
// commands"). It recognizes just enough of the command name to answer
// the one question client.Connect needs: does this invocation require
// a running server, or is it a query that should fail cleanly if one
// isn't already up?
package cmdparse

// Result is what cmd/mux needs from the trailing positional arguments:
// the argv to send as the Command message, and whether reaching the
// server is worth spawning one for.
type Result struct {
	Argv        []string
	StartServer bool
}

// queryCommands names commands that only make sense against a server
// that's already running — starting a fresh one to answer "is there a
// session?" would always answer "no" at the cost of a spawn. Anything
// not in this table defaults to StartServer=true, mirroring tmux's own
// default: an empty command list starts the server.
var queryCommands = map[string]bool{
	"has-session":   true,
	"list-sessions": true,
	"list-clients":  true,
	"list-windows":  true,
	"list-panes":    true,
	"show-options":  true,
}

// Parse builds a Result from argv (the trailing positional arguments
// after cmd/mux's own flags have been removed). An empty argv still
// becomes a Command message with no arguments (client.Run sends a Shell
// request only for -c), leaving the server to pick its default action,
// and always requires a server.
func Parse(argv []string) Result {
	if len(argv) == 0 {
		return Result{Argv: nil, StartServer: true}
	}
	return Result{Argv: argv, StartServer: !queryCommands[argv[0]]}
}
