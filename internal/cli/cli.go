// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for foliogate.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdServe Command = iota
	CmdDash
	CmdChat
	CmdDoctor
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool

	// Command-specific
	Port       int    // serve: listen port override
	ConfigPath string // explicit config file
	Stream     bool   // chat: use the streaming endpoint
	Fix        bool   // doctor: attempt auto-fixes
	Subcommand string

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `foliogate - portfolio API gateway and terminal dashboard

Foliogate fronts a FastAPI portfolio backend: it validates and relays
contact, chat, blog, and stats requests, keeps the admin secret
server-side, and ships a terminal dashboard for browsing it all.

Usage:
  foliogate serve            Start the HTTP gateway
    --port N                 Listen port (default from config)
    --config FILE            Explicit config file path
  foliogate dash             Start the terminal dashboard
  foliogate chat             Chat with the portfolio assistant (REPL)
    --stream                 Stream replies token by token
  foliogate doctor           Run configuration and connectivity checks
    --json                   Machine-readable output
  foliogate version          Show version information
  foliogate help             Show this help

Global Flags:
  -q, --quiet     Minimal output
  -v, --verbose   Debug output
  --json          Output in JSON format where supported

Examples:
  foliogate serve                       Gateway on the configured port
  foliogate serve --port 9000           Gateway on port 9000
  foliogate dash                        Dashboard against the local gateway
  foliogate chat --stream               Streaming chat REPL
  foliogate doctor                      Check config and backend reachability

Configuration lives at ~/.foliogate/config.toml (JSON fallback), with
FOLIOGATE_* environment variables taking precedence.

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("foliogate version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
	fmt.Printf("  Go version: %s\n", runtime.Version())
}

// Parse parses os.Args and returns the command and args.
func Parse() (Command, Args) {
	return parseArgv(os.Args[1:])
}

// parseArgv parses an argument vector. Split out from Parse for tests.
func parseArgv(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	// No command defaults to the dashboard.
	if len(remaining) == 0 {
		return CmdDash, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	parser := NewArgParser(remaining)

	switch cmd {
	case "serve", "gateway":
		parsedArgs.Port = parser.FlagIntOrDefault("port", 0)
		parsedArgs.ConfigPath = parser.Flag("config")
		return CmdServe, parsedArgs

	case "dash", "dashboard", "tui":
		parsedArgs.ConfigPath = parser.Flag("config")
		return CmdDash, parsedArgs

	case "chat":
		parsedArgs.Stream = parser.BoolFlag("stream")
		parsedArgs.ConfigPath = parser.Flag("config")
		return CmdChat, parsedArgs

	case "doctor":
		parsedArgs.Fix = parser.BoolFlag("fix")
		parsedArgs.ConfigPath = parser.Flag("config")
		return CmdDoctor, parsedArgs

	case "version", "-v", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		return CmdHelp, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	for _, arg := range args {
		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		default:
			remaining = append(remaining, arg)
		}
	}

	return remaining, parsedArgs
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

// ERROR HANDLING: Errors must not be silently ignored

// HandleServe handles the "serve" command.
func HandleServe(args Args) {
	if err := RunServe(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(GetExitCode(err))
	}
}

// HandleDash handles the "dash" command.
func HandleDash(args Args) {
	if err := RunDash(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(GetExitCode(err))
	}
}

// HandleChat handles the "chat" command.
func HandleChat(args Args) {
	if err := RunChat(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(GetExitCode(err))
	}
}

// HandleDoctor handles the "doctor" command.
func HandleDoctor(args Args) {
	if err := RunDoctor(args); err != nil {
		os.Exit(GetExitCode(err))
	}
}

// HandleVersion handles the "version" command.
func HandleVersion(args Args) {
	if args.JSON {
		fmt.Printf(`{"version":%q,"git_commit":%q,"build_date":%q,"go_version":%q}`+"\n",
			Version, GitCommit, BuildDate, runtime.Version())
		return
	}
	PrintVersion()
}

// HandleHelp handles the "help" command.
func HandleHelp() {
	PrintUsage()
}
