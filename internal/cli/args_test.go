// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"testing"
)

// =============================================================================
// ARG PARSER TESTS
// =============================================================================

func TestArgParser_FlagFormats(t *testing.T) {
	parser := NewArgParser([]string{"serve", "--port", "9000", "--config=custom.toml", "--json"})

	if got := parser.Subcommand(); got != "serve" {
		t.Errorf("Subcommand = %q, want serve", got)
	}
	if got := parser.Flag("port"); got != "9000" {
		t.Errorf("Flag(port) = %q, want 9000", got)
	}
	if got := parser.Flag("config"); got != "custom.toml" {
		t.Errorf("Flag(config) = %q, want custom.toml", got)
	}
	if !parser.BoolFlag("json") {
		t.Error("BoolFlag(json) = false, want true")
	}
}

func TestArgParser_ExplicitBoolValues(t *testing.T) {
	parser := NewArgParser([]string{"--stream=true", "--fix=false"})

	if !parser.BoolFlag("stream") {
		t.Error("--stream=true parsed as false")
	}
	if parser.BoolFlag("fix") {
		t.Error("--fix=false parsed as true")
	}
	if !parser.HasFlag("fix") {
		t.Error("HasFlag(fix) = false, want true even with false value")
	}
}

func TestArgParser_MissingFlags(t *testing.T) {
	parser := NewArgParser([]string{"chat"})

	if got := parser.Flag("port"); got != "" {
		t.Errorf("Flag(port) = %q, want empty", got)
	}
	if parser.BoolFlag("stream") {
		t.Error("BoolFlag(stream) = true, want false")
	}
	if parser.HasFlag("stream") {
		t.Error("HasFlag(stream) = true, want false")
	}
}

func TestArgParser_Defaults(t *testing.T) {
	parser := NewArgParser([]string{"--port", "abc"})

	if got := parser.FlagIntOrDefault("port", 8790); got != 8790 {
		t.Errorf("non-numeric port = %d, want default 8790", got)
	}
	if got := parser.FlagOrDefault("missing", "fallback"); got != "fallback" {
		t.Errorf("FlagOrDefault = %q, want fallback", got)
	}

	parser = NewArgParser([]string{"--port", "9100"})
	if got := parser.FlagIntOrDefault("port", 8790); got != 9100 {
		t.Errorf("port = %d, want 9100", got)
	}
}

func TestArgParser_Positionals(t *testing.T) {
	parser := NewArgParser([]string{"doctor", "extra", "--fix", "more"})

	if got := parser.PositionalCount(); got != 2 {
		t.Errorf("PositionalCount = %d, want 2 (flag value consumed)", got)
	}
	if got := parser.Positional(0); got != "doctor" {
		t.Errorf("Positional(0) = %q", got)
	}
	if got := parser.Positional(99); got != "" {
		t.Errorf("out-of-range Positional = %q, want empty", got)
	}
}

func TestArgParser_FlagNameWithDashes(t *testing.T) {
	parser := NewArgParser([]string{"--port", "9000"})

	// Lookups tolerate a leading dash
	if got := parser.Flag("--port"); got != "9000" {
		t.Errorf("Flag(--port) = %q, want 9000", got)
	}
}

// =============================================================================
// PARSE TESTS
// =============================================================================

func TestParse_DefaultIsDash(t *testing.T) {
	cmd, _ := parseArgv(nil)
	if cmd != CmdDash {
		t.Errorf("no args = %v, want CmdDash", cmd)
	}
}

func TestParse_Subcommands(t *testing.T) {
	tests := []struct {
		argv []string
		want Command
	}{
		{[]string{"serve"}, CmdServe},
		{[]string{"gateway"}, CmdServe},
		{[]string{"dash"}, CmdDash},
		{[]string{"tui"}, CmdDash},
		{[]string{"chat"}, CmdChat},
		{[]string{"doctor"}, CmdDoctor},
		{[]string{"version"}, CmdVersion},
		{[]string{"help"}, CmdHelp},
		{[]string{"bogus"}, CmdHelp},
	}

	for _, tt := range tests {
		cmd, _ := parseArgv(tt.argv)
		if cmd != tt.want {
			t.Errorf("parseArgv(%v) = %v, want %v", tt.argv, cmd, tt.want)
		}
	}
}

func TestParse_ServeFlags(t *testing.T) {
	cmd, args := parseArgv([]string{"serve", "--port", "9000", "--config", "x.toml", "-q"})

	if cmd != CmdServe {
		t.Fatalf("cmd = %v, want CmdServe", cmd)
	}
	if args.Port != 9000 {
		t.Errorf("Port = %d, want 9000", args.Port)
	}
	if args.ConfigPath != "x.toml" {
		t.Errorf("ConfigPath = %q, want x.toml", args.ConfigPath)
	}
	if !args.Quiet {
		t.Error("Quiet = false, want true")
	}
}

func TestParse_ChatStream(t *testing.T) {
	cmd, args := parseArgv([]string{"chat", "--stream"})

	if cmd != CmdChat || !args.Stream {
		t.Errorf("cmd = %v stream = %v, want CmdChat streaming", cmd, args.Stream)
	}
}

func TestParse_DoctorFlags(t *testing.T) {
	cmd, args := parseArgv([]string{"doctor", "--fix", "--json"})

	if cmd != CmdDoctor {
		t.Fatalf("cmd = %v, want CmdDoctor", cmd)
	}
	if !args.Fix || !args.JSON {
		t.Errorf("Fix = %v JSON = %v, want both true", args.Fix, args.JSON)
	}
}

// =============================================================================
// EXIT CODE TESTS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage error", &UsageError{Field: "port", Reason: "not a number"}, ExitUsageError},
		{"config error", NewCommandError("serve", "start", "could not load configuration", nil), ExitConfigError},
		{"network error", NewCommandError("chat", "send", "backend unavailable", nil), ExitNetworkError},
		{"dial error", NewCommandError("serve", "listen", "dial tcp refused", nil), ExitNetworkError},
		{"generic error", NewCommandError("dash", "run", "something broke", nil), ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCommandError_Unwrap(t *testing.T) {
	inner := &UsageError{Field: "limit", Reason: "negative"}
	wrapped := NewCommandError("serve", "parse", "bad flag", inner)

	if GetExitCode(wrapped) != ExitUsageError {
		t.Error("wrapped UsageError should still map to the usage exit code")
	}
}
