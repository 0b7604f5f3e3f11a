// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for foliogate CLI.
//
// USABILITY: Markdown rendering and history for better CLI experience
//
// Command: chat
// Short:   Chat with the portfolio assistant
//
// Examples:
//   foliogate chat              Interactive REPL
//   foliogate chat --stream     Stream replies token by token
//
// Interactive Commands (during chat):
//   /help, /h    Show available commands
//   /new         Start a fresh session
//   /stream      Toggle streaming mode
//   /quit, /q    Exit chat
//   Ctrl+C       Abort input
//   Ctrl+D       Exit chat
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"

	"github.com/jeranaias/foliogate/internal/config"
	"github.com/jeranaias/foliogate/internal/upstream"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
// USABILITY: Supports arrow keys for history navigation and line editing.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	historyFile := filepath.Join(configDir, "chat_history")

	cli := &ChatCLI{
		line:        line,
		historyFile: historyFile,
	}

	cli.LoadHistory()

	return cli
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}

	return input, nil
}

// SaveHistory persists command history with secure permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}

	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT SESSION
// =============================================================================

// chatSession holds state across one REPL run.
type chatSession struct {
	client    *upstream.Client
	sessionID string
	streaming bool
	renderer  *glamour.TermRenderer
}

// RunChat starts the interactive chat REPL.
func RunChat(args Args) error {
	cfg, err := loadConfig(args.ConfigPath)
	if err != nil {
		return NewCommandError("chat", "start", "could not load configuration", err)
	}

	client := upstream.NewClient(cfg.Upstream.BaseURL).
		WithTimeout(time.Duration(cfg.Upstream.TimeoutSecs) * time.Second)

	session := &chatSession{
		client:    client,
		streaming: args.Stream,
	}

	// Markdown rendering is best-effort; a nil renderer prints raw text.
	if renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	); err == nil {
		session.renderer = renderer
	}

	repl := NewChatCLI()
	defer repl.Close()

	if !args.Quiet {
		fmt.Println(WelcomeStyle.Render("foliogate chat"))
		fmt.Println(InfoStyle.Render("Talking to " + cfg.Upstream.BaseURL + " - /help for commands"))
		fmt.Println()
	}

	for {
		input, err := repl.ReadInput(PromptStyle.Render("> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			// io.EOF means Ctrl+D: normal exit.
			if errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			return NewCommandError("chat", "read", "input failed", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := session.handleCommand(input); quit {
				return nil
			}
			continue
		}

		if err := session.send(input); err != nil {
			fmt.Println(ErrorStyle.Render("[X]") + " " + err.Error())
		}
	}
}

// handleCommand processes a slash command. Returns true to exit.
func (s *chatSession) handleCommand(input string) bool {
	switch strings.ToLower(strings.Fields(input)[0]) {
	case "/quit", "/q", "/exit":
		return true

	case "/new":
		s.sessionID = ""
		fmt.Println(InfoStyle.Render("Started a new session"))

	case "/stream":
		s.streaming = !s.streaming
		if s.streaming {
			fmt.Println(InfoStyle.Render("Streaming on"))
		} else {
			fmt.Println(InfoStyle.Render("Streaming off"))
		}

	case "/help", "/h":
		fmt.Println(CommandStyle.Render("/new") + "     start a fresh session")
		fmt.Println(CommandStyle.Render("/stream") + "  toggle streaming replies")
		fmt.Println(CommandStyle.Render("/quit") + "    exit")

	default:
		fmt.Println(WarningStyle.Render("Unknown command: " + input))
	}

	return false
}

// send submits one message and prints the reply.
func (s *chatSession) send(message string) error {
	req := upstream.ChatRequest{
		Message:   message,
		SessionID: s.sessionID,
	}

	if s.streaming {
		return s.sendStreaming(req)
	}

	raw, err := s.client.Chat(context.Background(), req)
	if err != nil {
		return err
	}

	reply, err := upstream.ParseChatReply(raw)
	if err != nil {
		return err
	}

	if reply.SessionID != "" {
		s.sessionID = reply.SessionID
	}

	fmt.Println(s.renderMarkdown(reply.Response))
	return nil
}

// sendStreaming reads the SSE reply and prints chunks as they arrive.
func (s *chatSession) sendStreaming(req upstream.ChatRequest) error {
	body, err := s.client.ChatStream(context.Background(), req)
	if err != nil {
		return err
	}
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		// Chunks are JSON when the backend sends structure, plain text
		// otherwise; print whichever we got.
		var chunk struct {
			Response  string `json:"response"`
			SessionID string `json:"session_id"`
		}
		if err := json.Unmarshal([]byte(payload), &chunk); err == nil && chunk.Response != "" {
			fmt.Print(chunk.Response)
			if chunk.SessionID != "" {
				s.sessionID = chunk.SessionID
			}
		} else {
			fmt.Print(payload)
		}
	}
	fmt.Println()

	return scanner.Err()
}

// renderMarkdown renders a reply with glamour, falling back to raw text.
func (s *chatSession) renderMarkdown(text string) string {
	if s.renderer == nil {
		return text
	}
	rendered, err := s.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}
