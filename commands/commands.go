// Package commands implements the Operator Console (spec §4.11): a
// line-oriented REPL for inspecting and steering a running engine without
// reaching into its state directly. Commands read a snapshot through
// engine.RequestStatus, read the on-disk config document, or edit it, and
// reload/set/toggle ask the engine to reload it.
package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/iltempo/trrouter/config"
	"github.com/iltempo/trrouter/engine"
)

// ErrQuit is returned by ProcessCommand when the user asks to exit.
var ErrQuit = errors.New("quit")

// Handler dispatches console commands against a running Engine and the
// config file it was loaded from.
type Handler struct {
	engine     *engine.Engine
	configPath string
	out        io.Writer
}

// New creates a console handler bound to a running engine and the config
// file path reload/set/toggle read and rewrite.
func New(e *engine.Engine, configPath string, out io.Writer) *Handler {
	return &Handler{engine: e, configPath: configPath, out: out}
}

// ProcessCommand parses and executes a single command line. Returns
// ErrQuit when the user typed "quit" or "exit".
func (h *Handler) ProcessCommand(cmdLine string) error {
	cmdLine = strings.TrimSpace(cmdLine)
	if cmdLine == "" {
		return h.handleStatus(nil)
	}

	parts := strings.Fields(cmdLine)
	cmd := strings.ToLower(parts[0])

	switch cmd {
	case "status":
		return h.handleStatus(parts)
	case "patterns":
		return h.handlePatterns(parts)
	case "reload":
		return h.handleReload(parts)
	case "set":
		return h.handleSet(parts)
	case "show":
		return h.handleShow(parts)
	case "toggle":
		return h.handleToggle(parts)
	case "help":
		return h.handleHelp(parts)
	case "quit", "exit":
		return ErrQuit
	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
	}
}

func (h *Handler) handleStatus(parts []string) error {
	if len(parts) > 1 {
		return fmt.Errorf("usage: status")
	}
	st := h.engine.RequestStatus()

	fmt.Fprintf(h.out, "Chord: %v\n", st.Chord)
	for _, p := range st.Patterns {
		sounding := "-"
		if p.Sounding.Set {
			sounding = strconv.Itoa(int(p.Sounding.Note))
		}
		fmt.Fprintf(h.out, "  %-12s enabled=%-5v channel=%-2d cursor=%-3d sounding=%s\n",
			p.Name, p.Enabled, p.Channel+1, p.StepCursor, sounding)
	}
	return nil
}

func (h *Handler) handlePatterns(parts []string) error {
	if len(parts) != 1 {
		return fmt.Errorf("usage: patterns")
	}
	st := h.engine.RequestStatus()
	for _, p := range st.Patterns {
		fmt.Fprintf(h.out, "  %-12s enabled=%v\n", p.Name, p.Enabled)
	}
	return nil
}

func (h *Handler) handleReload(parts []string) error {
	if len(parts) != 1 {
		return fmt.Errorf("usage: reload")
	}
	doc, err := h.reload()
	if err != nil {
		return err
	}
	fmt.Fprintf(h.out, "Reloaded %d pattern(s) from %s\n", len(doc.PatternOrder), h.configPath)
	return nil
}

// reload re-reads the config file from disk, validates it, and hands it to
// the engine. Shared by the reload/set/toggle commands.
func (h *Handler) reload() (*config.Document, error) {
	raw, err := os.ReadFile(h.configPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", h.configPath, err)
	}
	doc, err := config.Load(raw)
	if err != nil {
		return nil, fmt.Errorf("config invalid, not reloaded: %w", err)
	}
	h.engine.RequestReload(doc)
	return doc, nil
}

// handleSet: set <pattern> <field> <index> <value>
func (h *Handler) handleSet(parts []string) error {
	if len(parts) != 5 {
		return fmt.Errorf("usage: set <pattern> <field> <index> <value>")
	}
	patternName, field, idxStr, valueStr := parts[1], parts[2], parts[3], parts[4]
	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		return fmt.Errorf("invalid index: %s", idxStr)
	}

	raw, err := os.ReadFile(h.configPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", h.configPath, err)
	}

	if !gjson.GetBytes(raw, fmt.Sprintf("patterns.%s", patternName)).Exists() {
		return fmt.Errorf("no such pattern: %s", patternName)
	}

	path := fmt.Sprintf("patterns.%s.%s.%d", patternName, field, idx)
	var value interface{} = valueStr
	if n, err := strconv.Atoi(valueStr); err == nil {
		value = n
	}

	updated, err := sjson.SetBytes(raw, path, value)
	if err != nil {
		return fmt.Errorf("patching %s: %w", path, err)
	}
	if err := os.WriteFile(h.configPath, updated, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", h.configPath, err)
	}

	if _, err := h.reload(); err != nil {
		return err
	}
	fmt.Fprintf(h.out, "Set %s = %v, reloaded\n", path, value)
	return nil
}

// handleShow: show <pattern>
func (h *Handler) handleShow(parts []string) error {
	if len(parts) != 2 {
		return fmt.Errorf("usage: show <pattern>")
	}
	raw, err := os.ReadFile(h.configPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", h.configPath, err)
	}
	result := gjson.GetBytes(raw, fmt.Sprintf("patterns.%s", parts[1]))
	if !result.Exists() {
		return fmt.Errorf("no such pattern: %s", parts[1])
	}
	fmt.Fprintln(h.out, result.String())
	return nil
}

// handleToggle: toggle <pattern>
func (h *Handler) handleToggle(parts []string) error {
	if len(parts) != 2 {
		return fmt.Errorf("usage: toggle <pattern>")
	}
	name := parts[1]
	raw, err := os.ReadFile(h.configPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", h.configPath, err)
	}
	path := fmt.Sprintf("patterns.%s.enabled", name)
	entry := gjson.GetBytes(raw, fmt.Sprintf("patterns.%s", name))
	if !entry.Exists() {
		return fmt.Errorf("no such pattern: %s", name)
	}

	wasEnabled := true
	if enabled := entry.Get("enabled"); enabled.Exists() {
		wasEnabled = enabled.Bool()
	}

	updated, err := sjson.SetBytes(raw, path, !wasEnabled)
	if err != nil {
		return fmt.Errorf("patching %s: %w", path, err)
	}
	if err := os.WriteFile(h.configPath, updated, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", h.configPath, err)
	}

	if _, err := h.reload(); err != nil {
		return err
	}
	fmt.Fprintf(h.out, "Pattern %s enabled=%v, reloaded\n", name, !wasEnabled)
	return nil
}

func (h *Handler) handleHelp(parts []string) error {
	helpText := `Available commands:
  status                           Show chord contents and per-pattern state
  patterns                         List configured patterns and enabled state
  reload                           Re-read the config file and apply it
  set <pattern> <field> <idx> <v>  Patch one field of the on-disk config and reload
  show <pattern>                   Print a pattern's config block
  toggle <pattern>                 Flip a pattern's enabled flag and reload
  help                             Show this help message
  quit                             Exit the console
  <enter>                          Same as 'status'`
	fmt.Fprintln(h.out, helpText)
	return nil
}

// ReadLoop reads commands from a non-interactive reader (piped input or a
// script file) until EOF, "quit", or an I/O error.
func (h *Handler) ReadLoop(reader io.Reader) error {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(strings.ToLower(line)) == "quit" {
			return nil
		}
		if err := h.ProcessCommand(line); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			fmt.Fprintf(h.out, "Error: %v\n", err)
		}
	}
	return scanner.Err()
}
