// Package cli provides the interactive command loop for the key-value
// store. It parses user commands and executes them against a DB.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// DB is the subset of bitcask.DB the interactive loop drives. Declared
// here rather than imported directly so cli stays free of a dependency
// on the root package.
type DB interface {
	Put(key, value []byte) (bool, error)
	Get(key []byte) ([]byte, bool, error)
	Delete(key []byte) (bool, error)
	Merge() error
	Traverse(cb func(key, value []byte) bool) (bool, error)
}

// Handler manages the interactive command-line interface.
type Handler struct {
	db      DB
	scanner *bufio.Scanner
	out     io.Writer
	log     *zap.SugaredLogger
}

// NewHandler creates a CLI handler reading commands from in and writing
// output to out. A nil logger defaults to a no-op one.
func NewHandler(db DB, in io.Reader, out io.Writer, log *zap.SugaredLogger) *Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Handler{
		db:      db,
		scanner: bufio.NewScanner(in),
		out:     out,
		log:     log,
	}
}

// Run starts the interactive command loop, processing input until an
// exit command is received or the input is exhausted.
func (h *Handler) Run() error {
	fmt.Fprintln(h.out, "Aether KV - Bitcask key-value store")
	fmt.Fprintln(h.out, "Commands: PUT <key> <value>, GET <key>, DELETE <key>, MERGE, EXIT")
	fmt.Fprint(h.out, "> ")

	for h.scanner.Scan() {
		line := strings.TrimSpace(h.scanner.Text())
		if line == "" {
			fmt.Fprint(h.out, "> ")
			continue
		}

		parts := strings.Fields(line)
		command := strings.ToUpper(parts[0])

		switch command {
		case "PUT":
			h.handlePut(parts)
		case "GET":
			h.handleGet(parts)
		case "DELETE":
			h.handleDelete(parts)
		case "MERGE":
			h.handleMerge()
		case "EXIT", "QUIT":
			h.log.Infow("cli: shutdown requested by user")
			fmt.Fprintln(h.out, "Goodbye!")
			return nil
		default:
			h.log.Warnw("cli: unknown command received", "command", command)
			fmt.Fprintf(h.out, "Unknown command: %s\n", command)
		}

		fmt.Fprint(h.out, "> ")
	}

	if err := h.scanner.Err(); err != nil {
		return fmt.Errorf("cli: error reading input: %w", err)
	}
	return nil
}

func (h *Handler) handlePut(parts []string) {
	if len(parts) < 3 {
		fmt.Fprintln(h.out, "Usage: PUT <key> <value>")
		return
	}
	key := parts[1]
	value := strings.Join(parts[2:], " ")

	h.log.Debugw("cli: executing PUT", "key", key, "value_size", len(value))
	if _, err := h.db.Put([]byte(key), []byte(value)); err != nil {
		h.log.Errorw("cli: PUT failed", "key", key, "error", err)
		fmt.Fprintf(h.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(h.out, "OK")
}

func (h *Handler) handleGet(parts []string) {
	if len(parts) < 2 {
		fmt.Fprintln(h.out, "Usage: GET <key>")
		return
	}
	key := parts[1]

	h.log.Debugw("cli: executing GET", "key", key)
	value, ok, err := h.db.Get([]byte(key))
	if err != nil {
		h.log.Errorw("cli: GET failed", "key", key, "error", err)
		fmt.Fprintf(h.out, "Error: %v\n", err)
		return
	}
	if !ok {
		fmt.Fprintln(h.out, "(not found)")
		return
	}
	fmt.Fprintf(h.out, "%s\n", value)
}

func (h *Handler) handleDelete(parts []string) {
	if len(parts) < 2 {
		fmt.Fprintln(h.out, "Usage: DELETE <key>")
		return
	}
	key := parts[1]

	h.log.Debugw("cli: executing DELETE", "key", key)
	deleted, err := h.db.Delete([]byte(key))
	if err != nil {
		h.log.Errorw("cli: DELETE failed", "key", key, "error", err)
		fmt.Fprintf(h.out, "Error: %v\n", err)
		return
	}
	if !deleted {
		fmt.Fprintln(h.out, "(not found)")
		return
	}
	fmt.Fprintln(h.out, "OK")
}

func (h *Handler) handleMerge() {
	h.log.Infow("cli: executing MERGE")
	if err := h.db.Merge(); err != nil {
		h.log.Errorw("cli: MERGE failed", "error", err)
		fmt.Fprintf(h.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(h.out, "OK")
}
