// Command aetherkv is the entry point for the Aether KV store. With no
// one-shot flags it starts the teacher-style interactive REPL; with
// -put/-get/-del/-merge it runs a single operation and exits, the way
// the original implementation's quickstart example does.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	bitcask "github.com/jassi-singh/aether-kv"
	"github.com/jassi-singh/aether-kv/internal/cli"
	"github.com/jassi-singh/aether-kv/internal/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "aetherkv: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("aetherkv", pflag.ContinueOnError)
	dir := flags.String("dir", "", "store directory (default: config data_dir, then ./data)")
	configPath := flags.String("config", "config.yml", "path to the YAML config file")
	maxFileSize := flags.Int64("max-file-size", 0, "override the active-file rotation threshold in bytes")
	put := flags.StringArray("put", nil, "PUT <key>=<value>; may be repeated")
	get := flags.StringArray("get", nil, "GET <key>; may be repeated")
	del := flags.StringArray("del", nil, "DELETE <key>; may be repeated")
	merge := flags.Bool("merge", false, "run Merge before exiting")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath, config.WithDataDir(*dir), config.WithMaxFileSize(*maxFileSize))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	db, err := bitcask.Open(cfg.DataDir,
		bitcask.WithMaxFileSize(cfg.MaxFileSize),
		bitcask.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("opening store at %s: %w", cfg.DataDir, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Errorw("main: error closing store", "error", err)
		}
	}()

	oneShot := len(*put) > 0 || len(*get) > 0 || len(*del) > 0 || *merge
	if oneShot {
		return runOneShot(db, *put, *get, *del, *merge)
	}

	handler := cli.NewHandler(db, os.Stdin, os.Stdout, log)
	return handler.Run()
}

func runOneShot(db *bitcask.DB, puts, gets, dels []string, merge bool) error {
	for _, kv := range puts {
		key, value, ok := splitKV(kv)
		if !ok {
			return fmt.Errorf("invalid -put argument %q, want key=value", kv)
		}
		if _, err := db.Put([]byte(key), []byte(value)); err != nil {
			return fmt.Errorf("put %q: %w", key, err)
		}
		fmt.Printf("PUT %s OK\n", key)
	}

	for _, key := range gets {
		value, ok, err := db.Get([]byte(key))
		if err != nil {
			return fmt.Errorf("get %q: %w", key, err)
		}
		if !ok {
			fmt.Printf("GET %s (not found)\n", key)
			continue
		}
		fmt.Printf("GET %s = %s\n", key, value)
	}

	for _, key := range dels {
		deleted, err := db.Delete([]byte(key))
		if err != nil {
			return fmt.Errorf("delete %q: %w", key, err)
		}
		fmt.Printf("DELETE %s %v\n", key, deleted)
	}

	if merge {
		if err := db.Merge(); err != nil {
			return fmt.Errorf("merge: %w", err)
		}
		fmt.Println("MERGE OK")
	}
	return nil
}

func splitKV(s string) (key, value string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}
