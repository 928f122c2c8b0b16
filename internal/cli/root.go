// Package cli wires the twiga command-line front end: init, index,
// search, and optimize, atop the Engine facade.
package cli

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Execute runs the twiga CLI.
func Execute(ctx context.Context) error {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	root := &cobra.Command{
		Use:   "twiga",
		Short: "twiga: lexical search over large text corpora, stored in DuckDB",
		Long: `twiga tokenizes, hashes, and shards text into a DuckDB-backed
inverted index, then ranks matches with one of three algorithms:
single-word, any-position, or exact-phrase.

Usage:
  twiga init             Create the index and text database schema
  twiga index <file>     Index documents from a newline-delimited JSON file
  twiga search <query>   Search the index and print ranked matches
  twiga optimize         Reorder shard tables for faster scans`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetVersionTemplate("twiga {{.Version}}\n")
	root.Version = versionString()

	root.AddCommand(initCmd(logger))
	root.AddCommand(indexCmd(logger))
	root.AddCommand(searchCmd(logger))
	root.AddCommand(optimizeCmd(logger))

	if err := fang.Execute(ctx, root); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return err
	}

	return nil
}

func versionString() string {
	if v := os.Getenv("TWIGA_VERSION"); strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			return bi.Main.Version
		}
	}

	return "dev"
}
