/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package dex provides the dex command for dexa.
package dex

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/dexa/dex"
	"bennypowers.dev/dexa/fs"
)

// Cmd is the dex cobra command that processes a class tree into per-class
// dexed outputs, incrementally when previous state is available.
var Cmd = &cobra.Command{
	Use:   "dex",
	Short: "Dex a class tree, incrementally when possible",
	Long: `Dex every class file under the class root into per-class outputs.

When a desugaring graph and input snapshot from a previous run exist, only
changed class files and their transitive dependents are reprocessed; all
other outputs are left in place. Use --full to force a complete rebuild.`,
	Example: `  # Incremental build of ./classes into ./classes-dex
  dexa dex --root classes

  # Explicit output and state locations
  dexa dex --root build/classes --out build/dex --state build/dex-state

  # Force a full rebuild targeting API level 24
  dexa dex --root classes --full --min-api 24

  # Only dex part of the tree, eight workers
  dexa dex --root classes --glob "com/example/**/*.class" -j 8`,
	RunE: run,
}

func init() {
	Cmd.Flags().String("out", "", "Output directory (default: <root>-dex)")
	Cmd.Flags().String("state", "", "State directory for graph and snapshot (default: output directory)")
	Cmd.Flags().Bool("full", false, "Force a full (non-incremental) rebuild")
	Cmd.Flags().Int("min-api", dex.DefaultMinAPI, "Minimum Android API level to target")
	Cmd.Flags().String("glob", dex.DefaultPattern, "Glob pattern selecting class files under the root")
	Cmd.Flags().IntP("jobs", "j", 0, "Number of parallel workers (default: number of CPUs)")
	Cmd.Flags().BoolP("verbose", "v", false, "Print debug output")
}

// stderrLogger logs engine messages to stderr; Debug only with --verbose.
type stderrLogger struct {
	verbose bool
}

func (l *stderrLogger) Warning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}

func (l *stderrLogger) Debug(format string, args ...any) {
	if l.verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

func run(cmd *cobra.Command, args []string) error {
	osfs := fs.NewOSFileSystem()

	absRoot, err := filepath.Abs(viper.GetString("root"))
	if err != nil {
		return fmt.Errorf("invalid class root: %w", err)
	}

	outDir, _ := cmd.Flags().GetString("out")
	stateDir, _ := cmd.Flags().GetString("state")
	full, _ := cmd.Flags().GetBool("full")
	minAPI, _ := cmd.Flags().GetInt("min-api")
	pattern, _ := cmd.Flags().GetString("glob")
	jobs, _ := cmd.Flags().GetInt("jobs")
	verbose, _ := cmd.Flags().GetBool("verbose")

	processor := dex.New(osfs, absRoot).
		WithMinAPI(minAPI).
		WithPattern(pattern).
		WithJobs(jobs).
		WithLogger(&stderrLogger{verbose: verbose})
	if outDir != "" {
		absOut, err := filepath.Abs(outDir)
		if err != nil {
			return fmt.Errorf("invalid output directory: %w", err)
		}
		processor = processor.WithOutputDir(absOut)
	}
	if stateDir != "" {
		absState, err := filepath.Abs(stateDir)
		if err != nil {
			return fmt.Errorf("invalid state directory: %w", err)
		}
		processor = processor.WithStateDir(absState)
	}

	var result *dex.Result
	if full {
		result, err = processor.Process()
	} else {
		result, err = processor.ProcessIncremental()
	}
	if err != nil {
		return fmt.Errorf("failed to dex: %w", err)
	}

	mode := "incremental"
	if result.Full {
		mode = "full"
	}
	fmt.Printf("%s build: %d dexed, %d up to date, %d stale outputs removed\n",
		mode, len(result.Processed), result.Skipped, len(result.Deleted))
	return nil
}
