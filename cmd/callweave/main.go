// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main implements the callweave CLI for resolving call graphs in
// structurally-typed, class-based scripts.
//
// Usage:
//
//	callweave init                 Create .callweave/project.yaml configuration
//	callweave resolve [--path dir] Resolve the call graph for a project
//	callweave watch [--path dir]   Resolve, then re-resolve the whole project on change
//	callweave --version            Show version information
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags holds the flags that apply to every subcommand.
type GlobalFlags struct {
	JSON    bool
	NoColor bool
	Verbose int
	Quiet   bool
}

func logInfo(globals GlobalFlags, format string, args ...interface{}) {
	if !globals.Quiet && globals.Verbose >= 1 {
		fmt.Fprintf(os.Stderr, "[INFO] "+format+"\n", args...)
	}
}

func logError(globals GlobalFlags, format string, args ...interface{}) {
	if !globals.Quiet {
		fmt.Fprintf(os.Stderr, "[ERROR] "+format+"\n", args...)
	}
}

func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		configPath  = flag.StringP("config", "c", "", "Path to .callweave/project.yaml (default: auto-detect)")
		jsonOutput  = flag.Bool("json", false, "Output in JSON format (for applicable commands)")
		noColor     = flag.Bool("no-color", false, "Disable color output")
		verbose     = flag.CountP("verbose", "v", "Increase verbosity (-v for info, -vv for debug)")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress non-essential output (progress, info messages)")
	)

	// Stop parsing at the first non-flag argument (the command name), so
	// subcommand-specific flags like "resolve --full" pass through intact.
	flag.SetInterspersed(false)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `callweave - staged call-graph resolver

callweave resolves call graphs for structurally-typed, class-based scripts
through a staged pipeline: local resolution, import-aware resolution,
class-hierarchy analysis, rapid-type analysis, and optional runtime
confirmation.

Usage:
  callweave <command> [options]

Commands:
  init      Create .callweave/project.yaml configuration
  resolve   Resolve the call graph for a project and print statistics
  watch     Resolve, then re-resolve the whole project on file change
  version   Show version information

Global Options:
  --json            Output in JSON format (for applicable commands)
  --no-color        Disable color output (respects NO_COLOR env var)
  -v, --verbose     Increase verbosity (-v for info, -vv for debug)
  -q, --quiet       Suppress non-essential output (progress, info messages)
  -c, --config      Path to .callweave/project.yaml
  -V, --version     Show version and exit

Examples:
  callweave init                  Create a default configuration
  callweave resolve               Resolve the call graph for the current project
  callweave resolve --json        Emit statistics as JSON
  callweave watch                 Watch for changes and re-resolve the project

For detailed command help: callweave <command> --help

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("callweave version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}
	color.NoColor = *noColor || *jsonOutput

	if *quiet && *verbose > 0 {
		fmt.Fprintf(os.Stderr, "Error: cannot use --quiet and --verbose together\n")
		os.Exit(1)
	}

	// JSON mode auto-enables quiet to keep progress output out of stdout.
	if *jsonOutput {
		*quiet = true
	}

	globals := GlobalFlags{
		JSON:    *jsonOutput,
		NoColor: *noColor,
		Verbose: *verbose,
		Quiet:   *quiet,
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	var err error
	switch command {
	case "init":
		err = runInit(cmdArgs, globals)
	case "resolve":
		err = runResolve(cmdArgs, *configPath, globals)
	case "watch":
		err = runWatch(cmdArgs, *configPath, globals)
	case "version":
		fmt.Printf("callweave version %s\n", version)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}

	if err != nil {
		logError(globals, "%v", err)
		os.Exit(1)
	}
}
