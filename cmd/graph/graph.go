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

// Package graph provides the graph command for dexa, which inspects the
// desugaring dependency graph persisted by a previous dex run.
package graph

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/dexa/desugar"
	"bennypowers.dev/dexa/dex"
	"bennypowers.dev/dexa/fs"
	"bennypowers.dev/dexa/internal/output"
)

// Cmd is the graph cobra command.
var Cmd = &cobra.Command{
	Use:   "graph [class-file]",
	Short: "Inspect the persisted desugaring dependency graph",
	Long: `Inspect the desugaring dependency graph left behind by a dex run.

With no argument, dumps every edge. With a root-relative class-file path,
shows that file's direct dependencies and its dependents.`,
	Example: `  # Dump the whole graph as JSON
  dexa graph --state classes-dex

  # Who depends on a class, including transitively?
  dexa graph com/example/Base.class --transitive

  # HTML report written to a file
  dexa graph --format html -o graph.html`,
	Args: cobra.MaximumNArgs(1),
	RunE: run,
}

func init() {
	Cmd.Flags().String("state", "", "State directory holding the graph file (default: <root>-dex)")
	Cmd.Flags().StringP("format", "f", "json", "Output format (json, html)")
	Cmd.Flags().Bool("transitive", false, "Include transitive dependents for a single class file")
}

// nodeReport is the JSON shape for a single-node query.
type nodeReport struct {
	Node                 string   `json:"node"`
	Dependencies         []string `json:"dependencies"`
	Dependents           []string `json:"dependents"`
	TransitiveDependents []string `json:"transitive_dependents,omitempty"`
}

// graphReport is the JSON shape for a whole-graph dump.
type graphReport struct {
	Nodes []string    `json:"nodes"`
	Edges [][2]string `json:"edges"`
}

func run(cmd *cobra.Command, args []string) error {
	osfs := fs.NewOSFileSystem()

	format, _ := cmd.Flags().GetString("format")
	if format != "json" && format != "html" {
		return fmt.Errorf("invalid format %q: must be 'json' or 'html'", format)
	}

	stateDir, _ := cmd.Flags().GetString("state")
	if stateDir == "" {
		absRoot, err := filepath.Abs(viper.GetString("root"))
		if err != nil {
			return fmt.Errorf("invalid class root: %w", err)
		}
		stateDir = absRoot + "-dex"
	}

	graphPath := filepath.Join(stateDir, dex.GraphFileName)
	g, err := desugar.Load(osfs, graphPath)
	if err != nil {
		return fmt.Errorf("failed to load graph from %s: %w", graphPath, err)
	}

	if len(args) == 1 {
		return runNode(osfs, g, args[0], format, cmd)
	}
	return runDump(osfs, g, format)
}

func runNode(osfs fs.FileSystem, g *desugar.Graph, node, format string, cmd *cobra.Command) error {
	transitive, _ := cmd.Flags().GetBool("transitive")

	report := nodeReport{
		Node:         node,
		Dependencies: g.Dependencies(node),
		Dependents:   g.Dependents(node),
	}
	if transitive {
		report.TransitiveDependents = g.AllDependents([]string{node})
	}

	if format == "html" {
		sections := []htmlSection{
			{Title: "Dependencies", Items: report.Dependencies},
			{Title: "Dependents", Items: report.Dependents},
		}
		if transitive {
			sections = append(sections, htmlSection{
				Title: "Transitive dependents",
				Items: report.TransitiveDependents,
			})
		}
		rendered, err := renderHTML("Desugaring graph: "+node, sections)
		if err != nil {
			return err
		}
		return output.Write(osfs, rendered)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling report: %w", err)
	}
	return output.Write(osfs, out)
}

func runDump(osfs fs.FileSystem, g *desugar.Graph, format string) error {
	report := graphReport{
		Nodes: g.Nodes(),
		Edges: g.Edges(),
	}

	if format == "html" {
		items := make([]string, 0, len(report.Edges))
		for _, edge := range report.Edges {
			items = append(items, edge[0]+" → "+edge[1])
		}
		rendered, err := renderHTML("Desugaring graph", []htmlSection{
			{Title: "Nodes", Items: report.Nodes},
			{Title: "Edges", Items: items},
		})
		if err != nil {
			return err
		}
		return output.Write(osfs, rendered)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling report: %w", err)
	}
	return output.Write(osfs, out)
}
