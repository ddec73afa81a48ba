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

// Package dex drives incremental dexing of a class tree. It maintains a
// persistent desugaring dependency graph and a fingerprint snapshot so that
// a rebuild reprocesses only changed class files and their transitive
// dependents, leaving unaffected outputs in place.
package dex

import (
	"fmt"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"bennypowers.dev/dexa/classfile"
	"bennypowers.dev/dexa/desugar"
	"bennypowers.dev/dexa/fs"
)

// Logger is an interface for logging messages during processing.
type Logger interface {
	Warning(format string, args ...any)
	Debug(format string, args ...any)
}

const (
	// DefaultPattern matches every class file under the root.
	DefaultPattern = "**/*.class"

	// DefaultMinAPI is the minimum Android API level targeted when none
	// is configured.
	DefaultMinAPI = 21

	// GraphFileName is the persisted desugaring graph inside the state dir.
	GraphFileName = "desugar.graph"

	// SnapshotFileName is the persisted input snapshot inside the state dir.
	SnapshotFileName = "snapshot.json"
)

// Processor dexes a tree of class files into per-class outputs.
type Processor struct {
	fs       fs.FileSystem
	logger   Logger
	root     string
	outDir   string
	stateDir string
	pattern  string
	minAPI   int
	jobs     int
	dexer    Dexer
}

// New creates a Processor for the class tree rooted at root. Outputs
// default to a sibling "<root>-dex" directory, which also holds the
// persisted state.
func New(fsys fs.FileSystem, root string) *Processor {
	return &Processor{
		fs:      fsys,
		root:    root,
		outDir:  root + "-dex",
		pattern: DefaultPattern,
		minAPI:  DefaultMinAPI,
		dexer:   &ContainerDexer{MinAPI: DefaultMinAPI},
	}
}

// WithOutputDir returns a new Processor writing outputs under dir.
func (p *Processor) WithOutputDir(dir string) *Processor {
	clone := *p
	clone.outDir = dir
	return &clone
}

// WithStateDir returns a new Processor keeping the graph and snapshot under
// dir instead of the output directory.
func (p *Processor) WithStateDir(dir string) *Processor {
	clone := *p
	clone.stateDir = dir
	return &clone
}

// WithPattern returns a new Processor selecting inputs with the given
// doublestar pattern relative to the root.
func (p *Processor) WithPattern(pattern string) *Processor {
	clone := *p
	clone.pattern = pattern
	return &clone
}

// WithMinAPI returns a new Processor targeting the given minimum Android
// API level. Only applies while the built-in Dexer is in use.
func (p *Processor) WithMinAPI(minAPI int) *Processor {
	clone := *p
	clone.minAPI = minAPI
	if _, ok := clone.dexer.(*ContainerDexer); ok {
		clone.dexer = &ContainerDexer{MinAPI: minAPI}
	}
	return &clone
}

// WithJobs returns a new Processor using the given number of parallel
// workers. Defaults to runtime.NumCPU() when <= 0.
func (p *Processor) WithJobs(jobs int) *Processor {
	clone := *p
	clone.jobs = jobs
	return &clone
}

// WithLogger returns a new Processor that logs through logger.
func (p *Processor) WithLogger(logger Logger) *Processor {
	clone := *p
	clone.logger = logger
	return &clone
}

// WithDexer returns a new Processor using a custom bytecode backend.
func (p *Processor) WithDexer(dexer Dexer) *Processor {
	clone := *p
	clone.dexer = dexer
	return &clone
}

// GraphPath returns the location of the persisted desugaring graph.
func (p *Processor) GraphPath() string {
	return filepath.Join(p.statePath(), GraphFileName)
}

// SnapshotPath returns the location of the persisted input snapshot.
func (p *Processor) SnapshotPath() string {
	return filepath.Join(p.statePath(), SnapshotFileName)
}

func (p *Processor) statePath() string {
	if p.stateDir != "" {
		return p.stateDir
	}
	return p.outDir
}

// Result summarizes one processing run.
type Result struct {
	// Full reports whether the run reprocessed every input.
	Full bool
	// Processed lists the root-relative class files dexed this run.
	Processed []string
	// Deleted lists outputs removed because their sources were deleted,
	// modified, or impacted.
	Deleted []string
	// Skipped counts inputs whose outputs were left untouched.
	Skipped int
}

// Process runs a full (non-incremental) build: every class file under the
// root is dexed, stale outputs are removed, and the graph and snapshot are
// rebuilt from scratch.
func (p *Processor) Process() (*Result, error) {
	inputs, err := p.scan()
	if err != nil {
		return nil, err
	}

	if err := p.invalidateSnapshot(); err != nil {
		return nil, err
	}
	deleted, err := p.clearOutputs()
	if err != nil {
		return nil, err
	}

	graph := desugar.NewGraph()
	if err := p.processFiles(inputs, inputs, graph); err != nil {
		return nil, err
	}
	if err := p.persist(graph, inputs); err != nil {
		return nil, err
	}

	return &Result{Full: true, Processed: inputs, Deleted: deleted}, nil
}

// ProcessIncremental runs an incremental build, computing the change set by
// diffing the persisted snapshot against the current input tree. When no
// usable previous state exists it falls back to a full run.
func (p *Processor) ProcessIncremental() (*Result, error) {
	prev, err := LoadSnapshot(p.fs, p.SnapshotPath())
	if err != nil {
		p.debug("no usable snapshot (%v); running full build", err)
		return p.Process()
	}

	inputs, err := p.scan()
	if err != nil {
		return nil, err
	}
	cur, err := TakeSnapshot(p.fs, p.root, inputs)
	if err != nil {
		return nil, err
	}
	return p.processChanges(inputs, cur, prev.Diff(cur))
}

// ProcessChanges runs an incremental build for an externally supplied change
// set, for callers that track file changes themselves.
func (p *Processor) ProcessChanges(changes ChangeSet) (*Result, error) {
	inputs, err := p.scan()
	if err != nil {
		return nil, err
	}
	cur, err := TakeSnapshot(p.fs, p.root, inputs)
	if err != nil {
		return nil, err
	}
	return p.processChanges(inputs, cur, changes)
}

// processChanges is the incremental algorithm: load the previous graph,
// close over reverse edges from the changed files, drop stale outputs and
// nodes, reprocess exactly the affected inputs, and persist the new state.
func (p *Processor) processChanges(inputs []string, cur *Snapshot, changes ChangeSet) (*Result, error) {
	graph, err := desugar.Load(p.fs, p.GraphPath())
	if err != nil {
		p.warn("no usable desugar graph (%v); running full build", err)
		return p.Process()
	}

	if changes.IsEmpty() {
		p.debug("no input changes; outputs are up to date")
		return &Result{Skipped: len(inputs)}, nil
	}

	impacted := graph.AllDependents(append(slices.Clone(changes.Removed), changes.Modified...))
	p.debug("%d added, %d modified, %d removed, %d impacted",
		len(changes.Added), len(changes.Modified), len(changes.Removed), len(impacted))

	// Stale set: anything whose output can no longer be trusted. Outputs
	// go first, then nodes, so no stale edge survives into reprocessing.
	stale := make(map[string]bool, len(changes.Removed)+len(changes.Modified)+len(impacted))
	for _, rel := range changes.Removed {
		stale[rel] = true
	}
	for _, rel := range changes.Modified {
		stale[rel] = true
	}
	for _, rel := range impacted {
		stale[rel] = true
	}

	if err := p.invalidateSnapshot(); err != nil {
		return nil, err
	}

	var deleted []string
	for _, rel := range sortedNodes(stale) {
		removed, err := p.removeOutput(rel)
		if err != nil {
			return nil, err
		}
		if removed {
			deleted = append(deleted, rel)
		}
		graph.RemoveNode(rel)
	}

	// Reprocess modified ∪ impacted ∪ added, restricted to files that
	// still exist. A removed file can appear in impacted when it depended
	// on another removed file.
	inputSet := make(map[string]bool, len(inputs))
	for _, rel := range inputs {
		inputSet[rel] = true
	}
	targetSet := make(map[string]bool, len(changes.Modified)+len(impacted)+len(changes.Added))
	for _, rel := range changes.Modified {
		targetSet[rel] = true
	}
	for _, rel := range impacted {
		targetSet[rel] = true
	}
	for _, rel := range changes.Added {
		targetSet[rel] = true
	}
	var targets []string
	for rel := range targetSet {
		if inputSet[rel] {
			targets = append(targets, rel)
		}
	}
	slices.Sort(targets)

	if err := p.processFiles(targets, inputs, graph); err != nil {
		return nil, err
	}
	if err := p.persistSnapshot(graph, cur); err != nil {
		return nil, err
	}

	return &Result{
		Processed: targets,
		Deleted:   deleted,
		Skipped:   len(inputs) - len(targets),
	}, nil
}

// scan lists every input under the root as sorted root-relative slash paths.
func (p *Processor) scan() ([]string, error) {
	if !p.fs.Exists(p.root) {
		return nil, fmt.Errorf("class root %s does not exist", p.root)
	}
	matches, err := doublestar.Glob(fs.Sub(p.fs, p.root), p.pattern)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", p.root, err)
	}
	slices.Sort(matches)
	return matches, nil
}

type fileResult struct {
	rel    string
	deps   []string
	output []byte
	err    error
}

// processFiles dexes the target files in parallel and records the edges
// discovered along the way. inputs is the complete current input set, used
// to resolve which referenced classes live in this tree.
func (p *Processor) processFiles(targets, inputs []string, graph *desugar.Graph) error {
	if len(targets) == 0 {
		return nil
	}

	inputSet := make(map[string]bool, len(inputs))
	for _, rel := range inputs {
		inputSet[rel] = true
	}

	jobs := make(chan string, len(targets))
	results := make(chan fileResult, len(targets))

	parallel := p.jobs
	if parallel <= 0 {
		parallel = runtime.NumCPU()
	}

	var wg sync.WaitGroup
	for i := 0; i < parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rel := range jobs {
				results <- p.processFile(rel, inputSet)
			}
		}()
	}
	for _, rel := range targets {
		jobs <- rel
	}
	close(jobs)
	wg.Wait()
	close(results)

	// Collect everything before mutating the graph or the output tree so
	// a failed file leaves no partial edges behind.
	collected := make([]fileResult, 0, len(targets))
	for result := range results {
		collected = append(collected, result)
	}
	slices.SortFunc(collected, func(a, b fileResult) int {
		return strings.Compare(a.rel, b.rel)
	})
	for _, result := range collected {
		if result.err != nil {
			return result.err
		}
	}

	for _, result := range collected {
		outPath := p.outputPath(result.rel)
		if dir := filepath.Dir(outPath); dir != "." {
			if err := p.fs.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("creating output directory for %s: %w", result.rel, err)
			}
		}
		if err := p.fs.WriteFile(outPath, result.output, 0644); err != nil {
			return fmt.Errorf("writing output for %s: %w", result.rel, err)
		}
		for _, dep := range result.deps {
			if err := graph.AddEdge(result.rel, dep); err != nil {
				return fmt.Errorf("recording edge %s -> %s: %w", result.rel, dep, err)
			}
		}
	}
	return nil
}

// processFile dexes one class file and discovers its direct dependencies:
// every referenced class whose class file lives in the current input tree.
func (p *Processor) processFile(rel string, inputSet map[string]bool) fileResult {
	raw, err := p.fs.ReadFile(filepath.Join(p.root, rel))
	if err != nil {
		return fileResult{rel: rel, err: fmt.Errorf("reading %s: %w", rel, err)}
	}
	class, err := classfile.Parse(raw)
	if err != nil {
		return fileResult{rel: rel, err: fmt.Errorf("parsing %s: %w", rel, err)}
	}

	var depPaths []string
	for _, ref := range class.ReferencedClasses() {
		candidate := ref + ".class"
		if candidate != rel && inputSet[candidate] {
			depPaths = append(depPaths, candidate)
		}
	}
	slices.Sort(depPaths)

	deps := make([]Dependency, 0, len(depPaths))
	for _, dep := range depPaths {
		data, err := p.fs.ReadFile(filepath.Join(p.root, dep))
		if err != nil {
			return fileResult{rel: rel, err: fmt.Errorf("reading dependency %s of %s: %w", dep, rel, err)}
		}
		deps = append(deps, Dependency{Path: dep, Data: data})
	}

	output, err := p.dexer.Dex(rel, class, raw, deps)
	if err != nil {
		return fileResult{rel: rel, err: fmt.Errorf("dexing %s: %w", rel, err)}
	}
	return fileResult{rel: rel, deps: depPaths, output: output}
}

// outputPath maps a root-relative class file to its output location,
// e.g. com/example/Foo.class -> <out>/com/example/Foo.dex.
func (p *Processor) outputPath(rel string) string {
	return filepath.Join(p.outDir, strings.TrimSuffix(rel, ".class")+".dex")
}

// invalidateSnapshot removes the persisted snapshot before any outputs are
// touched. A run that fails partway then leaves no snapshot behind, so the
// next run falls back to a full build instead of trusting outputs this run
// deleted. The snapshot is rewritten only once the run succeeds.
func (p *Processor) invalidateSnapshot() error {
	path := p.SnapshotPath()
	if !p.fs.Exists(path) {
		return nil
	}
	if err := p.fs.Remove(path); err != nil {
		return fmt.Errorf("invalidating snapshot: %w", err)
	}
	return nil
}

// removeOutput deletes the dexed output for rel if present.
func (p *Processor) removeOutput(rel string) (bool, error) {
	outPath := p.outputPath(rel)
	if !p.fs.Exists(outPath) {
		return false, nil
	}
	if err := p.fs.Remove(outPath); err != nil {
		return false, fmt.Errorf("removing stale output for %s: %w", rel, err)
	}
	return true, nil
}

// clearOutputs deletes every existing dexed output before a full run.
func (p *Processor) clearOutputs() ([]string, error) {
	if !p.fs.Exists(p.outDir) {
		return nil, nil
	}
	matches, err := doublestar.Glob(fs.Sub(p.fs, p.outDir), "**/*.dex")
	if err != nil {
		return nil, fmt.Errorf("scanning outputs: %w", err)
	}
	slices.Sort(matches)
	for _, rel := range matches {
		if err := p.fs.Remove(filepath.Join(p.outDir, rel)); err != nil {
			return nil, fmt.Errorf("clearing output %s: %w", rel, err)
		}
	}
	return matches, nil
}

// persist writes the graph and a fresh snapshot of inputs.
func (p *Processor) persist(graph *desugar.Graph, inputs []string) error {
	snap, err := TakeSnapshot(p.fs, p.root, inputs)
	if err != nil {
		return err
	}
	return p.persistSnapshot(graph, snap)
}

func (p *Processor) persistSnapshot(graph *desugar.Graph, snap *Snapshot) error {
	if err := desugar.Save(p.fs, p.GraphPath(), graph); err != nil {
		return err
	}
	return SaveSnapshot(p.fs, p.SnapshotPath(), snap)
}

func (p *Processor) debug(format string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(format, args...)
	}
}

func (p *Processor) warn(format string, args ...any) {
	if p.logger != nil {
		p.logger.Warning(format, args...)
	}
}

func sortedNodes(set map[string]bool) []string {
	nodes := make([]string, 0, len(set))
	for node := range set {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	return nodes
}
