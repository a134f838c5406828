package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/gammazero/workerpool"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aoisakanana/railway/pkg/dag"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)

	root := &cobra.Command{
		Use:   "railway",
		Short: "Railway compiles YAML workflow graphs into Go transition tables",
		Long: `Railway compiles YAML workflow definitions into Go transition tables.

Each workflow is a graph of named nodes wired by state transitions of the
form <node>::<status>::<detail>, terminating in colored exits. The compiler
validates the graph, generates a deterministic table artifact and can draw
the graph for review.`,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return initLogger(logLevel, logFormat)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(lintCmd())
	root.AddCommand(generateCmd())
	root.AddCommand(graphCmd())
	root.AddCommand(listCmd())
	return root
}

// ─── lint ─────────────────────────────────────────────────────────────────────

func lintCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "lint <workflow.yml> [workflow.yml ...]",
		Short: "Validate workflow definitions without generating code",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				if err := lintOne(path, strict); err != nil {
					failed++
					fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", path, err)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d workflow(s) failed lint", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as lint failures")
	return cmd
}

// lintOne validates a single definition, printing warnings as it goes.
func lintOne(path string, strict bool) error {
	g, err := dag.LoadFile(path)
	if err != nil {
		return err
	}
	res := dag.Validate(g)
	for _, w := range res.Warnings() {
		fmt.Println(w.String())
	}
	if err := res.Err(); err != nil {
		return err
	}
	if strict && len(res.Warnings()) > 0 {
		return fmt.Errorf("%d warning(s) with --strict", len(res.Warnings()))
	}
	fmt.Printf("OK: workflow %q is valid (%d nodes, %d transitions)\n",
		g.Entrypoint, len(g.Nodes), len(g.Transitions))
	return nil
}

// ─── generate ─────────────────────────────────────────────────────────────────

// genConfig carries the generate command's settings to the per-entry
// workers.
type genConfig struct {
	sourceDir    string
	outDir       string
	modPath      string
	skeletons    bool
	force        bool
	dryRun       bool
	validateOnly bool
}

func generateCmd() *cobra.Command {
	var (
		cfg     genConfig
		workers int
	)

	cmd := &cobra.Command{
		Use:   "generate [entrypoint ...]",
		Short: "Generate transition tables from the latest workflow definitions",
		Long: `Generate finds the newest timestamped definition for each entrypoint,
validates it and writes the transition-table artifact to <out>/<entrypoint>/.
With no arguments every entrypoint in the source directory is processed.
Existing artifacts are only replaced with --force.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := args
			if len(entries) == 0 {
				var err error
				entries, err = dag.FindEntrypoints(cfg.sourceDir)
				if err != nil {
					return err
				}
			}
			if len(entries) == 0 {
				return fmt.Errorf("no workflow definitions found in %s", cfg.sourceDir)
			}
			if cfg.modPath == "" {
				var err error
				cfg.modPath, err = moduleFromGoMod("go.mod")
				if err != nil {
					return fmt.Errorf("cannot determine module path, pass --module: %w", err)
				}
			}

			ctx := signalContext(cmd.Context())

			type outcome struct {
				entry string
				dest  string
				err   error
			}
			var (
				mu      sync.Mutex
				results []outcome
			)
			wp := workerpool.New(workers)
			for _, entry := range entries {
				wp.Submit(func() {
					dest, err := generateEntry(ctx, cfg, entry)
					mu.Lock()
					results = append(results, outcome{entry: entry, dest: dest, err: err})
					mu.Unlock()
				})
			}
			wp.StopWait()

			sort.Slice(results, func(i, j int) bool { return results[i].entry < results[j].entry })
			failed := 0
			for _, r := range results {
				if r.err != nil {
					failed++
					fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", r.entry, r.err)
					continue
				}
				switch {
				case cfg.validateOnly:
					fmt.Printf("ok   %s (validated)\n", r.entry)
				case cfg.dryRun:
					fmt.Printf("ok   %s -> %s (dry run)\n", r.entry, r.dest)
				default:
					fmt.Printf("ok   %s -> %s\n", r.entry, r.dest)
				}
			}
			fmt.Printf("%d succeeded, %d failed\n", len(results)-failed, failed)
			if failed > 0 {
				return fmt.Errorf("%d workflow(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.sourceDir, "source-dir", "workflows", "directory holding timestamped workflow definitions")
	cmd.Flags().StringVar(&cfg.outDir, "out", "gen", "output root for generated packages")
	cmd.Flags().StringVar(&cfg.modPath, "module", "", "Go module path for generated imports (default: from ./go.mod)")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent generation workers")
	cmd.Flags().BoolVar(&cfg.skeletons, "skeletons", false, "write node implementation skeletons for missing files")
	cmd.Flags().BoolVar(&cfg.force, "force", false, "overwrite existing artifact and skeleton files")
	cmd.Flags().BoolVar(&cfg.dryRun, "dry-run", false, "validate and generate without writing anything")
	cmd.Flags().BoolVar(&cfg.validateOnly, "validate-only", false, "stop after validation")
	return cmd
}

// generateEntry compiles one entrypoint end to end: locate the latest
// source, validate it and write the artifact. Warnings are logged, errors
// fail the entry. validateOnly stops after validation; dryRun generates
// but writes nothing.
func generateEntry(ctx context.Context, cfg genConfig, entry string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	src, err := dag.FindLatestSource(cfg.sourceDir, entry)
	if err != nil {
		return "", errors.Trace(err)
	}
	g, err := dag.LoadFile(src)
	if err != nil {
		return "", errors.Trace(err)
	}
	res := dag.Validate(g)
	for _, w := range res.Warnings() {
		log.WithField("entry", entry).Warn(w.String())
	}
	if err := res.Err(); err != nil {
		return "", err
	}
	if cfg.validateOnly {
		return "", nil
	}

	code, err := dag.Generate(g, filepath.Base(src), cfg.modPath)
	if err != nil {
		return "", errors.Annotatef(err, "generate %s", entry)
	}
	dest := filepath.Join(cfg.outDir, entry, "transitions.go")
	if cfg.dryRun {
		return dest, nil
	}
	if _, err := os.Stat(dest); err == nil && !cfg.force {
		return "", errors.AlreadyExistsf("artifact %s", dest)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", errors.Trace(err)
	}
	if err := os.WriteFile(dest, []byte(code), 0o644); err != nil {
		return "", errors.Trace(err)
	}

	if cfg.skeletons {
		written, err := emitSkeletons(g, ".", cfg.force)
		if err != nil {
			return "", errors.Annotatef(err, "skeletons for %s", entry)
		}
		for _, p := range written {
			log.WithFields(log.Fields{"entry": entry, "path": p}).Info("wrote skeleton")
		}
	}
	return dest, nil
}

// emitSkeletons writes a stub implementation for every node whose source
// file does not exist yet. Existing files are left alone unless force is
// set, so hand-written implementations survive regeneration.
func emitSkeletons(g *dag.TransitionGraph, root string, force bool) ([]string, error) {
	var written []string
	for _, spec := range dag.SkeletonSpecs(g) {
		path := dag.SkeletonPath(spec, root)
		if _, err := os.Stat(path); err == nil && !force {
			log.WithField("path", path).Debug("skeleton exists, skipping")
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return written, errors.Trace(err)
		}
		if err := os.WriteFile(path, []byte(dag.RenderSkeleton(spec)), 0o644); err != nil {
			return written, errors.Trace(err)
		}
		written = append(written, path)
	}
	return written, nil
}

// ─── list ─────────────────────────────────────────────────────────────────────

func listCmd() *cobra.Command {
	var sourceDir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workflow entrypoints and their latest definitions",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			entries, err := dag.FindEntrypoints(sourceDir)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Printf("no workflow definitions in %s\n", sourceDir)
				return nil
			}
			maxLen := 0
			for _, e := range entries {
				if len(e) > maxLen {
					maxLen = len(e)
				}
			}
			for _, e := range entries {
				src, err := dag.FindLatestSource(sourceDir, e)
				if err != nil {
					return err
				}
				fmt.Printf("%-*s  %s\n", maxLen, e, src)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceDir, "source-dir", "workflows", "directory holding timestamped workflow definitions")
	return cmd
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func initLogger(level, format string) error {
	switch strings.ToLower(level) {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		return fmt.Errorf("unknown log level %q: use debug, info, warn or error", level)
	}

	switch strings.ToLower(format) {
	case "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q: use text or json", format)
	}
	return nil
}

// moduleFromGoMod reads the module path from a go.mod file.
func moduleFromGoMod(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(b), "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "module "); ok {
			return strings.TrimSpace(rest), nil
		}
	}
	return "", fmt.Errorf("no module directive in %s", path)
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			fmt.Fprintln(os.Stderr, "\n[railway] interrupted, aborting generation")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx
}
