// tapemachine runs binary Turing machine tables.
//
// Usage:
//
//	tapemachine                      run the built-in addition demo
//	tapemachine -request run.yaml    run a request file (JSON or YAML)
//	tapemachine -dot                 also print the table as Graphviz DOT
//	tapemachine -serve               serve the HTTP API
//
// Exit codes:
//   - 0: success
//   - 1: run, configuration or server error
//   - 2: usage error
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/comalice/tapemachine/internal/config"
	"github.com/comalice/tapemachine/internal/core"
	"github.com/comalice/tapemachine/internal/log"
	"github.com/comalice/tapemachine/internal/production"
	"github.com/comalice/tapemachine/internal/server"
	"github.com/comalice/tapemachine/internal/tables"
)

var Version = "dev"

type options struct {
	configPath  string
	requestPath string
	maxSteps    int
	trace       bool
	recordDir   string
	format      string
	dot         bool
	serve       bool
	showVersion bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, set, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if opts.showVersion {
		fmt.Fprintln(stdout, Version)
		return 0
	}

	// Flags override file and environment, so validate only once they are applied.
	cfg, err := config.Read(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 1
	}
	applyFlags(&cfg, opts, set)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 1
	}

	log.Reconfigure(cfg.LogConfig(stderr))
	logger := log.WithComponent("cli")

	runnerOpts := []core.Option{
		core.WithMaxSteps(cfg.MaxSteps),
		core.WithConcurrency(cfg.BatchConcurrency),
		core.WithTrace(cfg.Trace),
		core.WithVisualizer(&production.DefaultVisualizer{}),
		core.WithRegistry(production.NewMemoryRegistry(1000)),
	}
	if cfg.Records.Dir != "" {
		p, err := production.NewPersister(cfg.Records.Format, cfg.Records.Dir)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		runnerOpts = append(runnerOpts, core.WithPersister(p))
	}

	if opts.serve {
		reg := prometheus.NewRegistry()
		runner := core.NewRunner(append(runnerOpts, core.WithMetrics(production.NewPromMetrics(reg)))...)
		defer runner.Close()

		h := server.NewRouter(server.Config{
			Runner:     runner,
			Visualizer: &production.DefaultVisualizer{},
			Gatherer:   reg,
			RateLimit:  cfg.Server.RateLimit,
			RateWindow: cfg.Server.RateWindow,
		})
		logger.Info().Str("listen", cfg.Server.Listen).Str("version", Version).Msg("serving")
		if err := server.ListenAndServe(ctx, cfg.Server.Listen, h); err != nil {
			fmt.Fprintf(stderr, "Server error: %v\n", err)
			return 1
		}
		return 0
	}

	req := core.Request{Name: "addition", Table: tables.Addition(), Tape: tables.SampleTape()}
	if opts.requestPath != "" {
		req, err = loadRequest(opts.requestPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	runner := core.NewRunner(runnerOpts...)
	defer runner.Close()

	rec, err := runner.Run(ctx, req)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, rec.Output)
	if opts.dot {
		fmt.Fprint(stdout, runner.Visualize(rec.Table, nil, rec.State))
	}
	logger.Debug().
		Str(log.FieldRunID, rec.ID).
		Int(log.FieldSteps, rec.Steps).
		Str(log.FieldStatus, rec.Status.String()).
		Msg("run complete")
	return 0
}

func parseFlags(args []string, stderr io.Writer) (options, map[string]bool, error) {
	var opts options
	fs := flag.NewFlagSet("tapemachine", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", "", "path to YAML configuration file")
	fs.StringVar(&opts.requestPath, "request", "", "path to a JSON or YAML run request (default: addition demo)")
	fs.IntVar(&opts.maxSteps, "max-steps", 0, "step ceiling; <= 0 disables it (overrides config)")
	fs.BoolVar(&opts.trace, "trace", false, "log every state change")
	fs.StringVar(&opts.recordDir, "record-dir", "", "directory for run records (overrides config)")
	fs.StringVar(&opts.format, "format", "", "record format: json or yaml (overrides config)")
	fs.BoolVar(&opts.dot, "dot", false, "print the table as Graphviz DOT after the run")
	fs.BoolVar(&opts.serve, "serve", false, "serve the HTTP API instead of running once")
	fs.BoolVar(&opts.showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return opts, nil, err
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "Error: unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		fs.Usage()
		return opts, nil, fmt.Errorf("unexpected arguments")
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["format"] && opts.format != "json" && opts.format != "yaml" {
		fmt.Fprintf(stderr, "Error: -format must be json or yaml (got %q)\n", opts.format)
		fs.Usage()
		return opts, nil, fmt.Errorf("invalid -format")
	}
	return opts, set, nil
}

// applyFlags lets explicitly set flags override the loaded configuration.
func applyFlags(cfg *config.Config, opts options, set map[string]bool) {
	if set["max-steps"] {
		cfg.MaxSteps = opts.maxSteps
	}
	if set["trace"] {
		cfg.Trace = opts.trace
	}
	if set["record-dir"] {
		cfg.Records.Dir = opts.recordDir
	}
	if set["format"] {
		cfg.Records.Format = opts.format
	}
	// State changes are logged at debug.
	if cfg.Trace && (cfg.LogLevel == "" || cfg.LogLevel == "info") {
		cfg.LogLevel = "debug"
	}
}

// loadRequest decodes a request file; .yaml and .yml are YAML, anything else JSON.
func loadRequest(path string) (core.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Request{}, fmt.Errorf("read request: %w", err)
	}

	var req core.Request
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &req)
	default:
		err = json.Unmarshal(data, &req)
	}
	if err != nil {
		return core.Request{}, fmt.Errorf("parse request %s: %w", path, err)
	}
	if err := tables.Validate(req.Table); err != nil {
		return core.Request{}, fmt.Errorf("request %s: %w", path, err)
	}
	if err := tables.ValidateTape(req.Tape); err != nil {
		return core.Request{}, fmt.Errorf("request %s: %w", path, err)
	}
	return req, nil
}
