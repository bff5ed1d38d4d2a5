// Package main provides the entry point for rvsim.
// rvsim is a cycle-accurate 5-stage RV32 pipeline simulator.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/report"
	"github.com/sarchlab/rvsim/timing/config"
	"github.com/sarchlab/rvsim/timing/core"
	"github.com/sarchlab/rvsim/timing/pipeline"
	"github.com/sarchlab/rvsim/translate"
)

var f = translate.From

var errUsage = errors.New("usage")

type options struct {
	configPath string
	forward    bool
	emulate    bool
	trace      bool
	state      bool
	verbose    bool
	logPath    string
	outPath    string
	policy     string
	allRegs    bool

	programPath string
	cycles      int
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, cfg, err := parseArgs(args, stderr)
	if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
		return 1
	}
	if err != nil {
		fmt.Fprintln(stderr, f("Error: %v", err))
		return 1
	}

	logger, closeLog, err := newLogger(opts, stderr)
	if err != nil {
		fmt.Fprintln(stderr, f("Error: %v", err))
		return 1
	}
	defer closeLog()

	out := stdout
	if opts.outPath != "" {
		file, err := os.Create(opts.outPath)
		if err != nil {
			fmt.Fprintln(stderr, f("Error creating output file: %v", err))
			return 1
		}
		defer func() { _ = file.Close() }()
		out = file
	}

	prog, err := loader.Load(opts.programPath)
	if err != nil {
		fmt.Fprintln(stderr, f("Error loading program: %v", err))
		return 1
	}
	logger.Debug("program loaded", "path", opts.programPath, "words", prog.Len())

	if opts.emulate {
		err = runEmulation(prog, cfg, opts, logger, out)
	} else {
		err = runTiming(prog, cfg, opts, logger, out)
	}
	if err != nil {
		fmt.Fprintln(stderr, f("Error: %v", err))
		return 1
	}

	return 0
}

func parseArgs(args []string, stderr io.Writer) (*options, *config.Config, error) {
	opts := &options{}

	fs := flag.NewFlagSet("rvsim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to simulation configuration JSON file")
	fs.BoolVar(&opts.forward, "forward", false, "Enable operand forwarding")
	fs.BoolVar(&opts.emulate, "emu", false, "Run the functional emulator instead of the pipeline")
	fs.BoolVar(&opts.trace, "trace", false, "Print every stage event as it happens")
	fs.BoolVar(&opts.state, "state", false, "Print the pipeline registers after every cycle")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose diagnostics")
	fs.StringVar(&opts.logPath, "log", "", "Write diagnostics to this file instead of stderr")
	fs.StringVar(&opts.outPath, "o", "", "Write the report to this file instead of stdout")
	fs.StringVar(&opts.policy, "policy", "", "Out-of-range memory policy: ignore or fault")
	fs.BoolVar(&opts.allRegs, "regs", false, "Print all registers, not only nonzero ones")
	fs.Usage = func() {
		fmt.Fprintln(stderr, f("Usage: rvsim [options] <program> [cycles] [forward]"))
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, f("Options:"))
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	if fs.NArg() < 1 || fs.NArg() > 3 {
		fs.Usage()
		return nil, nil, errUsage
	}
	opts.programPath = fs.Arg(0)

	cfg := config.DefaultConfig()
	if opts.configPath != "" {
		var err error
		cfg, err = config.LoadConfig(opts.configPath)
		if err != nil {
			return nil, nil, err
		}
	}

	if fs.NArg() > 1 {
		cycles, err := strconv.Atoi(fs.Arg(1))
		if err != nil {
			return nil, nil, errors.New(f("invalid cycle count %q", fs.Arg(1)))
		}
		cfg.Cycles = cycles
	}
	if fs.NArg() > 2 {
		if fs.Arg(2) != "forward" {
			return nil, nil, errors.New(f("unknown mode %q", fs.Arg(2)))
		}
		opts.forward = true
	}

	if opts.forward {
		cfg.Forwarding = true
	}
	if opts.policy != "" {
		cfg.MemoryPolicy = opts.policy
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return opts, cfg, nil
}

func newLogger(opts *options, stderr io.Writer) (*slog.Logger, func(), error) {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}

	w := stderr
	closeLog := func() {}
	if opts.logPath != "" {
		file, err := os.Create(opts.logPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create log file: %w", err)
		}
		w = file
		closeLog = func() { _ = file.Close() }
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler), closeLog, nil
}

// runEmulation runs the program in functional emulation mode. The cycle
// count bounds the number of executed instructions.
func runEmulation(
	prog *loader.Program,
	cfg *config.Config,
	opts *options,
	logger *slog.Logger,
	out io.Writer,
) error {
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	emulator := emu.NewEmulator(prog.Words,
		emu.WithLogger(logger),
		emu.WithMemoryPolicy(policy),
	)

	steps, err := emulator.Run(uint64(cfg.Cycles))

	fmt.Fprintf(out, "Program: %s\n", opts.programPath)
	fmt.Fprintf(out, "Instructions executed: %d\n", steps)
	fmt.Fprintf(out, "Memory faults: %d\n", emulator.MemFaults())
	fmt.Fprintln(out)
	if werr := report.WriteRegisters(out, emulator.RegFile().Snapshot(), opts.allRegs); werr != nil {
		return werr
	}

	return err
}

// runTiming runs the program on the pipeline and prints the trace table,
// final registers and statistics.
func runTiming(
	prog *loader.Program,
	cfg *config.Config,
	opts *options,
	logger *slog.Logger,
	out io.Writer,
) error {
	pipeOpts := []pipeline.PipelineOption{pipeline.WithLogger(logger)}
	if opts.trace {
		pipeOpts = append(pipeOpts, pipeline.WithHook(&tracer{w: out}))
	}

	c, err := core.NewCore(prog.Words, prog.Labels, cfg, pipeOpts...)
	if err != nil {
		return err
	}

	if opts.state {
		for !c.Pipeline.Done() {
			c.Tick()
			fmt.Fprintf(out, "\nCycle %d:\n", c.Pipeline.Cycle())
			if err := report.WriteLatches(out, c.Pipeline); err != nil {
				return err
			}
		}
	} else {
		_ = c.Run()
	}

	fmt.Fprintf(out, "\nProgram: %s\n", opts.programPath)
	fmt.Fprintf(out, "Forwarding: %t\n\n", cfg.Forwarding)
	if err := report.WriteTrace(out, c.Log()); err != nil {
		return err
	}
	fmt.Fprintln(out)
	if err := report.WriteRegisters(out, c.Pipeline.Registers(), opts.allRegs); err != nil {
		return err
	}
	fmt.Fprintln(out)
	stats := c.Stats()
	if err := report.WriteStats(out, report.StatsInput{
		Stats:            stats.Statistics,
		SimulatedSeconds: stats.SimulatedSeconds,
	}); err != nil {
		return err
	}

	return c.Err()
}

// tracer prints stage events as the pipeline produces them.
type tracer struct {
	w io.Writer
}

func (t *tracer) Func(ctx sim.HookCtx) {
	ev, ok := ctx.Item.(pipeline.StageEvent)
	if !ok {
		return
	}
	fmt.Fprintf(t.w, "cycle %d: %-3s pc=0x%04x %s\n", ev.Cycle+1, ev.Stage, ev.PC, ev.Inst)
}
