// Command sart runs the Sustained Attention to Response Task in a terminal.
// Each line read from stdin is one press.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"

	service "github.com/ndh707/sart/internal/app"
	"github.com/ndh707/sart/internal/config"
	"github.com/ndh707/sart/internal/domain/model"
	"github.com/ndh707/sart/internal/engine"
	"github.com/ndh707/sart/internal/participant"
	"github.com/ndh707/sart/internal/report"
	"github.com/ndh707/sart/pkg/logger"
	"github.com/ndh707/sart/pkg/metrics"
)

const (
	shutdownTimeout  = 5 * time.Second
	debugInterval    = 50 * time.Millisecond
	defaultBreakTime = 2 * time.Second
)

// cliOptions are the settings that only make sense on the command line.
type cliOptions struct {
	simulate     bool
	debug        bool
	dumpMetrics  bool
	format       string
	breakBetween time.Duration
}

func main() {
	// Logs go to stderr so the task display on stdout stays readable.
	if err := logger.InitWithWriter(os.Stderr); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env), then flags.
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	opts, err := parseFlags(os.Args[1:], cfg, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	if opts.dumpMetrics {
		metrics.GetRegistry().MustRegister(collectors.NewGoCollector())
	}

	if err := run(ctx, cfg, opts, os.Stdin, os.Stdout, os.Stderr); err != nil {
		log.Error(ctx, "sart failed", logger.Error(err))
		os.Exit(1)
	}
}

// parseFlags binds flags onto the loaded configuration so that only flags the
// user passed override it.
func parseFlags(args []string, cfg *config.Config, errOut io.Writer) (cliOptions, error) {
	fs := flag.NewFlagSet("sart", flag.ContinueOnError)
	fs.SetOutput(errOut)

	opts := cliOptions{format: report.FormatText, breakBetween: defaultBreakTime}
	fs.BoolVar(&opts.simulate, "simulate", false, "Let a simulated participant respond")
	fs.BoolVar(&opts.debug, "debug", false, "Print the engine phase and remaining time to stderr")
	fs.BoolVar(&opts.dumpMetrics, "metrics", false, "Dump Prometheus metrics to stderr on exit")
	fs.StringVar(&opts.format, "format", opts.format, "Results format: text or yaml")
	fs.DurationVar(&opts.breakBetween, "break", opts.breakBetween, "Pause between runs in simulate mode")

	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Sequence seed (0 picks one)")
	fs.IntVar(&cfg.Trials, "trials", cfg.Trials, "Trials per run")
	fs.Float64Var(&cfg.TargetProbability, "p", cfg.TargetProbability, "Target probability")
	fs.StringVar(&cfg.TargetDigit, "target", cfg.TargetDigit, "Target digit")
	fs.IntVar(&cfg.StimulusDurationMS, "stimulus-ms", cfg.StimulusDurationMS, "Stimulus duration in ms")
	fs.IntVar(&cfg.ISIMS, "isi-ms", cfg.ISIMS, "Inter-stimulus interval in ms")
	fs.IntVar(&cfg.FeedbackDurationMS, "feedback-ms", cfg.FeedbackDurationMS, "Error feedback duration in ms")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	if opts.format != report.FormatText && opts.format != report.FormatYAML {
		fmt.Fprintf(errOut, "unknown -format %q\n", opts.format)
		return cliOptions{}, report.ErrUnknownFormat
	}
	return opts, nil
}

type responderFunc func(ctx context.Context, ev model.ResponseEvent) (model.Attribution, error)

func (f responderFunc) Respond(ctx context.Context, ev model.ResponseEvent) (model.Attribution, error) {
	return f(ctx, ev)
}

// run plays both runs and prints the results.
func run(ctx context.Context, cfg *config.Config, opts cliOptions, in io.Reader, out, errOut io.Writer) error {
	task, err := cfg.TaskConfig()
	if err != nil {
		return err
	}
	log := logger.Get().Named("cli")

	var svc *service.Service
	svcOpts := []service.Option{
		service.WithTaskConfig(task),
		service.WithSeed(cfg.Seed),
		service.WithQueueSize(cfg.QueueSize),
		service.WithLogger(log),
		service.WithObserver(newDisplay(out)),
	}
	if opts.simulate {
		simOpts := []participant.Option{
			participant.WithTargetDigit(task.TargetDigit),
			participant.WithGoLatency(time.Duration(cfg.SimGoLatencyMS) * time.Millisecond),
			participant.WithOmissionRate(cfg.SimOmissionRate),
			participant.WithCommissionRate(cfg.SimCommissionRate),
		}
		if cfg.Seed != 0 {
			simOpts = append(simOpts, participant.WithSeed(cfg.Seed))
		}
		sim := participant.New(responderFunc(func(ctx context.Context, ev model.ResponseEvent) (model.Attribution, error) {
			return svc.Respond(ctx, ev)
		}), simOpts...)
		svcOpts = append(svcOpts, service.WithObserver(sim))
	}

	svc = service.New(svcOpts...)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	stopService := func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(sctx); err != nil {
			log.Warn(sctx, "service stop failed", logger.Error(err))
		}
	}
	defer stopService()

	if opts.debug {
		go debugReadout(ctx, svc, errOut)
	}

	var lines <-chan struct{}
	if !opts.simulate {
		lines = readLines(ctx, in)
	}

	err = playRuns(ctx, svc, opts, lines, out)
	switch {
	case errors.Is(err, context.Canceled):
		log.Info(ctx, "interrupted")
	case errors.Is(err, errInputClosed):
		log.Info(ctx, "input closed")
	case err != nil:
		return err
	}

	// Stopping aborts a run cut short so it still reaches the results.
	stopService()
	res, err := svc.Results()
	if errors.Is(err, service.ErrResultsMissing) {
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	if err := report.Write(out, opts.format, res); err != nil {
		return err
	}

	if opts.dumpMetrics {
		return metrics.WriteText(errOut, metrics.GetRegistry())
	}
	return nil
}

func playRuns(ctx context.Context, svc *service.Service, opts cliOptions, lines <-chan struct{}, out io.Writer) error {
	for i, id := range []model.RunID{model.RunOne, model.RunTwo} {
		if i > 0 {
			fmt.Fprint(out, "\nTake a short break.")
		}
		if lines != nil {
			fmt.Fprintf(out, "\nPress Enter to start run %d. Press Enter on every digit except %s.\n", id, svc.TaskConfig().TargetDigit)
			if err := waitLine(ctx, lines); err != nil {
				return err
			}
		} else if i > 0 {
			if err := sleep(ctx, opts.breakBetween); err != nil {
				return err
			}
		}

		if err := playRun(ctx, svc, id, lines); err != nil {
			return err
		}
	}
	return nil
}

func playRun(ctx context.Context, svc *service.Service, id model.RunID, lines <-chan struct{}) error {
	if err := svc.BeginRun(ctx, id); err != nil {
		return fmt.Errorf("begin run %d: %w", id, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if lines != nil {
		go forwardPresses(runCtx, svc, lines)
	}

	_, err := svc.Wait(ctx, id)
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// debugReadout mirrors the engine phase and remaining time until ctx ends.
func debugReadout(ctx context.Context, svc *service.Service, w io.Writer) {
	ticker := time.NewTicker(debugInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			fmt.Fprint(w, formatSnapshot(svc.Snapshot(), now))
		}
	}
}

func formatSnapshot(s engine.Snapshot, now time.Time) string {
	remaining := "-"
	if !s.DeadlineAt.IsZero() {
		remaining = fmt.Sprintf("%dms", s.Remaining(now).Milliseconds())
	}
	return fmt.Sprintf("\rphase: %s | remaining: %s   ", s.Phase, remaining)
}
