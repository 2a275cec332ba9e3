// Copyright The statprof Authors
// SPDX-License-Identifier: Apache-2.0

// statprof profiles a synthetic CPU-bound workload and prints the resulting
// report, serving as a demo driver and a smoke test for the profiler.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/peterbourgon/ff/v3"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/statprof-dev/statprof"
	"github.com/statprof-dev/statprof/periodiccaller"
	"github.com/statprof-dev/statprof/report"
)

const (
	defaultFrequency = 100
	defaultDuration  = 2 * time.Second
)

// Help strings for command line arguments.
var (
	frequencyHelp = "Sampling frequency in Hz."
	durationHelp  = "How long to run the synthetic workload."
	formatHelp    = "Report format, one of 'line' or 'method'."
	noiseHelp     = "Number of unprofiled background goroutines to run."
	verboseHelp   = "Enable verbose logging."
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("Failed: %v", err)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("statprof", flag.ExitOnError)
	frequency := fs.Int("frequency", defaultFrequency, frequencyHelp)
	duration := fs.Duration("duration", defaultDuration, durationHelp)
	formatName := fs.String("format", "line", formatHelp)
	noise := fs.Int("noise", 2, noiseHelp)
	verbose := fs.Bool("verbose", false, verboseHelp)

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("STATPROF")); err != nil {
		return fmt.Errorf("failed to parse arguments: %w", err)
	}
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	format, err := parseFormat(*formatName)
	if err != nil {
		return err
	}

	p, err := statprof.New(statprof.WithFrequency(*frequency))
	if err != nil {
		return fmt.Errorf("failed to create profiler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Unprofiled background load demonstrates that sampling is confined to
	// the goroutine that started the profiler.
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < *noise; i++ {
		g.Go(func() error {
			backgroundNoise(ctx)
			return nil
		})
	}

	stopProgress := periodiccaller.Start(ctx, time.Second, func() {
		log.Info("Workload running...")
	})
	defer stopProgress()

	log.Infof("Profiling %v of synthetic load at %d Hz", *duration, *frequency)
	err = p.Profile(os.Stdout, format, func() error {
		workload(*duration)
		return nil
	})

	cancel()
	_ = g.Wait()
	return err
}

func parseFormat(name string) (report.Format, error) {
	switch name {
	case "line":
		return statprof.ByLine, nil
	case "method":
		return statprof.ByMethod, nil
	default:
		return 0, fmt.Errorf("unknown report format %q", name)
	}
}

// workload burns CPU in a fixed call chain so that the report has a known
// shape: funcC dominates self time, funcA dominates cumulative time.
func workload(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		funcA(1000)
	}
}

func funcA(n int) int {
	return funcB(n) + 1
}

func funcB(n int) int {
	return funcC(n) * 2
}

func funcC(n int) int {
	sum := 0
	for i := 1; i <= n; i++ {
		sum += (sum + i) % 7919
	}
	return sum
}

func backgroundNoise(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			funcC(100)
		}
	}
}
