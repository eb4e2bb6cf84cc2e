// Command gait-replay runs recorded pose-landmark streams (JSON Lines, one
// frame per line) through the gait pipeline and writes a session summary
// per input, optionally with frame records and HTML/PNG reports.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/gait.report/internal/config"
	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/gait/pipeline"
	"github.com/banshee-data/gait.report/internal/timeutil"
	"github.com/banshee-data/gait.report/internal/version"
)

var (
	configPath  = flag.String("config", "", "Tuning config JSON (default: built-in defaults)")
	preset      = flag.String("preset", "", "Override the tuning preset ("+strings.Join(config.PresetNames(), ", ")+"); fields set in -config still win")
	outDir      = flag.String("out", "out", "Output directory")
	writeFrames = flag.Bool("frames", false, "Write per-frame records as <name>.frames.jsonl")
	writeHTML   = flag.Bool("html", false, "Write an HTML timeline as <name>.timeline.html")
	writePNG    = flag.Bool("png", false, "Write a joint-angle plot as <name>.angles.png")
	jobs        = flag.Int("j", 4, "Number of inputs replayed concurrently")
	logOps      = flag.Bool("log-ops", true, "Log rejected frames")
	logDiag     = flag.Bool("log-diag", false, "Log latency overruns and dropped cycles")
	logTrace    = flag.Bool("log-trace", false, "Log every phase transition")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// loadTuning resolves the -config and -preset flags. The preset only fills
// the fields the config file leaves unset.
func loadTuning(path, presetName string) (*config.TuningConfig, error) {
	cfg := config.EmptyTuningConfig()
	if path != "" {
		var err error
		if cfg, err = config.LoadTuningConfig(path); err != nil {
			return nil, err
		}
	}
	if presetName != "" {
		p, err := config.PresetTuningConfig(presetName)
		if err != nil {
			return nil, err
		}
		cfg.Preset = p.Preset
	}
	return cfg, nil
}

func writerIf(enabled bool, w io.Writer) io.Writer {
	if enabled {
		return w
	}
	return nil
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <landmarks.jsonl>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("gait-replay"))
		return
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	tuning, err := loadTuning(*configPath, *preset)
	if err != nil {
		log.Fatalf("failed to load tuning: %v", err)
	}
	if keys := tuning.PresetOverrides(); *preset != "" && len(keys) > 0 {
		log.Printf("warning: -preset %s ignored for %s (set in %s)", *preset, strings.Join(keys, ", "), *configPath)
	}
	pipeline.SetLogWriters(writerIf(*logOps, os.Stderr), writerIf(*logDiag, os.Stderr), writerIf(*logTrace, os.Stderr))

	r := &replayer{
		fs:     fsutil.OSFileSystem{},
		tuning: tuning,
		clock:  timeutil.RealClock{},
		outDir: *outDir,
		frames: *writeFrames,
		html:   *writeHTML,
		png:    *writePNG,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*jobs, 1))
	for _, input := range flag.Args() {
		g.Go(func() error {
			res, err := r.replay(gctx, input)
			if err != nil {
				return err
			}
			s := res.Summary
			log.Printf("%s: %d frames, detection %.0f%%, %d cycles, dominant %s (%.2f), cadence %.1f spm, p95 latency %.2fms",
				input, s.TotalFrames, 100*s.DetectionRate, len(s.Cycles), s.DominantStrike,
				s.DominantConfidence, s.CadenceSPM, s.Latency.P95Ms)
			for _, out := range res.Outputs {
				log.Printf("✓ Created: %s", out)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("replay failed: %v", err)
	}
}
