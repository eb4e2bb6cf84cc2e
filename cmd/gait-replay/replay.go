package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"path/filepath"
	"strings"

	"github.com/banshee-data/gait.report/internal/config"
	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/gait/l1landmarks"
	"github.com/banshee-data/gait.report/internal/gait/l6sessions"
	"github.com/banshee-data/gait.report/internal/gait/pipeline"
	"github.com/banshee-data/gait.report/internal/gait/report"
	"github.com/banshee-data/gait.report/internal/timeutil"
)

// replayer runs recorded landmark streams through the pipeline and writes
// the session outputs next to each other in outDir.
type replayer struct {
	fs     fsutil.FileSystem
	tuning *config.TuningConfig
	clock  timeutil.Clock
	outDir string

	frames bool // write <name>.frames.jsonl
	html   bool // write <name>.timeline.html
	png    bool // write <name>.angles.png
}

// result describes one replayed input.
type result struct {
	Input   string
	Outputs []string
	Summary l6sessions.Summary
}

// sessionName derives the output base name from an input path.
func sessionName(path string) string {
	base := filepath.Base(path)
	for _, ext := range []string{".jsonl", ".ndjson", ".json"} {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext)
		}
	}
	return base
}

// decodedFrames adapts a decoder to a plain frame sequence. A decode error
// ends the sequence and is stored in errp.
func decodedFrames(dec *l1landmarks.Decoder, errp *error) iter.Seq[l1landmarks.Frame] {
	return func(yield func(l1landmarks.Frame) bool) {
		for f, err := range dec.All() {
			if err != nil {
				*errp = err
				return
			}
			if !yield(f) {
				return
			}
		}
	}
}

// replay processes one input file.
func (r *replayer) replay(ctx context.Context, input string) (result, error) {
	name := sessionName(input)
	res := result{Input: input}

	in, err := r.fs.Open(input)
	if err != nil {
		return res, fmt.Errorf("open %s: %w", input, err)
	}
	defer in.Close()

	p := pipeline.New(pipeline.Config{Tuning: r.tuning, Clock: r.clock, SessionID: name})

	var decodeErr error
	var recs []pipeline.FrameRecord
	for rec, err := range p.Run(ctx, decodedFrames(l1landmarks.NewDecoder(in), &decodeErr)) {
		if err != nil {
			return res, fmt.Errorf("%s: %w", input, err)
		}
		recs = append(recs, rec)
	}
	if decodeErr != nil {
		return res, fmt.Errorf("%s: %w", input, decodeErr)
	}
	res.Summary = p.Finalize()

	if err := r.fs.MkdirAll(r.outDir, 0o755); err != nil {
		return res, fmt.Errorf("create output dir: %w", err)
	}

	outputs := []struct {
		enabled bool
		suffix  string
		write   func(io.Writer) error
	}{
		{true, ".summary.json", func(w io.Writer) error { return writeJSON(w, res.Summary) }},
		{r.frames, ".frames.jsonl", func(w io.Writer) error { return writeJSONLines(w, recs) }},
		{r.html, ".timeline.html", func(w io.Writer) error { return report.WriteTimelineHTML(w, recs, res.Summary) }},
		{r.png, ".angles.png", func(w io.Writer) error { return report.WriteAnglePlot(w, recs) }},
	}
	for _, out := range outputs {
		if !out.enabled {
			continue
		}
		path := filepath.Join(r.outDir, name+out.suffix)
		if err := r.writeFile(path, out.write); err != nil {
			return res, err
		}
		res.Outputs = append(res.Outputs, path)
	}
	return res, nil
}

func (r *replayer) writeFile(path string, write func(io.Writer) error) error {
	w, err := r.fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(w); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSONLines(w io.Writer, recs []pipeline.FrameRecord) error {
	enc := json.NewEncoder(w)
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}
