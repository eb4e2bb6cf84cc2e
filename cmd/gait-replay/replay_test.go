package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gait.report/internal/config"
	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/gait/l1landmarks"
	"github.com/banshee-data/gait.report/internal/gait/l5strikes"
	"github.com/banshee-data/gait.report/internal/gait/l6sessions"
	"github.com/banshee-data/gait.report/internal/gait/pipeline"
	"github.com/banshee-data/gait.report/internal/testutil"
	"github.com/banshee-data/gait.report/internal/timeutil"
)

func encodeFrames(t *testing.T, frames []l1landmarks.Frame) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, f := range frames {
		require.NoError(t, enc.Encode(f))
	}
	return buf.Bytes()
}

func newTestReplayer(mfs *fsutil.MemoryFileSystem) *replayer {
	return &replayer{
		fs:     mfs,
		tuning: config.EmptyTuningConfig(),
		clock:  timeutil.NewMockClock(time.Unix(0, 0)),
		outDir: "/out",
	}
}

func TestSessionName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"/data/run-01.jsonl": "run-01",
		"walk.ndjson":        "walk",
		"a/b/c.json":         "c",
		"plain":              "plain",
	}
	for in, want := range tests {
		assert.Equal(t, want, sessionName(in), in)
	}
}

func TestReplayWritesSummary(t *testing.T) {
	t.Parallel()

	mfs := fsutil.NewMemoryFileSystem()
	mfs.AddFile("/data/run.jsonl", encodeFrames(t, testutil.Stride(testutil.DefaultStride())))

	res, err := newTestReplayer(mfs).replay(context.Background(), "/data/run.jsonl")
	require.NoError(t, err)
	assert.Equal(t, []string{"/out/run.summary.json"}, res.Outputs)
	assert.Equal(t, 90, res.Summary.TotalFrames)
	assert.Equal(t, "run", res.Summary.SessionID)

	data, err := mfs.ReadFile("/out/run.summary.json")
	require.NoError(t, err)
	var got l6sessions.Summary
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, l5strikes.Heel, got.DominantStrike)
	require.Len(t, got.Cycles, 1)
	assert.Equal(t, int64(32), got.Cycles[0].StartFrame)
	assert.Equal(t, int64(64), got.Cycles[0].EndFrame)
}

func TestReplayWritesOptionalOutputs(t *testing.T) {
	t.Parallel()

	mfs := fsutil.NewMemoryFileSystem()
	mfs.AddFile("/data/run.jsonl", encodeFrames(t, testutil.Stride(testutil.DefaultStride())))
	r := newTestReplayer(mfs)
	r.frames, r.html, r.png = true, true, true

	res, err := r.replay(context.Background(), "/data/run.jsonl")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/out/run.summary.json",
		"/out/run.frames.jsonl",
		"/out/run.timeline.html",
		"/out/run.angles.png",
	}, res.Outputs)

	frames, err := mfs.ReadFile("/out/run.frames.jsonl")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(frames)), "\n")
	require.Len(t, lines, 90)
	var first pipeline.FrameRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, int64(0), first.Index)

	html, err := mfs.ReadFile("/out/run.timeline.html")
	require.NoError(t, err)
	assert.Contains(t, string(html), "Foot vertical velocity")

	png, err := mfs.ReadFile("/out/run.angles.png")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestReplayErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing input", func(t *testing.T) {
		t.Parallel()
		_, err := newTestReplayer(fsutil.NewMemoryFileSystem()).replay(context.Background(), "/nope.jsonl")
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("malformed line", func(t *testing.T) {
		t.Parallel()
		mfs := fsutil.NewMemoryFileSystem()
		frames := testutil.Stride(testutil.DefaultStride())[:5]
		mfs.AddFile("/bad.jsonl", append(encodeFrames(t, frames), []byte("{not json\n")...))
		_, err := newTestReplayer(mfs).replay(context.Background(), "/bad.jsonl")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 6")
		assert.Empty(t, mfs.Files()[1:], "no outputs for a failed replay")
	})

	t.Run("non-monotonic timestamps", func(t *testing.T) {
		t.Parallel()
		mfs := fsutil.NewMemoryFileSystem()
		frames := testutil.Stride(testutil.DefaultStride())[:10]
		frames[6].Timestamp = frames[4].Timestamp
		mfs.AddFile("/jump.jsonl", encodeFrames(t, frames))
		_, err := newTestReplayer(mfs).replay(context.Background(), "/jump.jsonl")
		assert.ErrorIs(t, err, pipeline.ErrNonMonotonicTimestamp)
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()
		mfs := fsutil.NewMemoryFileSystem()
		mfs.AddFile("/run.jsonl", encodeFrames(t, testutil.Stride(testutil.DefaultStride())))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newTestReplayer(mfs).replay(ctx, "/run.jsonl")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestReplayOutputDirBlocked(t *testing.T) {
	t.Parallel()

	mfs := fsutil.NewMemoryFileSystem()
	mfs.AddFile("/run.jsonl", encodeFrames(t, testutil.Stride(testutil.DefaultStride())[:3]))
	mfs.AddFile("/out", nil)

	_, err := newTestReplayer(mfs).replay(context.Background(), "/run.jsonl")
	assert.True(t, errors.Is(err, fs.ErrExist), "got %v", err)
}

func TestLoadTuning(t *testing.T) {
	t.Parallel()

	cfg, err := loadTuning("", "")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultTuningConfig().GetPreset(), cfg.GetPreset())

	name := config.PresetNames()[0]
	cfg, err = loadTuning("", name)
	require.NoError(t, err)
	assert.Equal(t, name, cfg.GetPreset())

	_, err = loadTuning("", "no-such-preset")
	assert.ErrorIs(t, err, config.ErrUnknownPreset)

	path := filepath.Join(t.TempDir(), "tuning.json")
	_, err = loadTuning(path, "")
	assert.Error(t, err, "missing config file")

	// The defaults file pins every preset-governed field, so the preset
	// only changes the name.
	cfg, err = loadTuning(filepath.Join("..", "..", config.DefaultConfigPath), config.PresetQuick)
	require.NoError(t, err)
	assert.Equal(t, config.PresetQuick, cfg.GetPreset())
	assert.Len(t, cfg.PresetOverrides(), 4)
	assert.Equal(t, config.DefaultTuningConfig().GetSmoothingWindow(), cfg.GetSmoothingWindow())

	cfg, err = loadTuning("", config.PresetQuick)
	require.NoError(t, err)
	assert.Empty(t, cfg.PresetOverrides())
	assert.Equal(t, 3, cfg.GetSmoothingWindow())
}
