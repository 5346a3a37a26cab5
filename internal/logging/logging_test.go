package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/tractfilter/internal/logging"
	"github.com/askiada/tractfilter/internal/pipeline/model"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		in   string
		want slog.Level
	}{
		"debug":   {in: "debug", want: slog.LevelDebug},
		"upper":   {in: "WARN", want: slog.LevelWarn},
		"warning": {in: "warning", want: slog.LevelWarn},
		"error":   {in: "error", want: slog.LevelError},
		"unknown": {in: "verbose", want: slog.LevelInfo},
		"empty":   {in: "", want: slog.LevelInfo},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, logging.ParseLevel(tc.in))
		})
	}
}

func TestNewJSONRenamesErrorKey(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := logging.New("info", "json", buf)

	logger.Debug("hidden")
	logger.Error("tool failed", slog.Any("error", assert.AnError))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "tool failed", entry["msg"])
	assert.Equal(t, assert.AnError.Error(), entry["err"])
	assert.NotContains(t, entry, "error")
}

func TestNewText(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := logging.New("debug", "text", buf)
	logger.Debug("Endpoint file", slog.String("path", "CST_L_ICPED_ep.tck"))

	assert.Contains(t, buf.String(), "path=CST_L_ICPED_ep.tck")
}

func TestContext(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.Default(), logging.FromContext(context.Background()))

	logger := logging.NewNop()
	ctx := logging.WithLogger(context.Background(), logger)
	assert.Same(t, logger, logging.FromContext(ctx))
}

func TestPipelineLogger(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	opt := logging.PipelineLogger(logging.New("debug", "text", buf))

	require.NoError(t, opt.PrepareStep(&model.StepInfo{Name: "discover"}, &model.StepInfo{Name: "count", Type: model.NormalStepType}))
	require.NoError(t, opt.PrepareMerger([]*model.StepInfo{{Name: "include"}, {Name: "inverse"}}, &model.StepInfo{Name: "merge"}))
	require.NoError(t, opt.AfterSink(&model.StepInfo{Name: "collect"}, time.Second))

	out := buf.String()
	assert.Contains(t, out, "step=count")
	assert.Contains(t, out, "parent=discover")
	assert.Contains(t, out, "step=merge")
	assert.Contains(t, out, "sink drained")
}
