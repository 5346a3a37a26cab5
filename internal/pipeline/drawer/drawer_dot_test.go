package drawer_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/tractfilter/internal/pipeline/drawer"
	"github.com/askiada/tractfilter/internal/pipeline/measure"
)

func TestDOTDrawer(t *testing.T) {
	t.Parallel()

	d := drawer.NewDOTDrawer(filepath.Join(t.TempDir(), "graph.gv"))

	require.NoError(t, d.AddStep("discover"))
	require.NoError(t, d.AddStep("count"))
	require.NoError(t, d.AddStep("count"))
	require.NoError(t, d.AddLink("discover", "count"))
	require.NoError(t, d.AddLink("discover", "count"))

	buf := &bytes.Buffer{}
	require.NoError(t, d.WriteTo(buf))

	assert.Contains(t, buf.String(), "strict digraph")
	assert.Contains(t, buf.String(), `"discover" -> "count"`)
}

func TestDOTDrawerUnknownStep(t *testing.T) {
	t.Parallel()

	d := drawer.NewDOTDrawer(filepath.Join(t.TempDir(), "graph.gv"))
	require.NoError(t, d.AddStep("discover"))

	assert.Error(t, d.AddLink("discover", "missing"))
	assert.Error(t, d.SetTotalTime("missing", time.Now()))
}

func TestDOTDrawerMeasure(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "graph.gv")
	d := drawer.NewDOTDrawer(path)

	require.NoError(t, d.AddStep("resample"))
	require.NoError(t, d.AddStep("count"))
	require.NoError(t, d.AddLink("resample", "count"))

	msr := measure.NewDefaultMeasure()
	mt := msr.AddMetric("count", 1)
	mt.AddDuration(2 * time.Millisecond)
	mt.AddTransportDuration("resample", 3*time.Millisecond)
	msr.AddMetric("never drawn", 1).AddDuration(time.Second)

	require.NoError(t, d.AddMeasure(msr))
	require.NoError(t, d.SetTotalTime("resample", time.Now().Add(-time.Second)))
	require.NoError(t, d.Draw())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "2ms")
	assert.Contains(t, string(content), `label="3ms"`)
	assert.Contains(t, string(content), "#")
}
