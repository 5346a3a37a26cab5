package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/tractfilter/internal/pipeline"
	"github.com/askiada/tractfilter/internal/pipeline/drawer"
	"github.com/askiada/tractfilter/internal/pipeline/measure"
)

func TestAddRootStep(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "root", pipeline.SliceRoot([]string{"a", "b", "c"}))
	require.NoError(t, err)

	col := &collector[string]{}
	require.NoError(t, pipeline.AddSink(pipe, "sink", root, col.sink))
	require.NoError(t, pipe.Run())
	assert.Equal(t, []string{"a", "b", "c"}, col.values())
}

func TestAddRootStepNilPipe(t *testing.T) {
	t.Parallel()

	_, err := pipeline.AddRootStep(nil, "root", pipeline.SliceRoot([]int{1}))
	assert.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)
}

func TestAddRootStepError(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "root", func(_ context.Context, _ chan<- int) error {
		return assert.AnError
	})
	require.NoError(t, err)

	col := &collector[int]{}
	require.NoError(t, pipeline.AddSink(pipe, "sink", root, col.sink))

	err = pipe.Run()
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "root")
}

func TestPipelineCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipe, err := pipeline.New(ctx)
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "endless", func(ctx context.Context, rootChan chan<- int) error {
		for i := 0; ; i++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rootChan <- i:
			}
		}
	})
	require.NoError(t, err)

	seen := 0
	err = pipeline.AddSink(pipe, "sink", root, func(_ context.Context, _ int) error {
		seen++
		if seen == 5 {
			cancel()
		}

		return nil
	})
	require.NoError(t, err)

	err = pipe.Run()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAddSplitter(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "root", pipeline.SliceRoot([]int{1, 2, 3, 4}))
	require.NoError(t, err)

	splitter, err := pipeline.AddSplitter(pipe, "split", root, 2, pipeline.SplitterBufferSize[int](2))
	require.NoError(t, err)

	cols := []*collector[int]{{}, {}}
	for i := range cols {
		branch, ok := splitter.Get()
		require.True(t, ok)
		require.NoError(t, pipeline.AddSink(pipe, "sink", branch, cols[i].sink))
	}

	_, ok := splitter.Get()
	assert.False(t, ok)

	require.NoError(t, pipe.Run())

	for _, col := range cols {
		assert.Equal(t, []int{1, 2, 3, 4}, col.values())
	}
}

func TestAddSplitterInvalidTotal(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "root", pipeline.SliceRoot([]int{1}))
	require.NoError(t, err)

	_, err = pipeline.AddSplitter(pipe, "split", root, 0)
	assert.ErrorIs(t, err, pipeline.ErrSplitterTotal)
}

func TestAddMerger(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	first, err := pipeline.AddRootStep(pipe, "first", pipeline.SliceRoot([]int{1, 2}))
	require.NoError(t, err)

	second, err := pipeline.AddRootStep(pipe, "second", pipeline.SliceRoot([]int{3, 4}))
	require.NoError(t, err)

	merged, err := pipeline.AddMerger(pipe, "merge", first, second)
	require.NoError(t, err)

	col := &collector[int]{}
	require.NoError(t, pipeline.AddSink(pipe, "sink", merged, col.sink))
	require.NoError(t, pipe.Run())
	assert.ElementsMatch(t, []int{1, 2, 3, 4}, col.values())
}

func TestAddMergerNoInput(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	_, err = pipeline.AddMerger[int](pipe, "merge")
	assert.ErrorIs(t, err, pipeline.ErrInputMustBeSet)
}

func TestAddSinkFromChan(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "root", pipeline.SliceRoot([]int{1, 2, 3}))
	require.NoError(t, err)

	sum := 0
	err = pipeline.AddSinkFromChan(pipe, "sum", root, func(_ context.Context, input <-chan int) error {
		for in := range input {
			sum += in
		}

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, pipe.Run())
	assert.Equal(t, 6, sum)
}

func TestCompletePipeline(t *testing.T) {
	t.Parallel()

	graphPath := filepath.Join(t.TempDir(), "pipeline.gv")
	msr := measure.NewDefaultMeasure()

	pipe, err := pipeline.New(context.Background(),
		measure.PipelineMeasure(msr),
		drawer.PipelineDrawer(drawer.NewDOTDrawer(graphPath), msr),
	)
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "root", pipeline.SliceRoot([]int{1, 2, 3}))
	require.NoError(t, err)

	splitter, err := pipeline.AddSplitter(pipe, "split", root, 2)
	require.NoError(t, err)

	branchA, _ := splitter.Get()
	plusOne, err := pipeline.AddStepOneToOne(pipe, "plus one", branchA, func(_ context.Context, in int) (int, error) {
		return in + 1, nil
	})
	require.NoError(t, err)

	branchB, _ := splitter.Get()
	timesTen, err := pipeline.AddStepOneToOne(pipe, "times ten", branchB, func(_ context.Context, in int) (int, error) {
		return in * 10, nil
	}, pipeline.StepConcurrency[int](2))
	require.NoError(t, err)

	merged, err := pipeline.AddMerger(pipe, "merge", plusOne, timesTen)
	require.NoError(t, err)

	col := &collector[int]{}
	require.NoError(t, pipeline.AddSink(pipe, "sink", merged, col.sink))
	require.NoError(t, pipe.Run())

	assert.ElementsMatch(t, []int{2, 3, 4, 10, 20, 30}, col.values())

	assert.Equal(t, int64(3), msr.GetMetric("plus one").Count())
	assert.Equal(t, int64(6), msr.GetMetric("sink").Count())
	assert.Positive(t, msr.GetMetric("sink").GetTotalDuration())

	content, err := os.ReadFile(graphPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "digraph")
	assert.Contains(t, string(content), `"split" -> "plus one"`)
	assert.Contains(t, string(content), `"times ten" -> "merge"`)
	assert.Contains(t, string(content), `"sink" -> "end"`)
}
