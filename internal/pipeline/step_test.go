package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/tractfilter/internal/pipeline"
	"github.com/askiada/tractfilter/internal/pipeline/model"
)

func identity(_ context.Context, input int) (int, error) {
	return input, nil
}

func TestAddStepOneToOneNilPipe(t *testing.T) {
	t.Parallel()

	_, err := pipeline.AddStepOneToOne(nil, "first step", &model.Step[int]{}, identity)
	assert.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)
}

func TestAddStepOneToOneNilInput(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	_, err = pipeline.AddStepOneToOne[int, int](pipe, "first step", nil, identity)
	assert.ErrorIs(t, err, pipeline.ErrInputMustBeSet)
}

func TestAddStepOneToOne(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		concurrent int
	}{
		"sequential": {concurrent: 1},
		"concurrent": {concurrent: 4},
		"below one":  {concurrent: 0},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			pipe, err := pipeline.New(context.Background())
			require.NoError(t, err)

			input := &model.Step[int]{Output: createInputChan(t, 10)}
			step, err := pipeline.AddStepOneToOne(pipe, "double", input, func(_ context.Context, in int) (int, error) {
				return in * 2, nil
			}, pipeline.StepConcurrency[int](tc.concurrent))
			require.NoError(t, err)

			var got []int

			done := make(chan struct{})

			go func() {
				defer close(done)

				got = processOutputChan(t, step.Output)
			}()

			require.NoError(t, pipe.Run())
			<-done
			assert.ElementsMatch(t, []int{0, 2, 4, 6, 8, 10, 12, 14, 16, 18}, got)
		})
	}
}

func TestAddStepOneToOneError(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	input := &model.Step[int]{Output: createInputChan(t, 10)}
	step, err := pipeline.AddStepOneToOne(pipe, "failing step", input, func(_ context.Context, in int) (int, error) {
		if in == 5 {
			return 0, assert.AnError
		}

		return in, nil
	})
	require.NoError(t, err)

	done := make(chan struct{})

	go func() {
		defer close(done)

		_ = processOutputChan(t, step.Output)
	}()

	err = pipe.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "failing step")
	<-done
}
