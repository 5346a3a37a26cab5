package pipeline_test

import (
	"context"
	"sync"
	"testing"
)

func createInputChan(t *testing.T, total int) chan int {
	t.Helper()

	inputChan := make(chan int)

	go func() {
		defer close(inputChan)

		for i := range total {
			inputChan <- i
		}
	}()

	return inputChan
}

func processOutputChan[O any](t *testing.T, output <-chan O) []O {
	t.Helper()

	res := []O{}
	for out := range output {
		res = append(res, out)
	}

	return res
}

// collector is a sink function safe for concurrent use.
type collector[O any] struct {
	mu   sync.Mutex
	vals []O
}

func (c *collector[O]) sink(_ context.Context, in O) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.vals = append(c.vals, in)

	return nil
}

func (c *collector[O]) values() []O {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]O(nil), c.vals...)
}
