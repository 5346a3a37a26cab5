package tractfilter_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/askiada/tractfilter/internal/config"
	"github.com/askiada/tractfilter/internal/nifti"
	"github.com/askiada/tractfilter/internal/tck"
	"github.com/askiada/tractfilter/internal/toolrun"
)

const (
	originalFibers = 10
	includedFibers = 4
	invertedFibers = originalFibers - includedFibers
)

func streamlines(n int) [][]tck.Point {
	res := make([][]tck.Point, 0, n)
	for i := range n {
		x := float64(i)
		res = append(res, []tck.Point{{x, 0, 0}, {x, 1, 0}, {x, 2, 0}})
	}

	return res
}

func readStreamlines(path string) ([][]tck.Point, error) {
	tr, file, err := tck.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	res := [][]tck.Point{}

	for {
		points, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return res, nil
		}

		if err != nil {
			return nil, err
		}

		res = append(res, points)
	}
}

func writeMask(t *testing.T, path string, nonZero int) {
	t.Helper()

	values := make([]uint8, 8)
	for i := range nonZero {
		values[i] = 1
	}

	require.NoError(t, nifti.WriteMask(path, [3]int{2, 2, 2}, [3]float64{2, 2, 2}, values))
}

// setupDir writes the default tracts and masks of the CST filtering.
func setupDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	for _, tract := range config.DefaultTracts() {
		require.NoError(t, tck.WriteFile(filepath.Join(dir, tract.Name), tck.Float32LE, streamlines(originalFibers)))

		for _, roi := range tract.ROIs {
			writeMask(t, filepath.Join(dir, roi), 3)
		}
	}

	return dir
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	return cfg
}

// fakeTckEdit keeps the first includedFibers streamlines, or the others with -inverse.
func fakeTckEdit(_ context.Context, cmd toolrun.Command) (*toolrun.Result, error) {
	in, out := cmd.Args[0], cmd.Args[1]

	all, err := readStreamlines(in)
	if err != nil {
		return nil, err
	}

	kept := all[:includedFibers]
	if slices.Contains(cmd.Args, "-inverse") {
		kept = all[includedFibers:]
	}

	return &toolrun.Result{}, tck.WriteFile(out, tck.Float32LE, kept)
}

// fakeTckResample writes the endpoints of every streamline.
func fakeTckResample(_ context.Context, cmd toolrun.Command) (*toolrun.Result, error) {
	in, out := cmd.Args[0], cmd.Args[1]

	all, err := readStreamlines(in)
	if err != nil {
		return nil, err
	}

	return &toolrun.Result{}, tck.WriteFile(out, tck.Float32LE, tck.Endpoints(all))
}

// fakeApplyTransforms copies the input mask to the output.
func fakeApplyTransforms(_ context.Context, cmd toolrun.Command) (*toolrun.Result, error) {
	var in, out string

	for i := 0; i+1 < len(cmd.Args); i++ {
		switch cmd.Args[i] {
		case "-i":
			in = cmd.Args[i+1]
		case "-o":
			out = cmd.Args[i+1]
		}
	}

	data, err := os.ReadFile(in)
	if err != nil {
		return nil, err
	}

	return &toolrun.Result{}, os.WriteFile(out, data, 0o600)
}

func newRecorder() *toolrun.Recorder {
	rec := toolrun.NewRecorder().
		On("tckedit", fakeTckEdit).
		On("tckresample", fakeTckResample).
		On("antsApplyTransforms", fakeApplyTransforms)
	rec.Strict = true

	return rec
}
