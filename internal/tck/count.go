package tck

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CountReader counts the streamlines of a track stream.
func CountReader(r io.Reader) (int, error) {
	tr, err := NewReader(r)
	if err != nil {
		return 0, err
	}

	count := 0

	for {
		_, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return count, nil
		}

		if err != nil {
			return count, err
		}

		count++
	}
}

// Count returns the number of streamlines stored in a track file. It skips the
// length statistics of ComputeStats.
func Count(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "unable to open %s", path)
	}
	defer file.Close()

	count, err := CountReader(file)
	if err != nil {
		return count, errors.Wrapf(err, "unable to read %s", path)
	}

	return count, nil
}

// Stats summarises a track file. Lengths are in millimetres.
type Stats struct {
	Count       int
	HeaderCount int
	Points      int
	MeanLength  float64
	StdLength   float64
	MinLength   float64
	MaxLength   float64
}

// Length is the polyline length of a streamline.
func Length(points []Point) float64 {
	length := 0.0
	for i := 1; i < len(points); i++ {
		length += floats.Distance(points[i-1][:], points[i][:], 2)
	}

	return length
}

// ComputeStats reads every streamline of a track file.
func ComputeStats(path string) (*Stats, error) {
	tr, file, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	res := &Stats{HeaderCount: tr.Header().Count}
	lengths := []float64{}

	for {
		points, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, errors.Wrapf(err, "unable to read %s", path)
		}

		res.Count++
		res.Points += len(points)
		lengths = append(lengths, Length(points))
	}

	if len(lengths) > 0 {
		res.MeanLength = stat.Mean(lengths, nil)
		res.MinLength = floats.Min(lengths)
		res.MaxLength = floats.Max(lengths)
	}

	if len(lengths) > 1 {
		res.StdLength = stat.StdDev(lengths, nil)
	}

	return res, nil
}
