package tck

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrClosed = errors.New("tck writer closed")

// Writer writes a track file. The number of streamlines is announced in the
// header, so it is given upfront.
type Writer struct {
	bw     *bufio.Writer
	order  binary.ByteOrder
	size   int
	buf    []byte
	closed bool
}

func headerText(dt DataType, count int, props []Property) []byte {
	var sb strings.Builder

	sb.WriteString(magic + "\n")

	for _, p := range props {
		sb.WriteString(p.Key + ": " + p.Value + "\n")
	}

	sb.WriteString("datatype: " + string(dt) + "\n")
	sb.WriteString("count: " + strconv.Itoa(count) + "\n")
	sb.WriteString("total_count: " + strconv.Itoa(count) + "\n")

	prefix := sb.String()

	// the offset is written in the header it points past
	offset := len(prefix)
	for {
		line := "file: . " + strconv.Itoa(offset) + "\nEND\n"
		if len(prefix)+len(line) == offset {
			return []byte(prefix + line)
		}

		offset = len(prefix) + len(line)
	}
}

// NewWriter writes the header to w.
func NewWriter(w io.Writer, dt DataType, count int, props ...Property) (*Writer, error) {
	order, size, err := dt.layout()
	if err != nil {
		return nil, err
	}

	bw := bufio.NewWriter(w)

	_, err = bw.Write(headerText(dt, count, props))
	if err != nil {
		return nil, errors.Wrap(err, "unable to write tck header")
	}

	return &Writer{bw: bw, order: order, size: size, buf: make([]byte, 3*size)}, nil
}

func (w *Writer) writeTriplet(x, y, z float64) error {
	for i, v := range [3]float64{x, y, z} {
		b := w.buf[i*w.size : (i+1)*w.size]
		if w.size == 4 {
			w.order.PutUint32(b, math.Float32bits(float32(v)))
		} else {
			w.order.PutUint64(b, math.Float64bits(v))
		}
	}

	_, err := w.bw.Write(w.buf)

	return err
}

// Write appends one streamline followed by its NaN delimiter.
func (w *Writer) Write(points []Point) error {
	if w.closed {
		return ErrClosed
	}

	for _, p := range points {
		err := w.writeTriplet(p[0], p[1], p[2])
		if err != nil {
			return errors.Wrap(err, "unable to write point")
		}
	}

	nan := math.NaN()

	return errors.Wrap(w.writeTriplet(nan, nan, nan), "unable to write delimiter")
}

// Close writes the Inf terminator and flushes. It does not close the
// underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}

	w.closed = true
	inf := math.Inf(1)

	err := w.writeTriplet(inf, inf, inf)
	if err != nil {
		return errors.Wrap(err, "unable to write terminator")
	}

	return errors.Wrap(w.bw.Flush(), "unable to flush track data")
}

// WriteFile writes streamlines to path.
func WriteFile(path string, dt DataType, streamlines [][]Point, props ...Property) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", path)
	}
	defer file.Close()

	w, err := NewWriter(file, dt, len(streamlines), props...)
	if err != nil {
		return err
	}

	for _, s := range streamlines {
		err = w.Write(s)
		if err != nil {
			return errors.Wrapf(err, "unable to write %s", path)
		}
	}

	err = w.Close()
	if err != nil {
		return errors.Wrapf(err, "unable to write %s", path)
	}

	return errors.Wrapf(file.Close(), "unable to close %s", path)
}

// Endpoints keeps the first and last point of every streamline, the way
// tckresample -endpoints does.
func Endpoints(streamlines [][]Point) [][]Point {
	res := make([][]Point, 0, len(streamlines))

	for _, s := range streamlines {
		switch len(s) {
		case 0:
			res = append(res, nil)
		case 1:
			res = append(res, []Point{s[0]})
		default:
			res = append(res, []Point{s[0], s[len(s)-1]})
		}
	}

	return res
}
