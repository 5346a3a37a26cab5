package tck

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
)

// Point is a position in scanner space, in millimetres.
type Point [3]float64

// Reader reads streamlines one at a time.
type Reader struct {
	hdr   *Header
	br    *bufio.Reader
	order binary.ByteOrder
	size  int
	buf   []byte
	done  bool
}

// NewReader parses the header of r and positions it on the first streamline.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	hdr, consumed, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	_, err = br.Discard(int(hdr.Offset - consumed))
	if err != nil {
		return nil, errors.Wrap(err, "unable to reach track data")
	}

	order, size, err := hdr.DataType.layout()
	if err != nil {
		return nil, err
	}

	return &Reader{
		hdr:   hdr,
		br:    br,
		order: order,
		size:  size,
		buf:   make([]byte, 3*size),
	}, nil
}

// Header returns the parsed header.
func (r *Reader) Header() *Header {
	return r.hdr
}

func (r *Reader) value(b []byte) float64 {
	if r.size == 4 {
		return float64(math.Float32frombits(r.order.Uint32(b)))
	}

	return math.Float64frombits(r.order.Uint64(b))
}

// readPoint returns io.EOF at the end of the data.
func (r *Reader) readPoint() (Point, error) {
	_, err := io.ReadFull(r.br, r.buf)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Point{}, errors.Wrap(err, "truncated track data")
		}

		return Point{}, err
	}

	return Point{
		r.value(r.buf[:r.size]),
		r.value(r.buf[r.size : 2*r.size]),
		r.value(r.buf[2*r.size:]),
	}, nil
}

// Next returns the next streamline, or io.EOF once the Inf terminator or the
// end of the data is reached. A streamline cut by the end of the data is returned.
func (r *Reader) Next() ([]Point, error) {
	if r.done {
		return nil, io.EOF
	}

	var points []Point

	for {
		p, err := r.readPoint()
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.done = true
				if len(points) > 0 {
					return points, nil
				}
			}

			return nil, err
		}

		switch {
		case math.IsNaN(p[0]):
			return points, nil
		case math.IsInf(p[0], 0):
			r.done = true
			if len(points) > 0 {
				return points, nil
			}

			return nil, io.EOF
		default:
			points = append(points, p)
		}
	}
}

// Open opens a track file. The caller closes the returned file.
func Open(path string) (*Reader, *os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "unable to open %s", path)
	}

	r, err := NewReader(file)
	if err != nil {
		file.Close()

		return nil, nil, errors.Wrapf(err, "unable to read %s", path)
	}

	return r, file, nil
}
