package nifti

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// WriteMask writes a uint8 little endian mask. Paths ending with .gz are
// compressed. values are in x fastest order.
func WriteMask(path string, dims [3]int, voxelSize [3]float64, values []uint8) error {
	if len(values) != dims[0]*dims[1]*dims[2] {
		return errors.Errorf("got %d values for dims %v", len(values), dims)
	}

	hdr := Header{
		SizeOfHdr: headerSize,
		DataType:  DTUint8,
		BitPix:    8,
		VoxOffset: minVoxOffset,
		SclSlope:  1,
		Magic:     [4]byte{'n', '+', '1', 0},
	}
	hdr.Dim = [8]int16{3, int16(dims[0]), int16(dims[1]), int16(dims[2]), 1, 1, 1, 1}
	hdr.PixDim = [8]float32{1, float32(voxelSize[0]), float32(voxelSize[1]), float32(voxelSize[2]), 1, 1, 1, 1}

	buf := &bytes.Buffer{}

	err := binary.Write(buf, binary.LittleEndian, &hdr)
	if err != nil {
		return errors.Wrap(err, "unable to encode nifti header")
	}

	// empty extension flag
	buf.Write([]byte{0, 0, 0, 0})
	buf.Write(values)

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", path)
	}
	defer file.Close()

	var w io.Writer = file

	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(file)
		w = gz
	}

	_, err = w.Write(buf.Bytes())
	if err != nil {
		return errors.Wrapf(err, "unable to write %s", path)
	}

	if gz != nil {
		err = gz.Close()
		if err != nil {
			return errors.Wrapf(err, "unable to compress %s", path)
		}
	}

	return errors.Wrapf(file.Close(), "unable to close %s", path)
}
