// Package nifti reads single file NIfTI-1 images (.nii and .nii.gz), enough to
// check ROI masks before they are handed to MRtrix3.
//
// See https://nifti.nimh.nih.gov/pub/dist/src/niftilib/nifti1.h
package nifti

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
)

const (
	headerSize = 348
	// minVoxOffset is the header plus the 4 byte extension flag.
	minVoxOffset = 352
	// maxVoxels bounds the images this package decodes.
	maxVoxels = 1 << 30
)

var (
	ErrBadHeader       = errors.New("not a nifti-1 header")
	ErrPairedFile      = errors.New("hdr/img pairs are not supported")
	ErrUnsupportedType = errors.New("unsupported nifti datatype")
	ErrTruncated       = errors.New("truncated nifti data")
)

// Datatype codes of nifti1.h.
const (
	DTUint8   int16 = 2
	DTInt16   int16 = 4
	DTInt32   int16 = 8
	DTFloat32 int16 = 16
	DTFloat64 int16 = 64
	DTInt8    int16 = 256
	DTUint16  int16 = 512
	DTUint32  int16 = 768
	DTInt64   int16 = 1024
	DTUint64  int16 = 1280
)

func bytesPerVoxel(datatype int16) (int, error) {
	switch datatype {
	case DTUint8, DTInt8:
		return 1, nil
	case DTInt16, DTUint16:
		return 2, nil
	case DTInt32, DTUint32, DTFloat32:
		return 4, nil
	case DTInt64, DTUint64, DTFloat64:
		return 8, nil
	default:
		return 0, errors.Wrapf(ErrUnsupportedType, "code %d", datatype)
	}
}

// Header is the on-disk NIfTI-1 header. Fields this package never reads are
// kept as padding.
type Header struct {
	SizeOfHdr  int32
	_          [35]byte
	DimInfo    int8
	Dim        [8]int16
	IntentP1   float32
	IntentP2   float32
	IntentP3   float32
	IntentCode int16
	DataType   int16
	BitPix     int16
	SliceStart int16
	PixDim     [8]float32
	VoxOffset  float32
	SclSlope   float32
	SclInter   float32
	_          [28]byte
	Descrip    [80]byte
	_          [24]byte
	QFormCode  int16
	SFormCode  int16
	_          [72]byte
	IntentName [16]byte
	Magic      [4]byte
}

// Image is a decoded image. Data holds the raw voxels in file byte order.
type Image struct {
	Header Header
	Order  binary.ByteOrder
	Data   []byte
	nbyper int
}

func byteOrder(sizeOfHdr []byte) (binary.ByteOrder, error) {
	switch {
	case binary.LittleEndian.Uint32(sizeOfHdr) == headerSize:
		return binary.LittleEndian, nil
	case binary.BigEndian.Uint32(sizeOfHdr) == headerSize:
		return binary.BigEndian, nil
	default:
		return nil, errors.Wrap(ErrBadHeader, "sizeof_hdr is not 348")
	}
}

// ReadHeader decodes a header and returns the byte order of the file.
func ReadHeader(raw []byte) (*Header, binary.ByteOrder, error) {
	if len(raw) < headerSize {
		return nil, nil, errors.Wrap(ErrBadHeader, "short header")
	}

	order, err := byteOrder(raw[:4])
	if err != nil {
		return nil, nil, err
	}

	hdr := &Header{}

	err = binary.Read(bytes.NewReader(raw[:headerSize]), order, hdr)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to decode nifti header")
	}

	switch string(hdr.Magic[:3]) {
	case "n+1":
	case "ni1":
		return nil, nil, ErrPairedFile
	default:
		return nil, nil, errors.Wrapf(ErrBadHeader, "magic %q", hdr.Magic[:])
	}

	if hdr.Dim[0] < 1 || hdr.Dim[0] > 7 {
		return nil, nil, errors.Wrapf(ErrBadHeader, "dim[0] = %d", hdr.Dim[0])
	}

	n := 1

	for i, d := range hdr.Dims() {
		if d < 0 {
			return nil, nil, errors.Wrapf(ErrBadHeader, "dim[%d] = %d", i+1, d)
		}

		// checked before multiplying so n never overflows
		if d > 1 && n > maxVoxels/d {
			return nil, nil, errors.Wrapf(ErrBadHeader, "more than %d voxels", maxVoxels)
		}

		n *= max(d, 1)
	}

	return hdr, order, nil
}

// Dims returns the size of every used dimension.
func (h *Header) Dims() []int {
	dims := make([]int, h.Dim[0])
	for i := range dims {
		dims[i] = int(h.Dim[i+1])
	}

	return dims
}

// NumVoxels is the product of the used dimensions. ReadHeader bounds it.
func (h *Header) NumVoxels() int {
	n := 1
	for _, d := range h.Dims() {
		n *= max(d, 1)
	}

	return n
}

// VoxelSize returns the spacing of the three spatial axes.
func (h *Header) VoxelSize() [3]float64 {
	return [3]float64{
		math.Abs(float64(h.PixDim[1])),
		math.Abs(float64(h.PixDim[2])),
		math.Abs(float64(h.PixDim[3])),
	}
}

// Read decodes a .nii stream, gzip compressed or not.
func Read(r io.Reader) (*Image, error) {
	br := bufio.NewReader(r)

	src := io.Reader(br)

	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "unable to open gzip stream")
		}
		defer gz.Close()

		src = gz
	}

	raw := make([]byte, headerSize)

	_, err := io.ReadFull(src, raw)
	if err != nil {
		return nil, errors.Wrap(ErrBadHeader, err.Error())
	}

	hdr, order, err := ReadHeader(raw)
	if err != nil {
		return nil, err
	}

	nbyper, err := bytesPerVoxel(hdr.DataType)
	if err != nil {
		return nil, err
	}

	offset := max(int64(hdr.VoxOffset), minVoxOffset)

	_, err = io.CopyN(io.Discard, src, offset-headerSize)
	if err != nil {
		return nil, errors.Wrap(ErrTruncated, "extension block")
	}

	size := int64(hdr.NumVoxels()) * int64(nbyper)

	// read as it arrives, a truncated file never allocates the announced size
	data, err := io.ReadAll(io.LimitReader(src, size))
	if err != nil || int64(len(data)) < size {
		return nil, errors.Wrapf(ErrTruncated, "expected %d bytes of voxels, got %d", size, len(data))
	}

	return &Image{Header: *hdr, Order: order, Data: data, nbyper: nbyper}, nil
}

// ReadFile decodes a .nii or .nii.gz file.
func ReadFile(path string) (*Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", path)
	}
	defer file.Close()

	img, err := Read(file)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", path)
	}

	return img, nil
}

// Value returns voxel i with the scaling of the header applied.
func (img *Image) Value(i int) float64 {
	b := img.Data[i*img.nbyper : (i+1)*img.nbyper]

	var v float64

	switch img.Header.DataType {
	case DTUint8:
		v = float64(b[0])
	case DTInt8:
		v = float64(int8(b[0]))
	case DTInt16:
		v = float64(int16(img.Order.Uint16(b)))
	case DTUint16:
		v = float64(img.Order.Uint16(b))
	case DTInt32:
		v = float64(int32(img.Order.Uint32(b)))
	case DTUint32:
		v = float64(img.Order.Uint32(b))
	case DTFloat32:
		v = float64(math.Float32frombits(img.Order.Uint32(b)))
	case DTInt64:
		v = float64(int64(img.Order.Uint64(b)))
	case DTUint64:
		v = float64(img.Order.Uint64(b))
	case DTFloat64:
		v = math.Float64frombits(img.Order.Uint64(b))
	}

	// a zero slope means no scaling
	if slope := float64(img.Header.SclSlope); slope != 0 {
		v = v*slope + float64(img.Header.SclInter)
	}

	return v
}

// NumVoxels returns the number of voxels of the image.
func (img *Image) NumVoxels() int {
	return len(img.Data) / img.nbyper
}
