// Package tck reads and writes MRtrix3 track files.
//
// A track file starts with a text header:
//
//	mrtrix tracks
//	datatype: Float32LE
//	count: 2
//	file: . 67
//	END
//
// followed, at the offset given by the file key, by xyz triplets. A NaN triplet
// ends a streamline and an Inf triplet ends the file.
package tck

import (
	"bufio"
	"encoding/binary"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const magic = "mrtrix tracks"

var (
	ErrBadMagic        = errors.New("not an mrtrix tracks file")
	ErrBadHeader       = errors.New("malformed tck header")
	ErrUnsupportedType = errors.New("unsupported tck datatype")
	ErrExternalData    = errors.New("track data stored in another file is not supported")
)

// DataType is the encoding of coordinates.
type DataType string

const (
	Float32LE DataType = "Float32LE"
	Float32BE DataType = "Float32BE"
	Float64LE DataType = "Float64LE"
	Float64BE DataType = "Float64BE"
)

func (d DataType) layout() (binary.ByteOrder, int, error) {
	switch d {
	case Float32LE, "Float32":
		return binary.LittleEndian, 4, nil
	case Float32BE:
		return binary.BigEndian, 4, nil
	case Float64LE, "Float64":
		return binary.LittleEndian, 8, nil
	case Float64BE:
		return binary.BigEndian, 8, nil
	default:
		return nil, 0, errors.Wrap(ErrUnsupportedType, string(d))
	}
}

// Property is one key: value line of the header.
type Property struct {
	Key   string
	Value string
}

// Header is the parsed text header of a track file.
type Header struct {
	Properties []Property
	DataType   DataType
	Offset     int64
	// Count is the value of the count key, -1 when absent. It is what the
	// writing tool announced, not necessarily what the file holds.
	Count int
}

// Get returns the first value of key.
func (h *Header) Get(key string) (string, bool) {
	for _, p := range h.Properties {
		if p.Key == key {
			return p.Value, true
		}
	}

	return "", false
}

// readHeader parses the header and returns it with the number of bytes read.
func readHeader(br *bufio.Reader) (*Header, int64, error) {
	var consumed int64

	line, err := br.ReadString('\n')
	consumed += int64(len(line))

	if err != nil || strings.TrimSpace(line) != magic {
		return nil, consumed, ErrBadMagic
	}

	hdr := &Header{Count: -1, Offset: -1}

	for {
		line, err = br.ReadString('\n')
		consumed += int64(len(line))

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, consumed, errors.Wrap(ErrBadHeader, "missing END")
			}

			return nil, consumed, errors.Wrap(err, "unable to read tck header")
		}

		line = strings.TrimSpace(line)
		if line == "END" {
			break
		}

		if line == "" {
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, consumed, errors.Wrapf(ErrBadHeader, "line %q", line)
		}

		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		hdr.Properties = append(hdr.Properties, Property{Key: key, Value: value})

		err = hdr.apply(key, value)
		if err != nil {
			return nil, consumed, err
		}
	}

	if hdr.Offset < 0 {
		return nil, consumed, errors.Wrap(ErrBadHeader, "missing file key")
	}

	if hdr.DataType == "" {
		return nil, consumed, errors.Wrap(ErrBadHeader, "missing datatype key")
	}

	if hdr.Offset < consumed {
		return nil, consumed, errors.Wrapf(ErrBadHeader, "data offset %d inside header", hdr.Offset)
	}

	return hdr, consumed, nil
}

func (h *Header) apply(key, value string) error {
	switch key {
	case "datatype":
		h.DataType = DataType(value)

		_, _, err := h.DataType.layout()
		if err != nil {
			return err
		}
	case "file":
		fields := strings.Fields(value)
		if len(fields) != 2 {
			return errors.Wrapf(ErrBadHeader, "file %q", value)
		}

		if fields[0] != "." {
			return errors.Wrap(ErrExternalData, fields[0])
		}

		offset, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return errors.Wrapf(ErrBadHeader, "file offset %q", fields[1])
		}

		h.Offset = offset
	case "count":
		count, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrapf(ErrBadHeader, "count %q", value)
		}

		h.Count = count
	}

	return nil
}
