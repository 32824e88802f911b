package socket

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// FrameHeaderSize is the size of the big-endian length prefix of every frame.
const FrameHeaderSize = 4

// ErrFrameTooLarge is returned when a frame exceeds the configured maximum size.
var ErrFrameTooLarge = errors.New("frame too large")

// ReadFrame reads one length-prefixed frame from r.
// Frames larger than maxSize are rejected without reading their payload.
func ReadFrame(r io.Reader, maxSize int) ([]byte, error) {
	var header [FrameHeaderSize]byte

	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	size := binary.BigEndian.Uint32(header[:])
	if maxSize > 0 && uint64(size) > uint64(maxSize) {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, size, maxSize)
	}

	payload := make([]byte, size)

	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}

	return payload, nil
}

// WriteFrame writes payload to w as one length-prefixed frame.
func WriteFrame(w io.Writer, payload []byte) error {
	frame := make([]byte, FrameHeaderSize+len(payload))

	//nolint:gosec
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[FrameHeaderSize:], payload)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	return nil
}

// ReadValue reads one frame and decodes its CBOR payload into v.
func ReadValue(r io.Reader, maxSize int, v any) error {
	payload, err := ReadFrame(r, maxSize)
	if err != nil {
		return err
	}

	if err := cbor.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}

	return nil
}

// WriteValue encodes v as CBOR and writes it as one frame.
func WriteValue(w io.Writer, v any) error {
	payload, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	return WriteFrame(w, payload)
}
