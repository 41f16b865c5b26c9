// Package nativemsg speaks the browser native-messaging protocol: each
// message is a 4-byte little-endian length followed by that many bytes of
// JSON.
package nativemsg

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MaxFrameSize is the largest inbound frame accepted (browsers cap
// host-bound messages at 1 MiB).
const MaxFrameSize = 1 << 20

// ReadFrame reads one frame and returns its payload.
func ReadFrame(r io.Reader) ([]byte, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return nil, err
	}
	length := binary.LittleEndian.Uint32(lenBuf)
	if length > MaxFrameSize {
		return nil, fmt.Errorf("frame too large: %d", length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteFrame marshals v and writes it as one frame.
func WriteFrame(w io.Writer, v any) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return err
	}
	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(encoded)))
	if _, err := w.Write(lenBuf); err != nil {
		return err
	}
	_, err = w.Write(encoded)
	return err
}
