// Package telemetry publishes the control loop's snapshot over the
// bench serial link. Frames are CBOR bodies wrapped in byte-stuffed
// framing with a CRC-16-CCITT trailer, so a listener can resynchronize
// mid-stream after noise or a replug.
package telemetry

import (
	"errors"

	"github.com/fxamacker/cbor/v2"

	"tltb-go/types"
)

// Framing bytes. Any of them occurring inside the data section is
// escaped as EscByte followed by the byte XOR EscXor.
const (
	StartByte = 0x7E
	EndByte   = 0x7F
	EscByte   = 0x7D
	EscXor    = 0x20
)

// MaxBodySize bounds the CBOR body; the length prefix is one byte.
const MaxBodySize = 250

const (
	crcPolynomial = 0x1021
	crcInitial    = 0xFFFF
)

var (
	ErrBodyTooLarge = errors.New("telemetry: CBOR body exceeds frame limit")
	ErrBadCRC       = errors.New("telemetry: CRC mismatch")
	ErrBadLength    = errors.New("telemetry: invalid length byte")
	ErrTruncated    = errors.New("telemetry: frame ended early")
)

// crc16 computes CRC-16-CCITT over data.
func crc16(data []byte) uint16 {
	crc := uint16(crcInitial)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// EncodeFrame wraps one snapshot into a wire frame: StartByte, then the
// byte-stuffed data section (length, CBOR body, CRC big-endian), then
// EndByte. The CRC covers length and body, before stuffing.
func EncodeFrame(snap types.Snapshot) ([]byte, error) {
	body, err := cbor.Marshal(snap)
	if err != nil {
		return nil, err
	}
	if len(body) > MaxBodySize {
		return nil, ErrBodyTooLarge
	}

	data := make([]byte, 0, len(body)+3)
	data = append(data, byte(len(body)))
	data = append(data, body...)
	crc := crc16(data)
	data = append(data, byte(crc>>8), byte(crc))

	frame := make([]byte, 0, len(data)*2+2)
	frame = append(frame, StartByte)
	for _, b := range data {
		if b == StartByte || b == EndByte || b == EscByte {
			frame = append(frame, EscByte, b^EscXor)
		} else {
			frame = append(frame, b)
		}
	}
	frame = append(frame, EndByte)
	return frame, nil
}

// Decoder is a resynchronizing byte-stream frame parser. Feed it bytes
// as they arrive; it returns a snapshot whenever a whole valid frame
// has been seen and skips anything else.
type Decoder struct {
	inFrame bool
	escape  bool
	data    []byte
}

func NewDecoder() *Decoder {
	return &Decoder{data: make([]byte, 0, MaxBodySize+3)}
}

func (d *Decoder) reset() {
	d.inFrame = false
	d.escape = false
	d.data = d.data[:0]
}

// DecodeByte consumes one byte. It returns a non-nil snapshot when a
// frame completes, or an error when a frame is dropped; both imply the
// decoder has resynchronized and the caller just keeps feeding bytes.
func (d *Decoder) DecodeByte(b byte) (*types.Snapshot, error) {
	switch b {
	case StartByte:
		// A start byte is never produced by stuffing: always a new frame.
		d.reset()
		d.inFrame = true
		return nil, nil
	case EndByte:
		if !d.inFrame {
			return nil, nil
		}
		snap, err := d.finish()
		d.reset()
		return snap, err
	}

	if !d.inFrame {
		return nil, nil
	}
	if b == EscByte && !d.escape {
		d.escape = true
		return nil, nil
	}
	if d.escape {
		b ^= EscXor
		d.escape = false
	}
	if len(d.data) > MaxBodySize+3 {
		d.reset()
		return nil, ErrBadLength
	}
	d.data = append(d.data, b)
	return nil, nil
}

func (d *Decoder) finish() (*types.Snapshot, error) {
	if d.escape {
		return nil, ErrTruncated
	}
	if len(d.data) < 3 {
		return nil, ErrTruncated
	}
	n := int(d.data[0])
	if len(d.data) != n+3 {
		return nil, ErrBadLength
	}
	want := uint16(d.data[n+1])<<8 | uint16(d.data[n+2])
	if crc16(d.data[:n+1]) != want {
		return nil, ErrBadCRC
	}

	var snap types.Snapshot
	if err := cbor.Unmarshal(d.data[1:n+1], &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
