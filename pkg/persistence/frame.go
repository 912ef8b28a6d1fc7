package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

// Constants for the binary frame format.
const (
	// MagicByte is the marker used to identify the start of a valid frame.
	MagicByte = 0xA5

	// maxPrealloc caps the buffer reserved up front for a payload. The length
	// field is untrusted until the CRC matches.
	maxPrealloc = 64 << 10

	// HeaderSize is the fixed size of the frame metadata:
	// 1 byte (Magic) + 1 byte (OpCode) + 4 bytes (Length) + 4 bytes (CRC32) = 10 bytes.
	HeaderSize = 10

	// OpCodeCommand marks a single command record.
	OpCodeCommand = 0x01
	// OpCodeSnapshot marks a frame holding a whole table.
	OpCodeSnapshot = 0x02
)

var (
	// ErrInvalidMagic indicates the stream lost synchronization or is not a frame file.
	ErrInvalidMagic = errors.New("invalid magic byte")
	// ErrChecksumMismatch indicates data corruption within the frame payload.
	ErrChecksumMismatch = errors.New("crc32 checksum mismatch")
	// ErrIncompleteFrame indicates the file ended abruptly (e.g., power loss during write).
	ErrIncompleteFrame = errors.New("incomplete frame")
	// ErrUnknownOpCode indicates a frame whose kind this reader does not understand.
	ErrUnknownOpCode = errors.New("unknown frame opcode")
)

// Frame is a decoded record.
type Frame struct {
	Op      byte
	Payload []byte
}

// FrameWriter handles the safe writing of binary frames to an io.Writer.
type FrameWriter struct {
	w io.Writer
}

// NewFrameWriter creates a writer that wraps an underlying io.Writer.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// WriteFrame encodes the payload into a binary frame and writes it.
// Frame Format: [Magic(1)][OpCode(1)][Length(4)][CRC(4)][Payload(N)]
func (fw *FrameWriter) WriteFrame(op byte, payload []byte) error {
	header := make([]byte, HeaderSize)

	header[0] = MagicByte
	header[1] = op
	binary.LittleEndian.PutUint32(header[2:6], uint32(len(payload)))
	binary.LittleEndian.PutUint32(header[6:10], crc32.ChecksumIEEE(payload))

	// Header and payload go out back to back; callers wrap w in a bufio.Writer
	// so both land in one syscall.
	if _, err := fw.w.Write(header); err != nil {
		return err
	}
	if _, err := fw.w.Write(payload); err != nil {
		return err
	}
	return nil
}

// ReadFrame reads the next frame from the reader.
// It validates the Magic Byte, the OpCode and the CRC32 Checksum.
// Returns the frame, the total bytes read (header + payload), and an error.
// io.EOF is returned only when the reader is exhausted exactly at a frame boundary.
func ReadFrame(r io.Reader) (Frame, int, error) {
	header := make([]byte, HeaderSize)

	if _, err := io.ReadFull(r, header); err != nil {
		switch {
		case err == io.EOF:
			return Frame{}, 0, io.EOF
		case errors.Is(err, io.ErrUnexpectedEOF):
			return Frame{}, 0, ErrIncompleteFrame
		default:
			return Frame{}, 0, err
		}
	}

	if header[0] != MagicByte {
		return Frame{}, HeaderSize, ErrInvalidMagic
	}

	op := header[1]
	if op != OpCodeCommand && op != OpCodeSnapshot {
		return Frame{}, HeaderSize, ErrUnknownOpCode
	}

	length := binary.LittleEndian.Uint32(header[2:6])
	expectedCRC := binary.LittleEndian.Uint32(header[6:10])

	// Grow with the bytes actually present rather than trusting length.
	var buf bytes.Buffer
	buf.Grow(int(min(length, maxPrealloc)))
	if _, err := io.CopyN(&buf, r, int64(length)); err != nil {
		// Even a clean EOF is an error here: we expected 'length' bytes.
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, HeaderSize, ErrIncompleteFrame
		}
		return Frame{}, HeaderSize, err
	}
	payload := buf.Bytes()

	if crc32.ChecksumIEEE(payload) != expectedCRC {
		return Frame{}, HeaderSize + int(length), ErrChecksumMismatch
	}

	return Frame{Op: op, Payload: payload}, HeaderSize + int(length), nil
}

// IsCorruption reports whether err came from a damaged frame rather than an I/O failure.
func IsCorruption(err error) bool {
	return errors.Is(err, ErrInvalidMagic) ||
		errors.Is(err, ErrChecksumMismatch) ||
		errors.Is(err, ErrIncompleteFrame) ||
		errors.Is(err, ErrUnknownOpCode) ||
		errors.Is(err, ErrTrailingData)
}
