// Package iolog records and replays the raw packets exchanged with the
// simulator.
//
// A log file starts with a header of two little-endian uint32 values, the
// magic 0x492F4F01 and the format version. Every record that follows is a
// uint16 size (payload length + 2), a uint16 direction and the payload.
package iolog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Format constants.
const (
	Magic   uint32 = 0x492F4F01
	Version uint32 = 1

	FileExtension = ".log"

	headerSize = 8
	// MaxPayload is the largest payload a record can carry.
	MaxPayload = 0xFFFF - 2
)

// Direction tells whether a packet was received or sent.
type Direction uint16

const (
	Output Direction = 0
	Input  Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return fmt.Sprintf("Direction(%d)", uint16(d))
	}
}

var (
	// ErrBadMagic reports a file that is not an I/O log.
	ErrBadMagic = errors.New("not an I/O log")
	// ErrUnsupportedVersion reports an I/O log with an unknown version.
	ErrUnsupportedVersion = errors.New("unsupported I/O log version")
	// ErrClosed reports a write to a closed Writer.
	ErrClosed = errors.New("I/O log writer is closed")
)

// Record is one logged packet.
type Record struct {
	Direction Direction
	Data      []byte
}

// FileName returns the log file name for prefix at t, e.g.
// "drive-240501_120000.log".
func FileName(prefix string, t time.Time) string {
	return prefix + "-" + t.Format("060102_150405") + FileExtension
}

// Writer appends records to an I/O log. It is safe for concurrent use.
type Writer struct {
	w    io.Writer
	c    io.Closer
	path string

	mu      sync.Mutex
	closed  bool
	records uint64
}

// NewWriter writes the log header to w and returns a Writer. If w is an
// io.Closer, Close closes it.
func NewWriter(w io.Writer) (*Writer, error) {
	hdr := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(hdr[0:4], Magic)
	binary.LittleEndian.PutUint32(hdr[4:8], Version)
	if _, err := w.Write(hdr); err != nil {
		return nil, fmt.Errorf("failed to write log header: %w", err)
	}
	lw := &Writer{w: w}
	if c, ok := w.(io.Closer); ok {
		lw.c = c
	}
	return lw, nil
}

// Create creates dir if needed and starts a new log file named by FileName.
func Create(dir, prefix string, now time.Time) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(dir, FileName(prefix, now))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	w, err := NewWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.path = path
	return w, nil
}

// Path returns the file path for writers made by Create.
func (w *Writer) Path() string { return w.path }

// Write appends one record.
func (w *Writer) Write(dir Direction, data []byte) error {
	if len(data) > MaxPayload {
		return fmt.Errorf("payload of %d bytes exceeds %d", len(data), MaxPayload)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}

	buf := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(data)+2))
	binary.LittleEndian.PutUint16(buf[2:4], uint16(dir))
	copy(buf[4:], data)
	if _, err := w.w.Write(buf); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	w.records++
	return nil
}

// Records returns the number of records written.
func (w *Writer) Records() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records
}

// Close closes the underlying writer. Closing twice is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.c != nil {
		return w.c.Close()
	}
	return nil
}

// Reader reads records from an I/O log.
type Reader struct {
	r io.Reader
}

// NewReader reads and checks the log header.
func NewReader(r io.Reader) (*Reader, error) {
	hdr := make([]byte, headerSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, fmt.Errorf("failed to read log header: %w", err)
	}
	if magic := binary.LittleEndian.Uint32(hdr[0:4]); magic != Magic {
		return nil, fmt.Errorf("%w: magic 0x%08X", ErrBadMagic, magic)
	}
	if v := binary.LittleEndian.Uint32(hdr[4:8]); v != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	return &Reader{r: r}, nil
}

// Next returns the next record, or io.EOF after the last one. A record cut
// short by the end of the file is io.ErrUnexpectedEOF.
func (r *Reader) Next() (Record, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r.r, prefix[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("failed to read record header: %w", err)
	}
	size := binary.LittleEndian.Uint16(prefix[0:2])
	if size < 2 {
		return Record{}, fmt.Errorf("invalid record size %d", size)
	}
	rec := Record{
		Direction: Direction(binary.LittleEndian.Uint16(prefix[2:4])),
		Data:      make([]byte, size-2),
	}
	if _, err := io.ReadFull(r.r, rec.Data); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Record{}, fmt.Errorf("failed to read record payload: %w", err)
	}
	return rec, nil
}

// ReadFile returns every record in the log at path.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	defer f.Close()

	r, err := NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var records []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, fmt.Errorf("%s: record %d: %w", path, len(records), err)
		}
		records = append(records, rec)
	}
}
