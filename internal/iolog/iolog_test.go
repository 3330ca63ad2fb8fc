package iolog

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trackline/internal/network"
)

func TestWriterFormat(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, w.Write(Output, []byte{0xAA, 0xBB}))
	require.NoError(t, w.Write(Input, nil))

	want := []byte{
		0x01, 0x4F, 0x2F, 0x49, // magic
		0x01, 0x00, 0x00, 0x00, // version
		0x04, 0x00, 0x00, 0x00, 0xAA, 0xBB, // size 4, output
		0x02, 0x00, 0x01, 0x00, // size 2, input, empty
	}
	assert.Equal(t, want, buf.Bytes())
	assert.Equal(t, uint64(2), w.Records())

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Write(Input, []byte{1}), ErrClosed)
}

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)

	want := []Record{
		{Direction: Output, Data: bytes.Repeat([]byte{1}, 18)},
		{Direction: Input, Data: bytes.Repeat([]byte{2}, 794)},
		{Direction: Output, Data: []byte{3}},
	}
	for _, rec := range want {
		require.NoError(t, w.Write(rec.Direction, rec.Data))
	}

	r, err := NewReader(&buf)
	require.NoError(t, err)
	var got []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, rec)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestReaderErrors(t *testing.T) {
	header := func(magic, version uint32) []byte {
		b := make([]byte, 8)
		binary.LittleEndian.PutUint32(b[0:4], magic)
		binary.LittleEndian.PutUint32(b[4:8], version)
		return b
	}

	_, err := NewReader(bytes.NewReader(header(0xDEADBEEF, 1)))
	assert.ErrorIs(t, err, ErrBadMagic)

	_, err = NewReader(bytes.NewReader(header(Magic, 2)))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = NewReader(bytes.NewReader([]byte{1, 2}))
	assert.Error(t, err)

	truncated := append(header(Magic, Version), 0x0A, 0x00, 0x01, 0x00, 1, 2)
	r, err := NewReader(bytes.NewReader(truncated))
	require.NoError(t, err)
	_, err = r.Next()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	short := append(header(Magic, Version), 0x01, 0x00, 0x01, 0x00)
	r, err = NewReader(bytes.NewReader(short))
	require.NoError(t, err)
	_, err = r.Next()
	assert.Error(t, err)
}

func TestCreateAndReadFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	now := time.Date(2024, 5, 1, 13, 4, 5, 0, time.Local)

	w, err := Create(dir, "drive", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "drive-240501_130405.log"), w.Path())
	require.NoError(t, w.Write(Output, []byte("cmd")))
	require.NoError(t, w.Close())

	records, err := ReadFile(w.Path())
	require.NoError(t, err)
	assert.Equal(t, []Record{{Direction: Output, Data: []byte("cmd")}}, records)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.log"), []byte("12345678"), 0644))
	_, err = ReadFile(filepath.Join(dir, "junk.log"))
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.NoError(t, w.Write(Direction(i%2), []byte{byte(i), byte(j)}))
			}
		}(i)
	}
	wg.Wait()

	r, err := NewReader(&buf)
	require.NoError(t, err)
	count := 0
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		require.Len(t, rec.Data, 2)
		count++
	}
	assert.Equal(t, 400, count)
}

func TestConn(t *testing.T) {
	sim := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 3001}
	sock := network.NewMockUDPSocket([]network.MockUDPPacket{{Data: []byte("sensors"), Addr: sim}})

	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	conn := NewConn(sock, w)

	_, err = conn.WriteToUDP([]byte("command"), sim)
	require.NoError(t, err)

	b := make([]byte, 64)
	n, _, err := conn.ReadFromUDP(b)
	require.NoError(t, err)
	assert.Equal(t, "sensors", string(b[:n]))

	_, _, err = conn.ReadFromUDP(b)
	assert.True(t, network.IsTimeout(err))

	r, err := NewReader(&buf)
	require.NoError(t, err)
	first, err := r.Next()
	require.NoError(t, err)
	second, err := r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF, "timeouts are not logged")

	assert.Equal(t, Record{Direction: Output, Data: []byte("command")}, first)
	assert.Equal(t, Record{Direction: Input, Data: []byte("sensors")}, second)
	assert.Len(t, sock.SentPackets(), 1)
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "input", Input.String())
	assert.Equal(t, "output", Output.String())
	assert.Equal(t, "Direction(7)", Direction(7).String())
}
