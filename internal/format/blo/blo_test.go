package blo

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scigolib/tileio/internal/format"
	mock "github.com/scigolib/tileio/internal/testing"
)

func testHeader() *Header {
	return &Header{DataOffset1: HeaderSize, DataOffset2: 256, DPSize: 4, NX: 3, NY: 2}
}

func writeBlo(t *testing.T, h *Header, frames int) string {
	t.Helper()
	head, err := h.MarshalBinary()
	require.NoError(t, err)

	record := FramePrefix + int(h.DPSize)*int(h.DPSize)
	buf := make([]byte, int(h.DataOffset2)+frames*record)
	copy(buf, head)
	for f := 0; f < frames; f++ {
		off := int(h.DataOffset2) + f*record + FramePrefix
		for p := 0; p < int(h.DPSize)*int(h.DPSize); p++ {
			buf[off+p] = byte(f)
		}
	}
	p := filepath.Join(t.TempDir(), "scan.blo")
	require.NoError(t, os.WriteFile(p, buf, 0o600))
	return p
}

func TestHeaderRoundTrip(t *testing.T) {
	h := testHeader()
	data, err := h.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, HeaderSize)
	require.Equal(t, uint16(Magic), binary.LittleEndian.Uint16(data[6:]))

	got, err := ReadHeader(mock.NewMockReaderAt(data))
	require.NoError(t, err)
	require.Equal(t, h, got)
	require.Equal(t, 6, got.ImageCount())
}

func TestReadHeaderErrors(t *testing.T) {
	good, err := testHeader().MarshalBinary()
	require.NoError(t, err)

	t.Run("bad magic", func(t *testing.T) {
		data := append([]byte(nil), good...)
		binary.LittleEndian.PutUint16(data[6:], 1)
		_, err := ReadHeader(mock.NewMockReaderAt(data))
		require.ErrorIs(t, err, ErrBadMagic)
	})

	t.Run("empty geometry", func(t *testing.T) {
		data := append([]byte(nil), good...)
		binary.LittleEndian.PutUint16(data[20:], 0)
		_, err := ReadHeader(mock.NewMockReaderAt(data))
		require.ErrorContains(t, err, "empty geometry")
	})

	t.Run("data offset inside header", func(t *testing.T) {
		data := append([]byte(nil), good...)
		binary.LittleEndian.PutUint32(data[12:], 10)
		_, err := ReadHeader(mock.NewMockReaderAt(data))
		require.ErrorContains(t, err, "inside header")
	})

	t.Run("read failure", func(t *testing.T) {
		r := mock.NewMockReaderAt(good)
		boom := errors.New("boom")
		r.FailFrom(20, boom)
		_, err := ReadHeader(r)
		require.ErrorIs(t, err, boom)
	})

	t.Run("short", func(t *testing.T) {
		_, err := ReadHeader(mock.NewMockReaderAt(good[:4]))
		require.Error(t, err)
	})
}

func TestDetect(t *testing.T) {
	p := writeBlo(t, testHeader(), 6)

	params, ok := Backend{}.Detect(p)
	require.True(t, ok)
	require.Equal(t, map[string]any{"path": p}, params)

	_, ok = Backend{}.Detect("nofile.someext")
	require.False(t, ok)

	other := filepath.Join(t.TempDir(), "other.blo")
	require.NoError(t, os.WriteFile(other, make([]byte, 128), 0o600))
	_, ok = Backend{}.Detect(other)
	require.False(t, ok)
}

func TestScanCountOpen(t *testing.T) {
	p := writeBlo(t, testHeader(), 6)
	ctx := context.Background()

	layout, err := Backend{}.Scan(ctx, format.Request{Path: p})
	require.NoError(t, err)
	require.Equal(t, []int{2, 3}, layout.NavShape)
	require.Equal(t, []int{4, 4}, layout.SigShape)
	require.Equal(t, int64(FramePrefix+16), layout.RecordBytes())

	n, err := Backend{}.CountFrames(layout.Files[0], layout)
	require.NoError(t, err)
	require.Equal(t, 6, n)

	fi := layout.Files[0]
	fi.NumFrames = n
	ff, err := Backend{}.Open(fi, layout)
	require.NoError(t, err)
	defer ff.Close()

	dst := make([]byte, 16)
	require.NoError(t, ff.ReadFrame(5, dst))
	for _, v := range dst {
		require.Equal(t, byte(5), v)
	}
}

func TestCountFramesTruncated(t *testing.T) {
	p := writeBlo(t, testHeader(), 4)

	layout, err := Backend{}.Scan(context.Background(), format.Request{Files: []string{p}})
	require.NoError(t, err)

	n, err := Backend{}.CountFrames(layout.Files[0], layout)
	require.NoError(t, err)
	require.Equal(t, 4, n)
}

func TestScanRequiresPath(t *testing.T) {
	_, err := Backend{}.Scan(context.Background(), format.Request{Files: []string{"a.blo", "b.blo"}})
	require.Error(t, err)
}
