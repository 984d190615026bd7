package format

import (
	"errors"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// MappedFile serves frames from a read-only memory mapping of a whole file.
type MappedFile struct {
	path        string
	f           *os.File
	m           mmap.MMap
	headerBytes int64
	prefix      int64
	frameBytes  int64
	numFrames   int
}

// OpenMapped maps file read-only using the record geometry of layout.
func OpenMapped(file FileInfo, layout *Layout) (*MappedFile, error) {
	//nolint:gosec // G304: dataset paths are user-provided by design
	f, err := os.Open(file.Path)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	need := file.HeaderBytes + int64(file.NumFrames)*layout.RecordBytes()
	if fi.Size() < need {
		_ = f.Close()
		return nil, fmt.Errorf("file %s is %d bytes, need %d for %d frames",
			file.Path, fi.Size(), need, file.NumFrames)
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("mmap %s: %w", file.Path, err)
	}

	return &MappedFile{
		path:        file.Path,
		f:           f,
		m:           m,
		headerBytes: file.HeaderBytes,
		prefix:      layout.FramePrefix,
		frameBytes:  int64(layout.FrameBytes()),
		numFrames:   file.NumFrames,
	}, nil
}

// ReadFrame implements FrameFile.
func (mf *MappedFile) ReadFrame(local int, dst []byte) error {
	if mf.m == nil {
		return errors.New("frame file is closed")
	}
	if local < 0 || local >= mf.numFrames {
		return fmt.Errorf("frame %d out of range [0, %d)", local, mf.numFrames)
	}
	if int64(len(dst)) != mf.frameBytes {
		return fmt.Errorf("destination is %d bytes, frame is %d", len(dst), mf.frameBytes)
	}

	start := mf.headerBytes + int64(local)*(mf.prefix+mf.frameBytes) + mf.prefix
	copy(dst, mf.m[start:start+mf.frameBytes])
	return nil
}

// Close unmaps and closes the file. It is safe to call Close multiple times.
func (mf *MappedFile) Close() error {
	if mf.m == nil {
		return nil
	}
	err := mf.m.Unmap()
	mf.m = nil
	if cerr := mf.f.Close(); err == nil {
		err = cerr
	}
	return err
}
