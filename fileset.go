package tileio

import (
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/scigolib/tileio/internal/format"
)

// FileEntry is one physical file owning frames [StartIdx, EndIdx) of the
// on-disk frame sequence.
type FileEntry struct {
	_msgpack struct{} `msgpack:",as_array"`

	Path        string
	StartIdx    int
	EndIdx      int
	HeaderBytes int64
}

// NumFrames returns EndIdx - StartIdx.
func (e FileEntry) NumFrames() int { return e.EndIdx - e.StartIdx }

func (e FileEntry) info() format.FileInfo {
	return format.FileInfo{Path: e.Path, NumFrames: e.NumFrames(), HeaderBytes: e.HeaderBytes}
}

// FileSet is an ordered, contiguous, non-overlapping list of files covering
// physical frames [0, TotalFrames()). It is immutable once built.
type FileSet struct {
	entries []FileEntry
}

// NewFileSet assigns frame ranges to files by cumulative frame count in the
// given order. framesPerFile is called once per path; an error or a zero
// count fails with a *FileSetError.
func NewFileSet(paths []string, framesPerFile func(path string) (int, error)) (*FileSet, error) {
	infos := make([]format.FileInfo, len(paths))
	for i, p := range paths {
		infos[i] = format.FileInfo{Path: p}
	}
	return buildFileSet(infos, func(fi format.FileInfo) (int, error) {
		return framesPerFile(fi.Path)
	})
}

func buildFileSet(files []format.FileInfo, count func(format.FileInfo) (int, error)) (*FileSet, error) {
	if len(files) == 0 {
		return nil, &FileSetError{Reason: "no files"}
	}

	entries := make([]FileEntry, 0, len(files))
	start := 0
	for _, fi := range files {
		n, err := count(fi)
		if err != nil {
			return nil, &FileSetError{Path: fi.Path, Reason: "unreadable", Cause: err}
		}
		if n <= 0 {
			return nil, &FileSetError{Path: fi.Path, Reason: "contains no frames"}
		}
		entries = append(entries, FileEntry{
			Path:        fi.Path,
			StartIdx:    start,
			EndIdx:      start + n,
			HeaderBytes: fi.HeaderBytes,
		})
		start += n
	}
	return &FileSet{entries: entries}, nil
}

// Len returns the number of files.
func (fs *FileSet) Len() int { return len(fs.entries) }

// Entries returns a copy of the file entries.
func (fs *FileSet) Entries() []FileEntry {
	return append([]FileEntry(nil), fs.entries...)
}

// Paths returns the file paths in frame order.
func (fs *FileSet) Paths() []string {
	paths := make([]string, len(fs.entries))
	for i, e := range fs.entries {
		paths[i] = e.Path
	}
	return paths
}

// TotalFrames returns the number of physical frames.
func (fs *FileSet) TotalFrames() int {
	if len(fs.entries) == 0 {
		return 0
	}
	return fs.entries[len(fs.entries)-1].EndIdx
}

// FilesForRange returns, in ascending order, every entry whose frame range
// intersects [start, end). Ranges reaching past the last file return the
// files that do exist.
func (fs *FileSet) FilesForRange(start, end int) []FileEntry {
	start = max(start, 0)
	if end <= start {
		return nil
	}
	first := sort.Search(len(fs.entries), func(i int) bool {
		return fs.entries[i].EndIdx > start
	})
	var out []FileEntry
	for i := first; i < len(fs.entries) && fs.entries[i].StartIdx < end; i++ {
		out = append(out, fs.entries[i])
	}
	return out
}

// FileForFrame returns the entry holding the physical frame idx.
func (fs *FileSet) FileForFrame(idx int) (FileEntry, bool) {
	if idx < 0 || idx >= fs.TotalFrames() {
		return FileEntry{}, false
	}
	i := sort.Search(len(fs.entries), func(i int) bool {
		return fs.entries[i].EndIdx > idx
	})
	return fs.entries[i], true
}

// MarshalBinary encodes the file set compactly for shipping to workers.
func (fs *FileSet) MarshalBinary() ([]byte, error) {
	return msgpack.Marshal(fs.entries)
}

// UnmarshalBinary decodes a file set and re-checks its invariants.
func (fs *FileSet) UnmarshalBinary(data []byte) error {
	var entries []FileEntry
	if err := msgpack.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("decode fileset: %w", err)
	}
	if err := checkEntries(entries); err != nil {
		return err
	}
	fs.entries = entries
	return nil
}

func checkEntries(entries []FileEntry) error {
	if len(entries) == 0 {
		return &FileSetError{Reason: "no files"}
	}
	next := 0
	for _, e := range entries {
		if e.StartIdx != next {
			return &FileSetError{Path: e.Path, Reason: fmt.Sprintf("starts at frame %d, expected %d", e.StartIdx, next)}
		}
		if e.EndIdx <= e.StartIdx {
			return &FileSetError{Path: e.Path, Reason: "contains no frames"}
		}
		next = e.EndIdx
	}
	return nil
}
