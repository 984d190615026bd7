package tileio

// SyncOffset maps logical frame indices to physical ones.
//
// Logical frame i reads physical frame i+offset. Frames whose physical
// index falls outside [0, image_count) do not exist and are skipped
// silently; that is not an error.
type SyncOffset struct {
	offset     int
	imageCount int
}

// ValidateSyncOffset checks -imageCount < offset < imageCount.
func ValidateSyncOffset(offset, imageCount int) error {
	if offset <= -imageCount || offset >= imageCount {
		return &OffsetRangeError{Offset: offset, ImageCount: imageCount}
	}
	return nil
}

// NewSyncOffset validates offset against imageCount.
func NewSyncOffset(offset, imageCount int) (SyncOffset, error) {
	if err := ValidateSyncOffset(offset, imageCount); err != nil {
		return SyncOffset{}, err
	}
	return SyncOffset{offset: offset, imageCount: imageCount}, nil
}

// Offset returns the signed offset.
func (s SyncOffset) Offset() int { return s.offset }

// ImageCount returns the number of physical frames.
func (s SyncOffset) ImageCount() int { return s.imageCount }

// ToPhysical returns the physical frame for a logical one, and false when
// that frame does not exist.
func (s SyncOffset) ToPhysical(logical int) (int, bool) {
	p := logical + s.offset
	if p < 0 || p >= s.imageCount {
		return 0, false
	}
	return p, true
}

// PhysicalRange maps the logical range [start, end) to the physical frames
// it touches, clipped to [0, image_count). The result may be empty.
func (s SyncOffset) PhysicalRange(start, end int) (int, int) {
	ps := min(max(start+s.offset, 0), s.imageCount)
	pe := min(max(end+s.offset, 0), s.imageCount)
	return ps, pe
}
