package tileio

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"maps"
)

// CacheKey returns the identity of the data this dataset reads: the format
// and every parameter that changes read results. Runtime hints such as the
// number of cores or the logger are excluded. Values are strings, numbers,
// booleans or lists of those.
func (d *Dataset) CacheKey() (map[string]any, error) {
	if d.src == nil {
		return nil, ErrNotInitialized
	}
	src := d.src

	key := map[string]any{}
	maps.Copy(key, d.extraKeys)
	key["type"] = d.format
	key["nav_shape"] = src.shape.Nav()
	key["sig_shape"] = src.shape.Sig()
	key["sync_offset"] = src.offset.Offset()
	key["image_count"] = src.offset.ImageCount()
	key["dtype"] = src.layout.DType.String()
	if len(d.params.Files) > 0 {
		key["files"] = src.fileset.Paths()
	} else {
		key["path"] = d.params.Path
	}
	if digest := src.correction.Digest(); digest != "" {
		key["correction"] = digest
	}
	if d.roi != nil {
		key["roi"] = maskDigest(d.roi.mask)
	}
	return key, nil
}

// CacheKeyJSON returns CacheKey as JSON. Object keys are sorted, so equal
// keys encode to identical bytes.
func (d *Dataset) CacheKeyJSON() ([]byte, error) {
	key, err := d.CacheKey()
	if err != nil {
		return nil, err
	}
	return json.Marshal(key)
}

func maskDigest(mask []bool) string {
	sum := sha256.Sum256(packMask(mask))
	return hex.EncodeToString(sum[:])
}
