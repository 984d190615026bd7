package tileio

import (
	"bytes"
	"sort"

	"gopkg.in/yaml.v3"
)

// Params are the loader parameters consumed by Initialize.
type Params struct {
	Path  string   `yaml:"path,omitempty"`
	Files []string `yaml:"files,omitempty"`

	NavShape []int `yaml:"nav_shape,omitempty"`
	SigShape []int `yaml:"sig_shape,omitempty"`
	// Deprecated: use NavShape.
	ScanSize []int `yaml:"scan_size,omitempty"`

	SyncOffset int    `yaml:"sync_offset,omitempty"`
	ROI        []bool `yaml:"roi,omitempty"`
	SameOffset bool   `yaml:"same_offset,omitempty"`

	// Raw backend.
	DType       string `yaml:"dtype,omitempty"`
	HeaderBytes int64  `yaml:"header_bytes,omitempty"`

	// Correction.
	Dark           []float64 `yaml:"dark,omitempty"`
	Gain           []float64 `yaml:"gain,omitempty"`
	ExcludedPixels [][]int   `yaml:"excluded_pixels,omitempty"`
}

// LoadParamsYAML decodes parameters from YAML. Unknown keys are rejected.
func LoadParamsYAML(data []byte) (Params, error) {
	var p Params
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Params{}, paramError("yaml: %v", err)
	}
	return p, nil
}

// ParamsFromMap converts a string-keyed loader mapping, as produced by
// JSON or YAML decoding or by DetectParams, into Params. Values are decoded
// with the same rules as LoadParamsYAML; unknown keys are rejected.
func ParamsFromMap(m map[string]any) (Params, error) {
	var p Params

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// One key at a time, so a failure names the offending parameter.
	for _, k := range keys {
		data, err := yaml.Marshal(map[string]any{k: m[k]})
		if err != nil {
			return Params{}, paramError("%s: %v", k, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return Params{}, paramError("%s: %v", k, err)
		}
	}
	return p, nil
}

// ToMap returns the non-empty parameters as a string-keyed mapping.
func (p Params) ToMap() map[string]any {
	m := map[string]any{}
	if p.Path != "" {
		m["path"] = p.Path
	}
	if len(p.Files) > 0 {
		m["files"] = append([]string(nil), p.Files...)
	}
	if len(p.NavShape) > 0 {
		m["nav_shape"] = append([]int(nil), p.NavShape...)
	}
	if len(p.SigShape) > 0 {
		m["sig_shape"] = append([]int(nil), p.SigShape...)
	}
	if p.SyncOffset != 0 {
		m["sync_offset"] = p.SyncOffset
	}
	if p.SameOffset {
		m["same_offset"] = true
	}
	if p.DType != "" {
		m["dtype"] = p.DType
	}
	if p.HeaderBytes != 0 {
		m["header_bytes"] = p.HeaderBytes
	}
	return m
}
