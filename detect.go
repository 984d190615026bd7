package tileio

import (
	"context"

	"github.com/scigolib/tileio/internal/format"
)

// DetectResult is a successful format sniff.
type DetectResult struct {
	Format     string
	Parameters map[string]any
}

// DetectParams sniffs path for formatName through exec. It returns false,
// not an error, when the path does not match the format.
func DetectParams(ctx context.Context, exec Executor, formatName, path string) (*DetectResult, bool, error) {
	backend, ok := format.Lookup(formatName)
	if !ok {
		return nil, false, ErrUnknownFormat
	}

	res, err := exec.RunFunction(ctx, func(context.Context) (any, error) {
		params, ok := backend.Detect(path)
		if !ok {
			return nil, nil
		}
		return params, nil
	})
	if err != nil {
		return nil, false, err
	}
	params, _ := res.(map[string]any)
	if params == nil {
		return nil, false, nil
	}
	return &DetectResult{Format: formatName, Parameters: params}, true, nil
}

// DetectFormat tries every registered format in name order and returns the
// first match.
func DetectFormat(ctx context.Context, exec Executor, path string) (*DetectResult, bool, error) {
	for _, name := range format.Names() {
		res, ok, err := DetectParams(ctx, exec, name, path)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return res, true, nil
		}
	}
	return nil, false, nil
}
