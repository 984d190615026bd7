// Package main provides a command-line utility to inspect detector datasets.
// It prints the dataset layout and dumps the payload of one frame in hex.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/scigolib/tileio"
	"github.com/scigolib/tileio/internal/dtype"
)

func main() {
	config := flag.String("config", "", "YAML file with loader parameters")
	formatName := flag.String("format", "", "Dataset format (detected when empty)")
	frame := flag.Int("frame", 0, "Logical frame to dump")
	length := flag.Int("length", 128, "Number of bytes to dump")
	verbose := flag.Bool("v", false, "Log at debug level")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var params tileio.Params
	if *config != "" {
		data, err := os.ReadFile(*config)
		if err != nil {
			log.Fatalf("Failed to read config: %v", err)
		}
		if params, err = tileio.LoadParamsYAML(data); err != nil {
			log.Fatalf("Failed to parse config: %v", err)
		}
	}

	args := flag.Args()
	if len(args) < 1 && params.Path == "" && len(params.Files) == 0 {
		fmt.Println("Usage: dump_frames [flags] <path>")
		fmt.Println("Flags:")
		flag.PrintDefaults()
		return
	}
	path := ""
	if len(args) > 0 {
		path = args[0]
	}

	if *length < 1 {
		log.Fatalf("Invalid length: %d", *length)
	}

	ctx := context.Background()
	exec := tileio.NewInlineExecutor(logger)

	name := *formatName
	if name == "" {
		target := path
		if target == "" {
			target = firstInput(params)
		}
		res, ok, err := tileio.DetectFormat(ctx, exec, target)
		if err != nil {
			log.Fatalf("Failed to detect format: %v", err)
		}
		if !ok {
			log.Fatalf("Cannot detect the format of %s, pass -format", target)
		}
		detected, err := tileio.ParamsFromMap(res.Parameters)
		if err != nil {
			log.Fatalf("Failed to use detected parameters: %v", err)
		}
		name = res.Format
		params = mergeParams(params, detected)
	}
	if path != "" && params.Path == "" && len(params.Files) == 0 {
		params.Path = path
	}

	ds, err := tileio.Load(ctx, exec, name, params, tileio.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}

	if err := describe(os.Stdout, ds); err != nil {
		log.Fatalf("Failed to describe dataset: %v", err)
	}

	data, ok, err := tileio.PickFrame(ctx, ds, *frame)
	if err != nil {
		log.Fatalf("Failed to read frame %d: %v", *frame, err)
	}
	if !ok {
		fmt.Printf("Frame %d is not present in the data.\n", *frame)
		return
	}

	dt, err := dtype.Parse(ds.DType())
	if err != nil {
		log.Fatalf("Unsupported dtype: %v", err)
	}
	buf := make([]byte, len(data)*dt.ItemSize)
	if err := dt.Encode(data, buf); err != nil {
		log.Fatalf("Failed to encode frame: %v", err)
	}
	if *length < len(buf) {
		buf = buf[:*length]
	}

	fmt.Printf("Dumping %d bytes of frame %d (%s):\n", len(buf), *frame, dt)
	hexDump(os.Stdout, buf, 0)
}

// firstInput returns the path or first file named by params.
func firstInput(p tileio.Params) string {
	if p.Path != "" {
		return p.Path
	}
	if len(p.Files) > 0 {
		return p.Files[0]
	}
	return ""
}

// mergeParams fills the inputs of p from detected when p names none.
func mergeParams(p, detected tileio.Params) tileio.Params {
	if p.Path == "" && len(p.Files) == 0 {
		p.Path = detected.Path
		p.Files = detected.Files
	}
	if len(p.NavShape) == 0 {
		p.NavShape = detected.NavShape
	}
	if len(p.SigShape) == 0 {
		p.SigShape = detected.SigShape
	}
	if p.DType == "" {
		p.DType = detected.DType
	}
	return p
}

func describe(w io.Writer, ds *tileio.Dataset) error {
	fmt.Fprintln(w, ds)
	for _, kv := range ds.Diagnostics() {
		fmt.Fprintf(w, "  %-12s %s\n", kv.Name+":", kv.Value)
	}
	for _, msg := range ds.Warnings() {
		fmt.Fprintf(w, "  warning: %s\n", msg)
	}
	for p := range ds.Partitions() {
		fmt.Fprintf(w, "  %s\n", p)
	}
	key, err := ds.CacheKeyJSON()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  cache key: %s\n", key)
	return nil
}

func hexDump(w io.Writer, buf []byte, base int64) {
	n := len(buf)
	for i := 0; i < n; i += 16 {
		end := min(i+16, n)
		chunk := buf[i:end]

		fmt.Fprintf(w, "%08x: ", base+int64(i))
		for j := 0; j < 16; j++ {
			if j < len(chunk) {
				fmt.Fprintf(w, "%02x ", chunk[j])
			} else {
				fmt.Fprint(w, "   ")
			}
			if j == 7 {
				fmt.Fprint(w, " ")
			}
		}
		fmt.Fprint(w, " |")

		for _, b := range chunk {
			if b >= 32 && b <= 126 {
				fmt.Fprintf(w, "%c", b)
			} else {
				fmt.Fprint(w, ".")
			}
		}
		fmt.Fprintln(w, "|")
	}
}
