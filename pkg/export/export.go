// Package export writes fused aircraft geometry to exchange formats: STL
// for the closed surface, DXF for face outlines and intersection curves,
// and a JSON scene for viewers.
package export

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/aerofuse/pkg/kernel"
	"github.com/chazu/aerofuse/pkg/named"
)

// ErrNothingToExport is returned when the shape to export is null.
var ErrNothingToExport = errors.New("nothing to export")

// Format is an output file format.
type Format int

const (
	FormatSTL Format = iota
	FormatDXF
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatSTL:
		return "stl"
	case FormatDXF:
		return "dxf"
	case FormatJSON:
		return "json"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".stl":
		return FormatSTL, nil
	case ".dxf":
		return FormatDXF, nil
	case ".json":
		return FormatJSON, nil
	}
	return 0, fmt.Errorf("unsupported output format %q", filepath.Ext(path))
}

// Job is one file to write.
type Job struct {
	Format Format
	Path   string
}

// FarFieldLayer is the DXF layer and scene part name of the far field.
const FarFieldLayer = "FARFIELD"

// Result is what gets exported.
type Result struct {
	Shape         *named.Shape
	Intersections []*named.Shape
	// FarField is the far field with the aircraft cut away, nil unless the
	// far field was trimmed.
	FarField *named.Shape
	// Trimmed holds the trimmed parent and children of every fuse step.
	Trimmed []*named.Shape
}

// Write runs one job.
func Write(job Job, r Result, k kernel.Kernel) error {
	switch job.Format {
	case FormatSTL:
		return WriteSTL(job.Path, r.Shape, k)
	case FormatDXF:
		return WriteDXF(job.Path, r, k)
	case FormatJSON:
		return WriteJSON(job.Path, r, k)
	}
	return fmt.Errorf("unsupported format %s", job.Format)
}

// WriteAll writes every job concurrently. The first failure cancels jobs
// that have not started yet.
func WriteAll(ctx context.Context, jobs []Job, r Result, k kernel.Kernel, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	eg, egCtx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		job := job
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			if err := Write(job, r, k); err != nil {
				return err
			}
			logger.Info("wrote output",
				zap.String("format", job.Format.String()),
				zap.String("path", job.Path))
			return nil
		})
	}
	return eg.Wait()
}
