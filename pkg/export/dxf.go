package export

import (
	"fmt"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"

	"github.com/chazu/aerofuse/pkg/kernel"
	"github.com/chazu/aerofuse/pkg/named"
)

// layerColors cycles through the basic ACI colours, skipping white.
var layerColors = []color.ColorNumber{
	color.Red, color.Yellow, color.Green, color.Cyan, color.Blue, color.Magenta,
}

// dxfWriter adds layers to a drawing on demand.
type dxfWriter struct {
	d      *drawing.Drawing
	layers map[string]bool
}

func newDXFWriter() *dxfWriter {
	return &dxfWriter{d: dxf.NewDrawing(), layers: make(map[string]bool)}
}

// layer makes name the current layer, creating it on first use.
func (w *dxfWriter) layer(name string) error {
	if w.layers[name] {
		return w.d.ChangeLayer(name)
	}
	c := layerColors[len(w.layers)%len(layerColors)]
	if _, err := w.d.AddLayer(name, c, dxf.DefaultLineType, true); err != nil {
		return fmt.Errorf("layer %q: %w", name, err)
	}
	w.layers[name] = true
	return nil
}

func (w *dxfWriter) segments(segs []kernel.Segment) error {
	for _, s := range segs {
		a, b := s[0], s[1]
		if _, err := w.d.Line(a[0], a[1], a[2], b[0], b[1], b[2]); err != nil {
			return err
		}
	}
	return nil
}

// faces writes the outline of every face of s on one layer.
func (w *dxfWriter) faces(layer string, s *named.Shape, k kernel.Kernel) error {
	if err := w.layer(layer); err != nil {
		return err
	}
	for i, f := range s.Faces() {
		if err := w.segments(k.Edges(f)); err != nil {
			return fmt.Errorf("%s face %d: %w", layer, i, err)
		}
	}
	return nil
}

// TrimmedLayer names the layer of the i-th trimmed part.
func TrimmedLayer(i int, part *named.Shape) string {
	return fmt.Sprintf("TRIMMED_%02d_%s", i+1, part.Name())
}

// WriteDXF writes face outlines and intersection curves of r as 3D lines.
// Faces of the fused shape go on one layer per face name, each
// intersection gets a layer named after it, the far field remainder goes
// on FarFieldLayer and every trimmed part on its TrimmedLayer.
func WriteDXF(path string, r Result, k kernel.Kernel) error {
	if r.Shape.IsNull() && len(r.Intersections) == 0 && r.FarField.IsNull() {
		return fmt.Errorf("dxf: %w", ErrNothingToExport)
	}
	w := newDXFWriter()

	for i, f := range r.Shape.Faces() {
		if err := w.layer(r.Shape.FaceTraits(i).Name); err != nil {
			return fmt.Errorf("dxf: %w", err)
		}
		if err := w.segments(k.Edges(f)); err != nil {
			return fmt.Errorf("dxf: face %d: %w", i, err)
		}
	}
	for _, c := range r.Intersections {
		if c.IsNull() {
			continue
		}
		if err := w.layer(c.Name()); err != nil {
			return fmt.Errorf("dxf: %w", err)
		}
		if err := w.segments(k.Edges(c.Shape())); err != nil {
			return fmt.Errorf("dxf: intersection %s: %w", c.Name(), err)
		}
	}
	if !r.FarField.IsNull() {
		if err := w.faces(FarFieldLayer, r.FarField, k); err != nil {
			return fmt.Errorf("dxf: %w", err)
		}
	}
	for i, part := range r.Trimmed {
		if part.IsNull() {
			continue
		}
		if err := w.faces(TrimmedLayer(i, part), part, k); err != nil {
			return fmt.Errorf("dxf: %w", err)
		}
	}

	if err := w.d.SaveAs(path); err != nil {
		return fmt.Errorf("dxf: save %s: %w", path, err)
	}
	return nil
}

// WriteShapeDXF writes every edge of a bare kernel shape on one layer.
func WriteShapeDXF(path, layer string, s kernel.Shape, k kernel.Kernel) error {
	if s == nil {
		return fmt.Errorf("dxf: %w", ErrNothingToExport)
	}
	w := newDXFWriter()
	if err := w.layer(layer); err != nil {
		return fmt.Errorf("dxf: %w", err)
	}
	if err := w.segments(k.Edges(s)); err != nil {
		return fmt.Errorf("dxf: %s: %w", layer, err)
	}
	if err := w.d.SaveAs(path); err != nil {
		return fmt.Errorf("dxf: save %s: %w", path, err)
	}
	return nil
}
