package assembly

import (
	"errors"
	"fmt"

	"github.com/chazu/aerofuse/pkg/fuseplane"
	"github.com/chazu/aerofuse/pkg/lazy"
	"github.com/chazu/aerofuse/pkg/named"
)

// ErrUnsupportedFarField is returned for far-field types the kernel cannot
// build.
var ErrUnsupportedFarField = errors.New("unsupported far field")

// FarFieldName is the name given to far-field faces.
const FarFieldName = "FARFIELD"

// Configuration exposes a model as the component tree consumed by
// fuseplane. Lofts are built on first use and cached. Duct components
// and their subtrees are left out of the tree.
type Configuration struct {
	reg   *named.Registry
	model *Model
	roots []fuseplane.Component

	farField lazy.Value[*named.Shape]
}

// Build validates m and wraps it for fusing in reg. It fails with an
// *InvalidModelError when validation reports errors; warnings are
// ignored.
func Build(reg *named.Registry, m *Model) (*Configuration, error) {
	var errs []ValidationError
	for _, e := range Validate(m) {
		if e.Severity == SeverityError {
			errs = append(errs, e)
		}
	}
	if len(errs) > 0 {
		return nil, &InvalidModelError{Errors: errs}
	}
	cfg := &Configuration{reg: reg, model: m}
	cfg.roots = cfg.wrap(m.Roots())
	return cfg, nil
}

func (cfg *Configuration) wrap(cs []*Component) []fuseplane.Component {
	var out []fuseplane.Component
	for _, c := range cs {
		if c.Kind == KindDuct {
			continue
		}
		out = append(out, &component{
			cfg:      cfg,
			def:      c,
			children: cfg.wrap(cfg.model.Children(c.UID)),
		})
	}
	return out
}

// Model returns the wrapped model.
func (cfg *Configuration) Model() *Model { return cfg.model }

func (cfg *Configuration) UID() string { return cfg.model.UID }

func (cfg *Configuration) RootComponents() []fuseplane.Component { return cfg.roots }

// FarField builds the far-field solid, nil when the model has none.
func (cfg *Configuration) FarField() (*named.Shape, error) {
	return cfg.farField.Get(func() (*named.Shape, error) {
		s, err := cfg.model.FarField.Build(cfg.reg.Kernel())
		if err != nil || s == nil {
			return nil, err
		}
		return cfg.reg.New(s, FarFieldName), nil
	})
}

// component adapts a Component to fuseplane.Component.
type component struct {
	cfg      *Configuration
	def      *Component
	children []fuseplane.Component

	loft     lazy.Value[*named.Shape]
	mirrored lazy.Value[*named.Shape]
}

func (c *component) UID() string { return c.def.UID }

func (c *component) Children() []fuseplane.Component { return c.children }

// Loft builds the component solid, named after the component.
func (c *component) Loft() (*named.Shape, error) {
	return c.loft.Get(func() (*named.Shape, error) {
		s, err := c.def.Geometry.Build(c.cfg.reg.Kernel())
		if err != nil {
			return nil, fmt.Errorf("%s (%s): %w", c.def.UID, c.def.Source, err)
		}
		out := c.cfg.reg.New(s, c.def.UID)
		if c.def.ShortName != "" {
			out.SetShortName(c.def.ShortName)
		}
		return out, nil
	})
}

// MirroredLoft mirrors the loft across the symmetry plane. Every face of
// the image points back to the face it mirrors.
func (c *component) MirroredLoft() (*named.Shape, error) {
	return c.mirrored.Get(func() (*named.Shape, error) {
		if c.def.Symmetry == SymmetryNone {
			return nil, nil
		}
		loft, err := c.Loft()
		if err != nil {
			return nil, err
		}
		k := c.cfg.reg.Kernel()
		out := c.cfg.reg.New(k.Mirror(loft.Shape(), c.def.Symmetry.Plane()), loft.Name())
		out.SetShortName(loft.ShortName())
		for i := 0; i < out.FaceCount(); i++ {
			out.SetFaceTraits(i, named.FaceTraits{Name: loft.Name(), Origin: loft.Handle(), Index: i})
		}
		return out, nil
	})
}
