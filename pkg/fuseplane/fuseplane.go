// Package fuseplane fuses a whole component tree into one aircraft solid.
//
// Children are fused into their parent depth first. In full-plane modes
// every component is first merged with its mirror image, and in trimmed
// modes the aircraft is finally trimmed to the far field. The curves where
// components meet are collected along the way.
package fuseplane

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/chazu/aerofuse/pkg/boolops"
	"github.com/chazu/aerofuse/pkg/lazy"
	"github.com/chazu/aerofuse/pkg/named"
)

// AircraftShortName is the short name of the fused result.
const AircraftShortName = "AIRCRAFT"

// Component is one node of the assembly tree.
type Component interface {
	UID() string
	// Loft returns the component solid. It is never modified.
	Loft() (*named.Shape, error)
	// MirroredLoft returns the mirror image of the component, or nil when
	// the component has no symmetry.
	MirroredLoft() (*named.Shape, error)
	Children() []Component
}

// Configuration is the root of an assembly tree.
type Configuration interface {
	UID() string
	RootComponents() []Component
	// FarField returns the far-field solid, or nil when there is none.
	FarField() (*named.Shape, error)
}

// FusePlane fuses every component of a configuration. The result is
// computed on first access and cached until the result mode changes.
type FusePlane struct {
	ctx    *boolops.Context
	config Configuration
	mode   ResultMode

	result lazy.Value[*planeResult]
}

type planeResult struct {
	fused         *named.Shape
	intersections []*named.Shape
	farField      *named.Shape
	trimmed       []*named.Shape
}

// New returns a FusePlane over config in HalfPlane mode.
func New(ctx *boolops.Context, config Configuration) *FusePlane {
	return &FusePlane{ctx: ctx, config: config, mode: HalfPlane}
}

// ResultMode returns the current result mode.
func (p *FusePlane) ResultMode() ResultMode { return p.mode }

// SetResultMode changes the result mode. A different mode drops the
// cached result.
func (p *FusePlane) SetResultMode(m ResultMode) {
	if m == p.mode {
		return
	}
	p.mode = m
	p.result.Invalidate()
}

// FusedPlane returns the fused aircraft, named after the configuration.
// It is nil when the configuration has no root components.
func (p *FusePlane) FusedPlane() (*named.Shape, error) {
	r, err := p.result.Get(p.perform)
	if err != nil {
		return nil, err
	}
	return r.fused, nil
}

// Intersections returns every intersection curve of the pass.
func (p *FusePlane) Intersections() ([]*named.Shape, error) {
	r, err := p.result.Get(p.perform)
	if err != nil {
		return nil, err
	}
	return r.intersections, nil
}

// FarField returns the far field with the aircraft cut away. It is nil
// unless the mode trims the far field and the configuration has one.
func (p *FusePlane) FarField() (*named.Shape, error) {
	r, err := p.result.Get(p.perform)
	if err != nil {
		return nil, err
	}
	return r.farField, nil
}

// TrimmedComponents returns the trimmed parent and children of every fuse
// step, in the order the steps ran.
func (p *FusePlane) TrimmedComponents() ([]*named.Shape, error) {
	r, err := p.result.Get(p.perform)
	if err != nil {
		return nil, err
	}
	return r.trimmed, nil
}

func (p *FusePlane) perform() (*planeResult, error) {
	log := p.ctx.Logger
	if log == nil {
		log = zap.NewNop()
	}
	uid := p.config.UID()
	roots := p.config.RootComponents()
	if len(roots) == 0 {
		log.Warn("configuration has no root components", zap.String("configuration", uid))
		return &planeResult{}, nil
	}

	ps := &pass{ctx: p.ctx, mode: p.mode}
	fused, err := ps.fuseWithChildren(nil, roots)
	if err != nil {
		return nil, fmt.Errorf("fuse %s: %w", uid, err)
	}
	res := &planeResult{trimmed: ps.trimmed}

	if p.mode.TrimmedFarField() && !fused.IsNull() {
		ff, err := p.config.FarField()
		if err != nil {
			return nil, fmt.Errorf("far field of %s: %w", uid, err)
		}
		if !ff.IsNull() {
			fused, res.farField, err = ps.trimFarField(fused, ff)
			if err != nil {
				return nil, fmt.Errorf("trim %s to far field: %w", uid, err)
			}
		}
	}

	for i, s := range ps.intersections {
		s.SetShortName(boolops.IntersectionShortName(i + 1))
	}
	res.intersections = ps.intersections

	if !fused.IsNull() {
		fused = fused.Clone()
		fused.SetName(uid)
		fused.SetShortName(AircraftShortName)
	}
	res.fused = fused
	log.Debug("fused plane",
		zap.String("configuration", uid),
		zap.Stringer("mode", p.mode),
		zap.Int("faces", fused.FaceCount()),
		zap.Int("intersections", len(res.intersections)),
	)
	return res, nil
}
