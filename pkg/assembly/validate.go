package assembly

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/aerofuse/pkg/kernel"
)

// ValidationSeverity indicates whether a finding blocks fusing or is
// merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks fusing
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	UID      string             // offending component (empty if model-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.UID == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] component %s: %s", e.Severity, e.UID, e.Message)
}

// InvalidModelError is returned by Build when Validate reports errors.
type InvalidModelError struct {
	Errors []ValidationError
}

func (e *InvalidModelError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, v := range e.Errors {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("invalid model: %s", strings.Join(msgs, "; "))
}

// HasErrors reports whether errs contains an error-severity finding.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate runs every structural and geometric check on m and returns
// the findings. An empty slice means the model is valid. Validate never
// mutates the model.
func Validate(m *Model) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateUIDs(m)...)
	errs = append(errs, validateParents(m)...)
	errs = append(errs, validateTree(m)...)
	errs = append(errs, validateRoots(m)...)
	errs = append(errs, validateGeometry(m)...)
	errs = append(errs, validateSymmetry(m)...)
	errs = append(errs, validateFarField(m)...)
	return errs
}

func errorf(uid, format string, args ...any) ValidationError {
	return ValidationError{UID: uid, Message: fmt.Sprintf(format, args...), Severity: SeverityError}
}

func warnf(uid, format string, args ...any) ValidationError {
	return ValidationError{UID: uid, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning}
}

// validateUIDs checks every component has a unique, non-empty UID.
func validateUIDs(m *Model) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for i, c := range m.Components {
		if c.UID == "" {
			errs = append(errs, errorf("", "component %d has no uid", i))
			continue
		}
		if seen[c.UID] {
			errs = append(errs, errorf(c.UID, "duplicate uid"))
		}
		seen[c.UID] = true
	}
	return errs
}

// validateParents checks that every parent reference resolves.
func validateParents(m *Model) []ValidationError {
	var errs []ValidationError
	for _, c := range m.Components {
		switch {
		case c.Parent == "":
		case c.Parent == c.UID:
			errs = append(errs, errorf(c.UID, "component is its own parent"))
		case m.Lookup(c.Parent) == nil:
			errs = append(errs, errorf(c.UID, "parent %q does not exist", c.Parent))
		}
	}
	return errs
}

// validateTree checks for parent cycles using DFS with 3-color marking.
// White = unvisited, gray = on the current path, black = fully explored.
// Reaching a gray component means the parent chain loops.
func validateTree(m *Model) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int)
	var errs []ValidationError

	var visit func(c *Component) bool
	visit = func(c *Component) bool {
		switch color[c.UID] {
		case black:
			return false
		case gray:
			errs = append(errs, errorf(c.UID, "cycle detected: component %s is its own ancestor", c.UID))
			return true
		}
		color[c.UID] = gray
		if c.Parent != "" && c.Parent != c.UID {
			if p := m.Lookup(c.Parent); p != nil && visit(p) {
				return true
			}
		}
		color[c.UID] = black
		return false
	}

	for _, c := range m.Components {
		if color[c.UID] == white && visit(c) {
			// One cycle error is sufficient.
			break
		}
	}
	return errs
}

// validateRoots warns about a model nothing can be fused from.
func validateRoots(m *Model) []ValidationError {
	for _, c := range m.Roots() {
		if c.Kind != KindDuct {
			return nil
		}
	}
	return []ValidationError{warnf("", "model has no root components to fuse")}
}

// validateGeometry checks that every component has a non-degenerate solid.
func validateGeometry(m *Model) []ValidationError {
	var errs []ValidationError
	for _, c := range m.Components {
		switch g := c.Geometry.(type) {
		case nil:
			errs = append(errs, errorf(c.UID, "component has no geometry"))
		case BoxGeometry:
			for axis, name := range []string{"x", "y", "z"} {
				if d := g.Max[axis] - g.Min[axis]; d <= kernel.Confusion {
					errs = append(errs, errorf(c.UID, "box extent along %s is %.4f, must be positive", name, d))
				}
			}
		case PrismGeometry:
			if len(g.Profile) < 3 {
				errs = append(errs, errorf(c.UID, "prism profile has %d points, need at least 3", len(g.Profile)))
			} else if !kernel.ConvexProfile(g.Profile, kernel.Confusion) {
				errs = append(errs, errorf(c.UID, "prism profile is not convex"))
			}
			if math.Abs(g.To-g.From) <= kernel.Confusion {
				errs = append(errs, errorf(c.UID, "prism span is zero"))
			}
		}
	}
	return errs
}

// validateSymmetry rejects symmetric components that cross their own
// mirror plane: the component and its image would overlap.
func validateSymmetry(m *Model) []ValidationError {
	var errs []ValidationError
	for _, c := range m.Components {
		if c.Symmetry == SymmetryNone || c.Geometry == nil {
			continue
		}
		min, max := c.Geometry.Bounds()
		a := c.Symmetry.axis()
		if min[a] < -kernel.Confusion && max[a] > kernel.Confusion {
			errs = append(errs, errorf(c.UID, "component crosses its %s symmetry plane", c.Symmetry))
		}
	}
	return errs
}

// validateFarField checks the far field can be built and warns when it
// does not enclose the aircraft.
func validateFarField(m *Model) []ValidationError {
	ff := m.FarField
	switch ff.Type {
	case FarFieldNone:
		return nil
	case FarFieldHalfSphere, FarFieldFullSphere:
		return []ValidationError{errorf("", "far field type %s is not supported", ff.Type)}
	}
	if ff.ReferenceLength <= 0 || ff.Multiplier <= 0 {
		return []ValidationError{errorf("", "far field size %.4f x %.4f must be positive", ff.ReferenceLength, ff.Multiplier)}
	}
	var errs []ValidationError
	half := ff.Type == FarFieldHalfCube
	fmin, fmax := ff.Bounds()
	for _, c := range m.Components {
		if c.Geometry == nil || c.Kind == KindDuct {
			continue
		}
		min, max := c.Geometry.Bounds()
		for a := 0; a < 3; a++ {
			// A half far field cuts the aircraft at y = 0.
			below := min[a] < fmin[a] && !(half && a == 1)
			if below || max[a] > fmax[a] {
				errs = append(errs, warnf(c.UID, "component extends beyond the far field"))
				break
			}
		}
	}
	return errs
}
