package fuseplane

import "fmt"

// ResultMode selects whether components are mirrored and whether the
// aircraft is trimmed to the far field. Only the four package values
// exist; the zero value is HalfPlane.
type ResultMode struct {
	mirrored bool
	trimFF   bool
}

var (
	HalfPlane          = ResultMode{}
	FullPlane          = ResultMode{mirrored: true}
	HalfPlaneTrimmedFF = ResultMode{trimFF: true}
	FullPlaneTrimmedFF = ResultMode{mirrored: true, trimFF: true}
)

// Modes lists every result mode.
var Modes = []ResultMode{HalfPlane, FullPlane, HalfPlaneTrimmedFF, FullPlaneTrimmedFF}

// Mirrored reports whether symmetric components are merged with their
// mirror image.
func (m ResultMode) Mirrored() bool { return m.mirrored }

// TrimmedFarField reports whether the aircraft is trimmed to the far field.
func (m ResultMode) TrimmedFarField() bool { return m.trimFF }

func (m ResultMode) String() string {
	switch {
	case m.mirrored && m.trimFF:
		return "full-plane-trimmed-ff"
	case m.mirrored:
		return "full-plane"
	case m.trimFF:
		return "half-plane-trimmed-ff"
	default:
		return "half-plane"
	}
}

// ParseMode returns the result mode whose String form is s.
func ParseMode(s string) (ResultMode, error) {
	for _, m := range Modes {
		if m.String() == s {
			return m, nil
		}
	}
	return HalfPlane, fmt.Errorf("unknown result mode %q", s)
}
