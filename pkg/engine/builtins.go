package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/aerofuse/pkg/assembly"
	"github.com/chazu/aerofuse/pkg/kernel"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a model-space point.
type sexpVec3 struct {
	p kernel.Point
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.p[0], v.p[1], v.p[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpVec2 wraps a profile point in the XZ plane.
type sexpVec2 struct {
	p [2]float64
}

func (v *sexpVec2) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec2 %g %g)", v.p[0], v.p[1])
}
func (v *sexpVec2) Type() *zygo.RegisteredType { return nil }

// sexpGeometry wraps the result of (box ...) or (prism ...) so it can be
// consumed by (component ...).
type sexpGeometry struct {
	g assembly.Geometry
}

func (g *sexpGeometry) SexpString(ps *zygo.PrintState) string {
	switch v := g.g.(type) {
	case assembly.BoxGeometry:
		return fmt.Sprintf("(box :min %v :max %v)", v.Min, v.Max)
	case assembly.PrismGeometry:
		return fmt.Sprintf("(prism %d points :from %g :to %g)", len(v.Profile), v.From, v.To)
	}
	return "(geometry)"
}
func (g *sexpGeometry) Type() *zygo.RegisteredType { return nil }

// sexpComponentRef is returned by (component ...) and accepted by :parent.
type sexpComponentRef struct {
	uid string
}

func (c *sexpComponentRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(component %q)", c.uid)
}
func (c *sexpComponentRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			// Keyword at end with no value: treat as flag with nil.
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// unknownKeywords reports keywords outside allowed.
func (a kwArgs) unknownKeywords(allowed ...string) error {
	for k := range a.kw {
		found := false
		for _, name := range allowed {
			if k == name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown keyword :%s", k)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_xz) and plain strings ("xz").
func toKeywordString(s zygo.Sexp) (string, error) {
	if name, ok := isKW(s); ok {
		return name, nil
	}
	str, err := toString(s)
	if err != nil {
		return "", fmt.Errorf("expected keyword or string: %w", err)
	}
	return str, nil
}

// toUID extracts a component UID from a string or a component reference.
func toUID(s zygo.Sexp) (string, error) {
	if ref, ok := s.(*sexpComponentRef); ok {
		return ref.uid, nil
	}
	uid, err := toString(s)
	if err != nil {
		return "", fmt.Errorf("expected component or uid: %w", err)
	}
	return uid, nil
}

func toVec3(s zygo.Sexp) (kernel.Point, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.p, nil
	}
	return kernel.Point{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toVec2(s zygo.Sexp) ([2]float64, error) {
	if v, ok := s.(*sexpVec2); ok {
		return v.p, nil
	}
	return [2]float64{}, fmt.Errorf("expected vec2, got %T (%s)", s, s.SexpString(nil))
}

func toGeometry(s zygo.Sexp) (assembly.Geometry, error) {
	if g, ok := s.(*sexpGeometry); ok {
		return g.g, nil
	}
	return nil, fmt.Errorf("expected box or prism, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the model DSL into a zygomys environment. The
// builtins populate m during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, m *assembly.Model) {

	// -----------------------------------------------------------------------
	// (aircraft "D150")
	// -----------------------------------------------------------------------
	env.AddFunction("aircraft", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("aircraft requires exactly one uid argument")
		}
		uid, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("aircraft: uid: %w", err)
		}
		m.UID = uid
		return &zygo.SexpStr{S: uid}, nil
	})

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var p kernel.Point
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			p[i] = f
		}
		return &sexpVec3{p: p}, nil
	})

	// -----------------------------------------------------------------------
	// (vec2 x z)
	// -----------------------------------------------------------------------
	env.AddFunction("vec2", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("vec2 requires exactly 2 arguments, got %d", len(args))
		}
		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: x: %w", err)
		}
		z, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: z: %w", err)
		}
		return &sexpVec2{p: [2]float64{x, z}}, nil
	})

	// -----------------------------------------------------------------------
	// (box :min (vec3 0 -1 -1) :max (vec3 10 1 1))
	// (box :min (vec3 0 -1 -1) :size (vec3 10 2 2))
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.unknownKeywords("min", "max", "size"); err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		v, ok := pa.kw["min"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("box requires :min")
		}
		min, err := toVec3(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: min: %w", err)
		}

		var max kernel.Point
		maxArg, hasMax := pa.kw["max"]
		sizeArg, hasSize := pa.kw["size"]
		switch {
		case hasMax && hasSize:
			return zygo.SexpNull, fmt.Errorf("box takes :max or :size, not both")
		case hasMax:
			if max, err = toVec3(maxArg); err != nil {
				return zygo.SexpNull, fmt.Errorf("box: max: %w", err)
			}
		case hasSize:
			size, err := toVec3(sizeArg)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: size: %w", err)
			}
			max = kernel.Point{min[0] + size[0], min[1] + size[1], min[2] + size[2]}
		default:
			return zygo.SexpNull, fmt.Errorf("box requires :max or :size")
		}
		return &sexpGeometry{g: assembly.BoxGeometry{Min: min, Max: max}}, nil
	})

	// -----------------------------------------------------------------------
	// (prism :profile (list (vec2 3 -0.2) (vec2 5 -0.2) (vec2 4 0.2))
	//        :from 0.5 :to 8)
	// -----------------------------------------------------------------------
	env.AddFunction("prism", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.unknownKeywords("profile", "from", "to"); err != nil {
			return zygo.SexpNull, fmt.Errorf("prism: %w", err)
		}
		var g assembly.PrismGeometry

		v, ok := pa.kw["profile"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("prism requires :profile")
		}
		items, err := sexpListToSlice(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("prism: profile: %w", err)
		}
		for i, item := range items {
			p, err := toVec2(item)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("prism: profile point %d: %w", i, err)
			}
			g.Profile = append(g.Profile, p)
		}

		for _, kw := range []struct {
			name string
			dst  *float64
		}{{"from", &g.From}, {"to", &g.To}} {
			v, ok := pa.kw[kw.name]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("prism requires :%s", kw.name)
			}
			if *kw.dst, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("prism: %s: %w", kw.name, err)
			}
		}
		return &sexpGeometry{g: g}, nil
	})

	// -----------------------------------------------------------------------
	// (translate (box ...) (vec3 dx dy dz))
	// -----------------------------------------------------------------------
	env.AddFunction("translate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("translate requires a geometry and an offset")
		}
		g, err := toGeometry(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: %w", err)
		}
		d, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: offset: %w", err)
		}
		return &sexpGeometry{g: translateGeometry(g, d)}, nil
	})

	// -----------------------------------------------------------------------
	// (component "wing" (prism ...) :parent "fuselage" :short "W1"
	//            :symmetry :xz :kind :wing)
	// -----------------------------------------------------------------------
	env.AddFunction("component", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("component requires a uid and a geometry")
		}
		if err := pa.unknownKeywords("parent", "short", "symmetry", "kind"); err != nil {
			return zygo.SexpNull, fmt.Errorf("component: %w", err)
		}
		uid, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("component: uid: %w", err)
		}
		geom, err := toGeometry(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("component %s: %w", uid, err)
		}
		c := &assembly.Component{UID: uid, Geometry: geom}

		if v, ok := pa.kw["parent"]; ok {
			if c.Parent, err = toUID(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("component %s: parent: %w", uid, err)
			}
		}
		if v, ok := pa.kw["short"]; ok {
			if c.ShortName, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("component %s: short: %w", uid, err)
			}
		}
		if v, ok := pa.kw["symmetry"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("component %s: symmetry: %w", uid, err)
			}
			if c.Symmetry, err = assembly.ParseSymmetry(s); err != nil {
				return zygo.SexpNull, fmt.Errorf("component %s: %w", uid, err)
			}
		}
		if v, ok := pa.kw["kind"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("component %s: kind: %w", uid, err)
			}
			if c.Kind, err = assembly.ParseKind(s); err != nil {
				return zygo.SexpNull, fmt.Errorf("component %s: %w", uid, err)
			}
		}

		m.Add(c)
		return &sexpComponentRef{uid: uid}, nil
	})

	// -----------------------------------------------------------------------
	// (farfield :type :half-cube :reference-length 10 :multiplier 3)
	// -----------------------------------------------------------------------
	env.AddFunction("farfield", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.unknownKeywords("type", "reference-length", "multiplier"); err != nil {
			return zygo.SexpNull, fmt.Errorf("farfield: %w", err)
		}
		ff := assembly.FarField{Multiplier: 1}

		v, ok := pa.kw["type"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("farfield requires :type")
		}
		s, err := toKeywordString(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("farfield: type: %w", err)
		}
		if ff.Type, err = assembly.ParseFarFieldType(s); err != nil {
			return zygo.SexpNull, fmt.Errorf("farfield: %w", err)
		}
		if v, ok := pa.kw["reference-length"]; ok {
			if ff.ReferenceLength, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("farfield: reference-length: %w", err)
			}
		}
		if v, ok := pa.kw["multiplier"]; ok {
			if ff.Multiplier, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("farfield: multiplier: %w", err)
			}
		}

		m.FarField = ff
		return zygo.SexpNull, nil
	})
}

// translateGeometry moves g by d.
func translateGeometry(g assembly.Geometry, d kernel.Point) assembly.Geometry {
	switch v := g.(type) {
	case assembly.BoxGeometry:
		for i := range d {
			v.Min[i] += d[i]
			v.Max[i] += d[i]
		}
		return v
	case assembly.PrismGeometry:
		profile := make([][2]float64, len(v.Profile))
		for i, p := range v.Profile {
			profile[i] = [2]float64{p[0] + d[0], p[1] + d[2]}
		}
		v.Profile = profile
		v.From += d[1]
		v.To += d[1]
		return v
	}
	return g
}
