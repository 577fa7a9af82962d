package kernel

import "math"

// SimplifyProfile returns a copy of a closed 2D polygon without repeated
// vertices and without vertices lying within tol of the segment joining
// their neighbours. A vertex that doubles back along that line is kept.
func SimplifyProfile(profile [][2]float64, tol float64) [][2]float64 {
	pts := append([][2]float64(nil), profile...)
	for changed := true; changed; {
		changed = false
		for i := 0; i < len(pts) && len(pts) >= 3; i++ {
			n := len(pts)
			if onSegment(pts[(i+n-1)%n], pts[i], pts[(i+1)%n], tol) {
				pts = append(pts[:i], pts[i+1:]...)
				changed = true
				i--
			}
		}
	}
	return pts
}

// onSegment reports whether b lies within tol of the segment a-c.
func onSegment(a, b, c [2]float64, tol float64) bool {
	acx, acy := c[0]-a[0], c[1]-a[1]
	abx, aby := b[0]-a[0], b[1]-a[1]
	l := math.Hypot(acx, acy)
	if l <= tol {
		return math.Hypot(abx, aby) <= tol
	}
	if math.Abs(acx*aby-acy*abx)/l > tol {
		return false
	}
	t := (abx*acx + aby*acy) / (l * l)
	return t >= -tol/l && t <= 1+tol/l
}

// ConvexProfile reports whether a closed 2D polygon, once simplified with
// SimplifyProfile, has at least three vertices and turns strictly the same
// way at each of them. Both windings are accepted.
func ConvexProfile(profile [][2]float64, tol float64) bool {
	pts := SimplifyProfile(profile, tol)
	n := len(pts)
	if n < 3 {
		return false
	}
	sign := 0.0
	for i := range pts {
		a, b, c := pts[i], pts[(i+1)%n], pts[(i+2)%n]
		cross := (b[0]-a[0])*(c[1]-b[1]) - (b[1]-a[1])*(c[0]-b[0])
		if cross == 0 || sign*cross < 0 {
			return false
		}
		sign = cross
	}
	return true
}
