package plot

import "github.com/samber/lo"

const boundsMargin = 0.1

// Bounds are the observed data extents of a live figure.
type Bounds struct {
	XMin, XMax float64
	YMin, YMax float64
	set        bool
}

// Empty reports whether no frame has been included yet.
func (b Bounds) Empty() bool { return !b.set }

// Include widens the bounds to cover f and reports whether they changed.
// Bounds never shrink.
func (b *Bounds) Include(f Frame) bool {
	if len(f.Values) == 0 {
		return false
	}
	lowY, highY := lo.Min(f.Values), lo.Max(f.Values)
	if !b.set {
		*b = Bounds{XMin: f.Elapsed, XMax: f.Elapsed, YMin: lowY, YMax: highY, set: true}
		return true
	}
	changed := false
	if f.Elapsed < b.XMin {
		b.XMin, changed = f.Elapsed, true
	}
	if f.Elapsed > b.XMax {
		b.XMax, changed = f.Elapsed, true
	}
	if lowY < b.YMin {
		b.YMin, changed = lowY, true
	}
	if highY > b.YMax {
		b.YMax, changed = highY, true
	}
	return changed
}

// WindowBounds computes the extents of frames from scratch.
func WindowBounds(frames []Frame) Bounds {
	var b Bounds
	for _, f := range frames {
		b.Include(f)
	}
	return b
}

// Limits pads the bounds by 10% of each range. With legendRoom the upper y
// margin is doubled to leave space for the legend.
func (b Bounds) Limits(legendRoom bool) (xlo, xhi, ylo, yhi float64) {
	ex := (b.XMax - b.XMin) * boundsMargin
	ey := (b.YMax - b.YMin) * boundsMargin
	top := ey
	if legendRoom {
		top = 2 * ey
	}
	return b.XMin - ex, b.XMax + ex, b.YMin - ey, b.YMax + top
}
