package plot

import "github.com/samber/lo"

// ScrollDepth is the number of frames kept in live-scroll mode.
const ScrollDepth = 100

// Frame is one decoded sample vector.
type Frame struct {
	Elapsed float64 // seconds since the capture clock started
	Values  []float64
}

// Buffer holds the frames of a session in arrival order. A positive depth
// caps it, evicting the oldest frame first.
type Buffer struct {
	frames []Frame
	depth  int
}

func NewBuffer(depth int) *Buffer {
	return &Buffer{depth: depth}
}

func (b *Buffer) Append(f Frame) {
	if b.depth > 0 && len(b.frames) >= b.depth {
		n := copy(b.frames, b.frames[len(b.frames)-b.depth+1:])
		b.frames = b.frames[:n]
	}
	b.frames = append(b.frames, f)
}

func (b *Buffer) Reset()          { b.frames = b.frames[:0] }
func (b *Buffer) Len() int        { return len(b.frames) }
func (b *Buffer) Frames() []Frame { return b.frames }

// Times returns the elapsed time of every frame.
func (b *Buffer) Times() []float64 {
	return lo.Map(b.frames, func(f Frame, _ int) float64 { return f.Elapsed })
}

// Column returns channel c (0-based) across all frames.
func (b *Buffer) Column(c int) []float64 {
	return lo.Map(b.frames, func(f Frame, _ int) float64 { return f.Values[c] })
}
