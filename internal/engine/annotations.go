package engine

// Point is a position in normalized image coordinates (0..1 on both axes).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is an axis-aligned bounding box in normalized coordinates.
// ExtremePoints is set for boxes drawn in extreme-points mode.
type Box struct {
	Min           Point   `json:"min"`
	Max           Point   `json:"max"`
	ExtremePoints []Point `json:"extreme_points,omitempty"`
}

// FrameAnnotations holds everything recorded for one frame.
type FrameAnnotations struct {
	Frame    int     `json:"frame"`
	Source   string  `json:"source"`
	Boxes    []Box   `json:"boxes,omitempty"`
	Points   []Point `json:"points,omitempty"`
	Category string  `json:"category,omitempty"`
}

// Empty reports whether the frame carries no annotation.
func (f FrameAnnotations) Empty() bool {
	return len(f.Boxes) == 0 && len(f.Points) == 0 && f.Category == ""
}

// Annotations is the engine's full annotation set, ordered by frame.
type Annotations struct {
	Frames []FrameAnnotations `json:"frames"`
}

// Count returns the number of individual annotations across all frames.
func (a Annotations) Count() int {
	n := 0
	for _, f := range a.Frames {
		n += len(f.Boxes) + len(f.Points)
		if f.Category != "" {
			n++
		}
	}
	return n
}

// boundingBox returns the smallest box enclosing pts.
func boundingBox(pts []Point) Box {
	b := Box{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		if p.X < b.Min.X {
			b.Min.X = p.X
		}
		if p.Y < b.Min.Y {
			b.Min.Y = p.Y
		}
		if p.X > b.Max.X {
			b.Max.X = p.X
		}
		if p.Y > b.Max.Y {
			b.Max.Y = p.Y
		}
	}
	return b
}
