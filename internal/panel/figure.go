package panel

import "slices"

// Trace types and modes understood by the browser's plotting library.
const (
	TraceScatter = "scatter"
	TraceBar     = "bar"

	ModeLinesMarkers = "lines+markers"
)

// Figure is a complete chart: the traces and layout handed to newPlot.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace is one plotted series.
//
// X holds time.Time or string values depending on the axis. A nil entry in Y
// is a gap and encodes as JSON null.
type Trace struct {
	Type string `json:"type"`
	Mode string `json:"mode,omitempty"`
	Name string `json:"name"`
	X    []any  `json:"x"`
	Y    []any  `json:"y"`
}

// Layout holds the figure title, axis titles and bar grouping.
type Layout struct {
	Title   string `json:"title"`
	XAxis   Axis   `json:"xaxis"`
	YAxis   Axis   `json:"yaxis"`
	BarMode string `json:"barmode,omitempty"`
}

// Axis describes one chart axis.
type Axis struct {
	Title string `json:"title"`
}

// Clone returns a copy of f that shares no slices with it. The X and Y
// entries themselves are values (numbers, strings, time.Time) and are copied
// as such.
func (f *Figure) Clone() *Figure {
	if f == nil {
		return nil
	}
	out := &Figure{Layout: f.Layout}
	if f.Data != nil {
		out.Data = make([]Trace, len(f.Data))
		for i, tr := range f.Data {
			tr.X = slices.Clone(tr.X)
			tr.Y = slices.Clone(tr.Y)
			out.Data[i] = tr
		}
	}
	return out
}
