package panel

import "time"

// PredictionHorizon is the distance between the two prediction points.
const PredictionHorizon = time.Hour

// PredictionFigure builds the next-hour prediction chart.
//
// The single trace always has two points: now with no value, and now plus
// one hour with the predicted load (also no value when the API omitted it).
func PredictionFigure(now time.Time, result PredictionResult) Figure {
	var predicted any
	if result.PredictedLoad != nil {
		predicted = *result.PredictedLoad
	}
	return Figure{
		Data: []Trace{{
			Type: TraceScatter,
			Mode: ModeLinesMarkers,
			Name: "Predicted Load",
			X:    []any{now, now.Add(PredictionHorizon)},
			Y:    []any{nil, predicted},
		}},
		Layout: Layout{
			Title: "Load Prediction (Next Hour)",
			XAxis: Axis{Title: "Time"},
			YAxis: Axis{Title: "Predicted Load"},
		},
	}
}
