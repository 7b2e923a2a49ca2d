package panel

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestOptimizationFigure(t *testing.T) {
	got := OptimizationFigure(scenarioOptimized())

	want := Figure{
		Data: []Trace{
			{Type: "bar", Name: "Allocated Load", X: []any{"Server 1", "Server 2"}, Y: []any{40.0, 25.0}},
			{Type: "bar", Name: "Energy Consumption", X: []any{"Server 1", "Server 2"}, Y: []any{8.0, 4.0}},
		},
		Layout: Layout{
			Title:   "Load Optimization Results",
			XAxis:   Axis{Title: "Server"},
			YAxis:   Axis{Title: "Load / Energy"},
			BarMode: "group",
		},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("OptimizationFigure() mismatch (-want +got):\n%s", diff)
	}
}

func TestOptimizationFigure_Empty(t *testing.T) {
	fig := OptimizationFigure(nil)
	if len(fig.Data) != 2 {
		t.Fatalf("OptimizationFigure(nil) has %d traces, want 2", len(fig.Data))
	}
	for _, tr := range fig.Data {
		if len(tr.X) != 0 || len(tr.Y) != 0 {
			t.Errorf("trace %q should be empty, got x=%v y=%v", tr.Name, tr.X, tr.Y)
		}
	}
}

func TestPredictionFigure(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	fig := PredictionFigure(now, Prediction(75))

	if len(fig.Data) != 1 {
		t.Fatalf("PredictionFigure() has %d traces, want 1", len(fig.Data))
	}
	tr := fig.Data[0]

	want := Trace{
		Type: "scatter",
		Mode: "lines+markers",
		Name: "Predicted Load",
		X:    []any{now, now.Add(3600000 * time.Millisecond)},
		Y:    []any{nil, 75.0},
	}
	if diff := cmp.Diff(want, tr); diff != "" {
		t.Errorf("prediction trace mismatch (-want +got):\n%s", diff)
	}

	if fig.Layout.Title != "Load Prediction (Next Hour)" {
		t.Errorf("Layout.Title = %q", fig.Layout.Title)
	}
}

func TestPredictionFigure_AlwaysTwoPointsOneHourApart(t *testing.T) {
	for _, load := range []float64{0, -3, 1e9} {
		now := time.Now()
		tr := PredictionFigure(now, Prediction(load)).Data[0]

		if len(tr.X) != 2 || len(tr.Y) != 2 {
			t.Fatalf("load %v: got %d x / %d y points, want 2/2", load, len(tr.X), len(tr.Y))
		}
		first, second := tr.X[0].(time.Time), tr.X[1].(time.Time)
		if second.Sub(first) != time.Hour {
			t.Errorf("load %v: spacing = %v, want 1h", load, second.Sub(first))
		}
		if tr.Y[0] != nil {
			t.Errorf("load %v: first y = %v, want nil", load, tr.Y[0])
		}
		if tr.Y[1] != load {
			t.Errorf("load %v: second y = %v", load, tr.Y[1])
		}
	}
}

func TestPredictionFigure_MissingLoadIsAGap(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for _, body := range []string{`{}`, `{"predicted_load": null}`} {
		var result PredictionResult
		if err := json.Unmarshal([]byte(body), &result); err != nil {
			t.Fatalf("json.Unmarshal(%s) error = %v", body, err)
		}

		tr := PredictionFigure(now, result).Data[0]
		if diff := cmp.Diff([]any{nil, nil}, tr.Y); diff != "" {
			t.Errorf("%s: y mismatch (-want +got):\n%s", body, diff)
		}
		if len(tr.X) != 2 {
			t.Errorf("%s: got %d x points, want 2", body, len(tr.X))
		}
	}
}

func TestFigure_JSONShape(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	data, err := json.Marshal(PredictionFigure(now, Prediction(75)))
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	var decoded struct {
		Data []struct {
			X []string   `json:"x"`
			Y []*float64 `json:"y"`
		} `json:"data"`
		Layout map[string]any `json:"layout"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	y := decoded.Data[0].Y
	if y[0] != nil || y[1] == nil || *y[1] != 75 {
		t.Errorf("y = %v, want [null, 75]", y)
	}
	if decoded.Data[0].X[1] != "2024-01-01T01:00:00Z" {
		t.Errorf("x[1] = %q", decoded.Data[0].X[1])
	}
	if _, ok := decoded.Layout["barmode"]; ok {
		t.Error("barmode should be omitted for line charts")
	}
}

func TestFigure_Clone(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	orig := PredictionFigure(now, Prediction(75))

	clone := orig.Clone()
	if diff := cmp.Diff(&orig, clone); diff != "" {
		t.Fatalf("Clone() mismatch (-want +got):\n%s", diff)
	}

	clone.Data[0].Name = "changed"
	clone.Data[0].X[0] = "changed"
	clone.Data[0].Y[1] = 1.0
	clone.Data = append(clone.Data, Trace{Name: "extra"})
	clone.Layout.Title = "changed"

	if orig.Data[0].Name != "Predicted Load" || orig.Data[0].X[0] != now || orig.Data[0].Y[1] != 75.0 {
		t.Errorf("original trace changed through the clone: %+v", orig.Data[0])
	}
	if len(orig.Data) != 1 || orig.Layout.Title != "Load Prediction (Next Hour)" {
		t.Errorf("original figure changed through the clone: %+v", orig)
	}

	var nilFig *Figure
	if nilFig.Clone() != nil {
		t.Error("Clone() of nil figure should be nil")
	}
}
