package panel

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

// Container IDs of the four dashboard panels.
const (
	UsageChartID        = "usage-chart"
	OptimizationChartID = "optimization-chart"
	PredictionChartID   = "prediction-chart"
	MetricsContainerID  = "metrics-container"
)

// ServerID identifies a server in upstream payloads.
//
// The API may send either a JSON number or a JSON string. Two IDs are equal
// only when their JSON tokens are equal, so 1 and "1" are distinct servers.
type ServerID struct {
	raw   string // canonical JSON token, used for equality
	label string // display form
}

// NewServerID returns a numeric server ID.
func NewServerID(n int) ServerID {
	s := strconv.Itoa(n)
	return ServerID{raw: s, label: s}
}

// String returns the display form of the ID, without JSON quoting.
// A missing ID renders as "undefined", as it would in the browser.
func (id ServerID) String() string {
	if id.raw == "" {
		return "undefined"
	}
	return id.label
}

// Equal reports whether both IDs came from the same JSON token.
func (id ServerID) Equal(other ServerID) bool {
	return id.raw == other.raw
}

// UnmarshalJSON accepts a JSON number, string or null.
func (id *ServerID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty server_id")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		quoted, _ := json.Marshal(s)
		*id = ServerID{raw: string(quoted), label: s}
	case 'n':
		*id = ServerID{raw: "null", label: "null"}
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		// normalise so 1, 1.0 and 1e0 compare equal
		f, err := n.Float64()
		if err != nil {
			return err
		}
		s := strconv.FormatFloat(f, 'f', -1, 64)
		*id = ServerID{raw: s, label: s}
	}
	return nil
}

// MarshalJSON writes the ID back in its original JSON kind.
func (id ServerID) MarshalJSON() ([]byte, error) {
	if id.raw == "" {
		return []byte("null"), nil
	}
	return []byte(id.raw), nil
}

// Timestamp is an instant decoded from the API's ISO 8601 strings.
//
// Date-only strings are UTC midnight and other strings without a zone offset
// are local time, as a browser reads them. A value that cannot be parsed
// decodes to the zero time instead of failing the payload.
type Timestamp struct {
	time.Time
}

// timestampLayouts are tried in order when decoding. Layouts with local set
// are read in time.Local; the rest carry their own zone or are UTC.
var timestampLayouts = []struct {
	layout string
	local  bool
}{
	{time.RFC3339Nano, false},
	{"2006-01-02T15:04Z07:00", false},
	{"2006-01-02T15:04:05.999999999", true},
	{"2006-01-02T15:04", true},
	{"2006-01-02 15:04:05.999999999", true},
	{"2006-01-02 15:04", true},
	{"2006-01-02", false},
	{"2006-01", false},
	{"2006", false},
}

// UnmarshalJSON parses a timestamp string, tolerating unknown formats.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// non-string values become an invalid date
		t.Time = time.Time{}
		return nil
	}
	t.Time = ParseTimestamp(s)
	return nil
}

// ParseTimestamp parses s using the supported layouts and returns the zero
// time if none match.
func ParseTimestamp(s string) time.Time {
	for _, l := range timestampLayouts {
		loc := time.UTC
		if l.local {
			loc = time.Local
		}
		if ts, err := time.ParseInLocation(l.layout, s, loc); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// UsageRecord is one element of the /api/usage_data array.
type UsageRecord struct {
	ServerID          ServerID  `json:"server_id"`
	Timestamp         Timestamp `json:"timestamp"`
	Usage             float64   `json:"usage"`
	EnergyConsumption float64   `json:"energy_consumption"`
}

// OptimizationRecord is one element of the /api/optimize array.
type OptimizationRecord struct {
	ServerID          ServerID `json:"server_id"`
	AllocatedLoad     float64  `json:"allocated_load"`
	EnergyConsumption float64  `json:"energy_consumption"`
}

// PredictionResult is the /api/predict_load object.
//
// PredictedLoad is nil when the field is missing or null; the chart then
// shows a gap instead of a zero.
type PredictionResult struct {
	PredictedLoad *float64 `json:"predicted_load"`
}

// Prediction returns a result carrying load.
func Prediction(load float64) PredictionResult {
	return PredictionResult{PredictedLoad: &load}
}
