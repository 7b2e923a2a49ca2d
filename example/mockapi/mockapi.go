// Package mockapi serves a stand-in for the load-optimisation API.
//
// Three servers with fixed capacities and efficiencies report random usage
// on every request. The optimisation endpoint fills the most efficient
// servers first with the total of a fresh usage sample, and the prediction
// endpoint returns a random load between 50 and 300.
package mockapi

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// timestampLayout has no zone, like the upstream service's naive timestamps.
const timestampLayout = "2006-01-02T15:04:05.000000"

// Server describes one machine of the simulated fleet.
type Server struct {
	ID         int
	Capacity   int
	Efficiency float64
}

// DefaultFleet is the simulated fleet. Its capacities sum to 450.
var DefaultFleet = []Server{
	{ID: 1, Capacity: 100, Efficiency: 0.8},
	{ID: 2, Capacity: 150, Efficiency: 0.7},
	{ID: 3, Capacity: 200, Efficiency: 0.9},
}

// UsageRecord is one element of GET /api/usage_data.
type UsageRecord struct {
	ServerID          int     `json:"server_id"`
	Timestamp         string  `json:"timestamp"`
	Usage             int     `json:"usage"`
	EnergyConsumption float64 `json:"energy_consumption"`
}

// Allocation is one element of GET /api/optimize.
type Allocation struct {
	ServerID          int     `json:"server_id"`
	AllocatedLoad     int     `json:"allocated_load"`
	EnergyConsumption float64 `json:"energy_consumption"`
}

// Prediction is the body of GET /api/predict_load.
type Prediction struct {
	PredictedLoad int `json:"predicted_load"`
}

// API generates the mock datasets.
type API struct {
	fleet  []Server
	now    func() time.Time
	logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates an API over fleet. A nil rng uses a randomly seeded source.
func New(fleet []Server, rng *rand.Rand, logger *slog.Logger) *API {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &API{fleet: fleet, now: time.Now, logger: logger, rng: rng}
}

// Handler returns the HTTP handler serving the three endpoints.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/usage_data", func(w http.ResponseWriter, r *http.Request) {
			a.writeJSON(w, a.Usage())
		})
		r.Get("/optimize", func(w http.ResponseWriter, r *http.Request) {
			total := 0
			for _, u := range a.Usage() {
				total += u.Usage
			}
			a.writeJSON(w, Optimize(a.fleet, total))
		})
		r.Get("/predict_load", func(w http.ResponseWriter, r *http.Request) {
			a.writeJSON(w, a.Predict())
		})
	})

	return r
}

// Usage samples a random usage between 0 and capacity for every server.
func (a *API) Usage() []UsageRecord {
	ts := a.now().Format(timestampLayout)

	a.mu.Lock()
	defer a.mu.Unlock()

	records := make([]UsageRecord, len(a.fleet))
	for i, s := range a.fleet {
		usage := a.rng.IntN(s.Capacity + 1)
		records[i] = UsageRecord{
			ServerID:          s.ID,
			Timestamp:         ts,
			Usage:             usage,
			EnergyConsumption: float64(usage) / s.Efficiency,
		}
	}
	return records
}

// Predict returns a random load between 50 and 300 inclusive.
func (a *API) Predict() Prediction {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Prediction{PredictedLoad: 50 + a.rng.IntN(251)}
}

// Optimize spreads load over the fleet, filling the most efficient servers
// first up to their capacity. Every server appears in the result; servers
// left without load get zero load and zero energy.
func Optimize(fleet []Server, load int) []Allocation {
	sorted := append([]Server(nil), fleet...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Efficiency > sorted[j].Efficiency
	})

	out := make([]Allocation, 0, len(sorted))
	remaining := load
	for _, s := range sorted {
		if remaining <= 0 {
			out = append(out, Allocation{ServerID: s.ID})
			continue
		}
		allocated := min(remaining, s.Capacity)
		out = append(out, Allocation{
			ServerID:          s.ID,
			AllocatedLoad:     allocated,
			EnergyConsumption: float64(allocated) / s.Efficiency,
		})
		remaining -= allocated
	}
	return out
}

func (a *API) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("failed to encode response", "error", err)
	}
}
