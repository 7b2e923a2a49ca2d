package panel

import (
	"bytes"
	"html/template"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultTotalCapacity is the summed capacity of all servers, in usage units.
const DefaultTotalCapacity = 450

// Summary holds the aggregate figures shown in the metrics panel.
//
// Denominators are not guarded: zero capacity or zero usage-side energy
// yields NaN or an infinity, which [FormatFixed] renders verbatim.
type Summary struct {
	TotalUsage                 float64
	TotalCapacity              float64
	UtilizationRate            float64
	TotalEnergyConsumption     float64
	OptimizedEnergyConsumption float64
	EnergySavings              float64
}

// ComputeSummary aggregates the usage and optimisation datasets.
func ComputeSummary(usage []UsageRecord, optimized []OptimizationRecord, totalCapacity float64) Summary {
	var totalUsage, totalEnergy, optimizedEnergy float64
	for _, rec := range usage {
		totalUsage += rec.Usage
		totalEnergy += rec.EnergyConsumption
	}
	for _, rec := range optimized {
		optimizedEnergy += rec.EnergyConsumption
	}

	return Summary{
		TotalUsage:                 totalUsage,
		TotalCapacity:              totalCapacity,
		UtilizationRate:            totalUsage / totalCapacity * 100,
		TotalEnergyConsumption:     totalEnergy,
		OptimizedEnergyConsumption: optimizedEnergy,
		EnergySavings:              (totalEnergy - optimizedEnergy) / totalEnergy * 100,
	}
}

// FormatFixed formats f with exactly digits fractional digits.
//
// Rounding is half away from zero on the exact binary value of f, so 0.125
// becomes "0.13" while 1.005 (stored as 1.00499...) becomes "1.00". A negative
// f keeps its sign even when it rounds to zero ("-0.00"). NaN and infinities
// are written as "NaN", "Infinity" and "-Infinity".
//
// Magnitudes of 1e21 and above are written in shortest exponent form
// ("1e+21") and ignore digits, matching the browser.
func FormatFixed(f float64, digits int32) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.Abs(f) >= 1e21:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}

	// 1074 fractional digits represent any float64 exactly
	exact := new(big.Float).SetFloat64(f).Text('f', 1074)
	d, err := decimal.NewFromString(exact)
	if err != nil {
		d = decimal.NewFromFloat(f)
	}

	out := d.StringFixed(digits)
	if f < 0 && !strings.HasPrefix(out, "-") {
		out = "-" + out
	}
	return out
}

// Card is one summary tile of the metrics panel.
type Card struct {
	Title string
	Value string
}

// Cards returns the three metrics tiles in display order.
func (s Summary) Cards() []Card {
	return []Card{
		{Title: "Server Utilization Rate", Value: FormatFixed(s.UtilizationRate, 2) + "%"},
		{Title: "Energy Savings", Value: FormatFixed(s.EnergySavings, 2) + "%"},
		{Title: "Total Energy Consumption", Value: FormatFixed(s.TotalEnergyConsumption, 2) + " kWh"},
	}
}

var cardsTemplate = template.Must(template.New("cards").Parse(`{{range .}}
<div class="metric-card">
    <h3>{{.Title}}</h3>
    <p class="metric-value">{{.Value}}</p>
</div>{{end}}
`))

// HTML renders the metrics tiles as markup for the metrics container.
func (s Summary) HTML() (string, error) {
	var buf bytes.Buffer
	if err := cardsTemplate.Execute(&buf, s.Cards()); err != nil {
		return "", err
	}
	return buf.String(), nil
}
