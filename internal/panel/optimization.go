package panel

// OptimizationFigure builds the grouped bar chart of allocated load and
// energy consumption per server, in payload order.
func OptimizationFigure(records []OptimizationRecord) Figure {
	labels := make([]any, len(records))
	load := make([]any, len(records))
	energy := make([]any, len(records))

	for i, rec := range records {
		labels[i] = ServerLabel(rec.ServerID)
		load[i] = rec.AllocatedLoad
		energy[i] = rec.EnergyConsumption
	}

	// the two traces share the label slice; it is never mutated after this
	return Figure{
		Data: []Trace{
			{Type: TraceBar, Name: "Allocated Load", X: labels, Y: load},
			{Type: TraceBar, Name: "Energy Consumption", X: labels, Y: energy},
		},
		Layout: Layout{
			Title:   "Load Optimization Results",
			XAxis:   Axis{Title: "Server"},
			YAxis:   Axis{Title: "Load / Energy"},
			BarMode: "group",
		},
	}
}
