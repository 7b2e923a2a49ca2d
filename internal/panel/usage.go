package panel

// ServerGroup is the subset of usage records belonging to one server.
type ServerGroup struct {
	ServerID ServerID
	Records  []UsageRecord
}

// GroupByServer partitions records by server ID.
//
// Groups appear in order of each server's first record, and records keep
// their relative order within a group. The union of all groups is exactly the
// input. A nil or empty input yields no groups.
func GroupByServer(records []UsageRecord) []ServerGroup {
	index := make(map[string]int)
	var groups []ServerGroup

	for _, rec := range records {
		key := rec.ServerID.raw
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, ServerGroup{ServerID: rec.ServerID})
		}
		groups[i].Records = append(groups[i].Records, rec)
	}

	return groups
}

// ServerLabel is the display label used for a server on every chart.
func ServerLabel(id ServerID) string {
	return "Server " + id.String()
}

// UsageFigure builds the real-time usage chart: one line-plus-marker trace
// per server with timestamps on x and usage on y.
func UsageFigure(records []UsageRecord) Figure {
	groups := GroupByServer(records)
	traces := make([]Trace, 0, len(groups))

	for _, g := range groups {
		x := make([]any, len(g.Records))
		y := make([]any, len(g.Records))
		for i, rec := range g.Records {
			x[i] = rec.Timestamp.Time
			y[i] = rec.Usage
		}
		traces = append(traces, Trace{
			Type: TraceScatter,
			Mode: ModeLinesMarkers,
			Name: ServerLabel(g.ServerID),
			X:    x,
			Y:    y,
		})
	}

	return Figure{
		Data: traces,
		Layout: Layout{
			Title: "Real-time Server Usage",
			XAxis: Axis{Title: "Time"},
			YAxis: Axis{Title: "Usage"},
		},
	}
}
