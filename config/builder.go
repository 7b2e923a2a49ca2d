package config

import (
	"sort"

	"github.com/jpalmerr/ecoboard"
)

// BuildOptions converts parsed configuration into SDK options.
//
// The returned options do not include a logger; callers append
// [ecoboard.WithLogger] themselves.
func BuildOptions(cfg *Config) []ecoboard.Option {
	opts := []ecoboard.Option{
		ecoboard.WithAPIBase(cfg.API.Base),
		ecoboard.WithPollingInterval(cfg.PollInterval.Duration()),
		ecoboard.WithRequestTimeout(cfg.API.Timeout.Duration()),
		ecoboard.WithPort(cfg.Port),
		ecoboard.WithTotalCapacity(cfg.TotalCapacity),
	}

	if cfg.Title != "" {
		opts = append(opts, ecoboard.WithTitle(cfg.Title))
	}

	if len(cfg.API.Headers) > 0 {
		opts = append(opts, ecoboard.WithHeaders(mapToKeyValuePairs(cfg.API.Headers)...))
	}

	return opts
}

// mapToKeyValuePairs converts a map to alternating key-value slice.
// Keys are sorted for deterministic output.
func mapToKeyValuePairs(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
