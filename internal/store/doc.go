// Package store holds the most recently rendered dashboard panels.
//
// Each [Panel] is keyed by the ID of the page container it fills, so a new
// render of a panel replaces the previous one, the same way assigning a new
// plot to a DOM element does. [MemoryStore] also fans every update out to
// subscribers (the SSE handler) over buffered channels; slow subscribers miss
// updates rather than block rendering.
package store
