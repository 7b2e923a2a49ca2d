package store

import (
	"time"

	"github.com/jpalmerr/ecoboard/internal/panel"
)

// Panel kinds.
const (
	KindChart = "chart"
	KindHTML  = "html"
)

// Panel is the latest rendered content of one dashboard container.
//
// Chart panels carry a Figure; HTML panels carry markup that replaces the
// container's inner HTML.
type Panel struct {
	// ID is the container ID, e.g. "usage-chart".
	ID string `json:"id"`

	// Kind is KindChart or KindHTML.
	Kind string `json:"kind"`

	Figure *panel.Figure `json:"figure,omitempty"`
	HTML   string        `json:"html,omitempty"`

	// Tick is the ID of the polling cycle that produced this panel.
	Tick string `json:"tick"`

	// RenderedAt is when the panel was replaced.
	RenderedAt time.Time `json:"rendered_at"`
}

// Store defines the interface for storing and subscribing to panel updates.
//
// Store implementations must be safe for concurrent access. The pub/sub
// mechanism allows rendered panels to be pushed to connected browsers
// (e.g., via Server-Sent Events).
type Store interface {
	// Update stores a panel and notifies all subscribers.
	// Panels are keyed by ID, so a later update replaces the earlier one.
	Update(p Panel)

	// Get returns the panel with the given ID and whether it exists.
	Get(id string) (Panel, bool)

	// GetAll returns all currently stored panels sorted by ID.
	// The returned slice is a snapshot; modifications do not affect the store.
	GetAll() []Panel

	// Subscribe returns a channel that receives panel updates.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Panel

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Panel)
}
