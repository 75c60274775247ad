// Package canvas stores the items shown on the studio canvas.
package canvas

import (
	"context"
	"errors"
	"time"
)

// ItemType is the kind of canvas item.
type ItemType string

// Item types.
const (
	ItemImage    ItemType = "image"
	ItemAnalysis ItemType = "analysis"
)

// Layout constants. New items are staggered diagonally in a cycle of five,
// inside the 100 to 300 pixel band the studio places tiles in. Placement is
// deterministic so every client of a shared board sees the same layout.
const (
	LayoutOrigin  = 100
	LayoutStep    = 40
	LayoutCycle   = 5
	DefaultWidth  = 320
	DefaultHeight = 320
)

var (
	// ErrNotFound is returned when an item does not exist.
	ErrNotFound = errors.New("canvas item not found")
	// ErrInvalidID is returned for an empty item id.
	ErrInvalidID = errors.New("invalid canvas item id")
)

// Item is one tile on the canvas. A pending item has no URL yet.
type Item struct {
	ID        string    `json:"id"`
	Type      ItemType  `json:"type"`
	URL       string    `json:"url,omitempty"`
	Prompt    string    `json:"prompt,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Pending   bool      `json:"pending"`
}

// UpdateKind says what happened to an item.
type UpdateKind string

// Update kinds.
const (
	UpdateAdded     UpdateKind = "added"
	UpdateFinalized UpdateKind = "finalized"
)

// Update is delivered to subscribers on every change.
type Update struct {
	Kind UpdateKind `json:"kind"`
	Item Item       `json:"item"`
}

// Store persists canvas items.
type Store interface {
	// AddPending places a new pending image item for prompt.
	AddPending(ctx context.Context, prompt string) (*Item, error)

	// Finalize attaches url to a pending item. Finalizing an unknown id is a
	// no-op and returns nil.
	Finalize(ctx context.Context, id, url string) error

	// Get returns one item.
	Get(ctx context.Context, id string) (*Item, error)

	// List returns every item in insertion order.
	List(ctx context.Context) ([]Item, error)

	// Subscribe delivers updates until ctx ends. Slow subscribers lose updates.
	Subscribe(ctx context.Context) (<-chan Update, error)
}

// newPendingItem builds the nth item (zero-based) of a canvas.
func newPendingItem(id, prompt string, n int64, now time.Time) Item {
	offset := LayoutOrigin + int(n%LayoutCycle)*LayoutStep
	return Item{
		ID:        id,
		Type:      ItemImage,
		Prompt:    prompt,
		Timestamp: now,
		X:         offset,
		Y:         offset,
		Width:     DefaultWidth,
		Height:    DefaultHeight,
		Pending:   true,
	}
}

const subscriberBuffer = 16
