package canvas

import (
	"context"
	"time"

	"github.com/AltairaLabs/visionary/runtime/logger"
)

const boardOpTimeout = 5 * time.Second

// Board adapts a Store to the fire-and-forget calls made by the tool bridge.
// Store errors are logged, never returned.
type Board struct {
	store Store
}

// NewBoard wraps store.
func NewBoard(store Store) *Board {
	return &Board{store: store}
}

// Store returns the underlying store.
func (b *Board) Store() Store { return b.store }

// AddPending adds a pending item and returns its id, or "" if the store failed.
func (b *Board) AddPending(prompt string) string {
	ctx, cancel := context.WithTimeout(context.Background(), boardOpTimeout)
	defer cancel()
	item, err := b.store.AddPending(ctx, prompt)
	if err != nil {
		logger.Error("Canvas add failed", "error", err)
		return ""
	}
	logger.Debug("Canvas item added", "item_id", item.ID, "x", item.X, "y", item.Y)
	return item.ID
}

// Finalize attaches url to item id.
func (b *Board) Finalize(id, url string) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(logger.WithItemID(context.Background(), id), boardOpTimeout)
	defer cancel()
	if err := b.store.Finalize(ctx, id, url); err != nil {
		logger.ErrorContext(ctx, "Canvas finalize failed", "error", err)
	}
}
