package logger

import "context"

type contextKey string

// Context keys lifted into every log record by ContextHandler.
const (
	ContextKeySessionID contextKey = "session_id"
	ContextKeyMode      contextKey = "mode"
	ContextKeyComponent contextKey = "component"
	ContextKeyModel     contextKey = "model"
	ContextKeyItemID    contextKey = "item_id"
)

var allContextKeys = []contextKey{
	ContextKeySessionID,
	ContextKeyMode,
	ContextKeyComponent,
	ContextKeyModel,
	ContextKeyItemID,
}

// WithSessionID returns a context carrying the live session id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, id)
}

// WithMode returns a context carrying the session mode.
func WithMode(ctx context.Context, mode string) context.Context {
	return context.WithValue(ctx, ContextKeyMode, mode)
}

// WithComponent returns a context carrying the emitting component name.
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, ContextKeyComponent, component)
}

// WithModel returns a context carrying the model name.
func WithModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, ContextKeyModel, model)
}

// WithItemID returns a context carrying a canvas item id.
func WithItemID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyItemID, id)
}

// SessionID returns the session id stored in ctx, or "".
func SessionID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(ContextKeySessionID).(string)
	return s
}
