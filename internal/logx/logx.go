package logx

import (
	"context"

	"pkt.systems/hybridterm/schema"
	"pkt.systems/pslog"
)

type contextKey int

const sessionKey contextKey = 0

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithSession annotates the context logger with the session id unless the
// context already carries that session marker.
func WithSession(ctx context.Context, id schema.SessionID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if id != "" {
		if current, ok := ctx.Value(sessionKey).(schema.SessionID); ok && current == id {
			return log
		}
		log = log.With("session", id)
	}
	return log
}

// WithConversation annotates the logger with a conversation id when available.
func WithConversation(log pslog.Logger, id schema.ConversationID) pslog.Logger {
	if id != "" {
		log = log.With("conversation", id)
	}
	return log
}

// ContextWithSession stores the session marker on the context for log de-duplication.
func ContextWithSession(ctx context.Context, id schema.SessionID) context.Context {
	if ctx == nil || id == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, id)
}

// ContextWithSessionLogger attaches the logger and session marker to the context.
func ContextWithSessionLogger(ctx context.Context, log pslog.Logger, id schema.SessionID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithSession(ctx, id)
}

// SessionFromContext returns the session marker, if any.
func SessionFromContext(ctx context.Context) (schema.SessionID, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(sessionKey).(schema.SessionID)
	return id, ok && id != ""
}

// CopyContextFields copies the session marker from src to dst.
func CopyContextFields(dst context.Context, src context.Context) context.Context {
	if id, ok := SessionFromContext(src); ok {
		dst = ContextWithSession(dst, id)
	}
	return dst
}
