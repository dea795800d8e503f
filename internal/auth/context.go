package auth

import "context"

type ctxKey string

const userIDKey ctxKey = "userID"

// WithUserID stores the resolved user id on the context. The authorization
// gate calls this after a successful token resolve.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext retrieves the user id injected by the authorization gate.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	userID, ok := ctx.Value(userIDKey).(int64)
	return userID, ok
}
