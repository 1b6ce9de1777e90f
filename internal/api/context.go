package api

import "context"

type ctxKey string

const ctxKeyUserID ctxKey = "userID"

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

// UserIDFromContext returns the authenticated user id, or "" when the request
// carries no identity.
func UserIDFromContext(ctx context.Context) string {
	v := ctx.Value(ctxKeyUserID)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
