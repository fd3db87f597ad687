package carprefs

import "context"

type userIDKey struct{}

// ContextWithUserID returns a copy of ctx carrying the user ID that keys the
// preference document. Every Manager method reads it back with UserIDFromContext.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext extracts the user ID set by ContextWithUserID.
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, _ := ctx.Value(userIDKey{}).(string)
	if userID == "" {
		return "", ErrMissingUserID
	}
	return userID, nil
}
