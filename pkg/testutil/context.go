package testutil

import (
	"context"

	"gradegate/pkg/domain"
	"gradegate/pkg/requestcontext"
)

// AsAdmin returns a context carrying an admin caller identity, simulating
// what the auth middleware does for authenticated requests.
func AsAdmin(id domain.UserID) context.Context {
	return WithCaller(context.Background(), id, domain.RoleAdmin)
}

// AsTA returns a context carrying a TA caller identity.
func AsTA(id domain.UserID) context.Context {
	return WithCaller(context.Background(), id, domain.RoleTA)
}

// AsStudent returns a context carrying a student caller identity.
func AsStudent(id domain.UserID) context.Context {
	return WithCaller(context.Background(), id, domain.RoleStudent)
}

// WithCaller injects an arbitrary caller identity into ctx.
func WithCaller(ctx context.Context, id domain.UserID, role domain.Role) context.Context {
	return requestcontext.WithIdentity(ctx, requestcontext.Caller{UserID: id, Role: role})
}
