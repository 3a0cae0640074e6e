package auth

import (
	"context"

	"google.golang.org/grpc/metadata"
)

type staffKey struct{}

// WithStaffID stores the authenticated actor on ctx.
func WithStaffID(ctx context.Context, staffID string) context.Context {
	return context.WithValue(ctx, staffKey{}, staffID)
}

// GetStaffID returns the acting staff member. Token validation happens
// upstream; the gateway forwards the resolved identity as x-user-id.
func GetStaffID(ctx context.Context) string {
	if val, ok := ctx.Value(staffKey{}).(string); ok {
		return val
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if val := md.Get("x-user-id"); len(val) > 0 {
			return val[0]
		}
	}
	return ""
}

// StaffOr prefers the explicit id from the request body.
func StaffOr(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return GetStaffID(ctx)
}
