// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import "context"

// Principal is the authenticated actor behind a request.
type Principal struct {
	// ID is the identity provider's stable user id (the token subject).
	ID string
	// Name is the display name, if the token carries one.
	Name string
}

type principalKey struct{}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored on ctx, or nil.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
