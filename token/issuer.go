package token

import "context"

// Issuer mints tokens of one kind for an authenticated principal. The
// restrictions passed are already narrowed; issuers never widen them.
type Issuer interface {
	Issue(ctx context.Context, p Principal, r Restrictions, opts Options) (*AuthResponse, error)
}
