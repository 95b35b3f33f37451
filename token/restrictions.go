package token

import (
	"slices"

	"github.com/jrsteele09/go-auth-exchange/internal/utils"
)

// Restrictions narrows what a derived token may claim. A nil slice leaves
// that dimension unrestricted when narrowing; an empty slice grants nothing.
type Restrictions struct {
	Permissions []string `json:"permissions"`
	Scopes      []string `json:"scopes"`
}

// Narrow returns the part of base that requested asks for. The result is
// always a subset of base.
func Narrow(base Restrictions, requested *Restrictions) Restrictions {
	out := Restrictions{
		Permissions: slices.Clone(base.Permissions),
		Scopes:      slices.Clone(base.Scopes),
	}
	if requested == nil {
		return out
	}
	if requested.Permissions != nil {
		out.Permissions = utils.Intersect(base.Permissions, requested.Permissions)
	}
	if requested.Scopes != nil {
		out.Scopes = utils.Intersect(base.Scopes, requested.Scopes)
	}
	return out
}

// Snapshot returns a copy of r with every dimension explicit, so a stored
// snapshot taken from an empty grant stays empty when narrowed later.
func (r Restrictions) Snapshot() Restrictions {
	out := Restrictions{
		Permissions: slices.Clone(r.Permissions),
		Scopes:      slices.Clone(r.Scopes),
	}
	if out.Permissions == nil {
		out.Permissions = []string{}
	}
	if out.Scopes == nil {
		out.Scopes = []string{}
	}
	return out
}

// Covers reports whether every permission and scope of r is in base.
func (r Restrictions) Covers(base Restrictions) bool {
	for _, p := range r.Permissions {
		if !slices.Contains(base.Permissions, p) {
			return false
		}
	}
	for _, s := range r.Scopes {
		if !slices.Contains(base.Scopes, s) {
			return false
		}
	}
	return true
}
