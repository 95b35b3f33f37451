package exchange

import (
	"cmp"
	"slices"

	"github.com/jrsteele09/go-auth-exchange/internal/config"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/token"
)

// Registry is the dispatch table of enabled exchanges. It is built once at
// startup and only read afterwards.
type Registry struct {
	handlers map[Pair]Handler
}

// NewEmptyRegistry returns a registry with no exchanges enabled
func NewEmptyRegistry() *Registry {
	return &Registry{handlers: make(map[Pair]Handler)}
}

// NewRegistry enables the allow-listed pairs from the available handlers.
// An allowed pair without an implementation, or an implementation offered
// twice, is a configuration error. Available pairs that are not allowed are
// left out.
func NewRegistry(available []Registration, allowed []config.ExchangePair) (*Registry, error) {
	offered := make(map[Pair]Handler, len(available))
	for _, reg := range available {
		if reg.Handler == nil {
			return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "exchange %s has a nil handler", reg.Pair())
		}
		if _, dup := offered[reg.Pair()]; dup {
			return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "exchange %s registered twice", reg.Pair())
		}
		offered[reg.Pair()] = reg.Handler
	}

	r := NewEmptyRegistry()
	for _, a := range allowed {
		pair := Pair{From: token.Kind(a.From), To: token.Kind(a.To)}
		if _, done := r.handlers[pair]; done {
			continue
		}
		h, ok := offered[pair]
		if !ok {
			return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "exchange %s is allowed but not implemented", pair)
		}
		r.handlers[pair] = h
	}
	return r, nil
}

// Register enables a single exchange.
func (r *Registry) Register(from, to token.Kind, h Handler) error {
	pair := Pair{From: from, To: to}
	if h == nil {
		return apperrors.Wrapf(apperrors.ErrConfiguration, "exchange %s has a nil handler", pair)
	}
	if _, dup := r.handlers[pair]; dup {
		return apperrors.Wrapf(apperrors.ErrConfiguration, "exchange %s registered twice", pair)
	}
	r.handlers[pair] = h
	return nil
}

// Resolve returns the handler for from->to or ErrUnsupportedExchange.
func (r *Registry) Resolve(from, to token.Kind) (Handler, error) {
	h, ok := r.handlers[Pair{From: from, To: to}]
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrUnsupportedExchange, "%s", token.ExchangeName(from, to))
	}
	return h, nil
}

func (r *Registry) Supports(from, to token.Kind) bool {
	_, ok := r.handlers[Pair{From: from, To: to}]
	return ok
}

// Pairs lists the enabled exchanges in a stable order.
func (r *Registry) Pairs() []Pair {
	pairs := make([]Pair, 0, len(r.handlers))
	for p := range r.handlers {
		pairs = append(pairs, p)
	}
	slices.SortFunc(pairs, func(a, b Pair) int {
		return cmp.Or(cmp.Compare(a.From, b.From), cmp.Compare(a.To, b.To))
	})
	return pairs
}
