// Package exchange converts one token kind into another. A Registry maps
// (from, to) pairs to handlers and the Service dispatches, audits and
// measures every exchange.
package exchange

import (
	"context"

	"github.com/jrsteele09/go-auth-exchange/token"
)

// Handler implements one edge of the exchange graph.
type Handler interface {
	Exchange(ctx context.Context, req token.AuthRequest) (*token.AuthResponse, error)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, req token.AuthRequest) (*token.AuthResponse, error)

func (f HandlerFunc) Exchange(ctx context.Context, req token.AuthRequest) (*token.AuthResponse, error) {
	return f(ctx, req)
}

// Pair is one directed edge of the exchange graph
type Pair struct {
	From token.Kind
	To   token.Kind
}

func (p Pair) String() string {
	return token.ExchangeName(p.From, p.To)
}

// Registration offers a handler for a pair. Whether the pair is reachable is
// decided by the allow-list given to NewRegistry.
type Registration struct {
	From    token.Kind
	To      token.Kind
	Handler Handler
}

func (r Registration) Pair() Pair {
	return Pair{From: r.From, To: r.To}
}
