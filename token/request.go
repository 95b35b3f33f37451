package token

import "maps"

// Extra parameter names understood by the exchange handlers
const (
	ExtraCodeVerifier        = "code_verifier"
	ExtraCodeChallenge       = "code_challenge"
	ExtraCodeChallengeMethod = "code_challenge_method"
	ExtraNonce               = "nonce"
)

// AuthRequest is the normalized input of one exchange. It is built per call
// and treated as immutable.
type AuthRequest struct {
	Identifier   string
	Password     string
	Token        string
	Restrictions *Restrictions
	Domain       string

	DeviceID          string
	ClientID          string
	ExternalSessionID string
	UserAgent         string
	SourceIP          string
	Extra             map[string]string
}

// WithRestrictions returns a copy of r carrying the given restrictions.
func (r AuthRequest) WithRestrictions(restrictions Restrictions) AuthRequest {
	c := r
	c.Extra = maps.Clone(r.Extra)
	c.Restrictions = &restrictions
	return c
}

// ExtraValue returns an extra protocol parameter, or "".
func (r AuthRequest) ExtraValue(key string) string {
	return r.Extra[key]
}

// Options is the issuance context passed to issuers so minted tokens can carry
// provenance without depending on the full request.
type Options struct {
	Source            string
	Domain            string
	DeviceID          string
	ClientID          string
	ExternalSessionID string
	UserAgent         string
	SourceIP          string
	Nonce             string
}

// OptionsFrom derives issuance options for the from->to edge.
func OptionsFrom(req AuthRequest, from, to Kind) Options {
	return Options{
		Source:            ExchangeName(from, to),
		Domain:            req.Domain,
		DeviceID:          req.DeviceID,
		ClientID:          req.ClientID,
		ExternalSessionID: req.ExternalSessionID,
		UserAgent:         req.UserAgent,
		SourceIP:          req.SourceIP,
		Nonce:             req.ExtraValue(ExtraNonce),
	}
}
