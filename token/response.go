package token

import "time"

// EntityType tells what kind of principal a token represents.
type EntityType string

const (
	EntityAccount     EntityType = "ACCOUNT"
	EntityApplication EntityType = "APPLICATION"
)

// Principal is the authenticated entity a token is minted for.
type Principal struct {
	EntityType  EntityType
	ID          string
	Domain      string
	Email       string
	Permissions []string
	Scopes      []string
}

// Grants returns the principal's full permission and scope set.
func (p Principal) Grants() Restrictions {
	return Restrictions{Permissions: p.Permissions, Scopes: p.Scopes}
}

// Payload is the token carried by an AuthResponse: a StringToken or an
// *OIDCBundle.
type Payload interface {
	isPayload()
}

// StringToken is a signed or opaque token string.
type StringToken string

func (StringToken) isPayload() {}

// OIDCBundle is the structured result of an OpenID Connect exchange.
type OIDCBundle struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

func (*OIDCBundle) isPayload() {}

// AuthResponse is the normalized output of an exchange.
type AuthResponse struct {
	EntityType   EntityType
	EntityID     string
	Type         Kind
	Token        Payload
	RefreshToken *string
	ValidFor     time.Duration
}

// TokenString returns the string payload, or "" for structured payloads.
func (r *AuthResponse) TokenString() string {
	if s, ok := r.Token.(StringToken); ok {
		return string(s)
	}
	return ""
}

// Bundle returns the OIDC payload, or nil for string payloads.
func (r *AuthResponse) Bundle() *OIDCBundle {
	b, _ := r.Token.(*OIDCBundle)
	return b
}
