package token

// Kind names a token type, and so one end of an exchange edge.
type Kind string

const (
	Basic             Kind = "basic"
	AccessToken       Kind = "accessToken"
	IDToken           Kind = "idToken"
	Refresh           Kind = "refresh"
	AuthorizationCode Kind = "authorizationCode"
	OIDC              Kind = "oidc"
	SessionToken      Kind = "sessionToken"
	OTP               Kind = "otp"
	Passwordless      Kind = "passwordless"
	AccountID         Kind = "accountId"
	APIKey            Kind = "apiKey"
	ExternalIDToken   Kind = "externalIdToken"
)

func (k Kind) String() string {
	return string(k)
}

// ExchangeName is the provenance label for tokens minted by the from->to edge.
func ExchangeName(from, to Kind) string {
	return string(from) + "->" + string(to)
}
