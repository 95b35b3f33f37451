package jwt

import (
	"context"
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-exchange/internal/config"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/internal/utils"
	"github.com/jrsteele09/go-auth-exchange/token"
	"github.com/jrsteele09/go-auth-exchange/token/jti"
	"github.com/jrsteele09/go-auth-exchange/token/keys"
)

// Introspection is the verified content of a signed token.
type Introspection struct {
	Subject    string
	EntityType token.EntityType
	Kind       token.Kind
	Domain     string
	Source     string
	Email      string
	ClientID   string
	JTI        string
	IssuedAt   time.Time
	ExpiresAt  time.Time

	// Restrictions is nil when the token carried neither permissions nor scopes
	Restrictions *token.Restrictions
}

// Principal rebuilds the principal the token was minted for.
func (in *Introspection) Principal() token.Principal {
	p := token.Principal{
		EntityType: in.EntityType,
		ID:         in.Subject,
		Domain:     in.Domain,
		Email:      in.Email,
	}
	if in.Restrictions != nil {
		p.Permissions = in.Restrictions.Permissions
		p.Scopes = in.Restrictions.Scopes
	}
	return p
}

// Verifier checks signed tokens of one kind: signature, algorithm, expiry,
// issuer, token type and, when the strategy asks for it, single use of the
// replay id. Every rejection is apperrors.ErrInvalidToken.
type Verifier struct {
	kind    token.Kind
	signer  keys.Signer
	issuer  string
	useJti  bool
	tracker jti.Tracker
	nowTime func() time.Time
}

type VerifierOption func(*Verifier)

// WithVerifierNowTime sets the clock used for expiry checks (primarily for testing)
func WithVerifierNowTime(nowTime func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.nowTime = nowTime
	}
}

// NewVerifier creates a verifier for kind. tracker may be nil when the
// kind's strategy does not use replay ids.
func NewVerifier(kind token.Kind, signer keys.Signer, cfg config.JWTConfig, tracker jti.Tracker, options ...VerifierOption) *Verifier {
	v := &Verifier{
		kind:    kind,
		signer:  signer,
		issuer:  cfg.Issuer,
		useJti:  cfg.StrategyFor(string(kind)).UseJti,
		tracker: tracker,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(v)
	}
	return v
}

// Verify validates raw and returns its claims.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Introspection, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperrors.ErrInvalidToken
	}

	parserOpts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{v.signer.GetSigningMethod().Alg()}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithIssuedAt(),
		jwtlib.WithTimeFunc(v.nowTime),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwtlib.WithIssuer(v.issuer))
	}

	parsed, err := jwtlib.ParseWithClaims(raw, jwtlib.MapClaims{}, v.signer.GetVerificationKey, parserOpts...)
	if err != nil || !parsed.Valid {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "%s: %v", v.kind, err)
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "error extracting claims")
	}

	in := introspect(claims)
	if in.Subject == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "%s: missing subject", v.kind)
	}
	if in.Kind != v.kind {
		return nil, apperrors.WithEntity(in.Subject, apperrors.Wrapf(apperrors.ErrInvalidToken, "token type %q presented as %s", in.Kind, v.kind))
	}

	if v.useJti {
		if err := v.markSeen(ctx, in); err != nil {
			return nil, err
		}
	}
	return in, nil
}

func (v *Verifier) markSeen(ctx context.Context, in *Introspection) error {
	if in.JTI == "" {
		return apperrors.WithEntity(in.Subject, apperrors.Wrapf(apperrors.ErrInvalidToken, "%s: missing jti", v.kind))
	}
	if v.tracker == nil {
		return errors.New("replay id tracking enabled without a tracker")
	}
	first, err := v.tracker.MarkSeen(ctx, in.JTI, in.ExpiresAt)
	if err != nil {
		return apperrors.Wrapf(err, "mark jti seen")
	}
	if !first {
		return apperrors.WithEntity(in.Subject, apperrors.Wrapf(apperrors.ErrInvalidToken, "%s: replayed jti", v.kind))
	}
	return nil
}

func introspect(claims jwtlib.MapClaims) *Introspection {
	in := &Introspection{}
	in.Subject, _ = claims.GetSubject()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		in.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		in.IssuedAt = iat.Time
	}

	in.Kind = token.Kind(stringClaim(claims, ClaimTokenType))
	in.EntityType = token.EntityType(stringClaim(claims, ClaimEntityType))
	in.Domain = stringClaim(claims, ClaimDomain)
	in.Source = stringClaim(claims, ClaimSource)
	in.Email = stringClaim(claims, ClaimEmail)
	in.ClientID = stringClaim(claims, ClaimClientID)
	in.JTI = stringClaim(claims, "jti")

	_, hasPermissions := claims[ClaimPermissions]
	_, hasScopes := claims[ClaimScopes]
	if hasPermissions || hasScopes {
		r := token.Restrictions{}
		if hasPermissions {
			r.Permissions = utils.ClaimStrings(claims[ClaimPermissions])
		}
		if hasScopes {
			r.Scopes = utils.ClaimStrings(claims[ClaimScopes])
		}
		in.Restrictions = &r
	}
	return in
}

func stringClaim(claims jwtlib.MapClaims, name string) string {
	s, _ := claims[name].(string)
	return s
}
