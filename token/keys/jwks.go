package keys

import (
	"encoding/json"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// JWKSProvider is implemented by signers whose verification key can be published.
type JWKSProvider interface {
	JWKS() (jwk.Set, error)
}

// JWKS returns the JSON Web Key Set holding this signer's public key
func (a *KeyPairSigner) JWKS() (jwk.Set, error) {
	key, err := jwk.FromRaw(a.keyPair.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to convert key to JWK: %w", err)
	}
	if err := key.Set(jwk.KeyIDKey, a.keyPair.KeyID); err != nil {
		return nil, err
	}
	if err := key.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
		return nil, err
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.SignatureAlgorithm(a.keyPair.Algorithm)); err != nil {
		return nil, err
	}

	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		return nil, fmt.Errorf("failed to add key to set: %w", err)
	}
	return set, nil
}

// MarshalJWKS renders the signer's key set, or an error for symmetric signers
// which have nothing to publish.
func MarshalJWKS(s Signer) ([]byte, error) {
	p, ok := s.(JWKSProvider)
	if !ok {
		return nil, fmt.Errorf("%s signer has no public key set", s.GetSigningMethod().Alg())
	}
	set, err := p.JWKS()
	if err != nil {
		return nil, err
	}
	return json.Marshal(set)
}
