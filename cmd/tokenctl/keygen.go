package main

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"io"

	"github.com/jrsteele09/go-auth-exchange/internal/config"
	"github.com/jrsteele09/go-auth-exchange/token/keys"
)

// generatedKey is the material printed by keygen
type generatedKey struct {
	Algorithm  string
	Secret     string
	PrivateKey string
	PublicKey  string
	JWKS       []byte
}

func keygen(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	alg := fs.String("alg", keys.RSA256, "HMAC256, HMAC512, RSA256, RSA512, ECDSA256 or ECDSA512")
	kid := fs.String("kid", config.GetEnv("AUTHX_JWT_KEY_ID", "default"), "key id published in the key set")
	bits := fs.Int("bits", 2048, "RSA modulus size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	k, err := generateKey(*alg, *kid, *bits)
	if err != nil {
		return err
	}
	if k.Secret != "" {
		fmt.Fprintf(out, "AUTHX_JWT_ALGORITHM=%s\nAUTHX_JWT_KEY=%s\n", k.Algorithm, k.Secret)
		return nil
	}
	fmt.Fprintf(out, "# AUTHX_JWT_ALGORITHM=%s\n%s\n%s\n%s\n", k.Algorithm, k.PrivateKey, k.PublicKey, k.JWKS)
	return nil
}

func generateKey(alg, kid string, bits int) (*generatedKey, error) {
	method, err := keys.ResolveAlgorithm(alg)
	if err != nil {
		return nil, err
	}

	if keys.IsSymmetric(alg) {
		secret := make([]byte, 64)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
		return &generatedKey{Algorithm: alg, Secret: base64.StdEncoding.EncodeToString(secret)}, nil
	}

	var kp *keys.KeyPair
	switch alg {
	case keys.RSA256, keys.RSA512:
		kp, err = keys.GenerateRSAKeyPair(kid, bits, method.Alg())
	default:
		kp, err = keys.GenerateECDSAKeyPair(kid, method.Alg())
	}
	if err != nil {
		return nil, err
	}

	k := &generatedKey{Algorithm: alg}
	if k.PrivateKey, err = kp.ExportPrivateKeyPEM(); err != nil {
		return nil, err
	}
	if k.PublicKey, err = kp.ExportPublicKeyPEM(); err != nil {
		return nil, err
	}
	if k.JWKS, err = keys.MarshalJWKS(keys.NewKeyPairSigner(kp)); err != nil {
		return nil, err
	}
	return k, nil
}
