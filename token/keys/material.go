package keys

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
)

const filePrefix = "file:"

// LoadMaterial resolves a configured key value. Values of the form
// "file:<path>" are read from disk, anything else is used inline.
func LoadMaterial(value string) ([]byte, error) {
	if path, ok := strings.CutPrefix(value, filePrefix); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read key file %s: %w", path, err)
		}
		return bytes.TrimSpace(data), nil
	}
	if value == "" {
		return nil, errors.New("empty key material")
	}
	return []byte(value), nil
}

// DecodeBinary returns raw key bytes from base64 text, or the input when it
// is not base64.
func DecodeBinary(material []byte) []byte {
	s := strings.TrimSpace(string(material))
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return b
		}
	}
	return material
}

// derBytes returns the DER payload of PEM or base64 encoded material.
func derBytes(material []byte) (der []byte, blockType string, err error) {
	if block, _ := pem.Decode(material); block != nil {
		return block.Bytes, block.Type, nil
	}
	der = DecodeBinary(material)
	if bytes.Equal(der, material) {
		return nil, "", errors.New("key material is neither PEM nor base64")
	}
	return der, "", nil
}

// ParsePrivateKey loads an RSA or ECDSA private key from PEM or base64 DER
// (PKCS#1, SEC 1 or PKCS#8).
func ParsePrivateKey(material []byte) (crypto.PrivateKey, error) {
	der, blockType, err := derBytes(material)
	if err != nil {
		return nil, err
	}
	switch blockType {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(der)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(der)
	}
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		switch key.(type) {
		case *rsa.PrivateKey, *ecdsa.PrivateKey:
			return key, nil
		}
		return nil, fmt.Errorf("unsupported private key type %T", key)
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, errors.New("failed to parse private key")
}

// ParsePublicKey loads an RSA or ECDSA public key from PEM or base64 DER
// (PKIX or PKCS#1).
func ParsePublicKey(material []byte) (crypto.PublicKey, error) {
	der, blockType, err := derBytes(material)
	if err != nil {
		return nil, err
	}
	if blockType == "RSA PUBLIC KEY" {
		return x509.ParsePKCS1PublicKey(der)
	}
	if key, err := x509.ParsePKIXPublicKey(der); err == nil {
		switch key.(type) {
		case *rsa.PublicKey, *ecdsa.PublicKey:
			return key, nil
		}
		return nil, fmt.Errorf("unsupported public key type %T", key)
	}
	if key, err := x509.ParsePKCS1PublicKey(der); err == nil {
		return key, nil
	}
	return nil, errors.New("failed to parse public key")
}
