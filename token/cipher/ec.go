package cipher

import (
	"crypto/aes"
	gocipher "crypto/cipher"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"golang.org/x/crypto/hkdf"
)

var hkdfInfo = []byte("authx opaque token v1")

// EC encrypts to an elliptic-curve public key: an ephemeral ECDH agreement
// feeds HKDF-SHA256 which keys AES-256-GCM. The output is
// base64url(ephemeral public key || nonce || sealed).
type EC struct {
	private *ecdh.PrivateKey
	public  *ecdh.PublicKey
}

var _ Cipher = (*EC)(nil)

func NewEC(private *ecdsa.PrivateKey, public *ecdsa.PublicKey) (*EC, error) {
	priv, err := private.ECDH()
	if err != nil {
		return nil, fmt.Errorf("ecdh private key: %w", err)
	}
	pub, err := public.ECDH()
	if err != nil {
		return nil, fmt.Errorf("ecdh public key: %w", err)
	}
	if !priv.PublicKey().Equal(pub) {
		return nil, errors.New("encryption public key does not match private key")
	}
	return &EC{private: priv, public: pub}, nil
}

func (c *EC) Enabled() bool { return true }

func (c *EC) Encrypt(plain []byte) (string, error) {
	eph, err := c.public.Curve().GenerateKey(rand.Reader)
	if err != nil {
		return "", fmt.Errorf("ephemeral key: %w", err)
	}
	shared, err := eph.ECDH(c.public)
	if err != nil {
		return "", fmt.Errorf("ecdh: %w", err)
	}
	aead, err := newAEAD(shared, eph.PublicKey().Bytes())
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	out := append(eph.PublicKey().Bytes(), nonce...)
	out = aead.Seal(out, nonce, plain, nil)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

func (c *EC) Decrypt(encoded string) ([]byte, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	pubLen := len(c.public.Bytes())
	if len(data) < pubLen {
		return nil, apperrors.ErrInvalidToken
	}
	ephBytes := data[:pubLen]
	eph, err := c.private.Curve().NewPublicKey(ephBytes)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	shared, err := c.private.ECDH(eph)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	aead, err := newAEAD(shared, ephBytes)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	rest := data[pubLen:]
	if len(rest) < aead.NonceSize() {
		return nil, apperrors.ErrInvalidToken
	}
	plain, err := aead.Open(nil, rest[:aead.NonceSize()], rest[aead.NonceSize():], nil)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	return plain, nil
}

func newAEAD(shared, salt []byte) (gocipher.AEAD, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, salt, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return gocipher.NewGCM(block)
}
