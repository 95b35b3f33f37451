package pkce_test

import (
	"testing"

	"github.com/jrsteele09/go-auth-exchange/ephemeral"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/pkce"
	"github.com/jrsteele09/go-auth-exchange/token"
	"github.com/stretchr/testify/require"
)

const (
	testCodeVerifier  = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	testCodeChallenge = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
)

func storedCode(challenge, method string) *ephemeral.Token {
	info := map[string]string{}
	if challenge != "" {
		info[ephemeral.InfoCodeChallenge] = challenge
	}
	if method != "" {
		info[ephemeral.InfoCodeChallengeMethod] = method
	}
	return &ephemeral.Token{Token: "code", AdditionalInformation: info}
}

func withVerifier(v string) token.AuthRequest {
	if v == "" {
		return token.AuthRequest{}
	}
	return token.AuthRequest{Extra: map[string]string{token.ExtraCodeVerifier: v}}
}

func TestComputeS256Challenge(t *testing.T) {
	require.Equal(t, testCodeChallenge, pkce.ComputeS256Challenge(testCodeVerifier))
	require.Equal(t, "MV9b23bQeMQ7isAGTkoBZGErH853yGk0W_yUx1iU7dM", pkce.ComputeS256Challenge("Hello, world!"))
}

func TestVerifyIfPKCE(t *testing.T) {
	helloChallenge := pkce.ComputeS256Challenge("Hello, world!")

	tests := []struct {
		name     string
		stored   *ephemeral.Token
		verifier string
		wantErr  bool
	}{
		{"no pkce on either side", storedCode("", ""), "", false},
		{"s256 round trip", storedCode(helloChallenge, pkce.MethodS256), "Hello, world!", false},
		{"rfc vector", storedCode(testCodeChallenge, pkce.MethodS256), testCodeVerifier, false},
		{"different verifier", storedCode(helloChallenge, pkce.MethodS256), "Hello, world?", true},
		{"plain match", storedCode("plain-secret", pkce.MethodPlain), "plain-secret", false},
		{"plain mismatch", storedCode("plain-secret", pkce.MethodPlain), "other", true},
		{"verifier without challenge", storedCode("", ""), "Hello, world!", true},
		{"challenge without verifier", storedCode(helloChallenge, pkce.MethodS256), "", true},
		{"missing method", storedCode(helloChallenge, ""), "Hello, world!", true},
		{"missing challenge value", storedCode("", pkce.MethodS256), "Hello, world!", true},
		{"unknown method", storedCode(helloChallenge, "S512"), "Hello, world!", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pkce.VerifyIfPKCE(tt.stored, withVerifier(tt.verifier))
			if tt.wantErr {
				require.ErrorIs(t, err, apperrors.ErrPkceMismatch)
				require.ErrorIs(t, err, apperrors.ErrInvalidToken)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidMethod(t *testing.T) {
	require.True(t, pkce.ValidMethod("S256"))
	require.True(t, pkce.ValidMethod("plain"))
	require.False(t, pkce.ValidMethod("none"))
}
