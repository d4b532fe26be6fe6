package auth

import (
	"context"
	"crypto/subtle"
	"errors"
)

// ErrUnauthenticated is returned for missing, unknown, or malformed
// credentials.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the stable user identity a verified credential resolves to.
type Identity struct {
	UserID string
	Email  string
}

// Verifier checks a bearer credential and resolves it to an identity. The
// data core only needs the identity for activity-log correlation.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// StaticVerifier resolves tokens against a fixed token-to-user table loaded
// from configuration.
type StaticVerifier struct {
	identities map[string]Identity
}

// NewStaticVerifier builds a verifier from a token -> user-id map.
func NewStaticVerifier(tokens map[string]string) *StaticVerifier {
	ids := make(map[string]Identity, len(tokens))
	for token, uid := range tokens {
		ids[token] = Identity{UserID: uid}
	}
	return &StaticVerifier{identities: ids}
}

func (v *StaticVerifier) Verify(_ context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}
	// Constant-time scan over the table rather than a map lookup keyed by
	// the secret itself.
	for candidate, id := range v.identities {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) == 1 {
			return id, nil
		}
	}
	return Identity{}, ErrUnauthenticated
}

// DevVerifier accepts any credential and resolves it to a fixed development
// identity. Used when no token table is configured, mirroring the service's
// development mode.
type DevVerifier struct{}

func (DevVerifier) Verify(context.Context, string) (Identity, error) {
	return Identity{UserID: "dev_user", Email: "dev@example.com"}, nil
}
