package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-garment/internal/common"
)

// Verifier parses and validates access tokens issued by the identity service.
// This service never mints tokens, it only checks them.
type Verifier struct {
	Secret    []byte
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm
	Now       func() time.Time
}

// Verify validates the token and returns the caller identity derived from the
// subject and name claims.
func (v Verifier) Verify(token string) (common.Identity, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return common.Identity{}, common.UnauthorizedError(errNoToken)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return common.Identity{}, common.UnauthorizedError(err)
	}
	expected := v.Algorithm
	if expected == "" {
		expected = jwa.HS256
	}
	if algorithm != expected {
		return common.Identity{}, common.UnauthorizedError(fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, v.Secret))
	if err != nil {
		return common.Identity{}, common.UnauthorizedError(err)
	}
	if err := v.validate(parsed); err != nil {
		return common.Identity{}, common.UnauthorizedError(err)
	}
	identity := common.Identity{ID: parsed.Subject()}
	if name, ok := parsed.Get("name"); ok {
		if s, ok := name.(string); ok {
			identity.Name = s
		}
	}
	if identity.ID == "" {
		return common.Identity{}, common.UnauthorizedError(errors.New("auth: token missing subject"))
	}
	return identity, nil
}

func (v Verifier) validate(tok jwt.Token) error {
	now := time.Now()
	if v.Now != nil {
		now = v.Now()
	}
	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		options = append(options, jwt.WithAudience(v.Audience))
	}
	return jwt.Validate(tok, options...)
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if algorithm != "" && algorithm != alg {
			return "", errors.New("auth: token algorithm mismatch")
		}
		algorithm = alg
	}
	return algorithm, nil
}
