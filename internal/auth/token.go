package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"
)

// Claims is the bearer token payload: the standard subject plus the role.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// TokenParser validates HS256 bearer tokens signed with a shared secret.
type TokenParser struct {
	secret []byte
	issuer string
}

// NewTokenParser returns a parser for tokens signed with secret. An empty
// issuer disables the issuer check.
func NewTokenParser(secret, issuer string) *TokenParser {
	return &TokenParser{secret: []byte(secret), issuer: issuer}
}

// Parse validates token and returns the identity it carries.
func (p *TokenParser) Parse(token string) (Identity, error) {
	if len(p.secret) == 0 {
		return Anonymous, eris.New("auth: no signing secret configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		return Anonymous, eris.Wrap(err, "auth: parse token")
	}
	if claims.Subject == "" {
		return Anonymous, eris.New("auth: token has no subject")
	}

	return Identity{Role: ParseRole(claims.Role), UserID: claims.Subject}, nil
}

// Sign issues a token for id valid for ttl. Used by the CLI and tests.
func (p *TokenParser) Sign(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: string(id.Role),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", eris.Wrap(err, "auth: sign token")
	}
	return signed, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(prefix):])
	return tok, tok != ""
}
